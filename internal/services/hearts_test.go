package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func TestHeartPokemon(t *testing.T) {
	ctx := context.Background()
	svc := NewHeartService(store.NewMemoryStore())

	heart, err := svc.HeartPokemon(ctx, "u1", 25, "Pikachu")
	if err != nil {
		t.Fatalf("HeartPokemon() error = %v", err)
	}
	if heart.Type != models.HeartTypePokemon || heart.PokemonID != 25 {
		t.Errorf("HeartPokemon() = %+v, want pokemon heart for 25", heart)
	}

	if _, err := svc.HeartPokemon(ctx, "u1", 25, "Pikachu"); !errors.Is(err, ErrAlreadyHearted) {
		t.Errorf("second HeartPokemon() error = %v, want ErrAlreadyHearted", err)
	}
	if ok, _ := svc.IsPokemonHearted(ctx, "u1", 25); !ok {
		t.Error("IsPokemonHearted(u1, 25) = false, want true")
	}
	if ok, _ := svc.IsPokemonHearted(ctx, "u2", 25); ok {
		t.Error("IsPokemonHearted(u2, 25) = true, want false")
	}

	if err := svc.UnheartPokemon(ctx, "u1", 25); err != nil {
		t.Fatalf("UnheartPokemon() error = %v", err)
	}
	if err := svc.UnheartPokemon(ctx, "u1", 25); !errors.Is(err, ErrNotHearted) {
		t.Errorf("second UnheartPokemon() error = %v, want ErrNotHearted", err)
	}
}

func TestHeartCard(t *testing.T) {
	ctx := context.Background()
	svc := NewHeartService(store.NewMemoryStore())

	if _, err := svc.HeartCard(ctx, "u1", "", "", ""); err == nil {
		t.Error("HeartCard() without card id succeeded, want error")
	}
	if _, err := svc.HeartCard(ctx, "u1", "base1-4", "base1-4", "Charizard"); err != nil {
		t.Fatalf("HeartCard() error = %v", err)
	}
	if _, err := svc.HeartCard(ctx, "u1", "base1-4", "base1-4", "Charizard"); !errors.Is(err, ErrAlreadyHearted) {
		t.Errorf("second HeartCard() error = %v, want ErrAlreadyHearted", err)
	}

	hearts, err := svc.ListHearts(ctx, "u1", models.HeartTypeCard)
	if err != nil {
		t.Fatalf("ListHearts() error = %v", err)
	}
	if len(hearts) != 1 || hearts[0].CardName != "Charizard" {
		t.Errorf("ListHearts() = %+v, want one Charizard heart", hearts)
	}

	if err := svc.UnheartCard(ctx, "u1", "base1-4"); err != nil {
		t.Fatalf("UnheartCard() error = %v", err)
	}
	if ok, _ := svc.IsCardHearted(ctx, "u1", "base1-4"); ok {
		t.Error("IsCardHearted() after unheart = true, want false")
	}
}

func TestHeartedSets_Batched(t *testing.T) {
	ctx := context.Background()
	svc := NewHeartService(store.NewMemoryStore())

	var dex []int
	var cards []string
	for i := 1; i <= 25; i++ {
		dex = append(dex, i)
		cards = append(cards, fmt.Sprintf("sv1-%d", i))
		if i%2 == 0 {
			if _, err := svc.HeartPokemon(ctx, "u1", i, ""); err != nil {
				t.Fatalf("HeartPokemon(%d) error = %v", i, err)
			}
			if _, err := svc.HeartCard(ctx, "u1", cards[i-1], "", ""); err != nil {
				t.Fatalf("HeartCard(%s) error = %v", cards[i-1], err)
			}
		}
	}

	pokemon, err := svc.HeartedPokemonSet(ctx, "u1", dex)
	if err != nil {
		t.Fatalf("HeartedPokemonSet() error = %v", err)
	}
	if len(pokemon) != 12 || !pokemon[24] || pokemon[25] {
		t.Errorf("HeartedPokemonSet() = %v, want the 12 even dex numbers", pokemon)
	}

	hearted, err := svc.HeartedCardSet(ctx, "u1", cards)
	if err != nil {
		t.Fatalf("HeartedCardSet() error = %v", err)
	}
	if len(hearted) != 12 || !hearted["sv1-24"] {
		t.Errorf("HeartedCardSet() = %v, want the 12 even cards", hearted)
	}
}

func TestUserCards(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewUserCardService(st)

	card, err := svc.MarkCardAsCollected(ctx, "u1", "base1-4", 2, "binder page 1")
	if err != nil {
		t.Fatalf("MarkCardAsCollected() error = %v", err)
	}
	if card.ID != "u1_base1-4" || card.Quantity != 2 {
		t.Errorf("MarkCardAsCollected() = %+v, want id u1_base1-4 and quantity 2", card)
	}

	collected, err := svc.ToggleCardCollected(ctx, "u1", "base1-58", 1)
	if err != nil || !collected {
		t.Fatalf("ToggleCardCollected() = %v, %v; want true", collected, err)
	}

	ids, err := svc.GetCollectedCardIDs(ctx, "u1", []string{"base1-4", "base1-58", "base1-96"})
	if err != nil {
		t.Fatalf("GetCollectedCardIDs() error = %v", err)
	}
	if len(ids) != 2 || !ids["base1-4"] || !ids["base1-58"] {
		t.Errorf("GetCollectedCardIDs() = %v, want base1-4 and base1-58", ids)
	}

	collected, err = svc.ToggleCardCollected(ctx, "u1", "base1-58", 1)
	if err != nil || collected {
		t.Fatalf("second ToggleCardCollected() = %v, %v; want false", collected, err)
	}

	cards, err := svc.GetUserCollectedCards(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserCollectedCards() error = %v", err)
	}
	if len(cards) != 1 || cards[0].CardID != "base1-4" {
		t.Errorf("GetUserCollectedCards() = %+v, want only base1-4", cards)
	}

	if _, err := svc.MarkCardAsCollected(ctx, "", "base1-4", 1, ""); err == nil {
		t.Error("MarkCardAsCollected() without user succeeded, want error")
	}
}
