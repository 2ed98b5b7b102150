package services

import (
	"context"
	"errors"
	"testing"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func newTestCatalogService(t *testing.T) (*CatalogService, store.DocumentStore) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewCatalogService(st)

	for _, p := range []models.Pokemon{
		{NationalDexNumber: 25, Name: "Pikachu", NameJa: "ピカチュウ"},
		{NationalDexNumber: 6, Name: "Charizard", NameJa: "リザードン"},
		{NationalDexNumber: 4, Name: "Charmander"},
	} {
		if _, err := svc.AddPokemon(ctx, p); err != nil {
			t.Fatalf("AddPokemon(%s) error = %v", p.Name, err)
		}
	}

	cards := []models.Card{
		{ID: "base1-4", LocalID: "4", Name: "Charizard", NationalDexNumber: 6, SetAPIID: "base1", Rarity: "Rare Holo", Language: models.LanguageEnglish},
		{ID: "base1-46", LocalID: "46", Name: "Charmander", NationalDexNumber: 4, SetAPIID: "base1", Rarity: "Common", Language: models.LanguageEnglish},
		{ID: "base1-58", LocalID: "58", Name: "Pikachu", NationalDexNumber: 25, SetAPIID: "base1", Rarity: "Common", Language: models.LanguageEnglish},
		{ID: "base1-96", LocalID: "96", Name: "Double Colorless Energy", SetAPIID: "base1", Rarity: "Uncommon", Language: models.LanguageEnglish},
		{ID: "base1-10", LocalID: "10", Name: "Mewtwo", NationalDexNumber: 150, SetAPIID: "base1", Rarity: "Rare Holo", Language: models.LanguageEnglish},
	}
	for _, c := range cards {
		if _, err := st.Create(ctx, models.CardCollection(models.LanguageEnglish), c.ID, c); err != nil {
			t.Fatalf("Create(%s) error = %v", c.ID, err)
		}
	}
	ja := models.Card{ID: "SV2a-25", LocalID: "25", Name: "ピカチュウ", EnglishName: "Pikachu", NationalDexNumber: 25, SetAPIID: "SV2a", Language: models.LanguageJapanese}
	if _, err := st.Create(ctx, models.CardCollection(models.LanguageJapanese), ja.ID, ja); err != nil {
		t.Fatalf("Create(%s) error = %v", ja.ID, err)
	}
	return svc, st
}

func TestCatalog_PokemonCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCatalogService(t)

	p, err := svc.GetPokemon(ctx, 25)
	if err != nil {
		t.Fatalf("GetPokemon(25) error = %v", err)
	}
	if p.Name != "Pikachu" || p.ID != "25" {
		t.Errorf("GetPokemon(25) = %+v, want Pikachu with id 25", p)
	}

	if _, err := svc.AddPokemon(ctx, models.Pokemon{NationalDexNumber: 25, Name: "Pikachu"}); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("AddPokemon(duplicate) error = %v, want ErrAlreadyExists", err)
	}

	updated, err := svc.UpdatePokemon(ctx, 25, map[string]interface{}{"spriteUrl": "https://img.pokemondb.net/sprites/home/normal/pikachu.png"})
	if err != nil {
		t.Fatalf("UpdatePokemon() error = %v", err)
	}
	if updated.SpriteURL == "" {
		t.Error("UpdatePokemon() did not store spriteUrl")
	}

	list, _ := svc.ListPokemon(ctx)
	if len(list) != 3 || list[0].NationalDexNumber != 4 {
		t.Errorf("ListPokemon() = %+v, want 3 entries starting at #4", list)
	}

	if err := svc.DeletePokemon(ctx, 4); err != nil {
		t.Fatalf("DeletePokemon() error = %v", err)
	}
	if _, err := svc.GetPokemon(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPokemon(4) after delete error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_ListCards(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCatalogService(t)

	tests := []struct {
		name    string
		filters CardFilters
		wantIDs []string
	}{
		{"unfiltered", CardFilters{}, []string{"base1-46", "base1-4", "base1-58", "base1-10", "base1-96"}},
		{"rarity", CardFilters{Rarity: "Rare Holo"}, []string{"base1-4", "base1-10"}},
		{"set with limit", CardFilters{Set: "base1", Limit: 2}, []string{"base1-46", "base1-4"}},
		{"all languages", CardFilters{Language: models.LanguageAll, Rarity: "Common"}, []string{"base1-46", "base1-58"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := svc.ListCards(ctx, tt.filters)
			if err != nil {
				t.Fatalf("ListCards() error = %v", err)
			}
			if len(cards) != len(tt.wantIDs) {
				t.Fatalf("ListCards() returned %d cards, want %d", len(cards), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if cards[i].ID != id {
					t.Errorf("ListCards()[%d] = %s, want %s", i, cards[i].ID, id)
				}
			}
		})
	}
}

func TestCatalog_CardsBySetAndDex(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCatalogService(t)

	cards, err := svc.GetCardsBySet(ctx, "base1", models.LanguageEnglish)
	if err != nil {
		t.Fatalf("GetCardsBySet() error = %v", err)
	}
	want := []string{"4", "10", "46", "58", "96"}
	for i, localID := range want {
		if cards[i].LocalID != localID {
			t.Errorf("GetCardsBySet()[%d].localId = %s, want %s", i, cards[i].LocalID, localID)
		}
	}

	pikachu, err := svc.GetCardsByDex(ctx, 25, models.LanguageAll)
	if err != nil {
		t.Fatalf("GetCardsByDex() error = %v", err)
	}
	if len(pikachu) != 2 {
		t.Errorf("GetCardsByDex(25, all) = %d cards, want 2", len(pikachu))
	}

	if _, err := svc.GetCard(ctx, "SV2a-25", models.LanguageAll); err != nil {
		t.Errorf("GetCard(SV2a-25, all) error = %v", err)
	}
	if _, err := svc.GetCard(ctx, "SV2a-25", models.LanguageEnglish); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCard(SV2a-25, en) error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_Search(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCatalogService(t)

	pokemon, err := svc.SearchPokemon(ctx, "char", 10)
	if err != nil {
		t.Fatalf("SearchPokemon() error = %v", err)
	}
	if len(pokemon) != 2 {
		t.Errorf("SearchPokemon(char) = %d results, want 2", len(pokemon))
	}

	ja, err := svc.SearchPokemon(ctx, "ピカ", 10)
	if err != nil {
		t.Fatalf("SearchPokemon() error = %v", err)
	}
	if len(ja) != 1 || ja[0].NationalDexNumber != 25 {
		t.Errorf("SearchPokemon(ピカ) = %+v, want Pikachu", ja)
	}

	cards, err := svc.SearchCards(ctx, "pikachu", models.LanguageAll, 0)
	if err != nil {
		t.Fatalf("SearchCards() error = %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("SearchCards(pikachu, all) = %d results, want 2", len(cards))
	}

	if _, err := svc.SearchCards(ctx, " ", models.LanguageAll, 0); err == nil {
		t.Error("SearchCards(blank) succeeded, want validation error")
	}
}

func TestCatalog_Sets(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewCatalogService(st)
	for _, set := range []models.Set{
		{APIID: "base1", Name: "Base Set", ReleaseDate: "1999-01-09", Language: models.LanguageEnglish},
		{APIID: "sv1", Name: "Scarlet & Violet", ReleaseDate: "2023-03-31", Language: models.LanguageEnglish},
	} {
		if _, err := st.Create(ctx, models.SetCollection(models.LanguageEnglish), set.APIID, set); err != nil {
			t.Fatalf("Create(%s) error = %v", set.APIID, err)
		}
	}
	if _, err := st.Create(ctx, models.SetCollection(models.LanguageJapanese), "generated-id", models.Set{APIID: "SV1S", Name: "スカーレットex", EnglishName: "Scarlet ex", ReleaseDate: "2023-01-20", Language: models.LanguageJapanese}); err != nil {
		t.Fatalf("Create(SV1S) error = %v", err)
	}

	sets, err := svc.ListSets(ctx, models.LanguageAll)
	if err != nil {
		t.Fatalf("ListSets() error = %v", err)
	}
	wantOrder := []string{"sv1", "SV1S", "base1"}
	for i, id := range wantOrder {
		if sets[i].APIID != id {
			t.Errorf("ListSets()[%d] = %s, want %s", i, sets[i].APIID, id)
		}
	}

	set, err := svc.GetSet(ctx, "SV1S", models.LanguageJapanese)
	if err != nil {
		t.Fatalf("GetSet(SV1S) error = %v", err)
	}
	if set.ID != "generated-id" || set.DisplayName != "Scarlet ex (スカーレットex)" {
		t.Errorf("GetSet(SV1S) = %s %q, want generated-id with bilingual name", set.ID, set.DisplayName)
	}
}
