package services

import (
	"testing"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

func TestNormalizePokemonName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mega Charizard EX", "Charizard"},
		{"Erika's Pikachu", "Pikachu"},
		{"Ditto", "Ditto"},
		{"Pikachu VMAX", "Pikachu"},
		{"Charizard LV.X", "Charizard"},
		{"Garchomp LV. 58", "Garchomp"},
		{"Pikachu & Zekrom GX", "Pikachu"},
		{"Lt. Surge's Raichu", "Raichu"},
		{"Dark Raichu (Holo)", "Raichu"},
		{"EX", "EX"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePokemonName(tt.in); got != tt.want {
				t.Errorf("NormalizePokemonName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGeneratePokemonListDocID(t *testing.T) {
	tests := []struct {
		dex  int
		name string
		want string
	}{
		{6, "Mega Charizard EX", "dex-6-charizard"},
		{122, "Mr. Mime", "dex-122-mr-mime"},
		{25, "", ""},
		{0, "Pikachu", ""},
	}
	for _, tt := range tests {
		if got := GeneratePokemonListDocID(tt.dex, tt.name); got != tt.want {
			t.Errorf("GeneratePokemonListDocID(%d, %q) = %q, want %q", tt.dex, tt.name, got, tt.want)
		}
	}
}

func TestGroupPokemonByBase(t *testing.T) {
	base := []models.Pokemon{
		{NationalDexNumber: 25, Name: "Pikachu"},
		{NationalDexNumber: 6, Name: "Charizard"},
	}
	enriched := []models.PokemonListEntry{
		{
			NationalDexNumber: 6,
			Name:              "Mega Charizard",
			CardCount:         3,
			CardIDs:           []string{"xy-12", "xy-13", "xy-14"},
			Sets:              []string{"XY"},
			Types:             []string{"Fire", "Dragon"},
			SpriteURL:         "https://img.example.com/unrelated.png",
		},
		{
			NationalDexNumber: 6,
			Name:              "Charizard",
			CardIDs:           []string{"base1-4", "xy-12"},
			Sets:              []string{"Base Set", "XY"},
			Types:             []string{"Fire"},
			SpriteURL:         "https://img.example.com/charizard.png",
			ImageURL:          "https://images.example.com/base1-4.png",
		},
		{NationalDexNumber: 999, Name: "Unknown", CardIDs: []string{"x-1"}},
	}

	got := GroupPokemonByBase(base, enriched)
	if len(got) != 2 {
		t.Fatalf("GroupPokemonByBase() returned %d entries, want 2", len(got))
	}

	charizard := got[0]
	if charizard.ID != "dex-6-charizard" {
		t.Errorf("entry[0].ID = %q, want dex-6-charizard", charizard.ID)
	}
	if charizard.CardCount != 5 {
		t.Errorf("Charizard cardCount = %d, want 5", charizard.CardCount)
	}
	if len(charizard.CardIDs) != 4 {
		t.Errorf("Charizard cardIds = %v, want 4 unique ids", charizard.CardIDs)
	}
	if len(charizard.Sets) != 2 || len(charizard.Types) != 2 {
		t.Errorf("Charizard sets = %v, types = %v; want 2 of each", charizard.Sets, charizard.Types)
	}
	if charizard.SpriteURL != "https://img.example.com/charizard.png" {
		t.Errorf("Charizard spriteUrl = %q, want the base-name sprite", charizard.SpriteURL)
	}
	if charizard.ImageURL != "https://images.example.com/base1-4.png" {
		t.Errorf("Charizard imageUrl = %q, want image of the sprite's variation", charizard.ImageURL)
	}

	pikachu := got[1]
	if pikachu.ID != "dex-25-pikachu" || pikachu.CardCount != 0 {
		t.Errorf("entry[1] = %s with %d cards, want dex-25-pikachu with 0", pikachu.ID, pikachu.CardCount)
	}
	want := "https://img.pokemondb.net/sprites/diamond-pearl/normal/pikachu.png"
	if pikachu.SpriteURL != want {
		t.Errorf("Pikachu spriteUrl = %q, want %q", pikachu.SpriteURL, want)
	}
}
