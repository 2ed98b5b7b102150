package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func newTestPokemonSeeder() (*PokemonSeeder, store.DocumentStore) {
	st := store.NewMemoryStore()
	seeder := NewPokemonSeeder(st)
	seeder.writePause = 0
	return seeder, st
}

func TestReadPokemonJSON(t *testing.T) {
	list, err := ReadPokemonJSON(strings.NewReader(`[
		{"nationalDexNumber": 25, "name": "Pikachu", "name_ja": null, "types": ["Lightning"]},
		{"nationalDexNumber": 1, "name": "Bulbasaur"}
	]`))
	if err != nil {
		t.Fatalf("ReadPokemonJSON() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "Pikachu" || list[0].NameJa != "" {
		t.Errorf("ReadPokemonJSON() = %+v", list)
	}
}

func TestSeedPokemonCollection(t *testing.T) {
	ctx := context.Background()
	seeder, st := newTestPokemonSeeder()

	first := []models.Pokemon{
		{NationalDexNumber: 1, Name: "Bulbasaur"},
		{NationalDexNumber: 25, Name: "Pikachu", NameJa: "ピカチュウ"},
		{Name: "Missing dex"},
	}
	result, err := seeder.SeedPokemonCollection(ctx, first)
	if err != nil {
		t.Fatalf("SeedPokemonCollection() error = %v", err)
	}
	if result.Added != 2 || result.Updated != 0 || result.Errors != 1 {
		t.Errorf("first run = %+v, want 2 added, 0 updated, 1 error", result)
	}

	second := []models.Pokemon{
		{NationalDexNumber: 1, Name: "Bulbasaur"},
		{NationalDexNumber: 25, Name: "Pikachu", Types: []string{"Lightning"}},
	}
	result, err = seeder.SeedPokemonCollection(ctx, second)
	if err != nil {
		t.Fatalf("SeedPokemonCollection() error = %v", err)
	}
	if result.Added != 0 || result.Updated != 2 {
		t.Errorf("second run = %+v, want 0 added, 2 updated", result)
	}

	count, _ := st.Count(ctx, store.NewQuery(models.CollectionPokemon))
	if count != 2 {
		t.Errorf("pokemon count = %d, want 2", count)
	}
	pikachu, err := getAs[models.Pokemon](ctx, st, models.CollectionPokemon, "25")
	if err != nil {
		t.Fatalf("Get(25) error = %v", err)
	}
	if pikachu.NameJa != "ピカチュウ" || len(pikachu.Types) != 1 {
		t.Errorf("Pikachu = %+v, want name_ja kept and types added", pikachu)
	}
}

func TestSeedJapaneseNames(t *testing.T) {
	ctx := context.Background()
	seeder, st := newTestPokemonSeeder()

	if _, err := seeder.SeedPokemonCollection(ctx, []models.Pokemon{
		{NationalDexNumber: 1, Name: "Bulbasaur"},
		{NationalDexNumber: 6, Name: "Charizard"},
		{NationalDexNumber: 25, Name: "Pikachu"},
		{NationalDexNumber: 150, Name: "Mewtwo", NameJa: "ミュウツー"},
	}); err != nil {
		t.Fatalf("SeedPokemonCollection() error = %v", err)
	}

	names, err := ParseJapaneseNames([]byte(`{
		"ピカチュウ": "Pikachu",
		"フシギダネ": {"name": "Bulbasaur", "nationalDexNumber": 1},
		"リザードン": {"name": "Charizard (typo)", "nationalDexNumber": 6}
	}`))
	if err != nil {
		t.Fatalf("ParseJapaneseNames() error = %v", err)
	}

	result, err := seeder.SeedJapaneseNames(ctx, names)
	if err != nil {
		t.Fatalf("SeedJapaneseNames() error = %v", err)
	}
	if result.Updated != 3 || result.Skipped != 1 {
		t.Errorf("SeedJapaneseNames() = %+v, want 3 updated, 1 skipped", result)
	}

	want := map[string]string{"1": "フシギダネ", "6": "リザードン", "25": "ピカチュウ", "150": "ミュウツー"}
	for id, ja := range want {
		p, err := getAs[models.Pokemon](ctx, st, models.CollectionPokemon, id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if p.NameJa != ja {
			t.Errorf("pokemon %s name_ja = %q, want %q", id, p.NameJa, ja)
		}
	}
}

func seedListCards(t *testing.T, st store.DocumentStore) {
	t.Helper()
	ctx := context.Background()
	cards := []models.Card{
		{ID: "base1-4", Name: "Charizard", Category: "Pokemon", NationalDexNumber: 6, Types: []string{"Fire"}, Set: models.CardSetRef{ID: "base1", Name: "Base Set"}},
		{ID: "base1-96", Name: "Double Colorless Energy", Category: "Energy", Set: models.CardSetRef{ID: "base1", Name: "Base Set"}},
		{ID: "xy12-13", Name: "Mega Charizard EX", Category: "Pokemon", NationalDexNumber: 6, Types: []string{"Fire", "Dragon"}, Set: models.CardSetRef{ID: "xy12", Name: "Evolutions"}},
	}
	for _, c := range cards {
		if _, err := st.Create(ctx, models.CardCollection(models.LanguageEnglish), c.ID, c); err != nil {
			t.Fatalf("Create(%s) error = %v", c.ID, err)
		}
	}
	legacy := models.LegacyCard{APIID: "base2-60", Name: "Pikachu", CardType: "Pokémon", NationalDexNumber: 25, Set: "Jungle"}
	if _, err := st.Create(ctx, models.CollectionLegacyCards, "", legacy); err != nil {
		t.Fatalf("Create(legacy) error = %v", err)
	}
}

func TestBuildPokemonList(t *testing.T) {
	ctx := context.Background()
	seeder, st := newTestPokemonSeeder()
	seedListCards(t, st)

	result, err := seeder.BuildPokemonList(ctx)
	if err != nil {
		t.Fatalf("BuildPokemonList() error = %v", err)
	}
	if result.Total != 2 || result.Added != 2 {
		t.Errorf("BuildPokemonList() = %+v, want 2 added", result)
	}

	charizard, err := getAs[models.PokemonListEntry](ctx, st, models.CollectionPokemonList, "dex-6-charizard")
	if err != nil {
		t.Fatalf("Get(dex-6-charizard) error = %v", err)
	}
	if charizard.CardCount != 2 || charizard.DisplayName != "Charizard" {
		t.Errorf("Charizard = %d cards, display %q; want 2 cards, display Charizard", charizard.CardCount, charizard.DisplayName)
	}
	if len(charizard.Sets) != 2 || len(charizard.Types) != 2 {
		t.Errorf("Charizard sets = %v, types = %v", charizard.Sets, charizard.Types)
	}
	if charizard.SpriteURL != PokespriteURL("Charizard", "regular") {
		t.Errorf("Charizard spriteUrl = %q", charizard.SpriteURL)
	}

	pikachu, err := getAs[models.PokemonListEntry](ctx, st, models.CollectionPokemonList, "dex-25-pikachu")
	if err != nil {
		t.Fatalf("Get(dex-25-pikachu) error = %v", err)
	}
	if len(pikachu.CardIDs) != 1 || pikachu.CardIDs[0] != "base2-60" {
		t.Errorf("Pikachu cardIds = %v, want [base2-60]", pikachu.CardIDs)
	}

	result, err = seeder.BuildPokemonList(ctx)
	if err != nil {
		t.Fatalf("BuildPokemonList() second run error = %v", err)
	}
	if result.Added != 0 || result.Updated != 2 {
		t.Errorf("second BuildPokemonList() = %+v, want 2 updated", result)
	}
}

func TestRegroupPokemonList(t *testing.T) {
	ctx := context.Background()
	seeder, st := newTestPokemonSeeder()
	seedListCards(t, st)
	if _, err := seeder.SeedPokemonCollection(ctx, []models.Pokemon{
		{NationalDexNumber: 6, Name: "Charizard"},
		{NationalDexNumber: 25, Name: "Pikachu"},
	}); err != nil {
		t.Fatalf("SeedPokemonCollection() error = %v", err)
	}
	if _, err := seeder.BuildPokemonList(ctx); err != nil {
		t.Fatalf("BuildPokemonList() error = %v", err)
	}
	orphan := models.PokemonListEntry{NationalDexNumber: 9999, Name: "Unknown", DisplayName: "Unknown"}
	if _, err := st.Create(ctx, models.CollectionPokemonList, "dex-9999-unknown", orphan); err != nil {
		t.Fatalf("Create(orphan) error = %v", err)
	}

	result, err := seeder.RegroupPokemonList(ctx)
	if err != nil {
		t.Fatalf("RegroupPokemonList() error = %v", err)
	}
	if result.Total != 2 || result.Updated != 2 || result.Removed != 1 {
		t.Errorf("RegroupPokemonList() = %+v, want 2 updated, 1 removed", result)
	}
	if _, err := st.Get(ctx, models.CollectionPokemonList, "dex-9999-unknown"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("orphan entry still present, err = %v", err)
	}
	charizard, err := getAs[models.PokemonListEntry](ctx, st, models.CollectionPokemonList, "dex-6-charizard")
	if err != nil {
		t.Fatalf("Get(dex-6-charizard) error = %v", err)
	}
	if charizard.CardCount != 2 {
		t.Errorf("Charizard cardCount = %d, want 2", charizard.CardCount)
	}
}

func TestUpdatePokemonSprites(t *testing.T) {
	ctx := context.Background()
	seeder, st := newTestPokemonSeeder()
	seedListCards(t, st)
	if _, err := seeder.SeedPokemonCollection(ctx, []models.Pokemon{{NationalDexNumber: 6, Name: "Charizard"}}); err != nil {
		t.Fatalf("SeedPokemonCollection() error = %v", err)
	}
	if _, err := seeder.BuildPokemonList(ctx); err != nil {
		t.Fatalf("BuildPokemonList() error = %v", err)
	}

	result, err := seeder.UpdatePokemonSprites(ctx, SpriteSourcePokeAPI, false)
	if err != nil {
		t.Fatalf("UpdatePokemonSprites() error = %v", err)
	}
	if result.Updated != 2 || result.Skipped != 0 {
		t.Errorf("UpdatePokemonSprites() = %+v, want 2 updated", result)
	}
	entry, _ := getAs[models.PokemonListEntry](ctx, st, models.CollectionPokemonList, "dex-6-charizard")
	if entry.SpriteURL != PokeAPISpriteURL(6, "official-artwork") {
		t.Errorf("spriteUrl = %q, want PokeAPI artwork", entry.SpriteURL)
	}
	species, _ := getAs[models.Pokemon](ctx, st, models.CollectionPokemon, "6")
	if species.SpriteSource != string(SpriteSourcePokeAPI) {
		t.Errorf("species spriteSource = %q, want pokeapi", species.SpriteSource)
	}

	result, err = seeder.UpdatePokemonSprites(ctx, SpriteSourcePokeAPI, false)
	if err != nil {
		t.Fatalf("UpdatePokemonSprites() second run error = %v", err)
	}
	if result.Skipped != 2 {
		t.Errorf("second UpdatePokemonSprites() = %+v, want 2 skipped", result)
	}

	var vErr *ValidationError
	if _, err := seeder.UpdatePokemonSprites(ctx, "bogus", false); !errors.As(err, &vErr) {
		t.Errorf("UpdatePokemonSprites(bogus) error = %v, want ValidationError", err)
	}

	gifs, err := seeder.UpdatePokemonGifs(ctx, false)
	if err != nil {
		t.Fatalf("UpdatePokemonGifs() error = %v", err)
	}
	if gifs.Updated != 2 {
		t.Errorf("UpdatePokemonGifs() = %+v, want 2 updated", gifs)
	}
	species, _ = getAs[models.Pokemon](ctx, st, models.CollectionPokemon, "6")
	if species.GifURL != PokemonDBGifURL("Charizard", DefaultGifGeneration, "normal") {
		t.Errorf("species gifUrl = %q", species.GifURL)
	}
}

func TestCleanupInvalidSpriteURLs(t *testing.T) {
	ctx := context.Background()
	seeder, st := newTestPokemonSeeder()

	dbSprite := "https://img.pokemondb.net/sprites/diamond-pearl/normal/pikachu.png"
	pokesprite := PokespriteSprites("Pichu")
	entries := map[string]models.PokemonListEntry{
		"dex-1-bulbasaur": {NationalDexNumber: 1, Name: "Bulbasaur", SpriteURL: "https://example.com/bulbasaur.png"},
		"dex-25-pikachu": {NationalDexNumber: 25, Name: "Pikachu", SpriteURL: dbSprite, SpriteURLs: &models.SpriteURLs{
			SpriteURL: dbSprite,
			Normal:    dbSprite,
			Box:       "https://example.com/box.png",
			Source:    string(SpriteSourcePokemonDB),
		}},
		"dex-172-pichu": {NationalDexNumber: 172, Name: "Pichu", SpriteURL: pokesprite.SpriteURL, SpriteURLs: &pokesprite},
	}
	for id, e := range entries {
		if _, err := st.Create(ctx, models.CollectionPokemonList, id, e); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	result, err := seeder.CleanupInvalidSpriteURLs(ctx)
	if err != nil {
		t.Fatalf("CleanupInvalidSpriteURLs() error = %v", err)
	}
	if result.Updated != 2 || result.Removed != 1 || result.Skipped != 1 {
		t.Errorf("CleanupInvalidSpriteURLs() = %+v, want 2 updated, 1 removed, 1 skipped", result)
	}

	bulbasaur, _ := getAs[models.PokemonListEntry](ctx, st, models.CollectionPokemonList, "dex-1-bulbasaur")
	if bulbasaur.SpriteURL != "" {
		t.Errorf("bulbasaur spriteUrl = %q, want removed", bulbasaur.SpriteURL)
	}
	pikachu, _ := getAs[models.PokemonListEntry](ctx, st, models.CollectionPokemonList, "dex-25-pikachu")
	if pikachu.SpriteURL != dbSprite || pikachu.SpriteURLs == nil || pikachu.SpriteURLs.Box != "" {
		t.Errorf("pikachu sprites = %q %+v, want box dropped", pikachu.SpriteURL, pikachu.SpriteURLs)
	}
}
