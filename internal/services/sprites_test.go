package services

import "testing"

func TestSpriteSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pikachu", "pikachu"},
		{"Mr. Mime", "mr-mime"},
		{"Nidoran♀", "nidoran-f"},
		{"Nidoran♂", "nidoran-m"},
		{"Farfetch'd", "farfetchd"},
		{"Porygon2", "porygon-2"},
		{"Flabébé", "flabebe"},
		{"Type: Null", "type-null"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SpriteSlug(tt.in); got != tt.want {
				t.Errorf("SpriteSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecommendedGeneration(t *testing.T) {
	tests := []struct {
		dex  int
		want string
	}{
		{0, DefaultGeneration},
		{25, "diamond-pearl"},
		{500, "black-white"},
		{700, "x-y"},
		{750, "ultra-sun-ultra-moon"},
		{850, "sword-shield"},
		{950, "scarlet-violet"},
	}
	for _, tt := range tests {
		if got := RecommendedGeneration(tt.dex); got != tt.want {
			t.Errorf("RecommendedGeneration(%d) = %q, want %q", tt.dex, got, tt.want)
		}
	}
}

func TestSpriteURLBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pokemondb", PokemonDBSpriteURL("Mega Charizard EX", "", ""), "https://img.pokemondb.net/sprites/sword-shield/normal/charizard.png"},
		{"pokemondb gif", PokemonDBGifURL("Pikachu", "", ""), "https://img.pokemondb.net/sprites/black-white/anim/normal/pikachu.gif"},
		{"pokesprite", PokespriteURL("Pikachu", "regular"), "https://cdn.jsdelivr.net/gh/msikma/pokesprite@master/pokemon-gen8/pikachu.png"},
		{"pokesprite shiny", PokespriteURL("Pikachu", "shiny"), "https://cdn.jsdelivr.net/gh/msikma/pokesprite@master/pokemon-gen8/pikachu-shiny.png"},
		{"pokeapi artwork", PokeAPISpriteURL(25, "official-artwork"), "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/25.png"},
		{"pokeapi unknown variant", PokeAPISpriteURL(25, "nope"), "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/25.png"},
		{"pokeapi no dex", PokeAPISpriteURL(0, "default"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestValidateSpriteURLFormat(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		source  SpriteSource
		want    SpriteSource
		wantErr bool
	}{
		{"pokemondb detected", "https://img.pokemondb.net/sprites/x-y/normal/pikachu.png", "", SpriteSourcePokemonDB, false},
		{"pokesprite detected", PokespriteURL("Pikachu", "box"), "", SpriteSourcePokesprite, false},
		{"pokeapi explicit", PokeAPISpriteURL(25, "home"), SpriteSourcePokeAPI, SpriteSourcePokeAPI, false},
		{"wrong source", PokeAPISpriteURL(25, "home"), SpriteSourcePokemonDB, "", true},
		{"gif is not a static sprite", PokemonDBGifURL("Pikachu", "", ""), "", "", true},
		{"unknown host", "https://example.com/pikachu.png", "", "", true},
		{"empty", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSpriteURLFormat(tt.url, tt.source)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSpriteURLFormat(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateSpriteURLFormat(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSpritesFor(t *testing.T) {
	if _, err := SpritesFor(SpriteSourcePokeAPI, "Missingno", 0); err == nil {
		t.Error("SpritesFor(pokeapi, dex 0) succeeded, want error")
	}
	if _, err := SpritesFor("bogus", "Pikachu", 25); err == nil {
		t.Error("SpritesFor(bogus) succeeded, want error")
	}

	auto, err := SpritesFor(SpriteSourceAuto, "Pikachu", 25)
	if err != nil {
		t.Fatalf("SpritesFor(auto) error = %v", err)
	}
	if auto.Source != string(SpriteSourcePokemonDB) || auto.Fallback != PokespriteURL("Pikachu", "regular") {
		t.Errorf("SpritesFor(auto) = %+v, want PokemonDB with PokéSprite fallback", auto)
	}
}
