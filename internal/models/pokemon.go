package models

import "time"

// Pokemon is a species record keyed by national dex number.
type Pokemon struct {
	ID                string    `json:"id,omitempty"`
	NationalDexNumber int       `json:"nationalDexNumber"`
	Name              string    `json:"name"`
	NameJa            string    `json:"name_ja,omitempty"`
	Types             []string  `json:"types,omitempty"`
	SpriteURL         string    `json:"spriteUrl,omitempty"`
	GifURL            string    `json:"gifUrl,omitempty"`
	SpriteSource      string    `json:"spriteSource,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SpriteURLs is the set of sprite variants generated for a Pokémon.
type SpriteURLs struct {
	SpriteURL  string `json:"spriteUrl,omitempty"`
	Normal     string `json:"normal,omitempty"`
	Shiny      string `json:"shiny,omitempty"`
	Back       string `json:"back,omitempty"`
	BackShiny  string `json:"backShiny,omitempty"`
	Box        string `json:"box,omitempty"`
	Inventory  string `json:"inventory,omitempty"`
	Fallback   string `json:"fallback,omitempty"`
	Generation string `json:"generation,omitempty"`
	Source     string `json:"source,omitempty"`
}

// PokemonListEntry is one row of the browse catalog: every card variant of a
// species collapsed under one dex number.
type PokemonListEntry struct {
	ID                string      `json:"id,omitempty"`
	NationalDexNumber int         `json:"nationalDexNumber,omitempty"`
	Name              string      `json:"name"`
	DisplayName       string      `json:"displayName"`
	NormalizedName    string      `json:"normalizedName,omitempty"`
	CardCount         int         `json:"cardCount"`
	CardIDs           []string    `json:"cardIds"`
	Sets              []string    `json:"sets"`
	Types             []string    `json:"types"`
	SpriteURL         string      `json:"spriteUrl,omitempty"`
	ImageURL          string      `json:"imageUrl,omitempty"`
	SpriteURLs        *SpriteURLs `json:"spriteUrls,omitempty"`
	GifURL            string      `json:"gifUrl,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}
