package models

import "time"

type HeartType string

const (
	HeartTypePokemon HeartType = "pokemon"
	HeartTypeCard    HeartType = "card"
)

// Heart is a user favorite. Exactly one of PokemonID and CardID is set,
// depending on Type.
type Heart struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"userId"`
	Type        HeartType `json:"type"`
	PokemonID   int       `json:"pokemonId,omitempty"`
	PokemonName string    `json:"pokemonName,omitempty"`
	CardID      string    `json:"cardId,omitempty"`
	CardAPIID   string    `json:"cardApiId,omitempty"`
	CardName    string    `json:"cardName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
