package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// FlexString decodes JSON strings and numbers alike; the catalog APIs are
// inconsistent about fields such as attack damage and card numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Int parses the value as an integer, returning 0 when it is not numeric.
func (f FlexString) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}

type Attack struct {
	Cost   []string   `json:"cost,omitempty"`
	Name   string     `json:"name"`
	Effect string     `json:"effect,omitempty"`
	Damage FlexString `json:"damage,omitempty"`
}

type Ability struct {
	Type   string `json:"type,omitempty"`
	Name   string `json:"name"`
	Effect string `json:"effect,omitempty"`
}

// TypeValue is a weakness or resistance entry.
type TypeValue struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type Variants struct {
	FirstEdition bool `json:"firstEdition"`
	Holo         bool `json:"holo"`
	Normal       bool `json:"normal"`
	Reverse      bool `json:"reverse"`
	WPromo       bool `json:"wPromo"`
}

// DefaultVariants is used when the catalog omits variant data.
func DefaultVariants() Variants {
	return Variants{Normal: true}
}

type CardCount struct {
	Total    int `json:"total,omitempty"`
	Official int `json:"official,omitempty"`
}

type SerieRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// CardSetRef is the set summary embedded in a card document.
type CardSetRef struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Logo      string     `json:"logo,omitempty"`
	Symbol    string     `json:"symbol,omitempty"`
	CardCount *CardCount `json:"cardCount,omitempty"`
	Serie     *SerieRef  `json:"serie,omitempty"`
}

type Legal struct {
	Standard bool `json:"standard"`
	Expanded bool `json:"expanded"`
}

// Card is a card document in a language partition (card_en / card_ja). Its
// document id is the external card id.
type Card struct {
	ID             string      `json:"id"`
	Category       string      `json:"category"`
	Illustrator    string      `json:"illustrator"`
	Image          string      `json:"image"`
	LocalID        string      `json:"localId"`
	Name           string      `json:"name"`
	Rarity         string      `json:"rarity"`
	HP             *int        `json:"hp,omitempty"`
	Types          []string    `json:"types"`
	EvolveFrom     string      `json:"evolveFrom,omitempty"`
	Description    string      `json:"description"`
	Stage          string      `json:"stage,omitempty"`
	Attacks        []Attack    `json:"attacks"`
	Weaknesses     []TypeValue `json:"weaknesses"`
	Resistances    []TypeValue `json:"resistances"`
	Retreat        *int        `json:"retreat,omitempty"`
	RegulationMark string      `json:"regulationMark,omitempty"`
	Legal          *Legal      `json:"legal,omitempty"`
	Abilities      []Ability   `json:"abilities"`
	Level          string      `json:"level,omitempty"`
	DexID          []int       `json:"dexId"`
	Set            CardSetRef  `json:"set"`
	Variants       Variants    `json:"variants"`

	NationalDexNumber int      `json:"nationalDexNumber,omitempty"`
	SetID             string   `json:"setId,omitempty"`
	SetAPIID          string   `json:"setApiId,omitempty"`
	Language          Language `json:"language"`
	ImageURL          string   `json:"imageUrl"`
	ThumbnailURL      string   `json:"thumbnailUrl"`

	EnglishName         string `json:"englishName,omitempty"`
	EnglishImageURL     string `json:"englishImageUrl,omitempty"`
	EnglishThumbnailURL string `json:"englishThumbnailUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LegacyCard is a PokemonTCG.io card in the legacy "cards" collection. Its
// document id is generated; APIID holds the external id.
type LegacyCard struct {
	ID                     string                 `json:"id,omitempty"`
	APIID                  string                 `json:"apiId"`
	APISetID               string                 `json:"apiSetId"`
	SetID                  string                 `json:"setId,omitempty"`
	Name                   string                 `json:"name"`
	NationalDexNumber      int                    `json:"nationalDexNumber,omitempty"`
	NationalPokedexNumbers []int                  `json:"nationalPokedexNumbers"`
	Set                    string                 `json:"set"`
	SetCode                string                 `json:"setCode"`
	SetNumber              string                 `json:"setNumber"`
	ReleaseYear            int                    `json:"releaseYear,omitempty"`
	Series                 string                 `json:"series,omitempty"`
	Rarity                 string                 `json:"rarity"`
	CardType               string                 `json:"cardType"`
	Supertype              string                 `json:"supertype,omitempty"`
	Subtypes               []string               `json:"subtypes"`
	Stage                  string                 `json:"stage,omitempty"`
	Types                  []string               `json:"types"`
	Level                  string                 `json:"level,omitempty"`
	HP                     *int                   `json:"hp,omitempty"`
	EvolvesFrom            string                 `json:"evolvesFrom,omitempty"`
	EvolvesTo              []string               `json:"evolvesTo"`
	Rules                  []string               `json:"rules"`
	AncientTrait           *Ability               `json:"ancientTrait,omitempty"`
	RegulationMark         string                 `json:"regulationMark,omitempty"`
	IsHolo                 bool                   `json:"isHolo"`
	IsReverseHolo          bool                   `json:"isReverseHolo"`
	IsFirstEdition         bool                   `json:"isFirstEdition"`
	IsShadowless           bool                   `json:"isShadowless"`
	IsFullArt              bool                   `json:"isFullArt"`
	IsRainbow              bool                   `json:"isRainbow"`
	Artist                 string                 `json:"artist,omitempty"`
	ImageURL               string                 `json:"imageUrl"`
	ThumbnailURL           string                 `json:"thumbnailUrl"`
	Abilities              []Ability              `json:"abilities"`
	Attacks                []Attack               `json:"attacks"`
	Weaknesses             []TypeValue            `json:"weaknesses"`
	Resistances            []TypeValue            `json:"resistances"`
	RetreatCost            []string               `json:"retreatCost"`
	ConvertedRetreatCost   int                    `json:"convertedRetreatCost"`
	FlavorText             string                 `json:"flavorText,omitempty"`
	Legalities             Legalities             `json:"legalities"`
	TCGPlayerPrices        map[string]interface{} `json:"tcgplayerPrices,omitempty"`
	CardmarketPrices       map[string]interface{} `json:"cardmarketPrices,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CardSearchResult is returned by card search endpoints.
type CardSearchResult struct {
	Cards      []Card `json:"cards"`
	TotalCount int    `json:"total_count"`
	HasMore    bool   `json:"has_more"`
}
