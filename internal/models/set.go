package models

import "time"

// Legalities mirrors the format legality block of both catalog APIs.
type Legalities struct {
	Standard  string `json:"standard,omitempty"`
	Expanded  string `json:"expanded,omitempty"`
	Unlimited string `json:"unlimited,omitempty"`
}

// Set is a card set in one language partition (set_en / set_ja) or in the
// legacy "sets" collection.
type Set struct {
	ID             string     `json:"id,omitempty"`
	APIID          string     `json:"apiId"`
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	ReleaseDate    string     `json:"releaseDate,omitempty"`
	Series         string     `json:"series,omitempty"`
	TotalCards     int        `json:"totalCards"`
	PrintedTotal   int        `json:"printedTotal,omitempty"`
	Logo           string     `json:"logo,omitempty"`
	Symbol         string     `json:"symbol,omitempty"`
	BackupLogoURL  string     `json:"backupLogoUrl,omitempty"`
	Legalities     Legalities `json:"legalities"`
	StandardLegal  bool       `json:"standardLegal"`
	ExpandedLegal  bool       `json:"expandedLegal"`
	UnlimitedLegal bool       `json:"unlimitedLegal"`
	Language       Language   `json:"language,omitempty"`
	EnglishName    string     `json:"englishName,omitempty"`
	EnglishSeries  string     `json:"englishSeries,omitempty"`

	// CardCount is maintained for language partitions, FetchedCardsCount for
	// the legacy collection. Both are recomputed by count queries.
	CardCount         int `json:"cardCount,omitempty"`
	FetchedCardsCount int `json:"fetchedCardsCount,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
