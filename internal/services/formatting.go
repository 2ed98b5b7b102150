package services

import (
	"fmt"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

// FormatCardName shows Japanese cards as "ネイティブ (English)" when an English
// name is known.
func FormatCardName(card *models.Card) string {
	if card == nil {
		return ""
	}
	if card.Language == models.LanguageJapanese && card.EnglishName != "" && card.EnglishName != card.Name {
		return fmt.Sprintf("%s (%s)", card.Name, card.EnglishName)
	}
	return card.Name
}

// FormatSetName shows Japanese sets as "English (ネイティブ)".
func FormatSetName(set *models.Set) string {
	if set == nil {
		return ""
	}
	return bilingual(set.Language, set.EnglishName, set.Name)
}

// FormatSeriesName shows Japanese series as "English (ネイティブ)".
func FormatSeriesName(set *models.Set) string {
	if set == nil {
		return ""
	}
	return bilingual(set.Language, set.EnglishSeries, set.Series)
}

func bilingual(lang models.Language, english, native string) string {
	if lang == models.LanguageJapanese && english != "" && native != "" && english != native {
		return fmt.Sprintf("%s (%s)", english, native)
	}
	if native == "" {
		return english
	}
	return native
}

// SetLogoURL picks the logo to display. TCGdex logos for Japanese sets are
// often broken, so those only use the backup logo.
func SetLogoURL(set *models.Set) string {
	if set == nil {
		return ""
	}
	if set.Language == models.LanguageJapanese {
		return set.BackupLogoURL
	}
	if set.BackupLogoURL != "" {
		return set.BackupLogoURL
	}
	return set.Logo
}

// SetView is a set with its display fields filled in.
type SetView struct {
	models.Set
	DisplayName       string `json:"displayName"`
	SeriesDisplayName string `json:"seriesDisplayName"`
	DisplayLogo       string `json:"displayLogo,omitempty"`
}

func NewSetView(set models.Set) SetView {
	return SetView{
		Set:               set,
		DisplayName:       FormatSetName(&set),
		SeriesDisplayName: FormatSeriesName(&set),
		DisplayLogo:       SetLogoURL(&set),
	}
}

// CardView is a card with its display name filled in.
type CardView struct {
	models.Card
	DisplayName string `json:"displayName"`
}

func NewCardView(card models.Card) CardView {
	return CardView{Card: card, DisplayName: FormatCardName(&card)}
}
