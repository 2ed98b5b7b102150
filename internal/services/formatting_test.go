package services

import (
	"testing"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

func TestFormatSetName(t *testing.T) {
	tests := []struct {
		name string
		set  models.Set
		want string
	}{
		{"english set", models.Set{Name: "Base Set", Language: models.LanguageEnglish}, "Base Set"},
		{"japanese with english", models.Set{Name: "拡張パック", EnglishName: "Expansion Pack", Language: models.LanguageJapanese}, "Expansion Pack (拡張パック)"},
		{"japanese without english", models.Set{Name: "拡張パック", Language: models.LanguageJapanese}, "拡張パック"},
		{"same names", models.Set{Name: "VSTAR Universe", EnglishName: "VSTAR Universe", Language: models.LanguageJapanese}, "VSTAR Universe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSetName(&tt.set); got != tt.want {
				t.Errorf("FormatSetName(%q) = %q, want %q", tt.set.Name, got, tt.want)
			}
		})
	}
}

func TestFormatCardName(t *testing.T) {
	tests := []struct {
		card models.Card
		want string
	}{
		{models.Card{Name: "Pikachu", Language: models.LanguageEnglish}, "Pikachu"},
		{models.Card{Name: "ピカチュウ", EnglishName: "Pikachu", Language: models.LanguageJapanese}, "ピカチュウ (Pikachu)"},
		{models.Card{Name: "ピカチュウ", Language: models.LanguageJapanese}, "ピカチュウ"},
	}
	for _, tt := range tests {
		t.Run(tt.card.Name, func(t *testing.T) {
			if got := FormatCardName(&tt.card); got != tt.want {
				t.Errorf("FormatCardName(%q) = %q, want %q", tt.card.Name, got, tt.want)
			}
		})
	}
}

func TestSetLogoURL(t *testing.T) {
	tests := []struct {
		name string
		set  models.Set
		want string
	}{
		{"english logo", models.Set{Logo: "logo.webp"}, "logo.webp"},
		{"english backup", models.Set{Logo: "logo.webp", BackupLogoURL: "backup.png"}, "backup.png"},
		{"japanese skips logo", models.Set{Logo: "logo.webp", Language: models.LanguageJapanese}, ""},
		{"japanese backup", models.Set{Logo: "logo.webp", BackupLogoURL: "backup.png", Language: models.LanguageJapanese}, "backup.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SetLogoURL(&tt.set); got != tt.want {
				t.Errorf("SetLogoURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
