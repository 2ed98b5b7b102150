package models

import "fmt"

// Language selects one of the parallel catalog partitions.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageJapanese Language = "ja"
	// LanguageAll is accepted by read paths that span both partitions.
	LanguageAll Language = "all"
)

// Languages lists the concrete partitions in query order.
var Languages = []Language{LanguageEnglish, LanguageJapanese}

// ParseLanguage validates a language code. An empty string means English.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case "":
		return LanguageEnglish, nil
	case LanguageEnglish, LanguageJapanese, LanguageAll:
		return Language(s), nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// Expand returns the concrete partitions a language selects.
func (l Language) Expand() []Language {
	if l == LanguageAll {
		return Languages
	}
	return []Language{l}
}

// SetCollection is the set partition for l, e.g. "set_en".
func SetCollection(l Language) string {
	return "set_" + string(l)
}

// CardCollection is the card partition for l, e.g. "card_ja".
func CardCollection(l Language) string {
	return "card_" + string(l)
}

// Collection names shared by every store backend.
const (
	CollectionPokemon        = "pokemon"
	CollectionPokemonList    = "pokemonList"
	CollectionLegacySets     = "sets"
	CollectionLegacyCards    = "cards"
	CollectionMasterSets     = "masterSets"
	CollectionAssignments    = "assignments"
	CollectionCollectedCards = "collectedCards"
	CollectionHearts         = "hearts"
	CollectionUserCards      = "userCards"
	CollectionBlogPosts      = "blogPosts"
	CollectionUsers          = "users"
	CollectionMetadata       = "metadata"
)
