package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

// cardVariantPatterns are applied one after another, so earlier patterns win
// when two overlap. Changing the order changes grouping keys.
var cardVariantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Mega\s+`),
	regexp.MustCompile(`(?i)^Light\s+`),
	regexp.MustCompile(`(?i)^Dark\s+`),
	regexp.MustCompile(`(?i)^Shining\s+`),
	regexp.MustCompile(`(?i)^Giovanni's\s+`),
	regexp.MustCompile(`(?i)^Erika's\s+`),
	regexp.MustCompile(`(?i)^Blaine's\s+`),
	regexp.MustCompile(`(?i)^Koga's\s+`),
	regexp.MustCompile(`(?i)^Sabrina's\s+`),
	regexp.MustCompile(`(?i)^Misty's\s+`),
	regexp.MustCompile(`(?i)^Brock's\s+`),
	regexp.MustCompile(`(?i)^Lt\.\s*Surge's\s+`),
	regexp.MustCompile(`(?i)^Cynthia's\s+`),
	regexp.MustCompile(`(?i)\s+EX$`),
	regexp.MustCompile(`(?i)\s+GX$`),
	regexp.MustCompile(`(?i)\s+V$`),
	regexp.MustCompile(`(?i)\s+VMAX$`),
	regexp.MustCompile(`(?i)\s+VSTAR$`),
	regexp.MustCompile(`(?i)\s+Prime$`),
	regexp.MustCompile(`(?i)\s+LV\.?\s*X$`),
	regexp.MustCompile(`(?i)\s+LV\.?\s*\d+$`),
	regexp.MustCompile(`(?i)\s+Break$`),
	regexp.MustCompile(`(?i)\s+Tag Team$`),
	regexp.MustCompile(`(?i)\s+&.*$`),
	regexp.MustCompile(`(?i)\s+\(.*\)$`),
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizePokemonName strips card variant prefixes and suffixes, e.g.
// "Mega Charizard EX" -> "Charizard". A name that normalizes to nothing is
// returned unchanged.
func NormalizePokemonName(name string) string {
	if name == "" {
		return ""
	}
	normalized := name
	for _, p := range cardVariantPatterns {
		normalized = p.ReplaceAllString(normalized, "")
	}
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return name
	}
	return normalized
}

// GeneratePokemonListDocID returns "dex-{n}-{slug}", or "" when either part
// is missing.
func GeneratePokemonListDocID(dex int, name string) string {
	if dex <= 0 || name == "" {
		return ""
	}
	slug := nonAlnumRun.ReplaceAllString(strings.ToLower(NormalizePokemonName(name)), "-")
	return fmt.Sprintf("dex-%d-%s", dex, slug)
}

// defaultSpriteURL is the PokemonDB sprite for the recommended generation.
func defaultSpriteURL(name string, dex int) string {
	return PokemonDBSprites(NormalizePokemonName(name), RecommendedGeneration(dex)).SpriteURL
}

type stringSet struct {
	seen  map[string]struct{}
	items []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *stringSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
	}
}

// GroupPokemonByBase collapses enriched list entries (which may hold several
// card-name variants per dex number) onto the base Pokémon list. Every base
// Pokémon gets exactly one entry, ordered by dex number; variants whose dex
// number is not in base are dropped.
func GroupPokemonByBase(base []models.Pokemon, enriched []models.PokemonListEntry) []models.PokemonListEntry {
	byDex := make(map[int]*models.PokemonListEntry, len(base))
	order := make([]int, 0, len(base))
	for _, p := range base {
		if p.NationalDexNumber <= 0 {
			continue
		}
		if _, ok := byDex[p.NationalDexNumber]; ok {
			continue
		}
		byDex[p.NationalDexNumber] = &models.PokemonListEntry{
			NationalDexNumber: p.NationalDexNumber,
			Name:              p.Name,
			DisplayName:       p.Name,
			Types:             []string{},
			Sets:              []string{},
			CardIDs:           []string{},
			SpriteURL:         p.SpriteURL,
		}
		order = append(order, p.NationalDexNumber)
	}

	variationsByDex := make(map[int][]models.PokemonListEntry)
	for _, e := range enriched {
		if e.NationalDexNumber > 0 {
			variationsByDex[e.NationalDexNumber] = append(variationsByDex[e.NationalDexNumber], e)
		}
	}

	for dex, variations := range variationsByDex {
		entry, ok := byDex[dex]
		if !ok {
			continue
		}
		cardIDs, sets, types := newStringSet(), newStringSet(), newStringSet()
		total := 0
		var bestSprite, bestImage string
		baseName := strings.ToLower(NormalizePokemonName(entry.Name))

		for _, v := range variations {
			count := v.CardCount
			if count == 0 {
				count = len(v.CardIDs)
			}
			total += count
			cardIDs.add(v.CardIDs...)
			sets.add(v.Sets...)
			types.add(v.Types...)

			// Only trust a variation's sprite when it was generated from
			// the base name.
			if bestSprite == "" {
				candidate := v.SpriteURL
				if candidate == "" && v.SpriteURLs != nil {
					candidate = v.SpriteURLs.Normal
					if candidate == "" {
						candidate = v.SpriteURLs.SpriteURL
					}
				}
				if candidate != "" && strings.Contains(strings.ToLower(candidate), baseName) {
					bestSprite = candidate
					bestImage = v.ImageURL
				}
			}
		}

		var bestSpriteURLs *models.SpriteURLs
		for i := range variations {
			if variations[i].SpriteURLs != nil && variations[i].SpriteURLs.Normal != "" {
				bestSpriteURLs = variations[i].SpriteURLs
				break
			}
		}
		if bestSpriteURLs == nil {
			for i := range variations {
				if variations[i].SpriteURLs != nil {
					bestSpriteURLs = variations[i].SpriteURLs
					break
				}
			}
		}
		if bestSpriteURLs != nil {
			copied := *bestSpriteURLs
			entry.SpriteURLs = &copied
		}

		entry.CardCount = total
		entry.CardIDs = cardIDs.items
		entry.Sets = sets.items
		entry.Types = types.items
		if bestSprite != "" {
			entry.SpriteURL = bestSprite
			entry.ImageURL = bestImage
		} else if entry.Name != "" {
			entry.SpriteURL = defaultSpriteURL(entry.Name, dex)
		}
	}

	sort.Ints(order)
	out := make([]models.PokemonListEntry, 0, len(order))
	for _, dex := range order {
		entry := byDex[dex]
		entry.ID = GeneratePokemonListDocID(entry.NationalDexNumber, entry.Name)
		if entry.SpriteURL == "" && entry.Name != "" {
			entry.SpriteURL = defaultSpriteURL(entry.Name, dex)
		}
		out = append(out, *entry)
	}
	return out
}
