package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

// Sprite URLs are constructed from naming rules only; none of the CDNs offer
// an existence check, so a URL may 404.

type SpriteSource string

const (
	SpriteSourcePokesprite SpriteSource = "pokesprite"
	SpriteSourcePokemonDB  SpriteSource = "pokemondb"
	SpriteSourcePokeAPI    SpriteSource = "pokeapi"
	// SpriteSourceAuto uses PokemonDB with a PokéSprite fallback.
	SpriteSourceAuto SpriteSource = "auto"
)

const (
	pokemonDBSpritesURL  = "https://img.pokemondb.net/sprites"
	pokespriteURL        = "https://cdn.jsdelivr.net/gh/msikma/pokesprite@master"
	pokeAPISpritesURL    = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon"
	DefaultGeneration    = "sword-shield"
	DefaultGifGeneration = "black-white"
)

var (
	pokemonDBVariantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Mega\s+`),
		regexp.MustCompile(`(?i)^Light\s+`),
		regexp.MustCompile(`(?i)^Dark\s+`),
		regexp.MustCompile(`(?i)^[A-Z][a-z]+'s\s+`),
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

	spriteNameReplacer = strings.NewReplacer("♀", "-f", "♂", "-m", ".", "", "'", "", ":", "", "é", "e")
	whitespaceRun      = regexp.MustCompile(`\s+`)
	nonSlugChars       = regexp.MustCompile(`[^a-z0-9-]`)

	// Names whose CDN file differs from the plain slug.
	spriteNameOverrides = map[string]string{
		"porygon2": "porygon-2",
		"nidoran":  "nidoran-f",
	}

	spriteURLPatterns = map[SpriteSource]*regexp.Regexp{
		SpriteSourcePokesprite: regexp.MustCompile(`^https://cdn\.jsdelivr\.net/gh/msikma/pokesprite@master/pokemon-gen8/.+\.png$`),
		SpriteSourcePokemonDB:  regexp.MustCompile(`^https://img\.pokemondb\.net/sprites/.+/.+/.+\.png$`),
		SpriteSourcePokeAPI:    regexp.MustCompile(`^https://raw\.githubusercontent\.com/PokeAPI/sprites/master/sprites/pokemon/.+`),
	}
)

// SpriteSlug lowercases and hyphenates a Pokémon name the way the sprite
// CDNs name their files, e.g. "Mr. Mime" -> "mr-mime", "Nidoran♀" -> "nidoran-f".
func SpriteSlug(name string) string {
	slug := spriteNameReplacer.Replace(strings.ToLower(name))
	slug = whitespaceRun.ReplaceAllString(slug, "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	if override, ok := spriteNameOverrides[slug]; ok {
		return override
	}
	return slug
}

// pokemonDBName strips card variants before slugging.
func pokemonDBName(name string) string {
	cleaned := name
	for _, p := range pokemonDBVariantPatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	return SpriteSlug(strings.TrimSpace(cleaned))
}

// PokemonDBSpriteURL returns a static sprite. variant is normal, shiny, back
// or back-shiny.
func PokemonDBSpriteURL(name, generation, variant string) string {
	if generation == "" {
		generation = DefaultGeneration
	}
	if variant == "" {
		variant = "normal"
	}
	return fmt.Sprintf("%s/%s/%s/%s.png", pokemonDBSpritesURL, generation, variant, pokemonDBName(name))
}

// PokemonDBGifURL returns an animated sprite.
func PokemonDBGifURL(name, generation, variant string) string {
	if generation == "" {
		generation = DefaultGifGeneration
	}
	if variant == "" {
		variant = "normal"
	}
	return fmt.Sprintf("%s/%s/anim/%s/%s.gif", pokemonDBSpritesURL, generation, variant, pokemonDBName(name))
}

func PokemonDBSprites(name, generation string) models.SpriteURLs {
	if generation == "" {
		generation = DefaultGeneration
	}
	normal := PokemonDBSpriteURL(name, generation, "normal")
	return models.SpriteURLs{
		SpriteURL:  normal,
		Normal:     normal,
		Shiny:      PokemonDBSpriteURL(name, generation, "shiny"),
		Back:       PokemonDBSpriteURL(name, generation, "back"),
		BackShiny:  PokemonDBSpriteURL(name, generation, "back-shiny"),
		Generation: generation,
		Source:     string(SpriteSourcePokemonDB),
	}
}

// PokespriteURL returns a gen 8 sprite. variant is regular, shiny, box or
// inventory.
func PokespriteURL(name, variant string) string {
	slug := SpriteSlug(name)
	var path string
	switch variant {
	case "shiny":
		path = "pokemon-gen8/" + slug + "-shiny.png"
	case "box":
		path = "pokemon-gen8/box/" + slug + ".png"
	case "inventory":
		path = "pokemon-gen8/inventory/" + slug + ".png"
	default:
		path = "pokemon-gen8/" + slug + ".png"
	}
	return pokespriteURL + "/" + path
}

func PokespriteSprites(name string) models.SpriteURLs {
	regular := PokespriteURL(name, "regular")
	return models.SpriteURLs{
		SpriteURL: regular,
		Normal:    regular,
		Shiny:     PokespriteURL(name, "shiny"),
		Box:       PokespriteURL(name, "box"),
		Inventory: PokespriteURL(name, "inventory"),
		Source:    string(SpriteSourcePokesprite),
	}
}

var pokeAPIVariantPaths = map[string]string{
	"official-artwork":       "other/official-artwork/%d.png",
	"official-artwork-shiny": "other/official-artwork/shiny/%d.png",
	"home":                   "other/home/%d.png",
	"home-shiny":             "other/home/shiny/%d.png",
	"dream-world":            "other/dream-world/%d.svg",
	"showdown":               "other/showdown/%d.gif",
	"default":                "%d.png",
	"default-shiny":          "shiny/%d.png",
	"default-back":           "back/%d.png",
	"default-back-shiny":     "back/shiny/%d.png",
	"black-white":            "versions/generation-v/black-white/%d.png",
	"black-white-shiny":      "versions/generation-v/black-white/shiny/%d.png",
	"black-white-animated":   "versions/generation-v/black-white/animated/%d.gif",
	"x-y":                    "versions/generation-vi/x-y/%d.png",
	"x-y-shiny":              "versions/generation-vi/x-y/shiny/%d.png",
	"ultra-sun-moon":         "versions/generation-vii/ultra-sun-ultra-moon/%d.png",
	"ultra-sun-moon-shiny":   "versions/generation-vii/ultra-sun-ultra-moon/shiny/%d.png",
}

// PokeAPISpriteURL returns "" when dex is not a valid dex number. Unknown
// variants fall back to official artwork.
func PokeAPISpriteURL(dex int, variant string) string {
	if dex <= 0 {
		return ""
	}
	path, ok := pokeAPIVariantPaths[variant]
	if !ok {
		path = pokeAPIVariantPaths["official-artwork"]
	}
	return pokeAPISpritesURL + "/" + fmt.Sprintf(path, dex)
}

func PokeAPISprites(dex int) (models.SpriteURLs, error) {
	if dex <= 0 {
		return models.SpriteURLs{}, validationErr("nationalDexNumber", "national dex number is required for PokeAPI sprites")
	}
	artwork := PokeAPISpriteURL(dex, "official-artwork")
	return models.SpriteURLs{
		SpriteURL: artwork,
		Normal:    artwork,
		Shiny:     PokeAPISpriteURL(dex, "official-artwork-shiny"),
		Back:      PokeAPISpriteURL(dex, "default-back"),
		BackShiny: PokeAPISpriteURL(dex, "default-back-shiny"),
		Source:    string(SpriteSourcePokeAPI),
	}, nil
}

// SpritesFor builds the sprite set for a Pokémon from source.
func SpritesFor(source SpriteSource, name string, dex int) (models.SpriteURLs, error) {
	switch source {
	case SpriteSourcePokesprite:
		return PokespriteSprites(name), nil
	case SpriteSourcePokemonDB:
		return PokemonDBSprites(name, RecommendedGeneration(dex)), nil
	case SpriteSourcePokeAPI:
		return PokeAPISprites(dex)
	case SpriteSourceAuto, "":
		sprites := PokemonDBSprites(name, RecommendedGeneration(dex))
		fallback := PokespriteSprites(name)
		sprites.Fallback = fallback.SpriteURL
		sprites.Box = fallback.Box
		sprites.Inventory = fallback.Inventory
		return sprites, nil
	}
	return models.SpriteURLs{}, validationErr("source", "unknown sprite source %q", source)
}

// RecommendedGeneration picks the PokemonDB game whose sprites best cover
// dex: newer Pokémon only exist in newer games.
func RecommendedGeneration(dex int) string {
	switch {
	case dex <= 0:
		return DefaultGeneration
	case dex >= 906:
		return "scarlet-violet"
	case dex >= 810:
		return "sword-shield"
	case dex >= 722:
		return "ultra-sun-ultra-moon"
	case dex >= 650:
		return "x-y"
	case dex >= 494:
		return "black-white"
	default:
		return "diamond-pearl"
	}
}

// ValidateSpriteURLFormat checks url against source's pattern, or against
// every known source when source is empty. It returns the matching source.
func ValidateSpriteURLFormat(url string, source SpriteSource) (SpriteSource, error) {
	if url == "" {
		return "", validationErr("url", "URL is empty")
	}
	if pattern, ok := spriteURLPatterns[source]; ok {
		if !pattern.MatchString(url) {
			return "", validationErr("url", "URL doesn't match %s pattern", source)
		}
		return source, nil
	}
	for _, src := range []SpriteSource{SpriteSourcePokesprite, SpriteSourcePokemonDB, SpriteSourcePokeAPI} {
		if spriteURLPatterns[src].MatchString(url) {
			return src, nil
		}
	}
	return "", validationErr("url", "URL doesn't match any known sprite source pattern")
}

// CleanSpriteURLs drops URLs that do not match the set's source.
func CleanSpriteURLs(s *models.SpriteURLs) *models.SpriteURLs {
	if s == nil {
		return nil
	}
	source := SpriteSource(s.Source)
	keepFrom := func(u string, source SpriteSource) string {
		if u == "" {
			return ""
		}
		if _, err := ValidateSpriteURLFormat(u, source); err != nil {
			return ""
		}
		return u
	}
	keep := func(u string) string { return keepFrom(u, source) }
	cleaned := *s
	cleaned.SpriteURL = keep(s.SpriteURL)
	cleaned.Normal = keep(s.Normal)
	cleaned.Shiny = keep(s.Shiny)
	cleaned.Back = keep(s.Back)
	cleaned.BackShiny = keep(s.BackShiny)
	// Box, inventory and fallback sprites only exist on PokéSprite.
	cleaned.Box = keepFrom(s.Box, SpriteSourcePokesprite)
	cleaned.Inventory = keepFrom(s.Inventory, SpriteSourcePokesprite)
	cleaned.Fallback = keepFrom(s.Fallback, SpriteSourcePokesprite)
	return &cleaned
}
