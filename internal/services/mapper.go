package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

// Image URLs below are built by string concatenation against the TCGdex
// asset layout. They are best-effort: nothing checks that they resolve.

const tcgdexAssetsURL = "https://assets.tcgdex.net"

var (
	assetExtPattern   = regexp.MustCompile(`(?i)\.(webp|png|jpg)$`)
	qualityPattern    = regexp.MustCompile(`(?i)/high|/low$`)
	seriesPrefixRegex = regexp.MustCompile(`^[a-z]+`)
)

// formatTCGdexAssetURL turns a logo or symbol base URL into {base}.{ext}.
func formatTCGdexAssetURL(base, ext string) string {
	if base == "" {
		return ""
	}
	return assetExtPattern.ReplaceAllString(base, "") + "." + ext
}

// formatTCGdexCardImageURL turns a card image base URL into
// {base}/{quality}.{ext}.
func formatTCGdexCardImageURL(base, quality, ext string) string {
	if base == "" {
		return ""
	}
	clean := assetExtPattern.ReplaceAllString(base, "")
	clean = qualityPattern.ReplaceAllString(clean, "")
	return fmt.Sprintf("%s/%s.%s", clean, quality, ext)
}

// forceWebp rewrites .png/.jpg/.jpeg asset URLs to .webp.
func forceWebp(u string) string {
	if u == "" || strings.HasSuffix(u, ".webp") {
		return u
	}
	lower := strings.ToLower(u)
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		if strings.HasSuffix(lower, ext) {
			return u[:len(u)-len(ext)] + ".webp"
		}
	}
	return u
}

func legality(ok bool) string {
	if ok {
		return "Legal"
	}
	return "Illegal"
}

// MapTCGdexSet maps a TCGdex set (brief or detail) to a set document.
func MapTCGdexSet(set *TCGdexSet, lang models.Language) models.Set {
	logo := formatTCGdexAssetURL(set.Logo, "webp")
	symbol := formatTCGdexAssetURL(set.Symbol, "webp")
	if set.Serie != nil && set.Serie.ID != "" && set.ID != "" {
		if logo == "" {
			logo = fmt.Sprintf("%s/%s/%s/%s/logo.webp", tcgdexAssetsURL, lang, set.Serie.ID, set.ID)
		}
		if symbol == "" {
			symbol = fmt.Sprintf("%s/univ/%s/%s/symbol.webp", tcgdexAssetsURL, set.Serie.ID, set.ID)
		}
	}

	out := models.Set{
		APIID:          set.ID,
		Name:           set.Name,
		Code:           set.ID,
		ReleaseDate:    set.ReleaseDate,
		Logo:           logo,
		Symbol:         symbol,
		UnlimitedLegal: true,
		Language:       lang,
	}
	if set.Serie != nil {
		out.Series = set.Serie.Name
	}
	if set.CardCount != nil {
		out.TotalCards = set.CardCount.Total
		if out.TotalCards == 0 {
			out.TotalCards = set.CardCount.Official
		}
		out.PrintedTotal = set.CardCount.Official
	}
	var legal models.Legal
	if set.Legal != nil {
		legal = *set.Legal
	}
	out.Legalities = models.Legalities{
		Standard:  legality(legal.Standard),
		Expanded:  legality(legal.Expanded),
		Unlimited: "Legal",
	}
	out.StandardLegal = legal.Standard
	out.ExpandedLegal = legal.Expanded
	return out
}

// cardImageBase returns the card's image base URL, or builds one from the
// series and set when the API left it out.
func cardImageBase(card *TCGdexCard, set *TCGdexSet, lang models.Language) string {
	if card.Image != "" {
		return card.Image
	}
	localID := string(card.LocalID)
	if card.ID == "" || localID == "" {
		return ""
	}

	var seriesID, setID string
	if set != nil {
		setID = set.ID
		if set.Serie != nil {
			seriesID = set.Serie.ID
		}
	}
	if card.Set != nil {
		if setID == "" {
			setID = card.Set.ID
		}
		if seriesID == "" && card.Set.Serie != nil {
			seriesID = card.Set.Serie.ID
		}
	}
	if setID == "" {
		setID = strings.Split(card.ID, "-")[0]
	}
	if seriesID != "" && setID != "" {
		return fmt.Sprintf("%s/%s/%s/%s/%s", tcgdexAssetsURL, lang, strings.ToLower(seriesID), strings.ToLower(setID), localID)
	}

	// e.g. "SV11W-164" -> series "sv", set "sv11w"
	parts := strings.Split(card.ID, "-")
	if len(parts) < 2 {
		return ""
	}
	prefix := strings.ToLower(parts[0])
	series := seriesPrefixRegex.FindString(prefix)
	if series == "" {
		series = prefix
		if len(series) > 2 {
			series = series[:2]
		}
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", tcgdexAssetsURL, lang, series, prefix, localID)
}

func orStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// MapTCGdexCard maps a TCGdex card into a card document for lang. set is the
// set context (may be nil), setDocID the id of the stored set document and
// english the matching English card used to annotate Japanese cards.
func MapTCGdexCard(card *TCGdexCard, set *TCGdexSet, lang models.Language, setDocID string, english *TCGdexCard) models.Card {
	image := cardImageBase(card, set, lang)

	out := models.Card{
		ID:             card.ID,
		Category:       card.Category,
		Illustrator:    card.Illustrator,
		Image:          image,
		LocalID:        string(card.LocalID),
		Name:           card.Name,
		Rarity:         card.Rarity,
		Types:          orStrings(card.Types),
		EvolveFrom:     card.EvolveFrom,
		Description:    card.Description,
		Stage:          card.Stage,
		Attacks:        card.Attacks,
		Weaknesses:     card.Weaknesses,
		Resistances:    card.Resistances,
		Retreat:        card.Retreat,
		RegulationMark: card.RegulationMark,
		Legal:          card.Legal,
		Abilities:      card.Abilities,
		Level:          string(card.Level),
		DexID:          card.DexID,
		SetID:          setDocID,
		Language:       lang,
		ImageURL:       formatTCGdexCardImageURL(image, "high", "webp"),
		ThumbnailURL:   formatTCGdexCardImageURL(image, "low", "webp"),
	}
	if out.Category == "" {
		out.Category = "Pokemon"
	}
	if out.LocalID == "" {
		out.LocalID = string(card.Number)
	}
	if out.Rarity == "" {
		out.Rarity = "Unknown"
	}
	if hp := card.HP.Int(); hp > 0 {
		out.HP = &hp
	}
	if out.Attacks == nil {
		out.Attacks = []models.Attack{}
	}
	if out.Weaknesses == nil {
		out.Weaknesses = []models.TypeValue{}
	}
	if out.Resistances == nil {
		out.Resistances = []models.TypeValue{}
	}
	if out.Abilities == nil {
		out.Abilities = []models.Ability{}
	}
	if out.DexID == nil {
		out.DexID = []int{}
	}
	if len(out.DexID) > 0 {
		out.NationalDexNumber = out.DexID[0]
	}

	switch {
	case card.Set != nil:
		out.Set = *card.Set
	case set != nil:
		out.Set = models.CardSetRef{
			ID:        set.ID,
			Name:      set.Name,
			Logo:      set.Logo,
			Symbol:    set.Symbol,
			CardCount: set.CardCount,
			Serie:     set.Serie,
		}
	}
	if card.Set != nil && card.Set.ID != "" {
		out.SetAPIID = card.Set.ID
	} else if set != nil {
		out.SetAPIID = set.ID
	}

	if card.Variants != nil {
		out.Variants = *card.Variants
	} else {
		out.Variants = models.DefaultVariants()
	}

	if english != nil {
		out.EnglishName = english.Name
		out.EnglishImageURL = formatTCGdexCardImageURL(english.Image, "high", "webp")
		out.EnglishThumbnailURL = formatTCGdexCardImageURL(english.Image, "low", "webp")
	}
	return out
}

// normalizeReleaseDate turns PokemonTCG.io's "1999/01/09" into "1999-01-09".
func normalizeReleaseDate(date string) string {
	return strings.ReplaceAll(date, "/", "-")
}

func releaseYear(date string) int {
	t, err := time.Parse("2006-01-02", normalizeReleaseDate(date))
	if err != nil {
		return 0
	}
	return t.Year()
}

// MapPokemonTCGSet maps a PokemonTCG.io set into a legacy set document.
func MapPokemonTCGSet(set *PokemonTCGSet) models.Set {
	code := set.PtcgoCode
	if code == "" {
		code = set.ID
	}
	logo := set.Images.Logo
	if logo == "" {
		logo = set.Images.Symbol
	}
	return models.Set{
		APIID:          set.ID,
		Name:           set.Name,
		Code:           code,
		ReleaseDate:    normalizeReleaseDate(set.ReleaseDate),
		Series:         set.Series,
		TotalCards:     set.Total,
		PrintedTotal:   set.PrintedTotal,
		Logo:           logo,
		Symbol:         set.Images.Symbol,
		Legalities:     set.Legalities,
		StandardLegal:  set.Legalities.Standard == "Legal",
		ExpandedLegal:  set.Legalities.Expanded == "Legal",
		UnlimitedLegal: set.Legalities.Unlimited == "Legal",
	}
}

// MapPokemonTCGCard maps a PokemonTCG.io card into a legacy card document.
func MapPokemonTCGCard(card *PokemonTCGCard, setDocID string) models.LegacyCard {
	rarity := strings.ToLower(card.Rarity)
	setCode := card.Set.PtcgoCode
	if setCode == "" {
		setCode = card.Set.ID
	}
	cardType := card.Supertype
	if cardType == "" {
		cardType = "Pokemon"
	}

	out := models.LegacyCard{
		APIID:                  card.ID,
		APISetID:               card.Set.ID,
		SetID:                  setDocID,
		Name:                   card.Name,
		NationalPokedexNumbers: card.NationalPokedexNumbers,
		Set:                    card.Set.Name,
		SetCode:                setCode,
		SetNumber:              card.Number,
		ReleaseYear:            releaseYear(card.Set.ReleaseDate),
		Series:                 card.Set.Series,
		Rarity:                 card.Rarity,
		CardType:               cardType,
		Supertype:              card.Supertype,
		Subtypes:               orStrings(card.Subtypes),
		Types:                  orStrings(card.Types),
		Level:                  card.Level,
		EvolvesFrom:            card.EvolvesFrom,
		EvolvesTo:              orStrings(card.EvolvesTo),
		Rules:                  orStrings(card.Rules),
		RegulationMark:         card.RegulationMark,
		IsHolo:                 strings.Contains(rarity, "holo"),
		IsFullArt:              strings.Contains(rarity, "full art"),
		IsRainbow:              strings.Contains(rarity, "rainbow"),
		Artist:                 card.Artist,
		ImageURL:               card.Images.Large,
		ThumbnailURL:           card.Images.Small,
		Weaknesses:             card.Weaknesses,
		Resistances:            card.Resistances,
		RetreatCost:            orStrings(card.RetreatCost),
		ConvertedRetreatCost:   card.ConvertedRetreatCost,
		FlavorText:             card.FlavorText,
		Legalities:             card.Legalities,
		TCGPlayerPrices:        card.TCGPlayer,
		CardmarketPrices:       card.Cardmarket,
	}
	if out.NationalPokedexNumbers == nil {
		out.NationalPokedexNumbers = []int{}
	}
	if len(card.NationalPokedexNumbers) > 0 {
		out.NationalDexNumber = card.NationalPokedexNumbers[0]
	}
	if out.Rarity == "" {
		out.Rarity = "Unknown"
	}
	if len(card.Subtypes) > 0 {
		out.Stage = card.Subtypes[0]
	} else if card.Supertype == "Pokemon" || card.Supertype == "Pokémon" {
		out.Stage = "Basic"
	}
	if hp := card.HP.Int(); hp > 0 {
		out.HP = &hp
	}
	if out.ImageURL == "" {
		out.ImageURL = card.Images.Small
	}
	if out.ThumbnailURL == "" {
		out.ThumbnailURL = card.Images.Large
	}
	if out.Weaknesses == nil {
		out.Weaknesses = []models.TypeValue{}
	}
	if out.Resistances == nil {
		out.Resistances = []models.TypeValue{}
	}
	if card.AncientTrait != nil {
		out.AncientTrait = &models.Ability{Name: card.AncientTrait.Name, Effect: card.AncientTrait.Text}
	}

	out.Abilities = make([]models.Ability, 0, len(card.Abilities))
	for _, a := range card.Abilities {
		out.Abilities = append(out.Abilities, models.Ability{Type: a.Type, Name: a.Name, Effect: a.Text})
	}
	out.Attacks = make([]models.Attack, 0, len(card.Attacks))
	for _, a := range card.Attacks {
		out.Attacks = append(out.Attacks, models.Attack{Cost: a.Cost, Name: a.Name, Effect: a.Text, Damage: a.Damage})
	}
	return out
}
