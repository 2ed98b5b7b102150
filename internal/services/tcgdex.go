package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

const tcgdexBaseURL = "https://api.tcgdex.net/v2"

const (
	tcgdexItemTimeout  = 30 * time.Second
	tcgdexListTimeout  = 120 * time.Second
	tcgdexSetCacheSize = 256
	tcgdexSetCacheTTL  = time.Hour
)

// TCGdexService reads sets and cards from the multi-language TCGdex API.
// No API key is required.
type TCGdexService struct {
	client   *http.Client
	baseURL  string
	limiter  *rate.Limiter
	setCache *expirable.LRU[string, *TCGdexSet]
}

func NewTCGdexService() *TCGdexService {
	cache := expirable.NewLRU[string, *TCGdexSet](tcgdexSetCacheSize, nil, tcgdexSetCacheTTL)
	return &TCGdexService{
		client:   &http.Client{},
		baseURL:  tcgdexBaseURL,
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		setCache: cache,
	}
}

// TCGdexSet is both the brief set from list endpoints and the set detail.
// Only the detail carries Serie, Legal and Cards.
type TCGdexSet struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Logo        string            `json:"logo"`
	Symbol      string            `json:"symbol"`
	ReleaseDate string            `json:"releaseDate"`
	CardCount   *models.CardCount `json:"cardCount"`
	Serie       *models.SerieRef  `json:"serie"`
	Legal       *models.Legal     `json:"legal"`
	Cards       []TCGdexCard      `json:"cards"`
}

// TCGdexCard is a full card, or a brief card (id, localId, name, image) when
// it comes from a set's card list.
type TCGdexCard struct {
	ID             string             `json:"id"`
	Category       string             `json:"category"`
	Illustrator    string             `json:"illustrator"`
	Image          string             `json:"image"`
	LocalID        models.FlexString  `json:"localId"`
	Number         models.FlexString  `json:"number"`
	Name           string             `json:"name"`
	Rarity         string             `json:"rarity"`
	HP             models.FlexString  `json:"hp"`
	Types          []string           `json:"types"`
	EvolveFrom     string             `json:"evolveFrom"`
	Description    string             `json:"description"`
	Stage          string             `json:"stage"`
	Attacks        []models.Attack    `json:"attacks"`
	Weaknesses     []models.TypeValue `json:"weaknesses"`
	Resistances    []models.TypeValue `json:"resistances"`
	Retreat        *int               `json:"retreat"`
	RegulationMark string             `json:"regulationMark"`
	Legal          *models.Legal      `json:"legal"`
	Abilities      []models.Ability   `json:"abilities"`
	Level          models.FlexString  `json:"level"`
	DexID          []int              `json:"dexId"`
	Set            *models.CardSetRef `json:"set"`
	Variants       *models.Variants   `json:"variants"`
}

// IsBrief reports whether the card came from a set listing rather than the
// card endpoint.
func (c *TCGdexCard) IsBrief() bool {
	return c.Category == ""
}

func (s *TCGdexService) get(ctx context.Context, path string, timeout time.Duration, out interface{}) error {
	return fetchJSON(ctx, s.client, s.limiter, catalogRequest{
		service: "tcgdex",
		url:     s.baseURL + path,
		timeout: timeout,
	}, out)
}

// FetchSets lists every set in lang. The entries are brief.
func (s *TCGdexService) FetchSets(ctx context.Context, lang models.Language) ([]*TCGdexSet, error) {
	var sets []*TCGdexSet
	if err := s.get(ctx, fmt.Sprintf("/%s/sets", lang), tcgdexListTimeout, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// FetchSetByID returns the set detail, including its brief card list.
// Details are cached per language for an hour.
func (s *TCGdexService) FetchSetByID(ctx context.Context, setID string, lang models.Language) (*TCGdexSet, error) {
	key := string(lang) + "/" + setID
	if set, ok := s.setCache.Get(key); ok {
		return set, nil
	}

	var set TCGdexSet
	path := fmt.Sprintf("/%s/sets/%s", lang, url.PathEscape(setID))
	if err := s.get(ctx, path, tcgdexItemTimeout, &set); err != nil {
		return nil, err
	}
	s.setCache.Add(key, &set)
	return &set, nil
}

// FetchCardsBySet returns the brief cards of a set. A set without cards is
// reported as ErrSetNotFound.
func (s *TCGdexService) FetchCardsBySet(ctx context.Context, setID string, lang models.Language) ([]TCGdexCard, error) {
	var set TCGdexSet
	path := fmt.Sprintf("/%s/sets/%s", lang, url.PathEscape(setID))
	if err := s.get(ctx, path, tcgdexListTimeout, &set); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("set '%s': %w", setID, ErrSetNotFound)
		}
		return nil, err
	}
	s.setCache.Add(string(lang)+"/"+setID, &set)
	return set.Cards, nil
}

// FetchCardByID returns a full card.
func (s *TCGdexService) FetchCardByID(ctx context.Context, cardID string, lang models.Language) (*TCGdexCard, error) {
	var card TCGdexCard
	path := fmt.Sprintf("/%s/cards/%s", lang, url.PathEscape(cardID))
	if err := s.get(ctx, path, tcgdexItemTimeout, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// ClearCache drops cached set details.
func (s *TCGdexService) ClearCache() {
	s.setCache.Purge()
}
