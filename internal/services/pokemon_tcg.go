package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
)

const pokemonTCGBaseURL = "https://api.pokemontcg.io/v2"

const (
	pokemonTCGCardTimeout     = 30 * time.Second
	pokemonTCGSetTimeout      = 60 * time.Second
	pokemonTCGPageTimeout     = 90 * time.Second
	pokemonTCGMetadataTimeout = 30 * time.Second

	// The API allows up to 250 per page; smaller pages time out less often.
	pokemonTCGPageSize    = 50
	pokemonTCGPageRetries = 3
	metadataRetries       = 2
)

// PokemonTCGService reads the English-only PokemonTCG.io API that backs the
// legacy sets and cards collections.
type PokemonTCGService struct {
	client        *http.Client
	apiKey        string
	baseURL       string
	pageLimiter   *rate.Limiter
	retryDelay    time.Duration
	metadataCache *lru.Cache[string, []string]
}

func NewPokemonTCGService(apiKey string) *PokemonTCGService {
	cache, _ := lru.New[string, []string](8)
	return &PokemonTCGService{
		client:        &http.Client{},
		apiKey:        apiKey,
		baseURL:       pokemonTCGBaseURL,
		pageLimiter:   rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		retryDelay:    time.Second,
		metadataCache: cache,
	}
}

type PokemonTCGSetImages struct {
	Symbol string `json:"symbol"`
	Logo   string `json:"logo"`
}

type PokemonTCGSet struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Series       string              `json:"series"`
	PrintedTotal int                 `json:"printedTotal"`
	Total        int                 `json:"total"`
	Legalities   models.Legalities   `json:"legalities"`
	PtcgoCode    string              `json:"ptcgoCode"`
	ReleaseDate  string              `json:"releaseDate"`
	UpdatedAt    string              `json:"updatedAt"`
	Images       PokemonTCGSetImages `json:"images"`
}

type PokemonTCGAttack struct {
	Name                string            `json:"name"`
	Cost                []string          `json:"cost"`
	ConvertedEnergyCost int               `json:"convertedEnergyCost"`
	Damage              models.FlexString `json:"damage"`
	Text                string            `json:"text"`
}

type PokemonTCGAbility struct {
	Name string `json:"name"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type PokemonTCGCard struct {
	ID                     string                 `json:"id"`
	Name                   string                 `json:"name"`
	Supertype              string                 `json:"supertype"`
	Subtypes               []string               `json:"subtypes"`
	Level                  string                 `json:"level"`
	HP                     models.FlexString      `json:"hp"`
	Types                  []string               `json:"types"`
	EvolvesFrom            string                 `json:"evolvesFrom"`
	EvolvesTo              []string               `json:"evolvesTo"`
	Rules                  []string               `json:"rules"`
	AncientTrait           *PokemonTCGAbility     `json:"ancientTrait"`
	Abilities              []PokemonTCGAbility    `json:"abilities"`
	Attacks                []PokemonTCGAttack     `json:"attacks"`
	Weaknesses             []models.TypeValue     `json:"weaknesses"`
	Resistances            []models.TypeValue     `json:"resistances"`
	RetreatCost            []string               `json:"retreatCost"`
	ConvertedRetreatCost   int                    `json:"convertedRetreatCost"`
	Set                    PokemonTCGSet          `json:"set"`
	Number                 string                 `json:"number"`
	Artist                 string                 `json:"artist"`
	Rarity                 string                 `json:"rarity"`
	FlavorText             string                 `json:"flavorText"`
	NationalPokedexNumbers []int                  `json:"nationalPokedexNumbers"`
	Legalities             models.Legalities      `json:"legalities"`
	RegulationMark         string                 `json:"regulationMark"`
	Images                 PokemonTCGCardImages   `json:"images"`
	TCGPlayer              map[string]interface{} `json:"tcgplayer"`
	Cardmarket             map[string]interface{} `json:"cardmarket"`
}

type PokemonTCGCardImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// CardPage is one page of a card search.
type CardPage struct {
	Data       []PokemonTCGCard `json:"data"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	Count      int              `json:"count"`
	TotalCount int              `json:"totalCount"`
}

func (s *PokemonTCGService) get(ctx context.Context, path string, timeout time.Duration, out interface{}) error {
	header := http.Header{}
	if s.apiKey != "" {
		header.Set("X-Api-Key", s.apiKey)
	}
	return fetchJSON(ctx, s.client, nil, catalogRequest{
		service: "pokemontcg",
		url:     s.baseURL + path,
		timeout: timeout,
		header:  header,
	}, out)
}

func (s *PokemonTCGService) FetchSets(ctx context.Context) ([]PokemonTCGSet, error) {
	var resp struct {
		Data []PokemonTCGSet `json:"data"`
	}
	if err := s.get(ctx, "/sets", pokemonTCGSetTimeout, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *PokemonTCGService) FetchSetByID(ctx context.Context, setID string) (*PokemonTCGSet, error) {
	var resp struct {
		Data PokemonTCGSet `json:"data"`
	}
	if err := s.get(ctx, "/sets/"+url.PathEscape(setID), pokemonTCGSetTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (s *PokemonTCGService) FetchCardByID(ctx context.Context, cardID string) (*PokemonTCGCard, error) {
	var resp struct {
		Data PokemonTCGCard `json:"data"`
	}
	if err := s.get(ctx, "/cards/"+url.PathEscape(cardID), pokemonTCGCardTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// SearchCards runs a Lucene-style card query such as `name:char*`.
func (s *PokemonTCGService) SearchCards(ctx context.Context, query string, page, pageSize int) (*CardPage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", fmt.Sprint(page))
	params.Set("pageSize", fmt.Sprint(pageSize))

	var resp CardPage
	if err := s.get(ctx, "/cards?"+params.Encode(), pokemonTCGPageTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchCardsBySet returns one page of a set's cards. A 404 on the first page
// is ErrSetNotFound; on a later page it means there are no more pages.
func (s *PokemonTCGService) FetchCardsBySet(ctx context.Context, setID string, page, pageSize int) (*CardPage, error) {
	resp, err := s.SearchCards(ctx, "set.id:"+setID, page, pageSize)
	if err != nil && isNotFound(err) {
		if page == 1 {
			return nil, fmt.Errorf("set '%s': %w", setID, ErrSetNotFound)
		}
		return nil, errNoMorePages
	}
	return resp, err
}

// FetchAllCardsBySet walks every page of a set. Each page is retried up to
// three times with a linear backoff; not-found answers are never retried.
func (s *PokemonTCGService) FetchAllCardsBySet(ctx context.Context, setID string) ([]PokemonTCGCard, error) {
	var all []PokemonTCGCard
	totalCount := 0

	for page := 1; ; page++ {
		if err := s.pageLimiter.Wait(ctx); err != nil {
			return nil, requestErr("pokemontcg", err)
		}

		resp, err := s.fetchPageWithRetry(ctx, setID, page)
		if errors.Is(err, errNoMorePages) {
			log.Printf("PokemonTCG: page %d of set %s returned 404, treating as no more pages", page, setID)
			break
		}
		if err != nil {
			return nil, err
		}

		if totalCount == 0 && resp.TotalCount > 0 {
			totalCount = resp.TotalCount
			log.Printf("PokemonTCG: found %d total cards in set %s", totalCount, setID)
		}
		if len(resp.Data) == 0 {
			break
		}
		all = append(all, resp.Data...)

		if totalCount > 0 && len(all) >= totalCount {
			break
		}
		if resp.Count < resp.PageSize || resp.Count == 0 {
			break
		}
	}

	log.Printf("PokemonTCG: fetched %d cards from set %s", len(all), setID)
	return all, nil
}

func (s *PokemonTCGService) fetchPageWithRetry(ctx context.Context, setID string, page int) (*CardPage, error) {
	var lastErr error
	for attempt := 1; attempt <= pokemonTCGPageRetries; attempt++ {
		resp, err := s.FetchCardsBySet(ctx, setID, page, pokemonTCGPageSize)
		if err == nil {
			return resp, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt < pokemonTCGPageRetries {
			metrics.CatalogRetriesTotal.WithLabelValues("pokemontcg").Inc()
			log.Printf("PokemonTCG: API slow, retrying page %d (%d/%d): %v", page, attempt, pokemonTCGPageRetries, err)
			if err := sleepCtx(ctx, s.retryDelay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}
	if page == 1 {
		return nil, fmt.Errorf("set '%s' could not be fetched: %w", setID, lastErr)
	}
	return nil, lastErr
}

// MetadataKinds are the metadata lists the API serves.
var MetadataKinds = []string{"types", "subtypes", "supertypes", "rarities"}

// FetchMetadata returns one of MetadataKinds. Only timeouts are retried;
// the list endpoints are slow rather than flaky.
func (s *PokemonTCGService) FetchMetadata(ctx context.Context, name string) ([]string, error) {
	known := false
	for _, kind := range MetadataKinds {
		known = known || kind == name
	}
	if !known {
		return nil, validationErr("name", "unknown metadata list %q", name)
	}
	if cached, ok := s.metadataCache.Get(name); ok {
		return cached, nil
	}

	var resp struct {
		Data []string `json:"data"`
	}
	var err error
	for attempt := 0; attempt <= metadataRetries; attempt++ {
		err = s.get(ctx, "/"+name, pokemonTCGMetadataTimeout, &resp)
		if err == nil || !errors.Is(err, ErrTimeout) {
			break
		}
		if attempt < metadataRetries {
			log.Printf("PokemonTCG: %s timed out, retrying (%d attempts left)", name, metadataRetries-attempt)
			if err := sleepCtx(ctx, s.retryDelay); err != nil {
				return nil, err
			}
		}
	}
	if err != nil {
		return nil, err
	}
	s.metadataCache.Add(name, resp.Data)
	return resp.Data, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
