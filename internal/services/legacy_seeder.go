package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

// LegacyCatalog is the PokemonTCG.io surface the legacy seeder needs.
// PokemonTCGService implements it.
type LegacyCatalog interface {
	FetchSets(ctx context.Context) ([]PokemonTCGSet, error)
	FetchSetByID(ctx context.Context, setID string) (*PokemonTCGSet, error)
	FetchAllCardsBySet(ctx context.Context, setID string) ([]PokemonTCGCard, error)
	FetchMetadata(ctx context.Context, name string) ([]string, error)
}

// PopularSetIDs are the sets seeded by SeedPopularSets.
var PopularSetIDs = []string{"base1", "base2", "base3", "base4", "base5", "base6"}

const (
	legacyVerifyTimeout = 30 * time.Second
	legacyWriteEvery    = 10
)

// MetadataResult reports how many values each metadata list stored.
type MetadataResult struct {
	Counts   map[string]int    `json:"counts"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LegacySeeder fills the legacy "sets" and "cards" collections from
// PokemonTCG.io. Unlike Seeder it never overwrites stored cards; it only
// adds what is missing.
type LegacySeeder struct {
	store          store.DocumentStore
	catalog        LegacyCatalog
	setDelay       time.Duration
	rateLimitDelay time.Duration
	setPause       time.Duration
	writePause     time.Duration
}

func NewLegacySeeder(st store.DocumentStore, catalog LegacyCatalog) *LegacySeeder {
	return &LegacySeeder{
		store:          st,
		catalog:        catalog,
		setDelay:       2 * time.Second,
		rateLimitDelay: 10 * time.Second,
		setPause:       50 * time.Millisecond,
		writePause:     100 * time.Millisecond,
	}
}

// SeedSetsFromAPI adds every upstream set that is not stored yet.
func (s *LegacySeeder) SeedSetsFromAPI(ctx context.Context) (*SeedResult, error) {
	start := time.Now()
	defer func() {
		metrics.SeedRunDuration.WithLabelValues("legacy_sets").Observe(time.Since(start).Seconds())
	}()

	sets, err := s.catalog.FetchSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sets: %w", err)
	}
	existing, err := s.setDocIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &SeedResult{Total: len(sets)}
	for i := range sets {
		if _, ok := existing[sets[i].ID]; ok {
			result.Skipped++
			continue
		}
		docID, err := s.store.Create(ctx, models.CollectionLegacySets, "", MapPokemonTCGSet(&sets[i]))
		if err != nil {
			log.Printf("LegacySeeder: failed to add set %s: %v", sets[i].ID, err)
			result.Errors++
			continue
		}
		existing[sets[i].ID] = docID
		result.Added++
		metrics.SeedSetsTotal.WithLabelValues("legacy", "added").Inc()

		if err := sleepCtx(ctx, s.setPause); err != nil {
			return result, err
		}
	}
	log.Printf("LegacySeeder: sets done: %d added, %d skipped, %d errors", result.Added, result.Skipped, result.Errors)
	return result, nil
}

func (s *LegacySeeder) setDocIDs(ctx context.Context) (map[string]string, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(models.CollectionLegacySets))
	if err != nil {
		return nil, fmt.Errorf("failed to load existing sets: %w", err)
	}
	ids := make(map[string]string, len(docs))
	for _, d := range docs {
		if apiID := d.String("apiId"); apiID != "" {
			ids[apiID] = d.ID
		}
	}
	return ids, nil
}

// findSet resolves a stored set by apiId, falling back to its code.
func (s *LegacySeeder) findSet(ctx context.Context, setID string) (*store.Document, error) {
	for _, field := range []string{"apiId", "code"} {
		q := store.NewQuery(models.CollectionLegacySets).Where(field, store.OpEqual, setID).Take(1)
		docs, err := s.store.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			return &docs[0], nil
		}
	}
	return nil, fmt.Errorf("set '%s' not found in database: %w", setID, ErrNotFound)
}

// verifySet checks the set still exists upstream. A slow API is not a
// reason to skip the set, so timeouts only log.
func (s *LegacySeeder) verifySet(ctx context.Context, apiSetID string) error {
	vctx, cancel := context.WithTimeout(ctx, legacyVerifyTimeout)
	defer cancel()

	_, err := s.catalog.FetchSetByID(vctx, apiSetID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("LegacySeeder: verification of set %s timed out, continuing", apiSetID)
		return nil
	case isNotFound(err):
		return fmt.Errorf("set '%s' not found in Pokemon TCG API: %w", apiSetID, ErrNotFound)
	default:
		return fmt.Errorf("failed to verify set '%s': %w", apiSetID, err)
	}
}

func legacyCardKey(apiID, name, number string) string {
	if apiID != "" {
		return apiID
	}
	return cardKey(name, number)
}

// storedLegacyCards remembers stored cards by external id and by
// name|number; a fetched card matching either is already stored.
type storedLegacyCards struct {
	byAPIID map[string]bool
	byName  map[string]bool
}

func (c *storedLegacyCards) has(card *models.LegacyCard) bool {
	return (card.APIID != "" && c.byAPIID[card.APIID]) || c.byName[cardKey(card.Name, card.SetNumber)]
}

func (c *storedLegacyCards) remember(apiID, name, number string) {
	if apiID != "" {
		c.byAPIID[apiID] = true
	}
	c.byName[cardKey(name, number)] = true
}

// dedupeStoredCards deletes all but the first stored card per key and
// indexes the survivors.
func (s *LegacySeeder) dedupeStoredCards(ctx context.Context, apiSetID string) (*storedLegacyCards, int, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(models.CollectionLegacyCards).Where("apiSetId", store.OpEqual, apiSetID))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load existing cards: %w", err)
	}

	stored := &storedLegacyCards{byAPIID: make(map[string]bool), byName: make(map[string]bool)}
	seen := make(map[string]bool, len(docs))
	removed := 0
	for _, d := range docs {
		apiID, name, number := d.String("apiId"), d.String("name"), d.String("setNumber")
		key := legacyCardKey(apiID, name, number)
		if !seen[key] {
			seen[key] = true
			stored.remember(apiID, name, number)
			continue
		}
		if err := s.store.Delete(ctx, models.CollectionLegacyCards, d.ID); err != nil {
			log.Printf("LegacySeeder: failed to delete duplicate card %s: %v", d.ID, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("LegacySeeder: removed %d duplicate cards from %s", removed, apiSetID)
	}
	return stored, removed, nil
}

// SeedCardsFromSet adds the cards of one set that are not stored yet.
// setID may be the set's apiId or its code.
func (s *LegacySeeder) SeedCardsFromSet(ctx context.Context, setID string) (*SeedResult, error) {
	setDoc, err := s.findSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	apiSetID := setDoc.String("apiId")
	if apiSetID == "" {
		apiSetID = setID
	}
	if err := s.verifySet(ctx, apiSetID); err != nil {
		return nil, err
	}

	cards, err := s.catalog.FetchAllCardsBySet(ctx, apiSetID)
	if err != nil {
		return nil, err
	}
	result := &SeedResult{Total: len(cards)}
	if len(cards) == 0 {
		log.Printf("LegacySeeder: no cards returned for set %s", apiSetID)
		return result, nil
	}

	stored, removed, err := s.dedupeStoredCards(ctx, apiSetID)
	if err != nil {
		return nil, err
	}
	result.DuplicatesRemoved = removed

	for i := range cards {
		card := MapPokemonTCGCard(&cards[i], setDoc.ID)
		if stored.has(&card) {
			result.Skipped++
			continue
		}
		if _, err := s.store.Create(ctx, models.CollectionLegacyCards, "", card); err != nil {
			log.Printf("LegacySeeder: failed to add card %s: %v", card.APIID, err)
			result.Errors++
			metrics.SeedCardsTotal.WithLabelValues("legacy", "error").Inc()
			continue
		}
		stored.remember(card.APIID, card.Name, card.SetNumber)
		result.Added++
		metrics.SeedCardsTotal.WithLabelValues("legacy", "added").Inc()

		if result.Added%legacyWriteEvery == 0 {
			if err := sleepCtx(ctx, s.writePause); err != nil {
				return result, err
			}
		}
	}

	count, err := s.recountSet(ctx, setDoc.ID, apiSetID)
	if err != nil {
		log.Printf("LegacySeeder: failed to update card count for %s: %v", apiSetID, err)
	}
	result.CardCount = count
	log.Printf("LegacySeeder: set %s done: %d added, %d skipped, %d duplicates removed, %d errors",
		apiSetID, result.Added, result.Skipped, result.DuplicatesRemoved, result.Errors)
	return result, nil
}

func (s *LegacySeeder) recountSet(ctx context.Context, setDocID, apiSetID string) (int, error) {
	count, err := s.store.Count(ctx, store.NewQuery(models.CollectionLegacyCards).Where("apiSetId", store.OpEqual, apiSetID))
	if err != nil {
		return 0, err
	}
	return count, s.store.Update(ctx, models.CollectionLegacySets, setDocID, map[string]interface{}{
		"fetchedCardsCount": count,
	})
}

// SeedCardsFromSets seeds each set in turn; a failed set does not stop
// the batch.
func (s *LegacySeeder) SeedCardsFromSets(ctx context.Context, setIDs []string) (*BatchResult, error) {
	return seedSetBatch(ctx, "LegacySeeder", setIDs, s.setDelay, s.rateLimitDelay, s.SeedCardsFromSet)
}

// SeedPopularSets seeds the base-era sets, loading the set list first when
// nothing is stored.
func (s *LegacySeeder) SeedPopularSets(ctx context.Context) (*BatchResult, error) {
	count, err := s.store.Count(ctx, store.NewQuery(models.CollectionLegacySets))
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if _, err := s.SeedSetsFromAPI(ctx); err != nil {
			return nil, err
		}
	}
	return s.SeedCardsFromSets(ctx, PopularSetIDs)
}

// SeedAllCards refreshes the set list and then seeds every stored set.
func (s *LegacySeeder) SeedAllCards(ctx context.Context) (*BatchResult, error) {
	if _, err := s.SeedSetsFromAPI(ctx); err != nil {
		return nil, err
	}
	ids, err := s.setDocIDs(ctx)
	if err != nil {
		return nil, err
	}
	setIDs := make([]string, 0, len(ids))
	for apiID := range ids {
		setIDs = append(setIDs, apiID)
	}
	sort.Strings(setIDs)
	return s.SeedCardsFromSets(ctx, setIDs)
}

// UpdateAllSetCardCounts recomputes fetchedCardsCount for every stored set.
func (s *LegacySeeder) UpdateAllSetCardCounts(ctx context.Context) (*SeedResult, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(models.CollectionLegacySets))
	if err != nil {
		return nil, err
	}
	result := &SeedResult{Total: len(docs)}
	for _, d := range docs {
		apiID := d.String("apiId")
		if apiID == "" {
			result.Skipped++
			continue
		}
		count, err := s.recountSet(ctx, d.ID, apiID)
		if err != nil {
			log.Printf("LegacySeeder: failed to recount %s: %v", apiID, err)
			result.Errors++
			continue
		}
		if d.Int("fetchedCardsCount") == count {
			result.Skipped++
			continue
		}
		result.Updated++
	}
	return result, nil
}

// SeedMetadata stores each metadata list under metadata/{name}. One list
// failing does not stop the others.
func (s *LegacySeeder) SeedMetadata(ctx context.Context) (*MetadataResult, error) {
	result := &MetadataResult{Counts: make(map[string]int)}
	for _, name := range MetadataKinds {
		values, err := s.catalog.FetchMetadata(ctx, name)
		if err == nil {
			err = s.store.Set(ctx, models.CollectionMetadata, name, models.Metadata{Data: values})
		}
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.Printf("LegacySeeder: failed to seed %s: %v", name, err)
			if result.Failures == nil {
				result.Failures = make(map[string]string)
			}
			result.Failures[name] = err.Error()
			continue
		}
		result.Counts[name] = len(values)
	}
	return result, nil
}
