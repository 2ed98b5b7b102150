package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

// CardCatalog is the multi-language catalog the seeder reads from.
// TCGdexService implements it.
type CardCatalog interface {
	FetchSets(ctx context.Context, lang models.Language) ([]*TCGdexSet, error)
	FetchSetByID(ctx context.Context, setID string, lang models.Language) (*TCGdexSet, error)
	FetchCardsBySet(ctx context.Context, setID string, lang models.Language) ([]TCGdexCard, error)
	FetchCardByID(ctx context.Context, cardID string, lang models.Language) (*TCGdexCard, error)
	ClearCache()
}

// SeedResult summarizes one seed operation.
type SeedResult struct {
	Added             int `json:"added"`
	Updated           int `json:"updated"`
	Skipped           int `json:"skipped,omitempty"`
	Errors            int `json:"errors"`
	Total             int `json:"total"`
	CardCount         int `json:"cardCount,omitempty"`
	DuplicatesRemoved int `json:"duplicatesRemoved,omitempty"`
}

// BatchResult summarizes a multi-set card seed.
type BatchResult struct {
	SetsProcessed int               `json:"setsProcessed"`
	SetsFailed    int               `json:"setsFailed"`
	Added         int               `json:"added"`
	Updated       int               `json:"updated"`
	Skipped       int               `json:"skipped,omitempty"`
	Errors        int               `json:"errors"`
	Failures      map[string]string `json:"failures,omitempty"`
}

func (b *BatchResult) add(r *SeedResult) {
	b.SetsProcessed++
	b.Added += r.Added
	b.Updated += r.Updated
	b.Skipped += r.Skipped
	b.Errors += r.Errors
}

func (b *BatchResult) fail(setID string, err error) {
	b.SetsFailed++
	if b.Failures == nil {
		b.Failures = make(map[string]string)
	}
	b.Failures[setID] = err.Error()
}

// Seeder copies sets and cards from the catalog into the language
// partitions (set_en/set_ja, card_en/card_ja).
type Seeder struct {
	store          store.DocumentStore
	catalog        CardCatalog
	setDelay       time.Duration
	rateLimitDelay time.Duration
	concurrency    int
}

func NewSeeder(st store.DocumentStore, catalog CardCatalog) *Seeder {
	return &Seeder{
		store:          st,
		catalog:        catalog,
		setDelay:       2 * time.Second,
		rateLimitDelay: 10 * time.Second,
		concurrency:    4,
	}
}

// SeedSets upserts every upstream set for lang by apiId. Sets are never
// deleted.
func (s *Seeder) SeedSets(ctx context.Context, lang models.Language) (*SeedResult, error) {
	start := time.Now()
	defer func() {
		metrics.SeedRunDuration.WithLabelValues("sets_" + string(lang)).Observe(time.Since(start).Seconds())
	}()

	log.Printf("Seeder: seeding %s sets", lang)
	collection := models.SetCollection(lang)
	s.catalog.ClearCache()

	apiSets, err := s.catalog.FetchSets(ctx, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s sets: %w", lang, err)
	}

	existing, err := s.setDocIDs(ctx, collection)
	if err != nil {
		return nil, err
	}

	result := &SeedResult{Total: len(apiSets)}
	for _, apiSet := range apiSets {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		full := apiSet
		if detail, err := s.catalog.FetchSetByID(ctx, apiSet.ID, lang); err == nil {
			full = detail
		} else {
			log.Printf("Seeder: using brief data for set %s: %v", apiSet.ID, err)
		}

		set := MapTCGdexSet(full, lang)
		set.Logo = forceWebp(set.Logo)
		set.Symbol = forceWebp(set.Symbol)

		outcome, err := s.upsertSet(ctx, collection, existing, set)
		if err != nil {
			log.Printf("Seeder: error processing set %s: %v", apiSet.ID, err)
			result.Errors++
			metrics.SeedSetsTotal.WithLabelValues(string(lang), "error").Inc()
			continue
		}
		if outcome == "added" {
			result.Added++
		} else {
			result.Updated++
		}
		metrics.SeedSetsTotal.WithLabelValues(string(lang), outcome).Inc()
	}

	log.Printf("Seeder: seeded %s sets: %d added, %d updated, %d errors", lang, result.Added, result.Updated, result.Errors)
	return result, nil
}

// setDocIDs maps apiId to document id for every stored set in collection.
func (s *Seeder) setDocIDs(ctx context.Context, collection string) (map[string]string, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(collection))
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

func (s *Seeder) upsertSet(ctx context.Context, collection string, existing map[string]string, set models.Set) (string, error) {
	if docID, ok := existing[set.APIID]; ok {
		return "updated", s.store.Set(ctx, collection, docID, set)
	}
	docID, err := s.store.Create(ctx, collection, set.APIID, set)
	if errors.Is(err, store.ErrAlreadyExists) {
		existing[set.APIID] = set.APIID
		return "updated", s.store.Set(ctx, collection, set.APIID, set)
	}
	if err != nil {
		return "", err
	}
	existing[set.APIID] = docID
	return "added", nil
}

// findSetDoc resolves the stored set for an upstream set id.
func (s *Seeder) findSetDoc(ctx context.Context, collection, setID string) (*store.Document, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(collection).Where("apiId", store.OpEqual, setID).Take(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("set %s not found in %s: %w", setID, collection, ErrNotFound)
	}
	return &docs[0], nil
}

func cardKey(name, localID string) string {
	return strings.ToLower(name) + "|" + localID
}

// existingCards indexes the stored cards of one set by external id and by
// name|localId.
type existingCards struct {
	byID  map[string]string
	byKey map[string]string
}

func (e *existingCards) lookup(card *models.Card) (string, bool) {
	if docID, ok := e.byID[card.ID]; ok {
		return docID, true
	}
	docID, ok := e.byKey[cardKey(card.Name, card.LocalID)]
	return docID, ok
}

func (e *existingCards) remember(card *models.Card, docID string) {
	if card.ID != "" {
		e.byID[card.ID] = docID
	}
	e.byKey[cardKey(card.Name, card.LocalID)] = docID
}

func (s *Seeder) loadExistingCards(ctx context.Context, collection, setDocID, setID string) (*existingCards, error) {
	bySetDoc, err := s.store.Query(ctx, store.NewQuery(collection).Where("setId", store.OpEqual, setDocID))
	if err != nil {
		return nil, err
	}
	byAPIID, err := s.store.Query(ctx, store.NewQuery(collection).Where("setApiId", store.OpEqual, setID))
	if err != nil {
		return nil, err
	}

	e := &existingCards{byID: make(map[string]string), byKey: make(map[string]string)}
	for _, d := range append(bySetDoc, byAPIID...) {
		id := d.String("id")
		if id == "" {
			id = d.ID
		}
		if _, seen := e.byID[id]; !seen {
			e.byID[id] = d.ID
		}
		key := cardKey(d.String("name"), d.String("localId"))
		if _, seen := e.byKey[key]; !seen {
			e.byKey[key] = d.ID
		}
	}
	return e, nil
}

// SeedCardsForSet upserts every card of one upstream set into the card
// partition for lang and recounts the set. Re-running it against unchanged
// upstream data writes no new documents.
func (s *Seeder) SeedCardsForSet(ctx context.Context, setID string, lang models.Language) (*SeedResult, error) {
	start := time.Now()
	defer func() {
		metrics.SeedRunDuration.WithLabelValues("cards_" + string(lang)).Observe(time.Since(start).Seconds())
	}()

	log.Printf("Seeder: seeding %s cards for set %s", lang, setID)
	cardCollection := models.CardCollection(lang)
	setCollection := models.SetCollection(lang)

	setDoc, err := s.findSetDoc(ctx, setCollection, setID)
	if err != nil {
		return nil, err
	}
	var storedSet models.Set
	if err := setDoc.DataTo(&storedSet); err != nil {
		return nil, err
	}

	dexByName, err := s.pokemonDexIndex(ctx)
	if err != nil {
		return nil, err
	}

	setContext, briefCards, err := s.fetchSetCards(ctx, setID, lang, &storedSet)
	if err != nil {
		return nil, err
	}
	log.Printf("Seeder: found %d cards for set %s", len(briefCards), setID)

	existing, err := s.loadExistingCards(ctx, cardCollection, setDoc.ID, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing cards: %w", err)
	}

	fullCards := s.fetchFullCards(ctx, briefCards, lang)

	result := &SeedResult{Total: len(briefCards)}
	for i := range fullCards {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		card := MapTCGdexCard(&fullCards[i], setContext, lang, setDoc.ID, nil)
		if card.ID == "" {
			result.Errors++
			metrics.SeedCardsTotal.WithLabelValues(string(lang), "error").Inc()
			continue
		}
		if card.NationalDexNumber == 0 {
			card.NationalDexNumber = dexByName.lookup(card.Name)
		}

		outcome, err := s.upsertCard(ctx, cardCollection, existing, &card)
		if err != nil {
			log.Printf("Seeder: error processing card %s: %v", card.ID, err)
			result.Errors++
			metrics.SeedCardsTotal.WithLabelValues(string(lang), "error").Inc()
			continue
		}
		if outcome == "added" {
			result.Added++
		} else {
			result.Updated++
		}
		metrics.SeedCardsTotal.WithLabelValues(string(lang), outcome).Inc()
	}

	count, err := s.store.Count(ctx, store.NewQuery(cardCollection).Where("setApiId", store.OpEqual, setID))
	if err != nil {
		log.Printf("Seeder: could not count cards for set %s: %v", setID, err)
	} else {
		result.CardCount = count
		if err := s.store.Update(ctx, setCollection, setDoc.ID, map[string]interface{}{"cardCount": count}); err != nil {
			log.Printf("Seeder: could not update card count for set %s: %v", setID, err)
		}
	}

	log.Printf("Seeder: seeded %s cards for %s: %d added, %d updated, %d errors", lang, setID, result.Added, result.Updated, result.Errors)
	return result, nil
}

// fetchSetCards returns the set context used for mapping and the set's brief
// cards, falling back to the set detail when the card listing is empty.
func (s *Seeder) fetchSetCards(ctx context.Context, setID string, lang models.Language, stored *models.Set) (*TCGdexSet, []TCGdexCard, error) {
	cards, listErr := s.catalog.FetchCardsBySet(ctx, setID, lang)

	setContext, detailErr := s.catalog.FetchSetByID(ctx, setID, lang)
	if detailErr != nil {
		setContext = &TCGdexSet{ID: setID, Name: stored.Name, Logo: stored.Logo, Symbol: stored.Symbol}
	}
	if len(cards) == 0 && detailErr == nil {
		cards = setContext.Cards
	}
	if len(cards) == 0 {
		if listErr != nil {
			return nil, nil, listErr
		}
		return nil, nil, fmt.Errorf("no cards found for set %s: %w", setID, ErrSetNotFound)
	}
	return setContext, cards, nil
}

// fetchFullCards fetches card details concurrently, keeping input order.
// A card whose detail cannot be fetched keeps its brief data.
func (s *Seeder) fetchFullCards(ctx context.Context, brief []TCGdexCard, lang models.Language) []TCGdexCard {
	full := make([]TCGdexCard, len(brief))
	copy(full, brief)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range brief {
		i := i
		if brief[i].ID == "" {
			continue
		}
		g.Go(func() error {
			card, err := s.catalog.FetchCardByID(gctx, brief[i].ID, lang)
			if err != nil {
				log.Printf("Seeder: could not fetch full details for card %s, using brief data: %v", brief[i].ID, err)
				return nil
			}
			full[i] = *card
			return nil
		})
	}
	_ = g.Wait()
	return full
}

func (s *Seeder) upsertCard(ctx context.Context, collection string, existing *existingCards, card *models.Card) (string, error) {
	if docID, ok := existing.lookup(card); ok {
		if err := s.store.Set(ctx, collection, docID, card); err != nil {
			return "", err
		}
		existing.remember(card, docID)
		return "updated", nil
	}

	docID, err := s.store.Create(ctx, collection, card.ID, card)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Stored under another set; take it over.
		docID = card.ID
		if err := s.store.Set(ctx, collection, docID, card); err != nil {
			return "", err
		}
		existing.remember(card, docID)
		return "updated", nil
	}
	if err != nil {
		return "", err
	}
	existing.remember(card, docID)
	return "added", nil
}

// SeedCardsForSets seeds several sets in order, pacing them to stay under
// upstream rate limits. One failing set does not stop the others.
func (s *Seeder) SeedCardsForSets(ctx context.Context, setIDs []string, lang models.Language) (*BatchResult, error) {
	s.catalog.ClearCache()
	return seedSetBatch(ctx, "Seeder", setIDs, s.setDelay, s.rateLimitDelay, func(ctx context.Context, setID string) (*SeedResult, error) {
		return s.SeedCardsForSet(ctx, setID, lang)
	})
}

// seedSetBatch runs seed for each set in turn, pausing setDelay between sets
// and an extra rateLimitDelay after a rate-limited failure. A failed set is
// recorded and the batch moves on.
func seedSetBatch(ctx context.Context, component string, setIDs []string, setDelay, rateLimitDelay time.Duration, seed func(context.Context, string) (*SeedResult, error)) (*BatchResult, error) {
	batch := &BatchResult{}
	for i, setID := range setIDs {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		log.Printf("%s: [%d/%d] seeding set %s", component, i+1, len(setIDs), setID)

		result, err := seed(ctx, setID)
		if err != nil {
			log.Printf("%s: set %s failed: %v", component, setID, err)
			batch.fail(setID, err)
			if isRateLimited(err) {
				log.Printf("%s: rate limited, waiting %s", component, rateLimitDelay)
				if err := sleepCtx(ctx, rateLimitDelay); err != nil {
					return batch, err
				}
			}
		} else {
			batch.add(result)
		}

		if i < len(setIDs)-1 {
			if err := sleepCtx(ctx, setDelay); err != nil {
				return batch, err
			}
		}
	}
	log.Printf("%s: batch complete: %d sets, %d failed, %d added, %d updated, %d skipped", component, batch.SetsProcessed, batch.SetsFailed, batch.Added, batch.Updated, batch.Skipped)
	return batch, nil
}

// SeedAllCards seeds the cards of every stored set for lang.
func (s *Seeder) SeedAllCards(ctx context.Context, lang models.Language) (*BatchResult, error) {
	sets, err := queryAs[models.Set](ctx, s.store, store.NewQuery(models.SetCollection(lang)).Order("apiId", false))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(sets))
	for _, set := range sets {
		if set.APIID != "" {
			ids = append(ids, set.APIID)
		}
	}
	return s.SeedCardsForSets(ctx, ids, lang)
}

func isRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

// dexIndex maps lowercase Pokémon names (English, Japanese and their
// normalized forms) to dex numbers.
type dexIndex struct {
	byName map[string]int
	names  []string
}

func (s *Seeder) pokemonDexIndex(ctx context.Context) (*dexIndex, error) {
	pokemon, err := queryAs[models.Pokemon](ctx, s.store, store.NewQuery(models.CollectionPokemon))
	if err != nil {
		return nil, fmt.Errorf("failed to load pokemon: %w", err)
	}
	return newDexIndex(pokemon), nil
}

func newDexIndex(pokemon []models.Pokemon) *dexIndex {
	idx := &dexIndex{byName: make(map[string]int)}
	add := func(name string, dex int) {
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := idx.byName[key]; !ok {
			idx.byName[key] = dex
		}
		if normalized := strings.ToLower(NormalizePokemonName(name)); normalized != "" {
			if _, ok := idx.byName[normalized]; !ok {
				idx.byName[normalized] = dex
			}
		}
	}
	for _, p := range pokemon {
		add(p.Name, p.NationalDexNumber)
		add(p.NameJa, p.NationalDexNumber)
	}
	for name := range idx.byName {
		idx.names = append(idx.names, name)
	}
	sort.Strings(idx.names)
	return idx
}

// lookup matches a card name exactly after normalization, then by substring
// in either direction. It returns 0 when nothing matches.
func (idx *dexIndex) lookup(cardName string) int {
	if cardName == "" {
		return 0
	}
	normalized := strings.ToLower(NormalizePokemonName(cardName))
	if dex, ok := idx.byName[normalized]; ok {
		return dex
	}
	for _, name := range idx.names {
		if strings.Contains(normalized, name) || strings.Contains(name, normalized) {
			return idx.byName[name]
		}
	}
	return 0
}
