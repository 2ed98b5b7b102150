package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

const defaultCardCountTTL = 5 * time.Minute

type cardCountEntry struct {
	counts    map[int]int
	fetchedAt time.Time
}

// CardCountCache holds dex -> card count maps per language selector.
type CardCountCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[models.Language]cardCountEntry
}

func NewCardCountCache(ttl time.Duration) *CardCountCache {
	if ttl <= 0 {
		ttl = defaultCardCountTTL
	}
	return &CardCountCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[models.Language]cardCountEntry),
	}
}

// Get returns the cached counts for lang while they are younger than the TTL.
func (c *CardCountCache) Get(lang models.Language) (map[int]int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[lang]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.counts, true
}

// stale returns whatever is cached for lang, regardless of age.
func (c *CardCountCache) stale(lang models.Language) (map[int]int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[lang]
	return e.counts, ok
}

func (c *CardCountCache) Set(lang models.Language, counts map[int]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[lang] = cardCountEntry{counts: counts, fetchedAt: c.now()}
}

// Invalidate drops the entry for lang, or every entry when lang is empty.
func (c *CardCountCache) Invalidate(lang models.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lang == "" {
		c.entries = make(map[models.Language]cardCountEntry)
		return
	}
	delete(c.entries, lang)
}

// Age reports how old the entry for lang is.
func (c *CardCountCache) Age(lang models.Language) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[lang]
	if !ok {
		return 0, false
	}
	return c.now().Sub(e.fetchedAt), true
}

// CardCountService counts cards per national dex number across the card
// partitions.
type CardCountService struct {
	store store.DocumentStore
	cache *CardCountCache
}

func NewCardCountService(st store.DocumentStore, cache *CardCountCache) *CardCountService {
	if cache == nil {
		cache = NewCardCountCache(defaultCardCountTTL)
	}
	return &CardCountService{store: st, cache: cache}
}

func (s *CardCountService) Cache() *CardCountCache {
	return s.cache
}

// GetCardCountsByDexNumber returns dex -> number of cards for lang (en, ja or
// all). When the rescan fails, the last known counts are served instead, or
// an empty map when there are none.
func (s *CardCountService) GetCardCountsByDexNumber(ctx context.Context, lang models.Language, force bool) (map[int]int, error) {
	if !force {
		if counts, ok := s.cache.Get(lang); ok {
			metrics.CardCountCacheHits.Inc()
			return counts, nil
		}
	}
	metrics.CardCountCacheMisses.Inc()

	counts, err := s.scan(ctx, lang)
	if err != nil {
		log.Printf("CardCounts: refresh for %s failed: %v", lang, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.CardCountCacheStaleServes.Inc()
		if stale, ok := s.cache.stale(lang); ok {
			return stale, nil
		}
		return map[int]int{}, nil
	}

	s.cache.Set(lang, counts)
	return counts, nil
}

func (s *CardCountService) scan(ctx context.Context, lang models.Language) (map[int]int, error) {
	counts := make(map[int]int)
	for _, l := range lang.Expand() {
		docs, err := s.store.Query(ctx, store.NewQuery(models.CardCollection(l)))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", models.CardCollection(l), err)
		}
		for i := range docs {
			if dex := docs[i].Int("nationalDexNumber"); dex > 0 {
				counts[dex]++
			}
		}
	}
	return counts, nil
}
