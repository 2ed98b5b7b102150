package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

// CatalogService answers read queries over the Pokémon, set and card
// collections.
type CatalogService struct {
	store store.DocumentStore
}

func NewCatalogService(st store.DocumentStore) *CatalogService {
	return &CatalogService{store: st}
}

func pokemonDocID(dex int) string {
	return strconv.Itoa(dex)
}

// AddPokemon stores a species under its dex number.
func (s *CatalogService) AddPokemon(ctx context.Context, p models.Pokemon) (*models.Pokemon, error) {
	if p.NationalDexNumber <= 0 {
		return nil, validationErr("nationalDexNumber", "must be positive")
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, validationErr("name", "is required")
	}
	p.ID = ""
	if _, err := s.store.Create(ctx, models.CollectionPokemon, pokemonDocID(p.NationalDexNumber), p); err != nil {
		return nil, err
	}
	return s.GetPokemon(ctx, p.NationalDexNumber)
}

// UpdatePokemon merges fields into a species document.
func (s *CatalogService) UpdatePokemon(ctx context.Context, dex int, fields map[string]interface{}) (*models.Pokemon, error) {
	delete(fields, "nationalDexNumber")
	delete(fields, "id")
	docID, err := s.pokemonDocID(ctx, dex)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, models.CollectionPokemon, docID, fields); err != nil {
		return nil, err
	}
	return s.GetPokemon(ctx, dex)
}

func (s *CatalogService) DeletePokemon(ctx context.Context, dex int) error {
	docID, err := s.pokemonDocID(ctx, dex)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, models.CollectionPokemon, docID)
}

// pokemonDocID resolves a dex number to its document id. Older imports used
// generated ids, so a query is the fallback.
func (s *CatalogService) pokemonDocID(ctx context.Context, dex int) (string, error) {
	id := pokemonDocID(dex)
	if _, err := s.store.Get(ctx, models.CollectionPokemon, id); err == nil {
		return id, nil
	} else if !isNotFound(err) {
		return "", err
	}
	docs, err := s.store.Query(ctx, store.NewQuery(models.CollectionPokemon).
		Where("nationalDexNumber", store.OpEqual, dex).Take(1))
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("pokemon #%d: %w", dex, ErrNotFound)
	}
	return docs[0].ID, nil
}

func (s *CatalogService) GetPokemon(ctx context.Context, dex int) (*models.Pokemon, error) {
	docID, err := s.pokemonDocID(ctx, dex)
	if err != nil {
		return nil, err
	}
	return getAs[models.Pokemon](ctx, s.store, models.CollectionPokemon, docID)
}

func (s *CatalogService) ListPokemon(ctx context.Context) ([]models.Pokemon, error) {
	return queryAs[models.Pokemon](ctx, s.store, store.NewQuery(models.CollectionPokemon).Order("nationalDexNumber", false))
}

func (s *CatalogService) ListPokemonList(ctx context.Context) ([]models.PokemonListEntry, error) {
	return queryAs[models.PokemonListEntry](ctx, s.store, store.NewQuery(models.CollectionPokemonList).Order("nationalDexNumber", false))
}

// CardFilters narrows ListCards. Set is an upstream set id.
type CardFilters struct {
	Language models.Language
	Set      string
	Rarity   string
	Limit    int
}

func (f CardFilters) filtered() bool {
	return f.Set != "" || f.Rarity != ""
}

// ListCards lists cards across the selected partitions. Unfiltered listings
// come back in dex order from the store; filtered ones are sorted in memory
// (dex number first, then name).
func (s *CatalogService) ListCards(ctx context.Context, f CardFilters) ([]models.Card, error) {
	if f.Language == "" {
		f.Language = models.LanguageEnglish
	}
	var out []models.Card
	for _, lang := range f.Language.Expand() {
		q := store.NewQuery(models.CardCollection(lang))
		if f.Set != "" {
			q = q.Where("setApiId", store.OpEqual, f.Set)
		}
		if f.Rarity != "" {
			q = q.Where("rarity", store.OpEqual, f.Rarity)
		}
		if !f.filtered() {
			q = q.Order("nationalDexNumber", false)
			if f.Limit > 0 {
				q = q.Take(f.Limit)
			}
		}
		cards, err := queryAs[models.Card](ctx, s.store, q)
		if err != nil {
			return nil, err
		}
		out = append(out, cards...)
	}

	if f.filtered() || len(f.Language.Expand()) > 1 {
		sortCardsByDex(out)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	if out == nil {
		out = []models.Card{}
	}
	return out, nil
}

func sortCardsByDex(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		switch {
		case a.NationalDexNumber > 0 && b.NationalDexNumber > 0:
			if a.NationalDexNumber != b.NationalDexNumber {
				return a.NationalDexNumber < b.NationalDexNumber
			}
		case a.NationalDexNumber > 0:
			return true
		case b.NationalDexNumber > 0:
			return false
		}
		return a.Name < b.Name
	})
}

// sortCardsByNumber orders cards by collector number, numerically where the
// numbers allow it.
func sortCardsByNumber(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, aErr := strconv.Atoi(cards[i].LocalID)
		b, bErr := strconv.Atoi(cards[j].LocalID)
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return cards[i].LocalID < cards[j].LocalID
	})
}

func (s *CatalogService) GetCard(ctx context.Context, id string, lang models.Language) (*models.Card, error) {
	for _, l := range lang.Expand() {
		card, err := getAs[models.Card](ctx, s.store, models.CardCollection(l), id)
		if err == nil {
			return card, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
}

// GetCardsBySet returns a set's cards in collector-number order.
func (s *CatalogService) GetCardsBySet(ctx context.Context, setID string, lang models.Language) ([]models.Card, error) {
	var out []models.Card
	for _, l := range lang.Expand() {
		cards, err := queryAs[models.Card](ctx, s.store, store.NewQuery(models.CardCollection(l)).
			Where("setApiId", store.OpEqual, setID))
		if err != nil {
			return nil, err
		}
		out = append(out, cards...)
	}
	sortCardsByNumber(out)
	if out == nil {
		out = []models.Card{}
	}
	return out, nil
}

func (s *CatalogService) GetCardsByDex(ctx context.Context, dex int, lang models.Language) ([]models.Card, error) {
	var out []models.Card
	for _, l := range lang.Expand() {
		cards, err := queryAs[models.Card](ctx, s.store, store.NewQuery(models.CardCollection(l)).
			Where("nationalDexNumber", store.OpEqual, dex))
		if err != nil {
			return nil, err
		}
		out = append(out, cards...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SetAPIID != out[j].SetAPIID {
			return out[i].SetAPIID < out[j].SetAPIID
		}
		return out[i].LocalID < out[j].LocalID
	})
	if out == nil {
		out = []models.Card{}
	}
	return out, nil
}

// ListSets returns the sets of the selected partitions, newest first.
func (s *CatalogService) ListSets(ctx context.Context, lang models.Language) ([]SetView, error) {
	var out []SetView
	for _, l := range lang.Expand() {
		sets, err := queryAs[models.Set](ctx, s.store, store.NewQuery(models.SetCollection(l)).Order("releaseDate", true))
		if err != nil {
			return nil, err
		}
		for _, set := range sets {
			out = append(out, NewSetView(set))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReleaseDate > out[j].ReleaseDate })
	if out == nil {
		out = []SetView{}
	}
	return out, nil
}

// GetSet finds a set by document id or upstream id.
func (s *CatalogService) GetSet(ctx context.Context, id string, lang models.Language) (*SetView, error) {
	for _, l := range lang.Expand() {
		collection := models.SetCollection(l)
		set, err := getAs[models.Set](ctx, s.store, collection, id)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if set == nil {
			sets, err := queryAs[models.Set](ctx, s.store, store.NewQuery(collection).Where("apiId", store.OpEqual, id).Take(1))
			if err != nil {
				return nil, err
			}
			if len(sets) > 0 {
				set = &sets[0]
			}
		}
		if set != nil {
			view := NewSetView(*set)
			return &view, nil
		}
	}
	return nil, fmt.Errorf("set %s: %w", id, ErrNotFound)
}

type pokemonSource []models.Pokemon

func (p pokemonSource) String(i int) string {
	if p[i].NameJa != "" {
		return p[i].Name + " " + p[i].NameJa
	}
	return p[i].Name
}

func (p pokemonSource) Len() int { return len(p) }

// SearchPokemon fuzzy-matches species names (English and Japanese), best
// match first.
func (s *CatalogService) SearchPokemon(ctx context.Context, query string, limit int) ([]models.Pokemon, error) {
	pokemon, err := s.ListPokemon(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return limitSlice(pokemon, limit), nil
	}
	matches := fuzzy.FindFrom(query, pokemonSource(pokemon))
	out := make([]models.Pokemon, 0, len(matches))
	for _, m := range matches {
		out = append(out, pokemon[m.Index])
	}
	return limitSlice(out, limit), nil
}

type cardSource []models.Card

func (c cardSource) String(i int) string {
	if c[i].EnglishName != "" {
		return c[i].Name + " " + c[i].EnglishName
	}
	return c[i].Name
}

func (c cardSource) Len() int { return len(c) }

// SearchCards fuzzy-matches card names within the selected partitions.
func (s *CatalogService) SearchCards(ctx context.Context, query string, lang models.Language, limit int) ([]models.Card, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationErr("q", "is required")
	}
	var cards []models.Card
	for _, l := range lang.Expand() {
		part, err := queryAs[models.Card](ctx, s.store, store.NewQuery(models.CardCollection(l)))
		if err != nil {
			return nil, err
		}
		cards = append(cards, part...)
	}
	matches := fuzzy.FindFrom(query, cardSource(cards))
	out := make([]models.Card, 0, len(matches))
	for _, m := range matches {
		out = append(out, cards[m.Index])
	}
	return limitSlice(out, limit), nil
}

func limitSlice[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
