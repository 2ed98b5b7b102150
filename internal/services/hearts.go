package services

import (
	"context"
	"errors"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

var (
	ErrAlreadyHearted = errors.New("already hearted")
	ErrNotHearted     = errors.New("not hearted")
)

// inBatchSize caps the values of one "in" filter.
const inBatchSize = 10

type HeartService struct {
	store store.DocumentStore
}

func NewHeartService(st store.DocumentStore) *HeartService {
	return &HeartService{store: st}
}

func (s *HeartService) findHeart(ctx context.Context, userID string, typ models.HeartType, field string, value interface{}) (*store.Document, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(models.CollectionHearts).
		Where("userId", store.OpEqual, userID).
		Where("type", store.OpEqual, string(typ)).
		Where(field, store.OpEqual, value).
		Take(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (s *HeartService) HeartPokemon(ctx context.Context, userID string, dex int, name string) (*models.Heart, error) {
	if userID == "" || dex <= 0 {
		return nil, validationErr("", "missing required fields")
	}
	existing, err := s.findHeart(ctx, userID, models.HeartTypePokemon, "pokemonId", dex)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyHearted
	}
	heart := models.Heart{UserID: userID, Type: models.HeartTypePokemon, PokemonID: dex, PokemonName: name}
	id, err := s.store.Create(ctx, models.CollectionHearts, "", heart)
	if err != nil {
		return nil, err
	}
	return getAs[models.Heart](ctx, s.store, models.CollectionHearts, id)
}

func (s *HeartService) UnheartPokemon(ctx context.Context, userID string, dex int) error {
	if userID == "" || dex <= 0 {
		return validationErr("", "missing required fields")
	}
	existing, err := s.findHeart(ctx, userID, models.HeartTypePokemon, "pokemonId", dex)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotHearted
	}
	return s.store.Delete(ctx, models.CollectionHearts, existing.ID)
}

func (s *HeartService) HeartCard(ctx context.Context, userID, cardID, cardAPIID, cardName string) (*models.Heart, error) {
	if userID == "" || cardID == "" {
		return nil, validationErr("", "missing required fields")
	}
	existing, err := s.findHeart(ctx, userID, models.HeartTypeCard, "cardId", cardID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyHearted
	}
	heart := models.Heart{UserID: userID, Type: models.HeartTypeCard, CardID: cardID, CardAPIID: cardAPIID, CardName: cardName}
	id, err := s.store.Create(ctx, models.CollectionHearts, "", heart)
	if err != nil {
		return nil, err
	}
	return getAs[models.Heart](ctx, s.store, models.CollectionHearts, id)
}

func (s *HeartService) UnheartCard(ctx context.Context, userID, cardID string) error {
	if userID == "" || cardID == "" {
		return validationErr("", "missing required fields")
	}
	existing, err := s.findHeart(ctx, userID, models.HeartTypeCard, "cardId", cardID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotHearted
	}
	return s.store.Delete(ctx, models.CollectionHearts, existing.ID)
}

func (s *HeartService) IsPokemonHearted(ctx context.Context, userID string, dex int) (bool, error) {
	existing, err := s.findHeart(ctx, userID, models.HeartTypePokemon, "pokemonId", dex)
	return existing != nil, err
}

func (s *HeartService) IsCardHearted(ctx context.Context, userID, cardID string) (bool, error) {
	existing, err := s.findHeart(ctx, userID, models.HeartTypeCard, "cardId", cardID)
	return existing != nil, err
}

// ListHearts returns a user's hearts of one type, newest first. An empty
// type lists both.
func (s *HeartService) ListHearts(ctx context.Context, userID string, typ models.HeartType) ([]models.Heart, error) {
	q := store.NewQuery(models.CollectionHearts).Where("userId", store.OpEqual, userID)
	if typ != "" {
		q = q.Where("type", store.OpEqual, string(typ))
	}
	return queryAs[models.Heart](ctx, s.store, q.Order("createdAt", true))
}

// HeartedPokemonSet reports which of dexNumbers the user has hearted.
func (s *HeartService) HeartedPokemonSet(ctx context.Context, userID string, dexNumbers []int) (map[int]bool, error) {
	out := make(map[int]bool)
	if userID == "" {
		return out, nil
	}
	for start := 0; start < len(dexNumbers); start += inBatchSize {
		end := min(start+inBatchSize, len(dexNumbers))
		hearts, err := queryAs[models.Heart](ctx, s.store, store.NewQuery(models.CollectionHearts).
			Where("userId", store.OpEqual, userID).
			Where("type", store.OpEqual, string(models.HeartTypePokemon)).
			Where("pokemonId", store.OpIn, dexNumbers[start:end]))
		if err != nil {
			return nil, err
		}
		for _, h := range hearts {
			out[h.PokemonID] = true
		}
	}
	return out, nil
}

// HeartedCardSet reports which of cardIDs the user has hearted.
func (s *HeartService) HeartedCardSet(ctx context.Context, userID string, cardIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if userID == "" {
		return out, nil
	}
	for _, batch := range chunk(cardIDs, inBatchSize) {
		hearts, err := queryAs[models.Heart](ctx, s.store, store.NewQuery(models.CollectionHearts).
			Where("userId", store.OpEqual, userID).
			Where("type", store.OpEqual, string(models.HeartTypeCard)).
			Where("cardId", store.OpIn, batch))
		if err != nil {
			return nil, err
		}
		for _, h := range hearts {
			out[h.CardID] = true
		}
	}
	return out, nil
}
