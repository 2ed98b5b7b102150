package services

import (
	"context"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

// UserCardService tracks a user's general collection, independent of master
// sets. Each user/card pair is a single document.
type UserCardService struct {
	store store.DocumentStore
	now   func() time.Time
}

func NewUserCardService(st store.DocumentStore) *UserCardService {
	return &UserCardService{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// MarkCardAsCollected sets quantity and notes for the pair, creating it when
// missing.
func (s *UserCardService) MarkCardAsCollected(ctx context.Context, userID, cardID string, quantity int, notes string) (*models.UserCard, error) {
	if userID == "" || cardID == "" {
		return nil, validationErr("", "userId and cardId are required")
	}
	if quantity <= 0 {
		quantity = 1
	}
	id := models.UserCardID(userID, cardID)
	card := models.UserCard{
		UserID:      userID,
		CardID:      cardID,
		Quantity:    quantity,
		Notes:       notes,
		CollectedAt: s.now(),
	}
	if err := s.store.Set(ctx, models.CollectionUserCards, id, card); err != nil {
		return nil, err
	}
	return getAs[models.UserCard](ctx, s.store, models.CollectionUserCards, id)
}

func (s *UserCardService) RemoveCardFromCollection(ctx context.Context, userID, cardID string) error {
	if userID == "" || cardID == "" {
		return validationErr("", "userId and cardId are required")
	}
	return s.store.Delete(ctx, models.CollectionUserCards, models.UserCardID(userID, cardID))
}

func (s *UserCardService) IsCardCollected(ctx context.Context, userID, cardID string) (bool, error) {
	if userID == "" || cardID == "" {
		return false, nil
	}
	_, err := s.store.Get(ctx, models.CollectionUserCards, models.UserCardID(userID, cardID))
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// ToggleCardCollected flips the collected state and returns the new state.
func (s *UserCardService) ToggleCardCollected(ctx context.Context, userID, cardID string, quantity int) (bool, error) {
	collected, err := s.IsCardCollected(ctx, userID, cardID)
	if err != nil {
		return false, err
	}
	if collected {
		return false, s.RemoveCardFromCollection(ctx, userID, cardID)
	}
	if _, err := s.MarkCardAsCollected(ctx, userID, cardID, quantity, ""); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserCardService) GetUserCollectedCards(ctx context.Context, userID string) ([]models.UserCard, error) {
	if userID == "" {
		return nil, validationErr("userId", "is required")
	}
	return queryAs[models.UserCard](ctx, s.store, store.NewQuery(models.CollectionUserCards).
		Where("userId", store.OpEqual, userID).
		Order("collectedAt", true))
}

// GetCollectedCardIDs reports which of cardIDs the user has collected by
// reading the pair documents directly.
func (s *UserCardService) GetCollectedCardIDs(ctx context.Context, userID string, cardIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if userID == "" {
		return out, nil
	}
	for _, cardID := range cardIDs {
		_, err := s.store.Get(ctx, models.CollectionUserCards, models.UserCardID(userID, cardID))
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[cardID] = true
	}
	return out, nil
}
