package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		collected, total, want int
	}{
		{3, 10, 30},
		{0, 10, 0},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 67},
		{5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.collected, tt.total), func(t *testing.T) {
			if got := Progress(tt.collected, tt.total); got != tt.want {
				t.Errorf("Progress(%d, %d) = %d, want %d", tt.collected, tt.total, got, tt.want)
			}
		})
	}
}

func newTestMasterSet(t *testing.T, svc *MasterSetService) *models.MasterSet {
	t.Helper()
	ms, err := svc.CreateMasterSet(context.Background(), models.MasterSet{
		Name:        "Base Set Master",
		Type:        models.MasterSetTypeSet,
		TargetSetID: "base1",
	})
	if err != nil {
		t.Fatalf("CreateMasterSet() error = %v", err)
	}
	return ms
}

func TestAssignmentProgress(t *testing.T) {
	ctx := context.Background()
	svc := NewMasterSetService(store.NewMemoryStore())
	ms := newTestMasterSet(t, svc)

	cards := make([]string, 10)
	for i := range cards {
		cards[i] = fmt.Sprintf("base1-%d", i+1)
	}
	a, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID, UserID: "u1", CardEN: cards})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	if a.TotalCards != 10 || a.Status != models.AssignmentPending {
		t.Fatalf("CreateAssignment() = %+v, want 10 cards and pending", a)
	}
	if _, err := svc.AcceptAssignment(ctx, a.ID, "u1", "Ash"); err != nil {
		t.Fatalf("AcceptAssignment() error = %v", err)
	}

	for _, cardID := range cards[:3] {
		if _, _, err := svc.CollectCard(ctx, models.CollectedCard{
			UserID:         "u1",
			CardID:         cardID,
			CardCollection: models.CardCollection(models.LanguageEnglish),
			AssignmentID:   a.ID,
		}); err != nil {
			t.Fatalf("CollectCard(%s) error = %v", cardID, err)
		}
	}

	got, err := svc.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAssignment() error = %v", err)
	}
	if got.CollectedCards != 3 || got.Progress != 30 {
		t.Errorf("assignment = %d collected, %d%% progress; want 3 and 30", got.CollectedCards, got.Progress)
	}

	set, _ := svc.GetMasterSet(ctx, ms.ID)
	if set.TotalCardsCollected != 3 {
		t.Errorf("master set totalCardsCollected = %d, want 3", set.TotalCardsCollected)
	}
	if set.TotalAssignments != 1 {
		t.Errorf("master set totalAssignments = %d, want 1", set.TotalAssignments)
	}
}

func TestCollectCard_IncrementsQuantity(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewMasterSetService(st)

	card := models.CollectedCard{UserID: "u1", CardID: "base1-4", CardCollection: "card_en"}
	firstID, updated, err := svc.CollectCard(ctx, card)
	if err != nil || updated {
		t.Fatalf("first CollectCard() = %v, %v; want created", updated, err)
	}
	secondID, updated, err := svc.CollectCard(ctx, card)
	if err != nil || !updated {
		t.Fatalf("second CollectCard() = %v, %v; want updated", updated, err)
	}
	if firstID != secondID {
		t.Errorf("second CollectCard() id = %q, want %q", secondID, firstID)
	}

	stored, err := getAs[models.CollectedCard](ctx, st, models.CollectionCollectedCards, firstID)
	if err != nil {
		t.Fatalf("collected card missing: %v", err)
	}
	if stored.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", stored.Quantity)
	}

	// The same card collected for an assignment is tracked separately.
	ms := newTestMasterSet(t, svc)
	a, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID, UserID: "u1", CardEN: []string{"base1-4"}, Status: models.AssignmentAccepted})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	_, updated, err = svc.CollectCard(ctx, models.CollectedCard{UserID: "u1", CardID: "base1-4", CardCollection: "card_en", AssignmentID: a.ID})
	if err != nil || updated {
		t.Errorf("assignment CollectCard() = %v, %v; want created", updated, err)
	}
}

func TestCollectCard_MissingFields(t *testing.T) {
	svc := NewMasterSetService(store.NewMemoryStore())
	_, _, err := svc.CollectCard(context.Background(), models.CollectedCard{UserID: "u1"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("CollectCard() error = %v, want ValidationError", err)
	}
}

func TestCollectCard_AssignmentRules(t *testing.T) {
	ctx := context.Background()
	svc := NewMasterSetService(store.NewMemoryStore())
	ms := newTestMasterSet(t, svc)
	other := newTestMasterSet(t, svc)

	pending, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID, CardEN: []string{"base1-1"}})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	owned, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID, UserID: "u1", CardEN: []string{"base1-1"}, Status: models.AssignmentAccepted})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}

	tests := []struct {
		name  string
		card  models.CollectedCard
		check func(error) bool
	}{
		{"master set without assignment", models.CollectedCard{UserID: "u1", MasterSetID: ms.ID}, func(err error) bool {
			var vErr *ValidationError
			return errors.As(err, &vErr)
		}},
		{"unclaimed pending assignment", models.CollectedCard{UserID: "u1", AssignmentID: pending.ID}, func(err error) bool {
			return errors.Is(err, ErrForbidden)
		}},
		{"another user's assignment", models.CollectedCard{UserID: "u2", AssignmentID: owned.ID}, func(err error) bool {
			return errors.Is(err, ErrForbidden)
		}},
		{"unknown assignment", models.CollectedCard{UserID: "u1", AssignmentID: "missing"}, func(err error) bool {
			return errors.Is(err, ErrNotFound)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.card.CardID = "base1-1"
			tt.card.CardCollection = "card_en"
			if _, _, err := svc.CollectCard(ctx, tt.card); !tt.check(err) {
				t.Errorf("CollectCard() error = %v", err)
			}
		})
	}

	// Rejected assignments stop accepting cards until accepted again.
	if _, err := svc.RejectAssignment(ctx, owned.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.CollectCard(ctx, models.CollectedCard{UserID: "u1", CardID: "base1-1", CardCollection: "card_en", AssignmentID: owned.ID}); !errors.Is(err, ErrAssignmentNotActive) {
		t.Errorf("CollectCard(rejected assignment) error = %v, want ErrAssignmentNotActive", err)
	}
	if _, err := svc.AcceptAssignment(ctx, owned.ID, "u1", ""); err != nil {
		t.Fatal(err)
	}

	id, _, err := svc.CollectCard(ctx, models.CollectedCard{UserID: "u1", CardID: "base1-1", CardCollection: "card_en", AssignmentID: owned.ID, MasterSetID: other.ID})
	if err != nil {
		t.Fatalf("CollectCard() error = %v", err)
	}
	stored, err := svc.GetCollectedCard(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.MasterSetID != ms.ID {
		t.Errorf("stored masterSetId = %q, want the assignment's %q", stored.MasterSetID, ms.ID)
	}
	if got, _ := svc.GetMasterSet(ctx, ms.ID); got.TotalCardsCollected != 1 {
		t.Errorf("totalCardsCollected = %d, want 1", got.TotalCardsCollected)
	}
	if got, _ := svc.GetMasterSet(ctx, other.ID); got.TotalCardsCollected != 0 {
		t.Errorf("other totalCardsCollected = %d, want 0", got.TotalCardsCollected)
	}
}

func TestAcceptRejectAssignment(t *testing.T) {
	ctx := context.Background()
	svc := NewMasterSetService(store.NewMemoryStore())
	ms := newTestMasterSet(t, svc)

	first, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID, CardEN: []string{"base1-1"}})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	second, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID, CardEN: []string{"base1-1"}, Status: models.AssignmentAccepted})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	if second.AcceptedAt == nil {
		t.Error("accepted assignment has no acceptedAt")
	}

	accepted, err := svc.AcceptAssignment(ctx, first.ID, "u2", "Ash")
	if err != nil {
		t.Fatalf("AcceptAssignment() error = %v", err)
	}
	if accepted.Status != models.AssignmentAccepted || accepted.UserID != "u2" || accepted.AcceptedAt == nil {
		t.Errorf("AcceptAssignment() = %+v, want accepted by u2", accepted)
	}

	set, _ := svc.GetMasterSet(ctx, ms.ID)
	if set.TotalAssignments != 2 {
		t.Errorf("totalAssignments = %d, want 2", set.TotalAssignments)
	}

	rejected, err := svc.RejectAssignment(ctx, second.ID)
	if err != nil {
		t.Fatalf("RejectAssignment() error = %v", err)
	}
	if rejected.Status != models.AssignmentRejected || rejected.RejectedAt == nil {
		t.Errorf("RejectAssignment() = %+v, want rejected", rejected)
	}
	set, _ = svc.GetMasterSet(ctx, ms.ID)
	if set.TotalAssignments != 1 {
		t.Errorf("totalAssignments after reject = %d, want 1", set.TotalAssignments)
	}
}

func TestUncollectCard_RecomputesProgress(t *testing.T) {
	ctx := context.Background()
	svc := NewMasterSetService(store.NewMemoryStore())
	ms := newTestMasterSet(t, svc)
	a, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID, UserID: "u1", CardEN: []string{"base1-1", "base1-2"}, Status: models.AssignmentAccepted})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}

	id, _, err := svc.CollectCard(ctx, models.CollectedCard{UserID: "u1", CardID: "base1-1", CardCollection: "card_en", AssignmentID: a.ID})
	if err != nil {
		t.Fatalf("CollectCard() error = %v", err)
	}
	if got, _ := svc.GetAssignment(ctx, a.ID); got.Progress != 50 {
		t.Errorf("progress = %d, want 50", got.Progress)
	}

	if err := svc.UncollectCard(ctx, id); err != nil {
		t.Fatalf("UncollectCard() error = %v", err)
	}
	if got, _ := svc.GetAssignment(ctx, a.ID); got.Progress != 0 || got.CollectedCards != 0 {
		t.Errorf("after uncollect = %d collected, %d%%; want 0 and 0", got.CollectedCards, got.Progress)
	}
}

func TestCreateAssignment_ResolvesTargetCards(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewMasterSetService(st)

	if _, err := st.Create(ctx, "set_en", "base1", models.Set{APIID: "base1", Name: "Base Set"}); err != nil {
		t.Fatalf("Create set error = %v", err)
	}
	for _, id := range []string{"base1-1", "base1-2"} {
		if _, err := st.Create(ctx, "card_en", id, models.Card{ID: id, SetID: "base1", SetAPIID: "base1"}); err != nil {
			t.Fatalf("Create card error = %v", err)
		}
	}

	ms := newTestMasterSet(t, svc)
	a, err := svc.CreateAssignment(ctx, models.Assignment{MasterSetID: ms.ID})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	if a.TotalCards != 2 || len(a.CardEN) != 2 {
		t.Errorf("CreateAssignment() resolved %d cards (%v), want 2", a.TotalCards, a.CardEN)
	}
}

func TestCreateMasterSet_Validation(t *testing.T) {
	svc := NewMasterSetService(store.NewMemoryStore())
	tests := []struct {
		name string
		ms   models.MasterSet
	}{
		{"missing name", models.MasterSet{Type: models.MasterSetTypeSet, TargetSetID: "base1"}},
		{"bad type", models.MasterSet{Name: "x", Type: "deck"}},
		{"missing pokemon", models.MasterSet{Name: "x", Type: models.MasterSetTypePokemon}},
		{"missing set", models.MasterSet{Name: "x", Type: models.MasterSetTypeSet}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMasterSet(context.Background(), tt.ms)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("CreateMasterSet() error = %v, want ValidationError", err)
			}
		})
	}
}
