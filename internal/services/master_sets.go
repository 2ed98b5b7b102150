package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

// MasterSetService manages master sets, their assignments and the cards
// collected against them. Aggregate counters are recomputed from the
// underlying documents after each mutation, so they can lag between writes.
type MasterSetService struct {
	store store.DocumentStore
	now   func() time.Time
}

func NewMasterSetService(st store.DocumentStore) *MasterSetService {
	return &MasterSetService{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// Progress is round(100 * collected / total), or 0 without a target.
func Progress(collected, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(collected) / float64(total) * 100))
}

func (s *MasterSetService) CreateMasterSet(ctx context.Context, ms models.MasterSet) (*models.MasterSet, error) {
	if strings.TrimSpace(ms.Name) == "" {
		return nil, validationErr("name", "is required")
	}
	switch ms.Type {
	case models.MasterSetTypePokemon:
		if ms.TargetPokemonID <= 0 {
			return nil, validationErr("targetPokemonId", "is required for pokemon master sets")
		}
	case models.MasterSetTypeSet:
		if ms.TargetSetID == "" {
			return nil, validationErr("targetSetId", "is required for set master sets")
		}
	default:
		return nil, validationErr("type", "must be %q or %q", models.MasterSetTypePokemon, models.MasterSetTypeSet)
	}
	if len(ms.Languages) == 0 {
		ms.Languages = []models.Language{models.LanguageEnglish}
	}

	ms.ID = ""
	ms.Status = "active"
	ms.TotalAssignments = 0
	ms.TotalCardsCollected = 0

	id, err := s.store.Create(ctx, models.CollectionMasterSets, "", ms)
	if err != nil {
		return nil, fmt.Errorf("failed to create master set: %w", err)
	}
	return s.GetMasterSet(ctx, id)
}

func (s *MasterSetService) GetMasterSet(ctx context.Context, id string) (*models.MasterSet, error) {
	return getAs[models.MasterSet](ctx, s.store, models.CollectionMasterSets, id)
}

func (s *MasterSetService) ListMasterSets(ctx context.Context) ([]models.MasterSet, error) {
	return queryAs[models.MasterSet](ctx, s.store, store.NewQuery(models.CollectionMasterSets).Order("createdAt", true))
}

// UpdateMasterSet changes the descriptive fields of a master set.
func (s *MasterSetService) UpdateMasterSet(ctx context.Context, id string, fields map[string]interface{}) (*models.MasterSet, error) {
	allowed := map[string]bool{"name": true, "description": true, "status": true, "languages": true}
	update := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if !allowed[k] {
			return nil, validationErr(k, "cannot be changed")
		}
		update[k] = v
	}
	if err := s.store.Update(ctx, models.CollectionMasterSets, id, update); err != nil {
		return nil, err
	}
	return s.GetMasterSet(ctx, id)
}

// DeleteMasterSet removes the master set and its assignments. Collected
// cards are kept.
func (s *MasterSetService) DeleteMasterSet(ctx context.Context, id string) error {
	docs, err := s.store.Query(ctx, store.NewQuery(models.CollectionAssignments).Where("masterSetId", store.OpEqual, id))
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := s.store.Delete(ctx, models.CollectionAssignments, d.ID); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, models.CollectionMasterSets, id)
}

// GetCardIDsForSet lists the card ids of one stored set in a language
// partition. setID is the set document id.
func (s *MasterSetService) GetCardIDsForSet(ctx context.Context, setID string, lang models.Language) ([]string, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(models.CardCollection(lang)).Where("setId", store.OpEqual, setID))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// GetCardIDsForPokemon lists a Pokémon's card ids per requested language.
func (s *MasterSetService) GetCardIDsForPokemon(ctx context.Context, dex int, langs []models.Language) (cardEN, cardJA []string, err error) {
	cardEN, cardJA = []string{}, []string{}
	for _, lang := range langs {
		docs, err := s.store.Query(ctx, store.NewQuery(models.CardCollection(lang)).Where("nationalDexNumber", store.OpEqual, dex))
		if err != nil {
			return nil, nil, err
		}
		for _, d := range docs {
			if lang == models.LanguageJapanese {
				cardJA = append(cardJA, d.ID)
			} else {
				cardEN = append(cardEN, d.ID)
			}
		}
	}
	return cardEN, cardJA, nil
}

// TargetCards resolves the card ids a master set covers.
func (s *MasterSetService) TargetCards(ctx context.Context, ms *models.MasterSet) (cardEN, cardJA []string, err error) {
	if ms.Type == models.MasterSetTypePokemon {
		return s.GetCardIDsForPokemon(ctx, ms.TargetPokemonID, ms.Languages)
	}
	cardEN, cardJA = []string{}, []string{}
	for _, lang := range ms.Languages {
		set, err := s.findSet(ctx, ms.TargetSetID, lang)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, nil, err
		}
		ids, err := s.GetCardIDsForSet(ctx, set, lang)
		if err != nil {
			return nil, nil, err
		}
		if lang == models.LanguageJapanese {
			cardJA = append(cardJA, ids...)
		} else {
			cardEN = append(cardEN, ids...)
		}
	}
	return cardEN, cardJA, nil
}

// findSet accepts either a set document id or an upstream apiId.
func (s *MasterSetService) findSet(ctx context.Context, setID string, lang models.Language) (string, error) {
	collection := models.SetCollection(lang)
	if _, err := s.store.Get(ctx, collection, setID); err == nil {
		return setID, nil
	} else if !isNotFound(err) {
		return "", err
	}
	docs, err := s.store.Query(ctx, store.NewQuery(collection).Where("apiId", store.OpEqual, setID).Take(1))
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("set %s: %w", setID, ErrNotFound)
	}
	return docs[0].ID, nil
}

// CreateAssignment stores a new assignment. When it carries no target cards
// they are resolved from the master set.
func (s *MasterSetService) CreateAssignment(ctx context.Context, a models.Assignment) (*models.Assignment, error) {
	if a.MasterSetID == "" {
		return nil, validationErr("masterSetId", "is required")
	}
	ms, err := s.GetMasterSet(ctx, a.MasterSetID)
	if err != nil {
		return nil, err
	}
	if len(a.CardEN) == 0 && len(a.CardJA) == 0 {
		if a.CardEN, a.CardJA, err = s.TargetCards(ctx, ms); err != nil {
			return nil, err
		}
	}
	if a.CardEN == nil {
		a.CardEN = []string{}
	}
	if a.CardJA == nil {
		a.CardJA = []string{}
	}

	a.ID = ""
	a.TotalCards = len(a.CardEN) + len(a.CardJA)
	a.CollectedCards = 0
	a.Progress = 0
	a.RejectedAt = nil
	a.AcceptedAt = nil
	switch a.Status {
	case "":
		a.Status = models.AssignmentPending
	case models.AssignmentAccepted:
		now := s.now()
		a.AcceptedAt = &now
	}

	id, err := s.store.Create(ctx, models.CollectionAssignments, "", a)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	if err := s.UpdateMasterSetStats(ctx, a.MasterSetID); err != nil {
		log.Printf("MasterSets: failed to update stats for %s: %v", a.MasterSetID, err)
	}
	return s.GetAssignment(ctx, id)
}

func (s *MasterSetService) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	return getAs[models.Assignment](ctx, s.store, models.CollectionAssignments, id)
}

// ListAssignments filters by master set and/or user; empty values match all.
func (s *MasterSetService) ListAssignments(ctx context.Context, masterSetID, userID string) ([]models.Assignment, error) {
	q := store.NewQuery(models.CollectionAssignments)
	if masterSetID != "" {
		q = q.Where("masterSetId", store.OpEqual, masterSetID)
	}
	if userID != "" {
		q = q.Where("userId", store.OpEqual, userID)
	}
	return queryAs[models.Assignment](ctx, s.store, q.Order("createdAt", true))
}

// AcceptAssignment marks the assignment accepted, optionally claiming it for
// a user, and recomputes the master set's participant count.
func (s *MasterSetService) AcceptAssignment(ctx context.Context, id, userID, userName string) (*models.Assignment, error) {
	fields := map[string]interface{}{
		"status":     models.AssignmentAccepted,
		"acceptedAt": s.now(),
	}
	if userID != "" {
		fields["userId"] = userID
	}
	if userName != "" {
		fields["userName"] = userName
	}
	if err := s.store.Update(ctx, models.CollectionAssignments, id, fields); err != nil {
		return nil, err
	}
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateMasterSetStats(ctx, a.MasterSetID); err != nil {
		log.Printf("MasterSets: failed to update stats for %s: %v", a.MasterSetID, err)
	}
	return a, nil
}

func (s *MasterSetService) RejectAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	fields := map[string]interface{}{
		"status":     models.AssignmentRejected,
		"rejectedAt": s.now(),
	}
	if err := s.store.Update(ctx, models.CollectionAssignments, id, fields); err != nil {
		return nil, err
	}
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateMasterSetStats(ctx, a.MasterSetID); err != nil {
		log.Printf("MasterSets: failed to update stats for %s: %v", a.MasterSetID, err)
	}
	return a, nil
}

// UpdateMasterSetStats recomputes totalAssignments (accepted or active) and
// totalCardsCollected for a master set.
func (s *MasterSetService) UpdateMasterSetStats(ctx context.Context, masterSetID string) error {
	assignments, err := s.store.Count(ctx, store.NewQuery(models.CollectionAssignments).
		Where("masterSetId", store.OpEqual, masterSetID).
		Where("status", store.OpIn, []string{string(models.AssignmentAccepted), string(models.AssignmentActive)}))
	if err != nil {
		return err
	}
	collected, err := s.store.Count(ctx, store.NewQuery(models.CollectionCollectedCards).
		Where("masterSetId", store.OpEqual, masterSetID))
	if err != nil {
		return err
	}
	return s.store.Update(ctx, models.CollectionMasterSets, masterSetID, map[string]interface{}{
		"totalAssignments":    assignments,
		"totalCardsCollected": collected,
	})
}

// UpdateAssignmentStats recomputes collectedCards and progress for an
// assignment, then its master set.
func (s *MasterSetService) UpdateAssignmentStats(ctx context.Context, assignmentID string) error {
	a, err := s.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	collected, err := s.store.Count(ctx, store.NewQuery(models.CollectionCollectedCards).
		Where("assignmentId", store.OpEqual, assignmentID))
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, models.CollectionAssignments, assignmentID, map[string]interface{}{
		"collectedCards": collected,
		"progress":       Progress(collected, a.TotalCards),
	}); err != nil {
		return err
	}
	if a.MasterSetID == "" {
		return nil
	}
	return s.UpdateMasterSetStats(ctx, a.MasterSetID)
}

// CollectCard records a collected card. Collecting the same card again in
// the same context (user, card, partition and assignment) adds to its
// quantity instead of creating a second document. It reports whether an
// existing record was updated. An assignment-scoped collect needs an
// accepted or active assignment owned by the user.
func (s *MasterSetService) CollectCard(ctx context.Context, c models.CollectedCard) (string, bool, error) {
	if c.UserID == "" || c.CardID == "" || c.CardCollection == "" {
		return "", false, validationErr("", "missing required fields")
	}
	if c.Quantity <= 0 {
		c.Quantity = 1
	}
	// The assignment decides which master set the card counts towards.
	switch {
	case c.AssignmentID != "":
		a, err := s.GetAssignment(ctx, c.AssignmentID)
		if err != nil {
			return "", false, err
		}
		if a.UserID != c.UserID {
			return "", false, ErrForbidden
		}
		if !a.Status.Counts() {
			return "", false, fmt.Errorf("assignment %s is %s: %w", a.ID, a.Status, ErrAssignmentNotActive)
		}
		c.MasterSetID = a.MasterSetID
	case c.MasterSetID != "":
		return "", false, validationErr("masterSetId", "requires an assignmentId")
	}

	existing, err := queryAs[models.CollectedCard](ctx, s.store, store.NewQuery(models.CollectionCollectedCards).
		Where("userId", store.OpEqual, c.UserID).
		Where("cardId", store.OpEqual, c.CardID).
		Where("cardCollection", store.OpEqual, c.CardCollection))
	if err != nil {
		return "", false, err
	}
	for _, e := range existing {
		if e.AssignmentID != c.AssignmentID {
			continue
		}
		quantity := e.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		if err := s.store.Update(ctx, models.CollectionCollectedCards, e.ID, map[string]interface{}{
			"quantity": quantity + c.Quantity,
		}); err != nil {
			return "", false, err
		}
		return e.ID, true, nil
	}

	c.ID = ""
	c.CollectedAt = s.now()
	id, err := s.store.Create(ctx, models.CollectionCollectedCards, "", c)
	if err != nil {
		return "", false, err
	}
	s.refreshStats(ctx, c.AssignmentID, c.MasterSetID)
	return id, false, nil
}

// UncollectCard deletes a collected card record and recomputes the stats it
// counted towards.
func (s *MasterSetService) UncollectCard(ctx context.Context, id string) error {
	c, err := getAs[models.CollectedCard](ctx, s.store, models.CollectionCollectedCards, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, models.CollectionCollectedCards, id); err != nil {
		return err
	}
	s.refreshStats(ctx, c.AssignmentID, c.MasterSetID)
	return nil
}

func (s *MasterSetService) GetCollectedCard(ctx context.Context, id string) (*models.CollectedCard, error) {
	return getAs[models.CollectedCard](ctx, s.store, models.CollectionCollectedCards, id)
}

// ListCollectedCards returns a user's collected card records, optionally for
// one assignment.
func (s *MasterSetService) ListCollectedCards(ctx context.Context, userID, assignmentID string) ([]models.CollectedCard, error) {
	q := store.NewQuery(models.CollectionCollectedCards).Where("userId", store.OpEqual, userID)
	if assignmentID != "" {
		q = q.Where("assignmentId", store.OpEqual, assignmentID)
	}
	return queryAs[models.CollectedCard](ctx, s.store, q)
}

func (s *MasterSetService) refreshStats(ctx context.Context, assignmentID, masterSetID string) {
	var err error
	switch {
	case assignmentID != "":
		err = s.UpdateAssignmentStats(ctx, assignmentID)
	case masterSetID != "":
		err = s.UpdateMasterSetStats(ctx, masterSetID)
	}
	if err != nil {
		log.Printf("MasterSets: failed to refresh stats (assignment %q, master set %q): %v", assignmentID, masterSetID, err)
	}
}

// ReconcileAll recomputes stats for every assignment and master set.
func (s *MasterSetService) ReconcileAll(ctx context.Context) (int, error) {
	sets, err := s.store.Query(ctx, store.NewQuery(models.CollectionMasterSets))
	if err != nil {
		return 0, err
	}
	assignments, err := s.store.Query(ctx, store.NewQuery(models.CollectionAssignments))
	if err != nil {
		return 0, err
	}
	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := s.UpdateAssignmentStats(ctx, a.ID); err != nil {
			log.Printf("MasterSets: failed to reconcile assignment %s: %v", a.ID, err)
		}
	}
	reconciled := 0
	for _, ms := range sets {
		if err := ctx.Err(); err != nil {
			return reconciled, err
		}
		if err := s.UpdateMasterSetStats(ctx, ms.ID); err != nil {
			log.Printf("MasterSets: failed to reconcile master set %s: %v", ms.ID, err)
			continue
		}
		reconciled++
	}
	metrics.MasterSetsReconciled.Set(float64(reconciled))
	return reconciled, nil
}
