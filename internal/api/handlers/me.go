package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokemon-collector/backend/internal/api/middleware"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
)

// MeHandler serves the signed-in user's hearts, cards, assignments and
// collected cards. Every route runs behind RequireUser.
type MeHandler struct {
	hearts     *services.HeartService
	userCards  *services.UserCardService
	masterSets *services.MasterSetService
}

func NewMeHandler(hearts *services.HeartService, userCards *services.UserCardService, masterSets *services.MasterSetService) *MeHandler {
	return &MeHandler{hearts: hearts, userCards: userCards, masterSets: masterSets}
}

func userID(c *gin.Context) string {
	if id := middleware.CurrentIdentity(c); id != nil {
		return id.UserID
	}
	return ""
}

func (h *MeHandler) ListHearts(c *gin.Context) {
	typ := models.HeartType(c.Query("type"))
	if typ != "" && typ != models.HeartTypePokemon && typ != models.HeartTypeCard {
		badRequest(c, "type must be 'pokemon' or 'card'")
		return
	}
	hearts, err := h.hearts.ListHearts(c.Request.Context(), userID(c), typ)
	if err != nil {
		respondError(c, err)
		return
	}
	if hearts == nil {
		hearts = []models.Heart{}
	}
	c.JSON(http.StatusOK, hearts)
}

type heartPokemonRequest struct {
	Name string `json:"name"`
}

func (h *MeHandler) HeartPokemon(c *gin.Context) {
	dex, ok := dexParam(c)
	if !ok {
		return
	}
	var req heartPokemonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	heart, err := h.hearts.HeartPokemon(c.Request.Context(), userID(c), dex, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, heart)
}

func (h *MeHandler) UnheartPokemon(c *gin.Context) {
	dex, ok := dexParam(c)
	if !ok {
		return
	}
	if err := h.hearts.UnheartPokemon(c.Request.Context(), userID(c), dex); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unhearted"})
}

type heartCardRequest struct {
	CardAPIID string `json:"cardApiId"`
	CardName  string `json:"cardName"`
}

func (h *MeHandler) HeartCard(c *gin.Context) {
	var req heartCardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	heart, err := h.hearts.HeartCard(c.Request.Context(), userID(c), c.Param("id"), req.CardAPIID, req.CardName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, heart)
}

func (h *MeHandler) UnheartCard(c *gin.Context) {
	if err := h.hearts.UnheartCard(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unhearted"})
}

func (h *MeHandler) ListCards(c *gin.Context) {
	cards, err := h.userCards.GetUserCollectedCards(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if cards == nil {
		cards = []models.UserCard{}
	}
	c.JSON(http.StatusOK, cards)
}

type userCardRequest struct {
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

func (h *MeHandler) PutCard(c *gin.Context) {
	var req userCardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.Quantity < 0 {
		badRequest(c, "quantity must be positive")
		return
	}
	card, err := h.userCards.MarkCardAsCollected(c.Request.Context(), userID(c), c.Param("cardId"), req.Quantity, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *MeHandler) DeleteCard(c *gin.Context) {
	if err := h.userCards.RemoveCardFromCollection(c.Request.Context(), userID(c), c.Param("cardId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

func (h *MeHandler) ToggleCard(c *gin.Context) {
	var req userCardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	collected, err := h.userCards.ToggleCardCollected(c.Request.Context(), userID(c), c.Param("cardId"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cardId": c.Param("cardId"), "collected": collected})
}

func (h *MeHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.masterSets.ListAssignments(c.Request.Context(), c.Query("masterSetId"), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	c.JSON(http.StatusOK, assignments)
}

// ownAssignment loads an assignment that is unclaimed or belongs to the
// caller.
func (h *MeHandler) ownAssignment(c *gin.Context, id string) (*models.Assignment, bool) {
	a, err := h.masterSets.GetAssignment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if a.UserID != "" && a.UserID != userID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "assignment belongs to another user"})
		return nil, false
	}
	return a, true
}

func (h *MeHandler) AcceptAssignment(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.ownAssignment(c, id); !ok {
		return
	}
	var name string
	if ident := middleware.CurrentIdentity(c); ident != nil {
		name = ident.Name
	}
	a, err := h.masterSets.AcceptAssignment(c.Request.Context(), id, userID(c), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *MeHandler) RejectAssignment(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.ownAssignment(c, id); !ok {
		return
	}
	a, err := h.masterSets.RejectAssignment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type collectRequest struct {
	CardID         string `json:"cardId" binding:"required"`
	CardCollection string `json:"cardCollection"`
	AssignmentID   string `json:"assignmentId"`
	MasterSetID    string `json:"masterSetId"`
	Quantity       int    `json:"quantity"`
}

// Collect records a collected card. cardCollection defaults to the English
// card partition.
func (h *MeHandler) Collect(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.CardCollection == "" {
		req.CardCollection = models.CardCollection(models.LanguageEnglish)
	}
	id, updated, err := h.masterSets.CollectCard(c.Request.Context(), models.CollectedCard{
		UserID:         userID(c),
		CardID:         req.CardID,
		CardCollection: req.CardCollection,
		AssignmentID:   req.AssignmentID,
		MasterSetID:    req.MasterSetID,
		Quantity:       req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if updated {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"id": id, "updated": updated})
}

func (h *MeHandler) ListCollected(c *gin.Context) {
	cards, err := h.masterSets.ListCollectedCards(c.Request.Context(), userID(c), c.Query("assignmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if cards == nil {
		cards = []models.CollectedCard{}
	}
	c.JSON(http.StatusOK, cards)
}

func (h *MeHandler) Uncollect(c *gin.Context) {
	id := c.Param("id")
	card, err := h.masterSets.GetCollectedCard(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if card.UserID != userID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "collected card belongs to another user"})
		return
	}
	if err := h.masterSets.UncollectCard(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}
