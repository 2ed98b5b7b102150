package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
)

const defaultSearchLimit = 50

type CatalogHandler struct {
	catalog    *services.CatalogService
	cardCounts *services.CardCountService
}

func NewCatalogHandler(catalog *services.CatalogService, cardCounts *services.CardCountService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, cardCounts: cardCounts}
}

func cardViews(cards []models.Card) []services.CardView {
	views := make([]services.CardView, len(cards))
	for i := range cards {
		views[i] = services.NewCardView(cards[i])
	}
	return views
}

// ListPokemon lists every species, or fuzzy-matches ?q= when given.
func (h *CatalogHandler) ListPokemon(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	var (
		pokemon []models.Pokemon
		err     error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		if limit == 0 {
			limit = defaultSearchLimit
		}
		pokemon, err = h.catalog.SearchPokemon(c.Request.Context(), q, limit)
	} else {
		pokemon, err = h.catalog.ListPokemon(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if pokemon == nil {
		pokemon = []models.Pokemon{}
	}
	c.JSON(http.StatusOK, pokemon)
}

func (h *CatalogHandler) GetPokemon(c *gin.Context) {
	dex, ok := dexParam(c)
	if !ok {
		return
	}
	p, err := h.catalog.GetPokemon(c.Request.Context(), dex)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) GetPokemonCards(c *gin.Context) {
	dex, ok := dexParam(c)
	if !ok {
		return
	}
	lang, ok := language(c)
	if !ok {
		return
	}
	cards, err := h.catalog.GetCardsByDex(c.Request.Context(), dex, lang)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cardViews(cards))
}

func (h *CatalogHandler) ListPokemonList(c *gin.Context) {
	entries, err := h.catalog.ListPokemonList(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.PokemonListEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GetCardCounts returns dex -> card count from the cache. Recounting is an
// admin action (POST /api/admin/cache/card-counts/clear).
func (h *CatalogHandler) GetCardCounts(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	counts, err := h.cardCounts.GetCardCountsByDexNumber(c.Request.Context(), lang, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *CatalogHandler) ListSets(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	sets, err := h.catalog.ListSets(c.Request.Context(), lang)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sets)
}

func (h *CatalogHandler) GetSet(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	set, err := h.catalog.GetSet(c.Request.Context(), c.Param("id"), lang)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h *CatalogHandler) GetSetCards(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	cards, err := h.catalog.GetCardsBySet(c.Request.Context(), c.Param("id"), lang)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cardViews(cards))
}

func (h *CatalogHandler) ListCards(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	cards, err := h.catalog.ListCards(c.Request.Context(), services.CardFilters{
		Language: lang,
		Set:      c.Query("set"),
		Rarity:   c.Query("rarity"),
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cardViews(cards))
}

func (h *CatalogHandler) GetCard(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	card, err := h.catalog.GetCard(c.Request.Context(), c.Param("id"), lang)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.NewCardView(*card))
}

func (h *CatalogHandler) SearchCards(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		badRequest(c, "query parameter 'q' is required")
		return
	}
	lang, ok := language(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultSearchLimit)
	if !ok {
		return
	}
	cards, err := h.catalog.SearchCards(c.Request.Context(), query, lang, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CardSearchResult{
		Cards:      cards,
		TotalCount: len(cards),
		HasMore:    limit > 0 && len(cards) == limit,
	})
}

func (h *CatalogHandler) AddPokemon(c *gin.Context) {
	var req models.Pokemon
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.catalog.AddPokemon(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) UpdatePokemon(c *gin.Context) {
	dex, ok := dexParam(c)
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.catalog.UpdatePokemon(c.Request.Context(), dex, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) DeletePokemon(c *gin.Context) {
	dex, ok := dexParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeletePokemon(c.Request.Context(), dex); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
