package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
)

// AdminHandler runs seeds as background jobs and manages master sets.
type AdminHandler struct {
	jobs       *services.JobRunner
	seeder     *services.Seeder
	legacy     *services.LegacySeeder
	pokemon    *services.PokemonSeeder
	cardCounts *services.CardCountService
	reconcile  *services.ReconcileWorker
	masterSets *services.MasterSetService
}

func NewAdminHandler(
	jobs *services.JobRunner,
	seeder *services.Seeder,
	legacy *services.LegacySeeder,
	pokemon *services.PokemonSeeder,
	cardCounts *services.CardCountService,
	reconcile *services.ReconcileWorker,
	masterSets *services.MasterSetService,
) *AdminHandler {
	return &AdminHandler{
		jobs:       jobs,
		seeder:     seeder,
		legacy:     legacy,
		pokemon:    pokemon,
		cardCounts: cardCounts,
		reconcile:  reconcile,
		masterSets: masterSets,
	}
}

// start launches a job and answers 202, or 409 while another job runs.
func (h *AdminHandler) start(c *gin.Context, name string, fn services.JobFunc) {
	if err := h.jobs.Start(name, fn); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": name + " started", "job": name})
}

// perLanguage runs fn for each concrete language of ?lang=.
func perLanguage[T any](lang models.Language, fn func(context.Context, models.Language) (T, error)) services.JobFunc {
	return func(ctx context.Context) (interface{}, error) {
		results := make(map[models.Language]T)
		for _, l := range lang.Expand() {
			r, err := fn(ctx, l)
			if err != nil {
				return results, err
			}
			results[l] = r
		}
		return results, nil
	}
}

type setIDsRequest struct {
	SetIDs []string `json:"setIds" binding:"required"`
}

func bindSetIDs(c *gin.Context) ([]string, bool) {
	var req setIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return nil, false
	}
	ids := make([]string, 0, len(req.SetIDs))
	for _, id := range req.SetIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		badRequest(c, "setIds must not be empty")
		return nil, false
	}
	return ids, true
}

func (h *AdminHandler) SeedSets(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	h.start(c, "seed-sets", perLanguage(lang, h.seeder.SeedSets))
}

func (h *AdminHandler) SeedCards(c *gin.Context) {
	lang, ok := concreteLanguage(c)
	if !ok {
		return
	}
	ids, ok := bindSetIDs(c)
	if !ok {
		return
	}
	h.start(c, "seed-cards", func(ctx context.Context) (interface{}, error) {
		defer h.cardCounts.Cache().Invalidate("")
		return h.seeder.SeedCardsForSets(ctx, ids, lang)
	})
}

func (h *AdminHandler) SeedAllCards(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	h.start(c, "seed-all-cards", func(ctx context.Context) (interface{}, error) {
		defer h.cardCounts.Cache().Invalidate("")
		return perLanguage(lang, h.seeder.SeedAllCards)(ctx)
	})
}

func (h *AdminHandler) SeedLegacySets(c *gin.Context) {
	h.start(c, "seed-legacy-sets", func(ctx context.Context) (interface{}, error) {
		return h.legacy.SeedSetsFromAPI(ctx)
	})
}

func (h *AdminHandler) SeedLegacyCards(c *gin.Context) {
	ids, ok := bindSetIDs(c)
	if !ok {
		return
	}
	h.start(c, "seed-legacy-cards", func(ctx context.Context) (interface{}, error) {
		return h.legacy.SeedCardsFromSets(ctx, ids)
	})
}

func (h *AdminHandler) SeedLegacyPopular(c *gin.Context) {
	h.start(c, "seed-legacy-popular", func(ctx context.Context) (interface{}, error) {
		return h.legacy.SeedPopularSets(ctx)
	})
}

func (h *AdminHandler) SeedLegacyAll(c *gin.Context) {
	h.start(c, "seed-legacy-all", func(ctx context.Context) (interface{}, error) {
		return h.legacy.SeedAllCards(ctx)
	})
}

func (h *AdminHandler) RecountLegacySets(c *gin.Context) {
	h.start(c, "recount-legacy-sets", func(ctx context.Context) (interface{}, error) {
		return h.legacy.UpdateAllSetCardCounts(ctx)
	})
}

func (h *AdminHandler) SeedMetadata(c *gin.Context) {
	h.start(c, "seed-metadata", func(ctx context.Context) (interface{}, error) {
		return h.legacy.SeedMetadata(ctx)
	})
}

// SeedPokemon imports a JSON array of species from the request body.
func (h *AdminHandler) SeedPokemon(c *gin.Context) {
	list, err := services.ReadPokemonJSON(c.Request.Body)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(list) == 0 {
		badRequest(c, "no pokemon in request body")
		return
	}
	h.start(c, "seed-pokemon", func(ctx context.Context) (interface{}, error) {
		return h.pokemon.SeedPokemonCollection(ctx, list)
	})
}

// SeedJapaneseNames imports the Japanese name table from the request body.
func (h *AdminHandler) SeedJapaneseNames(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "failed to read request body")
		return
	}
	names, err := services.ParseJapaneseNames(body)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	h.start(c, "seed-japanese-names", func(ctx context.Context) (interface{}, error) {
		return h.pokemon.SeedJapaneseNames(ctx, names)
	})
}

func (h *AdminHandler) BuildPokemonList(c *gin.Context) {
	h.start(c, "build-pokemon-list", func(ctx context.Context) (interface{}, error) {
		return h.pokemon.BuildPokemonList(ctx)
	})
}

func (h *AdminHandler) RegroupPokemonList(c *gin.Context) {
	h.start(c, "regroup-pokemon-list", func(ctx context.Context) (interface{}, error) {
		return h.pokemon.RegroupPokemonList(ctx)
	})
}

func (h *AdminHandler) UpdateSprites(c *gin.Context) {
	source := services.SpriteSource(c.DefaultQuery("source", string(services.SpriteSourceAuto)))
	switch source {
	case services.SpriteSourceAuto, services.SpriteSourcePokemonDB, services.SpriteSourcePokesprite, services.SpriteSourcePokeAPI:
	default:
		badRequest(c, "unknown sprite source: "+string(source))
		return
	}
	force := c.Query("force") == "true"
	h.start(c, "update-sprites", func(ctx context.Context) (interface{}, error) {
		return h.pokemon.UpdatePokemonSprites(ctx, source, force)
	})
}

func (h *AdminHandler) UpdateGifs(c *gin.Context) {
	force := c.Query("force") == "true"
	h.start(c, "update-gifs", func(ctx context.Context) (interface{}, error) {
		return h.pokemon.UpdatePokemonGifs(ctx, force)
	})
}

func (h *AdminHandler) CleanupSprites(c *gin.Context) {
	h.start(c, "cleanup-sprites", func(ctx context.Context) (interface{}, error) {
		return h.pokemon.CleanupInvalidSpriteURLs(ctx)
	})
}

func (h *AdminHandler) Reconcile(c *gin.Context) {
	h.start(c, "reconcile", func(ctx context.Context) (interface{}, error) {
		n, err := h.reconcile.RunOnce(ctx)
		return gin.H{"masterSetsReconciled": n}, err
	})
}

// cacheAges reports how old each cached card count is, in seconds.
func (h *AdminHandler) cacheAges() map[models.Language]float64 {
	ages := make(map[models.Language]float64)
	for _, lang := range append([]models.Language{models.LanguageAll}, models.Languages...) {
		if age, ok := h.cardCounts.Cache().Age(lang); ok {
			ages[lang] = age.Round(time.Second).Seconds()
		}
	}
	return ages
}

func (h *AdminHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"job":            h.jobs.Status(),
		"reconcile":      h.reconcile.GetStatus(),
		"cardCountCache": h.cacheAges(),
	})
}

// ClearCardCountCache drops the cached counts for ?lang=, or all of them
// when lang is omitted.
func (h *AdminHandler) ClearCardCountCache(c *gin.Context) {
	var lang models.Language
	if c.Query("lang") != "" {
		var ok bool
		if lang, ok = language(c); !ok {
			return
		}
	}
	h.cardCounts.Cache().Invalidate(lang)
	c.JSON(http.StatusOK, gin.H{"message": "card count cache cleared"})
}

func (h *AdminHandler) ListMasterSets(c *gin.Context) {
	sets, err := h.masterSets.ListMasterSets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if sets == nil {
		sets = []models.MasterSet{}
	}
	c.JSON(http.StatusOK, sets)
}

func (h *AdminHandler) GetMasterSet(c *gin.Context) {
	ms, err := h.masterSets.GetMasterSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

func (h *AdminHandler) CreateMasterSet(c *gin.Context) {
	var req models.MasterSet
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if id := userID(c); id != "" {
		req.CreatedBy = id
	}
	ms, err := h.masterSets.CreateMasterSet(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ms)
}

func (h *AdminHandler) UpdateMasterSet(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err.Error())
		return
	}
	ms, err := h.masterSets.UpdateMasterSet(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

func (h *AdminHandler) DeleteMasterSet(c *gin.Context) {
	if err := h.masterSets.DeleteMasterSet(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *AdminHandler) ListAssignments(c *gin.Context) {
	masterSetID := c.Query("masterSetId")
	if id := c.Param("id"); id != "" {
		masterSetID = id
	}
	assignments, err := h.masterSets.ListAssignments(c.Request.Context(), masterSetID, c.Query("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	c.JSON(http.StatusOK, assignments)
}

func (h *AdminHandler) CreateAssignment(c *gin.Context) {
	var req models.Assignment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.masterSets.CreateAssignment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *AdminHandler) GetAssignment(c *gin.Context) {
	a, err := h.masterSets.GetAssignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
