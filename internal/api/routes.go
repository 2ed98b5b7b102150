package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/pokemon-collector/backend/internal/api/handlers"
	"github.com/codyseavey/pokemon-collector/backend/internal/api/middleware"
	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
)

// Services holds everything the router wires into handlers.
type Services struct {
	Catalog    *services.CatalogService
	CardCounts *services.CardCountService
	Hearts     *services.HeartService
	UserCards  *services.UserCardService
	MasterSets *services.MasterSetService
	Blog       *services.BlogService
	Images     *services.ImageService
	Seeder     *services.Seeder
	Legacy     *services.LegacySeeder
	Pokemon    *services.PokemonSeeder
	Reconcile  *services.ReconcileWorker
	Jobs       *services.JobRunner
}

// Options are the router's deployment settings.
type Options struct {
	CORSOrigins      []string
	FrontendDistPath string
	// ImagesDir is served under /images when uploads are stored locally.
	ImagesDir string
}

func SetupRouter(svc Services, auth *middleware.Auth, opts Options) *gin.Engine {
	router := gin.Default()

	frontendPath := opts.FrontendDistPath
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	config := cors.DefaultConfig()
	if len(opts.CORSOrigins) > 0 {
		config.AllowOrigins = opts.CORSOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))
	router.Use(metrics.HTTPMetrics())

	catalogHandler := handlers.NewCatalogHandler(svc.Catalog, svc.CardCounts)
	meHandler := handlers.NewMeHandler(svc.Hearts, svc.UserCards, svc.MasterSets)
	blogHandler := handlers.NewBlogHandler(svc.Blog, svc.Images)
	adminHandler := handlers.NewAdminHandler(svc.Jobs, svc.Seeder, svc.Legacy, svc.Pokemon, svc.CardCounts, svc.Reconcile, svc.MasterSets)
	authHandler := handlers.NewAuthHandler(auth)

	if opts.ImagesDir != "" {
		router.Static("/images", opts.ImagesDir)
	}

	api := router.Group("/api")
	{
		pokemon := api.Group("/pokemon")
		{
			pokemon.GET("", catalogHandler.ListPokemon)
			pokemon.GET("/:dex", catalogHandler.GetPokemon)
			pokemon.GET("/:dex/cards", catalogHandler.GetPokemonCards)
		}

		api.GET("/pokemon-list", catalogHandler.ListPokemonList)
		api.GET("/pokemon-list/card-counts", catalogHandler.GetCardCounts)

		sets := api.Group("/sets")
		{
			sets.GET("", catalogHandler.ListSets)
			sets.GET("/:id", catalogHandler.GetSet)
			sets.GET("/:id/cards", catalogHandler.GetSetCards)
		}

		cards := api.Group("/cards")
		{
			cards.GET("", catalogHandler.ListCards)
			cards.GET("/search", catalogHandler.SearchCards)
			cards.GET("/:id", catalogHandler.GetCard)
		}

		blog := api.Group("/blog")
		{
			blog.GET("", blogHandler.ListPublished)
			blog.GET("/:idOrSlug", blogHandler.GetPublished)
			blog.POST("/:idOrSlug/views", blogHandler.RecordView)
		}

		authGroup := api.Group("/auth")
		{
			authGroup.GET("/status", authHandler.Status)
			authGroup.GET("/verify", auth.RequireUser(), authHandler.Verify)
		}

		me := api.Group("/me", auth.RequireUser())
		{
			me.GET("/hearts", meHandler.ListHearts)
			me.POST("/hearts/pokemon/:dex", meHandler.HeartPokemon)
			me.DELETE("/hearts/pokemon/:dex", meHandler.UnheartPokemon)
			me.POST("/hearts/cards/:id", meHandler.HeartCard)
			me.DELETE("/hearts/cards/:id", meHandler.UnheartCard)

			me.GET("/cards", meHandler.ListCards)
			me.PUT("/cards/:cardId", meHandler.PutCard)
			me.DELETE("/cards/:cardId", meHandler.DeleteCard)
			me.POST("/cards/:cardId/toggle", meHandler.ToggleCard)

			me.GET("/assignments", meHandler.ListAssignments)
			me.POST("/assignments/:id/accept", meHandler.AcceptAssignment)
			me.POST("/assignments/:id/reject", meHandler.RejectAssignment)

			me.GET("/collected", meHandler.ListCollected)
			me.POST("/collected", meHandler.Collect)
			me.DELETE("/collected/:id", meHandler.Uncollect)
		}

		admin := api.Group("/admin", auth.RequireAdmin())
		{
			seed := admin.Group("/seed")
			{
				seed.GET("/status", adminHandler.Status)
				seed.POST("/sets", adminHandler.SeedSets)
				seed.POST("/cards", adminHandler.SeedCards)
				seed.POST("/all-cards", adminHandler.SeedAllCards)
				seed.POST("/legacy/sets", adminHandler.SeedLegacySets)
				seed.POST("/legacy/cards", adminHandler.SeedLegacyCards)
				seed.POST("/legacy/popular", adminHandler.SeedLegacyPopular)
				seed.POST("/legacy/all", adminHandler.SeedLegacyAll)
				seed.POST("/legacy/recount", adminHandler.RecountLegacySets)
				seed.POST("/metadata", adminHandler.SeedMetadata)
				seed.POST("/pokemon", adminHandler.SeedPokemon)
				seed.POST("/japanese-names", adminHandler.SeedJapaneseNames)
				seed.POST("/pokemon-list", adminHandler.BuildPokemonList)
				seed.POST("/pokemon-list/regroup", adminHandler.RegroupPokemonList)
				seed.POST("/sprites", adminHandler.UpdateSprites)
				seed.POST("/sprites/cleanup", adminHandler.CleanupSprites)
				seed.POST("/gifs", adminHandler.UpdateGifs)
			}

			admin.POST("/reconcile", adminHandler.Reconcile)
			admin.POST("/cache/card-counts/clear", adminHandler.ClearCardCountCache)

			admin.POST("/pokemon", catalogHandler.AddPokemon)
			admin.PUT("/pokemon/:dex", catalogHandler.UpdatePokemon)
			admin.DELETE("/pokemon/:dex", catalogHandler.DeletePokemon)

			masterSets := admin.Group("/master-sets")
			{
				masterSets.GET("", adminHandler.ListMasterSets)
				masterSets.POST("", adminHandler.CreateMasterSet)
				masterSets.GET("/:id", adminHandler.GetMasterSet)
				masterSets.PUT("/:id", adminHandler.UpdateMasterSet)
				masterSets.DELETE("/:id", adminHandler.DeleteMasterSet)
				masterSets.GET("/:id/assignments", adminHandler.ListAssignments)
			}

			assignments := admin.Group("/assignments")
			{
				assignments.GET("", adminHandler.ListAssignments)
				assignments.POST("", adminHandler.CreateAssignment)
				assignments.GET("/:id", adminHandler.GetAssignment)
			}

			blogAdmin := admin.Group("/blog")
			{
				blogAdmin.GET("", blogHandler.ListAll)
				blogAdmin.POST("", blogHandler.Create)
				blogAdmin.POST("/images", blogHandler.UploadImage)
				blogAdmin.GET("/:id", blogHandler.Get)
				blogAdmin.PUT("/:id", blogHandler.Update)
				blogAdmin.DELETE("/:id", blogHandler.Delete)
			}
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.StaticFile("/vite.svg", filepath.Join(frontendPath, "vite.svg"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback: index.html for every non-API route
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
