package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"

	"github.com/codyseavey/pokemon-collector/backend/internal/api"
	"github.com/codyseavey/pokemon-collector/backend/internal/api/middleware"
	"github.com/codyseavey/pokemon-collector/backend/internal/config"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One Firebase app serves both Firestore and ID token verification
	var app *firebase.App
	if cfg.Store.Backend == config.BackendFirestore || cfg.Auth.FirebaseAuth {
		app, err = store.NewFirebaseApp(ctx, cfg.Store.FirebaseProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
	}

	st, err := store.Open(ctx, cfg.Store, app)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	var verifiers middleware.Verifiers
	if cfg.Auth.FirebaseAuth {
		fv, err := middleware.NewFirebaseVerifier(ctx, app)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase auth: %v", err)
		}
		verifiers = append(verifiers, fv)
	}
	if cfg.Auth.JWTSecret != "" {
		verifiers = append(verifiers, middleware.NewJWTVerifier(cfg.Auth.JWTSecret))
	}
	var verifier middleware.TokenVerifier
	if len(verifiers) > 0 {
		verifier = verifiers
	} else {
		log.Println("No user token verifier configured: /api/me routes will reject every request")
	}
	if cfg.Auth.AdminKey == "" {
		log.Println("ADMIN_KEY not set: admin routes only accept users flagged isAdmin")
	}
	auth := middleware.NewAuth(cfg.Auth.AdminKey, verifier, st)

	// Image storage
	var (
		imageBackend services.ImageBackend
		imagesDir    string
	)
	switch cfg.Images.Storage {
	case "s3":
		imageBackend, err = services.NewS3ImageBackend(ctx, services.S3Config{
			Key:      cfg.Spaces.Key,
			Secret:   cfg.Spaces.Secret,
			Region:   cfg.Spaces.Region,
			Bucket:   cfg.Spaces.Bucket,
			Endpoint: cfg.Spaces.Endpoint,
			CDNURL:   cfg.Spaces.CDNURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize image storage: %v", err)
		}
	default:
		local := services.NewLocalImageBackend(cfg.Images.Dir, "/images")
		imageBackend = local
		imagesDir = local.Dir()
	}

	cardCounts := services.NewCardCountService(st, services.NewCardCountCache(0))
	masterSets := services.NewMasterSetService(st)
	reconcileWorker := services.NewReconcileWorker(masterSets, cardCounts, cfg.Reconcile.Interval.Duration)

	svc := api.Services{
		Catalog:    services.NewCatalogService(st),
		CardCounts: cardCounts,
		Hearts:     services.NewHeartService(st),
		UserCards:  services.NewUserCardService(st),
		MasterSets: masterSets,
		Blog:       services.NewBlogService(st),
		Images:     services.NewImageService(imageBackend),
		Seeder:     services.NewSeeder(st, services.NewTCGdexService()),
		Legacy:     services.NewLegacySeeder(st, services.NewPokemonTCGService(cfg.PokemonTCG.APIKey)),
		Pokemon:    services.NewPokemonSeeder(st),
		Reconcile:  reconcileWorker,
		Jobs:       services.NewJobRunner(ctx),
	}

	// Start reconcile worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in reconcile worker: %v - restarting in 30 seconds", r)
					}
				}()
				reconcileWorker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				log.Println("Reconcile worker restarting after panic recovery...")
			}
		}
	}()

	router := api.SetupRouter(svc, auth, api.Options{
		CORSOrigins:      cfg.Server.CORSOrigins,
		FrontendDistPath: cfg.Server.FrontendDistPath,
		ImagesDir:        imagesDir,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s (store: %s)", cfg.Server.Port, cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stops the reconcile worker and any running seed job
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
