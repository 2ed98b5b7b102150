package store

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"

	"github.com/codyseavey/pokemon-collector/backend/internal/config"
	"github.com/codyseavey/pokemon-collector/backend/internal/database"
)

// Open connects the configured backend. app is only used by Firestore and
// may be nil for the others.
func Open(ctx context.Context, cfg config.StoreConfig, app *firebase.App) (DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		log.Println("Store: using in-memory documents; data is lost on exit")
		return NewMemoryStore(), nil
	case config.BackendSQLite:
		if err := database.Initialize(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Printf("Store: using SQLite at %s", cfg.DBPath)
		return NewSQLiteStore(database.GetDB()), nil
	case config.BackendFirestore:
		if app == nil {
			var err error
			if app, err = NewFirebaseApp(ctx, cfg.FirebaseProjectID); err != nil {
				return nil, err
			}
		}
		log.Printf("Store: using Firestore project %s", cfg.FirebaseProjectID)
		return NewFirestoreStore(ctx, app)
	case config.BackendMongo:
		log.Printf("Store: using MongoDB database %s", cfg.MongoDatabase)
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
