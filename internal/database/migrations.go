package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// jsonIndexes are expression indexes over the fields the services filter on.
var jsonIndexes = []struct {
	name  string
	field string
}{
	{"idx_documents_api_id", "apiId"},
	{"idx_documents_set_api_id", "setApiId"},
	{"idx_documents_set_id", "setId"},
	{"idx_documents_dex", "nationalDexNumber"},
	{"idx_documents_user_id", "userId"},
	{"idx_documents_assignment_id", "assignmentId"},
	{"idx_documents_master_set_id", "masterSetId"},
	{"idx_documents_slug", "slug"},
}

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := createJSONIndexes(db); err != nil {
		return err
	}
	if err := migrateLegacyCards(db); err != nil {
		return err
	}
	return nil
}

func createJSONIndexes(db *gorm.DB) error {
	for _, idx := range jsonIndexes {
		stmt := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON documents(collection, json_extract(data, '$.%s'))`,
			idx.name, idx.field,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// migrateLegacyCards moves PokemonTCG.io card documents that older builds
// wrote into the "pokemon" collection over to "cards", leaving only Pokémon
// species records behind. Safe to run repeatedly.
func migrateLegacyCards(db *gorm.DB) error {
	result := db.Exec(`
		UPDATE documents
		SET collection = 'cards'
		WHERE collection = 'pokemon'
		  AND json_extract(data, '$.apiId') IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM documents d2
			WHERE d2.collection = 'cards' AND d2.id = documents.id
		  )
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to migrate legacy pokemon cards: %v", result.Error)
		return nil
	}
	if result.RowsAffected > 0 {
		log.Printf("Migrated %d legacy card documents from pokemon to cards", result.RowsAffected)
	}
	return nil
}
