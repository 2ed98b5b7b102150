package database

import (
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DocumentRecord is one document of the SQLite-backed document store. Data
// holds the JSON-encoded field map.
type DocumentRecord struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:191"`
	Data       string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRecord) TableName() string {
	return "documents"
}

var DB *gorm.DB

func Initialize(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	if err := DB.AutoMigrate(&DocumentRecord{}); err != nil {
		return err
	}
	if err := RunMigrations(DB); err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
