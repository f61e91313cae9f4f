package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite" // CGO-free driver
	"gorm.io/gorm"

	"github.com/docuchat/server/models"
)

// OpenSQLite opens (or creates) the sqlite database at path and migrates the
// schema. The documents and chats tables mirror the API contracts: documents
// are immutable, chats append-only.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&models.Document{},
		&models.Chat{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return db, nil
}
