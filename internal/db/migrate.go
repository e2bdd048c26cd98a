package db

import (
	"nftvault/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Wallet{},
		&models.Artifact{},
		&models.Catalog{},
		&models.CatalogItem{},
		&models.IngestionState{},
		&models.SystemSetting{},
	)
}
