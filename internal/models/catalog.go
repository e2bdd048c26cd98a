package models

import "time"

// Catalog is a named grouping of artifacts owned by a user.
type Catalog struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	OwnerID     string    `gorm:"type:varchar(120);not null;index"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Catalog) TableName() string {
	return "catalogs"
}

type CatalogItem struct {
	CatalogID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	ArtifactID uint64    `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (CatalogItem) TableName() string {
	return "catalog_items"
}
