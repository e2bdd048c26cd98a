package models

import (
	"time"

	"gorm.io/datatypes"
)

// IngestionState records the last fetch run for one wallet on one network.
type IngestionState struct {
	WalletID      string  `gorm:"primaryKey;type:varchar(36)"`
	Network       string  `gorm:"primaryKey;type:varchar(32)"`
	Cursor        *string `gorm:"type:text"`
	LastAttemptAt *time.Time
	LastSuccessAt *time.Time
	LastError     *string `gorm:"type:text"`
	ArtifactCount int     `gorm:"not null;default:0"`
	StatsJSON     datatypes.JSON
}

func (IngestionState) TableName() string {
	return "ingestion_states"
}
