package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSetting holds a runtime switch, e.g. feature.media_probe = true.
type SystemSetting struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	Key         string         `gorm:"type:varchar(120);not null;uniqueIndex"`
	Value       datatypes.JSON `gorm:"not null"`
	Description string         `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
