package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TokenTypeERC721  = "ERC721"
	TokenTypeERC1155 = "ERC1155"
	TokenTypeSPL     = "SPL"
	TokenTypeUnknown = "UNKNOWN"
)

// Artifact is one owned token on one network. (wallet_id, contract_address,
// token_id) is the natural key and is unique at the store level.
type Artifact struct {
	ID              uint64           `gorm:"primaryKey;autoIncrement"`
	WalletID        string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_artifacts_natural_key,priority:1"`
	Network         string           `gorm:"type:varchar(32);not null;index"`
	ContractAddress string           `gorm:"type:varchar(128);not null;uniqueIndex:idx_artifacts_natural_key,priority:2"`
	TokenID         string           `gorm:"type:varchar(255);not null;uniqueIndex:idx_artifacts_natural_key,priority:3"`
	TokenType       string           `gorm:"type:varchar(16);not null;default:'UNKNOWN'"`
	Balance         *decimal.Decimal `gorm:"type:numeric(78,0)"`
	Title           string           `gorm:"type:text;not null"`
	Description     string           `gorm:"type:text"`
	MediaURL        string           `gorm:"type:text"`
	MediaType       *string          `gorm:"type:varchar(32)"`
	Metadata        datatypes.JSON
	Attributes      datatypes.JSON
	IsSpam          bool      `gorm:"not null;default:false;index"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime;index"`
}

func (Artifact) TableName() string {
	return "artifacts"
}

// NaturalKey identifies an artifact independently of its row id.
type NaturalKey struct {
	WalletID        string
	ContractAddress string
	TokenID         string
}

func (a Artifact) Key() NaturalKey {
	return NaturalKey{WalletID: a.WalletID, ContractAddress: a.ContractAddress, TokenID: a.TokenID}
}
