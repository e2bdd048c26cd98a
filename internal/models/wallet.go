package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChainFamilyEVM    = "evm"
	ChainFamilySolana = "solana"
)

// Wallet is a user-supplied address whose artifacts are ingested. EVM
// addresses are stored lower-cased; Solana addresses keep their base58 form.
type Wallet struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	OwnerID        string `gorm:"type:varchar(120);not null;uniqueIndex:idx_wallets_owner_address,priority:1"`
	Address        string `gorm:"type:varchar(128);not null;uniqueIndex:idx_wallets_owner_address,priority:2"`
	ChainFamily    string `gorm:"type:varchar(16);not null"`
	Nickname       string `gorm:"type:varchar(120)"`
	ActiveNetworks datatypes.JSON
	LastIngestedAt *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}
