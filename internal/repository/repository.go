package repository

import (
	"context"
	"errors"
	"time"

	"nftvault/internal/models"
)

var (
	// ErrNotFound is returned by mutations that target a missing row.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicateKey is returned when an insert hits a unique index.
	ErrDuplicateKey = errors.New("repository: duplicate key")
)

// ArtifactRepository is the persistence surface used by the ingestion
// pipeline. Lookups return (nil, nil) when the row does not exist.
type ArtifactRepository interface {
	FindArtifactByNaturalKey(ctx context.Context, walletID, contractAddress, tokenID string) (*models.Artifact, error)
	InsertArtifact(ctx context.Context, item *models.Artifact) error
	UpdateArtifact(ctx context.Context, item *models.Artifact) error
	DeleteArtifact(ctx context.Context, id uint64) error
	GetArtifactByID(ctx context.Context, id uint64) (*models.Artifact, error)
	ListArtifacts(ctx context.Context, params ListArtifactsParams) ([]models.Artifact, error)
	CountArtifacts(ctx context.Context, params ListArtifactsParams) (int64, error)
	SetArtifactSpam(ctx context.Context, id uint64, spam bool) error
}

type WalletRepository interface {
	CreateWallet(ctx context.Context, item *models.Wallet) error
	GetWalletByID(ctx context.Context, id string) (*models.Wallet, error)
	GetWalletByAddress(ctx context.Context, ownerID, address string) (*models.Wallet, error)
	ListWallets(ctx context.Context, params ListWalletsParams) ([]models.Wallet, error)
	UpdateWalletNetworks(ctx context.Context, id string, networks []string, ingestedAt time.Time) error
	// DeleteWallet removes the wallet with its artifacts, catalog links and ingestion states.
	DeleteWallet(ctx context.Context, id string) error
}

type IngestionStateRepository interface {
	GetIngestionState(ctx context.Context, walletID, network string) (*models.IngestionState, error)
	SaveIngestionState(ctx context.Context, state *models.IngestionState) error
	ListIngestionStates(ctx context.Context, walletID string) ([]models.IngestionState, error)
}

type SystemSettingRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

type CatalogRepository interface {
	CreateCatalog(ctx context.Context, item *models.Catalog) error
	GetCatalogByID(ctx context.Context, id uint64) (*models.Catalog, error)
	AddCatalogItem(ctx context.Context, catalogID, artifactID uint64) error
	RemoveCatalogItem(ctx context.Context, catalogID, artifactID uint64) error
	ListCatalogItems(ctx context.Context, catalogID uint64) ([]models.CatalogItem, error)
}

// Repository is the full store implemented by the gorm and memory backends.
type Repository interface {
	ArtifactRepository
	WalletRepository
	IngestionStateRepository
	SystemSettingRepository
	CatalogRepository
}

type ListArtifactsParams struct {
	Limit    int
	Offset   int
	WalletID *string
	OwnerID  *string
	Network  *string
	IsSpam   *bool
	OrderBy  string
	Asc      *bool
}

type ListWalletsParams struct {
	Limit   int
	Offset  int
	OwnerID *string
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
