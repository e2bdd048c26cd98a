package gormrepository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nftvault/internal/models"
	"nftvault/internal/repository"
	gormrepository "nftvault/internal/repository/gorm"
)

func setupStore(t *testing.T) *gormrepository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Wallet{},
		&models.Artifact{},
		&models.Catalog{},
		&models.CatalogItem{},
		&models.IngestionState{},
		&models.SystemSetting{},
	))
	return gormrepository.New(db)
}

func seedWallet(t *testing.T, store *gormrepository.Store, id, owner string) {
	t.Helper()
	require.NoError(t, store.CreateWallet(context.Background(), &models.Wallet{
		ID:          id,
		OwnerID:     owner,
		Address:     "0x" + id,
		ChainFamily: models.ChainFamilyEVM,
	}))
}

func TestStore_ArtifactNaturalKeyRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedWallet(t, store, "w1", "alice")

	bal := decimal.NewFromInt(3)
	item := &models.Artifact{
		WalletID:        "w1",
		Network:         "eth",
		ContractAddress: "0xabc",
		TokenID:         "7",
		TokenType:       models.TokenTypeERC1155,
		Balance:         &bal,
		Title:           "Seven",
		Metadata:        datatypes.JSON(`{"name":"Seven"}`),
	}
	require.NoError(t, store.InsertArtifact(ctx, item))
	require.NotZero(t, item.ID)

	got, err := store.FindArtifactByNaturalKey(ctx, "w1", "0xabc", "7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "Seven", got.Title)
	require.NotNil(t, got.Balance)
	assert.True(t, got.Balance.Equal(bal))

	missing, err := store.FindArtifactByNaturalKey(ctx, "w1", "0xabc", "8")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_InsertDuplicateNaturalKey(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedWallet(t, store, "w1", "alice")

	first := &models.Artifact{WalletID: "w1", Network: "eth", ContractAddress: "0xabc", TokenID: "1", Title: "a"}
	require.NoError(t, store.InsertArtifact(ctx, first))

	dup := &models.Artifact{WalletID: "w1", Network: "eth", ContractAddress: "0xabc", TokenID: "1", Title: "b"}
	err := store.InsertArtifact(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrDuplicateKey), "got %v", err)
}

func TestStore_UpdateArtifactPreservesSpamAndCreatedAt(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedWallet(t, store, "w1", "alice")

	item := &models.Artifact{WalletID: "w1", Network: "eth", ContractAddress: "0xabc", TokenID: "1", Title: "old"}
	require.NoError(t, store.InsertArtifact(ctx, item))
	require.NoError(t, store.SetArtifactSpam(ctx, item.ID, true))

	before, err := store.GetArtifactByID(ctx, item.ID)
	require.NoError(t, err)

	patch := &models.Artifact{ID: item.ID, WalletID: "w1", Network: "polygon", ContractAddress: "0xabc", TokenID: "1", Title: "new"}
	require.NoError(t, store.UpdateArtifact(ctx, patch))

	after, err := store.GetArtifactByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", after.Title)
	assert.Equal(t, "polygon", after.Network)
	assert.True(t, after.IsSpam)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))

	err = store.UpdateArtifact(ctx, &models.Artifact{ID: 9999, Title: "ghost"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ListArtifactsFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedWallet(t, store, "w1", "alice")
	seedWallet(t, store, "w2", "bob")

	for i, network := range []string{"eth", "eth", "polygon"} {
		require.NoError(t, store.InsertArtifact(ctx, &models.Artifact{
			WalletID: "w1", Network: network, ContractAddress: "0xabc", TokenID: string(rune('a' + i)), Title: "t",
		}))
	}
	require.NoError(t, store.InsertArtifact(ctx, &models.Artifact{
		WalletID: "w2", Network: "eth", ContractAddress: "0xdef", TokenID: "1", Title: "t",
	}))

	eth := "eth"
	alice := "alice"
	items, err := store.ListArtifacts(ctx, repository.ListArtifactsParams{OwnerID: &alice, Network: &eth})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	total, err := store.CountArtifacts(ctx, repository.ListArtifactsParams{Network: &eth})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestStore_DeleteWalletCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedWallet(t, store, "w1", "alice")

	art := &models.Artifact{WalletID: "w1", Network: "eth", ContractAddress: "0xabc", TokenID: "1", Title: "a"}
	require.NoError(t, store.InsertArtifact(ctx, art))
	cat := &models.Catalog{OwnerID: "alice", Name: "favs"}
	require.NoError(t, store.CreateCatalog(ctx, cat))
	require.NoError(t, store.AddCatalogItem(ctx, cat.ID, art.ID))
	require.NoError(t, store.SaveIngestionState(ctx, &models.IngestionState{WalletID: "w1", Network: "eth", ArtifactCount: 1}))

	require.NoError(t, store.DeleteWallet(ctx, "w1"))

	w, err := store.GetWalletByID(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, w)
	total, err := store.CountArtifacts(ctx, repository.ListArtifactsParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	links, err := store.ListCatalogItems(ctx, cat.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
	states, err := store.ListIngestionStates(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, states)

	assert.ErrorIs(t, store.DeleteWallet(ctx, "w1"), repository.ErrNotFound)
}

func TestStore_IngestionStateUpsert(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	msg := "boom"
	require.NoError(t, store.SaveIngestionState(ctx, &models.IngestionState{WalletID: "w1", Network: "eth", LastAttemptAt: &now, LastError: &msg}))
	require.NoError(t, store.SaveIngestionState(ctx, &models.IngestionState{WalletID: "w1", Network: "eth", LastAttemptAt: &now, LastSuccessAt: &now, ArtifactCount: 4}))

	state, err := store.GetIngestionState(ctx, "w1", "eth")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Nil(t, state.LastError)
	assert.Equal(t, 4, state.ArtifactCount)
}

func TestStore_SystemSettingUpsert(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.media_probe", Value: datatypes.JSON("false")}))
	require.NoError(t, store.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.media_probe", Value: datatypes.JSON("true")}))

	item, err := store.GetSystemSettingByKey(ctx, "feature.media_probe")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.JSONEq(t, "true", string(item.Value))

	prefix := "feature."
	items, err := store.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: &prefix})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_NilSafe(t *testing.T) {
	var store *gormrepository.Store
	got, err := store.FindArtifactByNaturalKey(context.Background(), "w", "c", "t")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, store.InsertArtifact(context.Background(), &models.Artifact{}))
}
