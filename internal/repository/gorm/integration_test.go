//go:build integration

package gormrepository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"nftvault/internal/config"
	"nftvault/internal/db"
	"nftvault/internal/models"
	"nftvault/internal/repository"
	gormrepository "nftvault/internal/repository/gorm"
)

func setupPostgres(t *testing.T) *gormrepository.Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("nftvault"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	d, err := db.Open(config.DBConfig{Driver: db.DriverPostgres, DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(d) })
	require.NoError(t, db.AutoMigrate(d))
	return gormrepository.New(d.Gorm)
}

func TestPostgres_DuplicateNaturalKeyIsTranslated(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, store.CreateWallet(ctx, &models.Wallet{ID: "w1", OwnerID: "alice", Address: "0x1", ChainFamily: models.ChainFamilyEVM}))
	require.NoError(t, store.InsertArtifact(ctx, &models.Artifact{WalletID: "w1", Network: "eth", ContractAddress: "0xabc", TokenID: "1", Title: "a"}))

	err := store.InsertArtifact(ctx, &models.Artifact{WalletID: "w1", Network: "eth", ContractAddress: "0xabc", TokenID: "1", Title: "b"})
	require.Error(t, err)
	require.True(t, errors.Is(err, repository.ErrDuplicateKey), "got %v", err)
}

func TestPostgres_DeleteWalletCascades(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, store.CreateWallet(ctx, &models.Wallet{ID: "w1", OwnerID: "alice", Address: "0x1", ChainFamily: models.ChainFamilyEVM}))
	art := &models.Artifact{WalletID: "w1", Network: "eth", ContractAddress: "0xabc", TokenID: "1", Title: "a"}
	require.NoError(t, store.InsertArtifact(ctx, art))
	require.NoError(t, store.DeleteWallet(ctx, "w1"))

	got, err := store.GetArtifactByID(ctx, art.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}
