package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"nftvault/internal/auth"
	"nftvault/internal/fetcher"
	"nftvault/internal/models"
	"nftvault/internal/notify"
	"nftvault/internal/repository"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrWalletExists    = fmt.Errorf("wallet already tracked: %w", repository.ErrDuplicateKey)
)

type AddWalletInput struct {
	Address  string   `json:"address"`
	Nickname string   `json:"nickname"`
	Networks []string `json:"networks"`
}

// WalletService manages the caller's wallets. Every method is scoped to the
// user in ctx; other users' wallets look like missing ones.
type WalletService struct {
	Repo     repository.Repository
	Ingest   *IngestService
	Notifier notify.Notifier
	Logger   *zap.Logger
}

// AddWallet validates and stores the address, then runs a first ingestion.
func (s *WalletService) AddWallet(ctx context.Context, in AddWalletInput) (*models.Wallet, *IngestionResult, error) {
	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, nil, ErrUnauthenticated
	}
	family, ok := fetcher.DetectFamily(in.Address)
	if !ok {
		return nil, nil, &fetcher.InvalidAddressError{Address: in.Address, Reason: "unrecognised address format"}
	}
	address, err := fetcher.NormalizeAddress(in.Address, family)
	if err != nil {
		return nil, nil, err
	}
	existing, err := s.Repo.GetWalletByAddress(ctx, owner, address)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return existing, nil, ErrWalletExists
	}

	wallet := &models.Wallet{
		ID:             uuid.NewString(),
		OwnerID:        owner,
		Address:        address,
		ChainFamily:    family,
		Nickname:       strings.TrimSpace(in.Nickname),
		ActiveNetworks: datatypes.JSON("[]"),
	}
	if err := s.Repo.CreateWallet(ctx, wallet); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, nil, ErrWalletExists
		}
		return nil, nil, err
	}
	s.emit(ctx, wallet.ID, "added")

	if s.Ingest == nil {
		return wallet, nil, nil
	}
	result, err := s.Ingest.Ingest(ctx, wallet.ID, wallet.Address, in.Networks)
	if err != nil {
		return wallet, nil, err
	}
	if fresh, err := s.Repo.GetWalletByID(ctx, wallet.ID); err == nil && fresh != nil {
		wallet = fresh
	}
	return wallet, &result, nil
}

func (s *WalletService) ListWallets(ctx context.Context, limit, offset int) ([]models.Wallet, error) {
	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.Repo.ListWallets(ctx, repository.ListWalletsParams{Limit: limit, Offset: offset, OwnerID: &owner})
}

// GetWallet returns (nil, nil) when the wallet does not exist or is not the caller's.
func (s *WalletService) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	wallet, err := s.Repo.GetWalletByID(ctx, id)
	if err != nil || wallet == nil {
		return nil, err
	}
	if wallet.OwnerID != owner {
		return nil, nil
	}
	return wallet, nil
}

// RemoveWallet deletes the wallet with its artifacts and ingestion state.
func (s *WalletService) RemoveWallet(ctx context.Context, id string) error {
	wallet, err := s.GetWallet(ctx, id)
	if err != nil {
		return err
	}
	if wallet == nil {
		return repository.ErrNotFound
	}
	if err := s.Repo.DeleteWallet(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, id, "removed")
	return nil
}

func (s *WalletService) RefreshWallet(ctx context.Context, id string, networks []string) (*IngestionResult, error) {
	wallet, err := s.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, repository.ErrNotFound
	}
	if s.Ingest == nil {
		return nil, errors.New("ingest service not configured")
	}
	result, err := s.Ingest.Ingest(ctx, wallet.ID, wallet.Address, networks)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// IngestAddress runs an ingestion for any address. It persists only when the
// caller already tracks that address; otherwise the result is ephemeral.
func (s *WalletService) IngestAddress(ctx context.Context, address string, networks []string) (*IngestionResult, error) {
	if s.Ingest == nil {
		return nil, errors.New("ingest service not configured")
	}
	family, ok := fetcher.DetectFamily(address)
	if !ok {
		return nil, &fetcher.InvalidAddressError{Address: address, Reason: "unrecognised address format"}
	}
	normalized, err := fetcher.NormalizeAddress(address, family)
	if err != nil {
		return nil, err
	}
	walletID := ""
	if owner, ok := auth.UserFromContext(ctx); ok && s.Repo != nil {
		tracked, err := s.Repo.GetWalletByAddress(ctx, owner, normalized)
		if err != nil {
			return nil, err
		}
		if tracked != nil {
			walletID = tracked.ID
		}
	}
	result, err := s.Ingest.Ingest(ctx, walletID, normalized, networks)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *WalletService) IngestionStates(ctx context.Context, id string) ([]models.IngestionState, error) {
	wallet, err := s.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, repository.ErrNotFound
	}
	return s.Repo.ListIngestionStates(ctx, id)
}

type RefreshSummary struct {
	Wallets  int `json:"wallets"`
	Failed   int `json:"failed"`
	Ingested int `json:"ingested"`
}

// RefreshAll re-ingests every tracked wallet, acting as each wallet's owner.
func (s *WalletService) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	var summary RefreshSummary
	if s == nil || s.Repo == nil || s.Ingest == nil {
		return summary, nil
	}
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		wallets, err := s.Repo.ListWallets(ctx, repository.ListWalletsParams{Limit: pageSize, Offset: offset})
		if err != nil {
			return summary, err
		}
		for _, w := range wallets {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Wallets++
			result, err := s.Ingest.Ingest(auth.WithUser(ctx, w.OwnerID), w.ID, w.Address, nil)
			if err != nil {
				summary.Failed++
				s.logger().Warn("wallet refresh failed", zap.String("wallet_id", w.ID), zap.Error(err))
				continue
			}
			if len(result.Failures) > 0 {
				summary.Failed++
			}
			summary.Ingested += result.TotalIngested
		}
		if len(wallets) < pageSize {
			return summary, nil
		}
	}
}

// ActiveNetworks decodes the wallet's stored network list.
func ActiveNetworks(w *models.Wallet) []string {
	var out []string
	if w == nil || len(w.ActiveNetworks) == 0 {
		return out
	}
	_ = json.Unmarshal(w.ActiveNetworks, &out)
	return out
}

func (s *WalletService) emit(ctx context.Context, walletID, action string) {
	if s.Notifier == nil {
		return
	}
	owner, _ := auth.UserFromContext(ctx)
	_ = s.Notifier.Notify(ctx, notify.Event{Type: notify.EventWallet, OwnerID: owner, WalletID: walletID, Message: action})
}

func (s *WalletService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
