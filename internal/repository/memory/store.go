package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"nftvault/internal/models"
	"nftvault/internal/repository"
)

type stateKey struct {
	walletID string
	network  string
}

type catalogItemKey struct {
	catalogID  uint64
	artifactID uint64
}

// Store is an in-memory repository.Repository. Returned rows are copies.
type Store struct {
	mu sync.RWMutex

	nextArtifactID uint64
	nextCatalogID  uint64
	nextSettingID  uint64

	wallets      map[string]*models.Wallet
	artifacts    map[uint64]*models.Artifact
	byNaturalKey map[models.NaturalKey]uint64
	states       map[stateKey]*models.IngestionState
	settings     map[string]*models.SystemSetting
	catalogs     map[uint64]*models.Catalog
	catalogItems map[catalogItemKey]*models.CatalogItem
}

func New() *Store {
	return &Store{
		wallets:      make(map[string]*models.Wallet),
		artifacts:    make(map[uint64]*models.Artifact),
		byNaturalKey: make(map[models.NaturalKey]uint64),
		states:       make(map[stateKey]*models.IngestionState),
		settings:     make(map[string]*models.SystemSetting),
		catalogs:     make(map[uint64]*models.Catalog),
		catalogItems: make(map[catalogItemKey]*models.CatalogItem),
	}
}

var _ repository.Repository = (*Store)(nil)

// --- artifacts --------------------------------------------------------------

func (s *Store) FindArtifactByNaturalKey(_ context.Context, walletID, contractAddress, tokenID string) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNaturalKey[models.NaturalKey{WalletID: walletID, ContractAddress: contractAddress, TokenID: tokenID}]
	if !ok {
		return nil, nil
	}
	c := *s.artifacts[id]
	return &c, nil
}

func (s *Store) InsertArtifact(_ context.Context, item *models.Artifact) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := item.Key()
	if _, exists := s.byNaturalKey[key]; exists {
		return repository.ErrDuplicateKey
	}
	s.nextArtifactID++
	now := time.Now().UTC()
	item.ID = s.nextArtifactID
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.TokenType == "" {
		item.TokenType = models.TokenTypeUnknown
	}
	c := *item
	s.artifacts[item.ID] = &c
	s.byNaturalKey[key] = item.ID
	return nil
}

func (s *Store) UpdateArtifact(_ context.Context, item *models.Artifact) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.artifacts[item.ID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	cur.Network = item.Network
	cur.TokenType = item.TokenType
	cur.Balance = item.Balance
	cur.Title = item.Title
	cur.Description = item.Description
	cur.MediaURL = item.MediaURL
	cur.MediaType = item.MediaType
	cur.Metadata = item.Metadata
	cur.Attributes = item.Attributes
	cur.UpdatedAt = now
	item.UpdatedAt = now
	return nil
}

func (s *Store) DeleteArtifact(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deleteArtifactLocked(id) {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) deleteArtifactLocked(id uint64) bool {
	cur, ok := s.artifacts[id]
	if !ok {
		return false
	}
	delete(s.byNaturalKey, cur.Key())
	delete(s.artifacts, id)
	for k := range s.catalogItems {
		if k.artifactID == id {
			delete(s.catalogItems, k)
		}
	}
	return true
}

func (s *Store) GetArtifactByID(_ context.Context, id uint64) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.artifacts[id]
	if !ok {
		return nil, nil
	}
	c := *cur
	return &c, nil
}

func (s *Store) ListArtifacts(_ context.Context, params repository.ListArtifactsParams) ([]models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.filterArtifactsLocked(params)
	asc := params.Asc != nil && *params.Asc
	sort.Slice(items, func(i, j int) bool {
		if asc {
			return items[i].ID < items[j].ID
		}
		return items[i].ID > items[j].ID
	})
	return page(items, params.Limit, params.Offset, 200), nil
}

func (s *Store) CountArtifacts(_ context.Context, params repository.ListArtifactsParams) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterArtifactsLocked(params))), nil
}

func (s *Store) filterArtifactsLocked(params repository.ListArtifactsParams) []models.Artifact {
	out := make([]models.Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		if params.WalletID != nil && *params.WalletID != "" && a.WalletID != *params.WalletID {
			continue
		}
		if params.OwnerID != nil && *params.OwnerID != "" {
			w, ok := s.wallets[a.WalletID]
			if !ok || w.OwnerID != *params.OwnerID {
				continue
			}
		}
		if params.Network != nil && *params.Network != "" && a.Network != *params.Network {
			continue
		}
		if params.IsSpam != nil && a.IsSpam != *params.IsSpam {
			continue
		}
		out = append(out, *a)
	}
	return out
}

func (s *Store) SetArtifactSpam(_ context.Context, id uint64, spam bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.artifacts[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.IsSpam = spam
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

// --- wallets ----------------------------------------------------------------

func (s *Store) CreateWallet(_ context.Context, item *models.Wallet) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[item.ID]; exists {
		return repository.ErrDuplicateKey
	}
	for _, w := range s.wallets {
		if w.OwnerID == item.OwnerID && w.Address == item.Address {
			return repository.ErrDuplicateKey
		}
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	c := *item
	s.wallets[item.ID] = &c
	return nil
}

func (s *Store) GetWalletByID(_ context.Context, id string) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

func (s *Store) GetWalletByAddress(_ context.Context, ownerID, address string) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.OwnerID == ownerID && w.Address == address {
			c := *w
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) ListWallets(_ context.Context, params repository.ListWalletsParams) ([]models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		if params.OwnerID != nil && strings.TrimSpace(*params.OwnerID) != "" && w.OwnerID != strings.TrimSpace(*params.OwnerID) {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, params.Limit, params.Offset, 500), nil
}

func (s *Store) UpdateWalletNetworks(_ context.Context, id string, networks []string, ingestedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if networks == nil {
		networks = []string{}
	}
	b, _ := json.Marshal(networks)
	w.ActiveNetworks = datatypes.JSON(b)
	at := ingestedAt
	w.LastIngestedAt = &at
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteWallet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[id]; !ok {
		return repository.ErrNotFound
	}
	for artifactID, a := range s.artifacts {
		if a.WalletID == id {
			s.deleteArtifactLocked(artifactID)
		}
	}
	for k := range s.states {
		if k.walletID == id {
			delete(s.states, k)
		}
	}
	delete(s.wallets, id)
	return nil
}

// --- ingestion state --------------------------------------------------------

func (s *Store) GetIngestionState(_ context.Context, walletID, network string) (*models.IngestionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[stateKey{walletID, network}]
	if !ok {
		return nil, nil
	}
	c := *st
	return &c, nil
}

func (s *Store) SaveIngestionState(_ context.Context, state *models.IngestionState) error {
	if state == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *state
	s.states[stateKey{state.WalletID, state.Network}] = &c
	return nil
}

func (s *Store) ListIngestionStates(_ context.Context, walletID string) ([]models.IngestionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.IngestionState
	for k, st := range s.states {
		if k.walletID == walletID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Network < out[j].Network })
	return out, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	if item == nil {
		return nil
	}
	key := strings.TrimSpace(item.Key)
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if cur, ok := s.settings[key]; ok {
		cur.Value = item.Value
		cur.Description = item.Description
		cur.UpdatedAt = now
		return nil
	}
	s.nextSettingID++
	c := *item
	c.ID = s.nextSettingID
	c.Key = key
	c.CreatedAt = now
	c.UpdatedAt = now
	s.settings[key] = &c
	return nil
}

func (s *Store) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	c := *cur
	return &c, nil
}

func (s *Store) ListSystemSettings(_ context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SystemSetting, 0, len(s.settings))
	for key, cur := range s.settings {
		if params.Prefix != nil && !strings.HasPrefix(key, strings.TrimSpace(*params.Prefix)) {
			continue
		}
		out = append(out, *cur)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return page(out, params.Limit, params.Offset, 500), nil
}

// --- catalogs ---------------------------------------------------------------

func (s *Store) CreateCatalog(_ context.Context, item *models.Catalog) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextCatalogID++
	now := time.Now().UTC()
	item.ID = s.nextCatalogID
	item.CreatedAt = now
	item.UpdatedAt = now
	c := *item
	s.catalogs[item.ID] = &c
	return nil
}

func (s *Store) GetCatalogByID(_ context.Context, id uint64) (*models.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.catalogs[id]
	if !ok {
		return nil, nil
	}
	c := *cur
	return &c, nil
}

func (s *Store) AddCatalogItem(_ context.Context, catalogID, artifactID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := catalogItemKey{catalogID, artifactID}
	if _, ok := s.catalogItems[key]; ok {
		return nil
	}
	s.catalogItems[key] = &models.CatalogItem{CatalogID: catalogID, ArtifactID: artifactID, CreatedAt: time.Now().UTC()}
	return nil
}

func (s *Store) RemoveCatalogItem(_ context.Context, catalogID, artifactID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := catalogItemKey{catalogID, artifactID}
	if _, ok := s.catalogItems[key]; !ok {
		return repository.ErrNotFound
	}
	delete(s.catalogItems, key)
	return nil
}

func (s *Store) ListCatalogItems(_ context.Context, catalogID uint64) ([]models.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CatalogItem
	for k, item := range s.catalogItems {
		if k.catalogID == catalogID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArtifactID < out[j].ArtifactID })
	return out, nil
}

func page[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
