package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nftvault/internal/models"
	"nftvault/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- artifacts --------------------------------------------------------------

func (s *Store) FindArtifactByNaturalKey(ctx context.Context, walletID, contractAddress, tokenID string) (*models.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Artifact
	err := s.db.WithContext(ctx).
		Where("wallet_id = ? AND contract_address = ? AND token_id = ?", walletID, contractAddress, tokenID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertArtifact(ctx context.Context, item *models.Artifact) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translateError(s.db.WithContext(ctx).Create(item).Error)
}

// UpdateArtifact rewrites the ingested fields of an existing row. id,
// is_spam and created_at are never touched.
func (s *Store) UpdateArtifact(ctx context.Context, item *models.Artifact) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Artifact{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"network":     item.Network,
			"token_type":  item.TokenType,
			"balance":     item.Balance,
			"title":       item.Title,
			"description": item.Description,
			"media_url":   item.MediaURL,
			"media_type":  item.MediaType,
			"metadata":    item.Metadata,
			"attributes":  item.Attributes,
			"updated_at":  now,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	item.UpdatedAt = now
	return nil
}

func (s *Store) DeleteArtifact(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("artifact_id = ?", id).Delete(&models.CatalogItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Artifact{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (s *Store) GetArtifactByID(ctx context.Context, id uint64) (*models.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Artifact
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListArtifacts(ctx context.Context, params repository.ListArtifactsParams) ([]models.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.artifactQuery(ctx, params)
	query = applyOrder(query, artifactOrderColumn(params.OrderBy), params.Asc, "id")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Artifact
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountArtifacts(ctx context.Context, params repository.ListArtifactsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.artifactQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) artifactQuery(ctx context.Context, params repository.ListArtifactsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Artifact{})
	if params.WalletID != nil && strings.TrimSpace(*params.WalletID) != "" {
		query = query.Where("wallet_id = ?", strings.TrimSpace(*params.WalletID))
	}
	if params.OwnerID != nil && strings.TrimSpace(*params.OwnerID) != "" {
		owned := s.db.Model(&models.Wallet{}).Select("id").Where("owner_id = ?", strings.TrimSpace(*params.OwnerID))
		query = query.Where("wallet_id IN (?)", owned)
	}
	if params.Network != nil && strings.TrimSpace(*params.Network) != "" {
		query = query.Where("network = ?", strings.TrimSpace(*params.Network))
	}
	if params.IsSpam != nil {
		query = query.Where("is_spam = ?", *params.IsSpam)
	}
	return query
}

func artifactOrderColumn(orderBy string) string {
	switch strings.TrimSpace(orderBy) {
	case "id", "title", "network", "created_at", "updated_at", "contract_address":
		return strings.TrimSpace(orderBy)
	default:
		return ""
	}
}

func (s *Store) SetArtifactSpam(ctx context.Context, id uint64, spam bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Artifact{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_spam": spam, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// --- wallets ----------------------------------------------------------------

func (s *Store) CreateWallet(ctx context.Context, item *models.Wallet) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translateError(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetWalletByID(ctx context.Context, id string) (*models.Wallet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Wallet
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetWalletByAddress(ctx context.Context, ownerID, address string) (*models.Wallet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Wallet
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND address = ?", ownerID, address).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListWallets(ctx context.Context, params repository.ListWalletsParams) ([]models.Wallet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Wallet{})
	if params.OwnerID != nil && strings.TrimSpace(*params.OwnerID) != "" {
		query = query.Where("owner_id = ?", strings.TrimSpace(*params.OwnerID))
	}
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.Wallet
	if err := query.Order("created_at asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateWalletNetworks(ctx context.Context, id string, networks []string, ingestedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active_networks":  mustJSON(networks),
			"last_ingested_at": ingestedAt,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteWallet(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		owned := tx.Model(&models.Artifact{}).Select("id").Where("wallet_id = ?", id)
		if err := tx.Where("artifact_id IN (?)", owned).Delete(&models.CatalogItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("wallet_id = ?", id).Delete(&models.Artifact{}).Error; err != nil {
			return err
		}
		if err := tx.Where("wallet_id = ?", id).Delete(&models.IngestionState{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Wallet{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// --- ingestion state --------------------------------------------------------

func (s *Store) GetIngestionState(ctx context.Context, walletID, network string) (*models.IngestionState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.IngestionState
	err := s.db.WithContext(ctx).First(&state, "wallet_id = ? AND network = ?", walletID, network).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveIngestionState(ctx context.Context, state *models.IngestionState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_id"}, {Name: "network"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cursor",
			"last_attempt_at",
			"last_success_at",
			"last_error",
			"artifact_count",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListIngestionStates(ctx context.Context, walletID string) ([]models.IngestionState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.IngestionState
	if err := s.db.WithContext(ctx).Where("wallet_id = ?", walletID).Order("network asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	orderBy := ""
	if params.OrderBy == "key" || params.OrderBy == "updated_at" {
		orderBy = params.OrderBy
	}
	asc := params.Asc
	if asc == nil {
		t := true
		asc = &t
	}
	query = applyOrder(query, orderBy, asc, "key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- catalogs ---------------------------------------------------------------

func (s *Store) CreateCatalog(ctx context.Context, item *models.Catalog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translateError(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetCatalogByID(ctx context.Context, id uint64) (*models.Catalog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Catalog
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) AddCatalogItem(ctx context.Context, catalogID, artifactID uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	item := &models.CatalogItem{CatalogID: catalogID, ArtifactID: artifactID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error
}

func (s *Store) RemoveCatalogItem(ctx context.Context, catalogID, artifactID uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).
		Where("catalog_id = ? AND artifact_id = ?", catalogID, artifactID).
		Delete(&models.CatalogItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListCatalogItems(ctx context.Context, catalogID uint64) ([]models.CatalogItem, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CatalogItem
	if err := s.db.WithContext(ctx).Where("catalog_id = ?", catalogID).Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
