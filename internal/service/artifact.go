package service

import (
	"context"
	"strings"

	"nftvault/internal/auth"
	"nftvault/internal/models"
	"nftvault/internal/repository"
)

type ArtifactFilter struct {
	WalletID string
	Network  string
	Spam     *bool
	Limit    int
	Offset   int
	OrderBy  string
	Asc      *bool
}

// ArtifactService exposes the caller's artifacts and catalogs.
type ArtifactService struct {
	Repo repository.Repository
}

func (s *ArtifactService) List(ctx context.Context, f ArtifactFilter) ([]models.Artifact, int64, error) {
	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, 0, ErrUnauthenticated
	}
	params := repository.ListArtifactsParams{
		Limit:   f.Limit,
		Offset:  f.Offset,
		OwnerID: &owner,
		IsSpam:  f.Spam,
		OrderBy: f.OrderBy,
		Asc:     f.Asc,
	}
	if v := strings.TrimSpace(f.WalletID); v != "" {
		params.WalletID = &v
	}
	if v := strings.ToLower(strings.TrimSpace(f.Network)); v != "" {
		params.Network = &v
	}
	items, err := s.Repo.ListArtifacts(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountArtifacts(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns (nil, nil) for artifacts that are missing or not the caller's.
func (s *ArtifactService) Get(ctx context.Context, id uint64) (*models.Artifact, error) {
	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	item, err := s.Repo.GetArtifactByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	wallet, err := s.Repo.GetWalletByID(ctx, item.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet == nil || wallet.OwnerID != owner {
		return nil, nil
	}
	return item, nil
}

// SetSpam is the user override; later ingestions keep it.
func (s *ArtifactService) SetSpam(ctx context.Context, id uint64, spam bool) (*models.Artifact, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, repository.ErrNotFound
	}
	if err := s.Repo.SetArtifactSpam(ctx, id, spam); err != nil {
		return nil, err
	}
	item.IsSpam = spam
	return item, nil
}

func (s *ArtifactService) CreateCatalog(ctx context.Context, name, description string) (*models.Catalog, error) {
	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	item := &models.Catalog{
		OwnerID:     owner,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if err := s.Repo.CreateCatalog(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ArtifactService) AttachToCatalog(ctx context.Context, catalogID, artifactID uint64) error {
	if err := s.ownsCatalog(ctx, catalogID); err != nil {
		return err
	}
	item, err := s.Get(ctx, artifactID)
	if err != nil {
		return err
	}
	if item == nil {
		return repository.ErrNotFound
	}
	return s.Repo.AddCatalogItem(ctx, catalogID, artifactID)
}

func (s *ArtifactService) DetachFromCatalog(ctx context.Context, catalogID, artifactID uint64) error {
	if err := s.ownsCatalog(ctx, catalogID); err != nil {
		return err
	}
	return s.Repo.RemoveCatalogItem(ctx, catalogID, artifactID)
}

func (s *ArtifactService) CatalogItems(ctx context.Context, catalogID uint64) ([]models.CatalogItem, error) {
	if err := s.ownsCatalog(ctx, catalogID); err != nil {
		return nil, err
	}
	return s.Repo.ListCatalogItems(ctx, catalogID)
}

func (s *ArtifactService) ownsCatalog(ctx context.Context, catalogID uint64) error {
	owner, ok := auth.UserFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	catalog, err := s.Repo.GetCatalogByID(ctx, catalogID)
	if err != nil {
		return err
	}
	if catalog == nil || catalog.OwnerID != owner {
		return repository.ErrNotFound
	}
	return nil
}
