package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nftvault/internal/models"
	"nftvault/internal/repository"
)

const maxUpsertBatch = 100

type UpsertResult struct {
	Inserted int     `json:"inserted"`
	Updated  int     `json:"updated"`
	Errors   []error `json:"-"`
}

// PersistenceConflictError is one artifact that could not be written.
type PersistenceConflictError struct {
	Key models.NaturalKey
	Err error
}

func (e *PersistenceConflictError) Error() string {
	return fmt.Sprintf("persist %s/%s/%s: %v", e.Key.WalletID, e.Key.ContractAddress, e.Key.TokenID, e.Err)
}

func (e *PersistenceConflictError) Unwrap() error {
	return e.Err
}

// PersistenceSync writes artifacts by natural key, updating rows that exist
// and inserting the rest.
type PersistenceSync struct {
	Repo      repository.ArtifactRepository
	Logger    *zap.Logger
	BatchSize int
}

// UpsertBatch never aborts on a single artifact; failures are collected in
// the result. The returned error is only set when ctx ends mid-run.
func (p *PersistenceSync) UpsertBatch(ctx context.Context, artifacts []models.Artifact) (UpsertResult, error) {
	var result UpsertResult
	if p == nil || p.Repo == nil || len(artifacts) == 0 {
		return result, nil
	}
	size := p.batchSize()
	for start := 0; start < len(artifacts); start += size {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := start + size
		if end > len(artifacts) {
			end = len(artifacts)
		}
		for i := start; i < end; i++ {
			inserted, err := p.upsertOne(ctx, artifacts[i])
			if err != nil {
				conflict := &PersistenceConflictError{Key: artifacts[i].Key(), Err: err}
				result.Errors = append(result.Errors, conflict)
				if p.Logger != nil {
					p.Logger.Warn("artifact upsert failed",
						zap.String("wallet_id", conflict.Key.WalletID),
						zap.String("contract", conflict.Key.ContractAddress),
						zap.String("token_id", conflict.Key.TokenID),
						zap.Error(err),
					)
				}
				continue
			}
			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		if p.Logger != nil {
			p.Logger.Debug("artifact batch persisted", zap.Int("from", start), zap.Int("to", end))
		}
	}
	return result, nil
}

func (p *PersistenceSync) batchSize() int {
	size := p.BatchSize
	if size < 1 || size > maxUpsertBatch {
		size = maxUpsertBatch
	}
	return size
}

func (p *PersistenceSync) upsertOne(ctx context.Context, item models.Artifact) (bool, error) {
	existing, err := p.Repo.FindArtifactByNaturalKey(ctx, item.WalletID, item.ContractAddress, item.TokenID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, p.update(ctx, existing, item)
	}

	item.ID = 0
	err = p.Repo.InsertArtifact(ctx, &item)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return false, err
	}
	// Lost an insert race; the row exists now.
	existing, err = p.Repo.FindArtifactByNaturalKey(ctx, item.WalletID, item.ContractAddress, item.TokenID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, repository.ErrDuplicateKey
	}
	return false, p.update(ctx, existing, item)
}

func (p *PersistenceSync) update(ctx context.Context, existing *models.Artifact, item models.Artifact) error {
	item.ID = existing.ID
	item.IsSpam = existing.IsSpam
	item.CreatedAt = existing.CreatedAt
	return p.Repo.UpdateArtifact(ctx, &item)
}
