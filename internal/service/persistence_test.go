package service

import (
	"context"
	"errors"
	"testing"

	"nftvault/internal/models"
	"nftvault/internal/repository"
	"nftvault/internal/repository/memory"
)

func artifact(wallet, contract, token, title string) models.Artifact {
	return models.Artifact{WalletID: wallet, Network: "eth", ContractAddress: contract, TokenID: token, TokenType: models.TokenTypeERC721, Title: title}
}

func TestUpsertBatch_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := &PersistenceSync{Repo: store, BatchSize: 2}
	batch := []models.Artifact{
		artifact("w1", "0x01", "1", "a"),
		artifact("w1", "0x01", "2", "b"),
		artifact("w1", "0x02", "1", "c"),
	}

	res, err := p.UpsertBatch(ctx, batch)
	if err != nil || res.Inserted != 3 || res.Updated != 0 || len(res.Errors) != 0 {
		t.Fatalf("first run res=%+v err=%v", res, err)
	}
	first, _ := store.FindArtifactByNaturalKey(ctx, "w1", "0x01", "1")
	if err := store.SetArtifactSpam(ctx, first.ID, true); err != nil {
		t.Fatalf("set spam: %v", err)
	}

	batch[0].Title = "renamed"
	res, err = p.UpsertBatch(ctx, batch)
	if err != nil || res.Inserted != 0 || res.Updated != 3 {
		t.Fatalf("second run res=%+v err=%v", res, err)
	}
	got, _ := store.FindArtifactByNaturalKey(ctx, "w1", "0x01", "1")
	if got.ID != first.ID || got.Title != "renamed" || !got.IsSpam || !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("update lost identity fields: %+v", got)
	}
	n, _ := store.CountArtifacts(ctx, repository.ListArtifactsParams{})
	if n != 3 {
		t.Fatalf("rows=%d want 3", n)
	}
}

// racingRepo hides the row from the first lookup so the insert collides.
type racingRepo struct {
	*memory.Store
	lookups int
}

func (r *racingRepo) FindArtifactByNaturalKey(ctx context.Context, walletID, contract, token string) (*models.Artifact, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.Store.FindArtifactByNaturalKey(ctx, walletID, contract, token)
}

func TestUpsertBatch_DuplicateInsertRetriedAsUpdate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed := artifact("w1", "0x01", "1", "old")
	if err := store.InsertArtifact(ctx, &seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p := &PersistenceSync{Repo: &racingRepo{Store: store}}

	res, err := p.UpsertBatch(ctx, []models.Artifact{artifact("w1", "0x01", "1", "new")})
	if err != nil || res.Inserted != 0 || res.Updated != 1 || len(res.Errors) != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	got, _ := store.FindArtifactByNaturalKey(ctx, "w1", "0x01", "1")
	if got.Title != "new" {
		t.Fatalf("title=%q", got.Title)
	}
}

type failingUpdateRepo struct {
	*memory.Store
}

func (r failingUpdateRepo) UpdateArtifact(context.Context, *models.Artifact) error {
	return errors.New("disk full")
}

func TestUpsertBatch_FailureDoesNotAbortSiblings(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed := artifact("w1", "0x01", "1", "old")
	_ = store.InsertArtifact(ctx, &seed)
	p := &PersistenceSync{Repo: failingUpdateRepo{Store: store}}

	res, err := p.UpsertBatch(ctx, []models.Artifact{
		artifact("w1", "0x01", "1", "new"),
		artifact("w1", "0x01", "2", "fresh"),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.Inserted != 1 || len(res.Errors) != 1 {
		t.Fatalf("res=%+v", res)
	}
	var conflict *PersistenceConflictError
	if !errors.As(res.Errors[0], &conflict) || conflict.Key.TokenID != "1" {
		t.Fatalf("error=%v", res.Errors[0])
	}
}

func TestUpsertBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &PersistenceSync{Repo: memory.New()}
	if _, err := p.UpsertBatch(ctx, []models.Artifact{artifact("w", "c", "1", "t")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestPersistenceSync_BatchSizeClamped(t *testing.T) {
	for size, want := range map[int]int{0: 100, -5: 100, 1: 1, 50: 50, 1000: 100} {
		if got := (&PersistenceSync{BatchSize: size}).batchSize(); got != want {
			t.Fatalf("batch %d => %d want %d", size, got, want)
		}
	}
}
