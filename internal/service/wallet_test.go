package service

import (
	"context"
	"errors"
	"testing"

	"nftvault/internal/auth"
	"nftvault/internal/fetcher"
	"nftvault/internal/repository"
	"nftvault/internal/repository/memory"
)

func newWalletService() (*WalletService, *ArtifactService, *memory.Store, *fetcher.Fixture) {
	store := memory.New()
	fx := fetcher.NewFixture()
	ingest := &IngestService{
		Fetcher:     fx,
		Normalizer:  &Normalizer{},
		Persistence: &PersistenceSync{Repo: store},
		Wallets:     store,
		States:      store,
		Networks:    []string{"eth"},
	}
	return &WalletService{Repo: store, Ingest: ingest}, &ArtifactService{Repo: store}, store, fx
}

func TestWalletService_AddListRemove(t *testing.T) {
	wallets, artifacts, store, fx := newWalletService()
	fx.AddPage("eth", record("0xaa", "1", "a"), record("0xaa", "2", "b"))
	alice := auth.WithUser(context.Background(), "alice")
	bob := auth.WithUser(context.Background(), "bob")

	w, res, err := wallets.AddWallet(alice, AddWalletInput{Address: evmAddress, Nickname: " main "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if w.Address != "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed" || w.Nickname != "main" {
		t.Fatalf("wallet=%+v", w)
	}
	if res == nil || res.Inserted != 2 {
		t.Fatalf("first ingest=%+v", res)
	}
	if got := ActiveNetworks(w); len(got) != 1 || got[0] != "eth" {
		t.Fatalf("active networks=%v", got)
	}

	if _, _, err := wallets.AddWallet(alice, AddWalletInput{Address: evmAddress}); !errors.Is(err, ErrWalletExists) || !errors.Is(err, repository.ErrDuplicateKey) {
		t.Fatalf("duplicate add err=%v", err)
	}
	if _, _, err := wallets.AddWallet(context.Background(), AddWalletInput{Address: evmAddress}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous add err=%v", err)
	}

	if got, _ := wallets.GetWallet(bob, w.ID); got != nil {
		t.Fatalf("bob can see alice's wallet")
	}
	if err := wallets.RemoveWallet(bob, w.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("bob remove err=%v", err)
	}

	items, total, err := artifacts.List(alice, ArtifactFilter{WalletID: w.ID})
	if err != nil || total != 2 || len(items) != 2 {
		t.Fatalf("items=%d total=%d err=%v", len(items), total, err)
	}
	if _, total, _ := artifacts.List(bob, ArtifactFilter{}); total != 0 {
		t.Fatalf("bob sees %d artifacts", total)
	}

	if err := wallets.RemoveWallet(alice, w.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	n, _ := store.CountArtifacts(context.Background(), repository.ListArtifactsParams{})
	if n != 0 {
		t.Fatalf("artifacts left after remove: %d", n)
	}
}

func TestWalletService_InvalidAddress(t *testing.T) {
	wallets, _, _, _ := newWalletService()
	ctx := auth.WithUser(context.Background(), "alice")
	_, _, err := wallets.AddWallet(ctx, AddWalletInput{Address: "0xnothex"})
	var iae *fetcher.InvalidAddressError
	if !errors.As(err, &iae) {
		t.Fatalf("err=%v", err)
	}
}

func TestWalletService_RefreshAll(t *testing.T) {
	wallets, _, _, fx := newWalletService()
	fx.AddPage("eth", record("0xaa", "1", "a"))
	for _, user := range []string{"alice", "bob"} {
		if _, _, err := wallets.AddWallet(auth.WithUser(context.Background(), user), AddWalletInput{Address: evmAddress}); err != nil {
			t.Fatalf("add for %s: %v", user, err)
		}
	}
	summary, err := wallets.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("refresh all: %v", err)
	}
	if summary.Wallets != 2 || summary.Ingested != 2 || summary.Failed != 0 {
		t.Fatalf("summary=%+v", summary)
	}
}

func TestArtifactService_SpamAndCatalogs(t *testing.T) {
	wallets, artifacts, _, fx := newWalletService()
	fx.AddPage("eth", record("0xaa", "1", "a"))
	alice := auth.WithUser(context.Background(), "alice")
	bob := auth.WithUser(context.Background(), "bob")
	if _, _, err := wallets.AddWallet(alice, AddWalletInput{Address: evmAddress}); err != nil {
		t.Fatalf("add: %v", err)
	}
	items, _, _ := artifacts.List(alice, ArtifactFilter{})
	id := items[0].ID

	if _, err := artifacts.SetSpam(bob, id, true); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("bob set spam err=%v", err)
	}
	got, err := artifacts.SetSpam(alice, id, true)
	if err != nil || !got.IsSpam {
		t.Fatalf("set spam: %+v %v", got, err)
	}
	spam := false
	if _, total, _ := artifacts.List(alice, ArtifactFilter{Spam: &spam}); total != 0 {
		t.Fatalf("spam filter returned %d", total)
	}

	catalog, err := artifacts.CreateCatalog(alice, "Favourites", "")
	if err != nil {
		t.Fatalf("create catalog: %v", err)
	}
	if err := artifacts.AttachToCatalog(alice, catalog.ID, id); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := artifacts.AttachToCatalog(bob, catalog.ID, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("bob attach err=%v", err)
	}
	links, _ := artifacts.CatalogItems(alice, catalog.ID)
	if len(links) != 1 || links[0].ArtifactID != id {
		t.Fatalf("links=%+v", links)
	}
	if err := artifacts.DetachFromCatalog(alice, catalog.ID, id); err != nil {
		t.Fatalf("detach: %v", err)
	}
}
