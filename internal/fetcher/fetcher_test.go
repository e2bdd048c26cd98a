package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"nftvault/internal/models"
)

const (
	evmAddr    = "0xAbC0000000000000000000000000000000000001"
	solanaAddr = "So11111111111111111111111111111111111111112"
)

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		name    string
		address string
		family  string
		want    string
		wantErr bool
	}{
		{name: "evm lowercased", address: evmAddr, family: models.ChainFamilyEVM, want: "0xabc0000000000000000000000000000000000001"},
		{name: "evm trims", address: "  " + evmAddr + " ", family: models.ChainFamilyEVM, want: "0xabc0000000000000000000000000000000000001"},
		{name: "evm missing prefix", address: evmAddr[2:], family: models.ChainFamilyEVM, wantErr: true},
		{name: "evm short", address: "0x1234", family: models.ChainFamilyEVM, wantErr: true},
		{name: "solana verbatim", address: solanaAddr, family: models.ChainFamilySolana, want: solanaAddr},
		{name: "solana bad alphabet", address: "0OIl" + solanaAddr[4:], family: models.ChainFamilySolana, wantErr: true},
		{name: "evm address on solana", address: evmAddr, family: models.ChainFamilySolana, wantErr: true},
		{name: "empty", address: "", family: models.ChainFamilyEVM, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeAddress(tc.address, tc.family)
			if tc.wantErr {
				if !IsInvalidAddress(err) {
					t.Fatalf("err=%v want InvalidAddressError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err=%v", err)
			}
			if got != tc.want {
				t.Fatalf("got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestDetectFamily(t *testing.T) {
	if fam, ok := DetectFamily(evmAddr); !ok || fam != models.ChainFamilyEVM {
		t.Fatalf("evm: fam=%q ok=%v", fam, ok)
	}
	if fam, ok := DetectFamily(solanaAddr); !ok || fam != models.ChainFamilySolana {
		t.Fatalf("solana: fam=%q ok=%v", fam, ok)
	}
	if _, ok := DetectFamily("vitalik.eth"); ok {
		t.Fatalf("ens name should not be detected")
	}
}

func TestRegistry_UnknownNetworkIsUnavailable(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()
	_, err := r.Fetch(context.Background(), FetchRequest{Address: evmAddr, Network: "zksync"})
	var nue *NetworkUnavailableError
	if !errors.As(err, &nue) || nue.Network != "zksync" {
		t.Fatalf("err=%v want NetworkUnavailableError", err)
	}
}

func TestRegistry_InvalidAddressSkipsProvider(t *testing.T) {
	fx := NewFixture().AddPage("eth", RawRecord{"tokenId": "1"})
	r := NewRegistry(nil)
	defer r.Close()
	r.Register("eth", fx)

	_, err := r.Fetch(context.Background(), FetchRequest{Address: "not-an-address", Network: "eth"})
	var iae *InvalidAddressError
	if !errors.As(err, &iae) || iae.Network != "eth" {
		t.Fatalf("err=%v want InvalidAddressError on eth", err)
	}
	if fx.Calls("eth") != 0 {
		t.Fatalf("provider called %d times", fx.Calls("eth"))
	}
}

func TestRegistry_ProgressIsAsync(t *testing.T) {
	fx := NewFixture().AddPage("eth", RawRecord{"tokenId": "1"}, RawRecord{"tokenId": "2"})
	r := NewRegistry(nil)
	defer r.Close()
	r.Register("eth", fx)

	release := make(chan struct{})
	got := make(chan Progress, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.Fetch(context.Background(), FetchRequest{
			Address: evmAddr,
			Network: "eth",
			Page:    1,
			OnProgress: func(p Progress) {
				<-release
				got <- p
			},
		})
		if err != nil {
			t.Errorf("fetch: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch blocked on progress callback")
	}
	close(release)
	select {
	case p := <-got:
		if p.Fetched != 2 || p.Network != "eth" || p.Page != 1 {
			t.Fatalf("progress=%+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("progress callback never ran")
	}
}

func TestFixture_Pagination(t *testing.T) {
	fx := NewFixture().
		AddPage("polygon", RawRecord{"tokenId": "1"}).
		AddPage("polygon", RawRecord{"tokenId": "2"}, RawRecord{"tokenId": "3"})
	ctx := context.Background()

	first, err := fx.Fetch(ctx, FetchRequest{Network: "polygon"})
	if err != nil || len(first.Records) != 1 || first.Cursor != "1" || first.Total != 3 {
		t.Fatalf("first=%+v err=%v", first, err)
	}
	second, err := fx.Fetch(ctx, FetchRequest{Network: "polygon", Cursor: first.Cursor})
	if err != nil || len(second.Records) != 2 || second.Cursor != "" {
		t.Fatalf("second=%+v err=%v", second, err)
	}
}

func TestFixture_FailAfter(t *testing.T) {
	fx := NewFixture().
		AddPage("eth", RawRecord{"tokenId": "1"}).
		AddPage("eth", RawRecord{"tokenId": "2"}).
		FailAfter("eth", 1, errors.New("rpc 503"))
	ctx := context.Background()

	first, err := fx.Fetch(ctx, FetchRequest{Network: "eth"})
	if err != nil {
		t.Fatalf("first page should succeed: %v", err)
	}
	_, err = fx.Fetch(ctx, FetchRequest{Network: "eth", Cursor: first.Cursor})
	var nue *NetworkUnavailableError
	if !errors.As(err, &nue) {
		t.Fatalf("err=%v want NetworkUnavailableError", err)
	}
}

func TestUnavailable_KeepsTypedErrors(t *testing.T) {
	iae := &InvalidAddressError{Address: "x", Reason: "bad"}
	if got := Unavailable("eth", 400, iae); got != error(iae) {
		t.Fatalf("invalid address should pass through, got %v", got)
	}
	wrapped := Unavailable("eth", 503, errors.New("down"))
	again := Unavailable("eth", 0, wrapped)
	if again != wrapped {
		t.Fatalf("double wrap")
	}
}

func TestRegistry_ProgressCountsEarlierPages(t *testing.T) {
	fx := NewFixture().AddPage("eth", RawRecord{"tokenId": "1"}, RawRecord{"tokenId": "2"})
	r := NewRegistry(nil)
	r.Register("eth", fx)

	var got Progress
	_, err := r.Fetch(context.Background(), FetchRequest{
		Address:    evmAddr,
		Network:    "eth",
		Page:       3,
		Fetched:    5,
		OnProgress: func(p Progress) { got = p },
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	r.Close()
	if got.Fetched != 7 || got.Page != 3 {
		t.Fatalf("progress=%+v want fetched 7", got)
	}
}

func TestProgressQueue_DropsWhenFull(t *testing.T) {
	q := NewProgressQueue(1)
	block := make(chan struct{})
	started := make(chan struct{})
	q.Submit(func() { close(started); <-block })
	<-started
	if !q.Submit(func() {}) {
		t.Fatalf("buffer slot should accept one callback")
	}
	if q.Submit(func() {}) {
		t.Fatalf("full queue must not accept more callbacks")
	}
	close(block)
	q.Close()
	if q.Submit(func() {}) {
		t.Fatalf("closed queue accepted a callback")
	}
}
