// Package fetcher lists the raw artifacts held by one address on one network.
package fetcher

import (
	"context"
)

// RawRecord is one provider-specific artifact object, decoded with
// json.Decoder.UseNumber so numeric token ids survive intact.
type RawRecord map[string]any

// Page is one page of a listing. An empty Cursor means the listing is done.
type Page struct {
	Records []RawRecord
	Cursor  string
	Total   int
}

// Progress reports a finished page. Fetched is the running record count for
// the network so far, including that page.
type Progress struct {
	Network string
	Page    int
	Fetched int
	Total   int
}

type ProgressFunc func(Progress)

type FetchRequest struct {
	Address  string
	Network  string
	Cursor   string
	PageSize int
	// Page is the 1-based page number within the current listing run.
	Page int
	// Fetched counts records already read on earlier pages of this run.
	Fetched    int
	OnProgress ProgressFunc
}

// Fetcher returns one page. Errors are *InvalidAddressError (permanent) or
// *NetworkUnavailableError (transient).
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (Page, error)
}
