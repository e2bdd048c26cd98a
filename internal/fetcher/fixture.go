package fetcher

import (
	"context"
	"strconv"
	"sync"
)

// Fixture is a deterministic in-memory Fetcher. Pages are keyed by network;
// the cursor is the index of the next page.
type Fixture struct {
	mu     sync.Mutex
	pages  map[string][][]RawRecord
	errors map[string]error
	calls  map[string]int
}

func NewFixture() *Fixture {
	return &Fixture{
		pages:  map[string][][]RawRecord{},
		errors: map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *Fixture) AddPage(network string, records ...RawRecord) *Fixture {
	f.mu.Lock()
	f.pages[network] = append(f.pages[network], records)
	f.mu.Unlock()
	return f
}

// Fail makes every fetch for network fail.
func (f *Fixture) Fail(network string, err error) *Fixture {
	f.mu.Lock()
	f.errors[network] = err
	f.mu.Unlock()
	return f
}

func (f *Fixture) Calls(network string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[network]
}

func (f *Fixture) Fetch(ctx context.Context, req FetchRequest) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, Unavailable(req.Network, 0, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Network]++

	idx := 0
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil || n < 0 {
			return Page{}, &NetworkUnavailableError{Network: req.Network, Err: err}
		}
		idx = n
	}
	if err, ok := f.errors[req.Network]; ok {
		if fe, ok := err.(*pageError); !ok || idx >= fe.after {
			return Page{}, Unavailable(req.Network, 0, err)
		}
	}
	pages := f.pages[req.Network]
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	if idx >= len(pages) {
		return Page{Total: total}, nil
	}
	out := make([]RawRecord, len(pages[idx]))
	copy(out, pages[idx])
	page := Page{Records: out, Total: total}
	if idx+1 < len(pages) {
		page.Cursor = strconv.Itoa(idx + 1)
	}
	return page, nil
}

type pageError struct {
	after int
	err   error
}

func (e *pageError) Error() string { return e.err.Error() }
func (e *pageError) Unwrap() error { return e.err }

// FailAfter makes fetches for network fail once the page index reaches after.
func (f *Fixture) FailAfter(network string, after int, err error) *Fixture {
	return f.Fail(network, &pageError{after: after, err: err})
}

var _ Fetcher = (*Fixture)(nil)
var _ Fetcher = (*Registry)(nil)
