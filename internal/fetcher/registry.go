package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry routes a request to the Fetcher registered for its network,
// validating the address first and reporting progress asynchronously.
type Registry struct {
	Logger *zap.Logger

	mu        sync.RWMutex
	providers map[string]Fetcher
	progress  *ProgressQueue
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		Logger:    logger,
		providers: map[string]Fetcher{},
		progress:  NewProgressQueue(256),
	}
}

func (r *Registry) Register(network string, f Fetcher) {
	if r == nil || f == nil {
		return
	}
	r.mu.Lock()
	r.providers[strings.ToLower(strings.TrimSpace(network))] = f
	r.mu.Unlock()
}

func (r *Registry) Networks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Has(network string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[strings.ToLower(strings.TrimSpace(network))]
	return ok
}

func (r *Registry) Fetch(ctx context.Context, req FetchRequest) (Page, error) {
	network := strings.ToLower(strings.TrimSpace(req.Network))
	r.mu.RLock()
	f, ok := r.providers[network]
	r.mu.RUnlock()
	if !ok {
		return Page{}, &NetworkUnavailableError{Network: network, Err: fmt.Errorf("no provider configured")}
	}

	addr, err := NormalizeAddress(req.Address, FamilyForNetwork(network))
	if err != nil {
		if iae, ok := err.(*InvalidAddressError); ok {
			iae.Network = network
		}
		return Page{}, err
	}
	req.Address = addr
	req.Network = network

	page, err := f.Fetch(ctx, req)
	if err != nil {
		return Page{}, Unavailable(network, 0, err)
	}

	if req.OnProgress != nil {
		p := Progress{Network: network, Page: req.Page, Fetched: req.Fetched + len(page.Records), Total: page.Total}
		cb := req.OnProgress
		if !r.progress.Submit(func() { cb(p) }) && r.Logger != nil {
			r.Logger.Debug("progress callback dropped", zap.String("network", network))
		}
	}
	return page, nil
}

// Close stops the progress worker after draining queued callbacks.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.progress.Close()
}
