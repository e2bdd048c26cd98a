package media

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"nftvault/internal/cache"
)

// Resolution is a cached proxy outcome for one source URL.
type Resolution struct {
	Strategy string    `json:"strategy,omitempty"`
	URL      string    `json:"url,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// ResolutionCache memoizes proxy outcomes. Implementations must be safe for
// concurrent use.
type ResolutionCache interface {
	Success(ctx context.Context, rawURL string) (Resolution, bool)
	Failure(ctx context.Context, rawURL string) (Resolution, bool)
	RecordSuccess(ctx context.Context, rawURL string, r Resolution)
	RecordFailure(ctx context.Context, rawURL string, r Resolution)
	Forget(ctx context.Context, rawURL string)
}

// StoreCache keeps resolutions in a cache.Store (memory or redis). Store
// errors are logged and treated as misses.
type StoreCache struct {
	Store  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

func NewStoreCache(store cache.Store, ttl time.Duration, logger *zap.Logger) *StoreCache {
	return &StoreCache{Store: store, TTL: ttl, Logger: logger}
}

func (c *StoreCache) Success(ctx context.Context, rawURL string) (Resolution, bool) {
	return c.get(ctx, "ok:"+rawURL)
}

func (c *StoreCache) Failure(ctx context.Context, rawURL string) (Resolution, bool) {
	return c.get(ctx, "fail:"+rawURL)
}

func (c *StoreCache) RecordSuccess(ctx context.Context, rawURL string, r Resolution) {
	c.set(ctx, "ok:"+rawURL, r)
	c.del(ctx, "fail:"+rawURL)
}

func (c *StoreCache) RecordFailure(ctx context.Context, rawURL string, r Resolution) {
	c.set(ctx, "fail:"+rawURL, r)
}

func (c *StoreCache) Forget(ctx context.Context, rawURL string) {
	c.del(ctx, "ok:"+rawURL)
}

func (c *StoreCache) get(ctx context.Context, key string) (Resolution, bool) {
	if c == nil || c.Store == nil {
		return Resolution{}, false
	}
	b, ok, err := c.Store.Get(ctx, key)
	if err != nil {
		c.warn("resolution cache get failed", key, err)
		return Resolution{}, false
	}
	if !ok {
		return Resolution{}, false
	}
	var r Resolution
	if err := json.Unmarshal(b, &r); err != nil {
		return Resolution{}, false
	}
	return r, true
}

func (c *StoreCache) set(ctx context.Context, key string, r Resolution) {
	if c == nil || c.Store == nil {
		return
	}
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.Store.Set(ctx, key, b, c.TTL); err != nil {
		c.warn("resolution cache set failed", key, err)
	}
}

func (c *StoreCache) del(ctx context.Context, key string) {
	if c == nil || c.Store == nil {
		return
	}
	if err := c.Store.Delete(ctx, key); err != nil {
		c.warn("resolution cache delete failed", key, err)
	}
}

func (c *StoreCache) warn(msg, key string, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, zap.String("key", key), zap.Error(err))
	}
}

var _ ResolutionCache = (*StoreCache)(nil)
