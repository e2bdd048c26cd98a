package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	StrategyDirect        = "direct"
	StrategyAuthenticated = "authenticated"
	StrategyGateway       = "gateway"

	DefaultAttemptTimeout = 10 * time.Second
	DefaultAuthHeader     = "x-api-key"

	defaultRateLimitCooldown = time.Minute
	lowQuotaRatio            = 0.10
)

func fallbackStrategy(i int) string {
	return "fallback[" + strconv.Itoa(i) + "]"
}

// AttemptObserver receives one call per strategy attempt; outcome is
// "success", "failure", "rate_limited" or "timeout".
type AttemptObserver interface {
	ObserveProxyAttempt(strategy, outcome string)
}

// ProxyOptions configures a ProxyChain. BlockPrivateNetworks refuses literal
// loopback, private and link-local targets before any attempt; pair it with
// NewGuardedClient so hostnames resolving into those ranges fail at dial time.
type ProxyOptions struct {
	AuthBaseURL          string
	AuthAPIKey           string
	AuthHeader           string
	Timeout              time.Duration
	FallbackTemplates    []string
	CORSRestrictedHosts  []string
	UserAgent            string
	Resolver             Resolver
	BlockPrivateNetworks bool
}

type FetchOptions struct {
	// Method defaults to GET.
	Method string
	Header http.Header
	// URLOnly answers from the success cache alone. A miss fails without
	// issuing any request.
	URLOnly bool
}

// Result is a successful fetch. Response is nil for URLOnly cache hits;
// otherwise the caller must close Response.Body.
type Result struct {
	Response *http.Response
	URL      string
	Strategy string
	// Opaque marks a last-resort gateway response, meant to be used as a src.
	Opaque bool
	Cached bool
}

type Attempt struct {
	Strategy string
	URL      string
	Status   int
	Err      error
}

// ProxyExhaustedError is returned once every strategy has failed.
type ProxyExhaustedError struct {
	URL      string
	Attempts []Attempt
}

func (e *ProxyExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("no proxy strategy applicable for %q", e.URL)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Strategy+": "+a.reason())
	}
	return fmt.Sprintf("all proxy strategies failed for %q: %s", e.URL, strings.Join(parts, "; "))
}

func (e *ProxyExhaustedError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			out = append(out, a.Err)
		}
	}
	return out
}

func (a Attempt) reason() string {
	if a.Err != nil {
		return a.Err.Error()
	}
	return "status " + strconv.Itoa(a.Status)
}

// ProxyChain fetches media through direct, authenticated, public fallback and
// IPFS gateway strategies, in that order, stopping at the first success.
type ProxyChain struct {
	httpClient *http.Client
	opts       ProxyOptions
	cache      ResolutionCache
	observer   AttemptObserver
	logger     *zap.Logger
	restricted []string

	mu            sync.Mutex
	cooldownUntil time.Time
	now           func() time.Time
}

func NewProxyChain(httpClient *http.Client, opts ProxyOptions, cache ResolutionCache, observer AttemptObserver, logger *zap.Logger) *ProxyChain {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAttemptTimeout
	}
	if strings.TrimSpace(opts.AuthHeader) == "" {
		opts.AuthHeader = DefaultAuthHeader
	}
	if opts.Resolver.IPFSGateway == "" || opts.Resolver.ArweaveGateway == "" {
		opts.Resolver = NewResolver(opts.Resolver.IPFSGateway, opts.Resolver.ArweaveGateway)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	restricted := make([]string, 0, len(opts.CORSRestrictedHosts))
	for _, h := range opts.CORSRestrictedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			restricted = append(restricted, h)
		}
	}
	return &ProxyChain{
		httpClient: httpClient,
		opts:       opts,
		cache:      cache,
		observer:   observer,
		logger:     logger,
		restricted: restricted,
		now:        time.Now,
	}
}

type candidate struct {
	strategy string
	target   string
	opaque   bool
}

func (p *ProxyChain) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, &ProxyExhaustedError{URL: rawURL}
	}
	if err := CheckTarget(rawURL, p.opts.BlockPrivateNetworks); err != nil {
		return nil, err
	}

	hit, cached := p.cachedSuccess(ctx, rawURL)
	if opts.URLOnly {
		if !cached {
			return nil, &ProxyExhaustedError{URL: rawURL}
		}
		return &Result{URL: hit.URL, Strategy: hit.Strategy, Opaque: hit.Strategy == StrategyGateway, Cached: true}, nil
	}
	if cached {
		c := candidate{strategy: hit.Strategy, target: hit.URL, opaque: hit.Strategy == StrategyGateway}
		if res, _ := p.attempt(ctx, c, opts); res != nil {
			res.Cached = true
			return res, nil
		}
		p.logger.Info("cached proxy resolution went stale", zap.String("url", rawURL), zap.String("strategy", hit.Strategy))
		if p.cache != nil {
			p.cache.Forget(ctx, rawURL)
		}
	}
	if p.cache != nil {
		if prev, ok := p.cache.Failure(ctx, rawURL); ok {
			p.logger.Debug("retrying previously failed url",
				zap.String("url", rawURL),
				zap.String("reason", prev.Reason),
				zap.Time("failed_at", prev.At),
			)
		}
	}

	var attempts []Attempt
	for _, c := range p.candidates(rawURL) {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Strategy: c.strategy, URL: c.target, Err: err})
			break
		}
		res, a := p.attempt(ctx, c, opts)
		if res != nil {
			if p.cache != nil {
				p.cache.RecordSuccess(ctx, rawURL, Resolution{Strategy: c.strategy, URL: c.target, At: p.now().UTC()})
			}
			return res, nil
		}
		attempts = append(attempts, a)
	}

	exhausted := &ProxyExhaustedError{URL: rawURL, Attempts: attempts}
	if p.cache != nil {
		p.cache.RecordFailure(ctx, rawURL, Resolution{Reason: exhausted.Error(), At: p.now().UTC()})
	}
	return nil, exhausted
}

func (p *ProxyChain) cachedSuccess(ctx context.Context, rawURL string) (Resolution, bool) {
	if p.cache == nil {
		return Resolution{}, false
	}
	hit, ok := p.cache.Success(ctx, rawURL)
	if !ok || hit.URL == "" {
		return Resolution{}, false
	}
	return hit, true
}

func (p *ProxyChain) candidates(rawURL string) []candidate {
	resolved := p.opts.Resolver.Resolve(rawURL)
	var out []candidate

	if !IsContentAddressed(rawURL) && !p.isRestricted(rawURL) {
		out = append(out, candidate{strategy: StrategyDirect, target: rawURL})
	}
	if p.opts.AuthAPIKey != "" && p.opts.AuthBaseURL != "" {
		if p.coolingDown() {
			p.logger.Debug("authenticated proxy cooling down", zap.String("url", rawURL))
		} else {
			out = append(out, candidate{strategy: StrategyAuthenticated, target: ExpandTemplate(p.opts.AuthBaseURL, resolved)})
		}
	}
	for i, tpl := range p.opts.FallbackTemplates {
		if strings.TrimSpace(tpl) == "" {
			continue
		}
		out = append(out, candidate{strategy: fallbackStrategy(i), target: ExpandTemplate(tpl, resolved)})
	}
	if cid, ok := IPFSPath(rawURL); ok {
		out = append(out, candidate{strategy: StrategyGateway, target: p.opts.Resolver.IPFSGateway + cid, opaque: true})
	}
	return out
}

// attempt runs one strategy. On success the response body owns the attempt
// context and releases it on Close.
func (p *ProxyChain) attempt(ctx context.Context, c candidate, opts FetchOptions) (*Result, Attempt) {
	a := Attempt{Strategy: c.strategy, URL: c.target}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	actx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	req, err := http.NewRequestWithContext(actx, method, c.target, nil)
	if err != nil {
		cancel()
		a.Err = err
		p.observe(c.strategy, "failure")
		return nil, a
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if p.opts.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", p.opts.UserAgent)
	}
	if c.strategy == StrategyAuthenticated {
		req.Header.Set(p.opts.AuthHeader, p.opts.AuthAPIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		cancel()
		a.Err = err
		if errors.Is(err, context.DeadlineExceeded) {
			p.observe(c.strategy, "timeout")
		} else {
			p.observe(c.strategy, "failure")
		}
		p.logger.Debug("proxy attempt failed", zap.String("strategy", c.strategy), zap.Error(err))
		return nil, a
	}
	a.Status = resp.StatusCode

	if c.strategy == StrategyAuthenticated {
		p.inspectRateLimit(resp)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		p.observe(c.strategy, "success")
		return &Result{Response: resp, URL: c.target, Strategy: c.strategy, Opaque: c.opaque}, a
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
	cancel()
	if resp.StatusCode == http.StatusTooManyRequests {
		p.observe(c.strategy, "rate_limited")
	} else {
		p.observe(c.strategy, "failure")
	}
	return nil, a
}

func (p *ProxyChain) inspectRateLimit(resp *http.Response) {
	limit, errL := strconv.ParseFloat(strings.TrimSpace(resp.Header.Get("X-RateLimit-Limit")), 64)
	remaining, errR := strconv.ParseFloat(strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")), 64)
	if errL == nil && errR == nil && limit > 0 && remaining < limit*lowQuotaRatio {
		p.logger.Warn("authenticated proxy quota low",
			zap.Float64("remaining", remaining),
			zap.Float64("limit", limit),
		)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return
	}
	wait := parseRetryAfter(resp.Header.Get("Retry-After"), p.now())
	if wait <= 0 {
		wait = defaultRateLimitCooldown
	}
	p.mu.Lock()
	p.cooldownUntil = p.now().Add(wait)
	p.mu.Unlock()
	p.logger.Warn("authenticated proxy rate limited", zap.Duration("cooldown", wait))
}

func (p *ProxyChain) coolingDown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Before(p.cooldownUntil)
}

func (p *ProxyChain) isRestricted(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, h := range p.restricted {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (p *ProxyChain) observe(strategy, outcome string) {
	if p.observer != nil {
		p.observer.ObserveProxyAttempt(strategy, outcome)
	}
}

// ExpandTemplate fills a proxy URL template. {url} takes the query-escaped
// target, {raw} the target as is; a template with neither gets the escaped
// target appended.
func ExpandTemplate(tpl, target string) string {
	switch {
	case strings.Contains(tpl, "{url}"):
		return strings.ReplaceAll(tpl, "{url}", url.QueryEscape(target))
	case strings.Contains(tpl, "{raw}"):
		return strings.ReplaceAll(tpl, "{raw}", target)
	default:
		return tpl + url.QueryEscape(target)
	}
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return at.Sub(now)
	}
	return 0
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
