package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"nftvault/internal/cache"
	"nftvault/internal/media"
	"nftvault/internal/models"
)

const (
	MethodNone     = "none"
	MethodDetected = "detected"
	MethodProbe    = "probe"
)

// ResolvedMedia is what a renderer needs to display one artifact.
type ResolvedMedia struct {
	SourceURL   string     `json:"source_url"`
	ResolvedURL string     `json:"resolved_url"`
	DisplayURL  string     `json:"display_url,omitempty"`
	Type        media.Type `json:"media_type"`
	Method      string     `json:"method"`
	Strategy    string     `json:"strategy,omitempty"`
}

// ProxyFetcher is satisfied by *media.ProxyChain.
type ProxyFetcher interface {
	Fetch(ctx context.Context, rawURL string, opts media.FetchOptions) (*media.Result, error)
}

type MediaService struct {
	Resolver media.Resolver
	Proxy    ProxyFetcher
	Flags    FeatureFlags
	Logger   *zap.Logger
	// ProbeDefault applies when the feature.media_probe switch is unset.
	ProbeDefault bool

	memo cache.Store
}

func NewMediaService(resolver media.Resolver, proxy ProxyFetcher, flags FeatureFlags, entries int, logger *zap.Logger) *MediaService {
	if entries <= 0 {
		entries = 5000
	}
	return &MediaService{
		Resolver: resolver,
		Proxy:    proxy,
		Flags:    flags,
		Logger:   logger,
		memo:     cache.NewMemoryStore(entries),
	}
}

// ResolveMedia never fails. An artifact without a media URL is unknown/none.
func (s *MediaService) ResolveMedia(ctx context.Context, item *models.Artifact) ResolvedMedia {
	if item == nil {
		return ResolvedMedia{Type: media.TypeUnknown, Method: MethodNone}
	}
	return s.Resolve(ctx, item.MediaURL, hintFor(item))
}

// Resolve classifies rawURL. Detection runs with the caller's hint on every
// call; only the network probe outcome is memoized, keyed by resolved URL.
func (s *MediaService) Resolve(ctx context.Context, rawURL string, hint media.Hint) ResolvedMedia {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ResolvedMedia{Type: media.TypeUnknown, Method: MethodNone}
	}

	resolved := s.Resolver.Resolve(rawURL)
	out := ResolvedMedia{
		SourceURL:   rawURL,
		ResolvedURL: resolved,
		DisplayURL:  resolved,
		Type:        media.Detect(hint, resolved),
		Method:      MethodDetected,
	}
	if out.Type == media.TypeUnknown && s.probeEnabled(ctx) {
		probed, ok := s.lookup(ctx, resolved)
		if !ok {
			var err error
			probed, err = s.probe(ctx, resolved)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return out
				}
				s.logger().Debug("media probe failed", zap.String("url", resolved), zap.Error(err))
				probed = ResolvedMedia{ResolvedURL: resolved, DisplayURL: resolved, Type: media.TypeUnknown, Method: MethodDetected}
			}
			s.store(ctx, resolved, probed)
		}
		probed.SourceURL = rawURL
		out = probed
	}
	if out.Strategy == "" {
		s.knownRoute(ctx, &out)
	}
	return out
}

// knownRoute points DisplayURL at a proxy route that already served the
// resolved URL. It never touches the network.
func (s *MediaService) knownRoute(ctx context.Context, out *ResolvedMedia) {
	if s.Proxy == nil {
		return
	}
	res, err := s.Proxy.Fetch(ctx, out.ResolvedURL, media.FetchOptions{URLOnly: true})
	if err != nil || res == nil {
		return
	}
	if res.Response != nil {
		_ = res.Response.Body.Close()
	}
	if res.URL != "" {
		out.DisplayURL = res.URL
		out.Strategy = res.Strategy
	}
}

// Stream fetches rawURL through the proxy chain. The caller closes the body.
func (s *MediaService) Stream(ctx context.Context, rawURL string) (*media.Result, error) {
	if s == nil || s.Proxy == nil {
		return nil, errors.New("media proxy not configured")
	}
	return s.Proxy.Fetch(ctx, s.Resolver.Resolve(strings.TrimSpace(rawURL)), media.FetchOptions{})
}

func (s *MediaService) probe(ctx context.Context, resolved string) (ResolvedMedia, error) {
	out := ResolvedMedia{ResolvedURL: resolved, DisplayURL: resolved, Type: media.TypeUnknown, Method: MethodProbe}
	if s.Proxy == nil {
		return out, errors.New("media proxy not configured")
	}
	res, err := s.Proxy.Fetch(ctx, resolved, media.FetchOptions{Method: http.MethodHead})
	if err != nil {
		return out, err
	}
	out.DisplayURL = res.URL
	out.Strategy = res.Strategy
	if res.Response != nil {
		out.Type = media.FromContentType(res.Response.Header.Get("Content-Type"))
		_ = res.Response.Body.Close()
	}
	if out.Type == media.TypeUnknown && res.Strategy == media.StrategyGateway {
		out.Type = media.TypeImage
	}
	return out, nil
}

func (s *MediaService) probeEnabled(ctx context.Context) bool {
	if s.Flags == nil {
		return s.ProbeDefault
	}
	return s.Flags.IsEnabled(ctx, FeatureMediaProbe, s.ProbeDefault)
}

func (s *MediaService) lookup(ctx context.Context, key string) (ResolvedMedia, bool) {
	if s.memo == nil {
		return ResolvedMedia{}, false
	}
	b, ok, err := s.memo.Get(ctx, key)
	if err != nil || !ok {
		return ResolvedMedia{}, false
	}
	var out ResolvedMedia
	if err := json.Unmarshal(b, &out); err != nil {
		return ResolvedMedia{}, false
	}
	return out, true
}

func (s *MediaService) store(ctx context.Context, key string, v ResolvedMedia) {
	if s.memo == nil {
		return
	}
	if b, err := json.Marshal(v); err == nil {
		_ = s.memo.Set(ctx, key, b, 0)
	}
}

func (s *MediaService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func hintFor(item *models.Artifact) media.Hint {
	var hint media.Hint
	if item.MediaType != nil {
		hint.Explicit = *item.MediaType
	}
	if len(item.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(item.Metadata, &meta); err == nil {
			hint.Metadata = meta
		}
	}
	if len(item.Attributes) > 0 {
		var attrs []any
		if err := json.Unmarshal(item.Attributes, &attrs); err == nil {
			hint.Attributes = attrs
		}
	}
	return hint
}
