// Package app assembles the service graph shared by the HTTP and MCP binaries.
package app

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"nftvault/internal/cache"
	"nftvault/internal/client/alchemy"
	"nftvault/internal/client/helius"
	"nftvault/internal/config"
	"nftvault/internal/db"
	"nftvault/internal/fetcher"
	"nftvault/internal/media"
	"nftvault/internal/metrics"
	"nftvault/internal/notify"
	"nftvault/internal/paas"
	gormrepository "nftvault/internal/repository/gorm"
	"nftvault/internal/service"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	DB      *db.DB
	Metrics *metrics.Metrics

	Settings  *service.SystemSettingsService
	Ingest    *service.IngestService
	Wallets   *service.WalletService
	Artifacts *service.ArtifactService
	Media     *service.MediaService

	Hub        *notify.Hub
	Dispatcher *notify.Dispatcher
	PaaS       *paas.Client

	registry *fetcher.Registry
	cache    cache.Store
}

// Build opens the store, migrates it and wires every service. Close releases
// what Build opened.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		_ = db.Close(dbConn)
		return nil, err
	}

	store := gormrepository.New(dbConn.Gorm)
	settings := &service.SystemSettingsService{Repo: store}
	if err := settings.EnsureDefaultSwitches(ctx); err != nil {
		logger.Warn("init default feature switches failed", zap.Error(err))
	}

	m := metrics.New()

	cacheStore, err := cache.Open(ctx, cfg.Cache, cfg.Media.CacheEntries)
	if err != nil {
		logger.Warn("cache backend unavailable, using memory", zap.String("backend", cfg.Cache.Backend), zap.Error(err))
		cacheStore = cache.NewMemoryStore(cfg.Media.CacheEntries)
	}
	resolver := media.NewResolver(cfg.Proxy.IPFSGateway, cfg.Proxy.ArweaveGateway)
	proxyClient := &http.Client{}
	if !cfg.Proxy.AllowPrivateNetworks {
		proxyClient = media.NewGuardedClient()
	}
	proxy := media.NewProxyChain(proxyClient, media.ProxyOptions{
		AuthBaseURL:          cfg.Proxy.AuthBaseURL,
		AuthAPIKey:           cfg.Proxy.AuthAPIKey,
		AuthHeader:           cfg.Proxy.AuthHeader,
		Timeout:              cfg.Proxy.Timeout,
		FallbackTemplates:    cfg.Proxy.FallbackTemplates,
		CORSRestrictedHosts:  cfg.Proxy.CORSRestrictedHosts,
		UserAgent:            cfg.Proxy.UserAgent,
		Resolver:             resolver,
		BlockPrivateNetworks: !cfg.Proxy.AllowPrivateNetworks,
	}, media.NewStoreCache(cacheStore, cfg.Cache.TTL, logger), m, logger)
	mediaSvc := service.NewMediaService(resolver, proxy, settings, cfg.Media.CacheEntries, logger)
	mediaSvc.ProbeDefault = cfg.Media.Probe

	paasClient := initPaaSClient(cfg.Notify, logger)
	hub := notify.NewHub(logger)
	hub.OriginPatterns = cfg.Notify.OriginPatterns
	sinks := []notify.Notifier{notify.LogSink{Logger: logger}, hub}
	if url := strings.TrimSpace(cfg.Notify.WebhookURL); url != "" {
		sinks = append(sinks, notify.WebhookSink{URL: url, HTTP: &http.Client{Timeout: 5 * time.Second}})
	}
	if paasClient != nil {
		sinks = append(sinks, notify.PlatformSink{Client: paasClient, Agent: cfg.Notify.PlatformAgent})
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.Buffer, logger, sinks...)

	registry := buildRegistry(cfg, logger)
	ingest := &service.IngestService{
		Fetcher:     registry,
		Normalizer:  &service.Normalizer{Resolver: resolver},
		Persistence: &service.PersistenceSync{Repo: store, Logger: logger, BatchSize: cfg.Ingest.BatchSize},
		Wallets:     store,
		States:      store,
		Notifier:    dispatcher,
		Metrics:     m,
		Flags:       settings,
		Logger:      logger,
		Networks:    cfg.Ingest.Networks,
		PageSize:    cfg.Ingest.PageSize,
		MaxPages:    cfg.Ingest.MaxPages,
		Timeout:     cfg.Ingest.Timeout,
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         dbConn,
		Metrics:    m,
		Settings:   settings,
		Ingest:     ingest,
		Wallets:    &service.WalletService{Repo: store, Ingest: ingest, Notifier: dispatcher, Logger: logger},
		Artifacts:  &service.ArtifactService{Repo: store},
		Media:      mediaSvc,
		Hub:        hub,
		Dispatcher: dispatcher,
		PaaS:       paasClient,
		registry:   registry,
		cache:      cacheStore,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Dispatcher.Close()
	a.registry.Close()
	if c, ok := a.cache.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	_ = db.Close(a.DB)
}

// buildRegistry registers one listing client per configured network. In dev,
// a network without an API key is served by an empty fixture instead.
func buildRegistry(cfg config.Config, logger *zap.Logger) *fetcher.Registry {
	registry := fetcher.NewRegistry(logger)
	dev := strings.EqualFold(cfg.App.Env, "dev")
	for network, nc := range cfg.Network {
		network = strings.ToLower(strings.TrimSpace(network))
		if strings.TrimSpace(nc.APIKey) == "" && dev {
			logger.Info("no api key, serving network from fixture", zap.String("network", network))
			registry.Register(network, fetcher.NewFixture())
			continue
		}
		httpClient := &http.Client{Timeout: nc.Timeout}
		switch strings.ToLower(nc.Provider) {
		case "helius":
			registry.Register(network, helius.NewClient(httpClient, nc.BaseURL, nc.APIKey))
		case "alchemy", "":
			registry.Register(network, alchemy.NewClient(httpClient, network, nc.BaseURL, nc.APIKey))
		default:
			logger.Warn("unknown network provider", zap.String("network", network), zap.String("provider", nc.Provider))
		}
	}
	return registry
}

func initPaaSClient(cfg config.NotifyConfig, logger *zap.Logger) *paas.Client {
	base := strings.TrimSpace(cfg.PlatformBaseURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("EASYWEB3_API_BASE"))
	}
	apiKey := strings.TrimSpace(cfg.PlatformAPIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("EASYWEB3_API_KEY"))
	}
	if base == "" || apiKey == "" {
		return nil
	}

	p := &paas.Client{BaseURL: base, APIKey: apiKey}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.Login(ctx); err != nil {
		logger.Warn("paas login failed (platform notify disabled)", zap.Error(err))
		return nil
	}
	logger.Info("paas login ok")
	return p
}
