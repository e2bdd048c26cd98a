package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"nftvault/internal/app"
	"nftvault/internal/auth"
	"nftvault/internal/config"
	cronrunner "nftvault/internal/cron"
	"nftvault/internal/handler"
	"nftvault/internal/logger"
	"nftvault/internal/paas"
	"nftvault/internal/service"

	_ "nftvault/docs"
)

func main() {
	cfgPath := os.Getenv("NV_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("NV_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}
	defer a.Close()

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(a.Metrics.GinMiddleware())
	engine.Use(auth.Middleware(cfg.Auth))
	engine.Use(paas.WriteAuditMiddleware(a.PaaS, cfg.Notify.PlatformAgent, logger))

	healthHandler := &handler.HealthHandler{DB: a.DB.SQL}
	healthHandler.Register(engine)
	paas.RegisterDocs(engine)

	walletHandler := &handler.WalletHandler{Wallets: a.Wallets, Logger: logger}
	walletHandler.Register(engine)
	artifactHandler := &handler.ArtifactHandler{Artifacts: a.Artifacts, Media: a.Media, Logger: logger}
	artifactHandler.Register(engine)
	mediaHandler := &handler.MediaHandler{Media: a.Media, Logger: logger}
	mediaHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Settings: a.Settings}
	settingsHandler.Register(engine)
	eventsHandler := &handler.EventsHandler{Hub: a.Hub}
	eventsHandler.Register(engine)

	engine.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var runner *cronrunner.Runner
	if cfg.Cron.Enabled {
		runner = cronrunner.New(logger, ctx)
		if _, err := runner.Add("wallet_refresh", cfg.Cron.Refresh, func(ctx context.Context) {
			if !a.Settings.IsEnabled(ctx, service.FeatureScheduledRefresh, true) {
				return
			}
			summary, err := a.Wallets.RefreshAll(ctx)
			if err != nil {
				logger.Warn("scheduled refresh stopped", zap.Error(err))
			}
			logger.Info("scheduled refresh done",
				zap.Int("wallets", summary.Wallets),
				zap.Int("failed", summary.Failed),
				zap.Int("ingested", summary.Ingested),
			)
		}); err != nil {
			logger.Fatal("invalid cron.refresh", zap.String("spec", cfg.Cron.Refresh), zap.Error(err))
		}
		runner.Start()
		defer runner.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
