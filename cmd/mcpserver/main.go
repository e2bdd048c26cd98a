package main

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"nftvault/internal/app"
	"nftvault/internal/config"
	"nftvault/internal/logger"
	"nftvault/internal/mcpserver"
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
	// stdout carries the MCP protocol.
	cfg.Log.OutputPaths = []string{"stderr"}
	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}
	defer a.Close()

	user := strings.TrimSpace(os.Getenv("NV_MCP_USER"))
	if user == "" {
		user = cfg.Auth.DefaultUser
	}
	srv := mcpserver.New(&mcpserver.Server{
		Wallets:   a.Wallets,
		Artifacts: a.Artifacts,
		Media:     a.Media,
		User:      user,
		Logger:    logger,
	})

	logger.Info("mcp server starting", zap.String("name", mcpserver.Name), zap.String("user", user))
	if err := srv.ServeStdio(); err != nil {
		logger.Error("mcp server stopped", zap.Error(err))
	}
}
