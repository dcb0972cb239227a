package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/medgen-mcp-server/internal/api"
	"github.com/medgen-mcp-server/internal/app"
	"github.com/medgen-mcp-server/internal/config"
	"github.com/medgen-mcp-server/internal/logging"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager(os.Getenv("MEDGEN_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.WithError(err).Warn("Shutdown was not clean")
		}
	}()

	logger.WithField("config_file", configManager.ConfigFileUsed()).
		Infof("Starting medgen API server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	server := api.NewServer(configManager, application.APIDependencies())
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}
