package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/medgen-mcp-server/internal/app"
	"github.com/medgen-mcp-server/internal/config"
	"github.com/medgen-mcp-server/internal/logging"
	"github.com/medgen-mcp-server/internal/mcp"
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

	// stdout carries the protocol, so logs never go there.
	cfg := configManager.GetConfig()
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
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

	transport, err := mcp.DetectTransport(os.Args[1:], cfg.MCP.Transport)
	if err != nil {
		logger.WithError(err).Error("Cannot choose an MCP transport")
		return
	}

	mcpServer, err := mcp.NewServer(configManager, application.Genes, application.Annotator, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create MCP server")
		return
	}

	if err := mcpServer.Start(ctx, transport); err != nil {
		logger.WithError(err).Error("MCP server stopped with error")
		return
	}

	logger.Info("medgen MCP server stopped")
}
