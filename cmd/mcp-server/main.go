// Package main is the entry point of the LDL target MCP server backed by the
// configured feedback database and report cache.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ldl-target-server/internal/config"
	"github.com/ldl-target-server/internal/mcp"
	"github.com/ldl-target-server/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cmd := setup.NewCommand("full", os.Stdin, os.Stdout)
		if err := cmd.Run(context.Background(), os.Args[1:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	// stdout carries the protocol on stdio transport
	logger := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcpServer, err := mcp.NewServer(ctx, configManager, mcp.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer mcpServer.Close()

	logger.WithField("transport", cfg.MCP.TransportType).Info("Starting LDL target MCP server")

	if err := mcpServer.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("LDL target MCP server stopped")
}
