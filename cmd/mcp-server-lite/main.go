// Package main provides the lightweight entry point for the LDL target MCP server.
// This version requires no external services: in-memory report cache and SQLite feedback.
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
		cmd := setup.NewCommand("lite", os.Stdin, os.Stdout)
		if err := cmd.Run(context.Background(), os.Args[1:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	cfg := config.LoadLiteConfig()

	log.Printf("Starting LDL target MCP server (lite) with transport: %s", cfg.Transport)
	log.Printf("Data directory: %s", cfg.DataDir)

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Printf("MCP server failed: %v", err)
		return
	}

	log.Println("LDL target MCP server (lite) stopped")
}
