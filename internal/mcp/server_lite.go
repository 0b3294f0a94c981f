package mcp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/cache"
	"github.com/ldl-target-server/internal/config"
	"github.com/ldl-target-server/internal/feedback"
)

// LiteServerName identifies the lite server to MCP clients
const LiteServerName = "ldl-target-server-lite"

// LiteServer is a lightweight MCP server that requires no external services.
// Reports live in an in-memory LRU and feedback in SQLite under the data dir.
type LiteServer struct {
	config        *config.LiteConfig
	mcpServer     *mcp.Server
	feedbackStore feedback.Store
	cache         *cache.MemoryCache
	logger        *logrus.Logger
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *config.LiteConfig, opts ...Option) (*LiteServer, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		// stdout carries the stdio transport, so logs go to stderr
		o.logger = config.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	}

	server := &LiteServer{
		config:        cfg,
		logger:        o.logger,
		feedbackStore: o.store,
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	server.cache = cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)

	if server.feedbackStore == nil {
		store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create feedback store: %w", err)
		}
		server.feedbackStore = store
	}

	server.mcpServer = newToolServer(server.logger, LiteServerName, version,
		server.cache, server.feedbackStore, cfg.ExportDir())

	server.logger.WithField("data_dir", cfg.DataDir).Info("Lite server initialized successfully")
	return server, nil
}

// Start starts the lite MCP server.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", s.config.Transport).Info("Starting LDL target MCP server (lite)...")
	return serve(ctx, s.mcpServer, s.logger, s.config.Transport, "localhost:"+strconv.Itoa(s.config.HTTPPort))
}

// MCPServer returns the underlying SDK server
func (s *LiteServer) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	s.cache.Close()
	if s.feedbackStore != nil {
		if err := s.feedbackStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close feedback store")
			return err
		}
	}
	return nil
}

// GetFeedbackStore returns the feedback store for external access.
func (s *LiteServer) GetFeedbackStore() feedback.Store {
	return s.feedbackStore
}

// GetCache returns the memory cache for external access.
func (s *LiteServer) GetCache() *cache.MemoryCache {
	return s.cache
}
