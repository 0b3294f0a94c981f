// Package mcp exposes the LDL target engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/bootstrap"
	"github.com/ldl-target-server/internal/config"
	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/feedback"
	"github.com/ldl-target-server/internal/service"
)

// Option customises server construction, mainly for tests
type Option func(*options)

type options struct {
	logger *logrus.Logger
	store  feedback.Store
	cache  domain.ReportCache
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFeedbackStore sets a custom feedback store. The server takes ownership
// and closes it.
func WithFeedbackStore(store feedback.Store) Option {
	return func(o *options) { o.store = store }
}

// WithReportCache sets a custom report cache.
func WithReportCache(c domain.ReportCache) Option {
	return func(o *options) { o.cache = c }
}

// Server is the MCP server backed by the full configuration: Redis report
// cache and a Postgres or SQLite feedback store.
type Server struct {
	config    *domain.Config
	mcpServer *mcp.Server
	resources *bootstrap.Resources
	store     feedback.Store
	cache     domain.ReportCache
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance from the viper configuration.
// Dependencies not supplied through options are opened from the config.
func NewServer(ctx context.Context, configManager *config.Manager, opts ...Option) (*Server, error) {
	cfg := configManager.GetConfig()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = config.NewLogger(cfg.Logging.Level, cfg.Logging.Format, nil)
	}

	s := &Server{config: cfg, logger: o.logger, store: o.store, cache: o.cache}

	if s.store == nil || s.cache == nil {
		res, err := bootstrap.Open(ctx, configManager, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open dependencies: %w", err)
		}
		s.resources = res
		if s.store == nil {
			s.store = res.Store
		}
		if s.cache == nil {
			s.cache = res.Cache
		}
	}

	s.mcpServer = newToolServer(s.logger, cfg.MCP.ServerName, cfg.MCP.ServerVersion, s.cache, s.store, "")

	s.logger.Info("MCP server initialized successfully")
	return s, nil
}

// Start serves MCP over the configured transport until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", s.config.MCP.TransportType).Info("Starting LDL target MCP server...")
	return serve(ctx, s.mcpServer, s.logger, s.config.MCP.TransportType,
		net.JoinHostPort(s.config.MCP.HTTPHost, strconv.Itoa(s.config.MCP.HTTPPort)))
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Close releases the store and cache
func (s *Server) Close() error {
	var errs []error
	if s.resources != nil {
		errs = append(errs, s.resources.Close())
	}
	if s.resources == nil || s.store != s.resources.Store {
		errs = append(errs, s.store.Close())
	}
	if s.resources == nil || s.cache != s.resources.Cache {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}

// newToolServer builds an SDK server with every tool registered.
// exportDir enables the file export and import tools when non-empty.
func newToolServer(
	logger *logrus.Logger,
	name, version string,
	reportCache domain.ReportCache,
	store feedback.Store,
	exportDir string,
) *mcp.Server {
	evaluator := service.NewEvaluatorService(logger, service.NewTargetEngine(), reportCache)

	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	(&targetTools{logger: logger, evaluator: evaluator}).register(server)
	if store != nil {
		(&feedbackTools{
			logger:    logger,
			feedback:  service.NewFeedbackService(logger, store, evaluator),
			exportDir: exportDir,
		}).register(server)
	}

	logger.WithField("server_name", name).Debug("Registered MCP tools")
	return server
}

// serve runs the server over stdio, or over streamable HTTP at addr
func serve(ctx context.Context, server *mcp.Server, logger *logrus.Logger, transport, addr string) error {
	switch transport {
	case "", "stdio":
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil

	case "http":
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
		httpServer := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", addr).Info("MCP HTTP transport listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("MCP HTTP transport failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)

	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}
