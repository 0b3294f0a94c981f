// Package api exposes the LDL target engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/health"
	"github.com/ldl-target-server/internal/metrics"
	"github.com/ldl-target-server/internal/middleware"
	"github.com/ldl-target-server/internal/service"
)

// maxBodyBytes bounds request bodies; profiles and feedback are tiny
const maxBodyBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	evaluator     *service.EvaluatorService
	feedback      *service.FeedbackService
	checker       *health.Checker
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. feedbackService and checker
// may be nil, in which case their routes report the feature as unavailable.
func NewServer(
	configManager domain.ConfigManager,
	logger *logrus.Logger,
	evaluator *service.EvaluatorService,
	feedbackService *service.FeedbackService,
	checker *health.Checker,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if configManager.IsDevelopment() && cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationID(),
		middleware.AuditLogger(logger),
		metrics.Middleware(),
		middleware.SecurityHeaders(),
		corsMiddleware(cfg.Server.CORSOrigins),
		limitBodySize(maxBodyBytes),
	)

	server := &Server{
		configManager: configManager,
		logger:        logger,
		evaluator:     evaluator,
		feedback:      feedbackService,
		checker:       checker,
		router:        router,
	}

	server.setupRoutes(cfg.RateLimit)

	return server
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(rl domain.RateLimitConfig) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/health/ready", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RateLimit(rl))
	{
		v1.POST("/evaluate", s.handleEvaluate)
		v1.POST("/evaluate/chart", s.handleEvaluateChart)
		v1.GET("/evaluations/:id", s.handleGetEvaluation)
		v1.GET("/guidelines", s.handleGuidelines)

		v1.POST("/feedback", s.handleSubmitFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/export", s.handleExportFeedback)
		v1.DELETE("/feedback/:id", s.handleDeleteFeedback)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.CorrelationIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.CorrelationIDHeader, evaluationIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
