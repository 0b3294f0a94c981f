// Package bootstrap opens the long-lived dependencies of the full servers
// from configuration: the report cache, the feedback store and, for the
// Postgres backend, the migrated database and its readiness pool.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/cache"
	"github.com/ldl-target-server/internal/database"
	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/feedback"
	"github.com/ldl-target-server/internal/health"
)

// Resources bundles the opened dependencies. DB is nil unless the feedback
// backend is Postgres.
type Resources struct {
	Cache domain.ReportCache
	Store feedback.Store
	DB    *database.DB

	logger  *logrus.Logger
	closers []func() error
}

// Open connects every dependency named by the configuration. On failure
// anything already opened is closed again.
func Open(ctx context.Context, cm domain.ConfigManager, logger *logrus.Logger) (*Resources, error) {
	cfg := cm.GetConfig()
	r := &Resources{logger: logger}

	reportCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening report cache: %w", err)
	}
	r.Cache = reportCache
	r.closers = append(r.closers, reportCache.Close)

	store, err := r.openStore(ctx, cm)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.Store = feedback.NewResilientStore(store, feedback.DefaultBreakerSettings(), logger)
	r.closers = append(r.closers, r.Store.Close)

	logger.WithFields(logrus.Fields{
		"cache_backend":    cfg.Cache.Backend,
		"feedback_backend": cfg.Feedback.Backend,
	}).Info("Dependencies ready")

	return r, nil
}

func (r *Resources) openStore(ctx context.Context, cm domain.ConfigManager) (feedback.Store, error) {
	cfg := cm.GetConfig()

	switch cfg.Feedback.Backend {
	case "sqlite":
		store, err := feedback.NewSQLiteStore(cfg.Feedback.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite feedback store: %w", err)
		}
		return store, nil

	case "postgres":
		if err := migrate(ctx, cm.GetDatabaseURL(), cfg.Database.MigrationsPath, r.logger); err != nil {
			return nil, err
		}

		db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), r.logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		r.DB = db
		r.closers = append(r.closers, func() error { db.Close(); return nil })

		store, err := feedback.NewPostgresStoreFromURL(cm.GetDatabaseURL(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening postgres feedback store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown feedback backend %q", cfg.Feedback.Backend)
	}
}

func migrate(ctx context.Context, databaseURL, migrationsPath string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(databaseURL, migrationsPath, logger)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// HealthChecker registers a readiness check for every opened dependency
func (r *Resources) HealthChecker(version string) *health.Checker {
	checker := health.NewChecker(r.logger, version, 3*time.Second, 5*time.Second)

	if r.Store != nil {
		checker.Register(health.PingCheck("feedback_store", r.Store))
	}
	if p, ok := r.Cache.(health.Pinger); ok {
		checker.Register(health.PingCheck("report_cache", p))
	}
	if r.DB != nil {
		checker.Register(health.Check{Name: "database", Probe: r.DB.Health})
	}
	return checker
}

// Close releases resources in reverse order of opening
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
