// Package main is the entry point of the LDL target REST server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/ldl-target-server/internal/api"
	"github.com/ldl-target-server/internal/bootstrap"
	"github.com/ldl-target-server/internal/config"
	"github.com/ldl-target-server/internal/database"
	"github.com/ldl-target-server/internal/service"
)

var version = "v1.0.0"

func main() {
	app := &cli.Command{
		Name:    "ldl-target-server",
		Usage:   "LDL-C target evaluation across JAS, ESC/EAS and ACC/AHA guidelines",
		Version: version,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API (default)",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Manage the feedback database schema",
				Commands: []*cli.Command{
					{
						Name:  "up",
						Usage: "Apply all pending migrations",
						Action: withMigrations(func(ctx context.Context, mr *database.MigrationRunner) error {
							return mr.Up(ctx)
						}),
					},
					{
						Name:  "down",
						Usage: "Roll back the latest migration",
						Action: withMigrations(func(ctx context.Context, mr *database.MigrationRunner) error {
							return mr.Down(ctx)
						}),
					},
					{
						Name:  "version",
						Usage: "Print the current schema version",
						Action: withMigrations(func(ctx context.Context, mr *database.MigrationRunner) error {
							v, dirty, err := mr.Version()
							if err != nil {
								return err
							}
							fmt.Printf("version %d (dirty: %t)\n", v, dirty)
							return nil
						}),
					},
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

func loadConfig() (*config.Manager, *logrus.Logger, error) {
	configManager, err := config.NewManager()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := configManager.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return configManager, config.LoggerFromConfig(configManager.GetConfig().Logging), nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	configManager, logger, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configManager.GetConfig()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resources, err := bootstrap.Open(ctx, configManager, logger)
	if err != nil {
		return fmt.Errorf("failed to open dependencies: %w", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			logger.WithError(err).Warn("Error releasing dependencies")
		}
	}()

	evaluator := service.NewEvaluatorService(logger, service.NewTargetEngine(), resources.Cache)
	feedbackService := service.NewFeedbackService(logger, resources.Store, evaluator)
	server := api.NewServer(configManager, logger, evaluator, feedbackService, resources.HealthChecker(version))

	logger.WithFields(logrus.Fields{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"version": version,
	}).Info("Starting LDL target server")

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func withMigrations(fn func(context.Context, *database.MigrationRunner) error) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		configManager, logger, err := loadConfig()
		if err != nil {
			return err
		}

		runner, err := database.NewMigrationRunner(
			configManager.GetDatabaseURL(),
			configManager.GetDatabaseConfig().MigrationsPath,
			logger,
		)
		if err != nil {
			return err
		}
		defer runner.Close()

		return fn(ctx, runner)
	}
}
