package database

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/feedback"
)

func TestConfigFromDomain(t *testing.T) {
	cfg := ConfigFromDomain(domain.DatabaseConfig{
		Host:         "db",
		Port:         5432,
		Database:     "ldl",
		Username:     "u",
		Password:     "p",
		MaxOpenConns: 4,
		MaxIdleConns: 8,
	})

	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns, "min conns clamp to max")
	assert.Equal(t, time.Hour, cfg.MaxConnLife)
	assert.Equal(t, "host=db port=5432 dbname=ldl user=u password=p sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/ldl?sslmode=disable", cfg.URL())
}

func TestDatabaseConnectionAndMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    "testpass",
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		t.Fatalf("Database health check failed: %v", err)
	}

	stats := db.Stats()
	if stats.TotalConns() == 0 {
		t.Error("Expected at least one connection in pool")
	}

	runner, err := NewMigrationRunner(config.URL(), "", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	// Re-running is a no-op
	if err := runner.Up(ctx); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	version, dirty, err := runner.Version()
	if err != nil || dirty || version != 1 {
		t.Fatalf("Unexpected migration state: version=%d dirty=%v err=%v", version, dirty, err)
	}

	store, err := feedback.NewPostgresStoreFromURL(config.URL(), domain.DatabaseConfig{})
	if err != nil {
		t.Fatalf("Failed to open feedback store: %v", err)
	}
	defer store.Close()

	fb := &feedback.Feedback{
		EvaluationID:    "3f1c7a52-9a0e-4c55-a4a8-0d8f6a0b2f11",
		Region:          domain.RegionJP,
		SuggestedTarget: 100,
		ClinicianTarget: 70,
	}
	if err := store.Save(ctx, fb); err != nil {
		t.Fatalf("Failed to save feedback: %v", err)
	}
	if fb.ID == 0 {
		t.Error("Expected feedback ID to be assigned")
	}

	if err := runner.Down(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
}
