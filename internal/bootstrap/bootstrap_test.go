package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldl-target-server/internal/config"
	"github.com/ldl-target-server/internal/health"
)

func newManager(t *testing.T, yaml string) *config.Manager {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	cm, err := config.NewManagerWithPaths(dir)
	require.NoError(t, err)
	return cm
}

func TestOpen_SQLiteAndMemory(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dbPath := filepath.Join(t.TempDir(), "feedback.db")
	cm := newManager(t, fmt.Sprintf(`
feedback:
  backend: sqlite
  sqlite_path: %s
cache:
  backend: memory
`, dbPath))

	res, err := Open(context.Background(), cm, logger)
	require.NoError(t, err)
	defer res.Close()

	assert.Nil(t, res.DB)
	require.NoError(t, res.Cache.Set(context.Background(), "k", []byte("v")))
	assert.FileExists(t, dbPath)

	status := res.HealthChecker("test").Run(context.Background())
	assert.Equal(t, health.StateHealthy, status.Overall)
	assert.Contains(t, status.Components, "feedback_store")
	assert.NotContains(t, status.Components, "report_cache")
}

func TestOpen_Redis(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mr := miniredis.RunT(t)
	cm := newManager(t, fmt.Sprintf(`
feedback:
  backend: sqlite
  sqlite_path: %s
cache:
  backend: redis
  redis_url: redis://%s
`, filepath.Join(t.TempDir(), "feedback.db"), mr.Addr()))

	res, err := Open(context.Background(), cm, logger)
	require.NoError(t, err)
	defer res.Close()

	checker := res.HealthChecker("test")
	assert.Equal(t, []string{"feedback_store", "report_cache"}, checker.Names())
	assert.Equal(t, health.StateHealthy, checker.Run(context.Background()).Overall)
}

func TestOpen_Failures(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("unreachable redis", func(t *testing.T) {
		cm := newManager(t, `
feedback:
  backend: sqlite
cache:
  backend: redis
  redis_url: redis://127.0.0.1:1
`)
		_, err := Open(context.Background(), cm, logger)
		assert.ErrorContains(t, err, "opening report cache")
	})

	t.Run("unknown feedback backend", func(t *testing.T) {
		cm := newManager(t, `
feedback:
  backend: mongo
cache:
  backend: memory
`)
		_, err := Open(context.Background(), cm, logger)
		assert.ErrorContains(t, err, "unknown feedback backend")
	})
}

func TestResources_CloseIsIdempotent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cm := newManager(t, fmt.Sprintf(`
feedback:
  backend: sqlite
  sqlite_path: %s
cache:
  backend: memory
`, filepath.Join(t.TempDir(), "feedback.db")))

	res, err := Open(context.Background(), cm, logger)
	require.NoError(t, err)

	assert.NoError(t, res.Close())
	assert.NoError(t, res.Close())
}
