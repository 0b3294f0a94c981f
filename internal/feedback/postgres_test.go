package feedback

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldl-target-server/internal/domain"
)

var feedbackColumnNames = []string{
	"id", "evaluation_id", "region", "suggested_target", "suggested_rule_code",
	"clinician_target", "agreed", "notes", "created_at", "updated_at",
}

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save_Upsert(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	fb := newFeedback(domain.RegionJP, 100, 70)

	mock.ExpectQuery(`INSERT INTO target_feedback .* ON CONFLICT \(evaluation_id, region\) DO UPDATE`).
		WithArgs(fb.EvaluationID, "JP", 100, "JP_SECONDARY_GENERAL", 70, false, "",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	err := store.Save(context.Background(), fb)

	require.NoError(t, err)
	assert.Equal(t, int64(42), fb.ID)
	assert.Equal(t, created, fb.CreatedAt)
	assert.False(t, fb.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_InvalidSkipsDatabase(t *testing.T) {
	store, mock := setupMockStore(t)

	fb := newFeedback(domain.RegionJP, 100, 0)
	err := store.Save(context.Background(), fb)

	_, ok := domain.AsValidationError(err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_DatabaseError(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`INSERT INTO target_feedback`).WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), newFeedback(domain.RegionEU, 55, 55))
	assert.ErrorContains(t, err, "failed to save feedback")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM target_feedback\s+WHERE evaluation_id = \$1 AND region = \$2`).
		WithArgs("eval-1", "US").
		WillReturnRows(sqlmock.NewRows(feedbackColumnNames).
			AddRow(int64(7), "eval-1", "US", 70, "US_ASCVD", 55, false, "polyvascular", now, now))

	fb, err := store.Get(context.Background(), "eval-1", domain.RegionUS)

	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, int64(7), fb.ID)
	assert.Equal(t, domain.RegionUS, fb.Region)
	assert.Equal(t, 55, fb.ClinicianTarget)
	assert.Equal(t, "polyvascular", fb.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM target_feedback`).
		WithArgs("missing", "JP").
		WillReturnError(sql.ErrNoRows)

	fb, err := store.Get(context.Background(), "missing", domain.RegionJP)

	assert.NoError(t, err)
	assert.Nil(t, fb)
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM target_feedback\s+ORDER BY created_at DESC, id DESC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(feedbackColumnNames).
			AddRow(int64(2), "eval-2", "EU", 55, "EU_ASCVD", 40, false, "", now, now).
			AddRow(int64(1), "eval-1", "JP", 100, "JP_SECONDARY_GENERAL", 100, true, "", now, now))

	list, err := store.List(context.Background(), 10, 0)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.True(t, list[1].Agreed)
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM target_feedback`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectExec(`DELETE FROM target_feedback WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM target_feedback WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.NoError(t, store.Delete(ctx, 3))
	assert.ErrorIs(t, store.Delete(ctx, 99), domain.ErrFeedbackNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExportJSON(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM target_feedback`).
		WithArgs(maxExportLimit, 0).
		WillReturnRows(sqlmock.NewRows(feedbackColumnNames).
			AddRow(int64(1), "eval-1", "JP", 160, "JP_LOW", 140, false, "", now, now))

	var buf bytes.Buffer
	written, err := store.ExportJSON(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	assert.Contains(t, buf.String(), `"count": 1`)
	assert.Contains(t, buf.String(), `"evaluation_id": "eval-1"`)
}

// getTestDB returns a live database connection for integration tests.
// Skip test if TEST_DATABASE_URL is not set.
func getTestDB(t *testing.T) *sql.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS target_feedback (
			id BIGSERIAL PRIMARY KEY,
			evaluation_id TEXT NOT NULL,
			region TEXT NOT NULL,
			suggested_target INTEGER NOT NULL,
			suggested_rule_code TEXT NOT NULL DEFAULT '',
			clinician_target INTEGER NOT NULL,
			agreed BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			CONSTRAINT target_feedback_evaluation_region_unique UNIQUE (evaluation_id, region)
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM target_feedback")
	require.NoError(t, err)

	return db
}

func TestPostgresStore_Integration_SaveUpdate(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	fb := newFeedback(domain.RegionEU, 55, 55)
	require.NoError(t, store.Save(ctx, fb))
	originalID := fb.ID

	fb.ClinicianTarget = 40
	fb.Agreed = false
	fb.Notes = "Second event within two years"
	require.NoError(t, store.Save(ctx, fb))
	assert.Equal(t, originalID, fb.ID)

	retrieved, err := store.Get(ctx, fb.EvaluationID, fb.Region)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, 40, retrieved.ClinicianTarget)
	assert.Equal(t, "Second event within two years", retrieved.Notes)
}
