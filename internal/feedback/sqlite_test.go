package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldl-target-server/internal/domain"
)

func newFeedback(region domain.Region, suggested, clinician int) *Feedback {
	return &Feedback{
		EvaluationID:      uuid.New().String(),
		Region:            region,
		SuggestedTarget:   suggested,
		SuggestedRuleCode: "JP_SECONDARY_GENERAL",
		ClinicianTarget:   clinician,
		Agreed:            suggested == clinician,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "feedback-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	fb := newFeedback(domain.RegionJP, 100, 70)
	fb.Notes = "Recent ACS, treating as high-risk secondary prevention"

	err := store.Save(context.Background(), fb)

	require.NoError(t, err)
	assert.NotZero(t, fb.ID, "ID should be assigned")
	assert.False(t, fb.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, fb.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_Save_RejectsInvalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	tests := []struct {
		name  string
		mod   func(*Feedback)
		field string
	}{
		{"missing evaluation", func(f *Feedback) { f.EvaluationID = "" }, "evaluation_id"},
		{"unknown region", func(f *Feedback) { f.Region = "UK" }, "region"},
		{"zero suggested target", func(f *Feedback) { f.SuggestedTarget = 0 }, "suggested_target_mg_dl"},
		{"clinician target too high", func(f *Feedback) { f.ClinicianTarget = 900 }, "clinician_target_mg_dl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFeedback(domain.RegionEU, 55, 55)
			tt.mod(fb)

			err := store.Save(context.Background(), fb)

			ve, ok := domain.AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	fb := newFeedback(domain.RegionUS, 70, 70)
	require.NoError(t, store.Save(ctx, fb))
	originalID := fb.ID

	update := &Feedback{
		EvaluationID:    fb.EvaluationID,
		Region:          domain.RegionUS,
		SuggestedTarget: 70,
		ClinicianTarget: 55,
		Agreed:          false,
		Notes:           "Multiple major events",
	}
	require.NoError(t, store.Save(ctx, update))

	assert.Equal(t, originalID, update.ID, "ID should remain the same")

	retrieved, err := store.Get(ctx, fb.EvaluationID, domain.RegionUS)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, 55, retrieved.ClinicianTarget)
	assert.False(t, retrieved.Agreed)
	assert.Equal(t, "Multiple major events", retrieved.Notes)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_Get(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	fb := newFeedback(domain.RegionJP, 100, 100)
	require.NoError(t, store.Save(ctx, fb))

	other := &Feedback{
		EvaluationID:    fb.EvaluationID,
		Region:          domain.RegionEU,
		SuggestedTarget: 55,
		ClinicianTarget: 40,
	}
	require.NoError(t, store.Save(ctx, other))

	retrieved, err := store.Get(ctx, fb.EvaluationID, domain.RegionJP)

	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, fb.ID, retrieved.ID)
	assert.Equal(t, domain.RegionJP, retrieved.Region)
	assert.Equal(t, 100, retrieved.SuggestedTarget)
	assert.Equal(t, "JP_SECONDARY_GENERAL", retrieved.SuggestedRuleCode)
	assert.True(t, retrieved.Agreed)
	assert.WithinDuration(t, fb.CreatedAt, retrieved.CreatedAt, time.Second)

	eu, err := store.Get(ctx, fb.EvaluationID, domain.RegionEU)
	require.NoError(t, err)
	require.NotNil(t, eu)
	assert.Equal(t, 40, eu.ClinicianTarget)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	retrieved, err := store.Get(context.Background(), uuid.New().String(), domain.RegionJP)

	assert.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	var saved []*Feedback
	for i := 0; i < 5; i++ {
		fb := newFeedback(domain.RegionJP, 120, 120)
		require.NoError(t, store.Save(ctx, fb))
		saved = append(saved, fb)
		time.Sleep(5 * time.Millisecond)
	}

	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.Equal(t, saved[4].ID, page1[0].ID, "newest first")

	page3, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Equal(t, saved[0].ID, page3[0].ID)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	fb := newFeedback(domain.RegionEU, 116, 100)
	require.NoError(t, store.Save(ctx, fb))

	require.NoError(t, store.Delete(ctx, fb.ID))

	retrieved, err := store.Get(ctx, fb.EvaluationID, fb.Region)
	require.NoError(t, err)
	assert.Nil(t, retrieved)

	err = store.Delete(ctx, fb.ID)
	assert.ErrorIs(t, err, domain.ErrFeedbackNotFound)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newFeedback(domain.RegionJP, 160, 160)))
	require.NoError(t, store.Save(ctx, newFeedback(domain.RegionUS, 130, 100)))

	var buf bytes.Buffer
	written, err := store.ExportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	var export FeedbackExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, 2, export.Count)
	assert.Len(t, export.Feedback, 2)
	assert.False(t, export.ExportedAt.IsZero())
}

func TestSQLiteStore_ExportJSON_Empty(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	var buf bytes.Buffer
	written, err := store.ExportJSON(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Contains(t, buf.String(), `"feedback": []`)
}

func TestSQLiteStore_ImportJSON(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()

	ctx := context.Background()
	require.NoError(t, source.Save(ctx, newFeedback(domain.RegionJP, 120, 100)))
	require.NoError(t, source.Save(ctx, newFeedback(domain.RegionEU, 55, 55)))

	var buf bytes.Buffer
	_, err := source.ExportJSON(ctx, &buf)
	require.NoError(t, err)

	target := createTestStore(t)
	defer target.Close()

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// Second import skips duplicates
	imported, skipped, err = target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ImportJSON_SkipsInvalidEntries(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	input := `{"version":"1.0","feedback":[
		{"evaluation_id":"a","region":"JP","suggested_target_mg_dl":100,"clinician_target_mg_dl":100,"agreed":true},
		{"evaluation_id":"b","region":"MARS","suggested_target_mg_dl":100,"clinician_target_mg_dl":100},
		null
	]}`

	imported, skipped, err := store.ImportJSON(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 2, skipped)
}

func TestSQLiteStore_ImportJSON_KeepsTimestamps(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	input := `{"version":"1.0","feedback":[
		{"evaluation_id":"a","region":"EU","suggested_target_mg_dl":55,"clinician_target_mg_dl":70,
		 "created_at":"2024-03-01T09:30:00Z","updated_at":"2024-03-02T10:00:00Z"},
		{"evaluation_id":"b","region":"US","suggested_target_mg_dl":70,"clinician_target_mg_dl":70,"agreed":true,
		 "created_at":"2024-04-05T08:00:00Z"}
	]}`

	ctx := context.Background()
	imported, _, err := store.ImportJSON(ctx, strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, imported)

	fb, err := store.Get(ctx, "a", domain.RegionEU)
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.True(t, fb.CreatedAt.Equal(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)), fb.CreatedAt)
	assert.True(t, fb.UpdatedAt.Equal(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)), fb.UpdatedAt)

	fb, err = store.Get(ctx, "b", domain.RegionUS)
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.True(t, fb.CreatedAt.Equal(time.Date(2024, 4, 5, 8, 0, 0, 0, time.UTC)))
	assert.True(t, fb.UpdatedAt.Equal(fb.CreatedAt))
}

func TestSQLiteStore_Save_NewEntryGetsCurrentTime(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	before := time.Now().UTC().Add(-time.Second)
	fb := newFeedback(domain.RegionJP, 160, 160)
	require.NoError(t, store.Save(context.Background(), fb))

	assert.True(t, fb.CreatedAt.After(before))
	assert.Equal(t, fb.CreatedAt, fb.UpdatedAt)
}

func TestSQLiteStore_ImportJSON_Malformed(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), strings.NewReader("{"))
	assert.Error(t, err)
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "feedback-test-*")
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	return store
}
