// Package feedback stores clinician agreement with suggested LDL targets.
// Entries are keyed by evaluation ID and region and never hold profile data.
package feedback

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ldl-target-server/internal/domain"
)

// Feedback is a clinician's response to one region's suggested target.
type Feedback struct {
	ID                int64         `json:"id,omitempty"`
	EvaluationID      string        `json:"evaluation_id"`
	Region            domain.Region `json:"region"`
	SuggestedTarget   int           `json:"suggested_target_mg_dl"`        // Engine's target
	SuggestedRuleCode string        `json:"suggested_rule_code,omitempty"` // Matched guideline rule
	ClinicianTarget   int           `json:"clinician_target_mg_dl"`        // Clinician's chosen target
	Agreed            bool          `json:"agreed"`                        // Did the clinician accept the suggestion?
	Notes             string        `json:"notes,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Validate checks the fields a store relies on
func (f *Feedback) Validate() error {
	if f.EvaluationID == "" {
		return domain.NewValidationError("evaluation_id", "evaluation_id is required", "")
	}
	if r, err := domain.ParseRegion(string(f.Region)); err != nil || r != f.Region {
		return domain.NewValidationError("region", "must be JP, EU or US", string(f.Region))
	}
	if err := checkTarget("suggested_target_mg_dl", f.SuggestedTarget); err != nil {
		return err
	}
	return checkTarget("clinician_target_mg_dl", f.ClinicianTarget)
}

// insertTimes returns the timestamps for a new row. Times already set on
// the entry are kept, so imported feedback retains its history.
func (f *Feedback) insertTimes(now time.Time) (created, updated time.Time) {
	created, updated = now, now
	if !f.CreatedAt.IsZero() {
		created = f.CreatedAt.UTC()
		updated = created
	}
	if !f.UpdatedAt.IsZero() {
		updated = f.UpdatedAt.UTC()
	}
	return created, updated
}

func checkTarget(field string, v int) error {
	if v <= 0 || v > domain.MaxLDL {
		return domain.NewValidationError(field,
			fmt.Sprintf("must be between 1 and %d mg/dL", domain.MaxLDL), v)
	}
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback.
	// If feedback for the same evaluation+region exists, it will be updated.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for an evaluation and region, or nil if none exists.
	Get(ctx context.Context, evaluationID string, region domain.Region) (*Feedback, error)

	// List returns feedback entries, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	// Returns the number of entries written.
	ExportJSON(ctx context.Context, writer io.Writer) (int, error)

	// ImportJSON imports feedback from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Ping checks the backing database.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

// ExportVersion is written to every export
const ExportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000
