package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/feedback"
	"github.com/ldl-target-server/internal/metrics"
)

// Paging bounds for feedback listings
const (
	DefaultFeedbackPageSize = 20
	MaxFeedbackPageSize     = 100
)

// SubmitFeedbackRequest records a clinician's response to one region's target
type SubmitFeedbackRequest struct {
	EvaluationID    string `json:"evaluation_id"`
	Region          string `json:"region"`
	Agreed          bool   `json:"agreed"`
	ClinicianTarget *int   `json:"clinician_target_mg_dl,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// FeedbackPage is one page of feedback entries
type FeedbackPage struct {
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Feedback []*feedback.Feedback `json:"feedback"`
}

// FeedbackService checks clinician feedback against the suggested target of
// a recent evaluation before storing it.
type FeedbackService struct {
	logger    *logrus.Logger
	store     feedback.Store
	evaluator *EvaluatorService
}

// NewFeedbackService creates a feedback service
func NewFeedbackService(logger *logrus.Logger, store feedback.Store, evaluator *EvaluatorService) *FeedbackService {
	return &FeedbackService{
		logger:    logger,
		store:     store,
		evaluator: evaluator,
	}
}

// Submit stores feedback for a region of a cached evaluation. The suggested
// target always comes from the report, never from the caller.
func (s *FeedbackService) Submit(ctx context.Context, req *SubmitFeedbackRequest) (*feedback.Feedback, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request body is required", nil)
	}
	if strings.TrimSpace(req.EvaluationID) == "" {
		return nil, domain.NewValidationError("evaluation_id", "evaluation_id is required", nil)
	}
	region, err := domain.ParseRegion(req.Region)
	if err != nil {
		return nil, domain.NewValidationError("region", "must be JP, EU or US", req.Region)
	}

	report, err := s.evaluator.GetReport(ctx, req.EvaluationID)
	if err != nil {
		return nil, err
	}
	outcome, ok := report.Outcome(region)
	if !ok {
		return nil, fmt.Errorf("evaluation %s has no %s outcome: %w", req.EvaluationID, region, domain.ErrIncompleteTargetSet)
	}

	clinicianTarget := outcome.TargetLDL
	switch {
	case req.ClinicianTarget == nil && !req.Agreed:
		return nil, domain.NewValidationError("clinician_target_mg_dl",
			"clinician_target_mg_dl is required when disagreeing", nil)
	case req.ClinicianTarget != nil && req.Agreed && *req.ClinicianTarget != outcome.TargetLDL:
		return nil, domain.NewValidationError("clinician_target_mg_dl",
			"must equal the suggested target when agreeing", *req.ClinicianTarget)
	case req.ClinicianTarget != nil:
		clinicianTarget = *req.ClinicianTarget
	}

	fb := &feedback.Feedback{
		EvaluationID:      report.EvaluationID,
		Region:            region,
		SuggestedTarget:   outcome.TargetLDL,
		SuggestedRuleCode: outcome.RuleCode,
		ClinicianTarget:   clinicianTarget,
		Agreed:            req.Agreed,
		Notes:             strings.TrimSpace(req.Notes),
	}
	if err := s.store.Save(ctx, fb); err != nil {
		return nil, fmt.Errorf("saving feedback: %w: %w", domain.ErrStorage, err)
	}

	metrics.FeedbackSubmissions.WithLabelValues(string(region), strconv.FormatBool(fb.Agreed)).Inc()
	s.logger.WithFields(logrus.Fields{
		"evaluation_id": fb.EvaluationID,
		"region":        fb.Region,
		"rule":          fb.SuggestedRuleCode,
		"agreed":        fb.Agreed,
	}).Info("Target feedback recorded")

	return fb, nil
}

// Get returns feedback for an evaluation and region
func (s *FeedbackService) Get(ctx context.Context, evaluationID string, region domain.Region) (*feedback.Feedback, error) {
	fb, err := s.store.Get(ctx, evaluationID, region)
	if err != nil {
		return nil, fmt.Errorf("loading feedback: %w: %w", domain.ErrStorage, err)
	}
	if fb == nil {
		return nil, fmt.Errorf("evaluation %s region %s: %w", evaluationID, region, domain.ErrFeedbackNotFound)
	}
	return fb, nil
}

// List returns a page of feedback, newest first. Out-of-range paging values
// are clamped.
func (s *FeedbackService) List(ctx context.Context, limit, offset int) (*FeedbackPage, error) {
	if limit <= 0 {
		limit = DefaultFeedbackPageSize
	}
	if limit > MaxFeedbackPageSize {
		limit = MaxFeedbackPageSize
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w: %w", domain.ErrStorage, err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting feedback: %w: %w", domain.ErrStorage, err)
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	return &FeedbackPage{Total: total, Limit: limit, Offset: offset, Feedback: entries}, nil
}

// Delete removes one feedback entry
func (s *FeedbackService) Delete(ctx context.Context, id int64) error {
	err := s.store.Delete(ctx, id)
	if err == nil || errors.Is(err, domain.ErrFeedbackNotFound) {
		return err
	}
	return fmt.Errorf("deleting feedback: %w: %w", domain.ErrStorage, err)
}

// Export writes every entry as JSON and returns how many were written
func (s *FeedbackService) Export(ctx context.Context, w io.Writer) (int, error) {
	count, err := s.store.ExportJSON(ctx, w)
	if err != nil {
		return 0, fmt.Errorf("exporting feedback: %w: %w", domain.ErrStorage, err)
	}
	return count, nil
}

// Import loads entries from a previous export, skipping existing ones
func (s *FeedbackService) Import(ctx context.Context, r io.Reader) (int, int, error) {
	imported, skipped, err := s.store.ImportJSON(ctx, r)
	if err != nil {
		return imported, skipped, fmt.Errorf("importing feedback: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Feedback import completed")
	return imported, skipped, nil
}
