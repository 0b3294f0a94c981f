package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/metrics"
)

// NearGoalMargin is the width in mg/dL of the band above target that is
// reported as near goal.
const NearGoalMargin = 30

// GoalStatus places the current LDL relative to a regional target
type GoalStatus string

const (
	GoalStatusAtGoal    GoalStatus = "at_goal"
	GoalStatusNearGoal  GoalStatus = "near_goal"
	GoalStatusAboveGoal GoalStatus = "above_goal"
)

// RegionalOutcome is one region's verdict together with the derived gap
type RegionalOutcome struct {
	Region       domain.Region `json:"region"`
	Guideline    string        `json:"guideline"`
	TargetLDL    int           `json:"target_ldl_mg_dl"`
	RiskCategory string        `json:"risk_category_label"`
	RuleCode     string        `json:"rule_code"`
	Description  string        `json:"description"`
	Gap          int           `json:"gap_mg_dl"`
	GoalMet      bool          `json:"goal_met"`
	Status       GoalStatus    `json:"status"`
}

// NewRegionalOutcome derives the gap and status band for a target.
// A positive gap means a reduction is needed.
func NewRegionalOutcome(currentLDL int, target domain.RegionalTarget) RegionalOutcome {
	gap := currentLDL - target.TargetLDL

	status := GoalStatusAboveGoal
	switch {
	case currentLDL < target.TargetLDL:
		status = GoalStatusAtGoal
	case currentLDL < target.TargetLDL+NearGoalMargin:
		status = GoalStatusNearGoal
	}

	return RegionalOutcome{
		Region:       target.Region,
		Guideline:    target.Region.Guideline(),
		TargetLDL:    target.TargetLDL,
		RiskCategory: target.RiskCategory,
		RuleCode:     target.RuleCode,
		Description:  target.Description,
		Gap:          gap,
		GoalMet:      gap <= 0,
		Status:       status,
	}
}

// EvaluationReport is the rendered result of one evaluation. It carries no
// profile fields beyond the current LDL and the derived risk-factor count.
type EvaluationReport struct {
	EvaluationID    string                   `json:"evaluation_id"`
	CurrentLDL      int                      `json:"current_ldl"`
	RiskFactorCount int                      `json:"risk_factor_count"`
	Targets         domain.RegionalTargetSet `json:"targets"`
	Outcomes        []RegionalOutcome        `json:"outcomes"`
	EvaluatedAt     time.Time                `json:"evaluated_at"`
}

// Outcome returns the outcome for a region
func (r *EvaluationReport) Outcome(region domain.Region) (RegionalOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Region == region {
			return o, true
		}
	}
	return RegionalOutcome{}, false
}

type guidelineLister interface {
	GuidelineTables() []GuidelineTable
}

// EvaluatorService runs the engine, assembles reports and keeps recent
// reports in the report cache.
type EvaluatorService struct {
	logger *logrus.Logger
	engine domain.RiskStratificationEngine
	cache  domain.ReportCache
	now    func() time.Time
}

// NewEvaluatorService creates an evaluator. cache may be nil, in which case
// reports are not retained.
func NewEvaluatorService(
	logger *logrus.Logger,
	engine domain.RiskStratificationEngine,
	cache domain.ReportCache,
) *EvaluatorService {
	return &EvaluatorService{
		logger: logger,
		engine: engine,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateRequest parses a wire request and evaluates it
func (s *EvaluatorService) EvaluateRequest(ctx context.Context, req *EvaluateRequest) (*EvaluationReport, error) {
	profile, err := ParseProfile(req)
	if err != nil {
		if ve, ok := domain.AsValidationError(err); ok {
			metrics.ValidationFailures.WithLabelValues(ve.Field).Inc()
			s.logger.WithField("field", ve.Field).Debug("Rejected patient profile")
		}
		return nil, err
	}
	return s.Evaluate(ctx, profile)
}

// Evaluate computes all three regional targets for a validated profile
func (s *EvaluatorService) Evaluate(ctx context.Context, profile domain.PatientProfile) (*EvaluationReport, error) {
	targets := s.engine.Evaluate(profile)
	if err := targets.Validate(); err != nil {
		s.logger.WithError(err).Error("Engine produced an incomplete target set")
		return nil, fmt.Errorf("evaluating profile: %w", err)
	}

	report := &EvaluationReport{
		EvaluationID:    uuid.New().String(),
		CurrentLDL:      profile.CurrentLDL(),
		RiskFactorCount: profile.RiskFactorCount(),
		Targets:         targets,
		Outcomes:        make([]RegionalOutcome, 0, len(domain.Regions)),
		EvaluatedAt:     s.now(),
	}
	for _, t := range targets.All() {
		report.Outcomes = append(report.Outcomes, NewRegionalOutcome(profile.CurrentLDL(), t))
		metrics.RiskCategoryTotals.WithLabelValues(string(t.Region), t.RuleCode).Inc()
	}
	metrics.EvaluationsTotal.Inc()

	s.store(ctx, report)

	s.logger.WithFields(logrus.Fields{
		"evaluation_id":     report.EvaluationID,
		"risk_factor_count": report.RiskFactorCount,
		"jp_rule":           targets.JP.RuleCode,
		"eu_rule":           targets.EU.RuleCode,
		"us_rule":           targets.US.RuleCode,
	}).Info("LDL target evaluation completed")

	return report, nil
}

func (s *EvaluatorService) store(ctx context.Context, report *EvaluationReport) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode evaluation report")
		return
	}
	if err := s.cache.Set(ctx, report.EvaluationID, data); err != nil {
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		s.logger.WithError(err).WithField("evaluation_id", report.EvaluationID).
			Warn("Failed to cache evaluation report")
		return
	}
	metrics.CacheOperations.WithLabelValues("set", "ok").Inc()
}

// GetReport returns a recent report by evaluation ID. Unknown, expired and
// unreadable entries all yield domain.ErrEvaluationNotFound.
func (s *EvaluatorService) GetReport(ctx context.Context, evaluationID string) (*EvaluationReport, error) {
	if _, err := uuid.Parse(evaluationID); err != nil {
		return nil, fmt.Errorf("evaluation %q: %w", evaluationID, domain.ErrEvaluationNotFound)
	}
	if s.cache == nil {
		return nil, fmt.Errorf("evaluation %s: %w", evaluationID, domain.ErrEvaluationNotFound)
	}

	data, ok, err := s.cache.Get(ctx, evaluationID)
	if err != nil {
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		s.logger.WithError(err).WithField("evaluation_id", evaluationID).Warn("Report cache lookup failed")
		return nil, fmt.Errorf("evaluation %s: %w", evaluationID, errors.Join(domain.ErrEvaluationNotFound, err))
	}
	if !ok {
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		return nil, fmt.Errorf("evaluation %s: %w", evaluationID, domain.ErrEvaluationNotFound)
	}
	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()

	var report EvaluationReport
	if err := json.Unmarshal(data, &report); err != nil {
		s.logger.WithError(err).WithField("evaluation_id", evaluationID).Warn("Discarding corrupt cached report")
		return nil, fmt.Errorf("evaluation %s: %w", evaluationID, domain.ErrEvaluationNotFound)
	}
	return &report, nil
}

// GuidelineTables lists the engine's rules, or nil if the engine does not
// expose them.
func (s *EvaluatorService) GuidelineTables() []GuidelineTable {
	if l, ok := s.engine.(guidelineLister); ok {
		return l.GuidelineTables()
	}
	return nil
}
