package mcp

import (
	"errors"
	"fmt"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/feedback"
)

// toolError turns a service error into the message shown to the client.
// Returned from a tool handler it becomes a result with IsError set.
func toolError(err error) error {
	if ve, ok := domain.AsValidationError(err); ok {
		return fmt.Errorf("invalid %s: %s", ve.Field, ve.Message)
	}
	switch {
	case errors.Is(err, domain.ErrEvaluationNotFound):
		return errors.New("evaluation not found or expired; run evaluate_ldl_targets again")
	case errors.Is(err, domain.ErrFeedbackNotFound):
		return errors.New("no feedback recorded for this evaluation and region")
	case feedback.IsUnavailable(err):
		return errors.New("feedback storage is temporarily unavailable")
	case errors.Is(err, domain.ErrStorage):
		return errors.New("feedback storage failed")
	default:
		return fmt.Errorf("internal error: %w", err)
	}
}
