package domain

import (
	"errors"
	"fmt"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Field     string    `json:"field,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput    = "INVALID_INPUT"
	ErrValidation      = "VALIDATION_ERROR"
	ErrRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrNotFound        = "NOT_FOUND"
	ErrFeedbackStore   = "FEEDBACK_STORE_ERROR"
	ErrEvaluation      = "EVALUATION_ERROR"
	ErrInternalServer  = "INTERNAL_SERVER_ERROR"
	ErrServiceDegraded = "SERVICE_DEGRADED"
)

var (
	// ErrIncompleteTargetSet marks a result missing a region
	ErrIncompleteTargetSet = errors.New("incomplete regional target set")

	// ErrEvaluationNotFound is returned when an evaluation ID is unknown or expired
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrFeedbackNotFound is returned when no feedback exists for an evaluation and region
	ErrFeedbackNotFound = errors.New("feedback not found")

	// ErrStorage marks a failure of the feedback store itself
	ErrStorage = errors.New("feedback storage failure")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// AsValidationError unwraps a ValidationError from an error chain
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
