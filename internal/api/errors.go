package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/feedback"
	"github.com/ldl-target-server/internal/middleware"
)

// ErrorResponse wraps an APIError for JSON output
type ErrorResponse struct {
	Error *domain.APIError `json:"error"`
}

func (s *Server) abort(c *gin.Context, status int, apiErr *domain.APIError) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: apiErr})
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationIDKey)
}

// respondError maps service errors onto status codes and coded envelopes.
// Internal error text is logged, never returned.
func (s *Server) respondError(c *gin.Context, err error) {
	rid := requestID(c)

	if ve, ok := domain.AsValidationError(err); ok {
		apiErr := domain.NewAPIError(domain.ErrValidation, ve.Message, "", rid)
		apiErr.Field = ve.Field
		s.abort(c, http.StatusBadRequest, apiErr)
		return
	}

	switch {
	case errors.Is(err, domain.ErrEvaluationNotFound):
		s.abort(c, http.StatusNotFound, domain.NewAPIError(domain.ErrNotFound,
			"Evaluation not found or expired", "", rid))
	case errors.Is(err, domain.ErrFeedbackNotFound):
		s.abort(c, http.StatusNotFound, domain.NewAPIError(domain.ErrNotFound,
			"Feedback not found", "", rid))
	case feedback.IsUnavailable(err):
		s.logger.WithError(err).WithField("correlation_id", rid).Warn("Feedback store unavailable")
		c.Header("Retry-After", "30")
		s.abort(c, http.StatusServiceUnavailable, domain.NewAPIError(domain.ErrServiceDegraded,
			"Feedback storage is temporarily unavailable", "", rid))
	case errors.Is(err, domain.ErrStorage):
		s.logger.WithError(err).WithField("correlation_id", rid).Error("Feedback store failure")
		s.abort(c, http.StatusInternalServerError, domain.NewAPIError(domain.ErrFeedbackStore,
			"Feedback storage failed", "", rid))
	case errors.Is(err, domain.ErrIncompleteTargetSet):
		s.logger.WithError(err).WithField("correlation_id", rid).Error("Evaluation failed")
		s.abort(c, http.StatusInternalServerError, domain.NewAPIError(domain.ErrEvaluation,
			"Evaluation could not produce a complete result", "", rid))
	default:
		s.logger.WithError(err).WithField("correlation_id", rid).Error("Request failed")
		s.abort(c, http.StatusInternalServerError, domain.NewAPIError(domain.ErrInternalServer,
			"Internal server error", "", rid))
	}
}

// bindStrictJSON decodes the body with gin's JSON binding but rejects
// fields the target type does not declare. A misspelled clinical flag
// would otherwise decode as false.
func bindStrictJSON(c *gin.Context, obj any) error {
	return c.ShouldBindWith(obj, strictJSON{})
}

type strictJSON struct{}

func (strictJSON) Name() string { return "json" }

func (strictJSON) Bind(req *http.Request, obj any) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(obj); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}

// unknownField extracts the field name from encoding/json's
// DisallowUnknownFields error.
func unknownField(err error) (string, bool) {
	name, ok := strings.CutPrefix(err.Error(), `json: unknown field "`)
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(name, `"`), true
}

// respondBindError reports a body that could not be decoded
func (s *Server) respondBindError(c *gin.Context, err error) {
	if field, ok := unknownField(err); ok {
		apiErr := domain.NewAPIError(domain.ErrValidation, "unknown field "+field, "", requestID(c))
		apiErr.Field = field
		s.abort(c, http.StatusBadRequest, apiErr)
		return
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.abort(c, http.StatusRequestEntityTooLarge, domain.NewAPIError(domain.ErrInvalidInput,
			"Request body too large", "", requestID(c)))
		return
	}
	s.abort(c, http.StatusBadRequest, domain.NewAPIError(domain.ErrInvalidInput,
		"Request body must be a valid JSON object", "", requestID(c)))
}
