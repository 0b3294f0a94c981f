package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/health"
	"github.com/ldl-target-server/internal/service"
)

// handleHealth is the liveness probe
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    health.StateHealthy,
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
	})
}

// handleReady runs the registered dependency checks
func (s *Server) handleReady(c *gin.Context) {
	if s.checker == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StateHealthy})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := s.checker.Run(ctx)
	code := http.StatusOK
	if status.Overall != health.StateHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) evaluate(c *gin.Context) (*service.EvaluationReport, bool) {
	var req service.EvaluateRequest
	if err := bindStrictJSON(c, &req); err != nil {
		s.respondBindError(c, err)
		return nil, false
	}

	report, err := s.evaluator.EvaluateRequest(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return report, true
}

// handleEvaluate returns the three regional targets for a profile
func (s *Server) handleEvaluate(c *gin.Context) {
	report, ok := s.evaluate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleEvaluateChart renders the evaluation as an HTML bar chart
func (s *Server) handleEvaluateChart(c *gin.Context) {
	report, ok := s.evaluate(c)
	if !ok {
		return
	}

	page, err := RenderComparisonChart(report)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header(evaluationIDHeader, report.EvaluationID)
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

const evaluationIDHeader = "X-Evaluation-ID"

// handleGetEvaluation returns a recent report from the cache
func (s *Server) handleGetEvaluation(c *gin.Context) {
	report, err := s.evaluator.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleGuidelines lists every region's ordered rules
func (s *Server) handleGuidelines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"guidelines": s.evaluator.GuidelineTables()})
}

func (s *Server) requireFeedback(c *gin.Context) bool {
	if s.feedback != nil {
		return true
	}
	s.abort(c, http.StatusServiceUnavailable, domain.NewAPIError(domain.ErrServiceDegraded,
		"Feedback storage is not configured", "", requestID(c)))
	return false
}

// handleSubmitFeedback records a clinician's response to a suggested target
func (s *Server) handleSubmitFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}

	var req service.SubmitFeedbackRequest
	if err := bindStrictJSON(c, &req); err != nil {
		s.respondBindError(c, err)
		return
	}

	fb, err := s.feedback.Submit(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// handleListFeedback returns one page of feedback, newest first
func (s *Server) handleListFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}

	limit, err := queryInt(c, "limit", service.DefaultFeedbackPageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}

	page, err := s.feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// handleDeleteFeedback removes one feedback entry by ID
func (s *Server) handleDeleteFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(c, domain.NewValidationError("id", "must be a positive integer", c.Param("id")))
		return
	}

	if err := s.feedback.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleExportFeedback streams every entry as a JSON attachment
func (s *Server) handleExportFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="ldl-target-feedback.json"`)
	if _, err := s.feedback.Export(c.Request.Context(), c.Writer); err != nil {
		if c.Writer.Written() {
			s.logger.WithError(err).Error("Feedback export interrupted")
			return
		}
		s.respondError(c, err)
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, key+" must be an integer", raw)
	}
	return v, nil
}
