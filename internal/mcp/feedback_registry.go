package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/service"
)

// SubmitFeedbackParams defines parameters for the submit_target_feedback tool
type SubmitFeedbackParams struct {
	EvaluationID    string `json:"evaluation_id" jsonschema:"ID returned by evaluate_ldl_targets"`
	Region          string `json:"region" jsonschema:"JP, EU or US"`
	Agreed          bool   `json:"agreed" jsonschema:"true if the suggested target is clinically appropriate"`
	ClinicianTarget *int   `json:"clinician_target_mg_dl,omitempty" jsonschema:"target chosen by the clinician; required when not agreeing"`
	Notes           string `json:"notes,omitempty" jsonschema:"free-text rationale; must not contain patient identifiers"`
}

// QueryFeedbackParams defines parameters for the query_target_feedback tool
type QueryFeedbackParams struct {
	EvaluationID string `json:"evaluation_id"`
	Region       string `json:"region" jsonschema:"JP, EU or US"`
}

// ListFeedbackParams defines parameters for the list_target_feedback tool
type ListFeedbackParams struct {
	Limit  int `json:"limit,omitempty" jsonschema:"page size, default 20, at most 100"`
	Offset int `json:"offset,omitempty"`
}

// DeleteFeedbackParams defines parameters for the delete_target_feedback tool
type DeleteFeedbackParams struct {
	ID int64 `json:"id" jsonschema:"feedback entry ID as returned by submit or list"`
}

// ExportFeedbackResult defines the result of export_target_feedback
type ExportFeedbackResult struct {
	FilePath string `json:"file_path"`
	Count    int    `json:"count"`
	Message  string `json:"message"`
}

// ImportFeedbackParams defines parameters for the import_target_feedback tool
type ImportFeedbackParams struct {
	FilePath string `json:"file_path" jsonschema:"path of a file written by export_target_feedback"`
}

// ImportFeedbackResult defines the result of import_target_feedback
type ImportFeedbackResult struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

type feedbackTools struct {
	logger    *logrus.Logger
	feedback  *service.FeedbackService
	exportDir string
}

// register adds the feedback tools. Export and import touch the local
// filesystem and are only offered when an export directory is configured.
func (t *feedbackTools) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "submit_target_feedback",
		Description: "Record whether a clinician agrees with one region's suggested LDL-C target from a recent " +
			"evaluation. Resubmitting for the same evaluation and region replaces the earlier entry.",
	}, t.submit)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_target_feedback",
		Description: "Look up the feedback recorded for an evaluation and region.",
	}, t.query)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_target_feedback",
		Description: "List recorded target feedback, newest first.",
	}, t.list)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_target_feedback",
		Description: "Delete one feedback entry by ID.",
	}, t.delete)

	if t.exportDir == "" {
		return
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_target_feedback",
		Description: "Export all target feedback to a JSON file for backup.",
	}, t.export)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_target_feedback",
		Description: "Import target feedback from a JSON export. Existing entries are kept.",
	}, t.importFile)
}

func (t *feedbackTools) submit(ctx context.Context, _ *mcp.CallToolRequest, in SubmitFeedbackParams) (*mcp.CallToolResult, any, error) {
	fb, err := t.feedback.Submit(ctx, &service.SubmitFeedbackRequest{
		EvaluationID:    in.EvaluationID,
		Region:          in.Region,
		Agreed:          in.Agreed,
		ClinicianTarget: in.ClinicianTarget,
		Notes:           in.Notes,
	})
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, fb, nil
}

func (t *feedbackTools) query(ctx context.Context, _ *mcp.CallToolRequest, in QueryFeedbackParams) (*mcp.CallToolResult, any, error) {
	region, err := domain.ParseRegion(in.Region)
	if err != nil {
		return nil, nil, fmt.Errorf("unknown region %q: must be JP, EU or US", in.Region)
	}
	fb, err := t.feedback.Get(ctx, in.EvaluationID, region)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, fb, nil
}

func (t *feedbackTools) list(ctx context.Context, _ *mcp.CallToolRequest, in ListFeedbackParams) (*mcp.CallToolResult, any, error) {
	page, err := t.feedback.List(ctx, in.Limit, in.Offset)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, page, nil
}

func (t *feedbackTools) delete(ctx context.Context, _ *mcp.CallToolRequest, in DeleteFeedbackParams) (*mcp.CallToolResult, any, error) {
	if in.ID <= 0 {
		return nil, nil, fmt.Errorf("invalid id: must be a positive integer")
	}
	if err := t.feedback.Delete(ctx, in.ID); err != nil {
		return nil, nil, toolError(err)
	}
	return nil, map[string]any{
		"id":      in.ID,
		"deleted": true,
	}, nil
}

// export writes to a temporary file in the export directory and renames it
// into place once complete, so a failed export leaves nothing behind.
func (t *feedbackTools) export(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	if err := os.MkdirAll(t.exportDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating export directory: %w", err)
	}

	filename := fmt.Sprintf("target_feedback_%s.json", time.Now().UTC().Format("20060102_150405.000"))
	filePath := filepath.Join(t.exportDir, filename)

	file, err := os.CreateTemp(t.exportDir, ".export-*.tmp")
	if err != nil {
		return nil, nil, fmt.Errorf("creating export file: %w", err)
	}
	tmpPath := file.Name()

	count, err := t.feedback.Export(ctx, file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing export file: %w", closeErr)
	}
	if err == nil {
		err = os.Rename(tmpPath, filePath)
	}
	if err != nil {
		os.Remove(tmpPath)
		t.logger.WithError(err).Error("Failed to export feedback")
		return nil, nil, toolError(err)
	}

	return nil, ExportFeedbackResult{
		FilePath: filePath,
		Count:    count,
		Message:  fmt.Sprintf("Exported %d feedback entries to %s", count, filePath),
	}, nil
}

func (t *feedbackTools) importFile(ctx context.Context, _ *mcp.CallToolRequest, in ImportFeedbackParams) (*mcp.CallToolResult, any, error) {
	if in.FilePath == "" {
		return nil, nil, fmt.Errorf("invalid file_path: file_path is required")
	}
	file, err := os.Open(in.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening import file: %w", err)
	}
	defer file.Close()

	imported, skipped, err := t.feedback.Import(ctx, file)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, ImportFeedbackResult{
		Imported: imported,
		Skipped:  skipped,
		Message:  fmt.Sprintf("Imported %d feedback entries, skipped %d", imported, skipped),
	}, nil
}
