package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/domain"
	"github.com/ldl-target-server/internal/service"
)

// EvaluateTargetsParams defines parameters for the evaluate_ldl_targets tool
type EvaluateTargetsParams struct {
	CurrentLDL                      *int     `json:"current_ldl" jsonschema:"current LDL-C in mg/dL (0-500)"`
	Age                             *int     `json:"age" jsonschema:"age in years (20-100)"`
	Sex                             *string  `json:"sex" jsonschema:"male or female"`
	HasCoronaryArteryDisease        bool     `json:"has_coronary_artery_disease,omitempty" jsonschema:"history of coronary artery disease"`
	HasOtherAtheroscleroticHistory  bool     `json:"has_other_atherosclerotic_history,omitempty" jsonschema:"non-cardioembolic ischemic stroke or peripheral artery disease"`
	IsExtremeRisk                   bool     `json:"is_extreme_risk,omitempty" jsonschema:"recurrent or progressive event despite treatment; only applies with a history flag"`
	IsVeryHighRiskCondition         bool     `json:"is_very_high_risk_condition,omitempty" jsonschema:"with CAD: ACS, diabetes, CKD or FH"`
	HasDiabetes                     bool     `json:"has_diabetes,omitempty" jsonschema:"diabetes mellitus"`
	HasCKD                          bool     `json:"has_ckd,omitempty" jsonschema:"chronic kidney disease"`
	HasFamilialHypercholesterolemia bool     `json:"has_familial_hypercholesterolemia,omitempty" jsonschema:"familial hypercholesterolemia"`
	OtherRiskFactors                []string `json:"other_risk_factors,omitempty" jsonschema:"minor risk factors counted toward the primary prevention score"`
}

// evaluateInputSchema is the inferred schema with other_risk_factors
// restricted to the recognized factor names.
func evaluateInputSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[EvaluateTargetsParams](nil)
	if err != nil {
		return nil, fmt.Errorf("inferring evaluate_ldl_targets schema: %w", err)
	}
	factors, ok := schema.Properties["other_risk_factors"]
	if !ok || factors.Items == nil {
		return nil, fmt.Errorf("evaluate_ldl_targets schema has no other_risk_factors items")
	}
	factors.Items.Enum = make([]any, 0, len(domain.AllRiskFactors))
	for _, f := range domain.AllRiskFactors {
		factors.Items.Enum = append(factors.Items.Enum, string(f))
	}
	return schema, nil
}

func (p EvaluateTargetsParams) toRequest() *service.EvaluateRequest {
	return &service.EvaluateRequest{
		CurrentLDL:                      p.CurrentLDL,
		HasCoronaryArteryDisease:        p.HasCoronaryArteryDisease,
		HasOtherAtheroscleroticHistory:  p.HasOtherAtheroscleroticHistory,
		IsExtremeRisk:                   p.IsExtremeRisk,
		IsVeryHighRiskCondition:         p.IsVeryHighRiskCondition,
		HasDiabetes:                     p.HasDiabetes,
		HasCKD:                          p.HasCKD,
		HasFamilialHypercholesterolemia: p.HasFamilialHypercholesterolemia,
		Age:                             p.Age,
		Sex:                             p.Sex,
		OtherRiskFactors:                p.OtherRiskFactors,
	}
}

// GetEvaluationParams defines parameters for the get_evaluation tool
type GetEvaluationParams struct {
	EvaluationID string `json:"evaluation_id" jsonschema:"ID returned by evaluate_ldl_targets"`
}

// ListGuidelineRulesParams defines parameters for the list_guideline_rules tool
type ListGuidelineRulesParams struct {
	Region string `json:"region,omitempty" jsonschema:"JP, EU or US; all regions when empty"`
}

// targetTools serves the evaluation tools
type targetTools struct {
	logger    *logrus.Logger
	evaluator *service.EvaluatorService
}

func (t *targetTools) register(server *mcp.Server) {
	// The schema is static; mcp.AddTool panics the same way on a bad one.
	inputSchema, err := evaluateInputSchema()
	if err != nil {
		panic(err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "evaluate_ldl_targets",
		Description: "Compute LDL-C treatment targets under the Japanese (JAS 2022), European (ESC/EAS 2019) " +
			"and US (ACC/AHA 2018, ADA) guidelines for one patient profile. Returns each region's target, " +
			"risk category, the gap to the current LDL-C and an evaluation_id for feedback.",
		InputSchema: inputSchema,
	}, t.evaluate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_evaluation",
		Description: "Fetch a recent evaluation report by evaluation_id. Reports expire after the cache TTL.",
	}, t.getEvaluation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_guideline_rules",
		Description: "List each guideline's ordered decision rules with their LDL-C targets and risk categories.",
	}, t.listRules)
}

func (t *targetTools) evaluate(ctx context.Context, _ *mcp.CallToolRequest, in EvaluateTargetsParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "evaluate_ldl_targets").Debug("Tool invoked")

	report, err := t.evaluator.EvaluateRequest(ctx, in.toRequest())
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, report, nil
}

func (t *targetTools) getEvaluation(ctx context.Context, _ *mcp.CallToolRequest, in GetEvaluationParams) (*mcp.CallToolResult, any, error) {
	report, err := t.evaluator.GetReport(ctx, in.EvaluationID)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, report, nil
}

func (t *targetTools) listRules(_ context.Context, _ *mcp.CallToolRequest, in ListGuidelineRulesParams) (*mcp.CallToolResult, any, error) {
	tables := t.evaluator.GuidelineTables()
	if in.Region == "" {
		return nil, map[string]any{"guidelines": tables}, nil
	}

	region, err := domain.ParseRegion(in.Region)
	if err != nil {
		return nil, nil, fmt.Errorf("unknown region %q: must be JP, EU or US", in.Region)
	}
	for _, table := range tables {
		if table.Region == region {
			return nil, map[string]any{"guidelines": []service.GuidelineTable{table}}, nil
		}
	}
	return nil, nil, fmt.Errorf("no rules loaded for region %s", region)
}
