package service

import (
	"fmt"

	"github.com/ldl-target-server/internal/domain"
)

// TargetEngine evaluates the three regional guideline cascades.
// It holds only immutable rule tables and is safe for concurrent use.
type TargetEngine struct {
	ruleSets map[domain.Region]GuidelineRuleSet
}

var _ domain.RiskStratificationEngine = (*TargetEngine)(nil)

// NewTargetEngine creates an engine over the built-in JAS, ESC/EAS and ACC/AHA rule sets
func NewTargetEngine() *TargetEngine {
	engine, err := NewTargetEngineWithRules(JASRuleSet(), ESCRuleSet(), ACCRuleSet())
	if err != nil {
		panic(fmt.Sprintf("built-in guideline rules are invalid: %v", err))
	}
	return engine
}

// NewTargetEngineWithRules creates an engine over custom rule sets. Exactly
// one valid rule set per region is required.
func NewTargetEngineWithRules(ruleSets ...GuidelineRuleSet) (*TargetEngine, error) {
	engine := &TargetEngine{ruleSets: make(map[domain.Region]GuidelineRuleSet, len(domain.Regions))}

	for _, rs := range ruleSets {
		if _, err := domain.ParseRegion(string(rs.Region)); err != nil {
			return nil, err
		}
		if _, dup := engine.ruleSets[rs.Region]; dup {
			return nil, fmt.Errorf("duplicate rule set for region %s", rs.Region)
		}
		if err := rs.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s rule set: %w", rs.Region, err)
		}
		engine.ruleSets[rs.Region] = rs
	}

	for _, region := range domain.Regions {
		if _, ok := engine.ruleSets[region]; !ok {
			return nil, fmt.Errorf("missing rule set for region %s", region)
		}
	}

	return engine, nil
}

// Evaluate runs each regional cascade independently against the same profile.
func (e *TargetEngine) Evaluate(profile domain.PatientProfile) domain.RegionalTargetSet {
	return domain.RegionalTargetSet{
		JP: e.ruleSets[domain.RegionJP].Apply(profile),
		EU: e.ruleSets[domain.RegionEU].Apply(profile),
		US: e.ruleSets[domain.RegionUS].Apply(profile),
	}
}

// GuidelineEntry is a read-only view of one rule for reference listings
type GuidelineEntry struct {
	Order       int    `json:"order"`
	Code        string `json:"code"`
	TargetLDL   int    `json:"target_ldl_mg_dl"`
	Label       string `json:"risk_category_label"`
	Description string `json:"description"`
}

// GuidelineTable lists one region's rules in evaluation order
type GuidelineTable struct {
	Region    domain.Region    `json:"region"`
	Guideline string           `json:"guideline"`
	Rules     []GuidelineEntry `json:"rules"`
}

// GuidelineTables returns the reference table for every region
func (e *TargetEngine) GuidelineTables() []GuidelineTable {
	tables := make([]GuidelineTable, 0, len(domain.Regions))
	for _, region := range domain.Regions {
		rs := e.ruleSets[region]
		table := GuidelineTable{
			Region:    region,
			Guideline: region.Guideline(),
			Rules:     make([]GuidelineEntry, 0, len(rs.Rules)),
		}
		for i, rule := range rs.Rules {
			table.Rules = append(table.Rules, GuidelineEntry{
				Order:       i + 1,
				Code:        rule.Code,
				TargetLDL:   rule.TargetLDL,
				Label:       rule.Label,
				Description: rule.Description,
			})
		}
		tables = append(tables, table)
	}
	return tables
}
