package service

import (
	"fmt"

	"github.com/ldl-target-server/internal/domain"
)

// GuidelineRule is one branch of a regional decision cascade.
// A nil Matches makes the rule unconditional.
type GuidelineRule struct {
	Code        string
	TargetLDL   int
	Label       string
	Description string
	Matches     func(p domain.PatientProfile) bool
}

// GuidelineRuleSet is an ordered cascade for one region: rules are evaluated
// top to bottom, most severe first, and the first match wins.
type GuidelineRuleSet struct {
	Region domain.Region
	Rules  []GuidelineRule
}

// Apply returns the verdict of the first matching rule
func (rs GuidelineRuleSet) Apply(p domain.PatientProfile) domain.RegionalTarget {
	for _, rule := range rs.Rules {
		if rule.Matches == nil || rule.Matches(p) {
			return domain.RegionalTarget{
				Region:       rs.Region,
				TargetLDL:    rule.TargetLDL,
				RiskCategory: rule.Label,
				RuleCode:     rule.Code,
				Description:  rule.Description,
			}
		}
	}
	// unreachable for a rule set that passes Validate
	return domain.RegionalTarget{Region: rs.Region}
}

// Validate checks the cascade is total: non-empty, positive targets, unique
// codes and an unconditional final rule.
func (rs GuidelineRuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return fmt.Errorf("rule set %s has no rules", rs.Region)
	}
	seen := make(map[string]bool, len(rs.Rules))
	for i, rule := range rs.Rules {
		if rule.TargetLDL <= 0 {
			return fmt.Errorf("rule %s has non-positive target %d", rule.Code, rule.TargetLDL)
		}
		if seen[rule.Code] {
			return fmt.Errorf("duplicate rule code %s", rule.Code)
		}
		seen[rule.Code] = true
		if rule.Matches == nil && i != len(rs.Rules)-1 {
			return fmt.Errorf("unconditional rule %s shadows later rules", rule.Code)
		}
	}
	if rs.Rules[len(rs.Rules)-1].Matches != nil {
		return fmt.Errorf("rule set %s does not end in an unconditional rule", rs.Region)
	}
	return nil
}

// JASRuleSet is the Japan Atherosclerosis Society 2022 cascade. Stroke/PAD
// history is a separate high-risk tier, not secondary prevention.
func JASRuleSet() GuidelineRuleSet {
	return GuidelineRuleSet{
		Region: domain.RegionJP,
		Rules: []GuidelineRule{
			{
				Code:        "JP_SECONDARY_EXTREME",
				TargetLDL:   55,
				Label:       "Secondary prevention: extreme risk",
				Description: "Recurrent or progressive coronary events despite treatment, or polyvascular disease.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasCoronaryArteryDisease() && p.IsExtremeRisk()
				},
			},
			{
				Code:        "JP_SECONDARY_HIGH",
				TargetLDL:   70,
				Label:       "Secondary prevention: high risk",
				Description: "Coronary artery disease with ACS, diabetes, familial hypercholesterolemia or CKD.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasCoronaryArteryDisease() && p.IsVeryHighRiskCondition()
				},
			},
			{
				Code:        "JP_SECONDARY_GENERAL",
				TargetLDL:   100,
				Label:       "Secondary prevention: general",
				Description: "History of coronary artery disease.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasCoronaryArteryDisease()
				},
			},
			{
				Code:        "JP_HIGH_STROKE_PAD",
				TargetLDL:   120,
				Label:       "High risk: stroke/PAD",
				Description: "Non-cardioembolic ischemic stroke or peripheral artery disease.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasOtherAtheroscleroticHistory()
				},
			},
			{
				Code:        "JP_HIGH_COMORBIDITY",
				TargetLDL:   120,
				Label:       "High risk: DM/CKD/FH",
				Description: "Diabetes, chronic kidney disease or familial hypercholesterolemia.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasFamilialHypercholesterolemia() || p.HasCKD() || p.HasDiabetes()
				},
			},
			{
				Code:        "JP_MEDIUM",
				TargetLDL:   140,
				Label:       "Medium risk",
				Description: "Several minor risk factors accumulate; formal Suita score assessment advised.",
				Matches: func(p domain.PatientProfile) bool {
					return p.RiskFactorCount() >= 2
				},
			},
			{
				Code:        "JP_LOW",
				TargetLDL:   160,
				Label:       "Low risk",
				Description: "Few major risk factors.",
			},
		},
	}
}

// ESCRuleSet is the ESC/EAS cascade. Any ASCVD history counts as
// secondary prevention.
func ESCRuleSet() GuidelineRuleSet {
	return GuidelineRuleSet{
		Region: domain.RegionEU,
		Rules: []GuidelineRule{
			{
				Code:        "EU_ASCVD_RECURRENT",
				TargetLDL:   40,
				Label:       "Very high risk: recurrent event within 2 years",
				Description: "Second vascular event within two years while on maximally tolerated statin.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasASCVD() && p.IsExtremeRisk()
				},
			},
			{
				Code:        "EU_ASCVD",
				TargetLDL:   55,
				Label:       "Very high risk: ASCVD",
				Description: "Documented atherosclerotic cardiovascular disease.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasASCVD()
				},
			},
			{
				Code:        "EU_VERY_HIGH",
				TargetLDL:   55,
				Label:       "Very high risk",
				Description: "Diabetes or FH with another major risk factor, or CKD.",
				Matches: func(p domain.PatientProfile) bool {
					rf := p.RiskFactorCount()
					return (p.HasDiabetes() && rf >= 1) || p.HasCKD() ||
						(p.HasFamilialHypercholesterolemia() && rf >= 1)
				},
			},
			{
				Code:        "EU_HIGH",
				TargetLDL:   70,
				Label:       "High risk",
				Description: "Familial hypercholesterolemia or diabetes without additional risk factors.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasFamilialHypercholesterolemia() || p.HasDiabetes()
				},
			},
			{
				Code:        "EU_MODERATE",
				TargetLDL:   100,
				Label:       "Moderate risk",
				Description: "Three or more minor risk factors; approximates SCORE2 moderate risk.",
				Matches: func(p domain.PatientProfile) bool {
					return p.RiskFactorCount() >= 3
				},
			},
			{
				Code:        "EU_LOW",
				TargetLDL:   116,
				Label:       "Low risk",
				Description: "Low estimated 10-year risk.",
			},
		},
	}
}

// ACCRuleSet is the ACC/AHA cascade with ADA management for diabetes.
func ACCRuleSet() GuidelineRuleSet {
	return GuidelineRuleSet{
		Region: domain.RegionUS,
		Rules: []GuidelineRule{
			{
				Code:        "US_ASCVD_VERY_HIGH",
				TargetLDL:   55,
				Label:       "Very high risk ASCVD",
				Description: "Clinical ASCVD with multiple major events or high-risk conditions.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasASCVD() && (p.IsVeryHighRiskCondition() || p.IsExtremeRisk())
				},
			},
			{
				Code:        "US_ASCVD",
				TargetLDL:   70,
				Label:       "High risk ASCVD",
				Description: "Clinical atherosclerotic cardiovascular disease.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasASCVD()
				},
			},
			{
				Code:        "US_DM_FH",
				TargetLDL:   70,
				Label:       "Strict management: DM/FH",
				Description: "Diabetes or familial hypercholesterolemia.",
				Matches: func(p domain.PatientProfile) bool {
					return p.HasDiabetes() || p.HasFamilialHypercholesterolemia()
				},
			},
			{
				Code:        "US_MODERATE",
				TargetLDL:   100,
				Label:       "Moderate risk",
				Description: "Two or more risk-enhancing factors.",
				Matches: func(p domain.PatientProfile) bool {
					return p.RiskFactorCount() >= 2
				},
			},
			{
				Code:        "US_LOW",
				TargetLDL:   130,
				Label:       "Low risk: lifestyle modification",
				Description: "Lifestyle modification is the primary intervention.",
			},
		},
	}
}
