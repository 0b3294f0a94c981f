package service

import (
	"fmt"

	"github.com/ldl-target-server/internal/domain"
)

// EvaluateRequest is the wire form of a patient profile. Pointer fields are
// required and distinguish a missing value from zero.
type EvaluateRequest struct {
	CurrentLDL                      *int     `json:"current_ldl"`
	HasCoronaryArteryDisease        bool     `json:"has_coronary_artery_disease"`
	HasOtherAtheroscleroticHistory  bool     `json:"has_other_atherosclerotic_history"`
	IsExtremeRisk                   bool     `json:"is_extreme_risk"`
	IsVeryHighRiskCondition         bool     `json:"is_very_high_risk_condition"`
	HasDiabetes                     bool     `json:"has_diabetes"`
	HasCKD                          bool     `json:"has_ckd"`
	HasFamilialHypercholesterolemia bool     `json:"has_familial_hypercholesterolemia"`
	Age                             *int     `json:"age"`
	Sex                             *string  `json:"sex"`
	OtherRiskFactors                []string `json:"other_risk_factors,omitempty"`
}

// ParseProfile validates a request and builds the profile the engine accepts.
// Every failure is a *domain.ValidationError naming the offending field.
func ParseProfile(req *EvaluateRequest) (domain.PatientProfile, error) {
	if req == nil {
		return domain.PatientProfile{}, domain.NewValidationError("request", "request body is required", nil)
	}
	if req.CurrentLDL == nil {
		return domain.PatientProfile{}, domain.NewValidationError("current_ldl", "current_ldl is required", nil)
	}
	if req.Age == nil {
		return domain.PatientProfile{}, domain.NewValidationError("age", "age is required", nil)
	}
	if req.Sex == nil {
		return domain.PatientProfile{}, domain.NewValidationError("sex", "sex is required", nil)
	}

	sex, err := domain.ParseSex(*req.Sex)
	if err != nil {
		return domain.PatientProfile{}, domain.NewValidationError("sex", "must be male or female", *req.Sex)
	}

	factors := make([]domain.RiskFactor, 0, len(req.OtherRiskFactors))
	for _, f := range req.OtherRiskFactors {
		factors = append(factors, domain.RiskFactor(f))
	}

	profile, err := domain.NewPatientProfile(domain.ProfileInput{
		CurrentLDL:                      *req.CurrentLDL,
		HasCoronaryArteryDisease:        req.HasCoronaryArteryDisease,
		HasOtherAtheroscleroticHistory:  req.HasOtherAtheroscleroticHistory,
		IsExtremeRisk:                   req.IsExtremeRisk,
		IsVeryHighRiskCondition:         req.IsVeryHighRiskCondition,
		HasDiabetes:                     req.HasDiabetes,
		HasCKD:                          req.HasCKD,
		HasFamilialHypercholesterolemia: req.HasFamilialHypercholesterolemia,
		Age:                             *req.Age,
		Sex:                             sex,
		RiskFactors:                     factors,
	})
	if err != nil {
		return domain.PatientProfile{}, fmt.Errorf("parsing profile: %w", err)
	}
	return profile, nil
}
