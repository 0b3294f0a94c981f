package domain

import (
	"fmt"
	"strings"
)

// Input ranges accepted at the collection boundary.
const (
	MinLDL = 0
	MaxLDL = 500
	MinAge = 20
	MaxAge = 100

	// Age at which the age risk increment applies
	MaleRiskAge   = 45
	FemaleRiskAge = 55
)

// Sex is the biological sex used for the age risk increment
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex normalizes a sex value
func ParseSex(value string) (Sex, error) {
	switch Sex(strings.ToLower(strings.TrimSpace(value))) {
	case SexMale:
		return SexMale, nil
	case SexFemale:
		return SexFemale, nil
	default:
		return "", fmt.Errorf("unknown sex %q", value)
	}
}

// RiskFactor is a minor, independently toggled risk indicator
type RiskFactor string

const (
	RiskFactorHypertension           RiskFactor = "hypertension"
	RiskFactorSmoking                RiskFactor = "smoking"
	RiskFactorLowHDL                 RiskFactor = "low_hdl"
	RiskFactorPrematureFamilyHistory RiskFactor = "premature_family_history"
)

// AllRiskFactors lists the minor risk factors in bit order.
var AllRiskFactors = []RiskFactor{
	RiskFactorHypertension,
	RiskFactorSmoking,
	RiskFactorLowHDL,
	RiskFactorPrematureFamilyHistory,
}

func (f RiskFactor) bit() (RiskFactorSet, bool) {
	for i, known := range AllRiskFactors {
		if known == f {
			return 1 << uint(i), true
		}
	}
	return 0, false
}

// RiskFactorSet is a set of minor risk factors stored as a bitmask, which
// keeps PatientProfile comparable.
type RiskFactorSet uint8

// NewRiskFactorSet builds a set from the given factors. Duplicates collapse.
func NewRiskFactorSet(factors ...RiskFactor) (RiskFactorSet, error) {
	var set RiskFactorSet
	for _, f := range factors {
		b, ok := RiskFactor(strings.ToLower(strings.TrimSpace(string(f)))).bit()
		if !ok {
			return 0, fmt.Errorf("unknown risk factor %q", f)
		}
		set |= b
	}
	return set, nil
}

// Has reports whether the factor is in the set
func (s RiskFactorSet) Has(f RiskFactor) bool {
	b, ok := f.bit()
	return ok && s&b != 0
}

// Len returns the number of factors in the set
func (s RiskFactorSet) Len() int {
	n := 0
	for _, f := range AllRiskFactors {
		if s.Has(f) {
			n++
		}
	}
	return n
}

// Factors returns the factors in the set in canonical order
func (s RiskFactorSet) Factors() []RiskFactor {
	factors := make([]RiskFactor, 0, len(AllRiskFactors))
	for _, f := range AllRiskFactors {
		if s.Has(f) {
			factors = append(factors, f)
		}
	}
	return factors
}

// ProfileInput carries raw, already-typed values used to build a PatientProfile.
type ProfileInput struct {
	CurrentLDL                      int
	HasCoronaryArteryDisease        bool
	HasOtherAtheroscleroticHistory  bool
	IsExtremeRisk                   bool
	IsVeryHighRiskCondition         bool
	HasDiabetes                     bool
	HasCKD                          bool
	HasFamilialHypercholesterolemia bool
	Age                             int
	Sex                             Sex
	RiskFactors                     []RiskFactor
}

// PatientProfile is the immutable input snapshot for one evaluation.
// The zero value is not a valid profile; use NewPatientProfile.
type PatientProfile struct {
	currentLDL        int
	cad               bool
	otherAthero       bool
	extremeRisk       bool
	veryHighRisk      bool
	diabetes          bool
	ckd               bool
	familialHyperchol bool
	age               int
	sex               Sex
	riskFactors       RiskFactorSet
}

// NewPatientProfile validates the input and returns a frozen profile.
func NewPatientProfile(in ProfileInput) (PatientProfile, error) {
	if in.CurrentLDL < MinLDL || in.CurrentLDL > MaxLDL {
		return PatientProfile{}, NewValidationError("current_ldl",
			fmt.Sprintf("must be between %d and %d mg/dL", MinLDL, MaxLDL), in.CurrentLDL)
	}
	if in.Age < MinAge || in.Age > MaxAge {
		return PatientProfile{}, NewValidationError("age",
			fmt.Sprintf("must be between %d and %d", MinAge, MaxAge), in.Age)
	}
	if in.Sex != SexMale && in.Sex != SexFemale {
		return PatientProfile{}, NewValidationError("sex", "must be male or female", string(in.Sex))
	}
	factors, err := NewRiskFactorSet(in.RiskFactors...)
	if err != nil {
		return PatientProfile{}, NewValidationError("other_risk_factors", err.Error(), in.RiskFactors)
	}

	return PatientProfile{
		currentLDL:        in.CurrentLDL,
		cad:               in.HasCoronaryArteryDisease,
		otherAthero:       in.HasOtherAtheroscleroticHistory,
		extremeRisk:       in.IsExtremeRisk,
		veryHighRisk:      in.IsVeryHighRiskCondition,
		diabetes:          in.HasDiabetes,
		ckd:               in.HasCKD,
		familialHyperchol: in.HasFamilialHypercholesterolemia,
		age:               in.Age,
		sex:               in.Sex,
		riskFactors:       factors,
	}, nil
}

func (p PatientProfile) CurrentLDL() int { return p.currentLDL }

func (p PatientProfile) HasCoronaryArteryDisease() bool { return p.cad }

func (p PatientProfile) HasOtherAtheroscleroticHistory() bool { return p.otherAthero }

func (p PatientProfile) IsExtremeRisk() bool { return p.extremeRisk }

func (p PatientProfile) IsVeryHighRiskCondition() bool { return p.veryHighRisk }

func (p PatientProfile) HasDiabetes() bool { return p.diabetes }

func (p PatientProfile) HasCKD() bool { return p.ckd }

func (p PatientProfile) HasFamilialHypercholesterolemia() bool { return p.familialHyperchol }

func (p PatientProfile) Age() int { return p.age }

func (p PatientProfile) Sex() Sex { return p.sex }

func (p PatientProfile) RiskFactors() RiskFactorSet { return p.riskFactors }

// HasASCVD reports coronary, cerebrovascular or peripheral atherosclerotic history.
func (p PatientProfile) HasASCVD() bool {
	return p.cad || p.otherAthero
}

// AgeRiskIncrement is 1 for men aged 45+ and women aged 55+.
func (p PatientProfile) AgeRiskIncrement() int {
	if (p.sex == SexMale && p.age >= MaleRiskAge) || (p.sex == SexFemale && p.age >= FemaleRiskAge) {
		return 1
	}
	return 0
}

// RiskFactorCount is the additive count of minor risk factors plus the age
// increment. It approximates formal scores (Suita, SCORE2) and ranges 0..5.
func (p PatientProfile) RiskFactorCount() int {
	return p.riskFactors.Len() + p.AgeRiskIncrement()
}

// Fingerprint returns a canonical encoding of every field.
func (p PatientProfile) Fingerprint() string {
	b := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}
	return fmt.Sprintf("ldl=%d;cad=%d;athero=%d;extreme=%d;vhr=%d;dm=%d;ckd=%d;fh=%d;age=%d;sex=%s;rf=%02x",
		p.currentLDL, b(p.cad), b(p.otherAthero), b(p.extremeRisk), b(p.veryHighRisk),
		b(p.diabetes), b(p.ckd), b(p.familialHyperchol), p.age, p.sex, uint8(p.riskFactors))
}
