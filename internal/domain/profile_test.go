package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ProfileInput {
	return ProfileInput{
		CurrentLDL: 140,
		Age:        40,
		Sex:        SexMale,
	}
}

func TestNewPatientProfile_Valid(t *testing.T) {
	in := validInput()
	in.HasDiabetes = true
	in.RiskFactors = []RiskFactor{RiskFactorSmoking, RiskFactorHypertension}

	profile, err := NewPatientProfile(in)

	require.NoError(t, err)
	assert.Equal(t, 140, profile.CurrentLDL())
	assert.True(t, profile.HasDiabetes())
	assert.False(t, profile.HasCKD())
	assert.Equal(t, 2, profile.RiskFactors().Len())
	assert.Equal(t, 2, profile.RiskFactorCount())
}

func TestNewPatientProfile_RangeValidation(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*ProfileInput)
		field string
	}{
		{"negative LDL", func(in *ProfileInput) { in.CurrentLDL = -1 }, "current_ldl"},
		{"LDL above range", func(in *ProfileInput) { in.CurrentLDL = 501 }, "current_ldl"},
		{"age below range", func(in *ProfileInput) { in.Age = 19 }, "age"},
		{"age above range", func(in *ProfileInput) { in.Age = 101 }, "age"},
		{"missing sex", func(in *ProfileInput) { in.Sex = "" }, "sex"},
		{"unknown sex", func(in *ProfileInput) { in.Sex = "other" }, "sex"},
		{"unknown risk factor", func(in *ProfileInput) { in.RiskFactors = []RiskFactor{"obesity"} }, "other_risk_factors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mod(&in)

			_, err := NewPatientProfile(in)

			require.Error(t, err)
			ve, ok := AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNewPatientProfile_RangeBoundsAccepted(t *testing.T) {
	for _, ldl := range []int{MinLDL, MaxLDL} {
		for _, age := range []int{MinAge, MaxAge} {
			in := validInput()
			in.CurrentLDL = ldl
			in.Age = age
			_, err := NewPatientProfile(in)
			assert.NoError(t, err, "ldl=%d age=%d", ldl, age)
		}
	}
}

func TestAgeRiskIncrement(t *testing.T) {
	tests := []struct {
		sex      Sex
		age      int
		expected int
	}{
		{SexMale, 44, 0},
		{SexMale, 45, 1},
		{SexMale, 50, 1},
		{SexFemale, 45, 0},
		{SexFemale, 54, 0},
		{SexFemale, 55, 1},
	}

	for _, tt := range tests {
		in := validInput()
		in.Sex = tt.sex
		in.Age = tt.age
		profile, err := NewPatientProfile(in)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, profile.AgeRiskIncrement(), "%s aged %d", tt.sex, tt.age)
	}
}

func TestRiskFactorCount_Bounds(t *testing.T) {
	in := validInput()
	in.Age = 70
	in.RiskFactors = AllRiskFactors

	profile, err := NewPatientProfile(in)
	require.NoError(t, err)
	assert.Equal(t, 5, profile.RiskFactorCount())

	in = validInput()
	in.Age = 30
	profile, err = NewPatientProfile(in)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.RiskFactorCount())
}

func TestRiskFactorSet_DuplicatesCollapse(t *testing.T) {
	set, err := NewRiskFactorSet(RiskFactorSmoking, RiskFactorSmoking, "LOW_HDL")
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(RiskFactorSmoking))
	assert.True(t, set.Has(RiskFactorLowHDL))
	assert.False(t, set.Has(RiskFactorHypertension))
	assert.Equal(t, []RiskFactor{RiskFactorSmoking, RiskFactorLowHDL}, set.Factors())
}

func TestPatientProfile_Comparable(t *testing.T) {
	in := validInput()
	in.RiskFactors = []RiskFactor{RiskFactorLowHDL, RiskFactorSmoking}
	a, err := NewPatientProfile(in)
	require.NoError(t, err)

	in.RiskFactors = []RiskFactor{RiskFactorSmoking, RiskFactorLowHDL}
	b, err := NewPatientProfile(in)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	in.HasCKD = true
	c, err := NewPatientProfile(in)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestHasASCVD(t *testing.T) {
	in := validInput()
	p, _ := NewPatientProfile(in)
	assert.False(t, p.HasASCVD())

	in.HasOtherAtheroscleroticHistory = true
	p, _ = NewPatientProfile(in)
	assert.True(t, p.HasASCVD())

	in = validInput()
	in.HasCoronaryArteryDisease = true
	p, _ = NewPatientProfile(in)
	assert.True(t, p.HasASCVD())
}

func TestParseSex(t *testing.T) {
	sex, err := ParseSex(" Female ")
	require.NoError(t, err)
	assert.Equal(t, SexFemale, sex)

	_, err = ParseSex("x")
	assert.Error(t, err)
}
