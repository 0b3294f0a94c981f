package domain

import (
	"errors"
	"testing"
)

func TestRegionConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Region
		expected string
	}{
		{"Japan", RegionJP, "JP"},
		{"Europe", RegionEU, "EU"},
		{"United States", RegionUS, "US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
			parsed, err := ParseRegion(tt.expected)
			if err != nil || parsed != tt.value {
				t.Errorf("ParseRegion(%s) = %s, %v", tt.expected, parsed, err)
			}
		})
	}

	if _, err := ParseRegion("UK"); err == nil {
		t.Error("Expected error for unknown region")
	}
}

func completeSet() RegionalTargetSet {
	return RegionalTargetSet{
		JP: RegionalTarget{Region: RegionJP, TargetLDL: 160, RiskCategory: "Low risk"},
		EU: RegionalTarget{Region: RegionEU, TargetLDL: 116, RiskCategory: "Low risk"},
		US: RegionalTarget{Region: RegionUS, TargetLDL: 130, RiskCategory: "Low risk"},
	}
}

func TestRegionalTargetSet_Validate(t *testing.T) {
	if err := completeSet().Validate(); err != nil {
		t.Fatalf("Expected complete set to validate, got %v", err)
	}

	missing := completeSet()
	missing.EU = RegionalTarget{}
	if err := missing.Validate(); !errors.Is(err, ErrIncompleteTargetSet) {
		t.Errorf("Expected ErrIncompleteTargetSet, got %v", err)
	}

	swapped := completeSet()
	swapped.US = RegionalTarget{Region: RegionJP, TargetLDL: 100}
	if err := swapped.Validate(); !errors.Is(err, ErrIncompleteTargetSet) {
		t.Errorf("Expected ErrIncompleteTargetSet for misfiled target, got %v", err)
	}
}

func TestRegionalTargetSet_GetAndAll(t *testing.T) {
	set := completeSet()

	for _, region := range Regions {
		target, ok := set.Get(region)
		if !ok || target.Region != region {
			t.Errorf("Get(%s) = %+v, %v", region, target, ok)
		}
	}

	if _, ok := set.Get("XX"); ok {
		t.Error("Expected unknown region lookup to fail")
	}

	all := set.All()
	if len(all) != 3 || all[0].Region != RegionJP || all[2].Region != RegionUS {
		t.Errorf("Unexpected order: %+v", all)
	}
}
