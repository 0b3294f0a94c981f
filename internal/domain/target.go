package domain

import (
	"fmt"
	"strings"
)

// Region identifies a guideline jurisdiction
type Region string

const (
	RegionJP Region = "JP"
	RegionEU Region = "EU"
	RegionUS Region = "US"
)

// Regions lists every region in presentation order.
var Regions = []Region{RegionJP, RegionEU, RegionUS}

// ParseRegion normalizes a region code. Matching is case-insensitive.
func ParseRegion(value string) (Region, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, r := range Regions {
		if string(r) == normalized {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", value)
}

// Guideline returns the guideline publication backing the region's rules
func (r Region) Guideline() string {
	switch r {
	case RegionJP:
		return "JAS 2022"
	case RegionEU:
		return "ESC/EAS 2019"
	case RegionUS:
		return "ACC/AHA 2018, ADA"
	default:
		return "unknown"
	}
}

// RegionalTarget is one guideline's verdict for a profile
type RegionalTarget struct {
	Region       Region `json:"region"`
	TargetLDL    int    `json:"target_ldl_mg_dl"`
	RiskCategory string `json:"risk_category_label"`
	RuleCode     string `json:"rule_code"`
	Description  string `json:"description,omitempty"`
}

// IsSet reports whether the target was populated by an engine
func (t RegionalTarget) IsSet() bool {
	return t.Region != "" && t.TargetLDL > 0
}

// RegionalTargetSet holds exactly one target per region
type RegionalTargetSet struct {
	JP RegionalTarget `json:"JP"`
	EU RegionalTarget `json:"EU"`
	US RegionalTarget `json:"US"`
}

// Get returns the target for a region
func (s RegionalTargetSet) Get(region Region) (RegionalTarget, bool) {
	switch region {
	case RegionJP:
		return s.JP, s.JP.IsSet()
	case RegionEU:
		return s.EU, s.EU.IsSet()
	case RegionUS:
		return s.US, s.US.IsSet()
	default:
		return RegionalTarget{}, false
	}
}

// All returns the targets in presentation order
func (s RegionalTargetSet) All() []RegionalTarget {
	return []RegionalTarget{s.JP, s.EU, s.US}
}

// Validate checks that every region is populated and filed under its own key.
// A failure here is an engine defect, never a normal outcome.
func (s RegionalTargetSet) Validate() error {
	for _, region := range Regions {
		target, ok := s.Get(region)
		if !ok {
			return fmt.Errorf("%w: region %s", ErrIncompleteTargetSet, region)
		}
		if target.Region != region {
			return fmt.Errorf("%w: region %s holds %s target", ErrIncompleteTargetSet, region, target.Region)
		}
	}
	return nil
}
