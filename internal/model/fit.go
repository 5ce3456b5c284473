package model

// FitInputs holds everything party-fit scoring derives from: four base
// slider values (0-100) plus the current set of categorical selections.
// Sub-scores are always recomputed from this full set, never accumulated,
// so re-scoring the same inputs is idempotent.
type FitInputs struct {
	Strategic    float64       `json:"strategic" yaml:"strategic"`
	Capability   float64       `json:"capability" yaml:"capability"`
	Relationship float64       `json:"relationship" yaml:"relationship"`
	Risk         float64       `json:"risk" yaml:"risk"`
	Selections   FitSelections `json:"selections" yaml:"selections"`
}

// FitSelections are the categorical choices that nudge individual sub-scores.
// Each selection maps to a fixed signed nudge applied to exactly one sub-score.
type FitSelections struct {
	IndustryMatch      IndustryMatch      `json:"industry_match,omitempty" yaml:"industry_match,omitempty"`
	CapabilityCoverage CapabilityCoverage `json:"capability_coverage,omitempty" yaml:"capability_coverage,omitempty"`
	PriorRelationship  PriorRelationship  `json:"prior_relationship,omitempty" yaml:"prior_relationship,omitempty"`
	RiskPosture        RiskPosture        `json:"risk_posture,omitempty" yaml:"risk_posture,omitempty"`
}

// IndustryMatch nudges the strategic sub-score.
type IndustryMatch string

const (
	IndustryExact    IndustryMatch = "exact"
	IndustryAdjacent IndustryMatch = "adjacent"
	IndustryNone     IndustryMatch = "none"
	IndustryMismatch IndustryMatch = "mismatch"
)

// Valid reports whether m is a known industry match value.
func (m IndustryMatch) Valid() bool {
	switch m {
	case IndustryExact, IndustryAdjacent, IndustryNone, IndustryMismatch:
		return true
	}
	return false
}

// CapabilityCoverage nudges the capability sub-score.
type CapabilityCoverage string

const (
	CoverageFull    CapabilityCoverage = "full"
	CoveragePartial CapabilityCoverage = "partial"
	CoverageGaps    CapabilityCoverage = "gaps"
)

// Valid reports whether c is a known coverage value.
func (c CapabilityCoverage) Valid() bool {
	switch c {
	case CoverageFull, CoveragePartial, CoverageGaps:
		return true
	}
	return false
}

// PriorRelationship nudges the relationship sub-score.
type PriorRelationship string

const (
	RelationshipExtensive PriorRelationship = "extensive"
	RelationshipSome      PriorRelationship = "some"
	RelationshipNone      PriorRelationship = "none"
	RelationshipStrained  PriorRelationship = "strained"
)

// Valid reports whether r is a known relationship value.
func (r PriorRelationship) Valid() bool {
	switch r {
	case RelationshipExtensive, RelationshipSome, RelationshipNone, RelationshipStrained:
		return true
	}
	return false
}

// RiskPosture nudges the risk sub-score.
type RiskPosture string

const (
	RiskAligned   RiskPosture = "aligned"
	RiskNeutral   RiskPosture = "neutral"
	RiskDivergent RiskPosture = "divergent"
)

// Valid reports whether r is a known risk posture value.
func (r RiskPosture) Valid() bool {
	switch r {
	case RiskAligned, RiskNeutral, RiskDivergent:
		return true
	}
	return false
}

// PartyFitScore is the derived fit result: four sub-scores after nudges plus
// the weighted overall score, all in [0,100].
type PartyFitScore struct {
	Strategic    float64 `json:"strategic"`
	Capability   float64 `json:"capability"`
	Relationship float64 `json:"relationship"`
	Risk         float64 `json:"risk"`
	Overall      float64 `json:"overall"`
}
