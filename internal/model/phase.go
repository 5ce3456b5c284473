package model

// Phase is one of the six ordered stages of the negotiation lifecycle.
type Phase string

const (
	PhasePreliminary  Phase = "preliminary_assessment"
	PhaseFoundation   Phase = "foundation"
	PhaseGapNarrowing Phase = "gap_narrowing"
	PhaseContention   Phase = "points_of_contention"
	PhaseDealDrivers  Phase = "deal_drivers"
	PhaseFinalReview  Phase = "final_review"
)

// phaseOrder lists the phases in lifecycle order.
var phaseOrder = []Phase{
	PhasePreliminary,
	PhaseFoundation,
	PhaseGapNarrowing,
	PhaseContention,
	PhaseDealDrivers,
	PhaseFinalReview,
}

// Phases returns the six phases in lifecycle order.
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// Index returns the zero-based position of p in the lifecycle, or -1 if p is
// not a recognized phase.
func (p Phase) Index() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the six recognized phases.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// Next returns the phase that follows p. The terminal phase returns itself.
func (p Phase) Next() Phase {
	i := p.Index()
	if i < 0 || i >= len(phaseOrder)-1 {
		return p
	}
	return phaseOrder[i+1]
}

// Before reports whether p comes strictly earlier in the lifecycle than other.
func (p Phase) Before(other Phase) bool {
	pi, oi := p.Index(), other.Index()
	return pi >= 0 && oi >= 0 && pi < oi
}

// Terminal reports whether p is the final phase.
func (p Phase) Terminal() bool {
	return p == PhaseFinalReview
}
