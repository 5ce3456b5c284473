package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/parley-group/negotiation-cli/internal/model"
)

// Engine computes leverage splits, party-fit scores and point budgets from a
// fixed Config. Every method is a pure function of its arguments; the engine
// holds no state between calls.
type Engine struct {
	cfg Config
}

// New creates an Engine with the given config.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Default returns an Engine with the canonical constants.
func Default() *Engine {
	return New(DefaultConfig())
}

// Calculate derives the leverage split from the populated factors and the
// overall party-fit score. Missing factors contribute zero; the result is
// clamped to the configured bounds and the provider side is defined as the
// complement, so the two sides always sum to 100.
func (e *Engine) Calculate(factors model.LeverageFactors, partyFit float64) model.LeverageScore {
	customer := e.cfg.NeutralPrior

	customer += MarketAdjustment(factors.Market)
	customer += EconomicAdjustment(factors.Economic)
	customer += StrategicAdjustment(factors.Strategic)
	customer += BATNAAdjustment(factors.BATNA)
	customer += e.fitModifier(partyFit)

	customer = clampInt(customer, e.cfg.MinLeverage, e.cfg.MaxLeverage)

	return model.LeverageScore{
		Customer: customer,
		Provider: 100 - customer,
	}
}

// fitModifier maps the overall fit score to a flat leverage adjustment.
func (e *Engine) fitModifier(partyFit float64) int {
	switch {
	case partyFit > e.cfg.HighFitThreshold:
		return e.cfg.FitModifier
	case partyFit < e.cfg.LowFitThreshold:
		return -e.cfg.FitModifier
	default:
		return 0
	}
}

// ScoreFit derives the four sub-scores and the weighted overall fit from the
// full current set of slider values and categorical selections. Sub-scores
// are recomputed from scratch on every call, so repeated scoring of the same
// inputs can never double-apply a nudge.
func (e *Engine) ScoreFit(in model.FitInputs) model.PartyFitScore {
	s := model.PartyFitScore{
		Strategic:    clampFloat(in.Strategic+industryNudge(in.Selections.IndustryMatch), 0, 100),
		Capability:   clampFloat(in.Capability+coverageNudge(in.Selections.CapabilityCoverage), 0, 100),
		Relationship: clampFloat(in.Relationship+relationshipNudge(in.Selections.PriorRelationship), 0, 100),
		Risk:         clampFloat(in.Risk+riskNudge(in.Selections.RiskPosture), 0, 100),
	}

	overall := e.cfg.StrategicWeight*s.Strategic +
		e.cfg.CapabilityWeight*s.Capability +
		e.cfg.RelationshipWeight*s.Relationship +
		e.cfg.RiskWeight*s.Risk
	s.Overall = clampFloat(overall, 0, 100)

	return s
}

// Allocate derives each party's point budget from the leverage split.
// Leverage is integral, so doubling both sides conserves the total exactly:
// the budgets always sum to 100 * PointsPerLeverage.
func (e *Engine) Allocate(score model.LeverageScore) model.PointBudget {
	return model.PointBudget{
		CustomerPoints: int(math.Floor(float64(score.Customer * e.cfg.PointsPerLeverage))),
		ProviderPoints: int(math.Floor(float64(score.Provider * e.cfg.PointsPerLeverage))),
	}
}

// Assess runs the full pipeline: fit scoring, leverage calculation and point
// allocation. The returned assessment embeds its inputs so recomputation can
// reproduce it exactly.
func (e *Engine) Assess(factors model.LeverageFactors, fit model.FitInputs) model.Assessment {
	fitScore := e.ScoreFit(fit)
	score := e.Calculate(factors, fitScore.Overall)
	budget := e.Allocate(score)

	zap.L().Debug("engine: assessment computed",
		zap.Int("customer_leverage", score.Customer),
		zap.Float64("party_fit", fitScore.Overall),
		zap.Int("customer_points", budget.CustomerPoints),
		zap.Int("provider_points", budget.ProviderPoints),
	)

	return model.Assessment{
		Factors:  factors,
		Fit:      fit,
		FitScore: fitScore,
		Score:    score,
		Budget:   budget,
	}
}

// Fit selection nudges, expressed as pure derivations from the selection
// value. Unknown selections nudge nothing.

var industryNudges = map[model.IndustryMatch]float64{
	model.IndustryExact:    10,
	model.IndustryAdjacent: 5,
	model.IndustryNone:     0,
	model.IndustryMismatch: -5,
}

var coverageNudges = map[model.CapabilityCoverage]float64{
	model.CoverageFull:    10,
	model.CoveragePartial: 0,
	model.CoverageGaps:    -10,
}

var relationshipNudges = map[model.PriorRelationship]float64{
	model.RelationshipExtensive: 10,
	model.RelationshipSome:      5,
	model.RelationshipNone:      0,
	model.RelationshipStrained:  -10,
}

var riskNudges = map[model.RiskPosture]float64{
	model.RiskAligned:   10,
	model.RiskNeutral:   0,
	model.RiskDivergent: -10,
}

func industryNudge(m model.IndustryMatch) float64 { return industryNudges[m] }

func coverageNudge(c model.CapabilityCoverage) float64 { return coverageNudges[c] }

func relationshipNudge(p model.PriorRelationship) float64 { return relationshipNudges[p] }

func riskNudge(r model.RiskPosture) float64 { return riskNudges[r] }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
