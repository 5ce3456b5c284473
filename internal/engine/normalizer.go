package engine

import "github.com/parley-group/negotiation-cli/internal/model"

// The adjustment tables below are the single source of truth for mapping
// categorical factor values to signed leverage adjustments, expressed from
// the customer's perspective. A value missing from its table (including the
// empty value for an unset factor) contributes zero; normalization is total
// and never fails.

var alternativeAdjustments = map[model.AlternativeTier]int{
	model.AlternativesNone:    -8,
	model.AlternativesFew:     -4,
	model.AlternativesSeveral: 2,
	model.AlternativesMany:    6,
}

var marketConditionAdjustments = map[model.MarketCondition]int{
	model.MarketBuyers:   8,
	model.MarketBalanced: 0,
	model.MarketSellers:  -8,
}

var timePressureAdjustments = map[model.PressureTier]int{
	model.PressureLow:      4,
	model.PressureModerate: 0,
	model.PressureHigh:     -4,
	model.PressureCritical: -6,
}

var capacityAdjustments = map[model.CapacityCondition]int{
	model.CapacityIdle:        4,
	model.CapacityBalanced:    0,
	model.CapacityConstrained: -4,
}

var dealSizeAdjustments = map[model.DealSizeTier]int{
	model.DealSizeMinor:          -4,
	model.DealSizeModerate:       0,
	model.DealSizeSignificant:    4,
	model.DealSizeTransformative: 8,
}

var dependenceAdjustments = map[model.DependenceTier]int{
	model.DependenceMinimal:     -4,
	model.DependenceModerate:    0,
	model.DependenceSubstantial: 4,
	model.DependenceCritical:    6,
}

var switchingAdjustments = map[model.SwitchingTier]int{
	model.SwitchingLow:         6,
	model.SwitchingModerate:    0,
	model.SwitchingHigh:        -4,
	model.SwitchingProhibitive: -8,
}

var flexibilityAdjustments = map[model.FlexibilityTier]int{
	model.FlexibilityRigid:    -4,
	model.FlexibilityLimited:  -2,
	model.FlexibilityModerate: 0,
	model.FlexibilityFlexible: 4,
}

var criticalityAdjustments = map[model.CriticalityTier]int{
	model.CriticalityRoutine:   4,
	model.CriticalityImportant: 0,
	model.CriticalityCritical:  -4,
	model.CriticalityMission:   -8,
}

var interestAdjustments = map[model.InterestTier]int{
	model.InterestLow:      -4,
	model.InterestModerate: 0,
	model.InterestHigh:     4,
	model.InterestMustWin:  8,
}

var incumbentAdjustments = map[model.IncumbentTier]int{
	model.IncumbentNone:     4,
	model.IncumbentModerate: -2,
	model.IncumbentStrong:   -6,
}

var reputationAdjustments = map[model.ReputationalTier]int{
	model.ReputationNegligible: 0,
	model.ReputationModerate:   2,
	model.ReputationHigh:       6,
}

var customerAlternativeAdjustments = map[model.AlternativeStrength]int{
	model.AlternativeNone:   -10,
	model.AlternativeWeak:   -5,
	model.AlternativeViable: 5,
	model.AlternativeStrong: 10,
}

var providerPipelineAdjustments = map[model.PipelineStrength]int{
	model.PipelineEmpty:       10,
	model.PipelineThin:        5,
	model.PipelineHealthy:     -5,
	model.PipelineOverflowing: -10,
}

// MarketAdjustment sums the normalized adjustments of the populated market
// factors.
func MarketAdjustment(m model.MarketFactors) int {
	return alternativeAdjustments[m.AlternativeProviders] +
		marketConditionAdjustments[m.MarketCondition] +
		timePressureAdjustments[m.CustomerTimePressure] +
		capacityAdjustments[m.ProviderCapacity]
}

// EconomicAdjustment sums the normalized adjustments of the populated
// economic factors.
func EconomicAdjustment(e model.EconomicFactors) int {
	return dealSizeAdjustments[e.DealSizeRatio] +
		dependenceAdjustments[e.ProviderDependence] +
		switchingAdjustments[e.SwitchingCost] +
		flexibilityAdjustments[e.BudgetFlexibility]
}

// StrategicAdjustment sums the normalized adjustments of the populated
// strategic factors.
func StrategicAdjustment(s model.StrategicFactors) int {
	return criticalityAdjustments[s.ServiceCriticality] +
		interestAdjustments[s.ProviderInterest] +
		incumbentAdjustments[s.IncumbentAdvantage] +
		reputationAdjustments[s.ReputationalValue]
}

// BATNAAdjustment sums the normalized adjustments of the populated fallback
// factors.
func BATNAAdjustment(b model.BATNAFactors) int {
	return customerAlternativeAdjustments[b.CustomerAlternative] +
		providerPipelineAdjustments[b.ProviderPipeline]
}
