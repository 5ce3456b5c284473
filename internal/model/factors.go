package model

// LeverageFactors holds the qualitative assessment inputs across the four
// equally-weighted categories. Every field is optional; an empty value
// contributes zero adjustment when scored.
type LeverageFactors struct {
	Market    MarketFactors    `json:"market" yaml:"market"`
	Economic  EconomicFactors  `json:"economic" yaml:"economic"`
	Strategic StrategicFactors `json:"strategic" yaml:"strategic"`
	BATNA     BATNAFactors     `json:"batna" yaml:"batna"`
}

// MarketFactors covers supply-side dynamics of the deal.
type MarketFactors struct {
	AlternativeProviders AlternativeTier   `json:"alternative_providers,omitempty" yaml:"alternative_providers,omitempty"`
	MarketCondition      MarketCondition   `json:"market_condition,omitempty" yaml:"market_condition,omitempty"`
	CustomerTimePressure PressureTier      `json:"customer_time_pressure,omitempty" yaml:"customer_time_pressure,omitempty"`
	ProviderCapacity     CapacityCondition `json:"provider_capacity,omitempty" yaml:"provider_capacity,omitempty"`
}

// EconomicFactors covers the financial weight of the deal for both parties.
type EconomicFactors struct {
	DealSizeRatio      DealSizeTier    `json:"deal_size_ratio,omitempty" yaml:"deal_size_ratio,omitempty"`
	ProviderDependence DependenceTier  `json:"provider_dependence,omitempty" yaml:"provider_dependence,omitempty"`
	SwitchingCost      SwitchingTier   `json:"switching_cost,omitempty" yaml:"switching_cost,omitempty"`
	BudgetFlexibility  FlexibilityTier `json:"budget_flexibility,omitempty" yaml:"budget_flexibility,omitempty"`
}

// StrategicFactors covers what is at stake beyond the money.
type StrategicFactors struct {
	ServiceCriticality CriticalityTier  `json:"service_criticality,omitempty" yaml:"service_criticality,omitempty"`
	ProviderInterest   InterestTier     `json:"provider_interest,omitempty" yaml:"provider_interest,omitempty"`
	IncumbentAdvantage IncumbentTier    `json:"incumbent_advantage,omitempty" yaml:"incumbent_advantage,omitempty"`
	ReputationalValue  ReputationalTier `json:"reputational_value,omitempty" yaml:"reputational_value,omitempty"`
}

// BATNAFactors covers each party's fallback strength.
type BATNAFactors struct {
	CustomerAlternative AlternativeStrength `json:"customer_alternative,omitempty" yaml:"customer_alternative,omitempty"`
	ProviderPipeline    PipelineStrength    `json:"provider_pipeline,omitempty" yaml:"provider_pipeline,omitempty"`
}

// AlternativeTier describes how many credible alternative providers exist.
type AlternativeTier string

const (
	AlternativesNone    AlternativeTier = "none"
	AlternativesFew     AlternativeTier = "few"
	AlternativesSeveral AlternativeTier = "several"
	AlternativesMany    AlternativeTier = "many"
)

// MarketCondition describes whether supply or demand dominates the market.
type MarketCondition string

const (
	MarketBuyers   MarketCondition = "buyers_market"
	MarketBalanced MarketCondition = "balanced"
	MarketSellers  MarketCondition = "sellers_market"
)

// PressureTier describes how urgently the customer needs to close.
type PressureTier string

const (
	PressureLow      PressureTier = "low"
	PressureModerate PressureTier = "moderate"
	PressureHigh     PressureTier = "high"
	PressureCritical PressureTier = "critical"
)

// CapacityCondition describes how much idle capacity the provider carries.
type CapacityCondition string

const (
	CapacityIdle        CapacityCondition = "idle"
	CapacityBalanced    CapacityCondition = "balanced"
	CapacityConstrained CapacityCondition = "constrained"
)

// DealSizeTier describes the deal's size relative to the provider's book.
type DealSizeTier string

const (
	DealSizeMinor          DealSizeTier = "minor"
	DealSizeModerate       DealSizeTier = "moderate"
	DealSizeSignificant    DealSizeTier = "significant"
	DealSizeTransformative DealSizeTier = "transformative"
)

// DependenceTier describes the provider's dependence on this customer.
type DependenceTier string

const (
	DependenceMinimal     DependenceTier = "minimal"
	DependenceModerate    DependenceTier = "moderate"
	DependenceSubstantial DependenceTier = "substantial"
	DependenceCritical    DependenceTier = "critical"
)

// SwitchingTier describes the customer's cost of changing providers.
type SwitchingTier string

const (
	SwitchingLow         SwitchingTier = "low"
	SwitchingModerate    SwitchingTier = "moderate"
	SwitchingHigh        SwitchingTier = "high"
	SwitchingProhibitive SwitchingTier = "prohibitive"
)

// FlexibilityTier describes how much the customer's budget can move.
type FlexibilityTier string

const (
	FlexibilityRigid    FlexibilityTier = "rigid"
	FlexibilityLimited  FlexibilityTier = "limited"
	FlexibilityModerate FlexibilityTier = "moderate"
	FlexibilityFlexible FlexibilityTier = "flexible"
)

// CriticalityTier describes how critical the service is to the customer.
type CriticalityTier string

const (
	CriticalityRoutine   CriticalityTier = "routine"
	CriticalityImportant CriticalityTier = "important"
	CriticalityCritical  CriticalityTier = "critical"
	CriticalityMission   CriticalityTier = "mission_critical"
)

// InterestTier describes how much the provider wants to win the deal.
type InterestTier string

const (
	InterestLow      InterestTier = "low"
	InterestModerate InterestTier = "moderate"
	InterestHigh     InterestTier = "high"
	InterestMustWin  InterestTier = "strategic_must_win"
)

// IncumbentTier describes an incumbent provider's hold on the account.
type IncumbentTier string

const (
	IncumbentNone     IncumbentTier = "none"
	IncumbentModerate IncumbentTier = "moderate"
	IncumbentStrong   IncumbentTier = "strong"
)

// ReputationalTier describes the logo value of the customer to the provider.
type ReputationalTier string

const (
	ReputationNegligible ReputationalTier = "negligible"
	ReputationModerate   ReputationalTier = "moderate"
	ReputationHigh       ReputationalTier = "high"
)

// AlternativeStrength describes the customer's best alternative to this deal.
type AlternativeStrength string

const (
	AlternativeNone   AlternativeStrength = "none"
	AlternativeWeak   AlternativeStrength = "weak"
	AlternativeViable AlternativeStrength = "viable"
	AlternativeStrong AlternativeStrength = "strong"
)

// PipelineStrength describes the provider's pipeline of other prospects.
type PipelineStrength string

const (
	PipelineEmpty       PipelineStrength = "empty"
	PipelineThin        PipelineStrength = "thin"
	PipelineHealthy     PipelineStrength = "healthy"
	PipelineOverflowing PipelineStrength = "overflowing"
)

// Empty reports whether no factor in any category is populated.
func (f LeverageFactors) Empty() bool {
	return f.Market == (MarketFactors{}) &&
		f.Economic == (EconomicFactors{}) &&
		f.Strategic == (StrategicFactors{}) &&
		f.BATNA == (BATNAFactors{})
}
