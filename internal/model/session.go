// Package model defines the domain types for leverage scoring and
// negotiation-point allocation.
package model

import "time"

// DealContext is the immutable-per-assessment description of the deal.
// It may be amended while the session is still in the preliminary phase and
// is read-only afterward.
type DealContext struct {
	ServiceCategory string `json:"service_category" yaml:"service_category"`
	EngagementModel string `json:"engagement_model" yaml:"engagement_model"`
	DurationMonths  int    `json:"duration_months" yaml:"duration_months"`
	TotalValue      int64  `json:"total_value" yaml:"total_value"`
	PricingModel    string `json:"pricing_model" yaml:"pricing_model"`
	GeographicScope string `json:"geographic_scope" yaml:"geographic_scope"`
	CriticalityTier string `json:"criticality_tier" yaml:"criticality_tier"`
}

// Assessment bundles the inputs and derived outputs of one leverage
// computation. Recomputing from Factors and Fit always reproduces Score,
// FitScore and Budget exactly; nothing here is accumulated.
type Assessment struct {
	Factors  LeverageFactors `json:"factors"`
	Fit      FitInputs       `json:"fit"`
	FitScore PartyFitScore   `json:"fit_score"`
	Score    LeverageScore   `json:"score"`
	Budget   PointBudget     `json:"budget"`
}

// Session is one negotiation between a customer and a provider. It holds
// exactly one current phase and a non-decreasing history of phases visited.
type Session struct {
	ID           string      `json:"id"`
	Deal         DealContext `json:"deal"`
	ProviderID   string      `json:"provider_id,omitempty"`
	Phase        Phase       `json:"phase"`
	PhaseHistory []Phase     `json:"phase_history"`
	Difficulty   Difficulty  `json:"difficulty,omitempty"`
	Assessment   *Assessment `json:"assessment,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ProviderSelected reports whether a provider has been chosen for the session.
func (s *Session) ProviderSelected() bool {
	return s.ProviderID != ""
}

// Assessed reports whether a leverage assessment has been submitted.
func (s *Session) Assessed() bool {
	return s.Assessment != nil
}
