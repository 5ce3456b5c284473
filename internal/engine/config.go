// Package engine implements leverage scoring, party-fit scoring and
// negotiation-point allocation.
package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Config holds the tunable constants of the scoring engine.
type Config struct {
	// Leverage bounds. The customer score starts at NeutralPrior and is
	// clamped to [MinLeverage, MaxLeverage] after all adjustments.
	NeutralPrior int `yaml:"neutral_prior" mapstructure:"neutral_prior"`
	MinLeverage  int `yaml:"min_leverage" mapstructure:"min_leverage"`
	MaxLeverage  int `yaml:"max_leverage" mapstructure:"max_leverage"`

	// Party-fit modifier: +FitModifier above HighFitThreshold,
	// -FitModifier below LowFitThreshold.
	HighFitThreshold float64 `yaml:"high_fit_threshold" mapstructure:"high_fit_threshold"`
	LowFitThreshold  float64 `yaml:"low_fit_threshold" mapstructure:"low_fit_threshold"`
	FitModifier      int     `yaml:"fit_modifier" mapstructure:"fit_modifier"`

	// Fit sub-score weights (sum = 1.0).
	StrategicWeight    float64 `yaml:"strategic_weight" mapstructure:"strategic_weight"`
	CapabilityWeight   float64 `yaml:"capability_weight" mapstructure:"capability_weight"`
	RelationshipWeight float64 `yaml:"relationship_weight" mapstructure:"relationship_weight"`
	RiskWeight         float64 `yaml:"risk_weight" mapstructure:"risk_weight"`

	// Point budget per leverage percentage point.
	PointsPerLeverage int `yaml:"points_per_leverage" mapstructure:"points_per_leverage"`
}

// DefaultConfig returns the canonical engine constants.
func DefaultConfig() Config {
	return Config{
		NeutralPrior: 50,
		MinLeverage:  20,
		MaxLeverage:  80,

		HighFitThreshold: 70,
		LowFitThreshold:  40,
		FitModifier:      5,

		StrategicWeight:    0.30,
		CapabilityWeight:   0.25,
		RelationshipWeight: 0.25,
		RiskWeight:         0.20,

		PointsPerLeverage: 2,
	}
}

// WeightSum returns the sum of the fit sub-score weights.
func (c Config) WeightSum() float64 {
	return c.StrategicWeight + c.CapabilityWeight + c.RelationshipWeight + c.RiskWeight
}

// Validate checks that a Config is internally consistent.
func (c Config) Validate() error {
	var errs []string

	if c.MinLeverage < 0 || c.MaxLeverage > 100 {
		errs = append(errs, "leverage bounds must lie within [0,100]")
	}
	if c.MaxLeverage <= c.MinLeverage {
		errs = append(errs, "max_leverage must be > min_leverage")
	}
	if c.NeutralPrior < c.MinLeverage || c.NeutralPrior > c.MaxLeverage {
		errs = append(errs, "neutral_prior must lie within the leverage bounds")
	}

	if c.LowFitThreshold >= c.HighFitThreshold {
		errs = append(errs, "low_fit_threshold must be < high_fit_threshold")
	}
	if c.FitModifier < 0 {
		errs = append(errs, "fit_modifier must be >= 0")
	}

	weights := map[string]float64{
		"strategic_weight":    c.StrategicWeight,
		"capability_weight":   c.CapabilityWeight,
		"relationship_weight": c.RelationshipWeight,
		"risk_weight":         c.RiskWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if math.Abs(c.WeightSum()-1.0) > 0.001 {
		errs = append(errs, fmt.Sprintf("fit weights should sum to 1.0, got %.4f", c.WeightSum()))
	}

	if c.PointsPerLeverage <= 0 {
		errs = append(errs, "points_per_leverage must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("engine: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
