package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseOrdering(t *testing.T) {
	t.Parallel()

	phases := Phases()
	assert.Len(t, phases, 6)
	assert.Equal(t, PhasePreliminary, phases[0])
	assert.Equal(t, PhaseFinalReview, phases[5])

	for i, p := range phases {
		assert.Equal(t, i, p.Index())
		assert.True(t, p.Valid())
	}
}

func TestPhaseNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Phase
		want Phase
	}{
		{"preliminary to foundation", PhasePreliminary, PhaseFoundation},
		{"foundation to gap narrowing", PhaseFoundation, PhaseGapNarrowing},
		{"gap narrowing to contention", PhaseGapNarrowing, PhaseContention},
		{"contention to deal drivers", PhaseContention, PhaseDealDrivers},
		{"deal drivers to final review", PhaseDealDrivers, PhaseFinalReview},
		{"terminal stays terminal", PhaseFinalReview, PhaseFinalReview},
		{"unknown stays put", Phase("bogus"), Phase("bogus")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.Next())
		})
	}
}

func TestPhaseBefore(t *testing.T) {
	t.Parallel()

	assert.True(t, PhasePreliminary.Before(PhaseFoundation))
	assert.True(t, PhaseFoundation.Before(PhaseFinalReview))
	assert.False(t, PhaseFinalReview.Before(PhaseFoundation))
	assert.False(t, PhaseFoundation.Before(PhaseFoundation))
	assert.False(t, Phase("bogus").Before(PhaseFoundation))
}

func TestPhaseTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, PhaseFinalReview.Terminal())
	assert.False(t, PhaseDealDrivers.Terminal())
}

func TestInvalidPhase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, Phase("wizard_step_3").Index())
	assert.False(t, Phase("").Valid())
}
