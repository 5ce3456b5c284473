// Package phase implements the one-way six-phase negotiation lifecycle gate.
package phase

import (
	"fmt"

	"github.com/parley-group/negotiation-cli/internal/model"
)

// Completion thresholds for the mid-lifecycle predicates.
const (
	// maxOpenGap is the widest clause gap tolerated when leaving gap
	// narrowing; anything wider is an unresolved irreconcilable spread.
	maxOpenGap = 7

	// contestedGapThreshold marks a clause as contested; every contested
	// clause needs a committed priority before leaving the contention phase.
	contestedGapThreshold = 4
)

// Snapshot is the read-only view of a session the gate evaluates. Callers
// assemble it from persisted state; the gate itself reads nothing.
type Snapshot struct {
	Phase            model.Phase
	ProviderSelected bool
	Assessed         bool
	Clauses          []model.ClausePosition
	Committed        map[model.Party]int
	Prioritized      map[string]bool
	Budget           model.PointBudget
}

// Rejection names the unmet precondition that blocked an advance. It is a
// plain result value, not an error: the caller surfaces it to the user and
// the session is left untouched.
type Rejection struct {
	Phase  model.Phase `json:"phase"`
	Reason string      `json:"reason"`
}

func (r *Rejection) String() string {
	return fmt.Sprintf("phase %s not complete: %s", r.Phase, r.Reason)
}

// Advance evaluates the current phase's completion predicate against the
// snapshot. It returns the next phase on success, or the unchanged phase and
// a Rejection when the predicate fails. Phases are never skipped and never
// revisited.
func Advance(snap Snapshot) (model.Phase, *Rejection) {
	current := snap.Phase
	if !current.Valid() {
		return current, &Rejection{Phase: current, Reason: "unknown phase"}
	}
	if current.Terminal() {
		return current, &Rejection{Phase: current, Reason: "final review is terminal"}
	}

	if rej := completionRejection(snap); rej != nil {
		return current, rej
	}
	return current.Next(), nil
}

// Complete reports whether the snapshot's current phase satisfies its
// completion predicate. Viewing an earlier phase is always a read; this is
// only consulted when advancing.
func Complete(snap Snapshot) bool {
	if !snap.Phase.Valid() || snap.Phase.Terminal() {
		return false
	}
	return completionRejection(snap) == nil
}

func completionRejection(snap Snapshot) *Rejection {
	switch snap.Phase {
	case model.PhasePreliminary:
		if !snap.ProviderSelected {
			return &Rejection{Phase: snap.Phase, Reason: "no provider selected"}
		}
		if !snap.Assessed {
			return &Rejection{Phase: snap.Phase, Reason: "leverage assessment not submitted"}
		}

	case model.PhaseFoundation:
		if len(snap.Clauses) == 0 {
			return &Rejection{Phase: snap.Phase, Reason: "clause positions not initialized"}
		}
		for _, c := range snap.Clauses {
			if c.ProviderPos < model.MinPosition || c.CustomerPos < model.MinPosition {
				return &Rejection{
					Phase:  snap.Phase,
					Reason: fmt.Sprintf("clause %s missing a party position", c.ClauseID),
				}
			}
		}

	case model.PhaseGapNarrowing:
		for _, c := range snap.Clauses {
			if c.Gap() > maxOpenGap {
				return &Rejection{
					Phase:  snap.Phase,
					Reason: fmt.Sprintf("clause %s gap %d exceeds %d", c.ClauseID, c.Gap(), maxOpenGap),
				}
			}
		}

	case model.PhaseContention:
		committed := make(map[string]bool)
		for _, c := range snap.Clauses {
			if c.Gap() >= contestedGapThreshold {
				committed[c.ClauseID] = false
			}
		}
		for id, done := range snap.Prioritized {
			if _, contested := committed[id]; contested && done {
				committed[id] = true
			}
		}
		for id, done := range committed {
			if !done {
				return &Rejection{
					Phase:  snap.Phase,
					Reason: fmt.Sprintf("contested clause %s has no committed priority", id),
				}
			}
		}

	case model.PhaseDealDrivers:
		for _, party := range []model.Party{model.PartyCustomer, model.PartyProvider} {
			budget := snap.Budget.Points(party)
			if budget == 0 {
				return &Rejection{
					Phase:  snap.Phase,
					Reason: fmt.Sprintf("%s has no point budget", party),
				}
			}
			if snap.Committed[party]*2 < budget {
				return &Rejection{
					Phase:  snap.Phase,
					Reason: fmt.Sprintf("%s has committed under half of its point budget", party),
				}
			}
		}
	}

	return nil
}
