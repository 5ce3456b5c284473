// Package store persists negotiation sessions, clause positions and priority
// commitments behind a backend-agnostic interface.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/parley-group/negotiation-cli/internal/model"
)

// Sentinel errors returned by store mutations. All are recoverable: the
// caller surfaces them without retrying and prior state is left unchanged.
var (
	// ErrNotFound means the session or clause does not exist.
	ErrNotFound = eris.New("store: not found")

	// ErrInsufficientBudget means a prioritize call would push a party's
	// committed weight above its point budget. Nothing is mutated.
	ErrInsufficientBudget = eris.New("store: insufficient point budget")

	// ErrPhaseConflict means the session's current phase does not permit the
	// mutation, including a compare-and-swap advance that lost the race.
	ErrPhaseConflict = eris.New("store: phase conflict")
)

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Phase  model.Phase `json:"phase,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// Store is the persistence interface for the negotiation engine. Every
// mutation is applied as a single atomic statement whose WHERE clause carries
// its phase or budget precondition, so near-simultaneous edits by the two
// parties cannot produce lost updates.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, deal model.DealContext, difficulty model.Difficulty) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)

	// SelectProvider and UpdateDealContext are valid only while the session
	// is still in the preliminary phase.
	SelectProvider(ctx context.Context, sessionID, providerID string) error
	UpdateDealContext(ctx context.Context, sessionID string, deal model.DealContext) error

	// SaveAssessment persists the authoritative assessment; it is valid only
	// during the preliminary phase. Later recomputations are exploratory and
	// are not persisted.
	SaveAssessment(ctx context.Context, sessionID string, a model.Assessment) error

	// AdvancePhase is a compare-and-swap: it succeeds only if the session is
	// still in the from phase.
	AdvancePhase(ctx context.Context, sessionID string, from, to model.Phase) error

	// Clause positions
	InitClausePositions(ctx context.Context, sessionID string, positions []model.ClausePosition) error
	GetClausePositions(ctx context.Context, sessionID string) ([]model.ClausePosition, error)
	SetPosition(ctx context.Context, sessionID, clauseID string, party model.Party, value int) error
	Gap(ctx context.Context, sessionID, clauseID string) (int, error)

	// Priorities. Prioritize commits weight against the party's budget in a
	// single statement; budget is the party's full point budget.
	Prioritize(ctx context.Context, sessionID, clauseID string, party model.Party, weight, budget int) error
	CommittedWeight(ctx context.Context, sessionID string, party model.Party) (int, error)
	ListPriorities(ctx context.Context, sessionID string) ([]model.ClausePriority, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// PhaseHistory derives the visited-phase list from the current phase.
// Phases are never skipped and never revisited, so the history is always the
// prefix of the lifecycle ending at the current phase.
func PhaseHistory(current model.Phase) []model.Phase {
	idx := current.Index()
	if idx < 0 {
		return nil
	}
	return model.Phases()[:idx+1]
}
