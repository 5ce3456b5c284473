// Package session orchestrates negotiation sessions: it combines the scoring
// engine, the phase gate and the store into the operations the CLI and the
// HTTP API expose.
package session

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parley-group/negotiation-cli/internal/capability"
	"github.com/parley-group/negotiation-cli/internal/engine"
	"github.com/parley-group/negotiation-cli/internal/model"
	"github.com/parley-group/negotiation-cli/internal/phase"
	"github.com/parley-group/negotiation-cli/internal/store"
)

// CapabilityLookup prefills fit selections for a provider. Implemented by
// capability.Client; nil disables prefill.
type CapabilityLookup interface {
	Lookup(ctx context.Context, providerID string) (model.FitSelections, error)
}

var _ CapabilityLookup = (*capability.Client)(nil)

// Service wires the engine, the store and the optional capability lookup.
type Service struct {
	store      store.Store
	engine     *engine.Engine
	capability CapabilityLookup
}

// New creates a session service. lookup may be nil.
func New(st store.Store, eng *engine.Engine, lookup CapabilityLookup) *Service {
	return &Service{store: st, engine: eng, capability: lookup}
}

// Create opens a new session in the preliminary assessment phase.
func (s *Service) Create(ctx context.Context, deal model.DealContext, difficulty model.Difficulty) (*model.Session, error) {
	if difficulty != "" && !difficulty.Valid() {
		return nil, eris.Errorf("session: unknown difficulty %q", difficulty)
	}
	sess, err := s.store.CreateSession(ctx, deal, difficulty)
	if err != nil {
		return nil, err
	}
	zap.L().Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("difficulty", string(sess.Difficulty)),
	)
	return sess, nil
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// List returns sessions matching the filter.
func (s *Service) List(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	return s.store.ListSessions(ctx, filter)
}

// SelectProvider records the chosen provider. Only valid during the
// preliminary assessment phase.
func (s *Service) SelectProvider(ctx context.Context, sessionID, providerID string) error {
	if providerID == "" {
		return eris.New("session: provider id must not be empty")
	}
	return s.store.SelectProvider(ctx, sessionID, providerID)
}

// AmendDeal replaces the deal context. Only valid during the preliminary
// assessment phase.
func (s *Service) AmendDeal(ctx context.Context, sessionID string, deal model.DealContext) error {
	return s.store.UpdateDealContext(ctx, sessionID, deal)
}

// Assess runs the full scoring pipeline on the given inputs and persists the
// result on the session. When the fit selections are empty and a capability
// lookup is configured, the provider's recorded selections are prefilled
// first; lookup failures degrade to the caller's inputs.
func (s *Service) Assess(ctx context.Context, sessionID string, factors model.LeverageFactors, fit model.FitInputs) (*model.Assessment, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if fit.Selections == (model.FitSelections{}) && s.capability != nil && sess.ProviderSelected() {
		sel, err := s.capability.Lookup(ctx, sess.ProviderID)
		if err != nil {
			zap.L().Warn("capability prefill unavailable",
				zap.String("session_id", sessionID),
				zap.String("provider_id", sess.ProviderID),
				zap.Error(err),
			)
		} else {
			fit.Selections = sel
		}
	}

	a := s.engine.Assess(factors, fit)
	if err := s.store.SaveAssessment(ctx, sessionID, a); err != nil {
		return nil, err
	}

	zap.L().Info("session assessed",
		zap.String("session_id", sessionID),
		zap.Int("customer_leverage", a.Score.Customer),
		zap.Int("provider_leverage", a.Score.Provider),
	)
	return &a, nil
}

// Advance evaluates the current phase's completion predicate and, if it
// holds, moves the session one phase forward. A failed predicate returns a
// *phase.Rejection with a nil error; the session is unchanged either way.
// Entering the foundation phase instantiates the clause set.
func (s *Service) Advance(ctx context.Context, sessionID string) (*model.Session, *phase.Rejection, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	snap, err := s.snapshot(ctx, sess)
	if err != nil {
		return nil, nil, err
	}

	next, rej := phase.Advance(snap)
	if rej != nil {
		return nil, rej, nil
	}

	if err := s.store.AdvancePhase(ctx, sessionID, sess.Phase, next); err != nil {
		return nil, nil, err
	}

	if next == model.PhaseFoundation {
		if err := s.store.InitClausePositions(ctx, sessionID, StartingPositions(sessionID, sess.Difficulty)); err != nil {
			return nil, nil, err
		}
	}

	zap.L().Info("session advanced",
		zap.String("session_id", sessionID),
		zap.String("from", string(sess.Phase)),
		zap.String("to", string(next)),
	)
	updated, err := s.store.GetSession(ctx, sessionID)
	return updated, nil, err
}

// SetPosition moves one party's stance on a clause. Valid from the
// foundation phase onward.
func (s *Service) SetPosition(ctx context.Context, sessionID, clauseID string, party model.Party, value int) error {
	return s.store.SetPosition(ctx, sessionID, clauseID, party, value)
}

// Positions returns the clause positions for a session.
func (s *Service) Positions(ctx context.Context, sessionID string) ([]model.ClausePosition, error) {
	return s.store.GetClausePositions(ctx, sessionID)
}

// Prioritize commits part of a party's point budget to a clause. The budget
// ceiling comes from the session's assessment; committing without an
// assessment fails.
func (s *Service) Prioritize(ctx context.Context, sessionID, clauseID string, party model.Party, weight int) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Assessed() {
		return eris.Errorf("session: %s has no assessment to budget against", sessionID)
	}
	budget := sess.Assessment.Budget.Points(party)
	return s.store.Prioritize(ctx, sessionID, clauseID, party, weight, budget)
}

// Priorities returns the committed priorities for a session.
func (s *Service) Priorities(ctx context.Context, sessionID string) ([]model.ClausePriority, error) {
	return s.store.ListPriorities(ctx, sessionID)
}

// RecomputeAll re-runs the scoring pipeline for every session still in the
// preliminary phase with an assessment on file. Used after engine constants
// change. Sessions past preliminary keep their frozen numbers.
func (s *Service) RecomputeAll(ctx context.Context, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{Phase: model.PhasePreliminary, Limit: 10000})
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var recomputed int
	results := make(chan string, len(sessions))
	for _, sess := range sessions {
		if !sess.Assessed() {
			continue
		}
		g.Go(func() error {
			a := s.engine.Assess(sess.Assessment.Factors, sess.Assessment.Fit)
			switch err := s.store.SaveAssessment(ctx, sess.ID, a); {
			case err == nil:
			case eris.Is(err, store.ErrPhaseConflict):
				// Advanced past preliminary since the list; its numbers
				// are frozen now, so leave it alone.
				zap.L().Debug("recompute skipped", zap.String("session_id", sess.ID))
				return nil
			default:
				return eris.Wrapf(err, "session: recompute %s", sess.ID)
			}
			results <- sess.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(results)
	for range results {
		recomputed++
	}

	zap.L().Info("assessments recomputed", zap.Int("count", recomputed))
	return recomputed, nil
}

// snapshot assembles the phase gate's view of a session.
func (s *Service) snapshot(ctx context.Context, sess *model.Session) (phase.Snapshot, error) {
	snap := phase.Snapshot{
		Phase:            sess.Phase,
		ProviderSelected: sess.ProviderSelected(),
		Assessed:         sess.Assessed(),
		Committed:        map[model.Party]int{},
		Prioritized:      map[string]bool{},
	}
	if sess.Assessment != nil {
		snap.Budget = sess.Assessment.Budget
	}

	// Clause and priority state only exists from foundation onward.
	if sess.Phase == model.PhasePreliminary {
		return snap, nil
	}

	clauses, err := s.store.GetClausePositions(ctx, sess.ID)
	if err != nil {
		return phase.Snapshot{}, err
	}
	snap.Clauses = clauses

	for _, party := range []model.Party{model.PartyCustomer, model.PartyProvider} {
		committed, err := s.store.CommittedWeight(ctx, sess.ID, party)
		if err != nil {
			return phase.Snapshot{}, err
		}
		snap.Committed[party] = committed
	}

	priorities, err := s.store.ListPriorities(ctx, sess.ID)
	if err != nil {
		return phase.Snapshot{}, err
	}
	for _, p := range priorities {
		snap.Prioritized[p.ClauseID] = true
	}

	return snap, nil
}

// StartingPositions builds the default clause set for a session. The
// provider anchor depends on the session difficulty; the customer always
// opens at the bottom of the scale.
func StartingPositions(sessionID string, d model.Difficulty) []model.ClausePosition {
	clauses := model.DefaultClauses()
	positions := make([]model.ClausePosition, 0, len(clauses))
	for _, c := range clauses {
		positions = append(positions, model.ClausePosition{
			SessionID:   sessionID,
			ClauseID:    c.ID,
			ClauseName:  c.Name,
			ProviderPos: model.StartingProviderPosition(d),
			CustomerPos: model.MinPosition,
		})
	}
	return positions
}
