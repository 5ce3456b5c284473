package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parley-group/negotiation-cli/internal/engine"
	"github.com/parley-group/negotiation-cli/internal/model"
	"github.com/parley-group/negotiation-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeLookup struct {
	selections model.FitSelections
	err        error
	calls      int
}

func (f *fakeLookup) Lookup(ctx context.Context, providerID string) (model.FitSelections, error) {
	f.calls++
	return f.selections, f.err
}

func newService(t *testing.T, lookup CapabilityLookup) *Service {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "negotiate.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return New(st, engine.Default(), lookup)
}

func neutralFit() model.FitInputs {
	return model.FitInputs{Strategic: 50, Capability: 50, Relationship: 50, Risk: 50}
}

func TestCreateRejectsUnknownDifficulty(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Create(context.Background(), model.DealContext{}, "nightmare")
	assert.Error(t, err)
}

func TestAssessPrefillsSelectionsFromLookup(t *testing.T) {
	lookup := &fakeLookup{selections: model.FitSelections{CapabilityCoverage: model.CoverageFull}}
	svc := newService(t, lookup)
	ctx := context.Background()

	sess, err := svc.Create(ctx, model.DealContext{}, "")
	require.NoError(t, err)
	require.NoError(t, svc.SelectProvider(ctx, sess.ID, "prov-1"))

	a, err := svc.Assess(ctx, sess.ID, model.LeverageFactors{}, neutralFit())
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, model.CoverageFull, a.Fit.Selections.CapabilityCoverage)
	// full coverage nudges the capability sub-score up by 10
	assert.InDelta(t, 60, a.FitScore.Capability, 0.001)
}

func TestAssessSkipsLookupWhenSelectionsGiven(t *testing.T) {
	lookup := &fakeLookup{selections: model.FitSelections{CapabilityCoverage: model.CoverageFull}}
	svc := newService(t, lookup)
	ctx := context.Background()

	sess, err := svc.Create(ctx, model.DealContext{}, "")
	require.NoError(t, err)
	require.NoError(t, svc.SelectProvider(ctx, sess.ID, "prov-1"))

	fit := neutralFit()
	fit.Selections.RiskPosture = model.RiskDivergent
	a, err := svc.Assess(ctx, sess.ID, model.LeverageFactors{}, fit)
	require.NoError(t, err)
	assert.Equal(t, 0, lookup.calls)
	assert.Equal(t, model.RiskDivergent, a.Fit.Selections.RiskPosture)
}

func TestAssessDegradesOnLookupFailure(t *testing.T) {
	lookup := &fakeLookup{err: eris.New("capability service down")}
	svc := newService(t, lookup)
	ctx := context.Background()

	sess, err := svc.Create(ctx, model.DealContext{}, "")
	require.NoError(t, err)
	require.NoError(t, svc.SelectProvider(ctx, sess.ID, "prov-1"))

	a, err := svc.Assess(ctx, sess.ID, model.LeverageFactors{}, neutralFit())
	require.NoError(t, err)
	assert.Equal(t, model.FitSelections{}, a.Fit.Selections)
}

func TestPrioritizeRequiresAssessment(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	sess, err := svc.Create(ctx, model.DealContext{}, "")
	require.NoError(t, err)

	err = svc.Prioritize(ctx, sess.ID, "term", model.PartyCustomer, 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no assessment")
}

// TestLifecycle walks one session from preliminary assessment to final
// review, hitting each gate's rejection on the way.
func TestLifecycle(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	sess, err := svc.Create(ctx, model.DealContext{ServiceCategory: "managed_services"}, "")
	require.NoError(t, err)

	// Preliminary: blocked until provider and assessment are in place.
	_, rej, err := svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "provider")

	require.NoError(t, svc.SelectProvider(ctx, sess.ID, "prov-1"))
	_, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "assessment")

	a, err := svc.Assess(ctx, sess.ID, model.LeverageFactors{}, neutralFit())
	require.NoError(t, err)
	assert.Equal(t, model.LeverageScore{Customer: 50, Provider: 50}, a.Score)
	assert.Equal(t, model.PointBudget{CustomerPoints: 100, ProviderPoints: 100}, a.Budget)

	// Into foundation: the clause set is instantiated on entry.
	got, rej, err := svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseFoundation, got.Phase)

	positions, err := svc.Positions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, positions, len(model.DefaultClauses()))
	for _, p := range positions {
		assert.Equal(t, 5, p.ProviderPos)
		assert.Equal(t, model.MinPosition, p.CustomerPos)
	}

	// Assessment inputs are frozen once preliminary is left.
	_, err = svc.Assess(ctx, sess.ID, model.LeverageFactors{}, neutralFit())
	assert.ErrorIs(t, err, store.ErrPhaseConflict)

	// Foundation positions are all initialized, so the gate opens directly;
	// the default gap of 4 also clears gap narrowing (max open gap is 7).
	got, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseGapNarrowing, got.Phase)

	got, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseContention, got.Phase)

	// Contention: every clause still sits at gap 4, so each needs a
	// committed priority before the gate opens.
	_, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "no committed priority")

	for _, c := range model.DefaultClauses() {
		require.NoError(t, svc.Prioritize(ctx, sess.ID, c.ID, model.PartyCustomer, 10))
	}

	got, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseDealDrivers, got.Phase)

	// Deal drivers: the provider has committed nothing yet.
	_, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "provider")

	require.NoError(t, svc.Prioritize(ctx, sess.ID, "liability_cap", model.PartyProvider, 30))
	require.NoError(t, svc.Prioritize(ctx, sess.ID, "ip_ownership", model.PartyProvider, 20))

	got, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseFinalReview, got.Phase)
	assert.Equal(t, model.Phases(), got.PhaseHistory)

	// Terminal: nothing left to advance to.
	_, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "terminal")

	// Priorities are frozen in final review.
	err = svc.Prioritize(ctx, sess.ID, "term", model.PartyCustomer, 5)
	assert.ErrorIs(t, err, store.ErrPhaseConflict)
}

func TestAdvanceBlocksOnWideGap(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	sess, err := svc.Create(ctx, model.DealContext{}, model.DifficultyAdversarial)
	require.NoError(t, err)
	require.NoError(t, svc.SelectProvider(ctx, sess.ID, "prov-1"))
	_, err = svc.Assess(ctx, sess.ID, model.LeverageFactors{}, neutralFit())
	require.NoError(t, err)

	got, rej, err := svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseFoundation, got.Phase)

	got, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseGapNarrowing, got.Phase)

	// Adversarial anchors open at 9 against 1: gap 8 blocks the gate.
	_, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "exceeds")

	// Narrow every clause to within tolerance and the gate opens.
	for _, c := range model.DefaultClauses() {
		require.NoError(t, svc.SetPosition(ctx, sess.ID, c.ID, model.PartyCustomer, 2))
	}
	got, rej, err = svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, model.PhaseContention, got.Phase)
}

func TestRecomputeAll(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	for range 3 {
		sess, err := svc.Create(ctx, model.DealContext{}, "")
		require.NoError(t, err)
		require.NoError(t, svc.SelectProvider(ctx, sess.ID, "prov-1"))
		_, err = svc.Assess(ctx, sess.ID, model.LeverageFactors{}, neutralFit())
		require.NoError(t, err)
	}
	// One session without an assessment is skipped.
	_, err := svc.Create(ctx, model.DealContext{}, "")
	require.NoError(t, err)

	n, err := svc.RecomputeAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// stalePhaseStore drops the phase filter from list calls, so the recompute
// sees sessions that have already left preliminary — the same view a racing
// advance between the list and the save would produce.
type stalePhaseStore struct {
	store.Store
}

func (s *stalePhaseStore) ListSessions(ctx context.Context, f store.SessionFilter) ([]model.Session, error) {
	return s.Store.ListSessions(ctx, store.SessionFilter{Limit: f.Limit, Offset: f.Offset})
}

func TestRecomputeAllSkipsAdvancedSessions(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "negotiate.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	svc := New(&stalePhaseStore{Store: st}, engine.Default(), nil)
	ctx := context.Background()

	for range 2 {
		sess, err := svc.Create(ctx, model.DealContext{}, "")
		require.NoError(t, err)
		require.NoError(t, svc.SelectProvider(ctx, sess.ID, "prov-1"))
		_, err = svc.Assess(ctx, sess.ID, model.LeverageFactors{}, neutralFit())
		require.NoError(t, err)
	}

	// This one has moved on to foundation; its numbers are frozen and the
	// recompute must skip it instead of failing the whole run.
	frozen, err := svc.Create(ctx, model.DealContext{}, "")
	require.NoError(t, err)
	require.NoError(t, svc.SelectProvider(ctx, frozen.ID, "prov-1"))
	_, err = svc.Assess(ctx, frozen.ID, model.LeverageFactors{}, neutralFit())
	require.NoError(t, err)
	_, rej, err := svc.Advance(ctx, frozen.ID)
	require.NoError(t, err)
	require.Nil(t, rej)

	n, err := svc.RecomputeAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
