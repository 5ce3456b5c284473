package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parley-group/negotiation-cli/internal/engine"
	"github.com/parley-group/negotiation-cli/internal/model"
	"github.com/parley-group/negotiation-cli/internal/session"
	"github.com/parley-group/negotiation-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "negotiate.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	eng := engine.Default()
	return newRouter(session.New(st, eng, nil), eng)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestScoreStateless(t *testing.T) {
	body := map[string]any{
		"factors": map[string]any{
			"market": map[string]any{"market_condition": "buyers_market"},
		},
		"fit": map[string]any{"strategic": 50, "capability": 50, "relationship": 50, "risk": 50},
	}
	rec := doJSON(t, newTestRouter(t), http.MethodPost, "/v1/score", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var a model.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, 58, a.Score.Customer)
	assert.Equal(t, 42, a.Score.Provider)
	assert.Equal(t, 116, a.Budget.CustomerPoints)
	assert.Equal(t, 84, a.Budget.ProviderPoints)
}

func TestScoreBadBody(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/score", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	// Create.
	rec := doJSON(t, h, http.MethodPost, "/v1/sessions", map[string]any{
		"deal": map[string]any{"service_category": "managed_services"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)
	base := "/v1/sessions/" + sess.ID

	// Advancing before provider selection is rejected, not an error.
	rec = doJSON(t, h, http.MethodPost, base+"/advance", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no provider selected")

	rec = doJSON(t, h, http.MethodPost, base+"/provider", map[string]string{"provider_id": "prov-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, base+"/assess", map[string]any{
		"fit": map[string]any{"strategic": 50, "capability": 50, "relationship": 50, "risk": 50},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Into foundation; the clause set appears.
	rec = doJSON(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, model.PhaseFoundation, sess.Phase)

	rec = doJSON(t, h, http.MethodGet, base+"/clauses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var positions []model.ClausePosition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	assert.Len(t, positions, len(model.DefaultClauses()))

	// Re-assessing after preliminary is a phase conflict.
	rec = doJSON(t, h, http.MethodPost, base+"/assess", map[string]any{
		"fit": map[string]any{"strategic": 50, "capability": 50, "relationship": 50, "risk": 50},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Move a position and prioritize.
	rec = doJSON(t, h, http.MethodPut, base+"/clauses/term/position", map[string]any{
		"party": "customer", "position": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Advance twice: gap narrowing, then contention.
	rec = doJSON(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPut, base+"/clauses/term/priority", map[string]any{
		"party": "customer", "weight": 40,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Over-budget priority is a 422.
	rec = doJSON(t, h, http.MethodPut, base+"/clauses/sla/priority", map[string]any{
		"party": "customer", "weight": 90,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodGet, base+"/priorities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var priorities []model.ClausePriority
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &priorities))
	require.Len(t, priorities, 1)
	assert.Equal(t, 40, priorities[0].Weight)
}

func TestSessionNotFound(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessionsFilter(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/sessions", map[string]any{"deal": map[string]any{}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/sessions?phase=preliminary_assessment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 1)

	rec = doJSON(t, h, http.MethodGet, "/v1/sessions?phase=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/sessions?phase=final_review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSetPositionValidation(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPut, "/v1/sessions/s1/clauses/term/position", map[string]any{
		"party": "arbitrator", "position": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
