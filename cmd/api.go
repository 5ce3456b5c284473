package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/parley-group/negotiation-cli/internal/engine"
	"github.com/parley-group/negotiation-cli/internal/model"
	"github.com/parley-group/negotiation-cli/internal/session"
	"github.com/parley-group/negotiation-cli/internal/store"
)

// api bundles the handlers' dependencies.
type api struct {
	service *session.Service
	engine  *engine.Engine
}

// newRouter builds the HTTP API.
func newRouter(svc *session.Service, eng *engine.Engine) http.Handler {
	a := &api{service: svc, engine: eng}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", a.handleScore)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", a.handleCreateSession)
			r.Get("/", a.handleListSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", a.handleGetSession)
				r.Post("/provider", a.handleSelectProvider)
				r.Post("/assess", a.handleAssess)
				r.Post("/advance", a.handleAdvance)
				r.Get("/clauses", a.handleClauses)
				r.Put("/clauses/{clauseID}/position", a.handleSetPosition)
				r.Put("/clauses/{clauseID}/priority", a.handlePrioritize)
				r.Get("/priorities", a.handlePriorities)
			})
		})
	})

	return r
}

type scoreRequest struct {
	Factors model.LeverageFactors `json:"factors"`
	Fit     model.FitInputs       `json:"fit"`
}

// handleScore runs the pipeline statelessly: nothing is stored.
func (a *api) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Assess(req.Factors, req.Fit))
}

type createSessionRequest struct {
	Deal       model.DealContext `json:"deal"`
	Difficulty model.Difficulty  `json:"difficulty,omitempty"`
}

func (a *api) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := a.service.Create(r.Context(), req.Deal, req.Difficulty)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (a *api) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := store.SessionFilter{}
	if p := r.URL.Query().Get("phase"); p != "" {
		phase := model.Phase(p)
		if !phase.Valid() {
			writeError(w, http.StatusBadRequest, "unknown phase")
			return
		}
		filter.Phase = phase
	}
	sessions, err := a.service.List(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (a *api) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.service.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *api) handleSelectProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProviderID string `json:"provider_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProviderID == "" {
		writeError(w, http.StatusBadRequest, "provider_id is required")
		return
	}
	if err := a.service.SelectProvider(r.Context(), chi.URLParam(r, "sessionID"), req.ProviderID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a2, err := a.service.Assess(r.Context(), chi.URLParam(r, "sessionID"), req.Factors, req.Fit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a2)
}

func (a *api) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, rej, err := a.service.Advance(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if rej != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"rejection": rej})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *api) handleClauses(w http.ResponseWriter, r *http.Request) {
	positions, err := a.service.Positions(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if positions == nil {
		positions = []model.ClausePosition{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (a *api) handleSetPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Party    model.Party `json:"party"`
		Position int         `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Party.Valid() {
		writeError(w, http.StatusBadRequest, "party must be customer or provider")
		return
	}
	err := a.service.SetPosition(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "clauseID"), req.Party, req.Position)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handlePrioritize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Party  model.Party `json:"party"`
		Weight int         `json:"weight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Party.Valid() {
		writeError(w, http.StatusBadRequest, "party must be customer or provider")
		return
	}
	err := a.service.Prioritize(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "clauseID"), req.Party, req.Weight)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handlePriorities(w http.ResponseWriter, r *http.Request) {
	priorities, err := a.service.Priorities(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if priorities == nil {
		priorities = []model.ClausePriority{}
	}
	writeJSON(w, http.StatusOK, priorities)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case eris.Is(err, store.ErrPhaseConflict):
		writeError(w, http.StatusConflict, "operation not allowed in the session's current phase")
	case eris.Is(err, store.ErrInsufficientBudget):
		writeError(w, http.StatusUnprocessableEntity, "insufficient point budget")
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
