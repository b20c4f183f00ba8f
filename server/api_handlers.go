package server

import (
	"encoding/json"
	"net/http"

	"github.com/miu-servicedesk/portal/routeguard"
	"github.com/miu-servicedesk/portal/session"
)

const contentTypeJSON = "application/json"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// NavHandler returns the sidebar for the current session (GET /api/nav).
// Page scripts re-fetch it after navigation instead of rebuilding the
// menu from markup.
func (s *Server) NavHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := stateFrom(r.Context())
		if !session.NewGate(state).IsAuthenticated() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not signed in"})
			return
		}

		page := routeguard.PageFor(r.URL.Query().Get("page"))
		items := routeguard.NavFor(page, state)
		writeJSON(w, http.StatusOK, map[string]any{"data": items})
	}
}

// TicketsSummaryHandler proxies the dashboard counters from the ticket
// backend (GET /api/tickets/summary) using the session's bearer token.
func (s *Server) TicketsSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		state := stateFrom(ctx)
		if !session.NewGate(state).IsAuthenticated() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not signed in"})
			return
		}
		if s.backends.Tickets == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"message": "ticket backend not configured"})
			return
		}

		var summary json.RawMessage
		if err := s.backends.Tickets.Get(ctx, state.Token, "/tickets/summary", &summary); err != nil {
			s.handleBackendError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": summary})
	}
}

// WorkflowsHandler proxies the workflow list from the workflow backend
// (GET /api/workflows). Access control mirrors the workflows page tier.
func (s *Server) WorkflowsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		state := stateFrom(ctx)
		if !session.NewGate(state).IsAuthenticated() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not signed in"})
			return
		}
		if decision := routeguard.Evaluate(routeguard.PageWorkflows, state); !decision.Allow {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": routeguard.AccessDeniedMessage})
			return
		}
		if s.backends.Workflow == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"message": "workflow backend not configured"})
			return
		}

		var workflows json.RawMessage
		if err := s.backends.Workflow.Get(ctx, state.Token, "/workflows", &workflows); err != nil {
			s.handleBackendError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": workflows})
	}
}

// AISuggestHandler forwards a ticket description to the AI backend for a
// category suggestion (POST /api/ai/suggest).
func (s *Server) AISuggestHandler() http.HandlerFunc {
	type suggestRequest struct {
		Description string `json:"description"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		state := stateFrom(ctx)
		if !session.NewGate(state).IsAuthenticated() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not signed in"})
			return
		}
		if s.backends.AI == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"message": "ai backend not configured"})
			return
		}

		var req suggestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
			return
		}

		var suggestion json.RawMessage
		if err := s.backends.AI.Post(ctx, state.Token, "/suggest", req, &suggestion); err != nil {
			s.handleBackendError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": suggestion})
	}
}
