// Package api provides HTTP API handlers for the marchrep step counter.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/marchrep/internal/store"
)

// SessionController starts and stops the live counting session.
type SessionController interface {
	StartSession(name string) (*store.Session, error)
	StopSession() (*store.Session, error)
	ActiveSession() *store.Session
}

// SessionHandler handles HTTP requests for session resources.
type SessionHandler struct {
	store      *store.Store
	controller SessionController
}

// NewSessionHandler creates a new SessionHandler. A nil controller makes
// POST create plain stored sessions that are never fed frames.
func NewSessionHandler(s *store.Store, c SessionController) *SessionHandler {
	return &SessionHandler{store: s, controller: c}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/sessions, /api/sessions/{id}, /api/sessions/{id}/finish
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "finish":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.finish(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createSessionRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	Reps            int     `json:"reps"`
	Frames          int     `json:"frames"`
	Rejected        int     `json:"rejected"`
	StartedAt       string  `json:"started_at"`
	EndedAt         *string `json:"ended_at,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Session to a sessionResponse.
func toResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:              s.ID,
		Name:            s.Name,
		Status:          string(s.Status),
		Reps:            s.Reps,
		Frames:          s.Frames,
		Rejected:        s.Rejected,
		StartedAt:       s.StartedAt.Format(time.RFC3339),
		DurationSeconds: s.Duration().Seconds(),
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339)
		resp.EndedAt = &ended
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// live returns the controller's snapshot when id is the running session.
// The snapshot carries frame counters the store has not caught up with yet.
func (h *SessionHandler) live(id string) *store.Session {
	if h.controller == nil {
		return nil
	}
	if active := h.controller.ActiveSession(); active != nil && active.ID == id {
		return active
	}
	return nil
}

// list handles GET /api/sessions and returns all sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}

	for _, s := range sessions {
		if live := h.live(s.ID); live != nil {
			s = live
		}
		response.Sessions = append(response.Sessions, toResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and returns a single session.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	if live := h.live(id); live != nil {
		writeJSON(w, http.StatusOK, toResponse(live))
		return
	}

	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(session))
}

// create handles POST /api/sessions and starts a new session.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	if h.controller == nil {
		session := &store.Session{Name: req.Name}
		if err := h.store.Sessions().Create(session); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create session")
			return
		}
		writeJSON(w, http.StatusCreated, toResponse(session))
		return
	}

	session, err := h.controller.StartSession(req.Name)
	if err != nil {
		if errors.Is(err, store.ErrSessionActive) {
			writeError(w, http.StatusConflict, "A session is already active")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(session))
}

// finish handles POST /api/sessions/{id}/finish and ends a session.
func (h *SessionHandler) finish(w http.ResponseWriter, r *http.Request, id string) {
	if h.live(id) != nil {
		session, err := h.controller.StopSession()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to finish session")
			return
		}
		writeJSON(w, http.StatusOK, toResponse(session))
		return
	}

	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	if session.Status == store.SessionFinished {
		writeError(w, http.StatusConflict, "Session already finished")
		return
	}

	if err := h.store.Sessions().Finish(id, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to finish session")
		return
	}

	session, err = h.store.Sessions().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(session))
}

// delete handles DELETE /api/sessions/{id} and removes a session.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if h.live(id) != nil {
		writeError(w, http.StatusConflict, "Session is still active")
		return
	}

	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
