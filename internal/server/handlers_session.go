package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/sessionwatch/internal/session"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// CreateSessionRequest represents the request body for creating a session.
type CreateSessionRequest struct {
	AppID     string `json:"appID"`
	UserID    string `json:"userID"`
	SessionID string `json:"sessionID,omitempty"`
}

// SessionSummary is the metadata view of a session.
type SessionSummary struct {
	AppID      string            `json:"appID"`
	UserID     string            `json:"userID"`
	ID         string            `json:"id"`
	EventCount int               `json:"eventCount"`
	State      map[string]any    `json:"state,omitempty"`
	Time       types.SessionTime `json:"time"`
}

func summarize(s *types.Session) SessionSummary {
	return SessionSummary{
		AppID:      s.AppID,
		UserID:     s.UserID,
		ID:         s.ID,
		EventCount: len(s.Events),
		State:      s.State,
		Time:       s.Time,
	}
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listSessions handles GET /session
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	// Optional app filter; empty lists everything
	appID := r.URL.Query().Get("app")

	keys, err := s.store.List(r.Context(), appID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Ensure we return an empty array [] instead of null
	summaries := []SessionSummary{}
	for _, key := range keys {
		sess, err := s.store.Get(r.Context(), key)
		if err != nil {
			// Deleted between List and Get; skip
			continue
		}
		summaries = append(summaries, summarize(sess))
	}

	writeJSON(w, http.StatusOK, summaries)
}

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if req.AppID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "appID and userID are required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = session.NewID()
	}

	key := types.SessionKey{AppID: req.AppID, UserID: req.UserID, SessionID: req.SessionID}
	sess, err := s.store.Create(r.Context(), key)
	if err != nil {
		if errors.Is(err, session.ErrExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "Session already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summarize(sess))
}

// keyFromRequest builds the session key from URL params.
func keyFromRequest(r *http.Request) types.SessionKey {
	return types.SessionKey{
		AppID:     chi.URLParam(r, "appID"),
		UserID:    chi.URLParam(r, "userID"),
		SessionID: chi.URLParam(r, "sessionID"),
	}
}

// getSession handles GET /session/{appID}/{userID}/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), keyFromRequest(r))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summarize(sess))
}

// deleteSession handles DELETE /session/{appID}/{userID}/{sessionID}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), keyFromRequest(r)); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// getEvents handles GET /session/{appID}/{userID}/{sessionID}/events
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), keyFromRequest(r))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	events := sess.Events
	if events == nil {
		events = []types.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
