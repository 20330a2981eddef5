package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/talkdeck/talkdeck/pkg/history"
)

// API serves the session management endpoints:
//
//   - POST /sessions                — create a session from profile material
//   - GET  /sessions/{id}/history   — list the session's turns, newest first
type API struct {
	profiles history.ProfileStore
	store    history.Store
	log      *slog.Logger

	// historyLimit caps GET /sessions/{id}/history responses.
	historyLimit int
}

// NewAPI creates the handler set. Both stores are required.
func NewAPI(profiles history.ProfileStore, store history.Store, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{
		profiles:     profiles,
		store:        store,
		log:          log,
		historyLimit: 200,
	}
}

// Register adds the session routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", a.createSession)
	mux.HandleFunc("GET /sessions/{id}/history", a.sessionHistory)
}

// createSessionRequest is the POST /sessions body. All three fields feed the
// prompt context block; empty fields are allowed and stay empty there.
type createSessionRequest struct {
	Resume         string `json:"resume"`
	Projects       string `json:"projects"`
	JobDescription string `json:"job_description"`
}

type createSessionResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sessionID := uuid.NewString()
	profile := history.Profile{
		Resume:         req.Resume,
		Projects:       req.Projects,
		JobDescription: req.JobDescription,
	}
	if err := a.profiles.SaveProfile(r.Context(), sessionID, profile); err != nil {
		a.log.Error("failed to save session profile", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	a.log.Info("session created", slog.String("session_id", sessionID))
	writeJSON(w, http.StatusOK, createSessionResponse{
		Status:    "success",
		SessionID: sessionID,
	})
}

func (a *API) sessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	// Reject unknown sessions rather than answering with an empty list.
	if _, err := a.profiles.Profile(r.Context(), sessionID); err != nil {
		if errors.Is(err, history.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		a.log.Error("failed to load session profile", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	turns, err := a.store.RecentTurns(r.Context(), sessionID, a.historyLimit)
	if err != nil {
		a.log.Error("failed to load session history", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, turns)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
