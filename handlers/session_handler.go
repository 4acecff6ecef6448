package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"binge-player/models"
	"binge-player/services"
)

// maxCaptionBody caps request bodies that carry caption text.
const maxCaptionBody = 8 << 20

// SessionHandler handles player session requests
type SessionHandler struct {
	sessionService *services.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// CreateSession handles POST /api/session
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var request models.CreateSessionRequest
	if !decodeBody(w, r, &request) {
		return
	}

	resp, err := h.sessionService.Create(r.Context(), request)
	if err != nil {
		writeServiceError(w, "CreateSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Tick handles POST /api/session/{id}/tick
func (h *SessionHandler) Tick(w http.ResponseWriter, r *http.Request) {
	var clock models.PlaybackClock
	if !decodeBody(w, r, &clock) {
		return
	}

	resp, err := h.sessionService.Tick(mux.Vars(r)["id"], clock)
	if err != nil {
		writeServiceError(w, "Tick", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// LoadCaptions handles POST /api/session/{id}/captions
func (h *SessionHandler) LoadCaptions(w http.ResponseWriter, r *http.Request) {
	var request models.CaptionsRequest
	if !decodeBody(w, r, &request) {
		return
	}

	loaded, err := h.sessionService.LoadCaptions(mux.Vars(r)["id"], request)
	if err != nil {
		writeServiceError(w, "LoadCaptions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"captionsLoaded": loaded})
}

// Command handles POST /api/session/{id}/command
func (h *SessionHandler) Command(w http.ResponseWriter, r *http.Request) {
	var request models.CommandRequest
	if !decodeBody(w, r, &request) {
		return
	}

	resp, err := h.sessionService.Command(r.Context(), mux.Vars(r)["id"], request)
	if err != nil {
		writeServiceError(w, "Command", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CloseSession handles DELETE /api/session/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionService.Close(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, "CloseSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxCaptionBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("decodeBody: Error decoding JSON for %s: %v", r.URL.Path, err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrUnknownAction), errors.Is(err, services.ErrInvalidVideo):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("%s: %v", op, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: Error encoding response: %v", err)
	}
}
