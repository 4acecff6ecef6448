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

// ProgressHandler handles saved watch progress requests
type ProgressHandler struct {
	progressService *services.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
	}
}

// GetProgress handles GET /api/progress/{key}
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	record, ok, err := h.progressService.GetRecord(key)
	switch {
	case errors.Is(err, services.ErrInvalidKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		log.Printf("GetProgress: Error reading %s: %v", key, err)
		http.Error(w, "Failed to read progress", http.StatusInternalServerError)
		return
	case !ok:
		http.Error(w, "No progress saved", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// PutProgress handles PUT /api/progress/{key}
func (h *ProgressHandler) PutProgress(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var record models.ProgressRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		log.Printf("PutProgress: Error decoding JSON: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if models.ProgressKey(record.SourceID, record.EpisodeNumber) != key {
		http.Error(w, "Record does not match key", http.StatusBadRequest)
		return
	}

	if _, err := h.progressService.PutRecord(record); err != nil {
		if errors.Is(err, services.ErrInvalidKey) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("PutProgress: Error saving %s: %v", key, err)
		http.Error(w, "Failed to save progress", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
