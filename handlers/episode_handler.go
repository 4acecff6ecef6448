package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"binge-player/services"
)

// EpisodeHandler handles show and episode related requests
type EpisodeHandler struct {
	episodeService *services.EpisodeService
}

// NewEpisodeHandler creates a new episode handler
func NewEpisodeHandler(episodeService *services.EpisodeService) *EpisodeHandler {
	return &EpisodeHandler{
		episodeService: episodeService,
	}
}

// GetShowInfo handles GET /api/show/info
func (h *EpisodeHandler) GetShowInfo(w http.ResponseWriter, r *http.Request) {
	showInfo, err := h.episodeService.GetShowInfo()
	if err != nil {
		log.Printf("GetShowInfo: Error getting episodes: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Convert relative URLs to full URLs
	base := baseURL(r)
	for i := range showInfo.Episodes {
		showInfo.Episodes[i].VideoURL = absoluteURL(base, showInfo.Episodes[i].VideoURL)
		showInfo.Episodes[i].SubtitleURL = absoluteURL(base, showInfo.Episodes[i].SubtitleURL)
	}

	log.Printf("GetShowInfo: Returning %d episodes", len(showInfo.Episodes))
	writeJSON(w, http.StatusOK, showInfo)
}

// ServeEpisodeSubtitle handles GET /api/episode/{id}/subtitle
func (h *EpisodeHandler) ServeEpisodeSubtitle(w http.ResponseWriter, r *http.Request) {
	episodeID := mux.Vars(r)["id"]

	subtitlePath, err := h.episodeService.GetEpisodeSubtitlePath(episodeID)
	if err != nil {
		log.Printf("ServeEpisodeSubtitle: Error getting subtitle path for %s: %v", episodeID, err)
		http.Error(w, "Subtitle not found", http.StatusNotFound)
		return
	}

	// Determine content type based on file extension
	contentType := "text/plain; charset=utf-8"
	if strings.HasSuffix(subtitlePath, ".vtt") {
		contentType = "text/vtt; charset=utf-8"
	} else if strings.HasSuffix(subtitlePath, ".srt") {
		contentType = "application/x-subrip"
	}

	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, subtitlePath)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func absoluteURL(base, u string) string {
	if strings.HasPrefix(u, "/") {
		return base + u
	}
	return u
}
