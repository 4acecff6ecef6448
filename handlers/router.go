package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Handlers groups the route handlers served by the API.
type Handlers struct {
	Episodes *EpisodeHandler
	Progress *ProgressHandler
	Sessions *SessionHandler
}

// NewRouter builds the API router. When apiKey is non-empty every route
// requires a matching bearer token.
func NewRouter(h Handlers, apiKey string) http.Handler {
	r := mux.NewRouter()

	r.Use(createLoggingMiddleware())
	if apiKey != "" {
		r.Use(createAPIKeyMiddleware(apiKey))
	}

	// Show and episode routes
	r.HandleFunc("/api/show/info", h.Episodes.GetShowInfo).Methods("GET")
	r.HandleFunc("/api/episode/{id}/subtitle", h.Episodes.ServeEpisodeSubtitle).Methods("GET")

	// Player session routes
	r.HandleFunc("/api/session", h.Sessions.CreateSession).Methods("POST")
	r.HandleFunc("/api/session/{id}/tick", h.Sessions.Tick).Methods("POST")
	r.HandleFunc("/api/session/{id}/captions", h.Sessions.LoadCaptions).Methods("POST")
	r.HandleFunc("/api/session/{id}/command", h.Sessions.Command).Methods("POST")
	r.HandleFunc("/api/session/{id}", h.Sessions.CloseSession).Methods("DELETE")

	// Progress routes
	r.HandleFunc("/api/progress/{key}", h.Progress.GetProgress).Methods("GET")
	r.HandleFunc("/api/progress/{key}", h.Progress.PutProgress).Methods("PUT")

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return corsHandler.Handler(r)
}

// createAPIKeyMiddleware creates middleware for API key authentication
func createAPIKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}
			apiKey, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			if apiKey != expectedKey {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// createLoggingMiddleware creates middleware for logging requests. Tick
// traffic is frequent, so only failed ticks are logged.
func createLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			quiet := strings.HasSuffix(r.URL.Path, "/tick")
			if !quiet {
				log.Printf("REQUEST: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if quiet && wrapped.statusCode < http.StatusBadRequest {
				return
			}
			log.Printf("RESPONSE: %s %s - Status: %d - Duration: %v", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
