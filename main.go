package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"binge-player/config"
	"binge-player/handlers"
	"binge-player/services"
	"binge-player/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Ensure data directory exists for the progress file
	if err := utils.EnsureDir(filepath.Dir(cfg.ProgressFile)); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize services
	progressService := services.NewProgressService(cfg.ProgressFile)
	episodeService := services.NewEpisodeService(cfg)
	sessionService := services.NewSessionService(cfg, episodeService, progressService)

	router := handlers.NewRouter(handlers.Handlers{
		Episodes: handlers.NewEpisodeHandler(episodeService),
		Progress: handlers.NewProgressHandler(progressService),
		Sessions: handlers.NewSessionHandler(sessionService),
	}, cfg.APIKey)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if timeout := cfg.SessionIdleTimeout(); timeout > 0 {
		go sessionService.RunReaper(ctx, timeout/2)
	}

	fmt.Printf("Starting server on port %s\n", cfg.Port)
	fmt.Printf("Seasons directory: %s\n", cfg.SeasonsDir)
	fmt.Printf("Subtitles directory: %s\n", cfg.SubtitlesDir)
	fmt.Printf("Progress file: %s\n", cfg.ProgressFile)
	fmt.Printf("API key required: %t\n", cfg.APIKey != "")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down, closing %d sessions", sessionService.Count())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
	sessionService.CloseAll(shutdownCtx)
}
