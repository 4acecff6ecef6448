package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"binge-player/markers"
	"binge-player/player"
)

// Config holds the application configuration
type Config struct {
	Port                string `yaml:"port"`
	MediaDir            string `yaml:"media_dir"`
	SeasonsDir          string `yaml:"seasons_dir"`
	SubtitlesDir        string `yaml:"subtitles_dir"`
	ProgressFile        string `yaml:"progress_file"`
	APIKey              string `yaml:"api_key"`
	SubtitleFilePattern string `yaml:"subtitle_file_pattern"`
	Engine              Engine `yaml:"engine"`
}

// Engine holds the playback engine tunables.
type Engine struct {
	SeekDebounceMs      int            `yaml:"seek_debounce_ms"`
	CaptionThresholdMs  int            `yaml:"caption_threshold_ms"`
	PollIntervalMs      int            `yaml:"poll_interval_ms"`
	SaveIntervalSeconds float64        `yaml:"save_interval_seconds"`
	SkipIntroSeconds    float64        `yaml:"skip_intro_seconds"`
	ResumeMinSeconds    float64        `yaml:"resume_min_seconds"`
	ResumeEndMargin     float64        `yaml:"resume_end_margin_seconds"`
	CompletedPercent    float64        `yaml:"completed_percent"`
	IdleTimeoutSeconds  int            `yaml:"session_idle_timeout_seconds"`
	Markers             markers.Config `yaml:"markers"`
}

// LoadConfig loads the configuration from environment variables, with an
// optional .env file and YAML file (CONFIG_FILE) underneath them.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err == nil {
		log.Printf("LoadConfig: Loaded environment from .env")
	}

	mediaDir := getEnv("MEDIA_DIR", "./media")
	cfg := &Config{
		Port:                "8080",
		MediaDir:            mediaDir,
		SeasonsDir:          filepath.Join(mediaDir, "seasons"),
		SubtitlesDir:        filepath.Join(mediaDir, "subtitles"),
		ProgressFile:        "./data/progress.json",
		SubtitleFilePattern: "*.srt,*.vtt",
		Engine:              defaultEngine(),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.SeasonsDir = getEnv("SEASONS_DIR", cfg.SeasonsDir)
	cfg.SubtitlesDir = getEnv("SUBTITLES_DIR", cfg.SubtitlesDir)
	cfg.ProgressFile = getEnv("PROGRESS_FILE", cfg.ProgressFile)
	cfg.APIKey = getEnv("API_KEY", cfg.APIKey)
	cfg.SubtitleFilePattern = getEnv("SUBTITLE_FILE_PATTERN", cfg.SubtitleFilePattern)

	cfg.Engine.SeekDebounceMs = getEnvInt("SEEK_DEBOUNCE_MS", cfg.Engine.SeekDebounceMs)
	cfg.Engine.CaptionThresholdMs = getEnvInt("CAPTION_THRESHOLD_MS", cfg.Engine.CaptionThresholdMs)
	cfg.Engine.PollIntervalMs = getEnvInt("POLL_INTERVAL_MS", cfg.Engine.PollIntervalMs)
	cfg.Engine.SaveIntervalSeconds = getEnvFloat("SAVE_INTERVAL_SECONDS", cfg.Engine.SaveIntervalSeconds)
	cfg.Engine.SkipIntroSeconds = getEnvFloat("SKIP_INTRO_SECONDS", cfg.Engine.SkipIntroSeconds)
	cfg.Engine.ResumeMinSeconds = getEnvFloat("RESUME_MIN_SECONDS", cfg.Engine.ResumeMinSeconds)
	cfg.Engine.ResumeEndMargin = getEnvFloat("RESUME_END_MARGIN_SECONDS", cfg.Engine.ResumeEndMargin)
	cfg.Engine.CompletedPercent = getEnvFloat("COMPLETED_PERCENT", cfg.Engine.CompletedPercent)
	cfg.Engine.IdleTimeoutSeconds = getEnvInt("SESSION_IDLE_TIMEOUT_SECONDS", cfg.Engine.IdleTimeoutSeconds)
	cfg.Engine.Markers.CountdownBuffer = getEnvFloat("COUNTDOWN_BUFFER_SECONDS", cfg.Engine.Markers.CountdownBuffer)
	cfg.Engine.Markers.FallbackCountdownWindow = getEnvFloat("FALLBACK_COUNTDOWN_SECONDS", cfg.Engine.Markers.FallbackCountdownWindow)

	return cfg, nil
}

func defaultEngine() Engine {
	d := player.DefaultSettings()
	return Engine{
		SeekDebounceMs:      int(d.SeekDebounce / time.Millisecond),
		CaptionThresholdMs:  int(math.Round(d.TrackerThreshold * 1000)),
		PollIntervalMs:      int(player.DefaultPollInterval / time.Millisecond),
		SaveIntervalSeconds: d.SaveInterval,
		SkipIntroSeconds:    d.SkipIntroDuration,
		ResumeMinSeconds:    d.ResumeMinPosition,
		ResumeEndMargin:     d.ResumeEndMargin,
		CompletedPercent:    d.CompletedThreshold,
		IdleTimeoutSeconds:  600,
		Markers:             d.Markers,
	}
}

// loadYAML overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	log.Printf("LoadConfig: Loaded config file %s", path)
	return nil
}

// SessionSettings converts the engine tunables into player settings.
func (c *Config) SessionSettings() player.Settings {
	e := c.Engine
	return player.Settings{
		Markers:            e.Markers,
		SaveInterval:       e.SaveIntervalSeconds,
		TrackerThreshold:   float64(e.CaptionThresholdMs) / 1000,
		SeekDebounce:       time.Duration(e.SeekDebounceMs) * time.Millisecond,
		SkipIntroDuration:  e.SkipIntroSeconds,
		ResumeMinPosition:  e.ResumeMinSeconds,
		ResumeEndMargin:    e.ResumeEndMargin,
		CompletedThreshold: e.CompletedPercent,
	}
}

// PollInterval is the cadence remote clients are told to tick at.
func (c *Config) PollInterval() time.Duration {
	if c.Engine.PollIntervalMs <= 0 {
		return player.DefaultPollInterval
	}
	return time.Duration(c.Engine.PollIntervalMs) * time.Millisecond
}

// SessionIdleTimeout is how long a session may go without ticks before it
// is reaped.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Engine.IdleTimeoutSeconds) * time.Second
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("LoadConfig: Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("LoadConfig: Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return f
}
