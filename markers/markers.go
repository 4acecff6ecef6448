// Package markers resolves intro/outro timing windows for an episode and
// derives the skip-button and next-episode countdown visibility from them.
//
// Auto-detection is a duration heuristic and only approximates real
// opening/ending positions.
package markers

import (
	"math"

	"binge-player/models"
)

// Config holds the heuristic constants used for auto-detection and the
// countdown trigger. All values are seconds.
type Config struct {
	IntroStart              float64 `yaml:"intro_start"`
	IntroEnd                float64 `yaml:"intro_end"`
	OutroStartOffset        float64 `yaml:"outro_start_offset"`
	OutroEndOffset          float64 `yaml:"outro_end_offset"`
	MinOutroLength          float64 `yaml:"min_outro_length"`
	CountdownBuffer         float64 `yaml:"countdown_buffer"`
	FallbackCountdownWindow float64 `yaml:"fallback_countdown_window"`
}

// DefaultConfig returns the stock heuristic constants.
func DefaultConfig() Config {
	return Config{
		IntroStart:              0,
		IntroEnd:                90,
		OutroStartOffset:        90,
		OutroEndOffset:          30,
		MinOutroLength:          20,
		CountdownBuffer:         10,
		FallbackCountdownWindow: 30,
	}
}

// Valid reports whether w is present and satisfies end > start >= 0.
func Valid(w *models.TimingWindow) bool {
	if w == nil {
		return false
	}
	if math.IsNaN(w.Start) || math.IsNaN(w.End) || math.IsInf(w.End, 0) {
		return false
	}
	return w.Start >= 0 && w.End > w.Start
}

// Complete reports whether both windows of m are valid.
func Complete(m *models.TimingMarkers) bool {
	return m != nil && Valid(m.Intro) && Valid(m.Outro)
}

// Merge picks, for intro and outro independently, the provided window when
// valid, else the auto-detected one when valid, else nothing. It does not
// modify its inputs.
func Merge(provided, auto models.TimingMarkers) models.TimingMarkers {
	return models.TimingMarkers{
		Intro: pick(provided.Intro, auto.Intro),
		Outro: pick(provided.Outro, auto.Outro),
	}
}

func pick(provided, auto *models.TimingWindow) *models.TimingWindow {
	switch {
	case Valid(provided):
		w := *provided
		return &w
	case Valid(auto):
		w := *auto
		return &w
	default:
		return nil
	}
}

// AutoDetect synthesizes intro/outro windows from the episode duration.
func AutoDetect(duration float64, cfg Config) models.TimingMarkers {
	var m models.TimingMarkers
	if math.IsNaN(duration) || duration <= 0 {
		return m
	}

	if duration > cfg.IntroEnd {
		intro := &models.TimingWindow{Start: cfg.IntroStart, End: cfg.IntroEnd}
		if Valid(intro) {
			m.Intro = intro
		}
	}

	outro := &models.TimingWindow{
		Start: duration - cfg.OutroStartOffset,
		End:   duration - cfg.OutroEndOffset,
	}
	if Valid(outro) && outro.Length() >= cfg.MinOutroLength {
		m.Outro = outro
	}

	return m
}
