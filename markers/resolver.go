package markers

import (
	"log"
	"math"

	"binge-player/models"
)

// Resolver owns the auto-detected markers of one episode load. Detection
// runs at most once, after the duration is first known, and its result is
// frozen for the rest of the load.
type Resolver struct {
	cfg       Config
	attempted bool
	auto      models.TimingMarkers
}

// NewResolver creates a resolver using cfg for auto-detection.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Attempted reports whether auto-detection has already run.
func (r *Resolver) Attempted() bool {
	return r.attempted
}

// AutoDetected returns the frozen auto-detected markers.
func (r *Resolver) AutoDetected() models.TimingMarkers {
	return r.auto
}

// Resolve returns the merged marker set for the episode. When provided is
// absent or incomplete and the duration is known, auto-detection runs once.
func (r *Resolver) Resolve(provided *models.TimingMarkers, duration float64) models.TimingMarkers {
	var p models.TimingMarkers
	if provided != nil {
		p = *provided
	}

	if !r.attempted && duration > 0 && !math.IsNaN(duration) {
		r.attempted = true
		warnInvalid("intro", p.Intro)
		warnInvalid("outro", p.Outro)

		if !Complete(provided) {
			r.auto = AutoDetect(duration, r.cfg)
			log.Printf("Resolve: auto-detected markers for duration %.1f - intro: %s, outro: %s",
				duration, describe(r.auto.Intro), describe(r.auto.Outro))
		}
	}

	return Merge(p, r.auto)
}

// warnInvalid logs a provided window that will be ignored.
func warnInvalid(kind string, w *models.TimingWindow) {
	if w != nil && !Valid(w) {
		log.Printf("Resolve: warning: provided %s window %s is invalid, using auto-detection", kind, w)
	}
}

func describe(w *models.TimingWindow) string {
	if w == nil {
		return "none"
	}
	return w.String()
}
