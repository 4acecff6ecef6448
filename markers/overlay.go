package markers

import (
	"binge-player/models"
)

// Overlay is the per-tick visibility state of the player controls.
type Overlay struct {
	ShowSkipIntro            bool    `json:"showSkipIntro"`
	ShowSkipOutro            bool    `json:"showSkipOutro"`
	ShowNextEpisodeCountdown bool    `json:"showNextEpisodeCountdown"`
	RemainingSeconds         float64 `json:"remainingSecondsForCountdown"`
}

// Evaluate computes the overlay for one clock sample. countdownAllowed is
// false when there is no next episode or the countdown was dismissed.
func Evaluate(m models.TimingMarkers, clock models.PlaybackClock, countdownAllowed bool, cfg Config) Overlay {
	now := clock.CurrentTime

	o := Overlay{
		ShowSkipIntro:    m.Intro != nil && m.Intro.Contains(now),
		ShowSkipOutro:    m.Outro != nil && m.Outro.Contains(now),
		RemainingSeconds: max(clock.Remaining(), 0),
	}

	if countdownAllowed && clock.Duration > 0 {
		o.ShowNextEpisodeCountdown = countdownTriggered(m.Outro, clock, cfg)
	}
	return o
}

func countdownTriggered(outro *models.TimingWindow, clock models.PlaybackClock, cfg Config) bool {
	if outro != nil {
		return clock.CurrentTime >= outro.Start && clock.CurrentTime <= outro.End+cfg.CountdownBuffer
	}
	remaining := clock.Remaining()
	return remaining > 0 && remaining <= cfg.FallbackCountdownWindow
}

// Countdown tracks the one-way dismissal of the next-episode countdown.
type Countdown struct {
	dismissed bool
}

// Dismiss stops the countdown from triggering again for this episode.
func (c *Countdown) Dismiss() {
	c.dismissed = true
}

// Dismissed reports whether Dismiss was called.
func (c *Countdown) Dismissed() bool {
	return c.dismissed
}

// Allowed reports whether the countdown may show given the next-episode
// context.
func (c *Countdown) Allowed(next models.NextEpisodeContext) bool {
	return next.HasNext && !c.dismissed
}
