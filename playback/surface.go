// Package playback wraps the external playback surface with guarded,
// debounced commands.
package playback

import (
	"context"
	"time"

	"binge-player/models"
)

// Surface is the external video element the engine drives. Clock returns
// one atomic sample of its state.
type Surface interface {
	Clock() models.PlaybackClock
	Play() error
	Pause() error
	Seek(t float64) error
	SetRate(rate float64) error
}

// ProgressSaver persists the current playback position.
type ProgressSaver interface {
	SaveProgress(ctx context.Context) error
}

// Navigator switches the player to another episode.
type Navigator interface {
	Navigate(ctx context.Context, next models.NextEpisodeContext) error
}

// Timer is a pending scheduled call that can be canceled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// realAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
