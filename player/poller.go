package player

import (
	"context"
	"fmt"
	"log"
	"time"

	"binge-player/models"
)

// DefaultPollInterval is the cadence used to sample the playback surface.
const DefaultPollInterval = 250 * time.Millisecond

// Poll samples the surface every interval and feeds the samples to Tick,
// until ctx is done or the session is closed. onSnapshot may be nil.
func (s *Session) Poll(ctx context.Context, interval time.Duration, onSnapshot func(Snapshot)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			clock, err := s.sample()
			if err != nil {
				log.Printf("Poll: Error sampling playback surface: %v", err)
				continue
			}
			snap := s.Tick(clock)
			if onSnapshot != nil && s.isAlive() {
				onSnapshot(snap)
			}
		}
	}
}

// sample reads one clock value, recovering from a panicking surface.
func (s *Session) sample() (clock models.PlaybackClock, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("surface panic: %v", r)
		}
	}()
	if s.surface == nil {
		return clock, fmt.Errorf("no playback surface")
	}
	return s.surface.Clock(), nil
}
