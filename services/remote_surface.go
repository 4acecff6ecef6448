package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"binge-player/models"
)

// ErrSurfaceClosed is returned by a closed RemoteSurface.
var ErrSurfaceClosed = errors.New("remote surface closed")

// maxQueuedCommands bounds the queue for a client that stopped polling.
const maxQueuedCommands = 32

// RemoteSurface is a playback surface for a client that polls the server.
// It mirrors the last clock the client reported and queues commands that
// the client picks up with its next tick.
type RemoteSurface struct {
	mu       sync.Mutex
	clock    models.PlaybackClock
	rate     float64
	commands []models.Command
	closed   bool
}

// NewRemoteSurface creates an empty remote surface.
func NewRemoteSurface() *RemoteSurface {
	return &RemoteSurface{rate: 1}
}

// Update records the clock reported by the client.
func (r *RemoteSurface) Update(clock models.PlaybackClock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

// Drain returns and clears the queued commands.
func (r *RemoteSurface) Drain() []models.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	commands := r.commands
	r.commands = nil
	return commands
}

// Rate returns the last requested playback rate.
func (r *RemoteSurface) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

func (r *RemoteSurface) Clock() models.PlaybackClock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock
}

func (r *RemoteSurface) Play() error {
	return r.push(models.Command{Type: models.CommandPlay}, func() { r.clock.Playing = true })
}

func (r *RemoteSurface) Pause() error {
	return r.push(models.Command{Type: models.CommandPause}, func() { r.clock.Playing = false })
}

func (r *RemoteSurface) Seek(t float64) error {
	return r.push(models.Command{Type: models.CommandSeek, Value: t}, func() { r.clock.CurrentTime = t })
}

func (r *RemoteSurface) SetRate(rate float64) error {
	return r.push(models.Command{Type: models.CommandRate, Value: rate}, func() { r.rate = rate })
}

// Navigate asks the client to load the next episode.
func (r *RemoteSurface) Navigate(ctx context.Context, next models.NextEpisodeContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.push(models.Command{Type: models.CommandNavigate, EpisodeID: next.NextEpisodeID}, nil)
}

// Close rejects further commands.
func (r *RemoteSurface) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.commands = nil
}

// push queues cmd and applies the optimistic mirror update until the
// client reports its own clock.
func (r *RemoteSurface) push(cmd models.Command, apply func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSurfaceClosed
	}
	if len(r.commands) >= maxQueuedCommands {
		log.Printf("RemoteSurface: Queue full, dropping oldest %s command", r.commands[0].Type)
		r.commands = r.commands[1:]
	}
	r.commands = append(r.commands, cmd)
	if apply != nil {
		apply()
	}
	return nil
}
