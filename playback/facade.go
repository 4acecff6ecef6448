package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"

	"binge-player/models"
)

const (
	// DefaultSeekDebounce is the delay before a requested seek is issued.
	DefaultSeekDebounce = 200 * time.Millisecond
	// DefaultSkipIntroDuration is the jump used when no intro window exists.
	DefaultSkipIntroDuration = 85.0
	// outroSkipMargin is the fallback jump used by SkipOutro.
	outroSkipMargin = 30.0
	// stuckThreshold is the number of consecutive failures reported as stuck.
	stuckThreshold = 3
)

// ErrNoNextEpisode is returned by SkipToNext when there is nothing to play.
var ErrNoNextEpisode = errors.New("no next episode")

// Facade issues commands to a Surface. Surface failures are logged and
// swallowed, and the buffering and seeking flags are always reset.
type Facade struct {
	surface           Surface
	saver             ProgressSaver
	navigator         Navigator
	afterFunc         AfterFunc
	debounce          time.Duration
	skipIntroDuration float64

	mu        sync.Mutex
	closed    bool
	pending   Timer
	seq       uint64
	seeking   bool
	buffering bool
	failures  int
}

// Option configures a Facade.
type Option func(*Facade)

// WithSeekDebounce overrides the seek debounce delay.
func WithSeekDebounce(d time.Duration) Option {
	return func(f *Facade) {
		if d >= 0 {
			f.debounce = d
		}
	}
}

// WithSkipIntroDuration overrides the fallback intro skip length.
func WithSkipIntroDuration(seconds float64) Option {
	return func(f *Facade) {
		if seconds > 0 {
			f.skipIntroDuration = seconds
		}
	}
}

// WithProgressSaver sets the collaborator used before navigating away.
func WithProgressSaver(s ProgressSaver) Option {
	return func(f *Facade) { f.saver = s }
}

// WithNavigator sets the collaborator that switches episodes.
func WithNavigator(n Navigator) Option {
	return func(f *Facade) { f.navigator = n }
}

// WithAfterFunc replaces the timer source used for the seek debounce.
func WithAfterFunc(fn AfterFunc) Option {
	return func(f *Facade) {
		if fn != nil {
			f.afterFunc = fn
		}
	}
}

// NewFacade creates a facade over surface.
func NewFacade(surface Surface, opts ...Option) *Facade {
	f := &Facade{
		surface:           surface,
		afterFunc:         realAfterFunc,
		debounce:          DefaultSeekDebounce,
		skipIntroDuration: DefaultSkipIntroDuration,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Seek schedules a seek to t after the debounce delay. A newer request
// replaces a pending one; requests made while a seek is executing are
// dropped. It reports whether the request was accepted.
func (f *Facade) Seek(t float64) bool {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		log.Printf("Seek: ignoring invalid target %v", t)
		return false
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	if f.seeking {
		f.mu.Unlock()
		log.Printf("Seek: seek in flight, dropping request to %.2f", t)
		return false
	}
	if f.pending != nil {
		f.pending.Stop()
		f.pending = nil
	}
	f.seq++
	seq := f.seq
	f.buffering = true
	f.mu.Unlock()

	// scheduled without the lock held; the timer source may run fn inline
	timer := f.afterFunc(f.debounce, func() { f.runSeek(seq, t) })

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		timer.Stop()
		return false
	}
	if seq == f.seq && f.buffering {
		f.pending = timer
	}
	return true
}

// runSeek executes a debounced seek. It runs on the timer's goroutine.
func (f *Facade) runSeek(seq uint64, t float64) {
	f.mu.Lock()
	// a replaced request whose timer fired before Stop took effect
	if f.closed || f.seeking || seq != f.seq {
		f.mu.Unlock()
		return
	}
	f.pending = nil
	f.seeking = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.seeking = false
		f.buffering = false
		f.mu.Unlock()
	}()

	var target float64
	err := f.guard("Seek", func() error {
		target = t
		if clock := f.surface.Clock(); clock.Duration > 0 {
			target = lo.Clamp(t, 0, clock.Duration)
		} else if target < 0 {
			target = 0
		}
		return f.surface.Seek(target)
	})
	f.record(err)
	if err == nil {
		log.Printf("Seek: moved to %.2f", target)
	}
}

// PlayPause toggles playback using the surface's reported state.
func (f *Facade) PlayPause() {
	if f.isClosed() {
		return
	}
	err := f.guard("PlayPause", func() error {
		if f.surface.Clock().Playing {
			return f.surface.Pause()
		}
		return f.surface.Play()
	})
	f.record(err)
}

// SetRate changes the playback speed.
func (f *Facade) SetRate(rate float64) {
	if f.isClosed() {
		return
	}
	if rate <= 0 || math.IsNaN(rate) {
		log.Printf("SetRate: ignoring invalid rate %v", rate)
		return
	}
	f.record(f.guard("SetRate", func() error {
		return f.surface.SetRate(rate)
	}))
}

// SkipIntro seeks to the end of the intro window, or jumps ahead by the
// configured intro length when no window is resolved.
func (f *Facade) SkipIntro(m models.TimingMarkers) bool {
	if m.Intro != nil {
		return f.Seek(m.Intro.End)
	}
	clock, ok := f.clock()
	if !ok {
		return false
	}
	return f.Seek(clock.CurrentTime + f.skipIntroDuration)
}

// SkipOutro seeks to the end of the outro window, or near the end of the
// episode when no window is resolved.
func (f *Facade) SkipOutro(m models.TimingMarkers) bool {
	if m.Outro != nil {
		return f.Seek(m.Outro.End)
	}
	clock, ok := f.clock()
	if !ok {
		return false
	}
	return f.Seek(max(clock.Duration-outroSkipMargin, clock.CurrentTime+outroSkipMargin))
}

// SkipToNext saves progress and only then navigates to the next episode.
// A failed save is logged and does not block navigation.
func (f *Facade) SkipToNext(ctx context.Context, next models.NextEpisodeContext) error {
	if !next.HasNext {
		return ErrNoNextEpisode
	}
	if f.isClosed() {
		return fmt.Errorf("skip to next: player closed")
	}

	if f.saver != nil {
		if err := f.saver.SaveProgress(ctx); err != nil {
			log.Printf("SkipToNext: Error saving progress before navigation: %v", err)
		}
	}

	if f.navigator == nil {
		return fmt.Errorf("skip to next: no navigator configured")
	}
	if err := f.navigator.Navigate(ctx, next); err != nil {
		return fmt.Errorf("skip to next: navigate to %s: %w", next.NextEpisodeID, err)
	}
	log.Printf("SkipToNext: Navigated to episode %s", next.NextEpisodeID)
	return nil
}

// Buffering reports whether a seek is pending or executing.
func (f *Facade) Buffering() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffering
}

// Seeking reports whether the underlying seek is executing.
func (f *Facade) Seeking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seeking
}

// Stuck reports repeated consecutive surface failures.
func (f *Facade) Stuck() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures >= stuckThreshold
}

// Close cancels the pending seek. Late timer callbacks become no-ops.
func (f *Facade) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	if f.pending != nil {
		f.pending.Stop()
		f.pending = nil
	}
	f.buffering = false
}

func (f *Facade) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Facade) clock() (models.PlaybackClock, bool) {
	var clock models.PlaybackClock
	err := f.guard("Clock", func() error {
		clock = f.surface.Clock()
		return nil
	})
	return clock, err == nil
}

// guard runs fn, converting a panic from the surface into an error.
func (f *Facade) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: surface panic: %v", op, r)
		}
		if err != nil {
			log.Printf("%s: Error from playback surface: %v", op, err)
		}
	}()
	return fn()
}

func (f *Facade) record(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.failures++
		if f.failures == stuckThreshold {
			log.Printf("Facade: %d consecutive surface failures, reporting stuck", f.failures)
		}
		return
	}
	f.failures = 0
}
