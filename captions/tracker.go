package captions

import (
	"math"
	"sync"
)

// DefaultThreshold is the minimum clock movement, in seconds, that triggers
// a new index query.
const DefaultThreshold = 0.05

// Tracker maps playback-time ticks to the active caption text. One Tracker
// belongs to one player session.
type Tracker struct {
	mu sync.Mutex

	index     Lookup
	enabled   bool
	threshold float64
	onChange  func(text string)

	lastQueried float64
	hasQueried  bool
	current     string
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithThreshold overrides the debounce threshold in seconds.
func WithThreshold(seconds float64) TrackerOption {
	return func(t *Tracker) {
		if seconds >= 0 {
			t.threshold = seconds
		}
	}
}

// WithOnChange registers a callback invoked when the displayed text changes.
func WithOnChange(fn func(text string)) TrackerOption {
	return func(t *Tracker) {
		t.onChange = fn
	}
}

// NewTracker creates an enabled tracker with no index loaded.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		enabled:   true,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetIndex swaps the active index. The next tick always re-queries.
func (t *Tracker) SetIndex(idx Lookup) {
	t.mu.Lock()
	t.index = idx
	t.hasQueried = false
	changed := t.setCurrent("")
	cb := t.onChange
	t.mu.Unlock()

	if changed && cb != nil {
		cb("")
	}
}

// SetEnabled turns caption rendering on or off.
func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.hasQueried = false
	changed := false
	if !enabled {
		changed = t.setCurrent("")
	}
	cb := t.onChange
	t.mu.Unlock()

	if changed && cb != nil {
		cb("")
	}
}

// Enabled reports whether captions are rendered and an index is loaded.
func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active()
}

// Current returns the text currently displayed.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// OnTick resolves the caption for a playback time. Ticks closer than the
// threshold to the last queried time reuse the cached text.
func (t *Tracker) OnTick(now float64) string {
	t.mu.Lock()

	if !t.active() || math.IsNaN(now) {
		t.mu.Unlock()
		return ""
	}

	if t.hasQueried && math.Abs(now-t.lastQueried) < t.threshold {
		text := t.current
		t.mu.Unlock()
		return text
	}

	text := t.index.Query(now)
	t.lastQueried = now
	t.hasQueried = true
	changed := t.setCurrent(text)
	cb := t.onChange
	t.mu.Unlock()

	if changed && cb != nil {
		cb(text)
	}
	return text
}

func (t *Tracker) active() bool {
	return t.enabled && t.index != nil && t.index.Len() > 0
}

func (t *Tracker) setCurrent(text string) bool {
	if text == t.current {
		return false
	}
	t.current = text
	return true
}
