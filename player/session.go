// Package player composes the caption tracker, marker resolver and playback
// facade into one player session driven by playback-clock ticks.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"binge-player/captions"
	"binge-player/markers"
	"binge-player/models"
	"binge-player/playback"
)

// Store is the persisted key-value capability used for progress records.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Settings tunes a session. Zero values fall back to DefaultSettings.
type Settings struct {
	Markers            markers.Config
	SaveInterval       float64 // seconds of playback between progress saves
	TrackerThreshold   float64
	SeekDebounce       time.Duration
	SkipIntroDuration  float64
	ResumeMinPosition  float64
	ResumeEndMargin    float64
	CompletedThreshold float64 // percent watched at which an episode is done
}

// DefaultSettings returns the stock session settings.
func DefaultSettings() Settings {
	return Settings{
		Markers:            markers.DefaultConfig(),
		SaveInterval:       10,
		TrackerThreshold:   captions.DefaultThreshold,
		SeekDebounce:       playback.DefaultSeekDebounce,
		SkipIntroDuration:  playback.DefaultSkipIntroDuration,
		ResumeMinPosition:  5,
		ResumeEndMargin:    30,
		CompletedThreshold: 90,
	}
}

// Deps are the external collaborators of a session.
type Deps struct {
	Surface   playback.Surface
	Store     Store
	Navigator playback.Navigator
	// AfterFunc overrides the facade's timer source. Optional.
	AfterFunc playback.AfterFunc
}

// Snapshot is the output of one tick.
type Snapshot struct {
	Caption         string               `json:"caption"`
	CaptionsEnabled bool                 `json:"captionsEnabled"`
	Markers         models.TimingMarkers `json:"markers"`
	markers.Overlay
	Buffering bool `json:"buffering"`
	Stuck     bool `json:"stuck"`
}

// Session is one mounted player. All engine state belongs to it.
type Session struct {
	video    models.VideoData
	settings Settings
	store    Store
	surface  playback.Surface
	tracker  *captions.Tracker
	facade   *playback.Facade

	mu          sync.Mutex
	alive       bool
	done        chan struct{}
	resolver    *markers.Resolver
	countdown   markers.Countdown
	next        models.NextEpisodeContext
	markers     models.TimingMarkers
	captionLang string
	lastClock   models.PlaybackClock
	lastSaved   float64
	hasSaved    bool
}

// New creates a session for video.
func New(video models.VideoData, deps Deps, settings Settings) *Session {
	settings = withDefaults(settings)

	s := &Session{
		video:    video,
		settings: settings,
		store:    deps.Store,
		surface:  deps.Surface,
		alive:    true,
		done:     make(chan struct{}),
		resolver: markers.NewResolver(settings.Markers),
		tracker:  captions.NewTracker(captions.WithThreshold(settings.TrackerThreshold)),
	}

	opts := []playback.Option{
		playback.WithSeekDebounce(settings.SeekDebounce),
		playback.WithSkipIntroDuration(settings.SkipIntroDuration),
		playback.WithProgressSaver(s),
		playback.WithNavigator(deps.Navigator),
	}
	if deps.AfterFunc != nil {
		opts = append(opts, playback.WithAfterFunc(deps.AfterFunc))
	}
	s.facade = playback.NewFacade(deps.Surface, opts...)

	return s
}

func withDefaults(s Settings) Settings {
	d := DefaultSettings()
	if s.Markers == (markers.Config{}) {
		s.Markers = d.Markers
	}
	if s.SaveInterval <= 0 {
		s.SaveInterval = d.SaveInterval
	}
	if s.TrackerThreshold <= 0 {
		s.TrackerThreshold = d.TrackerThreshold
	}
	if s.SeekDebounce <= 0 {
		s.SeekDebounce = d.SeekDebounce
	}
	if s.SkipIntroDuration <= 0 {
		s.SkipIntroDuration = d.SkipIntroDuration
	}
	if s.ResumeMinPosition <= 0 {
		s.ResumeMinPosition = d.ResumeMinPosition
	}
	if s.ResumeEndMargin <= 0 {
		s.ResumeEndMargin = d.ResumeEndMargin
	}
	if s.CompletedThreshold <= 0 {
		s.CompletedThreshold = d.CompletedThreshold
	}
	return s
}

// Video returns the descriptor the session was created with.
func (s *Session) Video() models.VideoData {
	return s.video
}

// LoadCaptions parses raw caption text and swaps it in as the active track.
// It returns false, with captions disabled, when no cue is usable.
func (s *Session) LoadCaptions(lang, raw string) bool {
	if !s.isAlive() {
		return false
	}

	// built outside the lock; ticks keep using the previous index meanwhile
	idx := captions.Build(captions.Parse(raw))

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return false
	}

	s.tracker.SetIndex(idx)
	s.captionLang = lang
	if idx.Len() == 0 {
		log.Printf("LoadCaptions: No usable cues for %q, captions disabled", lang)
		return false
	}
	log.Printf("LoadCaptions: Loaded %d cues for %q", idx.Len(), lang)
	return true
}

// CaptionLanguage returns the language of the active caption track.
func (s *Session) CaptionLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captionLang
}

// SetCaptionsEnabled toggles caption rendering.
func (s *Session) SetCaptionsEnabled(enabled bool) {
	s.tracker.SetEnabled(enabled)
}

// SetNextEpisode records the next-episode lookup result. A failed lookup
// disables the countdown for the rest of the session.
func (s *Session) SetNextEpisode(next models.NextEpisodeContext, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return
	}
	if err != nil {
		log.Printf("SetNextEpisode: Next episode lookup failed, countdown disabled: %v", err)
		s.next = models.NextEpisodeContext{}
		return
	}
	s.next = next
}

// NextEpisode returns the resolved next-episode context.
func (s *Session) NextEpisode() models.NextEpisodeContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Tick processes one clock sample. All values in clock belong to the same
// sampling instant. Ticks before captions or duration are known are safe.
func (s *Session) Tick(clock models.PlaybackClock) Snapshot {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return Snapshot{}
	}

	s.lastClock = clock
	caption := s.tracker.OnTick(clock.CurrentTime)
	s.markers = s.resolver.Resolve(s.video.Timings, clock.Duration)
	overlay := markers.Evaluate(s.markers, clock, s.countdown.Allowed(s.next), s.settings.Markers)
	saveDue := s.saveDue(clock)

	snap := Snapshot{
		Caption:         caption,
		CaptionsEnabled: s.tracker.Enabled(),
		Markers:         s.markers,
		Overlay:         overlay,
	}
	s.mu.Unlock()

	if saveDue {
		if err := s.SaveProgress(context.Background()); err != nil {
			log.Printf("Tick: Error saving progress: %v", err)
		}
	}

	snap.Buffering = s.facade.Buffering()
	snap.Stuck = s.facade.Stuck()
	return snap
}

// saveDue reports whether enough playback has elapsed since the last save.
func (s *Session) saveDue(clock models.PlaybackClock) bool {
	if !clock.Playing || clock.Duration <= 0 || s.store == nil {
		return false
	}
	if !s.hasSaved {
		return clock.CurrentTime >= s.settings.SaveInterval
	}
	return math.Abs(clock.CurrentTime-s.lastSaved) >= s.settings.SaveInterval
}

// Markers returns the merged markers from the latest tick.
func (s *Session) Markers() models.TimingMarkers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers
}

// SaveProgress writes the latest sampled position to the store. A save
// started before Close still completes but no longer updates the session.
func (s *Session) SaveProgress(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	clock := s.lastClock
	s.mu.Unlock()

	if clock.Duration <= 0 {
		return nil
	}

	record := s.record(clock)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	key := models.ProgressKey(s.video.SourceID(), s.video.EpisodeNumber)
	if err := s.store.Set(key, string(data)); err != nil {
		return fmt.Errorf("save progress %s: %w", key, err)
	}

	s.mu.Lock()
	if s.alive {
		s.lastSaved = clock.CurrentTime
		s.hasSaved = true
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) record(clock models.PlaybackClock) models.ProgressRecord {
	percent := 0.0
	if clock.Duration > 0 {
		percent = math.Min(clock.CurrentTime/clock.Duration*100, 100)
	}
	return models.ProgressRecord{
		SourceID:      s.video.SourceID(),
		EpisodeID:     s.video.EpisodeID,
		EpisodeNumber: s.video.EpisodeNumber,
		Position:      clock.CurrentTime,
		Duration:      clock.Duration,
		Percent:       percent,
		Completed:     percent >= s.settings.CompletedThreshold,
		UpdatedAt:     time.Now().Unix(),
	}
}

// ResumePosition returns the saved position to resume from, if any.
func (s *Session) ResumePosition() (float64, bool) {
	if s.store == nil {
		return 0, false
	}
	key := models.ProgressKey(s.video.SourceID(), s.video.EpisodeNumber)
	value, ok, err := s.store.Get(key)
	if err != nil {
		log.Printf("ResumePosition: Error reading %s: %v", key, err)
		return 0, false
	}
	if !ok {
		return 0, false
	}

	var record models.ProgressRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		log.Printf("ResumePosition: Ignoring unreadable record %s: %v", key, err)
		return 0, false
	}
	if record.Completed || record.Position < s.settings.ResumeMinPosition {
		return 0, false
	}
	if record.Duration > 0 && record.Position > record.Duration-s.settings.ResumeEndMargin {
		return 0, false
	}
	return record.Position, true
}

// Resume seeks to the saved position when there is one.
func (s *Session) Resume() (float64, bool) {
	pos, ok := s.ResumePosition()
	if !ok {
		return 0, false
	}
	return pos, s.facade.Seek(pos)
}

// Seek requests a debounced seek.
func (s *Session) Seek(t float64) bool {
	return s.facade.Seek(t)
}

// PlayPause toggles playback.
func (s *Session) PlayPause() {
	s.facade.PlayPause()
}

// SetRate changes the playback speed.
func (s *Session) SetRate(rate float64) {
	s.facade.SetRate(rate)
}

// SkipIntro skips past the resolved intro.
func (s *Session) SkipIntro() bool {
	return s.facade.SkipIntro(s.Markers())
}

// SkipOutro skips past the resolved outro.
func (s *Session) SkipOutro() bool {
	return s.facade.SkipOutro(s.Markers())
}

// SkipToNext saves progress then navigates to the next episode. The
// countdown never shows again for this episode.
func (s *Session) SkipToNext(ctx context.Context) error {
	s.mu.Lock()
	s.countdown.Dismiss()
	next := s.next
	s.mu.Unlock()

	return s.facade.SkipToNext(ctx, next)
}

// DismissCountdown hides the next-episode countdown for this episode.
func (s *Session) DismissCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdown.Dismiss()
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close tears the session down and cancels pending timers.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	close(s.done)
	s.mu.Unlock()

	s.facade.Close()
}

func (s *Session) isAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}
