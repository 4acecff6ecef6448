package markers

import (
	"testing"

	"binge-player/models"
)

func window(start, end float64) *models.TimingWindow {
	return &models.TimingWindow{Start: start, End: end}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		w    *models.TimingWindow
		want bool
	}{
		{name: "nil", w: nil, want: false},
		{name: "ok", w: window(0, 90), want: true},
		{name: "reversed", w: window(10, 5), want: false},
		{name: "empty", w: window(5, 5), want: false},
		{name: "negative start", w: window(-1, 5), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Valid(tc.w); got != tc.want {
				t.Fatalf("Valid(%v) = %v, want %v", tc.w, got, tc.want)
			}
		})
	}
}

func TestMergePrefersValidProvided(t *testing.T) {
	provided := models.TimingMarkers{Intro: window(10, 5), Outro: window(1300, 1380)}
	auto := models.TimingMarkers{Intro: window(0, 90), Outro: window(1350, 1410)}

	got := Merge(provided, auto)
	if got.Intro == nil || *got.Intro != *auto.Intro {
		t.Fatalf("intro = %v, want auto %v", got.Intro, auto.Intro)
	}
	if got.Outro == nil || *got.Outro != *provided.Outro {
		t.Fatalf("outro = %v, want provided %v", got.Outro, provided.Outro)
	}

	// inputs are untouched and results are copies
	got.Intro.Start = 42
	if auto.Intro.Start != 0 || provided.Intro.Start != 10 {
		t.Fatal("Merge must not alias or mutate its inputs")
	}
}

func TestMergeBothAbsent(t *testing.T) {
	got := Merge(models.TimingMarkers{}, models.TimingMarkers{Outro: window(3, 1)})
	if got.Intro != nil || got.Outro != nil {
		t.Fatalf("got %+v, want empty", got)
	}
}

func TestAutoDetect(t *testing.T) {
	cfg := DefaultConfig()

	got := AutoDetect(1440, cfg)
	if got.Intro == nil || *got.Intro != (models.TimingWindow{Start: 0, End: 90}) {
		t.Fatalf("intro = %v, want [0,90]", got.Intro)
	}
	if got.Outro == nil || *got.Outro != (models.TimingWindow{Start: 1350, End: 1410}) {
		t.Fatalf("outro = %v, want [1350,1410]", got.Outro)
	}

	short := AutoDetect(80, cfg)
	if short.Intro != nil {
		t.Fatalf("80s episode got intro %v", short.Intro)
	}
	if short.Outro != nil {
		t.Fatalf("80s episode got outro %v (start would be negative)", short.Outro)
	}

	cfg.MinOutroLength = 61
	if m := AutoDetect(1440, cfg); m.Outro != nil {
		t.Fatalf("outro shorter than minimum accepted: %v", m.Outro)
	}

	if m := AutoDetect(0, DefaultConfig()); m.Intro != nil || m.Outro != nil {
		t.Fatalf("unknown duration detected %+v", m)
	}
}

func TestResolverRejectsInvalidProvidedIntro(t *testing.T) {
	r := NewResolver(DefaultConfig())
	provided := &models.TimingMarkers{Intro: window(10, 5)}

	got := r.Resolve(provided, 1500)
	if got.Intro == nil || *got.Intro != (models.TimingWindow{Start: 0, End: 90}) {
		t.Fatalf("intro = %v, want auto-detected [0,90]", got.Intro)
	}
	if got.Outro == nil || *got.Outro != (models.TimingWindow{Start: 1410, End: 1470}) {
		t.Fatalf("outro = %v, want [1410,1470]", got.Outro)
	}
}

func TestResolverDetectsOnce(t *testing.T) {
	r := NewResolver(DefaultConfig())

	if got := r.Resolve(nil, 0); got.Intro != nil || got.Outro != nil || r.Attempted() {
		t.Fatalf("unknown duration should not attempt detection: %+v", got)
	}

	first := r.Resolve(nil, 1440)
	if !r.Attempted() {
		t.Fatal("expected detection attempted")
	}
	// a later call with another duration must not recompute
	second := r.Resolve(nil, 600)
	if *second.Outro != *first.Outro || *second.Intro != *first.Intro {
		t.Fatalf("second resolve = %+v, want frozen %+v", second, first)
	}
}

func TestResolverSkipsDetectionWhenProvidedComplete(t *testing.T) {
	r := NewResolver(DefaultConfig())
	provided := &models.TimingMarkers{Intro: window(5, 80), Outro: window(1300, 1390)}

	got := r.Resolve(provided, 1440)
	if a := r.AutoDetected(); a.Intro != nil || a.Outro != nil {
		t.Fatalf("auto-detection ran with complete provided markers: %+v", a)
	}
	if *got.Intro != *provided.Intro || *got.Outro != *provided.Outro {
		t.Fatalf("got %+v, want provided", got)
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	m := NewResolver(cfg).Resolve(nil, 1440)
	clock := models.PlaybackClock{CurrentTime: 1355, Duration: 1440, Playing: true}

	o := Evaluate(m, clock, true, cfg)
	if !o.ShowSkipOutro {
		t.Fatal("expected skip outro at 1355")
	}
	if !o.ShowNextEpisodeCountdown {
		t.Fatal("expected countdown at 1355")
	}
	if o.ShowSkipIntro {
		t.Fatal("unexpected skip intro at 1355")
	}
	if o.RemainingSeconds != 85 {
		t.Fatalf("remaining = %v, want 85", o.RemainingSeconds)
	}

	clock.CurrentTime = 30
	if o := Evaluate(m, clock, true, cfg); !o.ShowSkipIntro || o.ShowNextEpisodeCountdown {
		t.Fatalf("at 30s got %+v", o)
	}

	// countdown buffer keeps it visible past the outro end
	clock.CurrentTime = 1419
	if o := Evaluate(m, clock, true, cfg); o.ShowSkipOutro || !o.ShowNextEpisodeCountdown {
		t.Fatalf("at 1419s got %+v", o)
	}
	clock.CurrentTime = 1421
	if o := Evaluate(m, clock, true, cfg); o.ShowNextEpisodeCountdown {
		t.Fatalf("at 1421s got %+v", o)
	}
}

func TestEvaluateFallbackCountdownWithoutOutro(t *testing.T) {
	cfg := DefaultConfig()
	clock := models.PlaybackClock{Duration: 100}

	tests := []struct {
		now  float64
		want bool
	}{
		{now: 60, want: false},
		{now: 70, want: true},
		{now: 99.5, want: true},
		{now: 100, want: false},
	}
	for _, tc := range tests {
		clock.CurrentTime = tc.now
		o := Evaluate(models.TimingMarkers{}, clock, true, cfg)
		if o.ShowNextEpisodeCountdown != tc.want {
			t.Errorf("at %v countdown = %v, want %v", tc.now, o.ShowNextEpisodeCountdown, tc.want)
		}
	}
}

func TestCountdownOneShot(t *testing.T) {
	cfg := DefaultConfig()
	m := models.TimingMarkers{Outro: window(1350, 1410)}
	next := models.NextEpisodeContext{HasNext: true, NextEpisodeID: "ep-2"}
	var c Countdown

	clock := models.PlaybackClock{CurrentTime: 1360, Duration: 1440}
	if !Evaluate(m, clock, c.Allowed(next), cfg).ShowNextEpisodeCountdown {
		t.Fatal("expected countdown before dismissal")
	}

	c.Dismiss()
	for _, now := range []float64{1365, 1200, 1355} {
		clock.CurrentTime = now
		if Evaluate(m, clock, c.Allowed(next), cfg).ShowNextEpisodeCountdown {
			t.Fatalf("countdown re-triggered at %v after dismissal", now)
		}
	}

	var fresh Countdown
	if fresh.Allowed(models.NextEpisodeContext{}) {
		t.Fatal("countdown allowed without a next episode")
	}
}
