package services

import (
	"context"
	"errors"
	"testing"

	"binge-player/models"
)

func TestRemoteSurfaceQueuesAndMirrors(t *testing.T) {
	r := NewRemoteSurface()
	r.Update(models.PlaybackClock{CurrentTime: 10, Duration: 100, Playing: true})

	if err := r.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := r.Seek(42); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if err := r.SetRate(1.5); err != nil {
		t.Fatalf("SetRate() error = %v", err)
	}

	clock := r.Clock()
	if clock.Playing || clock.CurrentTime != 42 || clock.Duration != 100 {
		t.Fatalf("mirrored clock = %+v", clock)
	}
	if r.Rate() != 1.5 {
		t.Fatalf("Rate() = %v", r.Rate())
	}

	got := r.Drain()
	want := []models.Command{
		{Type: models.CommandPause},
		{Type: models.CommandSeek, Value: 42},
		{Type: models.CommandRate, Value: 1.5},
	}
	if len(got) != len(want) {
		t.Fatalf("Drain() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Drain()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if again := r.Drain(); len(again) != 0 {
		t.Fatalf("second Drain() = %+v, want empty", again)
	}

	// the client's next report wins over the optimistic mirror
	r.Update(models.PlaybackClock{CurrentTime: 41.8, Duration: 100})
	if r.Clock().CurrentTime != 41.8 {
		t.Fatalf("clock not replaced by report: %+v", r.Clock())
	}
}

func TestRemoteSurfaceNavigate(t *testing.T) {
	r := NewRemoteSurface()
	if err := r.Navigate(context.Background(), models.NextEpisodeContext{HasNext: true, NextEpisodeID: "Show_S01E02"}); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	got := r.Drain()
	if len(got) != 1 || got[0].Type != models.CommandNavigate || got[0].EpisodeID != "Show_S01E02" {
		t.Fatalf("Drain() = %+v", got)
	}
}

func TestRemoteSurfaceBoundedQueue(t *testing.T) {
	r := NewRemoteSurface()
	for i := 0; i < maxQueuedCommands+5; i++ {
		if err := r.Seek(float64(i)); err != nil {
			t.Fatalf("Seek() error = %v", err)
		}
	}
	got := r.Drain()
	if len(got) != maxQueuedCommands {
		t.Fatalf("queued %d commands, want %d", len(got), maxQueuedCommands)
	}
	if got[0].Value != 5 || got[len(got)-1].Value != float64(maxQueuedCommands+4) {
		t.Fatalf("kept %v..%v, want newest commands", got[0].Value, got[len(got)-1].Value)
	}
}

func TestRemoteSurfaceClosed(t *testing.T) {
	r := NewRemoteSurface()
	r.Seek(3)
	r.Close()

	if err := r.Play(); !errors.Is(err, ErrSurfaceClosed) {
		t.Fatalf("Play() error = %v, want ErrSurfaceClosed", err)
	}
	if got := r.Drain(); len(got) != 0 {
		t.Fatalf("Drain() after close = %+v", got)
	}
}
