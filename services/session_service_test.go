package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"binge-player/models"
	"binge-player/playback"
)

type inlineTimer struct{}

func (inlineTimer) Stop() bool { return false }

// runInline executes debounced work immediately.
func runInline(_ time.Duration, fn func()) playback.Timer {
	fn()
	return inlineTimer{}
}

func newTestSessionService(t *testing.T) (*SessionService, *ProgressService) {
	t.Helper()
	cfg := newTestConfig(t)
	progress := NewProgressService(cfg.ProgressFile)
	s := NewSessionService(cfg, NewEpisodeService(cfg), progress)
	s.afterFunc = runInline
	t.Cleanup(func() { s.CloseAll(context.Background()) })
	return s, progress
}

func createPilot(t *testing.T, s *SessionService) *models.CreateSessionResponse {
	t.Helper()
	resp, err := s.Create(context.Background(), models.CreateSessionRequest{
		Video: models.VideoData{Source: "/media/s01e01.mp4", EpisodeID: "Show_S01E01"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return resp
}

func TestSessionServiceCreateUsesLocalData(t *testing.T) {
	s, _ := newTestSessionService(t)
	resp := createPilot(t, s)

	if resp.SessionID == "" || !resp.CaptionsLoaded {
		t.Fatalf("response = %+v", resp)
	}
	if !resp.NextEpisode.HasNext || resp.NextEpisode.NextEpisodeID != "Show_S01E02" {
		t.Fatalf("next = %+v", resp.NextEpisode)
	}
	if resp.CanResume {
		t.Fatal("fresh episode should not offer resume")
	}
	if resp.PollIntervalMs != 250 {
		t.Fatalf("poll interval = %d", resp.PollIntervalMs)
	}

	tick, err := s.Tick(resp.SessionID, models.PlaybackClock{CurrentTime: 11, Duration: 1440, Playing: true})
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if tick.Caption != "Where are we?" {
		t.Fatalf("caption = %q", tick.Caption)
	}
	// provided intro [5,65] from the episode list wins over detection
	if !tick.ShowSkipIntro || tick.Markers.Intro.End != 65 {
		t.Fatalf("tick = %+v", tick)
	}
	if tick.Commands == nil {
		t.Fatal("commands should be an empty list, not null")
	}
}

func TestSessionServiceCreateRejectsEmptyVideo(t *testing.T) {
	s, _ := newTestSessionService(t)
	if _, err := s.Create(context.Background(), models.CreateSessionRequest{}); !errors.Is(err, ErrInvalidVideo) {
		t.Fatalf("error = %v, want ErrInvalidVideo", err)
	}
}

func TestSessionServiceCommandsReachClient(t *testing.T) {
	s, _ := newTestSessionService(t)
	id := createPilot(t, s).SessionID
	ctx := context.Background()

	if _, err := s.Tick(id, models.PlaybackClock{CurrentTime: 20, Duration: 1440, Playing: true}); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	resp, err := s.Command(ctx, id, models.CommandRequest{Action: models.ActionSkipIntro})
	if err != nil || !resp.Accepted {
		t.Fatalf("skip-intro = %+v, %v", resp, err)
	}
	if _, err := s.Command(ctx, id, models.CommandRequest{Action: models.ActionPlayPause}); err != nil {
		t.Fatalf("playpause error = %v", err)
	}

	tick, err := s.Tick(id, models.PlaybackClock{CurrentTime: 65, Duration: 1440})
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(tick.Commands) != 2 {
		t.Fatalf("commands = %+v", tick.Commands)
	}
	if tick.Commands[0] != (models.Command{Type: models.CommandSeek, Value: 65}) {
		t.Fatalf("first command = %+v", tick.Commands[0])
	}
	if tick.Commands[1].Type != models.CommandPause {
		t.Fatalf("second command = %+v", tick.Commands[1])
	}
}

func TestSessionServiceSkipNextSavesAndNavigates(t *testing.T) {
	s, progress := newTestSessionService(t)
	id := createPilot(t, s).SessionID
	ctx := context.Background()

	s.Tick(id, models.PlaybackClock{CurrentTime: 1400, Duration: 1440})
	resp, err := s.Command(ctx, id, models.CommandRequest{Action: models.ActionSkipNext})
	if err != nil || !resp.Accepted {
		t.Fatalf("skip-next = %+v, %v", resp, err)
	}

	record, ok, err := progress.GetRecord("progress_Show_ep_1")
	if err != nil || !ok {
		t.Fatalf("GetRecord() = %v, %v", ok, err)
	}
	if record.Position != 1400 || !record.Completed {
		t.Fatalf("record = %+v", record)
	}

	tick, _ := s.Tick(id, models.PlaybackClock{CurrentTime: 1401, Duration: 1440})
	if len(tick.Commands) != 1 || tick.Commands[0].Type != models.CommandNavigate || tick.Commands[0].EpisodeID != "Show_S01E02" {
		t.Fatalf("commands = %+v", tick.Commands)
	}
}

func TestSessionServiceSkipNextAtShowEnd(t *testing.T) {
	s, _ := newTestSessionService(t)
	resp, err := s.Create(context.Background(), models.CreateSessionRequest{
		Video: models.VideoData{EpisodeID: "Show_S02E01"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cmd, err := s.Command(context.Background(), resp.SessionID, models.CommandRequest{Action: models.ActionSkipNext})
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if cmd.Accepted {
		t.Fatal("skip-next accepted on the last episode")
	}
}

func TestSessionServiceSourceOnlyVideoSavesProgress(t *testing.T) {
	s, progress := newTestSessionService(t)
	video := models.VideoData{Source: "https://cdn.example/stream/ep.m3u8"}

	resp, err := s.Create(context.Background(), models.CreateSessionRequest{Video: video})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for ts := 0.0; ts <= 12; ts++ {
		if _, err := s.Tick(resp.SessionID, models.PlaybackClock{CurrentTime: ts, Duration: 1440, Playing: true}); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}

	key := models.ProgressKey(video.SourceID(), 0)
	record, ok, err := progress.GetRecord(key)
	if err != nil || !ok {
		t.Fatalf("GetRecord(%s) = %v, %v", key, ok, err)
	}
	if record.Position != 10 || record.SourceID != video.SourceID() {
		t.Fatalf("record = %+v", record)
	}
}

func TestSessionServiceResumeFromSavedProgress(t *testing.T) {
	s, progress := newTestSessionService(t)
	if _, err := progress.PutRecord(models.ProgressRecord{SourceID: "Show", EpisodeNumber: 1, Position: 600, Duration: 1440}); err != nil {
		t.Fatalf("PutRecord() error = %v", err)
	}

	resp := createPilot(t, s)
	if !resp.CanResume || resp.ResumePosition != 600 {
		t.Fatalf("resume = %v, %v", resp.ResumePosition, resp.CanResume)
	}
}

func TestSessionServiceUnknownSessionAndAction(t *testing.T) {
	s, _ := newTestSessionService(t)
	ctx := context.Background()

	if _, err := s.Tick("missing", models.PlaybackClock{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Tick() error = %v", err)
	}
	if err := s.Close(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Close() error = %v", err)
	}

	id := createPilot(t, s).SessionID
	if _, err := s.Command(ctx, id, models.CommandRequest{Action: "rewind"}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Command() error = %v, want ErrUnknownAction", err)
	}
}

func TestSessionServiceCloseSavesProgress(t *testing.T) {
	s, progress := newTestSessionService(t)
	id := createPilot(t, s).SessionID
	s.Tick(id, models.PlaybackClock{CurrentTime: 300, Duration: 1440})

	if err := s.Close(context.Background(), id); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.Count() != 0 {
		t.Fatalf("Count() = %d after close", s.Count())
	}
	record, ok, _ := progress.GetRecord("progress_Show_ep_1")
	if !ok || record.Position != 300 {
		t.Fatalf("record = %+v, %v", record, ok)
	}
	if _, err := s.Tick(id, models.PlaybackClock{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Tick() after close error = %v", err)
	}
}

func TestSessionServiceReapIdle(t *testing.T) {
	s, _ := newTestSessionService(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	idle := createPilot(t, s).SessionID
	active := createPilot(t, s).SessionID

	now = now.Add(45 * time.Second)
	s.Tick(active, models.PlaybackClock{CurrentTime: 5, Duration: 1440})
	now = now.Add(30 * time.Second)

	if n := s.Reap(context.Background()); n != 1 {
		t.Fatalf("Reap() = %d, want 1", n)
	}
	if _, err := s.Tick(idle, models.PlaybackClock{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("idle session still open: %v", err)
	}
	if _, err := s.Tick(active, models.PlaybackClock{}); err != nil {
		t.Fatalf("active session reaped: %v", err)
	}
}
