package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"binge-player/config"
	"binge-player/models"
	"binge-player/playback"
	"binge-player/player"
)

var (
	// ErrSessionNotFound is returned for unknown or closed session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownAction is returned for unsupported command actions.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidVideo is returned when a session request names no video.
	ErrInvalidVideo = errors.New("video has neither source nor episode id")
)

// TickResponse is returned to the client for every reported clock sample.
type TickResponse struct {
	player.Snapshot
	Commands []models.Command `json:"commands"`
}

type remoteSession struct {
	session  *player.Session
	surface  *RemoteSurface
	lastSeen time.Time
}

// SessionService owns the player sessions of remote clients
type SessionService struct {
	config    *config.Config
	episodes  *EpisodeService
	progress  *ProgressService
	afterFunc playback.AfterFunc
	now       func() time.Time

	mutex    sync.Mutex
	sessions map[string]*remoteSession
}

// NewSessionService creates a new session service
func NewSessionService(cfg *config.Config, episodes *EpisodeService, progress *ProgressService) *SessionService {
	return &SessionService{
		config:   cfg,
		episodes: episodes,
		progress: progress,
		now:      time.Now,
		sessions: make(map[string]*remoteSession),
	}
}

// Create starts a session for the requested video. Captions come from the
// request when given, else from the local subtitle file of the episode.
func (s *SessionService) Create(ctx context.Context, req models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	video := req.Video
	if video.Source == "" && video.EpisodeID == "" {
		return nil, ErrInvalidVideo
	}

	if video.EpisodeID != "" {
		if episode, err := s.episodes.GetEpisode(video.EpisodeID); err == nil {
			if video.Timings == nil {
				video.Timings = episode.Timings
			}
			if video.EpisodeNumber == 0 {
				video.EpisodeNumber = episode.EpisodeNumber
			}
		}
		if video.SourceID() == "" {
			video.AnimeTitle = showName(video.EpisodeID)
		}
	}

	surface := NewRemoteSurface()
	session := player.New(video, player.Deps{
		Surface:   surface,
		Store:     s.progress,
		Navigator: surface,
		AfterFunc: s.afterFunc,
	}, s.config.SessionSettings())

	resp := &models.CreateSessionResponse{
		SessionID:      uuid.NewString(),
		PollIntervalMs: s.config.PollInterval().Milliseconds(),
	}

	lang := req.CaptionLang
	if lang == "" {
		lang = "default"
	}
	switch {
	case req.CaptionsText != "":
		resp.CaptionsLoaded = session.LoadCaptions(lang, req.CaptionsText)
	case video.EpisodeID != "":
		raw, err := s.episodes.LoadSubtitle(video.EpisodeID)
		if err != nil {
			log.Printf("Create: No local subtitles for %s: %v", video.EpisodeID, err)
			break
		}
		resp.CaptionsLoaded = session.LoadCaptions(lang, raw)
	}

	next, err := s.episodes.FindNextEpisode(ctx, video)
	session.SetNextEpisode(next, err)
	resp.NextEpisode = session.NextEpisode()

	resp.ResumePosition, resp.CanResume = session.ResumePosition()

	s.mutex.Lock()
	s.sessions[resp.SessionID] = &remoteSession{session: session, surface: surface, lastSeen: s.now()}
	s.mutex.Unlock()

	log.Printf("Create: Started session %s for %q episode %d", resp.SessionID, video.SourceID(), video.EpisodeNumber)
	return resp, nil
}

// Tick feeds a clock sample reported by the client into its session and
// returns the resulting snapshot with any queued commands.
func (s *SessionService) Tick(id string, clock models.PlaybackClock) (*TickResponse, error) {
	rs, err := s.get(id, true)
	if err != nil {
		return nil, err
	}

	rs.surface.Update(clock)
	snap := rs.session.Tick(clock)
	commands := rs.surface.Drain()
	if commands == nil {
		commands = []models.Command{}
	}
	return &TickResponse{Snapshot: snap, Commands: commands}, nil
}

// LoadCaptions replaces the session's caption track. It reports whether the
// new track has usable cues.
func (s *SessionService) LoadCaptions(id string, req models.CaptionsRequest) (bool, error) {
	rs, err := s.get(id, false)
	if err != nil {
		return false, err
	}

	loaded := false
	if req.Text != "" {
		loaded = rs.session.LoadCaptions(req.Lang, req.Text)
	}
	if req.Enabled != nil {
		rs.session.SetCaptionsEnabled(*req.Enabled)
	}
	return loaded, nil
}

// Command applies a user action to the session.
func (s *SessionService) Command(ctx context.Context, id string, req models.CommandRequest) (*models.CommandResponse, error) {
	rs, err := s.get(id, false)
	if err != nil {
		return nil, err
	}
	session := rs.session

	resp := &models.CommandResponse{Accepted: true}
	switch req.Action {
	case models.ActionSeek:
		resp.Accepted = session.Seek(req.Value)
	case models.ActionPlayPause:
		session.PlayPause()
	case models.ActionRate:
		session.SetRate(req.Value)
	case models.ActionSkipIntro:
		resp.Accepted = session.SkipIntro()
	case models.ActionSkipOutro:
		resp.Accepted = session.SkipOutro()
	case models.ActionSkipNext:
		if err := session.SkipToNext(ctx); err != nil {
			if !errors.Is(err, playback.ErrNoNextEpisode) {
				return nil, err
			}
			resp.Accepted = false
			resp.Message = err.Error()
		}
	case models.ActionDismissCountdown:
		session.DismissCountdown()
	case models.ActionSave:
		if err := session.SaveProgress(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	if !resp.Accepted && resp.Message == "" {
		resp.Message = "request dropped"
	}
	return resp, nil
}

// Close saves progress and tears the session down.
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mutex.Lock()
	rs, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mutex.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.shutdown(ctx, id, rs)
	return nil
}

// Reap closes sessions that have not ticked within the idle timeout. It
// returns the number of sessions closed.
func (s *SessionService) Reap(ctx context.Context) int {
	timeout := s.config.SessionIdleTimeout()
	if timeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-timeout)

	stale := make(map[string]*remoteSession)
	s.mutex.Lock()
	for id, rs := range s.sessions {
		if rs.lastSeen.Before(cutoff) {
			stale[id] = rs
			delete(s.sessions, id)
		}
	}
	s.mutex.Unlock()

	for id, rs := range stale {
		log.Printf("Reap: Closing idle session %s", id)
		s.shutdown(ctx, id, rs)
	}
	return len(stale)
}

// RunReaper reaps idle sessions periodically until ctx is done.
func (s *SessionService) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(ctx)
		}
	}
}

// CloseAll closes every session, saving progress first.
func (s *SessionService) CloseAll(ctx context.Context) {
	s.mutex.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*remoteSession)
	s.mutex.Unlock()

	for id, rs := range sessions {
		s.shutdown(ctx, id, rs)
	}
}

// Count returns the number of open sessions.
func (s *SessionService) Count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}

func (s *SessionService) get(id string, touch bool) (*remoteSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	rs, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if touch {
		rs.lastSeen = s.now()
	}
	return rs, nil
}

func (s *SessionService) shutdown(ctx context.Context, id string, rs *remoteSession) {
	if err := rs.session.SaveProgress(ctx); err != nil {
		log.Printf("Close: Error saving progress for session %s: %v", id, err)
	}
	rs.session.Close()
	rs.surface.Close()
	log.Printf("Close: Session %s closed", id)
}
