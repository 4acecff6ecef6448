package models

// Command types queued for a remote player.
const (
	CommandPlay     = "play"
	CommandPause    = "pause"
	CommandSeek     = "seek"
	CommandRate     = "rate"
	CommandNavigate = "navigate"
)

// Command is an instruction for the remote player to carry out.
type Command struct {
	Type      string  `json:"type"`
	Value     float64 `json:"value,omitempty"`
	EpisodeID string  `json:"episodeId,omitempty"`
}

// CreateSessionRequest starts a player session.
type CreateSessionRequest struct {
	Video        VideoData `json:"video"`
	CaptionLang  string    `json:"captionLang,omitempty"`
	CaptionsText string    `json:"captionsText,omitempty"`
}

// CreateSessionResponse describes a new session.
type CreateSessionResponse struct {
	SessionID      string             `json:"sessionId"`
	ResumePosition float64            `json:"resumePosition,omitempty"`
	CanResume      bool               `json:"canResume"`
	CaptionsLoaded bool               `json:"captionsLoaded"`
	NextEpisode    NextEpisodeContext `json:"nextEpisode"`
	PollIntervalMs int64              `json:"pollIntervalMs"`
}

// CaptionsRequest replaces a session's caption track.
type CaptionsRequest struct {
	Lang    string `json:"lang"`
	Text    string `json:"text"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// CommandRequest is a user action sent to a session.
type CommandRequest struct {
	Action string  `json:"action"`
	Value  float64 `json:"value,omitempty"`
}

// Session actions accepted by CommandRequest.
const (
	ActionSeek             = "seek"
	ActionPlayPause        = "playpause"
	ActionRate             = "rate"
	ActionSkipIntro        = "skip-intro"
	ActionSkipOutro        = "skip-outro"
	ActionSkipNext         = "skip-next"
	ActionDismissCountdown = "dismiss-countdown"
	ActionSave             = "save"
)

// CommandResponse reports whether an action was accepted.
type CommandResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}
