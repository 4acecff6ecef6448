package models

import (
	"fmt"

	"github.com/google/uuid"
)

// EpisodeInfo represents a single episode's information
type EpisodeInfo struct {
	ID            string         `json:"id"`    // e.g., "Show_S01E01"
	Title         string         `json:"title"` // Optional: "The First Episode"
	EpisodeNumber int            `json:"episodeNumber,omitempty"`
	VideoURL      string         `json:"videoUrl"`
	SubtitleURL   string         `json:"subtitleUrl"` // URL for the .srt or .vtt file
	Timings       *TimingMarkers `json:"timings,omitempty"`
}

// ShowInfoResponse represents the overall show information
type ShowInfoResponse struct {
	Episodes []EpisodeInfo `json:"episodes"`
}

// Cue is a single timed caption entry. Times are seconds.
type Cue struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// Covers reports whether t falls inside the cue window, bounds included.
func (c Cue) Covers(t float64) bool {
	return t >= c.StartTime && t <= c.EndTime
}

// TimingWindow is an intro or outro range in seconds.
type TimingWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (w TimingWindow) String() string {
	return fmt.Sprintf("[%.1f,%.1f]", w.Start, w.End)
}

// Length returns the window length in seconds.
func (w TimingWindow) Length() float64 {
	return w.End - w.Start
}

// Contains reports whether t is inside [Start, End].
func (w TimingWindow) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// TimingMarkers holds the optional intro and outro windows of an episode.
type TimingMarkers struct {
	Intro *TimingWindow `json:"intro,omitempty"`
	Outro *TimingWindow `json:"outro,omitempty"`
}

// PlaybackStatus mirrors the status string reported by the playback surface.
type PlaybackStatus string

const (
	StatusIdle      PlaybackStatus = "idle"
	StatusLoading   PlaybackStatus = "loading"
	StatusReady     PlaybackStatus = "readyToPlay"
	StatusBuffering PlaybackStatus = "buffering"
	StatusError     PlaybackStatus = "error"
	StatusFinished  PlaybackStatus = "finished"
)

// PlaybackClock is one sample of the external playback surface.
type PlaybackClock struct {
	CurrentTime float64        `json:"currentTime"`
	Duration    float64        `json:"duration"`
	Playing     bool           `json:"playing"`
	Status      PlaybackStatus `json:"status"`
}

// Remaining returns the seconds left until the end, or 0 when unknown.
func (c PlaybackClock) Remaining() float64 {
	if c.Duration <= 0 {
		return 0
	}
	return c.Duration - c.CurrentTime
}

// SubtitleTrack describes one caption language offered by the source.
type SubtitleTrack struct {
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

// VideoData describes what a player session plays. Loaded once per session.
type VideoData struct {
	Source        string            `json:"source"`
	Headers       map[string]string `json:"headers,omitempty"`
	Subtitles     []SubtitleTrack   `json:"subtitles,omitempty"`
	Timings       *TimingMarkers    `json:"timings,omitempty"`
	EpisodeID     string            `json:"episodeId,omitempty"`
	EpisodeNumber int               `json:"episodeNumber,omitempty"`
	AnilistID     string            `json:"anilistId,omitempty"`
	AnimeTitle    string            `json:"animeTitle,omitempty"`
}

// SourceID returns the identifier used to key persisted progress. It falls
// back to the episode ID and then to a name-based UUID of the source URL,
// so it is empty only when the video has no identity at all.
func (v VideoData) SourceID() string {
	switch {
	case v.AnilistID != "":
		return v.AnilistID
	case v.AnimeTitle != "":
		return v.AnimeTitle
	case v.EpisodeID != "":
		return v.EpisodeID
	case v.Source != "":
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(v.Source)).String()
	}
	return ""
}

// NextEpisodeContext is resolved once per load from the episode list.
type NextEpisodeContext struct {
	HasNext       bool   `json:"hasNext"`
	NextEpisodeID string `json:"nextEpisodeId,omitempty"`
	NextTitle     string `json:"nextTitle,omitempty"`
}

// ProgressRecord is the persisted resume state of one episode.
type ProgressRecord struct {
	SourceID      string  `json:"sourceId"`
	EpisodeID     string  `json:"episodeId,omitempty"`
	EpisodeNumber int     `json:"episodeNumber"`
	Position      float64 `json:"position"`
	Duration      float64 `json:"duration"`
	Percent       float64 `json:"percent"`
	Completed     bool    `json:"completed"`
	UpdatedAt     int64   `json:"updatedAt"` // Unix timestamp
}

// ProgressKey builds the storage key for an episode's progress record.
func ProgressKey(sourceID string, episodeNumber int) string {
	return fmt.Sprintf("progress_%s_ep_%d", sourceID, episodeNumber)
}
