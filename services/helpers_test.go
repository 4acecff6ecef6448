package services

import (
	"os"
	"path/filepath"
	"testing"

	"binge-player/config"
)

const seasonOneJSON = `[
  {"id": "Show_S01E02", "title": "The Second One", "videoUrl": "/media/s01e02.mp4", "subtitleUrl": "/api/episode/Show_S01E02/subtitle"},
  {"id": "Show_S01E01", "title": "Pilot", "videoUrl": "/media/s01e01.mp4", "subtitleUrl": "/api/episode/Show_S01E01/subtitle",
   "timings": {"intro": {"start": 5, "end": 65}}}
]`

const seasonTwoJSON = `[
  {"id": "Show_S02E01", "title": "New Season", "videoUrl": "/media/s02e01.mp4"}
]`

const pilotCaptions = `WEBVTT

00:00:01.000 --> 00:00:04.000
Previously...

00:00:10.000 --> 00:00:12.500
<i>Where are we?</i>
`

// newTestConfig lays out a small show on disk and returns a config for it.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		filepath.Join("seasons", "season-01", "episodes.json"):           seasonOneJSON,
		filepath.Join("seasons", "season-02", "episodes.json"):           seasonTwoJSON,
		filepath.Join("seasons", "season-02", "broken.json"):             "{not json",
		filepath.Join("subtitles", "season-01", "episode-01.vtt"):        pilotCaptions,
		filepath.Join("subtitles", "season-01", "Show - episode-02.srt"): "1\n00:00:01,000 --> 00:00:02,000\nHi\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	return &config.Config{
		MediaDir:            root,
		SeasonsDir:          filepath.Join(root, "seasons"),
		SubtitlesDir:        filepath.Join(root, "subtitles"),
		ProgressFile:        filepath.Join(root, "data", "progress.json"),
		SubtitleFilePattern: "*.srt,*.vtt",
		Engine: config.Engine{
			IdleTimeoutSeconds: 60,
		},
	}
}
