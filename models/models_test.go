package models

import "testing"

func TestVideoDataSourceID(t *testing.T) {
	source := VideoData{Source: "https://cdn.example/ep.m3u8"}

	tests := []struct {
		name  string
		video VideoData
		want  string
	}{
		{"anilist wins", VideoData{AnilistID: "21", AnimeTitle: "One Piece", EpisodeID: "x"}, "21"},
		{"title", VideoData{AnimeTitle: "One Piece", Source: "s"}, "One Piece"},
		{"episode id", VideoData{EpisodeID: "Show_S01E01", Source: "s"}, "Show_S01E01"},
		{"nothing", VideoData{}, ""},
	}
	for _, tc := range tests {
		if got := tc.video.SourceID(); got != tc.want {
			t.Errorf("%s: SourceID() = %q, want %q", tc.name, got, tc.want)
		}
	}

	id := source.SourceID()
	if id == "" || id != (VideoData{Source: source.Source}).SourceID() {
		t.Fatalf("source-only SourceID() = %q, want a stable non-empty id", id)
	}
	if id == (VideoData{Source: "https://cdn.example/other.m3u8"}).SourceID() {
		t.Fatal("different sources share an id")
	}
	if key := ProgressKey(id, 0); key == "progress__ep_0" {
		t.Fatalf("key = %q", key)
	}
}
