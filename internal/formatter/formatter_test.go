package formatter

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	th "github.com/desertthunder/spotdash/internal/testing"
)

func sampleTracks() []services.Track {
	return []services.Track{
		{
			ID:         "track1",
			Name:       "Song One",
			Artists:    []services.Artist{{Name: "Artist One"}, {Name: "Guest"}},
			Album:      services.Album{Name: "Album One"},
			DurationMS: 180000,
			URI:        "spotify:track:track1",
		},
		{
			ID:         "track2",
			Name:       "Song, Two",
			Artists:    []services.Artist{{Name: "Artist Two"}},
			DurationMS: 245500,
			URI:        "spotify:track:track2",
		},
	}
}

func sampleList() TrackList {
	public := true
	return TrackList{Title: "Test Playlist", Description: "A test playlist", Public: &public, Tracks: sampleTracks()}
}

func TestFormat(t *testing.T) {
	t.Run("ParseFormat", func(t *testing.T) {
		tests := []struct {
			in   string
			want Format
		}{
			{"csv", FormatCSV},
			{"Markdown", FormatMarkdown},
			{"md", FormatMarkdown},
			{"", FormatText},
			{"txt", FormatText},
		}
		for _, tt := range tests {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		}

		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("Extension", func(t *testing.T) {
		if FormatCSV.Extension() != "csv" || FormatMarkdown.Extension() != "md" || FormatText.Extension() != "txt" {
			t.Error("unexpected extensions")
		}
	})
}

func TestRenderers(t *testing.T) {
	t.Run("ToCSV", func(t *testing.T) {
		data, err := ToCSV(sampleTracks())
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "ID,Title,Artist,Album,Duration,URI" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[1] != `track1,Song One,"Artist One, Guest",Album One,180,spotify:track:track1` {
			t.Errorf("unexpected row %q", lines[1])
		}
		if !strings.Contains(lines[2], `"Song, Two"`) {
			t.Errorf("expected quoted title, got %q", lines[2])
		}
	})

	t.Run("ToMarkdown", func(t *testing.T) {
		data, err := ToMarkdown(sampleList(), "cover.jpg")
		if err != nil {
			t.Fatalf("ToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test Playlist",
			"![Cover](cover.jpg)",
			"**Description**: A test playlist",
			"**Tracks**: 2",
			"**Visibility**: Public",
			"1. Artist One, Guest - Song One (Album One) [3:00]",
			"2. Artist Two - Song, Two [4:05]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ToMarkdown Without Visibility", func(t *testing.T) {
		data, _ := ToMarkdown(TrackList{Title: "Recommendations", Tracks: sampleTracks()}, "")
		if strings.Contains(string(data), "Visibility") || strings.Contains(string(data), "Cover") {
			t.Errorf("unexpected optional sections:\n%s", data)
		}
	})

	t.Run("ToText", func(t *testing.T) {
		data, err := ToText(sampleList())
		if err != nil {
			t.Fatalf("ToText failed: %v", err)
		}

		want := "Playlist: Test Playlist\nDescription: A test playlist\nTracks: 2\n\n" +
			"1. Artist One, Guest - Song One\n2. Artist Two - Song, Two\n"
		if string(data) != want {
			t.Errorf("unexpected text:\n%s", data)
		}
	})

	t.Run("GroupsToText", func(t *testing.T) {
		tracks := sampleTracks()
		out := string(GroupsToText([]Group{
			{Label: "folk", Tracks: tracks[:1]},
			{Label: "Playlist 2", Tracks: tracks[1:]},
		}))

		if !strings.Contains(out, "[1] folk (1 tracks)") || !strings.Contains(out, "[2] Playlist 2 (1 tracks)") {
			t.Errorf("missing group headers:\n%s", out)
		}
		if !strings.Contains(out, "   1. Artist Two - Song, Two") {
			t.Errorf("missing indented track:\n%s", out)
		}
	})

	t.Run("Render Dispatches", func(t *testing.T) {
		csvData, _ := Render(sampleList(), FormatCSV)
		if !strings.HasPrefix(string(csvData), "ID,Title") {
			t.Error("expected CSV output")
		}
		mdData, _ := Render(sampleList(), FormatMarkdown)
		if !strings.HasPrefix(string(mdData), "# Test Playlist") {
			t.Error("expected Markdown output")
		}
	})

	t.Run("FromPlaylist", func(t *testing.T) {
		p := &services.Playlist{
			Name:   "Mine",
			Public: false,
			Images: []services.Image{{URL: "https://i.example.com/a.jpg"}},
		}
		list := FromPlaylist(p, sampleTracks())
		if list.Title != "Mine" || list.Public == nil || *list.Public || list.CoverURL != "https://i.example.com/a.jpg" {
			t.Errorf("unexpected list %+v", list)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		if err := WriteFile(sampleList(), FormatCSV, path); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if !strings.Contains(th.MustReadFile(t, path), "track2") {
			t.Error("expected track2 in file")
		}
	})

	t.Run("WriteMarkdownExport With Cover", func(t *testing.T) {
		api := th.NewFakeAPI(t)
		api.Handle("GET /cover.jpg", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("jpegdata"))
		})

		list := sampleList()
		list.CoverURL = api.URL + "/cover.jpg"
		dir := filepath.Join(t.TempDir(), "export")

		result, err := WriteMarkdownExport(api.Client(), list, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if len(result.Files) != 2 {
			t.Fatalf("expected 2 files, got %v", result.Files)
		}
		th.AssertFileExists(t, result.CoverImage)
		if got := th.MustReadFile(t, result.CoverImage); got != "jpegdata" {
			t.Errorf("unexpected cover contents %q", got)
		}
		if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
			t.Error("expected cover reference in README")
		}
	})

	t.Run("WriteMarkdownExport Cover Failure", func(t *testing.T) {
		api := th.NewFakeAPI(t)
		list := sampleList()
		list.CoverURL = api.URL + "/missing.jpg"
		dir := t.TempDir()

		result, err := WriteMarkdownExport(api.Client(), list, dir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.CoverImage != "" || len(result.Files) != 1 {
			t.Errorf("expected README only, got %+v", result)
		}
	})

	t.Run("WriteMarkdownExport Requires Dir", func(t *testing.T) {
		if _, err := WriteMarkdownExport(nil, sampleList(), ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("DownloadImage", func(t *testing.T) {
		if _, err := DownloadImage(nil, ""); err == nil {
			t.Error("expected error for empty URL")
		}

		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("offline"))}
		if _, err := DownloadImage(client, "https://i.example.com/x.jpg"); err == nil {
			t.Error("expected network error")
		}
	})
}
