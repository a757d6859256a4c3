// package formatter renders tracks, playlists and split results as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
)

// Format is an export format name.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "text"
)

// ParseFormat accepts csv, md/markdown and text/txt.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "", "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension is the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// TrackList is a titled list of tracks, e.g. a playlist or a set of recommendations.
type TrackList struct {
	Title       string
	Description string
	Public      *bool // nil when visibility does not apply
	CoverURL    string
	Tracks      []services.Track
}

// FromPlaylist builds a [TrackList] from a playlist and its playable tracks.
func FromPlaylist(p *services.Playlist, tracks []services.Track) TrackList {
	public := p.Public
	list := TrackList{Title: p.Name, Description: p.Description, Public: &public, Tracks: tracks}
	if len(p.Images) > 0 {
		list.CoverURL = p.Images[0].URL
	}
	return list
}

// Render dispatches to the renderer for f.
func Render(list TrackList, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ToCSV(list.Tracks)
	case FormatMarkdown:
		return ToMarkdown(list, "")
	default:
		return ToText(list)
	}
}

// ToCSV writes tracks with columns: ID, Title, Artist, Album, Duration, URI
func ToCSV(tracks []services.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Name,
			track.ArtistNames(),
			track.Album.Name,
			strconv.Itoa(track.DurationMS / 1000),
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown renders list as a Markdown document with an optional cover image.
func ToMarkdown(list TrackList, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", list.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if list.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", list.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(list.Tracks))
	if list.Public != nil {
		fmt.Fprintf(&buf, "**Visibility**: %s\n", shared.VisibilityString(*list.Public))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range list.Tracks {
		albumPart := ""
		if track.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.ArtistNames(), track.Name, albumPart, shared.FormatDuration(track.DurationMS))
	}

	return buf.Bytes(), nil
}

// ToText renders list as numbered plain text.
func ToText(list TrackList) ([]byte, error) {
	var buf bytes.Buffer

	if list.Title != "" {
		fmt.Fprintf(&buf, "Playlist: %s\n", list.Title)
	}
	if list.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", list.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(list.Tracks))

	for i, track := range list.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistNames(), track.Name)
	}

	return buf.Bytes(), nil
}

// Group is one named block of tracks, e.g. a derived playlist from the splitter.
type Group struct {
	Label  string
	Tracks []services.Track
}

// GroupsToText renders groups one after another, numbered from 1.
func GroupsToText(groups []Group) []byte {
	var buf bytes.Buffer
	for i, g := range groups {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "[%d] %s (%d tracks)\n", i+1, g.Label, len(g.Tracks))
		for j, track := range g.Tracks {
			fmt.Fprintf(&buf, "  %2d. %s - %s\n", j+1, track.ArtistNames(), track.Name)
		}
	}
	return buf.Bytes()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains the paths created by [WriteMarkdownExport].
type MarkdownExportResult struct {
	Directory  string
	CoverImage string
	Files      []string
}

// WriteMarkdownExport writes {dir}/README.md and, when the list has a cover and it downloads,
// {dir}/cover.jpg. A failed cover download only drops the image.
func WriteMarkdownExport(client *http.Client, list TrackList, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory", shared.ErrMissingArgument)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir}

	var cover string
	if list.CoverURL != "" {
		if data, err := DownloadImage(client, list.CoverURL); err == nil {
			path := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(path, data, 0644); err == nil {
				cover = "cover.jpg"
				result.CoverImage = path
				result.Files = append(result.Files, path)
			}
		}
	}

	md, err := ToMarkdown(list, cover)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, md, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteFile renders list in format f to path.
func WriteFile(list TrackList, f Format, path string) error {
	data, err := Render(list, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
