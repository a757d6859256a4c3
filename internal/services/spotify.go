// Spotify Web API response types
//
// Based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"fmt"
	"net/url"
	"strings"
)

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// Image is an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// User is a Spotify user profile.
type User struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	Email        string       `json:"email"`
	Country      string       `json:"country"`
	Product      string       `json:"product"`
	Followers    followers    `json:"followers"`
	Images       []Image      `json:"images"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// Name returns the display name, falling back to the id.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// Artist is a Spotify artist. Simplified artist objects leave Genres, Followers and Popularity empty.
type Artist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Genres       []string     `json:"genres,omitempty"`
	Followers    followers    `json:"followers"`
	Popularity   int          `json:"popularity"`
	Images       []Image      `json:"images,omitempty"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// Album is a simplified Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists,omitempty"`
	ReleaseDate string   `json:"release_date"`
	TotalTracks int      `json:"total_tracks"`
	Images      []Image  `json:"images"`
	URI         string   `json:"uri"`
}

// Track is a Spotify track.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	DurationMS   int          `json:"duration_ms"`
	Explicit     bool         `json:"explicit"`
	Popularity   int          `json:"popularity"`
	PreviewURL   string       `json:"preview_url,omitempty"`
	IsLocal      bool         `json:"is_local"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// ArtistNames joins the track's artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// LeadArtist returns the first credited artist, if any.
func (t Track) LeadArtist() (Artist, bool) {
	if len(t.Artists) == 0 {
		return Artist{}, false
	}
	return t.Artists[0], true
}

// Owner is a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackCount struct {
	Total int `json:"total"`
}

// SimplePlaylist is the playlist object returned by list and create endpoints.
type SimplePlaylist struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Owner       Owner      `json:"owner"`
	Public      bool       `json:"public"`
	Tracks      trackCount `json:"tracks"`
	Images      []Image    `json:"images"`
	URI         string     `json:"uri"`
}

// Playlist is a full playlist with the first page of its items.
type Playlist struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Owner        Owner              `json:"owner"`
	Public       bool               `json:"public"`
	Followers    followers          `json:"followers"`
	Tracks       Page[PlaylistItem] `json:"tracks"`
	Images       []Image            `json:"images"`
	URI          string             `json:"uri"`
	ExternalURLs externalURLs       `json:"external_urls"`
}

// PlaylistItem is a playlist entry. Track is nil for removed or unavailable entries.
type PlaylistItem struct {
	AddedAt string `json:"added_at"`
	IsLocal bool   `json:"is_local"`
	Track   *Track `json:"track"`
}

// Playable reports whether the item refers to a streamable catalog track.
func (p PlaylistItem) Playable() bool {
	return p.Track != nil && !p.IsLocal && !p.Track.IsLocal && p.Track.ID != ""
}

// Page is Spotify's paging object.
type Page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// HasNext reports whether another page exists.
func (p Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// PlayHistory is an entry in the recently played list.
type PlayHistory struct {
	Track    Track  `json:"track"`
	PlayedAt string `json:"played_at"`
}

// AudioFeatures are the per-track audio descriptors.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
	TimeSignature    int     `json:"time_signature"`
	DurationMS       int     `json:"duration_ms"`
}

// TimeInterval is a bar, beat, section or segment of an audio analysis.
type TimeInterval struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// AudioAnalysis is the low-level structure of a track.
type AudioAnalysis struct {
	Bars     []TimeInterval `json:"bars"`
	Beats    []TimeInterval `json:"beats"`
	Sections []TimeInterval `json:"sections"`
	Segments []TimeInterval `json:"segments"`
	Tatums   []TimeInterval `json:"tatums"`
	Track    struct {
		Duration float64 `json:"duration"`
		Tempo    float64 `json:"tempo"`
		Key      int     `json:"key"`
		Mode     int     `json:"mode"`
		Loudness float64 `json:"loudness"`
	} `json:"track"`
}

// TimeRange is the affinity window for top items.
type TimeRange string

const (
	LongTerm   TimeRange = "long_term"
	MediumTerm TimeRange = "medium_term"
	ShortTerm  TimeRange = "short_term"
)

// ParseTimeRange accepts the API names and the aliases all, 6m and 4w.
func ParseTimeRange(s string) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long_term", "long", "all":
		return LongTerm, nil
	case "medium_term", "medium", "6m":
		return MediumTerm, nil
	case "short_term", "short", "4w":
		return ShortTerm, nil
	default:
		return "", fmt.Errorf("unknown time range %q", s)
	}
}

// Label is a human readable name for the range.
func (r TimeRange) Label() string {
	switch r {
	case MediumTerm:
		return "Last 6 Months"
	case ShortTerm:
		return "Last 4 Weeks"
	default:
		return "All Time"
	}
}

// RecommendationSeeds are the inputs to /recommendations. At most five seeds in total.
type RecommendationSeeds struct {
	Tracks  []string
	Artists []string
	Genres  []string
}

// Count returns the total number of seeds.
func (s RecommendationSeeds) Count() int {
	return len(s.Tracks) + len(s.Artists) + len(s.Genres)
}

// MaxSeeds is the provider's cap on combined seeds.
const MaxSeeds = 5

// ParseID accepts a bare id, a spotify:kind:id URI or an open.spotify.com link and returns the id.
func ParseID(input string) string {
	input = strings.TrimSpace(input)
	switch {
	case strings.HasPrefix(input, "spotify:"):
		parts := strings.Split(input, ":")
		return parts[len(parts)-1]
	case strings.Contains(input, "open.spotify.com/"):
		u, err := url.Parse(input)
		if err != nil {
			return input
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		return segments[len(segments)-1]
	default:
		return input
	}
}
