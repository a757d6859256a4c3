package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/samber/lo"
)

// Provider batch limits.
const (
	audioFeaturesBatch = 100
	artistsBatch       = 50
	addTracksBatch     = 100
	playlistPageSize   = 100
)

func limitQuery(limit, offset int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return q
}

func pathID(format, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: empty id", shared.ErrMissingArgument)
	}
	return fmt.Sprintf(format, url.PathEscape(id)), nil
}

// CurrentUser retrieves the authenticated user's profile.
func (c *SpotifyClient) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (c *SpotifyClient) UserPlaylists(ctx context.Context, limit, offset int) (*Page[SimplePlaylist], error) {
	var page Page[SimplePlaylist]
	if err := c.Do(ctx, http.MethodGet, "/me/playlists", limitQuery(limit, offset), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TopArtists retrieves the user's top artists for the range.
func (c *SpotifyClient) TopArtists(ctx context.Context, tr TimeRange, limit int) (*Page[Artist], error) {
	q := limitQuery(limit, 0)
	q.Set("time_range", string(tr))

	var page Page[Artist]
	if err := c.Do(ctx, http.MethodGet, "/me/top/artists", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TopTracks retrieves the user's top tracks for the range.
func (c *SpotifyClient) TopTracks(ctx context.Context, tr TimeRange, limit int) (*Page[Track], error) {
	q := limitQuery(limit, 0)
	q.Set("time_range", string(tr))

	var page Page[Track]
	if err := c.Do(ctx, http.MethodGet, "/me/top/tracks", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RecentlyPlayed retrieves the most recently played tracks.
func (c *SpotifyClient) RecentlyPlayed(ctx context.Context, limit int) ([]PlayHistory, error) {
	var page Page[PlayHistory]
	if err := c.Do(ctx, http.MethodGet, "/me/player/recently-played", limitQuery(limit, 0), nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Playlist retrieves a playlist with its first page of items.
func (c *SpotifyClient) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	endpoint, err := pathID("/playlists/%s", playlistID)
	if err != nil {
		return nil, err
	}

	var playlist Playlist
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistTracks retrieves one page of playlist items.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*Page[PlaylistItem], error) {
	endpoint, err := pathID("/playlists/%s/tracks", playlistID)
	if err != nil {
		return nil, err
	}

	var page Page[PlaylistItem]
	if err := c.Do(ctx, http.MethodGet, endpoint, limitQuery(limit, offset), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllPlaylistTracks pages through a playlist and returns its playable tracks in order.
// Local files and unavailable entries are skipped.
func (c *SpotifyClient) AllPlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	var tracks []Track
	for offset := 0; ; offset += playlistPageSize {
		page, err := c.PlaylistTracks(ctx, playlistID, playlistPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Playable() {
				tracks = append(tracks, *item.Track)
			}
		}
		if !page.HasNext() || len(page.Items) == 0 {
			return tracks, nil
		}
	}
}

// AudioFeatures retrieves features for ids in batches of 100.
// The result is index-aligned with ids; entries are nil where the provider has no features.
func (c *SpotifyClient) AudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error) {
	out := make([]*AudioFeatures, 0, len(ids))
	for _, batch := range lo.Chunk(ids, audioFeaturesBatch) {
		var resp struct {
			AudioFeatures []*AudioFeatures `json:"audio_features"`
		}
		q := url.Values{"ids": {strings.Join(batch, ",")}}
		if err := c.Do(ctx, http.MethodGet, "/audio-features", q, nil, &resp); err != nil {
			return nil, err
		}

		// keep alignment even if the provider returns a short list
		for i := range batch {
			var f *AudioFeatures
			if i < len(resp.AudioFeatures) {
				f = resp.AudioFeatures[i]
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// AudioFeature retrieves the features of a single track.
func (c *SpotifyClient) AudioFeature(ctx context.Context, trackID string) (*AudioFeatures, error) {
	endpoint, err := pathID("/audio-features/%s", trackID)
	if err != nil {
		return nil, err
	}

	var f AudioFeatures
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// AudioAnalysis retrieves the low-level analysis of a track.
func (c *SpotifyClient) AudioAnalysis(ctx context.Context, trackID string) (*AudioAnalysis, error) {
	endpoint, err := pathID("/audio-analysis/%s", trackID)
	if err != nil {
		return nil, err
	}

	var a AudioAnalysis
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Recommendations retrieves tracks generated from up to five seeds.
func (c *SpotifyClient) Recommendations(ctx context.Context, seeds RecommendationSeeds, limit int) ([]Track, error) {
	switch n := seeds.Count(); {
	case n == 0:
		return nil, shared.ErrNoSeeds
	case n > MaxSeeds:
		return nil, fmt.Errorf("%w: %d seeds given, at most %d allowed", shared.ErrInvalidInput, n, MaxSeeds)
	}

	q := limitQuery(limit, 0)
	if len(seeds.Tracks) > 0 {
		q.Set("seed_tracks", strings.Join(seeds.Tracks, ","))
	}
	if len(seeds.Artists) > 0 {
		q.Set("seed_artists", strings.Join(seeds.Artists, ","))
	}
	if len(seeds.Genres) > 0 {
		q.Set("seed_genres", strings.Join(seeds.Genres, ","))
	}

	var resp struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.Do(ctx, http.MethodGet, "/recommendations", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

// Track retrieves a track by id.
func (c *SpotifyClient) Track(ctx context.Context, trackID string) (*Track, error) {
	endpoint, err := pathID("/tracks/%s", trackID)
	if err != nil {
		return nil, err
	}

	var t Track
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Artist retrieves an artist by id.
func (c *SpotifyClient) Artist(ctx context.Context, artistID string) (*Artist, error) {
	endpoint, err := pathID("/artists/%s", artistID)
	if err != nil {
		return nil, err
	}

	var a Artist
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SeveralArtists retrieves artists in batches of 50. Unknown ids are dropped.
func (c *SpotifyClient) SeveralArtists(ctx context.Context, artistIDs []string) ([]Artist, error) {
	var artists []Artist
	for _, batch := range lo.Chunk(lo.Uniq(artistIDs), artistsBatch) {
		var resp struct {
			Artists []*Artist `json:"artists"`
		}
		q := url.Values{"ids": {strings.Join(batch, ",")}}
		if err := c.Do(ctx, http.MethodGet, "/artists", q, nil, &resp); err != nil {
			return nil, err
		}
		for _, a := range resp.Artists {
			if a != nil {
				artists = append(artists, *a)
			}
		}
	}
	return artists, nil
}

// SearchTracks searches the catalog for tracks.
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}

	q := limitQuery(limit, 0)
	q.Set("q", query)
	q.Set("type", "track")

	var resp struct {
		Tracks Page[Track] `json:"tracks"`
	}
	if err := c.Do(ctx, http.MethodGet, "/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks.Items, nil
}

// CreatePlaylist creates an empty playlist owned by userID.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SimplePlaylist, error) {
	endpoint, err := pathID("/users/%s/playlists", userID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"name": name, "description": description, "public": public}

	var playlist SimplePlaylist
	if err := c.Do(ctx, http.MethodPost, endpoint, nil, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends uris to a playlist in order, 100 per request.
func (c *SpotifyClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint, err := pathID("/playlists/%s/tracks", playlistID)
	if err != nil {
		return err
	}

	for _, batch := range lo.Chunk(uris, addTracksBatch) {
		if err := c.Do(ctx, http.MethodPost, endpoint, nil, map[string]any{"uris": batch}, nil); err != nil {
			return err
		}
	}
	return nil
}

// RenamePlaylist changes a playlist's name.
func (c *SpotifyClient) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty playlist name", shared.ErrInvalidInput)
	}
	endpoint, err := pathID("/playlists/%s", playlistID)
	if err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPut, endpoint, nil, map[string]any{"name": name}, nil)
}

// UnfollowPlaylist removes a playlist from the user's library, which is how Spotify deletes playlists.
func (c *SpotifyClient) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	endpoint, err := pathID("/playlists/%s/followers", playlistID)
	if err != nil {
		return err
	}
	return c.Do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}
