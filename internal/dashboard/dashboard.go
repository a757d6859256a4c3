// package dashboard assembles the read views shown by the CLI: profile, top lists, playlists, songs
// and artists.
//
// Every operation first checks the session; when logged out it returns [shared.ErrNotAuthenticated]
// without calling the provider.
package dashboard

import (
	"context"
	"math"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/samber/lo"
)

// Page sizes.
const (
	TopLimit       = 50
	RecentLimit    = 20
	PlaylistsLimit = 20
	SearchLimit    = 5
)

// Authenticator reports whether a session is active. [session.Controller] implements it.
type Authenticator interface {
	Authenticated() bool
}

// Dashboard reads the feature pages from a [services.SpotifyAPI].
type Dashboard struct {
	api    services.SpotifyAPI
	auth   Authenticator
	logger *log.Logger
}

func New(api services.SpotifyAPI, auth Authenticator, logger *log.Logger) *Dashboard {
	return &Dashboard{
		api:    api,
		auth:   auth,
		logger: shared.WithLogger(logger, "component", "dashboard"),
	}
}

func (d *Dashboard) guard() error {
	if d.auth == nil || !d.auth.Authenticated() {
		return shared.ErrNotAuthenticated
	}
	return nil
}

// Profile is the home page.
type Profile struct {
	User          *services.User `json:"user"`
	PlaylistCount int            `json:"playlist_count"`
}

// Profile loads the current user and their playlist total.
func (d *Dashboard) Profile(ctx context.Context) (*Profile, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}

	user, err := d.api.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	page, err := d.api.UserPlaylists(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, PlaylistCount: page.Total}, nil
}

// TopArtists lists the user's top artists for tr.
func (d *Dashboard) TopArtists(ctx context.Context, tr services.TimeRange) ([]services.Artist, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	page, err := d.api.TopArtists(ctx, tr, TopLimit)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// TopTracks lists the user's top tracks for tr.
func (d *Dashboard) TopTracks(ctx context.Context, tr services.TimeRange) ([]services.Track, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	page, err := d.api.TopTracks(ctx, tr, TopLimit)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Recent lists recently played tracks.
func (d *Dashboard) Recent(ctx context.Context) ([]services.PlayHistory, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	return d.api.RecentlyPlayed(ctx, RecentLimit)
}

// Playlists returns one page of the user's playlists starting at offset.
func (d *Dashboard) Playlists(ctx context.Context, offset int) (*services.Page[services.SimplePlaylist], error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	return d.api.UserPlaylists(ctx, PlaylistsLimit, offset)
}

// FeatureAverages are mean audio features over the tracks that have them.
type FeatureAverages struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
	Valence          float64 `json:"valence"`
	Count            int     `json:"count"`
}

// Average computes [FeatureAverages] ignoring nil entries. Zero when none remain.
func Average(features []*services.AudioFeatures) FeatureAverages {
	present := lo.Compact(features)
	if len(present) == 0 {
		return FeatureAverages{}
	}

	mean := func(get func(*services.AudioFeatures) float64) float64 {
		return lo.SumBy(present, get) / float64(len(present))
	}
	return FeatureAverages{
		Acousticness:     mean(func(f *services.AudioFeatures) float64 { return f.Acousticness }),
		Danceability:     mean(func(f *services.AudioFeatures) float64 { return f.Danceability }),
		Energy:           mean(func(f *services.AudioFeatures) float64 { return f.Energy }),
		Instrumentalness: mean(func(f *services.AudioFeatures) float64 { return f.Instrumentalness }),
		Liveness:         mean(func(f *services.AudioFeatures) float64 { return f.Liveness }),
		Speechiness:      mean(func(f *services.AudioFeatures) float64 { return f.Speechiness }),
		Valence:          mean(func(f *services.AudioFeatures) float64 { return f.Valence }),
		Count:            len(present),
	}
}

// PlaylistDetail is a playlist with its playable tracks and average features.
type PlaylistDetail struct {
	Playlist *services.Playlist `json:"playlist"`
	Tracks   []services.Track   `json:"tracks"`
	Averages FeatureAverages    `json:"averages"`
}

// PlaylistDetail loads a playlist, all of its tracks and their feature averages.
func (d *Dashboard) PlaylistDetail(ctx context.Context, playlistID string) (*PlaylistDetail, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}

	playlist, err := d.api.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	tracks, err := d.api.AllPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	detail := &PlaylistDetail{Playlist: playlist, Tracks: tracks}
	if len(tracks) == 0 {
		return detail, nil
	}

	features, err := d.api.AudioFeatures(ctx, lo.Map(tracks, func(t services.Track, _ int) string { return t.ID }))
	if err != nil {
		return nil, err
	}
	detail.Averages = Average(features)
	return detail, nil
}

// DeletePlaylist unfollows the playlist.
func (d *Dashboard) DeletePlaylist(ctx context.Context, playlistID string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if err := d.api.UnfollowPlaylist(ctx, playlistID); err != nil {
		return err
	}
	d.logger.Info("playlist removed", "id", playlistID)
	return nil
}

// RenamePlaylist changes a playlist's name.
func (d *Dashboard) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if err := d.api.RenamePlaylist(ctx, playlistID, name); err != nil {
		return err
	}
	d.logger.Info("playlist renamed", "id", playlistID, "name", name)
	return nil
}

// SongDetail is a track with its features and analysis summary.
type SongDetail struct {
	Track    *services.Track         `json:"track"`
	Features *services.AudioFeatures `json:"features"`
	Bars     int                     `json:"bars"`
	Beats    int                     `json:"beats"`
	Sections int                     `json:"sections"`
	Segments int                     `json:"segments"`
	Key      string                  `json:"key"`
	Mode     string                  `json:"mode"`
	Tempo    int                     `json:"tempo"`
}

// SongDetail loads a track, its audio features and its analysis.
func (d *Dashboard) SongDetail(ctx context.Context, trackID string) (*SongDetail, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}

	track, err := d.api.Track(ctx, trackID)
	if err != nil {
		return nil, err
	}
	features, err := d.api.AudioFeature(ctx, trackID)
	if err != nil {
		return nil, err
	}
	analysis, err := d.api.AudioAnalysis(ctx, trackID)
	if err != nil {
		return nil, err
	}

	return &SongDetail{
		Track:    track,
		Features: features,
		Bars:     len(analysis.Bars),
		Beats:    len(analysis.Beats),
		Sections: len(analysis.Sections),
		Segments: len(analysis.Segments),
		Key:      shared.KeyName(features.Key),
		Mode:     shared.ModeName(features.Mode),
		Tempo:    int(math.Round(features.Tempo)),
	}, nil
}

// ArtistDetail loads an artist.
func (d *Dashboard) ArtistDetail(ctx context.Context, artistID string) (*services.Artist, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	return d.api.Artist(ctx, artistID)
}

// Search finds tracks matching query.
func (d *Dashboard) Search(ctx context.Context, query string) ([]services.Track, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	return d.api.SearchTracks(ctx, query, SearchLimit)
}
