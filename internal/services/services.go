// package services wraps the HTTP APIs spotdash talks to
//
// Spotify Web API, companion auth service
package services

import "context"

// SpotifyAPI is the subset of the Web API the dashboard and pipelines use.
// [SpotifyClient] implements it.
type SpotifyAPI interface {
	CurrentUser(ctx context.Context) (*User, error)
	UserPlaylists(ctx context.Context, limit, offset int) (*Page[SimplePlaylist], error)
	TopArtists(ctx context.Context, tr TimeRange, limit int) (*Page[Artist], error)
	TopTracks(ctx context.Context, tr TimeRange, limit int) (*Page[Track], error)
	RecentlyPlayed(ctx context.Context, limit int) ([]PlayHistory, error)

	Playlist(ctx context.Context, playlistID string) (*Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*Page[PlaylistItem], error)
	AllPlaylistTracks(ctx context.Context, playlistID string) ([]Track, error)

	AudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error)
	AudioFeature(ctx context.Context, trackID string) (*AudioFeatures, error)
	AudioAnalysis(ctx context.Context, trackID string) (*AudioAnalysis, error)
	Recommendations(ctx context.Context, seeds RecommendationSeeds, limit int) ([]Track, error)

	Track(ctx context.Context, trackID string) (*Track, error)
	Artist(ctx context.Context, artistID string) (*Artist, error)
	SeveralArtists(ctx context.Context, artistIDs []string) ([]Artist, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)

	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SimplePlaylist, error)
	AddTracks(ctx context.Context, playlistID string, uris []string) error
	RenamePlaylist(ctx context.Context, playlistID, name string) error
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

var _ SpotifyAPI = (*SpotifyClient)(nil)
