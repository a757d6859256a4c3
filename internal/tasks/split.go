package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/samber/lo"
)

// Splitting bounds.
const (
	MinSplitTracks   = 10 // fewer tracks with features than this cannot be split
	MinClusters      = 2
	MaxClusters      = 5
	MinClusterSize   = 5 // smaller groups are dropped
	MaxClusterSize   = 20
	tracksPerCluster = 10
)

// Clusterer partitions feature vectors into k groups, returning one group index in [0, k) per vector.
type Clusterer interface {
	Cluster(vectors [][]float64, k int) ([]int, error)
}

// ClustererFunc adapts a function to [Clusterer].
type ClustererFunc func(vectors [][]float64, k int) ([]int, error)

func (f ClustererFunc) Cluster(vectors [][]float64, k int) ([]int, error) { return f(vectors, k) }

// Cluster is one derived playlist.
type Cluster struct {
	Index  int              `json:"index"` // group index assigned by the clusterer
	Label  string           `json:"label"` // most common lead-artist genre, or "Playlist N"
	Tracks []services.Track `json:"tracks"`
}

// SplitResult is the outcome of [Engine.Split].
type SplitResult struct {
	PlaylistID string    `json:"playlist_id"`
	Analyzed   int       `json:"analyzed"` // tracks with audio features
	K          int       `json:"k"`
	Clusters   []Cluster `json:"clusters"`

	Insufficient bool   `json:"insufficient,omitempty"`
	Message      string `json:"message,omitempty"`
}

// FeatureVector is the clustering input: acousticness, danceability, liveness, loudness, speechiness.
func FeatureVector(f *services.AudioFeatures) []float64 {
	return []float64{f.Acousticness, f.Danceability, f.Liveness, f.Loudness, f.Speechiness}
}

// ClusterCount is floor(n/10) clamped to [MinClusters, MaxClusters].
func ClusterCount(n int) int {
	return min(max(n/tracksPerCluster, MinClusters), MaxClusters)
}

// Split fetches a playlist's tracks and their audio features and groups them with the [Clusterer].
//
// Tracks without features are dropped. With fewer than [MinSplitTracks] left the result is marked
// insufficient and the error wraps [shared.ErrNotEnoughTracks]; the clusterer is not called.
func (e *Engine) Split(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*SplitResult, error) {
	e.sendProgress(progress, fetchTracksUpdate(playlistID))
	tracks, err := e.api.AllPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchFeaturesUpdate(len(tracks)))
	var features []*services.AudioFeatures
	if len(tracks) > 0 {
		ids := lo.Map(tracks, func(t services.Track, _ int) string { return t.ID })
		if features, err = e.api.AudioFeatures(ctx, ids); err != nil {
			return nil, err
		}
	}

	var (
		analyzed []services.Track
		vectors  [][]float64
	)
	for i, t := range tracks {
		if i < len(features) && features[i] != nil {
			analyzed = append(analyzed, t)
			vectors = append(vectors, FeatureVector(features[i]))
		}
	}

	result := &SplitResult{PlaylistID: playlistID, Analyzed: len(analyzed)}
	if len(analyzed) < MinSplitTracks {
		result.Insufficient = true
		result.Message = fmt.Sprintf("This playlist has %d tracks with audio features; at least %d are needed to split it.",
			len(analyzed), MinSplitTracks)
		return result, fmt.Errorf("%w: %d of %d required", shared.ErrNotEnoughTracks, len(analyzed), MinSplitTracks)
	}

	result.K = ClusterCount(len(analyzed))
	e.sendProgress(progress, clusterUpdate(len(analyzed), result.K))
	assignments, err := e.clusterer.Cluster(vectors, result.K)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrClustering, err)
	}

	result.Clusters, err = groupClusters(analyzed, assignments, result.K)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, labelClustersUpdate(len(result.Clusters)))
	e.labelClusters(ctx, result.Clusters)

	e.logger.Info("playlist split", "playlist", playlistID, "tracks", len(analyzed), "k", result.K, "kept", len(result.Clusters))
	return result, nil
}

// groupClusters buckets tracks by assignment in cluster-index order, keeping original track order,
// capping each bucket at [MaxClusterSize] and dropping those under [MinClusterSize].
func groupClusters(tracks []services.Track, assignments []int, k int) ([]Cluster, error) {
	if len(assignments) != len(tracks) {
		return nil, fmt.Errorf("%w: %d assignments for %d tracks", shared.ErrClustering, len(assignments), len(tracks))
	}

	buckets := make([][]services.Track, k)
	for i, c := range assignments {
		if c < 0 || c >= k {
			return nil, fmt.Errorf("%w: assignment %d out of range [0, %d)", shared.ErrClustering, c, k)
		}
		buckets[c] = append(buckets[c], tracks[i])
	}

	var out []Cluster
	for idx, members := range buckets {
		if len(members) > MaxClusterSize {
			members = members[:MaxClusterSize]
		}
		if len(members) < MinClusterSize {
			continue
		}
		out = append(out, Cluster{Index: idx, Tracks: members})
	}
	return out, nil
}

// labelClusters names each cluster after the most common first genre of its lead artists.
// Lookup failures fall back to "Playlist N".
func (e *Engine) labelClusters(ctx context.Context, clusters []Cluster) {
	leadIDs := func(c Cluster) []string {
		return lo.FilterMap(c.Tracks, func(t services.Track, _ int) (string, bool) {
			lead, ok := t.LeadArtist()
			return lead.ID, ok && lead.ID != ""
		})
	}

	var ids []string
	for _, c := range clusters {
		ids = append(ids, leadIDs(c)...)
	}

	genres := map[string]string{}
	if len(ids) > 0 {
		artists, err := e.api.SeveralArtists(ctx, ids)
		if err != nil {
			e.logger.Warn("could not fetch artists for labels", "error", err)
		}
		for _, a := range artists {
			if len(a.Genres) > 0 {
				genres[a.ID] = a.Genres[0]
			}
		}
	}

	for i := range clusters {
		clusters[i].Label = topGenre(leadIDs(clusters[i]), genres)
		if clusters[i].Label == "" {
			clusters[i].Label = fmt.Sprintf("Playlist %d", i+1)
		}
	}
}

// topGenre returns the most frequent genre; ties go to the genre seen first.
func topGenre(artistIDs []string, genres map[string]string) string {
	seen := lo.FilterMap(artistIDs, func(id string, _ int) (string, bool) {
		g, ok := genres[id]
		return g, ok
	})
	if len(seen) == 0 {
		return ""
	}

	counts := lo.CountValues(seen)
	best := seen[0]
	for _, g := range lo.Uniq(seen) {
		if counts[g] > counts[best] {
			best = g
		}
	}
	return best
}
