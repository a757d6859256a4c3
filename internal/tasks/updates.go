package tasks

import (
	"fmt"

	"github.com/desertthunder/spotdash/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolveSeed Phase = iota
	FetchRecommendations
	FetchTracks
	FetchFeatures
	ClusterTracks
	LabelClusters
	CreatePlaylist
	AddTracks
	Rollback
)

func (p Phase) String() string {
	switch p {
	case ResolveSeed:
		return "resolve_seed"
	case FetchRecommendations:
		return "fetch_recommendations"
	case FetchTracks:
		return "fetch_tracks"
	case FetchFeatures:
		return "fetch_features"
	case ClusterTracks:
		return "cluster_tracks"
	case LabelClusters:
		return "label_clusters"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case Rollback:
		return "rollback"
	default:
		return ""
	}
}

func resolveSeedUpdate(seed Seed) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSeed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving %s seed %s...", seed.Kind, seed.ID),
	}
}

func fetchRecommendationsUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRecommendations,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching recommendations from %d seed(s)...", n),
	}
}

func fetchTracksUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching tracks for playlist %s...", playlistID),
	}
}

func fetchFeaturesUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching audio features for %d tracks...", n),
	}
}

func clusterUpdate(n, k int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClusterTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Clustering %d tracks into %d groups...", n, k),
	}
}

func labelClustersUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LabelClusters,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Labelling %d playlists by genre...", n),
	}
}

func createPlaylistUpdate(pl *services.SimplePlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(n int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks to %s...", n, name),
	}
}

func rollbackUpdate(pl *services.SimplePlaylist, err error) ProgressUpdate {
	msg := fmt.Sprintf("✓ Removed partially created playlist %s", pl.Name)
	if err != nil {
		msg = fmt.Sprintf("✗ Could not remove playlist %s: %v", pl.Name, err)
	}
	return ProgressUpdate{
		Phase:   Rollback,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}
