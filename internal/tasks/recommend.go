package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
)

// RecommendLimit is the number of tracks requested and kept per recommendation run.
const RecommendLimit = 20

// ResolvedSeed is a [Seed] expanded into provider seeds.
type ResolvedSeed struct {
	Seed   Seed
	Source string // playlist, track or artist name; empty when it could not be looked up
	Seeds  services.RecommendationSeeds
}

// Recommendation is the result of one recommendation run.
type Recommendation struct {
	Seed   Seed             `json:"seed"`
	Source string           `json:"source,omitempty"`
	Tracks []services.Track `json:"tracks"`
}

// Seeds expands seed into at most [services.MaxSeeds] provider seeds.
//
// A playlist contributes its first playable tracks. Tracks and artists seed themselves.
func (e *Engine) Seeds(ctx context.Context, seed Seed) (*ResolvedSeed, error) {
	rs := &ResolvedSeed{Seed: seed}

	switch seed.Kind {
	case SeedPlaylist:
		playlist, err := e.api.Playlist(ctx, seed.ID)
		if err != nil {
			return nil, err
		}
		rs.Source = playlist.Name
		for _, item := range playlist.Tracks.Items {
			if len(rs.Seeds.Tracks) == services.MaxSeeds {
				break
			}
			if item.Playable() {
				rs.Seeds.Tracks = append(rs.Seeds.Tracks, item.Track.ID)
			}
		}
	case SeedTrack:
		rs.Seeds.Tracks = []string{seed.ID}
		if t, err := e.api.Track(ctx, seed.ID); err != nil {
			e.logger.Debug("could not look up seed track", "id", seed.ID, "error", err)
		} else {
			rs.Source = t.Name
		}
	case SeedArtist:
		rs.Seeds.Artists = []string{seed.ID}
		if a, err := e.api.Artist(ctx, seed.ID); err != nil {
			e.logger.Debug("could not look up seed artist", "id", seed.ID, "error", err)
		} else {
			rs.Source = a.Name
		}
	default:
		return nil, fmt.Errorf("%w: unknown seed kind %d", shared.ErrInvalidArgument, seed.Kind)
	}

	if rs.Seeds.Count() == 0 {
		return nil, fmt.Errorf("%w: %s %s has no playable tracks", shared.ErrNoSeeds, seed.Kind, seed.ID)
	}
	return rs, nil
}

// Recommend resolves seed and fetches recommendations. Provider order is kept and nothing is deduplicated.
func (e *Engine) Recommend(ctx context.Context, seed Seed, progress chan<- ProgressUpdate) (*Recommendation, error) {
	e.sendProgress(progress, resolveSeedUpdate(seed))
	rs, err := e.Seeds(ctx, seed)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchRecommendationsUpdate(rs.Seeds.Count()))
	tracks, err := e.api.Recommendations(ctx, rs.Seeds, RecommendLimit)
	if err != nil {
		return nil, err
	}
	if len(tracks) > RecommendLimit {
		tracks = tracks[:RecommendLimit]
	}

	e.logger.Info("recommendations fetched", "seed", seed.Kind, "id", seed.ID, "count", len(tracks))
	return &Recommendation{Seed: seed, Source: rs.Source, Tracks: tracks}, nil
}
