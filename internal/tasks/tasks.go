// package tasks implements the multi-step playlist pipelines: recommendations, saving and splitting.
//
// The core abstraction is Pipeline, which orchestrates provider calls for one operation.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
)

// SeedKind is the type of entity a recommendation is generated from.
type SeedKind int

const (
	SeedPlaylist SeedKind = iota
	SeedTrack
	SeedArtist
)

func (k SeedKind) String() string {
	switch k {
	case SeedPlaylist:
		return "playlist"
	case SeedTrack:
		return "track"
	case SeedArtist:
		return "artist"
	default:
		return ""
	}
}

func (k SeedKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Seed is the user's pick for a recommendation run.
type Seed struct {
	Kind SeedKind `json:"kind"`
	ID   string   `json:"id"`
}

// NewSeed builds a seed from kind and an id, URI or share link.
func NewSeed(kind SeedKind, input string) (Seed, error) {
	id := services.ParseID(input)
	if id == "" {
		return Seed{}, fmt.Errorf("%w: %s seed needs an id", shared.ErrMissingArgument, kind)
	}
	if kind < SeedPlaylist || kind > SeedArtist {
		return Seed{}, fmt.Errorf("%w: unknown seed kind %d", shared.ErrInvalidArgument, kind)
	}
	return Seed{Kind: kind, ID: id}, nil
}

// Pipeline defines the playlist operations that span several provider calls.
type Pipeline interface {
	// Recommend resolves seed and fetches up to [RecommendLimit] recommended tracks.
	Recommend(ctx context.Context, seed Seed, progress chan<- ProgressUpdate) (*Recommendation, error)

	// Save creates a playlist called name and appends tracks to it in order.
	Save(ctx context.Context, name string, public bool, tracks []services.Track, progress chan<- ProgressUpdate) (*services.SimplePlaylist, error)

	// Split groups a playlist's tracks by audio features.
	Split(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*SplitResult, error)

	// SaveCluster saves one split group as a playlist named after prefix and the group label.
	SaveCluster(ctx context.Context, prefix string, public bool, cluster Cluster, progress chan<- ProgressUpdate) (*services.SimplePlaylist, error)
}

// Options configures an [Engine].
type Options struct {
	API       services.SpotifyAPI
	Clusterer Clusterer
	Logger    *log.Logger

	// RollbackOnFailure unfollows a newly created playlist when adding tracks fails.
	RollbackOnFailure bool
	Description       string
}

// Engine implements [Pipeline] over a [services.SpotifyAPI].
type Engine struct {
	api         services.SpotifyAPI
	clusterer   Clusterer
	logger      *log.Logger
	rollback    bool
	description string
}

var _ Pipeline = (*Engine)(nil)

// NewEngine creates an Engine. A nil Clusterer defaults to [KMeansClusterer].
func NewEngine(opts Options) *Engine {
	clusterer := opts.Clusterer
	if clusterer == nil {
		clusterer = NewKMeansClusterer()
	}
	description := strings.TrimSpace(opts.Description)
	if description == "" {
		description = "Created by spotdash"
	}

	return &Engine{
		api:         opts.API,
		clusterer:   clusterer,
		logger:      shared.WithLogger(opts.Logger, "component", "tasks"),
		rollback:    opts.RollbackOnFailure,
		description: description,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// channel full, drop
	}
}
