package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/samber/lo"
)

// Save creates one playlist for the current user and appends the tracks' URIs in order.
//
// Failures after validation wrap [shared.ErrSaveFailed]. When adding tracks fails and rollback is enabled
// the new playlist is unfollowed; a failed rollback is logged and joined into the returned error.
func (e *Engine) Save(ctx context.Context, name string, public bool, tracks []services.Track, progress chan<- ProgressUpdate) (*services.SimplePlaylist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	uris := lo.FilterMap(tracks, func(t services.Track, _ int) (string, bool) {
		return t.URI, t.URI != ""
	})
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no tracks to save", shared.ErrInvalidInput)
	}

	user, err := e.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not load profile: %w", shared.ErrSaveFailed, err)
	}

	playlist, err := e.api.CreatePlaylist(ctx, user.ID, name, e.description, public)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create %q: %w", shared.ErrSaveFailed, name, err)
	}
	e.sendProgress(progress, createPlaylistUpdate(playlist))

	e.sendProgress(progress, addTracksUpdate(len(uris), playlist.Name))
	if err := e.api.AddTracks(ctx, playlist.ID, uris); err != nil {
		saveErr := fmt.Errorf("%w: could not add tracks to %q: %w", shared.ErrSaveFailed, name, err)
		if !e.rollback {
			return nil, saveErr
		}

		rerr := e.api.UnfollowPlaylist(ctx, playlist.ID)
		e.sendProgress(progress, rollbackUpdate(playlist, rerr))
		if rerr != nil {
			e.logger.Error("rollback failed", "playlist", playlist.ID, "error", rerr)
			return nil, errors.Join(saveErr, fmt.Errorf("rollback of %s failed: %w", playlist.ID, rerr))
		}
		e.logger.Warn("rolled back partially created playlist", "playlist", playlist.ID)
		return nil, saveErr
	}

	playlist.Tracks.Total = len(uris)
	e.logger.Info("playlist saved", "id", playlist.ID, "name", name, "tracks", len(uris))
	return playlist, nil
}

// ClusterPlaylistName is "<prefix> - <label>", or the label alone when prefix is blank.
func ClusterPlaylistName(prefix, label string) string {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		return label
	}
	return prefix + " - " + label
}

// SaveCluster saves cluster's tracks through [Engine.Save].
func (e *Engine) SaveCluster(ctx context.Context, prefix string, public bool, cluster Cluster, progress chan<- ProgressUpdate) (*services.SimplePlaylist, error) {
	return e.Save(ctx, ClusterPlaylistName(prefix, cluster.Label), public, cluster.Tracks, progress)
}
