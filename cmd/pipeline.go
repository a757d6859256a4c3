package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotdash/internal/formatter"
	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/tasks"
	"github.com/desertthunder/spotdash/internal/ui"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

// seedFromFlags reads exactly one of --playlist, --track, --artist.
func seedFromFlags(cmd *cli.Command) (tasks.Seed, error) {
	type option struct {
		kind  tasks.SeedKind
		value string
	}
	set := lo.Filter([]option{
		{tasks.SeedPlaylist, cmd.String("playlist")},
		{tasks.SeedTrack, cmd.String("track")},
		{tasks.SeedArtist, cmd.String("artist")},
	}, func(o option, _ int) bool { return strings.TrimSpace(o.value) != "" })

	switch len(set) {
	case 0:
		return tasks.Seed{}, fmt.Errorf("%w: one of --playlist, --track or --artist", shared.ErrMissingArgument)
	case 1:
		return tasks.NewSeed(set[0].kind, set[0].value)
	default:
		return tasks.Seed{}, fmt.Errorf("%w: use only one of --playlist, --track or --artist", shared.ErrInvalidFlag)
	}
}

type recommendOutput struct {
	*tasks.Recommendation
	Saved *services.SimplePlaylist `json:"saved,omitempty"`
}

// Recommend fetches recommendations for a seed and optionally saves them as a playlist.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	seed, err := seedFromFlags(cmd)
	if err != nil {
		return err
	}
	name := cmd.String("save")
	useJSON := cmd.Bool("json")

	r.logger.Info("recommending", "seed", seed.Kind, "id", seed.ID)

	progressCh, wait := r.startProgress(useJSON)
	out := recommendOutput{}
	out.Recommendation, err = r.engine.Recommend(ctx, seed, progressCh)
	if err == nil && name != "" {
		out.Saved, err = r.engine.Save(ctx, name, !cmd.Bool("private"), out.Tracks, progressCh)
	}
	wait()

	if err != nil {
		return err
	}

	return r.writeOutput(cmd, out, func() error {
		title := "Recommendations"
		if out.Source != "" {
			title += " from " + out.Source
		}
		r.writePlainln("%s", ui.Styles.Title(title))
		r.writePlain("%s\n", ui.Table(trackHeaders, trackRows(out.Tracks)))
		if out.Saved != nil {
			r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("Saved %q (%d tracks) %s", out.Saved.Name, out.Saved.Tracks.Total, out.Saved.ID)))
		} else if len(out.Tracks) > 0 {
			r.writePlain("%s\n", ui.Styles.Help("Save them with --save NAME"))
		}
		return nil
	})
}

type splitOutput struct {
	*tasks.SplitResult
	Saved []*services.SimplePlaylist `json:"saved,omitempty"`
}

// PlaylistSplit clusters a playlist by audio features and optionally saves each group.
func (r *Runner) PlaylistSplit(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	useJSON := cmd.Bool("json")

	progressCh, wait := r.startProgress(useJSON)
	result, err := r.engine.Split(ctx, services.ParseID(id), progressCh)

	out := splitOutput{SplitResult: result}
	if err == nil && cmd.Bool("save") {
		prefix := cmd.String("prefix")
		if prefix == "" {
			prefix = r.config.Recommend.SplitPrefix
		}
		for _, cluster := range result.Clusters {
			pl, serr := r.engine.SaveCluster(ctx, prefix, !cmd.Bool("private"), cluster, progressCh)
			if serr != nil {
				err = serr
				break
			}
			out.Saved = append(out.Saved, pl)
		}
	}
	wait()

	if errors.Is(err, shared.ErrNotEnoughTracks) && result != nil {
		if useJSON {
			return r.writeJSON(result, cmd.Bool("pretty"))
		}
		return r.writePlain("%s\n", ui.Styles.Warn(result.Message))
	}
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, out, func() error {
		r.writePlainln("%s", ui.Styles.Title(fmt.Sprintf("%d groups from %d tracks", len(result.Clusters), result.Analyzed)))
		groups := lo.Map(result.Clusters, func(c tasks.Cluster, _ int) formatter.Group {
			return formatter.Group{Label: c.Label, Tracks: c.Tracks}
		})
		r.output.Write(formatter.GroupsToText(groups))
		for _, pl := range out.Saved {
			r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("Saved %q (%d tracks)", pl.Name, pl.Tracks.Total)))
		}
		if len(out.Saved) == 0 && len(result.Clusters) > 0 {
			r.writePlain("\n%s\n", ui.Styles.Help("Save them with --save [--prefix NAME]"))
		}
		return nil
	})
}
