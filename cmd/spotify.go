package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/spotdash/internal/dashboard"
	"github.com/desertthunder/spotdash/internal/formatter"
	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/ui"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

func trackRows(tracks []services.Track) [][]string {
	return lo.Map(tracks, func(t services.Track, _ int) []string {
		return []string{t.Name, t.ArtistNames(), t.Album.Name, shared.FormatDuration(t.DurationMS)}
	})
}

var trackHeaders = []string{"Title", "Artist", "Album", "Length"}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// Profile shows the home page.
func (r *Runner) Profile(ctx context.Context, cmd *cli.Command) error {
	profile, err := r.dashboard.Profile(ctx)
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, profile, func() error {
		u := profile.User
		r.writePlainHeader(lo.CoalesceOrEmpty(u.DisplayName, u.ID))
		return r.writePlain("%s\n", ui.KeyValues([][2]string{
			{"Followers", strconv.Itoa(u.Followers.Total)},
			{"Playlists", strconv.Itoa(profile.PlaylistCount)},
			{"Country", u.Country},
			{"Plan", u.Product},
			{"Link", u.ExternalURLs.Spotify},
		}))
	})
}

// TopArtists lists the user's top artists.
func (r *Runner) TopArtists(ctx context.Context, cmd *cli.Command) error {
	tr, err := services.ParseTimeRange(cmd.String("range"))
	if err != nil {
		return err
	}

	artists, err := r.dashboard.TopArtists(ctx, tr)
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, artists, func() error {
		r.writePlainHeader("Top Artists · " + tr.Label())
		rows := lo.Map(artists, func(a services.Artist, _ int) []string {
			return []string{a.Name, strings.Join(lo.Slice(a.Genres, 0, 2), ", "), strconv.Itoa(a.Popularity)}
		})
		return r.writePlain("%s\n", ui.Table([]string{"Artist", "Genres", "Popularity"}, rows))
	})
}

// TopTracks lists the user's top tracks.
func (r *Runner) TopTracks(ctx context.Context, cmd *cli.Command) error {
	tr, err := services.ParseTimeRange(cmd.String("range"))
	if err != nil {
		return err
	}

	tracks, err := r.dashboard.TopTracks(ctx, tr)
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, tracks, func() error {
		r.writePlainHeader("Top Tracks · " + tr.Label())
		return r.writePlain("%s\n", ui.Table(trackHeaders, trackRows(tracks)))
	})
}

// Recent lists recently played tracks.
func (r *Runner) Recent(ctx context.Context, cmd *cli.Command) error {
	history, err := r.dashboard.Recent(ctx)
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, history, func() error {
		r.writePlainHeader("Recently Played")
		rows := lo.Map(history, func(h services.PlayHistory, _ int) []string {
			return []string{h.Track.Name, h.Track.ArtistNames(), h.PlayedAt}
		})
		return r.writePlain("%s\n", ui.Table([]string{"Title", "Artist", "Played At"}, rows))
	})
}

// Playlists lists one page of the user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	offset := cmd.Int("offset")
	if offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", shared.ErrInvalidFlag)
	}

	page, err := r.dashboard.Playlists(ctx, offset)
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, page, func() error {
		r.writePlainHeader(fmt.Sprintf("Playlists (%d)", page.Total))
		rows := lo.Map(page.Items, func(p services.SimplePlaylist, _ int) []string {
			return []string{p.Name, p.ID, strconv.Itoa(p.Tracks.Total), shared.VisibilityString(p.Public)}
		})
		r.writePlain("%s\n", ui.Table([]string{"Name", "ID", "Tracks", "Visibility"}, rows))
		if page.HasNext() {
			r.writePlain("%s\n", ui.Styles.Help(fmt.Sprintf("More: spotdash me playlists --offset %d", offset+len(page.Items))))
		}
		return nil
	})
}

// PlaylistShow shows a playlist, or exports it when --format or --output is set.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	detail, err := r.dashboard.PlaylistDetail(ctx, services.ParseID(id))
	if err != nil {
		return err
	}

	if cmd.String("format") != "" || cmd.String("output") != "" {
		return r.exportPlaylist(cmd, detail)
	}

	return r.writeOutput(cmd, detail, func() error {
		p := detail.Playlist
		r.writePlainHeader(p.Name)
		if p.Description != "" {
			r.writePlain("%s\n\n", p.Description)
		}
		r.writePlain("%s\n\n", ui.KeyValues([][2]string{
			{"Owner", lo.CoalesceOrEmpty(p.Owner.DisplayName, p.Owner.ID)},
			{"Followers", strconv.Itoa(p.Followers.Total)},
			{"Visibility", shared.VisibilityString(p.Public)},
			{"Tracks", strconv.Itoa(len(detail.Tracks))},
		}))
		r.writePlain("%s\n\n", averagesView(detail.Averages))
		return r.writePlain("%s\n", ui.Table(trackHeaders, trackRows(detail.Tracks)))
	})
}

func averagesView(a dashboard.FeatureAverages) string {
	if a.Count == 0 {
		return ui.Styles.Help("No audio features available")
	}
	pct := func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) }
	return ui.KeyValues([][2]string{
		{"Acousticness", pct(a.Acousticness)},
		{"Danceability", pct(a.Danceability)},
		{"Energy", pct(a.Energy)},
		{"Instrumentalness", pct(a.Instrumentalness)},
		{"Liveness", pct(a.Liveness)},
		{"Speechiness", pct(a.Speechiness)},
		{"Valence", pct(a.Valence)},
	})
}

func (r *Runner) exportPlaylist(cmd *cli.Command, detail *dashboard.PlaylistDetail) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	list := formatter.FromPlaylist(detail.Playlist, detail.Tracks)

	path := cmd.String("output")
	if path == "" {
		data, err := formatter.Render(list, format)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	if format == formatter.FormatMarkdown {
		result, err := formatter.WriteMarkdownExport(r.httpClient, list, path)
		if err != nil {
			return err
		}
		r.logger.Info("exported playlist", "dir", result.Directory, "files", len(result.Files))
		return r.writePlain("%s\n", ui.Styles.OK("Exported to "+result.Directory))
	}

	if err := formatter.WriteFile(list, format, path); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("Exported to "+path))
}

// PlaylistRename renames a playlist.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	if err := r.dashboard.RenamePlaylist(ctx, services.ParseID(id), name); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("Renamed to %q", name)))
}

// PlaylistDelete unfollows a playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	if err := r.dashboard.DeletePlaylist(ctx, services.ParseID(id)); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("Playlist removed"))
}

// TrackShow shows the song page.
func (r *Runner) TrackShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	song, err := r.dashboard.SongDetail(ctx, services.ParseID(id))
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, song, func() error {
		t := song.Track
		r.writePlainHeader(t.Name + " · " + t.ArtistNames())
		r.writePlain("%s\n\n", ui.KeyValues([][2]string{
			{"Album", t.Album.Name},
			{"Length", shared.FormatDuration(t.DurationMS)},
			{"Popularity", strconv.Itoa(t.Popularity)},
			{"Key", song.Key + " " + song.Mode},
			{"Tempo", fmt.Sprintf("%d BPM", song.Tempo)},
			{"Bars", strconv.Itoa(song.Bars)},
			{"Beats", strconv.Itoa(song.Beats)},
			{"Sections", strconv.Itoa(song.Sections)},
			{"Segments", strconv.Itoa(song.Segments)},
		}))
		return r.writePlain("%s\n", averagesView(dashboard.Average([]*services.AudioFeatures{song.Features})))
	})
}

// ArtistShow shows the artist page.
func (r *Runner) ArtistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	artist, err := r.dashboard.ArtistDetail(ctx, services.ParseID(id))
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, artist, func() error {
		r.writePlainHeader(artist.Name)
		return r.writePlain("%s\n", ui.KeyValues([][2]string{
			{"Followers", strconv.Itoa(artist.Followers.Total)},
			{"Popularity", strconv.Itoa(artist.Popularity)},
			{"Genres", strings.Join(artist.Genres, ", ")},
			{"Link", artist.ExternalURLs.Spotify},
		}))
	})
}

// Search finds tracks.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}

	tracks, err := r.dashboard.Search(ctx, query)
	if err != nil {
		return err
	}

	return r.writeOutput(cmd, tracks, func() error {
		rows := lo.Map(tracks, func(t services.Track, _ int) []string {
			return []string{t.Name, t.ArtistNames(), t.ID}
		})
		return r.writePlain("%s\n", ui.Table([]string{"Title", "Artist", "ID"}, rows))
	})
}
