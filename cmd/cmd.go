// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func rangeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "range",
		Aliases: []string{"r"},
		Usage:   "Time range: all, 6m or 4w",
		Value:   "all",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize token storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand manages the login session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, inspect and end the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in through the companion service in your browser",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the login URL instead of opening it",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the redirect (defaults to auth.login_timeout)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "import",
				Usage: "Import tokens from a redirect URL carrying them in its fragment",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.AuthImport,
			},
			{
				Name:   "status",
				Usage:  "Show the current session",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token now",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored tokens",
				Action: r.AuthLogout,
			},
		},
	}
}

// meCommand shows the current user's pages
func meCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "me",
		Usage: "Your profile, top items, recent plays and playlists",
		Commands: []*cli.Command{
			{
				Name:   "profile",
				Usage:  "Show your profile",
				Flags:  outputFlags(),
				Action: r.Profile,
			},
			{
				Name:   "top-artists",
				Usage:  "List your top artists",
				Flags:  append(outputFlags(), rangeFlag()),
				Action: r.TopArtists,
			},
			{
				Name:   "top-tracks",
				Usage:  "List your top tracks",
				Flags:  append(outputFlags(), rangeFlag()),
				Action: r.TopTracks,
			},
			{
				Name:   "recent",
				Usage:  "List recently played tracks",
				Flags:  outputFlags(),
				Action: r.Recent,
			},
			{
				Name:  "playlists",
				Usage: "List your playlists",
				Flags: append(outputFlags(),
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Index of the first playlist",
					},
				),
				Action: r.Playlists,
			},
		},
	}
}

// playlistCommand works on one playlist
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Show, rename, delete or split a playlist",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show a playlist with its tracks and average audio features",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: append(outputFlags(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: text, csv or md",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Export path (a directory for md)",
					},
				),
				Action: r.PlaylistShow,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:  "delete",
				Usage: "Remove a playlist from your library",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistDelete,
			},
			{
				Name:  "split",
				Usage: "Split a playlist into groups of similar-sounding tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: append(outputFlags(),
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save every group as a new playlist",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Name prefix for saved groups (defaults to recommend.split_prefix)",
					},
					&cli.BoolFlag{
						Name:  "private",
						Usage: "Create saved playlists as private",
					},
				),
				Action: r.PlaylistSplit,
			},
		},
	}
}

func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "Song details",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show a track with its audio features and analysis",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(),
				Action: r.TrackShow,
			},
		},
	}
}

func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artist",
		Usage: "Artist details",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show an artist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(),
				Action: r.ArtistShow,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags:  outputFlags(),
		Action: r.Search,
	}
}

// recommendCommand runs the recommendation pipeline
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Recommend tracks from a playlist, track or artist and optionally save them",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Seed playlist ID, URI or link",
			},
			&cli.StringFlag{
				Name:  "track",
				Usage: "Seed track ID, URI or link",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Seed artist ID, URI or link",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Save the recommendations as a playlist with this name",
			},
			&cli.BoolFlag{
				Name:  "private",
				Usage: "Create the saved playlist as private",
			},
		),
		Action: r.Recommend,
	}
}

// companionCommand runs or probes the companion login service
func companionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "companion",
		Usage: "Companion login and token refresh service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the companion service (needs the client secret)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (defaults to companion.host:companion.port)",
					},
					&cli.DurationFlag{
						Name:  "shutdown-timeout",
						Usage: "Grace period for in-flight requests on shutdown",
						Value: 10 * time.Second,
					},
				},
				Action: r.CompanionServe,
			},
			{
				Name:   "health",
				Usage:  "Check that the companion service is reachable",
				Action: r.CompanionHealth,
			},
			{
				Name:  "get",
				Usage: "Direct GET to the companion service, prints the raw response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.CompanionGet,
			},
		},
	}
}
