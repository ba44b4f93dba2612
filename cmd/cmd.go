// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// listFlags are shared by every command that prints a top-level kind.
func listFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "Filter by name (substring match)",
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Page offset; non-zero offsets skip the cached page",
		},
	}
	return append(flags, outputFlags()...)
}

// childFlags are shared by the drill-down commands.
func childFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Parent record ID",
			Required: true,
		},
	}
	return append(flags, outputFlags()...)
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "remote",
			Aliases: []string{"r"},
			Usage:   "Fetch from the server even when the cache has results",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, csv, markdown or text",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the rendered output to a file",
		},
	}
}

// setupCommand writes a config file and initializes local storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Prompt for server URL and username",
			},
		},
		Action: r.Setup,
	}
}

// loginCommand authenticates with the server.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate with the Ampache server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Server URL (defaults to config server.url)",
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Account name (defaults to config server.username)",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Password; prefer AMPSYNC_SERVER_PASSWORD or the prompt",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Handshake even when a valid session is stored",
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and clear every local cache",
		Action: r.Logout,
	}
}

func pingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check the server and renew the session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Ping,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged in account",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.WhoAmI,
	}
}

func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "songs",
		Usage:  "List songs, cache first",
		Flags:  listFlags(),
		Action: r.Songs,
	}
}

func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "albums",
		Usage:  "List albums, cache first",
		Flags:  listFlags(),
		Action: r.Albums,
	}
}

func artistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "artists",
		Usage:  "List artists, cache first",
		Flags:  listFlags(),
		Action: r.Artists,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "playlists",
		Usage:  "List playlists, cache first",
		Flags:  listFlags(),
		Action: r.Playlists,
	}
}

// artistCommand groups artist drill-downs.
func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artist",
		Usage: "Artist operations",
		Commands: []*cli.Command{
			{
				Name:   "albums",
				Usage:  "List albums crediting an artist, newest first",
				Flags:  childFlags(),
				Action: r.ArtistAlbums,
			},
		},
	}
}

// albumCommand groups album drill-downs.
func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "album",
		Usage: "Album operations",
		Commands: []*cli.Command{
			{
				Name:   "songs",
				Usage:  "List an album's songs in track order",
				Flags:  childFlags(),
				Action: r.AlbumSongs,
			},
		},
	}
}

// playlistCommand groups playlist drill-downs.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "songs",
				Usage:  "List a playlist's songs (always from the server)",
				Flags:  childFlags(),
				Action: r.PlaylistSongs,
			},
		},
	}
}

func mutationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "Record type: song, album, artist or playlist",
			Value:   "song",
		},
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Record ID",
			Required: true,
		},
	}
}

func likeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "like",
		Usage: "Like a record (queued while offline)",
		Flags: append(mutationFlags(), &cli.BoolFlag{
			Name:  "unset",
			Usage: "Remove the like instead",
		}),
		Action: r.Like,
	}
}

func rateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rate",
		Usage: "Rate a record from 0 to 5 (queued while offline)",
		Flags: append(mutationFlags(), &cli.IntFlag{
			Name:     "rating",
			Usage:    "Rating between 0 and 5",
			Required: true,
		}),
		Action: r.Rate,
	}
}

// offlineCommand manages offline mode and the mutation log.
func offlineCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "offline",
		Usage: "Offline mode and queued mutations",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show offline mode, cached record counts and queued mutations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.OfflineStatus,
			},
			{
				Name:   "enable",
				Usage:  "Queue likes and ratings instead of sending them",
				Action: r.OfflineEnable,
			},
			{
				Name:  "disable",
				Usage: "Send likes and ratings directly and replay the queue",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-replay",
						Usage: "Leave queued mutations for a later replay",
					},
				},
				Action: r.OfflineDisable,
			},
			{
				Name:  "replay",
				Usage: "Send every queued mutation to the server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent workers (defaults to config offline.workers)",
					},
					&cli.FloatFlag{
						Name:  "rate-limit",
						Usage: "Requests per second (defaults to config offline.rate_limit)",
					},
				},
				Action: r.OfflineReplay,
			},
		},
	}
}

func findCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "Fuzzy search the local cache across every kind",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of matches",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Find,
	}
}

func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"tui", "ui"},
		Usage:   "Browse the library in an interactive TUI",
		Action:  r.Browse,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the library as a local NDJSON HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (defaults to config serve.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (defaults to config serve.port)",
			},
		},
		Action: r.Serve,
	}
}
