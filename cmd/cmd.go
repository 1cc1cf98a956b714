// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plsync/internal/server"
)

const version = "0.1.0"

// newApp builds the root command.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "plsync",
		Usage:   "Copy playlists between Spotify and YouTube by fuzzy title matching",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with credential overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, tracksCommand, normalizeCommand, matchCommand, syncCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func platformFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "platform",
		Aliases:  []string{"p"},
		Usage:    "Catalog to query (spotify or youtube)",
		Required: required,
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand writes a starter config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the bundled template",
		Action: r.Setup,
	}
}

func authFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "How long to wait for the browser callback",
			Value: server.DefaultAuthTimeout,
		},
		&cli.BoolFlag{
			Name:  "no-browser",
			Usage: "Print the consent URL instead of opening a browser",
		},
	}
}

// authCommand runs the OAuth consent flow per platform.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize plsync with a platform and save the token",
		Commands: []*cli.Command{
			{
				Name:    "spotify",
				Aliases: []string{"sp"},
				Usage:   "Authorize with Spotify",
				Flags:   authFlags(),
				Action:  r.AuthSpotify,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt"},
				Usage:   "Authorize with YouTube (Google)",
				Flags:   authFlags(),
				Action:  r.AuthYouTube,
			},
		},
	}
}

// playlistsCommand lists the user's playlists on a platform.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List your playlists",
		Flags: append([]cli.Flag{
			platformFlag(true),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to show (0 for all)",
			},
		}, jsonFlags()...),
		Action: r.Playlists,
	}
}

// tracksCommand lists the entries of one playlist.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "List the tracks of a playlist",
		Flags: append([]cli.Flag{
			platformFlag(true),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Playlist ID",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "normalize",
				Usage: "Show the normalized artist and track for each title",
			},
		}, jsonFlags()...),
		Action: r.Tracks,
	}
}

// normalizeCommand shows what a title reduces to, offline.
func normalizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Normalize a raw title into artist and track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "title"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Platform artist used when the title has none",
			},
		}, jsonFlags()...),
		Action: r.Normalize,
	}
}

// matchCommand searches one title on a platform and shows the ranking.
func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Search a title on a platform and show how candidates score",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "title"},
		},
		Flags: append([]cli.Flag{
			platformFlag(true),
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Platform artist used when the title has none",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Candidates to request (defaults to sync.search_limit)",
			},
		}, jsonFlags()...),
		Action: r.Match,
	}
}

// syncCommand copies a playlist from one platform into another.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Copy a playlist across platforms",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "Source platform",
				Value: string(YouTube),
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Target platform",
				Value: string(Spotify),
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source playlist ID (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Target playlist ID (prompted when omitted)",
			},
			&cli.IntFlag{
				Name:  "max",
				Usage: "Read at most this many source tracks (defaults to sync.max_tracks, 0 for all)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Match tracks without writing to the target playlist",
			},
			&cli.BoolFlag{
				Name:  "no-tui",
				Usage: "Use plain prompts and log output even on a terminal",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a report of every track to this file",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format (csv, json or md)",
				Value: "csv",
			},
			&cli.DurationFlag{
				Name:  "write-delay",
				Usage: "Minimum delay between write calls, at least 200ms (defaults to sync.write_delay)",
			},
		},
		Action: r.Sync,
	}
}
