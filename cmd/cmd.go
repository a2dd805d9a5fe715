// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/cloudx/internal/catalog"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/urfave/cli/v3"
)

func cookieFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "cookie",
		Usage: "Session cookie (overrides the cookie file and " + shared.EnvCookie + ")",
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// importCommand runs the bulk cloud import.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a song catalog into the cloud locker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog",
				Aliases: []string{"f"},
				Usage:   "Path to the song catalog JSON file (default: import.catalog_path or " + catalog.DefaultPath + ")",
			},
			cookieFlag(),
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record this run in the history database",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in a full-screen terminal view",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: r.Import,
	}
}

// authCommand handles session management
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the gateway session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in by QR code, pasted cookie or browser cURL export",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "qr",
						Usage: "Log in by scanning a QR code",
					},
					cookieFlag(),
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing a cURL command copied from the browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check whether the stored session is still valid",
				Flags:  []cli.Flag{cookieFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored session cookie",
				Action: r.AuthLogout,
			},
		},
	}
}

// cloudCommand reports on the cloud locker
func cloudCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cloud",
		Usage: "Cloud locker operations",
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show cloud locker song count and storage usage",
				Flags: []cli.Flag{
					cookieFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CloudInfo,
			},
		},
	}
}

// historyCommand browses recorded import runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse past import runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded import runs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (running, completed, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show the per-song outcomes of a run (by number or ID)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "state",
						Usage: "Only show songs in this state (succeeded, skipped_existing, exhausted_retries)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, json or txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the export to this file instead of stdout",
					},
				},
				Action: r.HistoryShow,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with the defaults",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}
