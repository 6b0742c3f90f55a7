// Package cli wires configuration, storage and the auth core into the
// habits command line.
package cli

import (
	"github.com/urfave/cli/v2"
)

// NewApp returns the habits command line application
func NewApp() *cli.App {
	return &cli.App{
		Name:  "habits",
		Usage: "Habit tracker backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (default: ./habits.yaml if present)",
				EnvVars: []string{"HABITS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Overrides log.level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Overrides log.format (json or console)",
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			sessionsCmd(),
			usersCmd(),
		},
	}
}
