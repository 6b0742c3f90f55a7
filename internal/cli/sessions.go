package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

func sessionsCmd() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Session maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete expired sessions once",
				Action: func(c *cli.Context) error {
					return withEnv(c, func(ctx context.Context, e *env) error {
						store, _ := e.core()
						n, err := store.Prune(ctx)
						if err != nil {
							return err
						}
						_, err = fmt.Fprintf(c.App.Writer, "pruned %d expired sessions\n", n)
						return err
					})
				},
			},
		},
	}
}
