package cli

import (
	"context"

	"github.com/urfave/cli/v2"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Action: func(c *cli.Context) error {
			// opening the database applies migrations
			return withEnv(c, func(ctx context.Context, e *env) error {
				e.log.Info(ctx, "migrations applied", "driver", e.cfg.Database.Driver)
				return nil
			})
		},
	}
}
