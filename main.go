package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"habits-backend/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewApp().RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("habits failed")
		cancel()
		os.Exit(1)
	}
}
