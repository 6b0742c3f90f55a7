package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"habits-backend/internal/api"
	"habits-backend/internal/auth"
	"habits-backend/internal/certs"
)

const (
	shutdownTimeout    = 10 * time.Second
	rateLimiterCleanup = 5 * time.Minute
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Overrides server.address",
			},
			&cli.BoolFlag{
				Name:  "tls",
				Usage: "Serve HTTPS with a self-signed certificate from server.cert_dir",
			},
		},
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				if c.IsSet("addr") {
					e.cfg.Server.Address = c.String("addr")
				}
				if c.IsSet("tls") {
					e.cfg.Server.TLS = c.Bool("tls")
				}
				return serve(ctx, e)
			})
		},
	}
}

func serve(ctx context.Context, e *env) error {
	trusted, err := e.cfg.Server.TrustedProxyRanges()
	if err != nil {
		return err
	}

	store, svc := e.core()

	limiter := auth.NewRateLimiter(e.cfg.RateLimit.Attempts, e.cfg.RateLimit.Window, e.cfg.RateLimit.Block, nil)
	go limiter.Run(ctx, rateLimiterCleanup)

	go store.RunSweeper(ctx, e.cfg.Session.SweepInterval, func(err error) {
		e.log.Warn(ctx, "session sweep failed", "error", err)
	})

	handler := api.NewHandler(svc, limiter, auth.CookieConfig{
		Name:   e.cfg.Session.CookieName,
		Secure: e.cfg.Production,
	})
	srv := api.NewServer(handler, e.log, e.cfg.Server.CORSOrigins, trusted)

	errCh := make(chan error, 1)
	go func() {
		if e.cfg.Server.TLS {
			host, _, _ := net.SplitHostPort(e.cfg.Server.Address)
			certPath, keyPath, err := certs.EnsureCertificates(e.cfg.Server.CertDir, host)
			if err != nil {
				errCh <- err
				return
			}
			e.log.Info(ctx, "listening", "addr", e.cfg.Server.Address, "tls", true)
			errCh <- srv.StartTLS(e.cfg.Server.Address, certPath, keyPath)
			return
		}
		e.log.Info(ctx, "listening", "addr", e.cfg.Server.Address, "tls", false)
		errCh <- srv.Start(e.cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	e.log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
