package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"habits-backend/internal/auth"
	"habits-backend/internal/config"
	"habits-backend/internal/database"
	"habits-backend/internal/database/postgres"
	"habits-backend/internal/database/redisstore"
	"habits-backend/internal/logging"
)

// env is everything a command needs, built from the loaded config
type env struct {
	cfg *config.Config
	log logging.Logger

	db       *sql.DB
	redis    *redis.Client
	users    auth.UserRepository
	sessions auth.SessionRepository
}

// loadEnv reads config, applies global flag overrides and builds the logger
func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}

	return &env{
		cfg: cfg,
		log: logging.New(c.App.ErrWriter, cfg.Log.Level, cfg.Log.Format),
	}, nil
}

// open connects to the database (running migrations) and, when configured,
// to redis, then builds the repositories.
func (e *env) open(ctx context.Context) error {
	db, err := database.Open(ctx, database.Config{
		Driver: e.cfg.Database.Driver,
		Path:   e.cfg.Database.Path,
		DSN:    e.cfg.Database.DSN,
	})
	if err != nil {
		return err
	}
	e.db = db

	switch e.cfg.Database.Driver {
	case database.DriverPostgres:
		xdb := sqlx.NewDb(db, "pgx")
		e.users = postgres.NewUserRepo(xdb)
		e.sessions = postgres.NewSessionRepo(xdb)
	default:
		e.users = database.NewUserRepo(db)
		e.sessions = database.NewSessionRepo(db)
	}

	if e.cfg.Session.Backend == config.SessionBackendRedis {
		e.redis = redis.NewClient(&redis.Options{
			Addr:     e.cfg.Redis.Addr,
			Password: e.cfg.Redis.Password,
			DB:       e.cfg.Redis.DB,
		})
		if err := e.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		e.sessions = redisstore.NewSessionRepo(e.redis)
	}

	e.log.Debug(ctx, "storage ready",
		"driver", e.cfg.Database.Driver,
		"session_backend", e.cfg.Session.Backend,
	)
	return nil
}

func (e *env) close() error {
	var errs []error
	if e.redis != nil {
		errs = append(errs, e.redis.Close())
	}
	if e.db != nil {
		errs = append(errs, e.db.Close())
	}
	return errors.Join(errs...)
}

// core builds the auth components over the opened repositories
func (e *env) core() (*auth.SessionStore, *auth.Service) {
	clock := auth.SystemClock{}
	store := auth.NewSessionStore(e.sessions, auth.NewTokenGenerator(nil), clock, e.cfg.SessionTTL())
	verifier := auth.NewVerifier(store, clock)
	hasher := auth.NewPasswordHasher(e.cfg.Argon2)
	return store, auth.NewService(e.users, store, verifier, hasher)
}

// withEnv loads the environment, opens storage and runs fn with a context
// carrying the logger.
func withEnv(c *cli.Context, fn func(ctx context.Context, e *env) error) (err error) {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(c.Context, e.log)
	defer func() {
		if cerr := e.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := e.open(ctx); err != nil {
		return err
	}
	return fn(ctx, e)
}
