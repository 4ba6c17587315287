package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/photo-hunt/internal/config"
	"github.com/gokatarajesh/photo-hunt/internal/hunt"
	"github.com/gokatarajesh/photo-hunt/internal/logging"
	"github.com/gokatarajesh/photo-hunt/internal/roster"
	"github.com/gokatarajesh/photo-hunt/internal/server"
	"github.com/gokatarajesh/photo-hunt/internal/submission"
)

// Application aggregates shared infrastructure (storage, ledger, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	redis    *redis.Client
	backend  submission.Backend
	ledger   *submission.Ledger
	progress hunt.ProgressStore
	handler  http.Handler
	http     *http.Server

	bgCancels []context.CancelFunc
	bgDone    sync.WaitGroup
}

// New bootstraps the logger, storage backends and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	return NewWithLogger(ctx, cfg, logging.New(cfg.Name, cfg.Env))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(ctx context.Context, cfg *config.App, logger zerolog.Logger) (*Application, error) {
	logger.Info().
		Str("backend", cfg.Storage.Backend).
		Str("photo_mode", cfg.Storage.ResolvedPhotoMode()).
		Str("progress_store", cfg.Hunt.ProgressStore).
		Msg("starting application bootstrap")

	a := &Application{cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *Application) build(ctx context.Context) error {
	cfg := a.cfg

	pool, err := hunt.ResolvePool(cfg.Hunt.PoolFile, cfg.Hunt.Pool)
	if err != nil {
		return fmt.Errorf("load hunt pool: %w", err)
	}
	teams, err := roster.Load(cfg.Hunt.RosterFile, cfg.Hunt.DefaultTeamCount)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	a.logger.Info().
		Str("pool", pool.Name).
		Int("riddles", len(pool.Riddles)).
		Int("checkpoints", len(pool.Checkpoints)).
		Int("teams", len(teams.Teams)).
		Msg("hunt loaded")

	if cfg.NeedsRedis() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	a.backend, err = a.openBackend(ctx)
	if err != nil {
		return err
	}

	var photos submission.PhotoStore = submission.InlinePhotoStore{}
	var files *submission.FilePhotoStore
	if cfg.Storage.ResolvedPhotoMode() == config.PhotoModeFile {
		files, err = submission.NewFilePhotoStore(cfg.Storage.UploadsDir)
		if err != nil {
			return fmt.Errorf("open uploads dir: %w", err)
		}
		photos = files
	}

	switch cfg.Hunt.ProgressStore {
	case config.ProgressRedis:
		a.progress = hunt.NewRedisProgressStore(a.redis, cfg.Hunt.ProgressPrefix, cfg.Hunt.ProgressSessionTTL)
	default:
		a.progress = hunt.NewMemoryProgressStore()
	}
	removed, err := hunt.Sweep(ctx, a.progress, cfg.Hunt.ProgressVersion)
	if err != nil {
		return fmt.Errorf("sweep progress: %w", err)
	}
	if removed > 0 {
		a.logger.Info().Int("removed", removed).Msg("stale progress entries swept")
	}

	decoder, err := submission.NewDecoder(cfg.Submission.MultipartParser, submission.Limits{
		Body:   cfg.Limits.BodyBytes,
		File:   cfg.Limits.FileBytes,
		Fields: cfg.Limits.Fields,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := submission.LedgerOptions{
		BackendName: cfg.Storage.Backend,
		Metrics:     submission.NewMetrics(registry),
	}
	if cfg.Submission.VerifyAnswers {
		opts.Verifier = hunt.NewAnswerKey(pool, a.progress, cfg.Hunt.ProgressVersion)
		a.logger.Info().Msg("server-side answer verification enabled")
	}
	a.ledger = submission.NewLedger(a.backend, photos, opts, a.logger)

	if cfg.Admin.ResetToken == "" {
		a.logger.Warn().Msg("ADMIN_RESET_TOKEN not set; reset endpoint is unauthenticated")
	}

	a.handler = server.NewRouter(a.logger, server.RouterOptions{
		StaticDir: cfg.Hunt.StaticDir,
		Gatherer:  registry,
		Checks:    a.checks(),
		Mounts: []server.Mounter{
			roster.NewHandler(teams),
			hunt.NewHTTPHandlers(pool, a.progress, cfg.Hunt.ProgressVersion, a.ledger, a.logger),
			submission.NewHTTPHandlers(decoder, a.ledger, submission.HandlerOptions{
				Files:      files,
				AdminToken: cfg.Admin.ResetToken,
				BodyLimit:  cfg.Limits.BodyBytes,
			}, a.logger),
		},
	})
	a.http = server.NewHTTPServer(cfg, a.handler)
	return nil
}

func (a *Application) openBackend(ctx context.Context) (submission.Backend, error) {
	cfg := a.cfg
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		return submission.NewRedisBackend(a.redis, cfg.Redis.SubmissionsPrefix), nil
	case config.BackendPostgres:
		pgCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		pgCfg.MaxConns = cfg.Postgres.MaxConns
		pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return submission.NewPostgresBackend(pool), nil
	default:
		b, err := submission.NewFileBackend(cfg.Storage.SubmissionsPath())
		if err != nil {
			return nil, fmt.Errorf("open submissions file: %w", err)
		}
		return b, nil
	}
}

func (a *Application) checks() map[string]server.Check {
	checks := map[string]server.Check{}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if pg, ok := a.backend.(*submission.PostgresBackend); ok {
		checks["postgres"] = pg.Ping
	}
	return checks
}

// Handler exposes the router, mainly for tests.
func (a *Application) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	a.Shutdown()
	return runErr
}

// Shutdown drains the HTTP server, stops the ledger writer and releases
// storage connections.
func (a *Application) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.stopBackgroundWorkers()
	a.close()
	a.logger.Info().Msg("shutdown complete")
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	a.bgDone.Add(1)
	go func() {
		defer a.bgDone.Done()
		if err := a.ledger.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("ledger writer stopped")
		}
	}()
}

func (a *Application) stopBackgroundWorkers() {
	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.bgDone.Wait()
}

func (a *Application) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error().Err(err).Msg("backend shutdown error")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}
