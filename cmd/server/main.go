package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/config"
	"github.com/origo/signalcheck/internal/database"
	"github.com/origo/signalcheck/internal/handler/health"
	"github.com/origo/signalcheck/internal/leads"
	"github.com/origo/signalcheck/internal/migrations"
	"github.com/origo/signalcheck/internal/quiz"
	"github.com/origo/signalcheck/internal/server"
	"github.com/origo/signalcheck/internal/snapshot"
)

const (
	sweepInterval = time.Minute
	purgeInterval = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	checks := map[string]health.Checker{"sqlite": health.DB(db)}

	// --- Catalog ---
	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("loaded question catalog", "questions", catalog.Len(), "max_score", catalog.MaxScore())

	// --- Snapshots ---
	snaps, closeSnaps, err := openSnapshots(ctx, cfg, db, checks)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	defer closeSnaps()
	logger.Info("snapshot store ready", "backend", cfg.SnapshotBackend, "ttl", cfg.SnapshotTTL.String())

	// --- Leads ---
	store := leads.NewStore(db, catalog)
	broker := server.NewBroker()
	submitter := leads.NewSubmitter(store, logger, cfg.Development())
	submitter.OnCreate(broker.LeadCreated(store))

	sessions := quiz.NewRegistry(catalog, submitter, quiz.Options{
		Snapshots:     snaps,
		SubmitTimeout: cfg.SubmitTimeout,
		Logger:        logger,
	}, cfg.SessionTTL)

	// --- Admin ---
	admin := server.NewAdminDocStore(db)
	created, err := admin.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if created {
		logger.Info("seeded admin account", "email", cfg.AdminEmail)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Sessions:   sessions,
		Leads:      store,
		Admin:      admin,
		Broker:     broker,
		SPADir:     cfg.SPADir,
		BookingURL: cfg.BookingURL,

		AdminSessionTTL: cfg.AdminSessionTTL,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		return sessions.Run(gctx, sweepInterval)
	})

	if purger, ok := snaps.(*snapshot.SQLite); ok {
		g.Go(func() error {
			return purgeSnapshots(gctx, purger, logger)
		})
	}

	return g.Wait()
}

func loadCatalog(path string) (*assessment.Catalog, error) {
	if path == "" {
		return assessment.Default()
	}
	return assessment.LoadCatalog(path)
}

// openSnapshots builds the configured snapshot backend and registers its
// health check. The returned func releases backend connections.
func openSnapshots(ctx context.Context, cfg *config.Config, db *sql.DB, checks map[string]health.Checker) (snapshot.Store, func(), error) {
	noop := func() {}

	if err := snapshot.ValidBackend(cfg.SnapshotBackend); err != nil {
		return nil, noop, err
	}

	switch cfg.SnapshotBackend {
	case snapshot.BackendRedis:
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to redis: %w", err)
		}
		checks["redis"] = health.Redis(rdb)
		return snapshot.NewRedis(rdb, cfg.SnapshotTTL), func() { rdb.Close() }, nil
	case snapshot.BackendSQLite:
		return snapshot.NewSQLite(db, cfg.SnapshotTTL), noop, nil
	case snapshot.BackendMemory:
		return snapshot.NewMemory(cfg.SnapshotTTL), noop, nil
	}
	return snapshot.Nop{}, noop, nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func purgeSnapshots(ctx context.Context, store *snapshot.SQLite, logger *slog.Logger) error {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := store.Purge(ctx)
			if err != nil {
				logger.Warn("purging expired snapshots", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired snapshots", "removed", n)
			}
		}
	}
}
