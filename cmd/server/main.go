// Command server runs the job search HTTP API.
//
//	@title			Job Search API
//	@version		1.0
//	@description	Field-service jobs, crew directory and live search sessions.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-jobsearch-backend/docs"
	"github.com/tbourn/go-jobsearch-backend/internal/config"
	"github.com/tbourn/go-jobsearch-backend/internal/events"
	httpapi "github.com/tbourn/go-jobsearch-backend/internal/http"
	"github.com/tbourn/go-jobsearch-backend/internal/observability"
	"github.com/tbourn/go-jobsearch-backend/internal/pubsub"
	"github.com/tbourn/go-jobsearch-backend/internal/repo"
	"github.com/tbourn/go-jobsearch-backend/internal/scheduler"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
	"github.com/tbourn/go-jobsearch-backend/internal/seed"
	"github.com/tbourn/go-jobsearch-backend/internal/services"
	"github.com/tbourn/go-jobsearch-backend/internal/sysutil"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stdout, cfg.LogPretty, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server: exited with error")
	}
	log.Info().Msg("server: stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	// ── Storage ─────────────────────────────────────────────────────────────
	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeDB(db)
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	catalog := services.NewCatalog(db)
	catalog.IdempotencyTTL = cfg.IdempotencyTTL
	directory := services.NewDirectory(db)

	// ── Cross-instance fan-out (optional) ───────────────────────────────────
	var bridge *pubsub.Bridge
	if cfg.Redis.URL != "" {
		rdb, err := pubsub.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()

		bridge = pubsub.NewBridge(rdb, cfg.Redis.Channel)
		catalog.Notifier = bridge
		directory.Notifier = bridge
		bridge.Handle(events.TypeJobsChanged, func(ctx context.Context, _ string) error {
			_, err := catalog.Reload(ctx)
			return err
		})
		bridge.Handle(events.TypeUsersChanged, func(ctx context.Context, _ string) error {
			_, err := directory.Reload(ctx)
			return err
		})
	}

	// ── Tracing ─────────────────────────────────────────────────────────────
	instance := uuid.NewString()
	if bridge != nil {
		instance = bridge.Instance()
	}
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, observability.Build{Version: version, InstanceID: instance})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel: shutdown")
		}
	}()

	// ── Fixtures and initial load ───────────────────────────────────────────
	if cfg.SeedPath != "" {
		fx, err := seed.Load(cfg.SeedPath)
		if err != nil {
			return err
		}
		res, err := seed.Apply(ctx, catalog, directory, fx)
		if err != nil {
			return err
		}
		log.Info().Str("path", cfg.SeedPath).
			Int("users", res.Users).Int("jobs", res.Jobs).
			Int("skipped", res.Skipped).Int("entries", res.Entries).
			Msg("seed: applied")
	}
	if _, err := catalog.Reload(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if _, err := directory.Reload(ctx); err != nil {
		return fmt.Errorf("load directory: %w", err)
	}

	sessions := services.NewSearchService(catalog, directory, cfg.Search.SessionTTL, cfg.Search.MaxSessions,
		search.WithDebounce(cfg.Search.Debounce),
		search.WithRecentsLimit(cfg.Search.RecentsLimit),
		search.WithQuickFilterLimits(cfg.Search.FiltersPerKind, cfg.Search.FiltersTotal),
		search.WithAggregation(cfg.Search.Aggregate),
	)
	defer sessions.CloseAll()

	// ── HTTP ────────────────────────────────────────────────────────────────
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Catalog:   catalog,
		Directory: directory,
		Sessions:  sessions,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	if bridge != nil {
		g.Go(func() error { return bridge.Run(gctx) })
	}

	if cfg.ResyncSchedule != "" {
		sch, err := scheduler.New(cfg.ResyncSchedule, maintenance(db, catalog, directory, sessions)...)
		if err != nil {
			return err
		}
		if err := sch.Start(gctx); err != nil {
			return err
		}
		defer sch.Stop()
	}

	// ── Graceful shutdown ───────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("server: shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Streams would hold Shutdown open until the timeout.
		sessions.CloseAll()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// maintenance lists the periodic tasks: resync both caches from the
// database, drop idle sessions and purge expired idempotency keys.
func maintenance(db *gorm.DB, catalog *services.Catalog, directory *services.Directory, sessions *services.SearchService) []scheduler.Task {
	return []scheduler.Task{
		{Name: "catalog.reload", Run: func(ctx context.Context) error {
			_, err := catalog.Reload(ctx)
			return err
		}},
		{Name: "directory.reload", Run: func(ctx context.Context) error {
			_, err := directory.Reload(ctx)
			return err
		}},
		{Name: "sessions.sweep", Run: func(context.Context) error {
			if n := sessions.Sweep(); n > 0 {
				log.Info().Int("closed", n).Msg("sessions: swept idle")
			}
			return nil
		}},
		{Name: "idempotency.purge", Run: func(ctx context.Context) error {
			_, err := repo.PurgeIdempotency(ctx, db, time.Now().UTC())
			return err
		}},
	}
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("database: close")
	}
}
