package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/spawngrid/internal/admin"
	"github.com/udisondev/spawngrid/internal/config"
	"github.com/udisondev/spawngrid/internal/db"
	"github.com/udisondev/spawngrid/internal/engine"
	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/level"
	"github.com/udisondev/spawngrid/internal/metrics"
	"github.com/udisondev/spawngrid/internal/spawn"
	"github.com/udisondev/spawngrid/internal/view"
	"github.com/udisondev/spawngrid/internal/world"
)

const (
	ConfigPath = "config/spawngrid.yaml"

	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("SPAWNGRID_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadEngine(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("spawngrid starting",
		"log_level", cfg.LogLevel,
		"source", cfg.Source,
		"admin", cfg.AdminAddress)

	var (
		repo     spawn.PlacementRepository
		kills    admin.KillRecorder
		dbPinger admin.Pinger
	)
	// Источник placements: level файл или PostgreSQL
	switch cfg.Source {
	case config.SourceDatabase:
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		version, err := db.RunMigrations(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied", "version", version)

		spawners := db.NewSpawnerRepository(database.Pool())
		repo = spawners
		kills = spawners
		dbPinger = database
	default:
		repo = level.NewFileRepository(cfg.LevelFile)
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)

	// Load world and build grids
	manager := spawn.NewManager(repo, managerOptions(cfg))
	w, err := manager.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading world: %w", err)
	}

	camera := view.NewCamera(view.Options{
		Width:           cfg.Camera.Width,
		Height:          cfg.Camera.Height,
		KeepAliveMargin: cfg.Camera.KeepAliveMargin,
		BackgroundScale: cfg.Camera.BackgroundScale,
	})
	center := w.Extent().Center()
	camera.MoveTo(center.X, center.Y)

	hub := admin.NewHub(m)
	defer hub.Close()

	driver := engine.NewDriver(w, spawn.MultiExecutor{hub, spawn.LogExecutor{}}, camera, engine.Options{
		TickInterval: cfg.TickInterval,
		Lifecycle: spawn.LifecycleOptions{
			DeactivateAfter: cfg.Spawn.DeactivateAfter.Seconds(),
			SpawnsPerFrame:  cfg.Spawn.SpawnsPerFrame,
		},
		Rand:    newRand(cfg.Spawn.Seed),
		Metrics: m,
	})

	router := admin.NewRouter(admin.RouterConfig{
		Engine: driver,
		Camera: camera,
		Hub:    hub,
		Kills:  kills,
		DB:     dbPinger,
	})
	srv := &http.Server{
		Addr:              cfg.AdminAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start frame driver

	g.Go(func() error {
		if err := driver.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("spawner driver: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting admin server", "address", cfg.AdminAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin server shutdown: %w", err)
		}
		return nil
	})

	if cfg.Source == config.SourceFile && cfg.WatchLevel {
		watcher, err := level.NewWatcher(cfg.LevelFile, level.DefaultDebounce)
		if err != nil {
			return fmt.Errorf("watching level file: %w", err)
		}

		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("level watcher: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			reloadOnChange(gctx, watcher.Events(), manager, driver, m)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// reloadOnChange rebuilds the world for every level file change.
// A broken file keeps the current world running.
func reloadOnChange(ctx context.Context, events <-chan string, manager *spawn.Manager, driver *engine.Driver, m *metrics.Collector) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			w, err := manager.Load(ctx)
			if err != nil {
				m.WorldLoaded(0, err)
				slog.Error("level reload failed, keeping current world", "path", path, "err", err)
				continue
			}
			driver.RequestReload(w)
			slog.Info("level reload queued", "path", path, "spawners", w.SpawnerCount())
		}
	}
}

func managerOptions(cfg config.Engine) spawn.ManagerOptions {
	opts := spawn.ManagerOptions{
		World: world.Options{
			CellSizeX:      cfg.Grid.CellSizeX,
			CellSizeY:      cfg.Grid.CellSizeY,
			DepthThreshold: cfg.Grid.DepthThreshold,
			MaxCells:       cfg.Grid.MaxCells,
		},
	}
	if b := cfg.Grid.WorldBounds; b != nil {
		opts.WorldBounds = geom.NewBoundsMinMax(b.X0, b.Y0, b.X1, b.Y1)
	}
	return opts
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
