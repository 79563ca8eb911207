// Command levelimport moves spawner placements between a level YAML file and
// the spawners table. Import replaces every stored placement and clears
// recorded kills; -export writes the live (not killed) placements back to YAML.
//
// Usage:
//
//	go run ./cmd/levelimport -level config/level.yaml
//	go run ./cmd/levelimport -export -level /tmp/reef.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/udisondev/spawngrid/internal/config"
	"github.com/udisondev/spawngrid/internal/db"
	"github.com/udisondev/spawngrid/internal/level"
	"github.com/udisondev/spawngrid/internal/model"
)

type options struct {
	configPath string
	levelPath  string
	dryRun     bool
	export     bool
}

// placementLoader is any placement source (db.SpawnerRepository in production).
type placementLoader interface {
	LoadAll(ctx context.Context) ([]model.Placement, error)
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "config/spawngrid.yaml", "engine config with database settings")
	flag.StringVar(&opts.levelPath, "level", "", "level file (default: level_file from config)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validate the level without writing")
	flag.BoolVar(&opts.export, "export", false, "write database placements to the level file instead of importing")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("level import failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadEngine(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.levelPath == "" {
		opts.levelPath = cfg.LevelFile
	}
	file := level.NewFileRepository(opts.levelPath)

	var placements []model.Placement
	if !opts.export {
		placements, err = file.LoadAll(ctx)
		if err != nil {
			return err
		}
		slog.Info("level parsed", "path", file.Path(), "spawners", len(placements))
		if opts.dryRun {
			return nil
		}
	}

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if _, err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	repo := db.NewSpawnerRepository(database.Pool())
	if opts.export {
		return exportLevel(ctx, repo, file)
	}

	if err := repo.ReplaceAll(ctx, placements); err != nil {
		return fmt.Errorf("importing placements: %w", err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting placements: %w", err)
	}
	slog.Info("level imported", "spawners", n)
	return nil
}

// exportLevel writes every placement from src to dst, named after the file.
func exportLevel(ctx context.Context, src placementLoader, dst *level.FileRepository) error {
	placements, err := src.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading placements: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(dst.Path()), filepath.Ext(dst.Path()))
	if err := dst.Save(level.Level{Name: name, Spawners: placements}); err != nil {
		return err
	}
	slog.Info("level exported", "path", dst.Path(), "spawners", len(placements))
	return nil
}
