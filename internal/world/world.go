package world

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
)

// Tier selects the foreground or background partition of the world.
type Tier int

const (
	// TierForeground - spawners in front of the depth threshold
	TierForeground Tier = iota
	// TierBackground - spawners at or behind the depth threshold
	TierBackground
)

// Tiers lists tiers in scan order.
var Tiers = [...]Tier{TierForeground, TierBackground}

// String returns human-readable tier name
func (t Tier) String() string {
	switch t {
	case TierForeground:
		return "foreground"
	case TierBackground:
		return "background"
	default:
		return "unknown"
	}
}

var (
	// ErrDuplicateSpawner is returned when a spawner ID is registered twice.
	ErrDuplicateSpawner = errors.New("duplicate spawner id")

	// ErrNoSpawners is returned when building grids from an empty registry
	// without an explicit world extent.
	ErrNoSpawners = errors.New("no spawners registered")
)

// Options configures grid construction.
type Options struct {
	CellSizeX      float64
	CellSizeY      float64
	DepthThreshold float64
	MaxCells       int // per grid; <= 0 means DefaultMaxCells
}

// DefaultOptions returns 15×15 cells with a background threshold of 20.
func DefaultOptions() Options {
	return Options{
		CellSizeX:      DefaultCellSize,
		CellSizeY:      DefaultCellSize,
		DepthThreshold: DefaultDepthThreshold,
		MaxCells:       DefaultMaxCells,
	}
}

// World is the spawner registry plus the two tier grids built from it.
// The registry owns every spawner; grids hold references into it.
// Spawners are registered at load time, then CreateGrid builds both grids once.
type World struct {
	opts Options

	spawners []*model.Spawner
	byID     map[int64]*model.Spawner
	extent   geom.Bounds // union of registered spawner bounds
	missing  int         // spawners without a template

	grids [len(Tiers)]*Grid
}

// New creates an empty world.
func New(opts Options) *World {
	return &World{
		opts: opts,
		byID: make(map[int64]*model.Spawner),
	}
}

// Options returns world options
func (w *World) Options() Options {
	return w.opts
}

// AddSpawner registers a spawner and moves it to StateWaiting.
// Must be called before CreateGrid; spawners added later are not indexed
// until the next CreateGrid.
func (w *World) AddSpawner(s *model.Spawner) error {
	if _, ok := w.byID[s.ID()]; ok {
		return fmt.Errorf("adding spawner %d: %w", s.ID(), ErrDuplicateSpawner)
	}

	s.Init()

	if !s.HasTemplate() {
		w.missing++
		slog.Warn("spawner has no spawn template, it will never spawn",
			"spawnerID", s.ID(),
			"x", s.Position().X,
			"y", s.Position().Y)
	}

	// extent = объединение bounds всех спаунеров
	if len(w.spawners) == 0 {
		w.extent = s.Bounds()
	} else {
		w.extent = w.extent.Encapsulate(s.Bounds())
	}

	w.spawners = append(w.spawners, s)
	w.byID[s.ID()] = s
	return nil
}

// CreateGrid (re)builds both tier grids over worldBounds from every registered spawner.
func (w *World) CreateGrid(worldBounds geom.Bounds) error {
	fg, bg, err := Build(w.spawners, worldBounds, w.opts)
	if err != nil {
		return fmt.Errorf("creating spawner grid: %w", err)
	}

	w.grids[TierForeground] = fg
	w.grids[TierBackground] = bg

	geo := fg.Geometry()
	fgStats, bgStats := fg.Stats(), bg.Stats()
	slog.Info("spawner grid built",
		"spawners", len(w.spawners),
		"sizeX", geo.SizeX,
		"sizeY", geo.SizeY,
		"foregroundRefs", fgStats.References,
		"backgroundRefs", bgStats.References,
		"skipped", fgStats.Skipped+bgStats.Skipped)

	if skipped := fgStats.Skipped + bgStats.Skipped; skipped > 0 {
		slog.Warn("spawners outside world bounds were not indexed", "count", skipped)
	}
	return nil
}

// CreateGridFromSpawners builds grids over the union of all registered spawner
// bounds, padded by one cell on each side.
func (w *World) CreateGridFromSpawners() error {
	if len(w.spawners) == 0 {
		return fmt.Errorf("creating spawner grid: %w", ErrNoSpawners)
	}
	return w.CreateGrid(w.extent.Expand(w.opts.CellSizeX, w.opts.CellSizeY))
}

// Grid returns the grid for tier t, or nil before CreateGrid.
func (w *World) Grid(t Tier) *Grid {
	if t < 0 || int(t) >= len(w.grids) {
		return nil
	}
	return w.grids[t]
}

// TierOf returns the tier s is indexed in.
func (w *World) TierOf(s *model.Spawner) Tier {
	if s.Depth() < w.opts.DepthThreshold {
		return TierForeground
	}
	return TierBackground
}

// Built reports whether CreateGrid has run.
func (w *World) Built() bool {
	return w.grids[TierForeground] != nil
}

// Spawner returns spawner by ID
func (w *World) Spawner(id int64) (*model.Spawner, bool) {
	s, ok := w.byID[id]
	return s, ok
}

// Spawners returns all registered spawners in registration order.
// IMPORTANT: Returned slice is owned by the world, DO NOT modify.
func (w *World) Spawners() []*model.Spawner {
	return w.spawners
}

// SpawnerCount returns number of registered spawners
func (w *World) SpawnerCount() int {
	return len(w.spawners)
}

// MissingTemplates returns number of registered spawners without a template.
func (w *World) MissingTemplates() int {
	return w.missing
}

// Extent returns the union of registered spawner bounds.
func (w *World) Extent() geom.Bounds {
	return w.extent
}
