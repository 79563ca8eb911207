package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
	"github.com/udisondev/spawngrid/internal/world"
)

// ErrUnknownSpawner is returned for operations on a spawner ID the world does not know.
var ErrUnknownSpawner = errors.New("unknown spawner")

// PlacementRepository loads spawner placements for a level.
type PlacementRepository interface {
	LoadAll(ctx context.Context) ([]model.Placement, error)
}

// ManagerOptions configures world construction.
type ManagerOptions struct {
	World world.Options

	// WorldBounds fixes the grid extent. Zero value derives it from the
	// registered spawners (padded by one cell).
	WorldBounds geom.Bounds
}

// Manager loads placements and builds worlds from them.
type Manager struct {
	repo PlacementRepository
	opts ManagerOptions
}

// NewManager creates new spawn manager
func NewManager(repo PlacementRepository, opts ManagerOptions) *Manager {
	return &Manager{
		repo: repo,
		opts: opts,
	}
}

// Load loads all placements from the repository and builds a world from them.
func (m *Manager) Load(ctx context.Context) (*world.World, error) {
	placements, err := m.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading spawner placements: %w", err)
	}

	w, err := m.Build(placements)
	if err != nil {
		return nil, err
	}

	slog.Info("spawners loaded",
		"count", w.SpawnerCount(),
		"missingTemplates", w.MissingTemplates())
	return w, nil
}

// Build registers every placement into a fresh world and builds its grids.
func (m *Manager) Build(placements []model.Placement) (*world.World, error) {
	w := world.New(m.opts.World)
	for _, p := range placements {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("registering placement: %w", err)
		}
		if err := w.AddSpawner(model.NewSpawner(p)); err != nil {
			return nil, fmt.Errorf("registering placement: %w", err)
		}
	}

	if m.opts.WorldBounds == (geom.Bounds{}) {
		if err := w.CreateGridFromSpawners(); err != nil {
			return nil, err
		}
		return w, nil
	}

	if err := w.CreateGrid(m.opts.WorldBounds); err != nil {
		return nil, err
	}
	return w, nil
}

// Kill marks spawner id dead and culls its live instances through exec.
// Dead is terminal: the spawner is ignored by every later scan.
func Kill(w *world.World, exec Executor, id int64) error {
	s, ok := w.Spawner(id)
	if !ok {
		return fmt.Errorf("killing spawner %d: %w", id, ErrUnknownSpawner)
	}
	if s.State() == model.StateDead {
		return nil
	}

	if n := s.NumActive(); n > 0 && exec != nil {
		exec.Despawn(model.DespawnRequest{SpawnerID: id, Count: n})
	}
	s.MarkDead()
	return nil
}

// InstancesKilled records that n instances of spawner id died for good.
// They are not counted as sleeping when the spawner is next culled.
func InstancesKilled(w *world.World, id int64, n int) error {
	s, ok := w.Spawner(id)
	if !ok {
		return fmt.Errorf("recording killed instances of spawner %d: %w", id, ErrUnknownSpawner)
	}
	for range n {
		s.OnInstanceKilled()
	}
	return nil
}

// SetLive toggles whether spawner id's owning object is live.
// Production of owed instances waits while it is not.
func SetLive(w *world.World, id int64, live bool) error {
	s, ok := w.Spawner(id)
	if !ok {
		return fmt.Errorf("setting spawner %d live: %w", id, ErrUnknownSpawner)
	}
	s.SetLive(live)
	return nil
}
