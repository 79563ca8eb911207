package spawn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
	"github.com/udisondev/spawngrid/internal/world"
)

type stubRepository struct {
	placements []model.Placement
	err        error
}

func (r stubRepository) LoadAll(context.Context) ([]model.Placement, error) {
	return r.placements, r.err
}

func TestManager_Load(t *testing.T) {
	repo := stubRepository{placements: []model.Placement{
		{ID: 1, X: 7, Y: 7, Radius: 2, Template: "fish"},
		{ID: 2, X: 30, Y: 30, Z: 40, Radius: 2, Template: "whale"},
		{ID: 3, X: 10, Y: 10},
	}}
	m := NewManager(repo, ManagerOptions{World: world.DefaultOptions(), WorldBounds: testExtent})

	w, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, w.SpawnerCount())
	assert.Equal(t, 1, w.MissingTemplates())
	assert.True(t, w.Built())
	assert.Equal(t, 3, w.Grid(world.TierForeground).Geometry().SizeX)

	s, ok := w.Spawner(2)
	require.True(t, ok)
	assert.Equal(t, model.StateWaiting, s.State())
	cx, cy := w.Grid(world.TierBackground).CellOf(s.Position())
	assert.Contains(t, w.Grid(world.TierBackground).Cell(cx, cy), s)
}

func TestManager_LoadDerivesExtent(t *testing.T) {
	repo := stubRepository{placements: []model.Placement{
		{ID: 1, X: 100, Y: 100, Radius: 2, Template: "fish"},
	}}
	m := NewManager(repo, ManagerOptions{World: world.DefaultOptions()})

	w, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, geom.Bounds{X0: 98, Y0: 98, X1: 102, Y1: 102}, w.Extent())
	assert.InDelta(t, 83, w.Grid(world.TierForeground).Geometry().OriginX, 1e-9)
}

func TestManager_LoadErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		repo    stubRepository
		wantErr error
	}{
		{"repository failure", stubRepository{err: boom}, boom},
		{"empty level", stubRepository{}, world.ErrNoSpawners},
		{
			"duplicate id",
			stubRepository{placements: []model.Placement{{ID: 1, Template: "a"}, {ID: 1, Template: "b"}}},
			world.ErrDuplicateSpawner,
		},
		{
			"invalid placement",
			stubRepository{placements: []model.Placement{{ID: 1, MinSpawn: 5, MaxSpawn: 2, Template: "a"}}},
			model.ErrInvalidPlacement,
		},
		{
			"spawners too far apart",
			stubRepository{placements: []model.Placement{{ID: 1, Template: "a"}, {ID: 2, X: 1e12, Y: 1e12, Template: "b"}}},
			world.ErrGridTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.repo, ManagerOptions{World: world.DefaultOptions()})
			w, err := m.Load(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, w)
		})
	}
}

func TestKill(t *testing.T) {
	w := buildWorld(t, model.Placement{ID: 1, X: 7, Y: 7, MinSpawn: 2, MaxSpawn: 2, Template: "fish"})
	s := mustSpawner(t, w, 1)
	exec := &recordingExecutor{}

	_, ok := NewLifecycle(exec, newTestRand(), DefaultLifecycleOptions()).Activate(s)
	require.True(t, ok)

	require.NoError(t, Kill(w, exec, 1))
	assert.Equal(t, model.StateDead, s.State())
	assert.Equal(t, []model.DespawnRequest{{SpawnerID: 1, Count: 2}}, exec.despawns)

	require.NoError(t, Kill(w, exec, 1), "killing twice is a no-op")
	assert.Len(t, exec.despawns, 1)

	err := Kill(w, exec, 42)
	require.ErrorIs(t, err, ErrUnknownSpawner)
}

func TestInstancesKilled(t *testing.T) {
	w := buildWorld(t, model.Placement{ID: 1, X: 7, Y: 7, MinSpawn: 3, MaxSpawn: 3, Template: "fish"})
	s := mustSpawner(t, w, 1)
	exec := &recordingExecutor{}

	_, ok := NewLifecycle(exec, newTestRand(), DefaultLifecycleOptions()).Activate(s)
	require.True(t, ok)
	require.Equal(t, 3, s.NumActive())

	require.NoError(t, InstancesKilled(w, 1, 2))
	assert.Equal(t, 1, s.NumActive())

	require.NoError(t, InstancesKilled(w, 1, 5), "never below zero")
	assert.Zero(t, s.NumActive())

	err := InstancesKilled(w, 42, 1)
	require.ErrorIs(t, err, ErrUnknownSpawner)
}

func TestSetLive(t *testing.T) {
	w := buildWorld(t, model.Placement{ID: 1, X: 7, Y: 7, Template: "fish"})
	s := mustSpawner(t, w, 1)

	require.NoError(t, SetLive(w, 1, false))
	assert.False(t, s.Live())
	require.NoError(t, SetLive(w, 1, true))
	assert.True(t, s.Live())

	err := SetLive(w, 42, false)
	require.ErrorIs(t, err, ErrUnknownSpawner)
}
