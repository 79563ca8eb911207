package spawn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/spawngrid/internal/model"
)

func newActivatable(p model.Placement) *model.Spawner {
	s := model.NewSpawner(p)
	s.Init()
	return s
}

func TestNewLifecycle_Defaults(t *testing.T) {
	l := NewLifecycle(nil, newTestRand(), LifecycleOptions{DeactivateAfter: -1, SpawnsPerFrame: -3})
	assert.Equal(t, DefaultLifecycleOptions(), l.Options())
	assert.Zero(t, l.ActiveCount())
}

func TestLifecycle_Activate(t *testing.T) {
	exec := &recordingExecutor{}
	l := NewLifecycle(exec, newTestRand(), DefaultLifecycleOptions())
	s := newActivatable(model.Placement{ID: 1, MinSpawn: 3, MaxSpawn: 3, Template: "fish"})

	n, ok := l.Activate(s)
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, l.ActiveCount())
	require.Len(t, exec.spawns, 1)
	assert.Equal(t, 3, exec.spawns[0].Count())

	_, ok = l.Activate(s)
	assert.False(t, ok, "already active")
	assert.Equal(t, 1, l.ActiveCount())
}

func TestLifecycle_SelfDeactivation(t *testing.T) {
	exec := &recordingExecutor{}
	l := NewLifecycle(exec, newTestRand(), LifecycleOptions{DeactivateAfter: 1})
	s := newActivatable(model.Placement{ID: 7, MinSpawn: 2, MaxSpawn: 2, Template: "fish"})

	_, ok := l.Activate(s)
	require.True(t, ok)

	// Activation counts as this frame's keep-alive.
	res := l.Update(0.5)
	assert.Zero(t, res.Deactivated)

	res = l.Update(0.5)
	assert.Zero(t, res.Deactivated)
	assert.Equal(t, model.StateActive, s.State())

	// A tick resets the timer.
	s.KeepAliveTick()
	res = l.Update(0.9)
	assert.Zero(t, res.Deactivated)

	res = l.Update(0.6)
	assert.Zero(t, res.Deactivated)
	res = l.Update(0.6)
	assert.Equal(t, 1, res.Deactivated)
	assert.Equal(t, 2, res.Despawned)

	assert.Equal(t, model.StateSleeping, s.State())
	assert.Equal(t, 2, s.NumSleeping())
	assert.Equal(t, []model.DespawnRequest{{SpawnerID: 7, Count: 2}}, exec.despawns)
	assert.Zero(t, l.ActiveCount())
}

func TestLifecycle_StaggeredProduction(t *testing.T) {
	exec := &recordingExecutor{}
	l := NewLifecycle(exec, newTestRand(), LifecycleOptions{DeactivateAfter: 10, SpawnsPerFrame: 2})
	s := newActivatable(model.Placement{ID: 1, MinSpawn: 5, MaxSpawn: 5, Template: "shoal"})

	n, ok := l.Activate(s)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	// Same frame as activation: nothing more.
	res := l.Update(0.1)
	assert.Zero(t, res.Spawned)

	res = l.Update(0.1)
	assert.Equal(t, 2, res.Spawned)
	res = l.Update(0.1)
	assert.Equal(t, 1, res.Spawned)
	res = l.Update(0.1)
	assert.Zero(t, res.Spawned)

	require.Len(t, exec.spawns, 3)
	assert.Equal(t, 3, exec.spawns[0].Remaining)
	assert.Equal(t, 1, exec.spawns[1].Remaining)
	assert.Equal(t, 0, exec.spawns[2].Remaining)
	assert.Equal(t, 5, s.NumActive())
}

func TestLifecycle_DropsDeadSpawners(t *testing.T) {
	exec := &recordingExecutor{}
	l := NewLifecycle(exec, newTestRand(), DefaultLifecycleOptions())
	s := newActivatable(model.Placement{ID: 1, Template: "fish"})

	_, ok := l.Activate(s)
	require.True(t, ok)
	s.MarkDead()

	res := l.Update(5)
	assert.Equal(t, UpdateResult{}, res)
	assert.Zero(t, l.ActiveCount())
	assert.Empty(t, exec.despawns)
}

func TestLifecycle_Reset(t *testing.T) {
	l := NewLifecycle(nil, newTestRand(), DefaultLifecycleOptions())
	for i := range 3 {
		_, ok := l.Activate(newActivatable(model.Placement{ID: int64(i + 1), Template: "fish"}))
		require.True(t, ok)
	}
	require.Equal(t, 3, l.ActiveCount())

	l.Reset()
	assert.Zero(t, l.ActiveCount())
}
