package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
)

func TestTier_String(t *testing.T) {
	assert.Equal(t, "foreground", TierForeground.String())
	assert.Equal(t, "background", TierBackground.String())
	assert.Equal(t, "unknown", Tier(9).String())
}

func TestWorld_AddSpawner(t *testing.T) {
	w := New(DefaultOptions())

	s := model.NewSpawner(model.Placement{ID: 1, X: 10, Y: 10, Radius: 2, Template: "fish"})
	require.NoError(t, w.AddSpawner(s))
	assert.Equal(t, model.StateWaiting, s.State(), "registration initializes the spawner")
	assert.Equal(t, 1, w.SpawnerCount())

	got, ok := w.Spawner(1)
	require.True(t, ok)
	assert.Same(t, s, got)

	dup := model.NewSpawner(model.Placement{ID: 1, Template: "fish"})
	err := w.AddSpawner(dup)
	require.ErrorIs(t, err, ErrDuplicateSpawner)
	assert.Equal(t, 1, w.SpawnerCount())

	_, ok = w.Spawner(99)
	assert.False(t, ok)
}

func TestWorld_MissingTemplate(t *testing.T) {
	w := New(DefaultOptions())
	require.NoError(t, w.AddSpawner(model.NewSpawner(model.Placement{ID: 1})))
	require.NoError(t, w.AddSpawner(model.NewSpawner(model.Placement{ID: 2, Template: "fish"})))

	assert.Equal(t, 1, w.MissingTemplates())
}

func TestWorld_Extent(t *testing.T) {
	w := New(DefaultOptions())
	require.NoError(t, w.AddSpawner(model.NewSpawner(model.Placement{ID: 1, X: 0, Y: 0, Radius: 1, Template: "a"})))
	require.NoError(t, w.AddSpawner(model.NewSpawner(model.Placement{ID: 2, X: 100, Y: 50, Radius: 2, Template: "b"})))

	assert.Equal(t, geom.Bounds{X0: -1, Y0: -1, X1: 102, Y1: 52}, w.Extent())
}

func TestWorld_CreateGrid(t *testing.T) {
	w := New(DefaultOptions())
	assert.False(t, w.Built())
	assert.Nil(t, w.Grid(TierForeground))

	front := model.NewSpawner(model.Placement{ID: 1, X: 7, Y: 7, Radius: 2, Template: "fish"})
	back := model.NewSpawner(model.Placement{ID: 2, X: 7, Y: 7, Z: 30, Radius: 2, Template: "whale"})
	require.NoError(t, w.AddSpawner(front))
	require.NoError(t, w.AddSpawner(back))

	require.NoError(t, w.CreateGrid(geom.Bounds{X0: 0, Y0: 0, X1: 44, Y1: 44}))
	assert.True(t, w.Built())

	assert.Equal(t, []*model.Spawner{front}, w.Grid(TierForeground).Cell(0, 0))
	assert.Equal(t, []*model.Spawner{back}, w.Grid(TierBackground).Cell(0, 0))
	assert.Nil(t, w.Grid(Tier(5)))
	assert.Equal(t, TierForeground, w.TierOf(front))
	assert.Equal(t, TierBackground, w.TierOf(back))
}

func TestWorld_CreateGridFromSpawners(t *testing.T) {
	w := New(DefaultOptions())
	err := w.CreateGridFromSpawners()
	require.ErrorIs(t, err, ErrNoSpawners)

	s := model.NewSpawner(model.Placement{ID: 1, X: 100, Y: 100, Radius: 2, Template: "fish"})
	require.NoError(t, w.AddSpawner(s))
	require.NoError(t, w.CreateGridFromSpawners())

	geo := w.Grid(TierForeground).Geometry()
	// Extent 98..102 padded by one 15-unit cell.
	assert.InDelta(t, 83, geo.OriginX, 1e-9)
	assert.InDelta(t, 83, geo.OriginY, 1e-9)
	assert.Equal(t, 3, geo.SizeX)

	cx, cy := w.Grid(TierForeground).CellOf(s.Position())
	assert.Equal(t, []*model.Spawner{s}, w.Grid(TierForeground).Cell(cx, cy))
}

func TestWorld_CreateGridInvalidOptions(t *testing.T) {
	w := New(Options{CellSizeX: 0, CellSizeY: 15, DepthThreshold: 20})
	require.NoError(t, w.AddSpawner(model.NewSpawner(model.Placement{ID: 1, Template: "fish"})))

	err := w.CreateGridFromSpawners()
	require.ErrorIs(t, err, ErrInvalidCellSize)
	assert.False(t, w.Built())
}

func TestWorld_CreateGridFarApartSpawners(t *testing.T) {
	w := New(DefaultOptions())
	require.NoError(t, w.AddSpawner(model.NewSpawner(model.Placement{ID: 1, X: 0, Y: 0, Template: "fish"})))
	require.NoError(t, w.AddSpawner(model.NewSpawner(model.Placement{ID: 2, X: 1e30, Y: 0, Template: "fish"})))

	err := w.CreateGridFromSpawners()
	require.ErrorIs(t, err, ErrGridTooLarge)
	assert.False(t, w.Built())
}
