package level

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/spawngrid/internal/model"
)

const reefLevel = `
name: reef
spawners:
  - id: 1
    x: 7
    y: 7
    radius: 2
    template: fish
  - id: 2
    x: 15
    y: 15
    z: 30
    radius: 5
    min_spawn: 2
    max_spawn: 4
    multi_cell: true
    variants: [red, blue]
    wait_time: 3.5
    rotation: 1.57
    inherit_rotation: true
`

func writeLevel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "level.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileRepository_LoadAll(t *testing.T) {
	repo := NewFileRepository(writeLevel(t, reefLevel))

	placements, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, placements, 2)

	assert.Equal(t, model.Placement{ID: 1, X: 7, Y: 7, Radius: 2, Template: "fish"}, placements[0])
	assert.Equal(t, model.Placement{
		ID: 2, X: 15, Y: 15, Z: 30, Radius: 5,
		MinSpawn: 2, MaxSpawn: 4, MultiCell: true,
		Variants: []string{"red", "blue"},
		WaitTime: 3.5, Rotation: 1.57, InheritRotation: true,
	}, placements[1])
}

func TestFileRepository_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		repo := NewFileRepository(filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := repo.LoadAll(context.Background())
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewFileRepository(writeLevel(t, reefLevel)).LoadAll(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown field", func(t *testing.T) {
		repo := NewFileRepository(writeLevel(t, "spawners:\n  - id: 1\n    radiuss: 3\n"))
		_, err := repo.LoadAll(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing level")
	})
}

func TestDecode_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero id", "spawners: [{id: 0, template: a}]"},
		{"duplicate id", "spawners: [{id: 1, template: a}, {id: 1, template: b}]"},
		{"negative radius", "spawners: [{id: 1, radius: -1}]"},
		{"negative count", "spawners: [{id: 1, min_spawn: -2}]"},
		{"min above max", "spawners: [{id: 1, min_spawn: 5, max_spawn: 2}]"},
		{"not a number", "spawners: [{id: 1, x: .nan}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.content))
			require.ErrorIs(t, err, ErrInvalidPlacement)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	lvl, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lvl.Spawners)
}

func TestDecode_Scale(t *testing.T) {
	lvl, err := Decode(strings.NewReader(`
spawners:
  - {id: 1, x: 0, y: 0, template: fish, scale_min: 0.5, scale_max: 1.5}
`))
	require.NoError(t, err)
	require.Len(t, lvl.Spawners, 1)
	assert.Equal(t, 0.5, lvl.Spawners[0].ScaleMin)
	assert.Equal(t, 1.5, lvl.Spawners[0].ScaleMax)

	_, err = Decode(strings.NewReader(`
spawners:
  - {id: 1, x: 0, y: 0, template: fish, scale_min: 2, scale_max: 1}
`))
	require.ErrorIs(t, err, ErrInvalidPlacement)
}

func TestDecode_Infinite(t *testing.T) {
	_, err := Decode(strings.NewReader(`
spawners:
  - {id: 1, x: .inf, y: 0, template: fish}
`))
	require.ErrorIs(t, err, ErrInvalidPlacement)
	require.ErrorIs(t, model.Placement{ID: 1, Rotation: math.Inf(1)}.Validate(), ErrInvalidPlacement)
}

func TestFileRepository_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	repo := NewFileRepository(path)
	lvl := Level{Name: "saved", Spawners: []model.Placement{{ID: 9, X: 1, Y: 2, Template: "crab"}}}

	require.NoError(t, repo.Save(lvl))

	placements, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lvl.Spawners, placements)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, lvl))
	assert.Contains(t, buf.String(), "name: saved")
}
