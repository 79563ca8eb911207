package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spawngrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEngine_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadEngine(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultEngine(), cfg)
}

func TestDefaultEngine_Valid(t *testing.T) {
	require.NoError(t, DefaultEngine().Validate())
}

func TestLoadEngine_Overrides(t *testing.T) {
	path := writeConfig(t, `
admin_address: "0.0.0.0:9000"
tick_interval: 20ms
grid:
  cell_size_x: 30
  cell_size_y: 10
  max_cells: 1000
  world_bounds: {x0: 0, y0: 0, x1: 500, y1: 200}
spawn:
  deactivate_after: 2500ms
  spawns_per_frame: 3
  seed: 42
source: database
database:
  host: db
  port: 6543
`)

	cfg, err := LoadEngine(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.AdminAddress)
	assert.Equal(t, 20*time.Millisecond, cfg.TickInterval)
	assert.InDelta(t, 30, cfg.Grid.CellSizeX, 1e-9)
	assert.InDelta(t, 10, cfg.Grid.CellSizeY, 1e-9)
	assert.InDelta(t, 20, cfg.Grid.DepthThreshold, 1e-9, "unset keys keep defaults")
	assert.Equal(t, 1000, cfg.Grid.MaxCells)
	require.NotNil(t, cfg.Grid.WorldBounds)
	assert.Equal(t, BoundsConfig{X0: 0, Y0: 0, X1: 500, Y1: 200}, *cfg.Grid.WorldBounds)
	assert.Equal(t, 2500*time.Millisecond, cfg.Spawn.DeactivateAfter)
	assert.Equal(t, 3, cfg.Spawn.SpawnsPerFrame)
	assert.Equal(t, uint64(42), cfg.Spawn.Seed)
	assert.Equal(t, SourceDatabase, cfg.Source)
	assert.Equal(t, "postgres://spawngrid:spawngrid@db:6543/spawngrid?sslmode=disable", cfg.Database.DSN())
}

func TestLoadEngine_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"malformed yaml", "grid: [", "parsing config"},
		{"zero cell size", "grid: {cell_size_x: 0}", "cell size must be positive"},
		{"zero max cells", "grid: {max_cells: 0}", "grid.max_cells"},
		{"unknown source", "source: redis", `unknown placement source "redis"`},
		{"negative stagger", "spawn: {spawns_per_frame: -1}", "spawns_per_frame"},
		{"empty level file", "level_file: \"\"", "level_file is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEngine(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
