package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Placement sources.
const (
	SourceFile     = "file"
	SourceDatabase = "database"
)

// Engine holds all configuration for the spawngrid service.
type Engine struct {
	// Admin HTTP API
	AdminAddress string `yaml:"admin_address"`
	LogLevel     string `yaml:"log_level"`

	// Frame driver
	TickInterval time.Duration `yaml:"tick_interval"` // default: 50ms

	Grid   GridConfig   `yaml:"grid"`
	Spawn  SpawnConfig  `yaml:"spawn"`
	Camera CameraConfig `yaml:"camera"`

	// Placement source: "file" or "database"
	Source     string `yaml:"source"`
	LevelFile  string `yaml:"level_file"`
	WatchLevel bool   `yaml:"watch_level"` // reload on level file change

	Database DatabaseConfig `yaml:"database"`
}

// GridConfig configures the spatial grid.
type GridConfig struct {
	CellSizeX      float64 `yaml:"cell_size_x"`
	CellSizeY      float64 `yaml:"cell_size_y"`
	DepthThreshold float64 `yaml:"depth_threshold"` // depth >= threshold goes to background
	MaxCells       int     `yaml:"max_cells"`       // per grid, reload fails beyond this (default: 4194304)

	// Fixed world extent. Nil derives it from the placements.
	WorldBounds *BoundsConfig `yaml:"world_bounds"`
}

// BoundsConfig is a world rectangle in config files.
type BoundsConfig struct {
	X0 float64 `yaml:"x0"`
	Y0 float64 `yaml:"y0"`
	X1 float64 `yaml:"x1"`
	Y1 float64 `yaml:"y1"`
}

// SpawnConfig configures spawner activation.
type SpawnConfig struct {
	DeactivateAfter time.Duration `yaml:"deactivate_after"` // without keep-alive (default: 1s)
	SpawnsPerFrame  int           `yaml:"spawns_per_frame"` // 0 = whole batch at once
	Seed            uint64        `yaml:"seed"`             // 0 = random
}

// CameraConfig configures the view rectangles.
type CameraConfig struct {
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	KeepAliveMargin float64 `yaml:"keep_alive_margin"`
	BackgroundScale float64 `yaml:"background_scale"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultEngine returns Engine config with sensible defaults.
func DefaultEngine() Engine {
	return Engine{
		AdminAddress: "127.0.0.1:8090",
		LogLevel:     "info",
		TickInterval: 50 * time.Millisecond,
		Grid: GridConfig{
			CellSizeX:      15,
			CellSizeY:      15,
			DepthThreshold: 20,
			MaxCells:       1 << 22,
		},
		Spawn: SpawnConfig{
			DeactivateAfter: time.Second,
		},
		Camera: CameraConfig{
			Width:           32,
			Height:          18,
			KeepAliveMargin: 10,
			BackgroundScale: 2,
		},
		Source:    SourceFile,
		LevelFile: "config/level.yaml",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "spawngrid",
			Password: "spawngrid",
			DBName:   "spawngrid",
			SSLMode:  "disable",
		},
	}
}

// Validate checks values that would make the engine misbehave.
func (c Engine) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.Grid.CellSizeX <= 0 || c.Grid.CellSizeY <= 0 {
		errs = append(errs, fmt.Errorf("grid cell size must be positive, got %vx%v", c.Grid.CellSizeX, c.Grid.CellSizeY))
	}
	if c.Grid.MaxCells <= 0 {
		errs = append(errs, fmt.Errorf("grid.max_cells must be positive, got %d", c.Grid.MaxCells))
	}
	if c.Spawn.DeactivateAfter <= 0 {
		errs = append(errs, fmt.Errorf("spawn.deactivate_after must be positive, got %s", c.Spawn.DeactivateAfter))
	}
	if c.Spawn.SpawnsPerFrame < 0 {
		errs = append(errs, fmt.Errorf("spawn.spawns_per_frame must not be negative, got %d", c.Spawn.SpawnsPerFrame))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size must be positive, got %vx%v", c.Camera.Width, c.Camera.Height))
	}
	switch c.Source {
	case SourceFile:
		if c.LevelFile == "" {
			errs = append(errs, errors.New("level_file is required for file source"))
		}
	case SourceDatabase:
	default:
		errs = append(errs, fmt.Errorf("unknown placement source %q", c.Source))
	}
	return errors.Join(errs...)
}

// LoadEngine загружает конфигурацию движка из YAML файла.
// Если файл не существует, возвращает defaults.
func LoadEngine(path string) (Engine, error) {
	cfg := DefaultEngine()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
