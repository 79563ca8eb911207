package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/udisondev/spawngrid/internal/geom"
)

// DefaultSpawnRadius is used when a placement does not set a radius.
const DefaultSpawnRadius = 4.0

// ErrInvalidPlacement is returned for placements that cannot be registered.
var ErrInvalidPlacement = errors.New("invalid spawner placement")

// Placement is a spawner as authored in a level: where it sits and what it produces.
// Loaded from level files or the database before the grid is built.
type Placement struct {
	ID int64 `yaml:"id" msgpack:"id"`

	X float64 `yaml:"x" msgpack:"x"`
	Y float64 `yaml:"y" msgpack:"y"`
	Z float64 `yaml:"z" msgpack:"z"` // depth; routes to the background grid at or above the threshold

	Radius float64 `yaml:"radius" msgpack:"radius"` // random spawn radius around (X, Y)
	ExtraX float64 `yaml:"extra_x" msgpack:"extra_x"`
	ExtraY float64 `yaml:"extra_y" msgpack:"extra_y"`

	MinSpawn int `yaml:"min_spawn" msgpack:"min_spawn"`
	MaxSpawn int `yaml:"max_spawn" msgpack:"max_spawn"`

	MultiCell bool `yaml:"multi_cell" msgpack:"multi_cell"`

	Template string   `yaml:"template" msgpack:"template"`
	Variants []string `yaml:"variants,omitempty" msgpack:"variants,omitempty"`

	// Instance scale, picked once per activation in [ScaleMin, ScaleMax]. Zero means 1.
	ScaleMin float64 `yaml:"scale_min,omitempty" msgpack:"scale_min"`
	ScaleMax float64 `yaml:"scale_max,omitempty" msgpack:"scale_max"`

	WaitTime        float64 `yaml:"wait_time" msgpack:"wait_time"` // game-clock seconds before first activation
	Rotation        float64 `yaml:"rotation" msgpack:"rotation"`   // radians
	InheritRotation bool    `yaml:"inherit_rotation" msgpack:"inherit_rotation"`
}

// Position returns the placement anchor in the XY plane.
func (p Placement) Position() geom.Vec2 {
	return geom.NewVec2(p.X, p.Y)
}

// Normalized returns a copy with defaults applied:
// radius defaults to DefaultSpawnRadius, spawn counts are at least 1 and MaxSpawn >= MinSpawn,
// scale defaults to 1 and ScaleMax >= ScaleMin.
func (p Placement) Normalized() Placement {
	if p.Radius <= 0 {
		p.Radius = DefaultSpawnRadius
	}
	if p.MinSpawn < 1 {
		p.MinSpawn = 1
	}
	if p.MaxSpawn < p.MinSpawn {
		p.MaxSpawn = p.MinSpawn
	}
	if p.ScaleMin <= 0 {
		p.ScaleMin = 1
	}
	if p.ScaleMax < p.ScaleMin {
		p.ScaleMax = p.ScaleMin
	}
	return p
}

// Validate checks a placement from any source (level file, database).
// Errors wrap ErrInvalidPlacement.
func (p Placement) Validate() error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("id %d must be positive: %w", p.ID, ErrInvalidPlacement)
	case !finite(p.X, p.Y, p.Z, p.Radius, p.ExtraX, p.ExtraY, p.ScaleMin, p.ScaleMax, p.WaitTime, p.Rotation):
		return fmt.Errorf("spawner %d has non-finite values: %w", p.ID, ErrInvalidPlacement)
	case p.Radius < 0 || p.ExtraX < 0 || p.ExtraY < 0:
		return fmt.Errorf("spawner %d has negative size: %w", p.ID, ErrInvalidPlacement)
	case p.MinSpawn < 0 || p.MaxSpawn < 0:
		return fmt.Errorf("spawner %d has negative spawn count: %w", p.ID, ErrInvalidPlacement)
	case p.MaxSpawn > 0 && p.MinSpawn > p.MaxSpawn:
		return fmt.Errorf("spawner %d: min_spawn %d > max_spawn %d: %w", p.ID, p.MinSpawn, p.MaxSpawn, ErrInvalidPlacement)
	case p.ScaleMin < 0 || p.ScaleMax < 0:
		return fmt.Errorf("spawner %d has negative scale: %w", p.ID, ErrInvalidPlacement)
	case p.ScaleMax > 0 && p.ScaleMin > p.ScaleMax:
		return fmt.Errorf("spawner %d: scale_min %v > scale_max %v: %w", p.ID, p.ScaleMin, p.ScaleMax, ErrInvalidPlacement)
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BoundsSize returns the activation/culling footprint size.
// Multi-spawners get double the footprint.
func (p Placement) BoundsSize() geom.Vec2 {
	size := geom.NewVec2(p.Radius*2+p.ExtraX, p.Radius*2+p.ExtraY)
	if p.MaxSpawn > 1 {
		size = size.Scale(2)
	}
	return size
}
