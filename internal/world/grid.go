package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
)

// Defaults for spawner grids.
const (
	// DefaultCellSize - cell edge in world units, both axes
	DefaultCellSize = 15.0

	// DefaultDepthThreshold - spawners at or beyond this depth go to the background grid
	DefaultDepthThreshold = 20.0

	// DefaultMaxCells - cell count limit per grid (2048×2048)
	DefaultMaxCells = 1 << 22
)

var (
	// ErrInvalidCellSize is returned when a grid is built with a non-positive cell size.
	ErrInvalidCellSize = errors.New("cell size must be positive")

	// ErrInvalidExtent is returned for a non-finite or inverted world extent.
	ErrInvalidExtent = errors.New("world extent must be finite")

	// ErrGridTooLarge is returned when the extent needs more cells than Options.MaxCells.
	ErrGridTooLarge = errors.New("grid exceeds cell limit")
)

// Geometry describes a uniform grid laid over the world extent.
// Cells are indexed row-major: index = cy*SizeX + cx.
type Geometry struct {
	OriginX, OriginY     float64
	CellSizeX, CellSizeY float64
	SizeX, SizeY         int
}

// NewGeometry lays a grid over extent.
// Size = floor(extent size / cell size) + 1 on each axis, so at least 1×1.
func NewGeometry(extent geom.Bounds, cellSizeX, cellSizeY float64) Geometry {
	return Geometry{
		OriginX:   extent.X0,
		OriginY:   extent.Y0,
		CellSizeX: cellSizeX,
		CellSizeY: cellSizeY,
		SizeX:     int(math.Floor(extent.Width()/cellSizeX)) + 1,
		SizeY:     int(math.Floor(extent.Height()/cellSizeY)) + 1,
	}
}

// CellCount returns total number of cells
func (g Geometry) CellCount() int {
	return g.SizeX * g.SizeY
}

// CellCoord converts world coordinates to (unclamped) cell coordinates.
// Formula: floor((coord - origin) / cellSize)
func (g Geometry) CellCoord(x, y float64) (cx, cy int) {
	cx = int(math.Floor((x - g.OriginX) / g.CellSizeX))
	cy = int(math.Floor((y - g.OriginY) / g.CellSizeY))
	return cx, cy
}

// IsValidCell checks if cell coordinates are within the grid
func (g Geometry) IsValidCell(cx, cy int) bool {
	return cx >= 0 && cx < g.SizeX && cy >= 0 && cy < g.SizeY
}

// Index returns the row-major index of a valid cell.
func (g Geometry) Index(cx, cy int) int {
	return cy*g.SizeX + cx
}

// CellBounds returns the world rectangle covered by a cell.
func (g Geometry) CellBounds(cx, cy int) geom.Bounds {
	x0 := g.OriginX + float64(cx)*g.CellSizeX
	y0 := g.OriginY + float64(cy)*g.CellSizeY
	return geom.Bounds{X0: x0, Y0: y0, X1: x0 + g.CellSizeX, Y1: y0 + g.CellSizeY}
}

// Extent returns the world rectangle covered by the whole grid.
func (g Geometry) Extent() geom.Bounds {
	return geom.Bounds{
		X0: g.OriginX,
		Y0: g.OriginY,
		X1: g.OriginX + float64(g.SizeX)*g.CellSizeX,
		Y1: g.OriginY + float64(g.SizeY)*g.CellSizeY,
	}
}

// CellRange is an inclusive rectangle of cell coordinates.
type CellRange struct {
	X0, Y0 int
	X1, Y1 int
}

// Count returns number of cells in the range
func (r CellRange) Count() int {
	if r.X1 < r.X0 || r.Y1 < r.Y0 {
		return 0
	}
	return (r.X1 - r.X0 + 1) * (r.Y1 - r.Y0 + 1)
}

// Contains reports whether (cx, cy) is inside the range.
func (r CellRange) Contains(cx, cy int) bool {
	return cx >= r.X0 && cx <= r.X1 && cy >= r.Y0 && cy <= r.Y1
}

// clampedRange converts a world rectangle to the cell range it overlaps,
// clamped to the grid. Returns false if the rectangle misses the grid entirely.
func (g Geometry) clampedRange(b geom.Bounds, border int) (CellRange, bool) {
	// float64 until clamped: far-away bounds must not overflow int
	x0 := math.Floor((b.X0-g.OriginX)/g.CellSizeX) - float64(border)
	y0 := math.Floor((b.Y0-g.OriginY)/g.CellSizeY) - float64(border)
	x1 := math.Floor((b.X1-g.OriginX)/g.CellSizeX) + float64(border)
	y1 := math.Floor((b.Y1-g.OriginY)/g.CellSizeY) + float64(border)

	if !(x0 < float64(g.SizeX)) || !(y0 < float64(g.SizeY)) || !(x1 >= 0) || !(y1 >= 0) {
		return CellRange{}, false
	}

	return CellRange{
		X0: int(max(x0, 0)),
		Y0: int(max(y0, 0)),
		X1: int(min(x1, float64(g.SizeX-1))),
		Y1: int(min(y1, float64(g.SizeY-1))),
	}, true
}

// footprint returns the cells a spawner is registered in.
// Multi-cell spawners cover every cell their bounds overlap; the rest only
// the cell containing their anchor position, whatever their bounds span.
func (g Geometry) footprint(s *model.Spawner) (CellRange, bool) {
	if s.InsertIntoMultipleCells() {
		return g.clampedRange(s.Bounds(), 0)
	}

	pos := s.Position()
	cx, cy := g.CellCoord(pos.X, pos.Y)
	if !g.IsValidCell(cx, cy) {
		return CellRange{}, false
	}
	return CellRange{X0: cx, Y0: cy, X1: cx, Y1: cy}, true
}

// checkSize rejects extents whose grid cannot be allocated.
// Sizes are computed in float64 so huge extents cannot overflow int.
func checkSize(extent geom.Bounds, opts Options) error {
	if !finite(extent.X0, extent.Y0, extent.X1, extent.Y1) || extent.Width() < 0 || extent.Height() < 0 {
		return fmt.Errorf("extent %+v: %w", extent, ErrInvalidExtent)
	}

	maxCells := opts.MaxCells
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	sx := math.Floor(extent.Width()/opts.CellSizeX) + 1
	sy := math.Floor(extent.Height()/opts.CellSizeY) + 1
	if sx*sy > float64(maxCells) {
		return fmt.Errorf("%.0fx%.0f cells, limit %d: %w", sx, sy, maxCells, ErrGridTooLarge)
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

// Build creates the foreground and background grids over extent in two passes:
// the first counts spawners per cell, the second fills exactly-sized cell storage.
// Spawners with depth < opts.DepthThreshold go to fg, the rest to bg.
// Spawners whose footprint misses the grid are not indexed (see Grid.Skipped).
func Build(spawners []*model.Spawner, extent geom.Bounds, opts Options) (fg, bg *Grid, err error) {
	if !(opts.CellSizeX > 0) || !(opts.CellSizeY > 0) || math.IsInf(opts.CellSizeX, 0) || math.IsInf(opts.CellSizeY, 0) {
		return nil, nil, fmt.Errorf("building grid %vx%v: %w", opts.CellSizeX, opts.CellSizeY, ErrInvalidCellSize)
	}
	if err := checkSize(extent, opts); err != nil {
		return nil, nil, fmt.Errorf("building grid: %w", err)
	}

	depthThreshold := opts.DepthThreshold
	geo := NewGeometry(extent, opts.CellSizeX, opts.CellSizeY)
	fg = newGrid(geo)
	bg = newGrid(geo)

	pick := func(s *model.Spawner) *Grid {
		if s.Depth() < depthThreshold {
			return fg
		}
		return bg
	}

	// Проход 1: считаем ссылки на ячейку
	for _, s := range spawners {
		grid := pick(s)
		r, ok := geo.footprint(s)
		if !ok {
			grid.skipped++
			continue
		}
		for cy := r.Y0; cy <= r.Y1; cy++ {
			for cx := r.X0; cx <= r.X1; cx++ {
				grid.offsets[geo.Index(cx, cy)+1]++
			}
		}
	}

	fg.allocate()
	bg.allocate()

	// Проход 2: заполняем
	for _, s := range spawners {
		r, ok := geo.footprint(s)
		if !ok {
			continue
		}
		grid := pick(s)
		for cy := r.Y0; cy <= r.Y1; cy++ {
			for cx := r.X0; cx <= r.X1; cx++ {
				grid.insert(geo.Index(cx, cy), s)
			}
		}
	}

	fg.cursor = nil
	bg.cursor = nil
	return fg, bg, nil
}
