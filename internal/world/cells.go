package world

import (
	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
)

// Grid is an immutable uniform bucket grid of spawner references.
// Cell storage is flat: cell i holds entries[offsets[i]:offsets[i+1]].
// IMPORTANT: after Build the grid is read-only and may be shared between goroutines;
// the spawners it references are not.
type Grid struct {
	geo     Geometry
	offsets []int32 // len = CellCount()+1
	entries []*model.Spawner
	cursor  []int32 // fill positions, only during Build
	skipped int
}

func newGrid(geo Geometry) *Grid {
	return &Grid{
		geo:     geo,
		offsets: make([]int32, geo.CellCount()+1),
	}
}

// allocate turns per-cell counts (stored at offsets[i+1]) into prefix offsets
// and sizes entries exactly.
func (g *Grid) allocate() {
	for i := 1; i < len(g.offsets); i++ {
		g.offsets[i] += g.offsets[i-1]
	}
	g.entries = make([]*model.Spawner, g.offsets[len(g.offsets)-1])
	g.cursor = make([]int32, len(g.offsets)-1)
	copy(g.cursor, g.offsets)
}

func (g *Grid) insert(idx int, s *model.Spawner) {
	g.entries[g.cursor[idx]] = s
	g.cursor[idx]++
}

// Geometry returns grid geometry
func (g *Grid) Geometry() Geometry {
	return g.geo
}

// Skipped returns how many spawners were left out because their footprint missed the grid.
func (g *Grid) Skipped() int {
	return g.skipped
}

// Cell returns spawners registered in cell (cx, cy).
// Returns nil for empty or out-of-range cells.
// IMPORTANT: returned slice aliases grid storage, DO NOT modify.
func (g *Grid) Cell(cx, cy int) []*model.Spawner {
	if !g.geo.IsValidCell(cx, cy) {
		return nil
	}
	i := g.geo.Index(cx, cy)
	lo, hi := g.offsets[i], g.offsets[i+1]
	if lo == hi {
		return nil
	}
	return g.entries[lo:hi:hi]
}

// CellOf returns the cell containing world point p (unclamped).
func (g *Grid) CellOf(p geom.Vec2) (cx, cy int) {
	return g.geo.CellCoord(p.X, p.Y)
}

// QueryCellRange returns the cells to scan for rectangle b: the overlapped cells
// plus a one-cell border, clamped to the grid. The border catches single-cell
// spawners whose bounds spill out of their anchor cell.
// Returns false when the expanded range lies entirely off the grid.
func (g *Grid) QueryCellRange(b geom.Bounds) (CellRange, bool) {
	return g.geo.clampedRange(b, 1)
}

// ForEachInRange calls fn for every cell entry in r, row by row.
// An entity registered in several cells is yielded once per cell.
// If fn returns false, iteration stops.
func (g *Grid) ForEachInRange(r CellRange, fn func(*model.Spawner) bool) {
	for cy := r.Y0; cy <= r.Y1; cy++ {
		for cx := r.X0; cx <= r.X1; cx++ {
			for _, s := range g.Cell(cx, cy) {
				if !fn(s) {
					return
				}
			}
		}
	}
}

// GridStats summarizes grid occupancy.
type GridStats struct {
	SizeX         int `json:"sizeX" msgpack:"sizeX"`
	SizeY         int `json:"sizeY" msgpack:"sizeY"`
	OccupiedCells int `json:"occupiedCells" msgpack:"occupiedCells"`
	References    int `json:"references" msgpack:"references"`
	MaxPerCell    int `json:"maxPerCell" msgpack:"maxPerCell"`
	Skipped       int `json:"skipped" msgpack:"skipped"`
}

// Stats returns occupancy statistics (O(cells)).
func (g *Grid) Stats() GridStats {
	st := GridStats{
		SizeX:      g.geo.SizeX,
		SizeY:      g.geo.SizeY,
		References: len(g.entries),
		Skipped:    g.skipped,
	}
	for i := range g.geo.CellCount() {
		n := int(g.offsets[i+1] - g.offsets[i])
		if n > 0 {
			st.OccupiedCells++
		}
		st.MaxPerCell = max(st.MaxPerCell, n)
	}
	return st
}
