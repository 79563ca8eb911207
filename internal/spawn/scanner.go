package spawn

import (
	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
	"github.com/udisondev/spawngrid/internal/world"
)

// ScanResult summarizes one tier scan.
type ScanResult struct {
	// Cells in the scanned range and distinct spawners evaluated.
	Cells   int `json:"cells" msgpack:"cells"`
	Visited int `json:"visited" msgpack:"visited"`

	KeepAlive int `json:"keepAlive" msgpack:"keepAlive"`
	Activated int `json:"activated" msgpack:"activated"`

	// Instances emitted by activations.
	Spawned int `json:"spawned" msgpack:"spawned"`
}

// Add accumulates o into r.
func (r *ScanResult) Add(o ScanResult) {
	r.Cells += o.Cells
	r.Visited += o.Visited
	r.KeepAlive += o.KeepAlive
	r.Activated += o.Activated
	r.Spawned += o.Spawned
}

// Scanner walks the grid cells around the view each frame and ticks, activates
// or ignores the spawners it finds. It never deactivates anything: spawners that
// stop receiving keep-alive ticks switch themselves off (see Lifecycle).
type Scanner struct {
	lifecycle  *Lifecycle
	generation uint64
}

// NewScanner creates a scanner that activates spawners through lifecycle.
func NewScanner(lifecycle *Lifecycle) *Scanner {
	return &Scanner{lifecycle: lifecycle}
}

// Generation returns the id of the last scan (0 before the first one).
func (sc *Scanner) Generation() uint64 {
	return sc.generation
}

// Scan processes one tier.
// keepAlive is the larger rectangle: spawners overlapping it get a keep-alive tick.
// activate is the smaller one: dormant spawners overlapping both are switched on.
// The gap between the two gives on/off hysteresis at the view edge.
// Every spawner is evaluated at most once per call, even if it spans many cells.
func (sc *Scanner) Scan(grid *world.Grid, keepAlive, activate geom.Bounds, gameTime float64) ScanResult {
	var res ScanResult
	if grid == nil {
		return res
	}

	r, ok := grid.QueryCellRange(keepAlive)
	if !ok {
		return res
	}

	sc.generation++
	gen := sc.generation
	res.Cells = r.Count()

	grid.ForEachInRange(r, func(s *model.Spawner) bool {
		if !s.MarkChecked(gen) {
			return true
		}
		res.Visited++

		state := s.State()
		if state == model.StateDead {
			return true
		}
		if !s.CanSpawn(gameTime) {
			return true
		}

		b := s.Bounds()
		if !b.Intersects(keepAlive) {
			return true
		}

		s.KeepAliveTick()
		res.KeepAlive++

		if !s.Enabled() && state.CanActivate() && b.Intersects(activate) {
			if n, ok := sc.lifecycle.Activate(s); ok {
				res.Activated++
				res.Spawned += n
			}
		}
		return true
	})

	return res
}
