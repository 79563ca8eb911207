package engine

import (
	"time"

	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/model"
	"github.com/udisondev/spawngrid/internal/spawn"
	"github.com/udisondev/spawngrid/internal/view"
	"github.com/udisondev/spawngrid/internal/world"
)

// TierSnapshot is one tier's grid shape and last scan.
type TierSnapshot struct {
	Grid     world.GridStats  `json:"grid" msgpack:"grid"`
	LastScan spawn.ScanResult `json:"lastScan" msgpack:"lastScan"`
}

// Snapshot is an immutable view of the driver state after a frame.
// Published atomically; readers never see a partially written value.
type Snapshot struct {
	Frame     uint64     `json:"frame" msgpack:"frame"`
	GameTime  float64    `json:"gameTime" msgpack:"gameTime"`
	Paused    bool       `json:"paused" msgpack:"paused"`
	Skipped   string     `json:"skipped,omitempty" msgpack:"skipped,omitempty"`
	View      view.Rects `json:"view" msgpack:"view"`
	UpdatedAt time.Time  `json:"updatedAt" msgpack:"updatedAt"`

	Spawners         int `json:"spawners" msgpack:"spawners"`
	MissingTemplates int `json:"missingTemplates" msgpack:"missingTemplates"`
	Active           int `json:"active" msgpack:"active"`

	WorldExtent geom.Bounds  `json:"worldExtent" msgpack:"worldExtent"`
	Foreground  TierSnapshot `json:"foreground" msgpack:"foreground"`
	Background  TierSnapshot `json:"background" msgpack:"background"`

	LastUpdate spawn.UpdateResult `json:"lastUpdate" msgpack:"lastUpdate"`
}

// SpawnerInfo describes one spawner for inspection.
type SpawnerInfo struct {
	ID                 int64       `json:"id" msgpack:"id"`
	Position           geom.Vec2   `json:"position" msgpack:"position"`
	Depth              float64     `json:"depth" msgpack:"depth"`
	Bounds             geom.Bounds `json:"bounds" msgpack:"bounds"`
	MultiCell          bool        `json:"multiCell" msgpack:"multiCell"`
	Template           string      `json:"template" msgpack:"template"`
	Tier               string      `json:"tier" msgpack:"tier"`
	Cell               [2]int      `json:"cell" msgpack:"cell"` // anchor cell in the tier grid
	CellBounds         geom.Bounds `json:"cellBounds" msgpack:"cellBounds"`
	State              string      `json:"state" msgpack:"state"`
	Enabled            bool        `json:"enabled" msgpack:"enabled"`
	Live               bool        `json:"live" msgpack:"live"`
	TimeSinceKeepAlive float64     `json:"timeSinceKeepAlive" msgpack:"timeSinceKeepAlive"`
	LastCheckedFrame   uint64      `json:"lastCheckedFrame" msgpack:"lastCheckedFrame"`
	NumSpawned         int         `json:"numSpawned" msgpack:"numSpawned"`
	NumActive          int         `json:"numActive" msgpack:"numActive"`
	NumSleeping        int         `json:"numSleeping" msgpack:"numSleeping"`
	Producing          int         `json:"producing" msgpack:"producing"`
}

func newSpawnerInfo(w *world.World, s *model.Spawner) SpawnerInfo {
	info := SpawnerInfo{
		ID:                 s.ID(),
		Position:           s.Position(),
		Depth:              s.Depth(),
		Bounds:             s.Bounds(),
		MultiCell:          s.InsertIntoMultipleCells(),
		Template:           s.Template(),
		State:              s.State().String(),
		Enabled:            s.Enabled(),
		Live:               s.Live(),
		TimeSinceKeepAlive: s.TimeSinceKeepAlive(),
		LastCheckedFrame:   s.LastCheckedFrame(),
		NumSpawned:         s.NumSpawned(),
		NumActive:          s.NumActive(),
		NumSleeping:        s.NumSleeping(),
		Producing:          s.Producing(),
	}

	tier := w.TierOf(s)
	info.Tier = tier.String()
	if g := w.Grid(tier); g != nil {
		cx, cy := g.CellOf(s.Position())
		info.Cell = [2]int{cx, cy}
		info.CellBounds = g.Geometry().CellBounds(cx, cy)
	}
	return info
}
