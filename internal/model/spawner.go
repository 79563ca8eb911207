package model

import (
	"math"
	"math/rand/v2"

	"github.com/udisondev/spawngrid/internal/geom"
)

// Spawner is one placed spawn point.
// Owned by the world registry; grid cells only hold references.
// Not safe for concurrent use: all mutation happens on the frame goroutine.
type Spawner struct {
	placement Placement
	bounds    geom.Bounds

	state   State
	enabled bool // receiving updates (activated and not yet culled)
	live    bool // owning object is live; activation without it produces nothing

	lastCheckedFrame   uint64
	keepAlive          bool
	timeSinceKeepAlive float64

	numSpawned  int // total instances produced since registration
	numActive   int // produced, not killed or culled
	numSleeping int // culled but not dead, restored on reactivation
	producing   int // still owed by the current activation
	restoring   bool
	scale       float64 // picked on activation
}

// NewSpawner creates a spawner from a placement. State is StateInvalid until Init.
func NewSpawner(p Placement) *Spawner {
	p = p.Normalized()
	return &Spawner{
		placement: p,
		bounds:    geom.NewBounds(p.Position(), p.BoundsSize()),
		state:     StateInvalid,
		live:      true,
	}
}

// Init moves a freshly registered spawner to StateWaiting.
// Does nothing if the spawner was already initialized.
func (s *Spawner) Init() {
	if s.state == StateInvalid {
		s.state = StateWaiting
	}
}

// ID returns placement ID
func (s *Spawner) ID() int64 {
	return s.placement.ID
}

// Placement returns the authored placement (normalized).
func (s *Spawner) Placement() Placement {
	return s.placement
}

// Position returns the anchor position.
func (s *Spawner) Position() geom.Vec2 {
	return s.placement.Position()
}

// Bounds returns the activation/culling footprint.
func (s *Spawner) Bounds() geom.Bounds {
	return s.bounds
}

// Depth returns world depth (Z).
func (s *Spawner) Depth() float64 {
	return s.placement.Z
}

// InsertIntoMultipleCells reports whether the grid indexes the full footprint
// instead of only the anchor cell.
func (s *Spawner) InsertIntoMultipleCells() bool {
	return s.placement.MultiCell
}

// Template returns the primary spawn template name.
func (s *Spawner) Template() string {
	return s.placement.Template
}

// HasTemplate reports whether the spawner has anything to produce.
func (s *Spawner) HasTemplate() bool {
	return s.placement.Template != "" || len(s.placement.Variants) > 0
}

// State returns lifecycle state
func (s *Spawner) State() State {
	return s.state
}

// Enabled reports whether the spawner is switched on.
func (s *Spawner) Enabled() bool {
	return s.enabled
}

// Live reports whether the owning object is live.
func (s *Spawner) Live() bool {
	return s.live
}

// SetLive sets whether the owning object is live.
func (s *Spawner) SetLive(live bool) {
	s.live = live
}

// LastCheckedFrame returns the scan generation that last visited this spawner.
func (s *Spawner) LastCheckedFrame() uint64 {
	return s.lastCheckedFrame
}

// MarkChecked records a visit by scan generation gen.
// Returns false if the spawner was already visited by gen.
func (s *Spawner) MarkChecked(gen uint64) bool {
	if s.lastCheckedFrame == gen {
		return false
	}
	s.lastCheckedFrame = gen
	return true
}

// KeepAlive reports whether a keep-alive tick arrived since the last timer update.
func (s *Spawner) KeepAlive() bool {
	return s.keepAlive
}

// TimeSinceKeepAlive returns seconds elapsed without a keep-alive tick.
func (s *Spawner) TimeSinceKeepAlive() float64 {
	return s.timeSinceKeepAlive
}

// NumSpawned returns total produced instances.
func (s *Spawner) NumSpawned() int {
	return s.numSpawned
}

// NumActive returns instances currently alive.
func (s *Spawner) NumActive() int {
	return s.numActive
}

// NumSleeping returns instances waiting to be restored.
func (s *Spawner) NumSleeping() int {
	return s.numSleeping
}

// Producing returns instances still owed by the current activation.
func (s *Spawner) Producing() int {
	return s.producing
}

// CanSpawn reports whether the spawner is eligible for keep-alive and activation
// at game time gameTime. Waiting spawners are held back until their wait time passes;
// spawners without a template never qualify.
func (s *Spawner) CanSpawn(gameTime float64) bool {
	if s.state == StateDead || s.state == StateInvalid {
		return false
	}
	if !s.HasTemplate() {
		return false
	}
	if s.state == StateWaiting && s.placement.WaitTime > gameTime {
		return false
	}
	return true
}

// KeepAliveTick stops the spawner from self-deactivating this frame.
func (s *Spawner) KeepAliveTick() {
	s.keepAlive = true
}

// OnActivated switches a Waiting or Sleeping spawner on.
// The number of instances to produce is random in [MinSpawn, MaxSpawn] on first
// activation, or the remembered sleeping count on restore, capped at MaxSpawn.
// Owed instances are only emitted while the owner is live; see NextBatch.
// Returns false if the state does not allow activation.
func (s *Spawner) OnActivated(rng *rand.Rand) bool {
	if !s.state.CanActivate() {
		return false
	}

	var count int
	switch s.state {
	case StateSleeping:
		count = s.numSleeping
		s.restoring = true
	case StateWaiting:
		count = randRange(rng, s.placement.MinSpawn, s.placement.MaxSpawn)
		s.restoring = false
	}
	count = min(count, s.placement.MaxSpawn)

	s.keepAlive = true
	s.timeSinceKeepAlive = 0
	s.enabled = true
	s.numSleeping = 0
	s.producing = count
	s.scale = randScale(rng, s.placement.ScaleMin, s.placement.ScaleMax)
	s.state = StateActive
	return true
}

// OnDeactivated puts an Active spawner to sleep, remembering how many of its
// instances were alive (or still owed) so reactivation restores exactly that many.
// Returns the cull request and true, or false if the spawner was not Active.
func (s *Spawner) OnDeactivated() (DespawnRequest, bool) {
	if s.state != StateActive {
		return DespawnRequest{}, false
	}

	req := DespawnRequest{SpawnerID: s.placement.ID, Count: s.numActive}

	s.numSleeping = s.numActive + s.producing
	s.numActive = 0
	s.producing = 0
	s.enabled = false
	s.keepAlive = false
	s.timeSinceKeepAlive = 0
	s.state = StateSleeping
	return req, true
}

// UpdateKeepAlive advances the self-deactivation timer by dt seconds.
// A pending keep-alive tick resets the timer; otherwise it returns true once
// the spawner has gone deactivateAfter seconds without one.
func (s *Spawner) UpdateKeepAlive(dt, deactivateAfter float64) bool {
	if !s.enabled {
		return false
	}
	if s.keepAlive {
		s.keepAlive = false
		s.timeSinceKeepAlive = 0
		return false
	}
	s.timeSinceKeepAlive += dt
	return s.timeSinceKeepAlive >= deactivateAfter
}

// NextBatch emits up to limit owed instances (limit <= 0 emits all of them).
// Returns false when nothing is owed or the spawner is not Active.
func (s *Spawner) NextBatch(limit int, rng *rand.Rand) (SpawnBatch, bool) {
	if s.state != StateActive || s.producing <= 0 || !s.live {
		return SpawnBatch{}, false
	}

	n := s.producing
	if limit > 0 && n > limit {
		n = limit
	}

	batch := SpawnBatch{
		SpawnerID: s.placement.ID,
		Depth:     s.placement.Z,
		Restored:  s.restoring,
		Scale:     s.scale,
		Instances: make([]SpawnInstance, 0, n),
	}
	if s.placement.InheritRotation {
		batch.Rotation = s.placement.Rotation
	}

	for range n {
		batch.Instances = append(batch.Instances, SpawnInstance{
			Position: s.Position().Add(randInsideCircle(rng, s.placement.Radius)),
			Template: s.pickTemplate(rng),
		})
	}

	s.producing -= n
	s.numSpawned += n
	s.numActive += n
	batch.Remaining = s.producing
	return batch, true
}

// OnInstanceKilled records that one produced instance died for good.
func (s *Spawner) OnInstanceKilled() {
	if s.numActive > 0 {
		s.numActive--
	}
}

// MarkDead makes the spawner permanently ineligible. Dead is terminal.
func (s *Spawner) MarkDead() {
	s.state = StateDead
	s.enabled = false
	s.keepAlive = false
	s.producing = 0
	s.numSleeping = 0
}

func (s *Spawner) pickTemplate(rng *rand.Rand) string {
	variants := s.placement.Variants
	if len(variants) == 0 {
		return s.placement.Template
	}
	return variants[rng.IntN(len(variants))]
}

// randRange returns a random int in [lo, hi] inclusive.
func randRange(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// randScale returns lo when the range is empty, otherwise a uniform value in [lo, hi).
func randScale(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// randInsideCircle returns a uniformly distributed offset inside a circle of radius r.
func randInsideCircle(rng *rand.Rand, r float64) geom.Vec2 {
	if r <= 0 {
		return geom.Vec2{}
	}
	dist := r * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return geom.NewVec2(dist*math.Cos(theta), dist*math.Sin(theta))
}
