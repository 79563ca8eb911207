package spawn

import (
	"math/rand/v2"

	"github.com/udisondev/spawngrid/internal/model"
)

// DefaultDeactivateAfter is how long (seconds) an active spawner survives without
// a keep-alive tick before it puts itself to sleep.
const DefaultDeactivateAfter = 1.0

// LifecycleOptions configures activation side effects.
type LifecycleOptions struct {
	DeactivateAfter float64 // seconds without keep-alive before OnDeactivated
	SpawnsPerFrame  int     // max instances emitted per spawner per frame (0 = all at once)
}

// DefaultLifecycleOptions returns 1s deactivation and unstaggered production.
func DefaultLifecycleOptions() LifecycleOptions {
	return LifecycleOptions{
		DeactivateAfter: DefaultDeactivateAfter,
		SpawnsPerFrame:  0,
	}
}

type trackedSpawner struct {
	s     *model.Spawner
	fresh bool // activated this frame, first batch already emitted
}

// Lifecycle owns the enabled spawners: it activates them, emits their spawn
// batches (staggered if configured) and deactivates them once keep-alive ticks stop.
// Cost per frame is proportional to the number of enabled spawners only.
type Lifecycle struct {
	executor Executor
	rng      *rand.Rand
	opts     LifecycleOptions

	active []trackedSpawner
}

// UpdateResult summarizes one Lifecycle.Update.
type UpdateResult struct {
	Deactivated int `json:"deactivated" msgpack:"deactivated"`
	Spawned     int `json:"spawned" msgpack:"spawned"`
	Despawned   int `json:"despawned" msgpack:"despawned"`
}

// NewLifecycle creates a lifecycle. A nil executor discards requests.
func NewLifecycle(executor Executor, rng *rand.Rand, opts LifecycleOptions) *Lifecycle {
	if executor == nil {
		executor = NopExecutor{}
	}
	if opts.DeactivateAfter <= 0 {
		opts.DeactivateAfter = DefaultDeactivateAfter
	}
	if opts.SpawnsPerFrame < 0 {
		opts.SpawnsPerFrame = 0
	}
	return &Lifecycle{
		executor: executor,
		rng:      rng,
		opts:     opts,
		active:   make([]trackedSpawner, 0, 64),
	}
}

// Options returns lifecycle options
func (l *Lifecycle) Options() LifecycleOptions {
	return l.opts
}

// Activate switches s on and emits its first spawn batch.
// Returns number of instances emitted and whether s was activated.
func (l *Lifecycle) Activate(s *model.Spawner) (int, bool) {
	if !s.OnActivated(l.rng) {
		return 0, false
	}
	l.active = append(l.active, trackedSpawner{s: s, fresh: true})
	return l.produce(s), true
}

// Update advances every enabled spawner by dt seconds: self-deactivation first,
// then staggered production. Must run after the frame's scans so keep-alive ticks
// from this frame are seen.
func (l *Lifecycle) Update(dt float64) UpdateResult {
	var res UpdateResult

	kept := l.active[:0]
	for _, t := range l.active {
		s := t.s
		if s.State() != model.StateActive {
			// Marked dead (or otherwise switched off) by gameplay logic.
			continue
		}

		if s.UpdateKeepAlive(dt, l.opts.DeactivateAfter) {
			if req, ok := s.OnDeactivated(); ok {
				res.Deactivated++
				res.Despawned += req.Count
				l.executor.Despawn(req)
			}
			continue
		}

		if !t.fresh {
			res.Spawned += l.produce(s)
		}
		kept = append(kept, trackedSpawner{s: s})
	}

	clear(l.active[len(kept):])
	l.active = kept
	return res
}

// ActiveCount returns number of enabled spawners
func (l *Lifecycle) ActiveCount() int {
	return len(l.active)
}

// Reset forgets every tracked spawner (used when the world is replaced).
func (l *Lifecycle) Reset() {
	clear(l.active)
	l.active = l.active[:0]
}

func (l *Lifecycle) produce(s *model.Spawner) int {
	batch, ok := s.NextBatch(l.opts.SpawnsPerFrame, l.rng)
	if !ok {
		return 0
	}
	l.executor.Spawn(batch)
	return batch.Count()
}
