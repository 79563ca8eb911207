package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/udisondev/spawngrid/internal/metrics"
	"github.com/udisondev/spawngrid/internal/model"
	"github.com/udisondev/spawngrid/internal/spawn"
	"github.com/udisondev/spawngrid/internal/view"
	"github.com/udisondev/spawngrid/internal/world"
)

// Skip reasons reported in FrameResult and metrics.
const (
	SkipDuplicate = "duplicate"
	SkipNoWorld   = "no_world"
	SkipPaused    = "paused"
	SkipView      = "view"
)

// DefaultTickInterval is the frame period used by Start.
const DefaultTickInterval = 50 * time.Millisecond

// maxFrameDelta caps the measured delta after a stall so spawners do not
// all time out at once.
const maxFrameDelta = 0.25

// ErrStopped is returned by commands submitted after the driver stopped.
var ErrStopped = errors.New("driver stopped")

// Frame is one engine step.
type Frame struct {
	ID    uint64
	Delta float64 // seconds since the previous frame
	View  view.Rects
}

// FrameResult reports what one Tick did.
type FrameResult struct {
	Skipped    string
	Foreground spawn.ScanResult
	Background spawn.ScanResult
	Update     spawn.UpdateResult
}

// ViewSource supplies the rectangles for frames built by Start.
type ViewSource interface {
	Rects() view.Rects
}

// Options configures the driver.
type Options struct {
	TickInterval time.Duration
	Lifecycle    spawn.LifecycleOptions
	Rand         *rand.Rand         // nil seeds from the runtime
	Metrics      *metrics.Collector // nil disables metrics
}

type command struct {
	fn   func(*world.World) error
	done chan error
}

// Driver owns the world and runs scans on a single goroutine.
// Tick, and everything Start runs, must not be called concurrently.
// SetPaused, RequestReload, Do and Snapshot are safe from any goroutine.
type Driver struct {
	world     *world.World
	scanner   *spawn.Scanner
	lifecycle *spawn.Lifecycle
	executor  spawn.Executor
	view      ViewSource
	metrics   *metrics.Collector
	interval  time.Duration

	paused   atomic.Bool
	pending  atomic.Pointer[world.World]
	commands chan command
	stopped  chan struct{}
	snapshot atomic.Pointer[Snapshot]

	lastFrame uint64
	hasFrame  bool
	nextFrame uint64
	gameTime  float64
	lastScan  [len(world.Tiers)]spawn.ScanResult
	gridStats [len(world.Tiers)]world.GridStats

	debugLog rate.Sometimes
}

// NewDriver creates a driver over w (may be nil until the first reload).
// A nil executor discards spawn requests.
func NewDriver(w *world.World, exec spawn.Executor, src ViewSource, opts Options) *Driver {
	if exec == nil {
		exec = spawn.NopExecutor{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	lifecycle := spawn.NewLifecycle(exec, rng, opts.Lifecycle)
	d := &Driver{
		scanner:   spawn.NewScanner(lifecycle),
		lifecycle: lifecycle,
		executor:  exec,
		view:      src,
		metrics:   opts.Metrics,
		interval:  opts.TickInterval,
		commands:  make(chan command, 16),
		stopped:   make(chan struct{}),
		debugLog:  rate.Sometimes{Interval: 5 * time.Second},
	}
	d.setWorld(w)
	d.publish(FrameResult{}, view.Rects{})
	return d
}

// SetPaused toggles the pause gate. While paused frames do nothing:
// no scans, no self-deactivation and the game clock stops.
func (d *Driver) SetPaused(paused bool) {
	if d.paused.Swap(paused) != paused {
		slog.Info("spawner driver pause toggled", "paused", paused)
	}
}

// Paused reports whether the pause gate is set.
func (d *Driver) Paused() bool {
	return d.paused.Load()
}

// RequestReload queues w to replace the current world at the next frame boundary.
// Only the latest request is kept.
func (d *Driver) RequestReload(w *world.World) {
	if w == nil {
		return
	}
	if prev := d.pending.Swap(w); prev != nil {
		slog.Debug("superseded pending world reload")
	}
}

// Snapshot returns the latest published snapshot. Never nil.
func (d *Driver) Snapshot() *Snapshot {
	return d.snapshot.Load()
}

// Do runs fn on the driver goroutine at the next frame boundary and returns its error.
// ctx only bounds queueing: once accepted, fn runs and Do reports its result
// even if ctx is cancelled meanwhile.
func (d *Driver) Do(ctx context.Context, fn func(*world.World) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}

	select {
	case d.commands <- cmd:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-d.stopped:
		// Последний Tick мог успеть выполнить команду
		select {
		case err := <-cmd.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Inspect returns the current state of spawner id.
func (d *Driver) Inspect(ctx context.Context, id int64) (SpawnerInfo, error) {
	var info SpawnerInfo
	err := d.Do(ctx, func(w *world.World) error {
		if w == nil {
			return fmt.Errorf("inspecting spawner %d: %w", id, spawn.ErrUnknownSpawner)
		}
		s, ok := w.Spawner(id)
		if !ok {
			return fmt.Errorf("inspecting spawner %d: %w", id, spawn.ErrUnknownSpawner)
		}
		info = newSpawnerInfo(w, s)
		return nil
	})
	return info, err
}

// Kill marks spawner id dead and culls its instances.
func (d *Driver) Kill(ctx context.Context, id int64) error {
	return d.Do(ctx, func(w *world.World) error {
		if w == nil {
			return fmt.Errorf("killing spawner %d: %w", id, spawn.ErrUnknownSpawner)
		}
		return spawn.Kill(w, d.executor, id)
	})
}

// InstancesKilled records n instances of spawner id destroyed by the game.
func (d *Driver) InstancesKilled(ctx context.Context, id int64, n int) error {
	return d.Do(ctx, func(w *world.World) error {
		if w == nil {
			return fmt.Errorf("recording killed instances of spawner %d: %w", id, spawn.ErrUnknownSpawner)
		}
		return spawn.InstancesKilled(w, id, n)
	})
}

// SetLive toggles the live flag of spawner id's owning object.
func (d *Driver) SetLive(ctx context.Context, id int64, live bool) error {
	return d.Do(ctx, func(w *world.World) error {
		if w == nil {
			return fmt.Errorf("setting spawner %d live: %w", id, spawn.ErrUnknownSpawner)
		}
		return spawn.SetLive(w, id, live)
	})
}

// Start runs frames every TickInterval until ctx is cancelled.
// Frame IDs increase monotonically; delta is the measured wall time.
func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	defer close(d.stopped)

	slog.Info("spawner driver started", "interval", d.interval)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("spawner driver stopping")
			return ctx.Err()

		case now := <-ticker.C:
			delta := min(now.Sub(last).Seconds(), maxFrameDelta)
			last = now

			d.nextFrame++
			var rects view.Rects
			if d.view != nil {
				rects = d.view.Rects()
			}
			d.Tick(Frame{ID: d.nextFrame, Delta: delta, View: rects})
		}
	}
}

// Tick processes one frame: pending commands and reloads first, then both tier
// scans (foreground, background) and the lifecycle update.
// A frame with the same ID as the previous one is ignored.
func (d *Driver) Tick(f Frame) FrameResult {
	d.runCommands()
	d.applyReload()

	res := d.tick(f)
	if res.Skipped != "" && d.metrics != nil {
		d.metrics.FrameSkipped(res.Skipped)
	}
	d.publish(res, f.View)
	return res
}

func (d *Driver) tick(f Frame) FrameResult {
	if d.hasFrame && f.ID == d.lastFrame {
		return FrameResult{Skipped: SkipDuplicate}
	}
	d.lastFrame = f.ID
	d.hasFrame = true

	if d.world == nil || !d.world.Built() {
		return FrameResult{Skipped: SkipNoWorld}
	}
	if d.paused.Load() {
		return FrameResult{Skipped: SkipPaused}
	}
	if !f.View.Initialized {
		return FrameResult{Skipped: SkipView}
	}

	start := time.Now()
	d.gameTime += f.Delta

	var res FrameResult
	res.Foreground = d.scanner.Scan(d.world.Grid(world.TierForeground),
		f.View.KeepAliveForeground, f.View.ActivateForeground, d.gameTime)
	res.Background = d.scanner.Scan(d.world.Grid(world.TierBackground),
		f.View.KeepAliveBackground, f.View.ActivateBackground, d.gameTime)
	res.Update = d.lifecycle.Update(f.Delta)

	d.lastScan[world.TierForeground] = res.Foreground
	d.lastScan[world.TierBackground] = res.Background

	elapsed := time.Since(start)
	if d.metrics != nil {
		d.metrics.ObserveFrame(metrics.FrameStats{
			Duration: elapsed,
			Tiers: map[string]metrics.TierStats{
				world.TierForeground.String(): tierStats(res.Foreground),
				world.TierBackground.String(): tierStats(res.Background),
			},
			Deactivated: res.Update.Deactivated,
			Spawned:     res.Foreground.Spawned + res.Background.Spawned + res.Update.Spawned,
			Despawned:   res.Update.Despawned,
			ActiveCount: d.lifecycle.ActiveCount(),
		})
	}

	d.debugLog.Do(func() {
		slog.Debug("spawner frame",
			"frame", f.ID,
			"gameTime", d.gameTime,
			"fgVisited", res.Foreground.Visited,
			"bgVisited", res.Background.Visited,
			"active", d.lifecycle.ActiveCount(),
			"elapsed", elapsed)
	})

	return res
}

func (d *Driver) runCommands() {
	for {
		select {
		case cmd := <-d.commands:
			cmd.done <- cmd.fn(d.world)
		default:
			return
		}
	}
}

func (d *Driver) applyReload() {
	w := d.pending.Swap(nil)
	if w == nil {
		return
	}

	// Инстансы старого мира удаляются, его спаунеры больше не тикают
	if d.world != nil {
		for _, s := range d.world.Spawners() {
			if n := s.NumActive(); n > 0 {
				d.executor.Despawn(model.DespawnRequest{SpawnerID: s.ID(), Count: n})
			}
		}
	}
	d.lifecycle.Reset()
	d.setWorld(w)

	slog.Info("spawner world swapped", "spawners", w.SpawnerCount())
}

func (d *Driver) setWorld(w *world.World) {
	d.world = w
	d.lastScan = [len(world.Tiers)]spawn.ScanResult{}
	d.gridStats = [len(world.Tiers)]world.GridStats{}
	if w == nil {
		return
	}
	for _, t := range world.Tiers {
		if g := w.Grid(t); g != nil {
			d.gridStats[t] = g.Stats()
		}
	}
	if d.metrics != nil {
		d.metrics.WorldLoaded(w.SpawnerCount(), nil)
	}
}

func (d *Driver) publish(res FrameResult, rects view.Rects) {
	snap := &Snapshot{
		Frame:     d.lastFrame,
		GameTime:  d.gameTime,
		Paused:    d.paused.Load(),
		Skipped:   res.Skipped,
		View:      rects,
		UpdatedAt: time.Now(),
		Active:    d.lifecycle.ActiveCount(),
		Foreground: TierSnapshot{
			Grid:     d.gridStats[world.TierForeground],
			LastScan: d.lastScan[world.TierForeground],
		},
		Background: TierSnapshot{
			Grid:     d.gridStats[world.TierBackground],
			LastScan: d.lastScan[world.TierBackground],
		},
		LastUpdate: res.Update,
	}
	if d.world != nil {
		snap.Spawners = d.world.SpawnerCount()
		snap.MissingTemplates = d.world.MissingTemplates()
		snap.WorldExtent = d.world.Extent()
	}
	d.snapshot.Store(snap)
}

func tierStats(r spawn.ScanResult) metrics.TierStats {
	return metrics.TierStats{
		Cells:     r.Cells,
		Visited:   r.Visited,
		KeepAlive: r.KeepAlive,
		Activated: r.Activated,
	}
}
