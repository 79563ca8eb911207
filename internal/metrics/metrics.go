// Package metrics exposes spawner engine counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds engine metrics. Labels are bounded: tier is "foreground" or "background".
type Collector struct {
	frameDuration prometheus.Histogram
	frames        prometheus.Counter
	framesSkipped *prometheus.CounterVec

	cellsScanned    *prometheus.CounterVec
	spawnersVisited *prometheus.CounterVec
	keepAliveTicks  *prometheus.CounterVec
	activations     *prometheus.CounterVec

	deactivations prometheus.Counter
	spawned       prometheus.Counter
	despawned     prometheus.Counter

	activeSpawners     prometheus.Gauge
	registeredSpawners prometheus.Gauge
	reloads            *prometheus.CounterVec

	wsClients  prometheus.Gauge
	wsMessages prometheus.Counter
}

// New registers engine metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "spawngrid_frame_duration_seconds",
			Help:    "Time spent scanning and updating spawners in one frame",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Name: "spawngrid_frames_total",
			Help: "Frames processed",
		}),
		framesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spawngrid_frames_skipped_total",
			Help: "Frames skipped without scanning",
		}, []string{"reason"}), // Bounded: "paused", "view", "duplicate", "no_world"

		cellsScanned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spawngrid_cells_scanned_total",
			Help: "Grid cells walked by the activation scanner",
		}, []string{"tier"}),
		spawnersVisited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spawngrid_spawners_visited_total",
			Help: "Distinct spawners evaluated by the activation scanner",
		}, []string{"tier"}),
		keepAliveTicks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spawngrid_keep_alive_ticks_total",
			Help: "Keep-alive ticks delivered to spawners",
		}, []string{"tier"}),
		activations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spawngrid_activations_total",
			Help: "Spawner activations",
		}, []string{"tier"}),

		deactivations: f.NewCounter(prometheus.CounterOpts{
			Name: "spawngrid_deactivations_total",
			Help: "Spawners put to sleep after missing keep-alive ticks",
		}),
		spawned: f.NewCounter(prometheus.CounterOpts{
			Name: "spawngrid_instances_spawned_total",
			Help: "Instances requested from the spawn executor",
		}),
		despawned: f.NewCounter(prometheus.CounterOpts{
			Name: "spawngrid_instances_despawned_total",
			Help: "Instances culled by deactivation",
		}),

		activeSpawners: f.NewGauge(prometheus.GaugeOpts{
			Name: "spawngrid_active_spawners",
			Help: "Currently enabled spawners",
		}),
		registeredSpawners: f.NewGauge(prometheus.GaugeOpts{
			Name: "spawngrid_registered_spawners",
			Help: "Spawners in the current world",
		}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spawngrid_world_reloads_total",
			Help: "World reloads",
		}, []string{"result"}), // Bounded: "ok", "error"

		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "spawngrid_websocket_clients",
			Help: "Connected event stream clients",
		}),
		wsMessages: f.NewCounter(prometheus.CounterOpts{
			Name: "spawngrid_websocket_messages_total",
			Help: "Event stream messages broadcast",
		}),
	}
}

// TierStats are the per-tier scan counts of one frame.
type TierStats struct {
	Cells     int
	Visited   int
	KeepAlive int
	Activated int
}

// FrameStats summarizes one processed frame.
type FrameStats struct {
	Duration    time.Duration
	Tiers       map[string]TierStats
	Deactivated int
	Spawned     int
	Despawned   int
	ActiveCount int
}

// ObserveFrame records a processed frame.
func (c *Collector) ObserveFrame(s FrameStats) {
	c.frames.Inc()
	c.frameDuration.Observe(s.Duration.Seconds())

	for tier, ts := range s.Tiers {
		c.cellsScanned.WithLabelValues(tier).Add(float64(ts.Cells))
		c.spawnersVisited.WithLabelValues(tier).Add(float64(ts.Visited))
		c.keepAliveTicks.WithLabelValues(tier).Add(float64(ts.KeepAlive))
		c.activations.WithLabelValues(tier).Add(float64(ts.Activated))
	}

	c.deactivations.Add(float64(s.Deactivated))
	c.spawned.Add(float64(s.Spawned))
	c.despawned.Add(float64(s.Despawned))
	c.activeSpawners.Set(float64(s.ActiveCount))
}

// FrameSkipped records a frame that did no scanning.
func (c *Collector) FrameSkipped(reason string) {
	c.framesSkipped.WithLabelValues(reason).Inc()
}

// WorldLoaded records a reload attempt and, on success, the registered spawner count.
func (c *Collector) WorldLoaded(spawners int, err error) {
	if err != nil {
		c.reloads.WithLabelValues("error").Inc()
		return
	}
	c.reloads.WithLabelValues("ok").Inc()
	c.registeredSpawners.Set(float64(spawners))
}

// SetWSClients records the number of event stream clients.
func (c *Collector) SetWSClients(n int) {
	c.wsClients.Set(float64(n))
}

// WSMessage counts one broadcast message.
func (c *Collector) WSMessage() {
	c.wsMessages.Inc()
}
