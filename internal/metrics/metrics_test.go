package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_ObserveFrame(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveFrame(FrameStats{
		Duration: 2 * time.Millisecond,
		Tiers: map[string]TierStats{
			"foreground": {Cells: 9, Visited: 3, KeepAlive: 2, Activated: 1},
			"background": {Cells: 4, Visited: 1, KeepAlive: 1},
		},
		Deactivated: 1,
		Spawned:     5,
		Despawned:   2,
		ActiveCount: 7,
	})

	assert.InDelta(t, 1, testutil.ToFloat64(c.frames), 1e-9)
	assert.InDelta(t, 9, testutil.ToFloat64(c.cellsScanned.WithLabelValues("foreground")), 1e-9)
	assert.InDelta(t, 4, testutil.ToFloat64(c.cellsScanned.WithLabelValues("background")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.activations.WithLabelValues("foreground")), 1e-9)
	assert.InDelta(t, 5, testutil.ToFloat64(c.spawned), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(c.despawned), 1e-9)
	assert.InDelta(t, 7, testutil.ToFloat64(c.activeSpawners), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(c.frameDuration))
}

func TestCollector_Skips(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.FrameSkipped("paused")
	c.FrameSkipped("paused")
	c.FrameSkipped("view")

	assert.InDelta(t, 2, testutil.ToFloat64(c.framesSkipped.WithLabelValues("paused")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.framesSkipped.WithLabelValues("view")), 1e-9)
}

func TestCollector_WorldLoaded(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.WorldLoaded(12, nil)
	c.WorldLoaded(0, errors.New("boom"))

	assert.InDelta(t, 12, testutil.ToFloat64(c.registeredSpawners), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.reloads.WithLabelValues("ok")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.reloads.WithLabelValues("error")), 1e-9)
}

func TestCollector_WebSocket(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.SetWSClients(3)
	c.WSMessage()
	assert.InDelta(t, 3, testutil.ToFloat64(c.wsClients), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.wsMessages), 1e-9)
}
