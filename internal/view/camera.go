package view

import (
	"sync"

	"github.com/udisondev/spawngrid/internal/geom"
)

const (
	// DefaultKeepAliveMargin is how far (world units) the keep-alive rectangle
	// extends past the viewport on each side.
	DefaultKeepAliveMargin = 10.0

	// DefaultBackgroundScale widens background rectangles: distant layers
	// scroll slower, so the view covers more of them.
	DefaultBackgroundScale = 2.0
)

// Rects are the four per-frame rectangles the scanner works with.
// Activate rectangles are always contained in their keep-alive rectangles.
type Rects struct {
	KeepAliveForeground geom.Bounds `json:"keepAliveForeground" msgpack:"keepAliveForeground"`
	ActivateForeground  geom.Bounds `json:"activateForeground" msgpack:"activateForeground"`
	KeepAliveBackground geom.Bounds `json:"keepAliveBackground" msgpack:"keepAliveBackground"`
	ActivateBackground  geom.Bounds `json:"activateBackground" msgpack:"activateBackground"`
	Initialized         bool        `json:"initialized" msgpack:"initialized"`
}

// Options configures the camera rectangles.
type Options struct {
	Width           float64 // viewport width in world units
	Height          float64 // viewport height in world units
	KeepAliveMargin float64
	BackgroundScale float64
}

// Camera tracks the view centre. Rects are derived on demand.
// Safe for concurrent use: the admin API moves it while the driver reads it.
type Camera struct {
	mu          sync.RWMutex
	center      geom.Vec2
	opts        Options
	initialized bool
}

// NewCamera creates a camera. It reports Initialized() == false until the first MoveTo.
func NewCamera(opts Options) *Camera {
	if opts.KeepAliveMargin < 0 {
		opts.KeepAliveMargin = 0
	}
	if opts.BackgroundScale < 1 {
		opts.BackgroundScale = 1
	}
	return &Camera{opts: opts}
}

// MoveTo centres the camera on (x, y).
func (c *Camera) MoveTo(x, y float64) {
	c.mu.Lock()
	c.center = geom.NewVec2(x, y)
	c.initialized = true
	c.mu.Unlock()
}

// Resize changes the viewport size.
func (c *Camera) Resize(width, height float64) {
	c.mu.Lock()
	c.opts.Width = width
	c.opts.Height = height
	c.mu.Unlock()
}

// Center returns camera centre
func (c *Camera) Center() geom.Vec2 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.center
}

// Initialized reports whether the camera has been positioned.
func (c *Camera) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// Rects returns the current keep-alive and activate rectangles for both tiers.
func (c *Camera) Rects() Rects {
	c.mu.RLock()
	center, opts, initialized := c.center, c.opts, c.initialized
	c.mu.RUnlock()

	activate := geom.NewBounds(center, geom.NewVec2(opts.Width, opts.Height))
	keepAlive := activate.Expand(opts.KeepAliveMargin, opts.KeepAliveMargin)

	return Rects{
		ActivateForeground:  activate,
		KeepAliveForeground: keepAlive,
		ActivateBackground:  activate.Scale(opts.BackgroundScale),
		KeepAliveBackground: keepAlive.Scale(opts.BackgroundScale),
		Initialized:         initialized,
	}
}
