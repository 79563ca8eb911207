// Package admin serves the operator HTTP API: health, metrics, snapshots,
// spawner inspection and control, camera and pause control, and the event stream.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"

	"github.com/udisondev/spawngrid/internal/engine"
	"github.com/udisondev/spawngrid/internal/geom"
	"github.com/udisondev/spawngrid/internal/spawn"
)

// ContentTypeMsgpack selects the binary snapshot encoding.
const ContentTypeMsgpack = "application/msgpack"

const commandTimeout = 2 * time.Second

// Engine is the part of engine.Driver the API drives.
type Engine interface {
	Snapshot() *engine.Snapshot
	Inspect(ctx context.Context, id int64) (engine.SpawnerInfo, error)
	Kill(ctx context.Context, id int64) error
	InstancesKilled(ctx context.Context, id int64, n int) error
	SetLive(ctx context.Context, id int64, live bool) error
	SetPaused(paused bool)
	Paused() bool
}

// Camera is the movable view.
type Camera interface {
	MoveTo(x, y float64)
	Resize(width, height float64)
	Center() geom.Vec2
}

// KillRecorder persists kills so reloads keep dead spawners dead.
type KillRecorder interface {
	MarkKilled(ctx context.Context, id int64) error
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateLimitConfig limits mutating requests (POST) across all clients.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimitConfig returns 20 req/s with a burst of 40.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
}

// RouterConfig contains the router dependencies.
type RouterConfig struct {
	Engine Engine       // required
	Camera Camera       // required
	Hub    *Hub         // nil disables /events
	Kills  KillRecorder // optional
	DB     Pinger       // optional, checked by /healthz

	// Gatherer backs /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	RateLimit      *RateLimitConfig
	DisableLogging bool
}

type handlers struct {
	engine Engine
	camera Camera
	kills  KillRecorder
	db     Pinger
}

// NewRouter constructs the HTTP router. It starts no goroutines.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(requestLogger)
	}
	r.Use(middleware.Recoverer)

	h := &handlers{
		engine: cfg.Engine,
		camera: cfg.Camera,
		kills:  cfg.Kills,
		db:     cfg.DB,
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	rl := DefaultRateLimitConfig
	if cfg.RateLimit != nil {
		rl = *cfg.RateLimit
	}
	limiter := rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.Burst)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/snapshot", h.handleSnapshot)
	r.Get("/spawners/{id}", h.handleGetSpawner)

	r.Group(func(r chi.Router) {
		r.Use(limitRate(limiter))
		r.Post("/spawners/{id}/kill", h.handleKillSpawner)
		r.Post("/spawners/{id}/instances/killed", h.handleInstancesKilled)
		r.Post("/spawners/{id}/live", h.handleSetLive)
		r.Post("/camera", h.handleMoveCamera)
		r.Post("/pause", h.handlePause)
		r.Post("/resume", h.handleResume)
	})

	if cfg.Hub != nil {
		r.Get("/events", cfg.Hub.ServeHTTP)
	}

	return r
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			slog.Warn("health check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"paused": h.engine.Paused(),
	})
}

func (h *handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()

	if wantsMsgpack(r) {
		data, err := msgpack.Marshal(snap)
		if err != nil {
			slog.Error("encoding snapshot", "err", err)
			writeError(w, http.StatusInternalServerError, "encoding snapshot")
			return
		}
		w.Header().Set("Content-Type", ContentTypeMsgpack)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) handleGetSpawner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	info, err := h.engine.Inspect(ctx, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *handlers) handleKillSpawner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := h.engine.Kill(ctx, id); err != nil {
		writeEngineError(w, err)
		return
	}
	if h.kills != nil {
		// Спаунер уже мёртв в движке: запись не должна зависеть от клиента
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), commandTimeout)
		defer cancel()
		if err := h.kills.MarkKilled(persistCtx, id); err != nil {
			slog.Error("persisting spawner kill", "spawnerID", id, "err", err)
			writeError(w, http.StatusInternalServerError, "spawner killed but not persisted")
			return
		}
	}

	slog.Info("spawner killed", "spawnerID", id)
	w.WriteHeader(http.StatusNoContent)
}

type instancesKilledRequest struct {
	Count int `json:"count"`
}

func (h *handlers) handleInstancesKilled(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req instancesKilledRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Count < 1 {
		writeError(w, http.StatusBadRequest, "count must be at least 1")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := h.engine.InstancesKilled(ctx, id, req.Count); err != nil {
		writeEngineError(w, err)
		return
	}
	slog.Debug("spawner instances killed", "spawnerID", id, "count", req.Count)
	w.WriteHeader(http.StatusNoContent)
}

type setLiveRequest struct {
	Live *bool `json:"live"`
}

func (h *handlers) handleSetLive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req setLiveRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Live == nil {
		writeError(w, http.StatusBadRequest, "live is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := h.engine.SetLive(ctx, id, *req.Live); err != nil {
		writeEngineError(w, err)
		return
	}
	slog.Debug("spawner live toggled", "spawnerID", id, "live", *req.Live)
	w.WriteHeader(http.StatusNoContent)
}

type moveCameraRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`

	// Optional, set together.
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

func (h *handlers) handleMoveCamera(w http.ResponseWriter, r *http.Request) {
	var req moveCameraRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.X == nil || req.Y == nil || !finite(*req.X) || !finite(*req.Y) {
		writeError(w, http.StatusBadRequest, "x and y must be finite numbers")
		return
	}
	if (req.Width == nil) != (req.Height == nil) {
		writeError(w, http.StatusBadRequest, "width and height must be set together")
		return
	}
	if req.Width != nil {
		if !finite(*req.Width) || !finite(*req.Height) || *req.Width <= 0 || *req.Height <= 0 {
			writeError(w, http.StatusBadRequest, "width and height must be positive")
			return
		}
		h.camera.Resize(*req.Width, *req.Height)
	}

	h.camera.MoveTo(*req.X, *req.Y)
	writeJSON(w, http.StatusOK, h.camera.Center())
}

func (h *handlers) handlePause(w http.ResponseWriter, _ *http.Request) {
	h.engine.SetPaused(true)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleResume(w http.ResponseWriter, _ *http.Request) {
	h.engine.SetPaused(false)
	w.WriteHeader(http.StatusNoContent)
}

// readJSON reads a small strict JSON body into dst, answering 400 on failure.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid spawner id")
		return 0, false
	}
	return id, true
}

func wantsMsgpack(r *http.Request) bool {
	if r.URL.Query().Get("format") == "msgpack" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), ContentTypeMsgpack)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, spawn.ErrUnknownSpawner):
		writeError(w, http.StatusNotFound, "spawner not found")
	case errors.Is(err, engine.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "engine not running")
	default:
		slog.Error("engine command failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
