package spawn

import (
	"log/slog"

	"github.com/udisondev/spawngrid/internal/model"
)

// Executor creates and culls gameplay instances on behalf of spawners.
// Implemented outside the engine (game process, event stream, tests).
type Executor interface {
	Spawn(batch model.SpawnBatch)
	Despawn(req model.DespawnRequest)
}

// NopExecutor discards every request.
type NopExecutor struct{}

func (NopExecutor) Spawn(model.SpawnBatch)      {}
func (NopExecutor) Despawn(model.DespawnRequest) {}

// LogExecutor logs requests at debug level.
type LogExecutor struct{}

// Spawn logs a spawn batch
func (LogExecutor) Spawn(batch model.SpawnBatch) {
	slog.Debug("spawn batch",
		"spawnerID", batch.SpawnerID,
		"count", batch.Count(),
		"remaining", batch.Remaining,
		"restored", batch.Restored)
}

// Despawn logs a cull request
func (LogExecutor) Despawn(req model.DespawnRequest) {
	slog.Debug("despawn", "spawnerID", req.SpawnerID, "count", req.Count)
}

// MultiExecutor fans requests out to several executors in order.
type MultiExecutor []Executor

// Spawn forwards batch to every executor
func (m MultiExecutor) Spawn(batch model.SpawnBatch) {
	for _, e := range m {
		e.Spawn(batch)
	}
}

// Despawn forwards req to every executor
func (m MultiExecutor) Despawn(req model.DespawnRequest) {
	for _, e := range m {
		e.Despawn(req)
	}
}
