package model

import "github.com/udisondev/spawngrid/internal/geom"

// SpawnInstance is one object to create.
type SpawnInstance struct {
	Position geom.Vec2 `json:"position" msgpack:"position"`
	Template string    `json:"template" msgpack:"template"`
}

// SpawnBatch asks the spawn executor to create instances for a spawner.
// Emitted on activation and, for staggered production, on later frames.
type SpawnBatch struct {
	SpawnerID int64           `json:"spawnerId" msgpack:"spawnerId"`
	Depth     float64         `json:"depth" msgpack:"depth"`
	Rotation  float64         `json:"rotation" msgpack:"rotation"`
	Scale     float64         `json:"scale" msgpack:"scale"` // same for every batch of one activation
	Restored  bool            `json:"restored" msgpack:"restored"` // restoring a sleeping spawner
	Remaining int             `json:"remaining" msgpack:"remaining"`
	Instances []SpawnInstance `json:"instances" msgpack:"instances"`
}

// Count returns number of instances in the batch.
func (b SpawnBatch) Count() int {
	return len(b.Instances)
}

// DespawnRequest asks the executor to cull the live instances of a spawner
// that went to sleep.
type DespawnRequest struct {
	SpawnerID int64 `json:"spawnerId" msgpack:"spawnerId"`
	Count     int   `json:"count" msgpack:"count"`
}
