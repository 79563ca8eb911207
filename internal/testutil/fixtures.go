package testutil

import (
	"math/rand/v2"

	"github.com/udisondev/spawngrid/internal/model"
)

// Placement returns a single-spawn placement with a template at (x, y).
func Placement(id int64, x, y float64) model.Placement {
	return model.Placement{
		ID:       id,
		X:        x,
		Y:        y,
		Radius:   2,
		MinSpawn: 1,
		MaxSpawn: 1,
		Template: "fish",
	}
}

// RandomPlacements возвращает n placements в [0,width)×[0,height):
// каждый четвёртый multi-cell, каждый пятый в background tier.
func RandomPlacements(rng *rand.Rand, n int, width, height float64) []model.Placement {
	out := make([]model.Placement, 0, n)
	for i := range n {
		p := Placement(int64(i+1), rng.Float64()*width, rng.Float64()*height)
		p.MaxSpawn = 1 + rng.IntN(3)
		p.MultiCell = i%4 == 0
		if i%5 == 0 {
			p.Z = 30
		}
		out = append(out, p)
	}
	return out
}

// Rand returns a deterministic random source for tests.
func Rand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}
