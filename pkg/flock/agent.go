// Package flock implements the boids flocking rule over a flat population.
//
// Boids is an artificial life program developed by Craig Reynolds in 1986
// which simulates the flocking behaviour of birds. The name "boid" is a
// shortened version of "bird-oid object". https://en.wikipedia.org/wiki/Boids
//
// Every tick each agent's velocity is rebuilt from four contributions
// (cohesion, separation, alignment, boundary correction) plus a smoothed
// random jitter, clamped to a maximum speed and added to its position.
// Neighbor queries are brute-force over all pairs.
package flock

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Agent is one simulated boid.
// Fields are exported so an inspection layer can read them after each tick.
type Agent struct {
	Position geometry.Vector2D
	Velocity geometry.Vector2D
	// Jitter is the exponentially smoothed random perturbation carried across ticks.
	Jitter geometry.Vector2D
}

// Population is a flat arena of agents addressed by stable indices.
// Its length never changes once the simulation has started.
type Population []Agent

// Spawn creates n agents at positions drawn uniformly in [-spread, spread)
// on each axis, with zero velocity and zero jitter.
func Spawn(n int, spread float64, rng *rand.Rand) Population {
	pop := make(Population, n)
	for i := range pop {
		pop[i].Position = geometry.Vector2D{
			X: (rng.Float64()*2 - 1) * spread,
			Y: (rng.Float64()*2 - 1) * spread,
		}
	}
	return pop
}

// Clone returns a deep copy of the population.
func (p Population) Clone() Population {
	out := make(Population, len(p))
	copy(out, p)
	return out
}

// copyInto overwrites dst with the content of p, growing dst when needed.
// It lets the stepper reuse one snapshot buffer across ticks.
func (p Population) copyInto(dst Population) Population {
	if cap(dst) < len(p) {
		dst = make(Population, len(p))
	}
	dst = dst[:len(p)]
	copy(dst, p)
	return dst
}
