package flock

import (
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// ============================================================================
// Neighbor Aggregator
// Each query scans the whole population and skips the agent at index i.
// ============================================================================

// AverageNeighborPosition returns the mean position of every other agent whose
// distance to agent i is <= radius. Without any such neighbor it returns the
// agent's own position, so the cohesion pull becomes zero.
func (p Population) AverageNeighborPosition(i int, radius float64) geometry.Vector2D {
	me := p[i].Position

	sum := geometry.Zero
	count := 0
	for j := range p {
		if j == i {
			continue
		}
		if me.DistanceTo(p[j].Position) <= radius {
			sum = sum.Add(p[j].Position)
			count++
		}
	}

	if count == 0 {
		return me
	}
	return sum.Mul(1 / float64(count))
}

// SeparationVector accumulates a push away from every other agent strictly
// closer than avoid. The push is the raw offset (other - me) negated, not a
// unit vector, so its magnitude equals the distance between the two agents.
func (p Population) SeparationVector(i int, avoid float64) geometry.Vector2D {
	me := p[i].Position

	sum := geometry.Zero
	for j := range p {
		if j == i {
			continue
		}
		if me.DistanceTo(p[j].Position) < avoid {
			sum = sum.Sub(p[j].Position.Sub(me))
		}
	}
	return sum
}

// AverageOtherVelocity averages the velocity of all agents except i, with no
// radius restriction. It returns ErrDegenerateAlignment for populations of one.
func (p Population) AverageOtherVelocity(i int) (geometry.Vector2D, error) {
	if len(p) <= 1 {
		return geometry.Zero, ErrDegenerateAlignment
	}

	sum := geometry.Zero
	for j := range p {
		if j == i {
			continue
		}
		sum = sum.Add(p[j].Velocity)
	}
	return sum.Div(float64(len(p) - 1))
}
