package flock

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// JitterSource produces the raw random perturbation drawn for one agent on one tick.
type JitterSource interface {
	Sample() geometry.Vector2D
}

// UniformJitter draws each axis independently and uniformly in [-Amplitude, Amplitude).
type UniformJitter struct {
	Amplitude float64
	rng       *rand.Rand
}

// NewUniformJitter returns a reproducible jitter source seeded with seed.
func NewUniformJitter(amplitude float64, seed uint64) *UniformJitter {
	return &UniformJitter{
		Amplitude: amplitude,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Sample implements JitterSource.
func (u *UniformJitter) Sample() geometry.Vector2D {
	return geometry.Vector2D{
		X: (u.rng.Float64()*2 - 1) * u.Amplitude,
		Y: (u.rng.Float64()*2 - 1) * u.Amplitude,
	}
}

// ZeroJitter always samples the zero vector.
type ZeroJitter struct{}

// Sample implements JitterSource.
func (ZeroJitter) Sample() geometry.Vector2D { return geometry.Zero }

// SmoothJitter folds a fresh sample into the previous jitter state so the
// perturbation drifts continuously instead of jumping every tick.
func SmoothJitter(state, sample geometry.Vector2D, blend float64) geometry.Vector2D {
	return state.Lerp(sample, blend)
}
