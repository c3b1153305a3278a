package flock

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Stats summarizes a population for inspection. It plays no part in the update rule.
type Stats struct {
	Centroid    geometry.Vector2D
	MeanSpeed   float64
	SpeedStdDev float64
	MaxSpeed    float64
	// Polarization is |sum of unit velocities| / n: 1 when all agents head
	// the same way, close to 0 for a disordered flock or a flock at rest.
	Polarization float64
	// Spread is the mean distance of agents to the centroid.
	Spread      float64
	OutOfBounds int
}

// Summarize computes Stats over pop. An empty population gives zero Stats.
func Summarize(pop Population, b Bounds) Stats {
	n := len(pop)
	if n == 0 {
		return Stats{}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	speeds := make([]float64, n)
	heading := geometry.Zero
	var st Stats
	for i, a := range pop {
		xs[i], ys[i] = a.Position.X, a.Position.Y
		speeds[i] = a.Velocity.Len()
		heading = heading.Add(a.Velocity.Normalize())
		if !b.Contains(a.Position.X, a.Position.Y) {
			st.OutOfBounds++
		}
	}

	st.Centroid = geometry.Vector2D{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
	if n > 1 {
		st.MeanSpeed, st.SpeedStdDev = stat.MeanStdDev(speeds, nil)
	} else {
		st.MeanSpeed = speeds[0]
	}
	st.MaxSpeed = floats.Max(speeds)
	st.Polarization = heading.Len() / float64(n)

	dists := make([]float64, n)
	for i, a := range pop {
		dists[i] = a.Position.DistanceTo(st.Centroid)
	}
	st.Spread = stat.Mean(dists, nil)
	return st
}
