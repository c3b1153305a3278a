package flock

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDegenerateAlignment means the population is too small to average
	// the velocity of "all other agents" (size <= 1).
	ErrDegenerateAlignment = errors.New("population must hold at least 2 agents")
	// ErrDegenerateBounds means a minimum bound is greater than its maximum.
	ErrDegenerateBounds = errors.New("bounds are degenerate")
	// ErrInvalidParams reports a flocking parameter out of its valid range.
	ErrInvalidParams = errors.New("invalid flock parameters")
)

// Bounds is the axis-aligned box agents are nudged back into.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Params controls the flocking rule. It is read-only once a Stepper is built.
type Params struct {
	AvoidDistance      float64 // separation applies strictly below this distance
	CohesionDivider    float64 // cohesion pull is divided by this
	AlignmentDivider   float64 // average velocity is divided by this
	MaxSpeed           float64
	RandomnessFactor   float64 // scale applied to the smoothed jitter
	NeighborhoodRadius float64 // cohesion considers agents at or below this distance

	// JitterAmplitude is the half-width of the per-axis uniform sample.
	JitterAmplitude float64
	// JitterBlend is the lerp factor used to fold a new sample into Agent.Jitter.
	JitterBlend float64

	Bounds Bounds
}

// DefaultParams returns a tuning that keeps a small flock cohesive inside a
// 16x10 box.
func DefaultParams() Params {
	return Params{
		AvoidDistance:      1,
		CohesionDivider:    100,
		AlignmentDivider:   2,
		MaxSpeed:           3,
		RandomnessFactor:   1,
		NeighborhoodRadius: 3,
		JitterAmplitude:    0.1,
		JitterBlend:        0.1,
		Bounds: Bounds{
			MinX: -8, MaxX: 8,
			MinY: -5, MaxY: 5,
		},
	}
}

// Validate checks the parameters once at setup so that the per-tick math
// never divides by zero nor propagates NaN into positions.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"avoid distance", p.AvoidDistance},
		{"cohesion divider", p.CohesionDivider},
		{"alignment divider", p.AlignmentDivider},
		{"max speed", p.MaxSpeed},
		{"randomness factor", p.RandomnessFactor},
		{"neighborhood radius", p.NeighborhoodRadius},
		{"jitter amplitude", p.JitterAmplitude},
		{"jitter blend", p.JitterBlend},
		{"min x", p.Bounds.MinX},
		{"max x", p.Bounds.MaxX},
		{"min y", p.Bounds.MinY},
		{"max y", p.Bounds.MaxY},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a finite number, got %v: %w", f.name, f.value, ErrInvalidParams)
		}
	}

	switch {
	case p.CohesionDivider <= 0:
		return fmt.Errorf("cohesion divider must be > 0, got %v: %w", p.CohesionDivider, ErrInvalidParams)
	case p.AlignmentDivider <= 0:
		return fmt.Errorf("alignment divider must be > 0, got %v: %w", p.AlignmentDivider, ErrInvalidParams)
	case p.MaxSpeed <= 0:
		return fmt.Errorf("max speed must be > 0, got %v: %w", p.MaxSpeed, ErrInvalidParams)
	case p.AvoidDistance < 0:
		return fmt.Errorf("avoid distance must be >= 0, got %v: %w", p.AvoidDistance, ErrInvalidParams)
	case p.NeighborhoodRadius < 0:
		return fmt.Errorf("neighborhood radius must be >= 0, got %v: %w", p.NeighborhoodRadius, ErrInvalidParams)
	case p.RandomnessFactor < 0:
		return fmt.Errorf("randomness factor must be >= 0, got %v: %w", p.RandomnessFactor, ErrInvalidParams)
	case p.JitterAmplitude < 0:
		return fmt.Errorf("jitter amplitude must be >= 0, got %v: %w", p.JitterAmplitude, ErrInvalidParams)
	case p.JitterBlend < 0 || p.JitterBlend > 1:
		return fmt.Errorf("jitter blend must be in [0, 1], got %v: %w", p.JitterBlend, ErrInvalidParams)
	}

	if p.Bounds.MinX > p.Bounds.MaxX {
		return fmt.Errorf("min x %v > max x %v: %w", p.Bounds.MinX, p.Bounds.MaxX, ErrDegenerateBounds)
	}
	if p.Bounds.MinY > p.Bounds.MaxY {
		return fmt.Errorf("min y %v > max y %v: %w", p.Bounds.MinY, p.Bounds.MaxY, ErrDegenerateBounds)
	}
	return nil
}
