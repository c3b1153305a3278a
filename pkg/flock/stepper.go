package flock

import (
	"fmt"
	"strings"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"golang.org/x/sync/errgroup"
)

// UpdateMode selects how agents observe each other within one tick.
type UpdateMode int

const (
	// Sequential updates agents in place, in index order. Agent k sees the
	// already updated state of agents 0..k-1 and the previous tick for the rest.
	Sequential UpdateMode = iota
	// Buffered reads every neighbor from a snapshot frozen at the start of the
	// tick. The outcome no longer depends on iteration order, which differs
	// from Sequential, and allows the force pass to run on several workers.
	Buffered
)

func (m UpdateMode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Buffered:
		return "buffered"
	default:
		return fmt.Sprintf("UpdateMode(%d)", int(m))
	}
}

// ParseUpdateMode converts "sequential" or "buffered" (case-insensitive).
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return Sequential, nil
	case "buffered":
		return Buffered, nil
	default:
		return Sequential, fmt.Errorf("unknown update mode %q: %w", s, ErrInvalidParams)
	}
}

// Stepper applies the flocking rule to a whole population once per call to Step.
// Apart from each agent's Jitter it keeps no state between ticks; the snapshot
// and sample buffers are only reused to avoid allocations.
type Stepper struct {
	params  Params
	jitter  JitterSource
	mode    UpdateMode
	workers int

	snapshot Population
	samples  []geometry.Vector2D
}

// StepperOption configures a Stepper.
type StepperOption func(*Stepper)

// WithUpdateMode selects Sequential (default) or Buffered updates.
func WithUpdateMode(mode UpdateMode) StepperOption {
	return func(s *Stepper) { s.mode = mode }
}

// WithWorkers sets how many goroutines evaluate agents in Buffered mode.
// Sequential mode always runs on the calling goroutine.
func WithWorkers(n int) StepperOption {
	return func(s *Stepper) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewStepper validates params and builds a Stepper. A nil jitter source is
// replaced by ZeroJitter.
func NewStepper(params Params, jitter JitterSource, opts ...StepperOption) (*Stepper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if jitter == nil {
		jitter = ZeroJitter{}
	}
	s := &Stepper{
		params:  params,
		jitter:  jitter,
		mode:    Sequential,
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mode != Sequential && s.mode != Buffered {
		return nil, fmt.Errorf("unsupported update mode %v: %w", s.mode, ErrInvalidParams)
	}
	return s, nil
}

// Params returns the parameters the stepper was built with.
func (s *Stepper) Params() Params { return s.params }

// Mode returns the update mode in use.
func (s *Stepper) Mode() UpdateMode { return s.mode }

// Step advances every agent of pop by one tick, in place.
func (s *Stepper) Step(pop Population) error {
	if len(pop) < 2 {
		return fmt.Errorf("cannot step %d agent(s): %w", len(pop), ErrDegenerateAlignment)
	}
	if s.mode == Buffered {
		return s.stepBuffered(pop)
	}
	return s.stepSequential(pop)
}

func (s *Stepper) stepSequential(pop Population) error {
	for i := range pop {
		pop[i].Velocity = geometry.Zero
		jitter := SmoothJitter(pop[i].Jitter, s.jitter.Sample(), s.params.JitterBlend)
		vel, err := s.velocityFor(pop, i, jitter)
		if err != nil {
			return err
		}
		pop[i].Jitter = jitter
		pop[i].Velocity = vel
		pop[i].Position = pop[i].Position.Add(vel)
	}
	return nil
}

func (s *Stepper) stepBuffered(pop Population) error {
	s.snapshot = pop.copyInto(s.snapshot)

	// Samples are drawn in index order whatever the worker count,
	// so a seeded run gives the same flock with 1 or N workers.
	if cap(s.samples) < len(pop) {
		s.samples = make([]geometry.Vector2D, len(pop))
	}
	s.samples = s.samples[:len(pop)]
	for i := range s.samples {
		s.samples[i] = s.jitter.Sample()
	}

	update := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			jitter := SmoothJitter(s.snapshot[i].Jitter, s.samples[i], s.params.JitterBlend)
			vel, err := s.velocityFor(s.snapshot, i, jitter)
			if err != nil {
				return err
			}
			pop[i].Jitter = jitter
			pop[i].Velocity = vel
			pop[i].Position = s.snapshot[i].Position.Add(vel)
		}
		return nil
	}

	if s.workers <= 1 {
		return update(0, len(pop))
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	chunk := (len(pop) + s.workers - 1) / s.workers
	for lo := 0; lo < len(pop); lo += chunk {
		hi := min(lo+chunk, len(pop))
		g.Go(func() error { return update(lo, hi) })
	}
	return g.Wait()
}

// velocityFor builds the complete new velocity of agent i from the neighbors
// visible in view, given its already smoothed jitter.
func (s *Stepper) velocityFor(view Population, i int, jitter geometry.Vector2D) (geometry.Vector2D, error) {
	me := view[i].Position

	cohesion, err := view.AverageNeighborPosition(i, s.params.NeighborhoodRadius).Sub(me).Div(s.params.CohesionDivider)
	if err != nil {
		return geometry.Zero, fmt.Errorf("cohesion for agent %d: %w", i, err)
	}

	separation := view.SeparationVector(i, s.params.AvoidDistance)

	avgVel, err := view.AverageOtherVelocity(i)
	if err != nil {
		return geometry.Zero, fmt.Errorf("alignment for agent %d: %w", i, err)
	}
	alignment, err := avgVel.Div(s.params.AlignmentDivider)
	if err != nil {
		return geometry.Zero, fmt.Errorf("alignment for agent %d: %w", i, err)
	}

	boundary := BoundCorrection(me, s.params.Bounds)

	vel := cohesion.
		Add(separation).
		Add(alignment).
		Add(jitter.Mul(s.params.RandomnessFactor)).
		Add(boundary)

	return vel.ClampLen(s.params.MaxSpeed), nil
}

// BoundCorrection returns a unit nudge per axis pointing back inside b when
// the position is outside it, and 0 on axes where it is inside. The nudge does
// not grow with the distance to the box.
func BoundCorrection(pos geometry.Vector2D, b Bounds) geometry.Vector2D {
	var v geometry.Vector2D
	if pos.X < b.MinX {
		v.X = 1
	} else if pos.X > b.MaxX {
		v.X = -1
	}
	if pos.Y < b.MinY {
		v.Y = 1
	} else if pos.Y > b.MaxY {
		v.Y = -1
	}
	return v
}
