package flock

import "fmt"

// Simulation is the handle an external driver ticks. It pairs a population
// with the stepper that advances it and counts the ticks already run.
type Simulation struct {
	pop     Population
	stepper *Stepper
	ticks   uint64
}

// NewSimulation fails fast when the population cannot be stepped.
func NewSimulation(pop Population, stepper *Stepper) (*Simulation, error) {
	if stepper == nil {
		return nil, fmt.Errorf("nil stepper: %w", ErrInvalidParams)
	}
	if len(pop) < 2 {
		return nil, fmt.Errorf("population of %d: %w", len(pop), ErrDegenerateAlignment)
	}
	return &Simulation{pop: pop, stepper: stepper}, nil
}

// Tick runs one full-population update.
func (s *Simulation) Tick() error {
	if err := s.stepper.Step(s.pop); err != nil {
		return fmt.Errorf("tick %d: %w", s.ticks+1, err)
	}
	s.ticks++
	return nil
}

// Ticks returns how many ticks completed successfully.
func (s *Simulation) Ticks() uint64 { return s.ticks }

// Population exposes the live agents. Callers must not mutate it.
func (s *Simulation) Population() Population { return s.pop }

// Snapshot returns a copy of the agents that is safe to keep.
func (s *Simulation) Snapshot() Population { return s.pop.Clone() }

// Params returns the flocking parameters in use.
func (s *Simulation) Params() Params { return s.stepper.Params() }
