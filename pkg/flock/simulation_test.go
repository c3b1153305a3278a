package flock

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

func TestSpawn(t *testing.T) {
	pop := Spawn(100, 3, rand.New(rand.NewPCG(1, 1)))
	if len(pop) != 100 {
		t.Fatalf("len(Spawn) = %d; want 100", len(pop))
	}
	for i, a := range pop {
		if a.Position.X < -3 || a.Position.X >= 3 || a.Position.Y < -3 || a.Position.Y >= 3 {
			t.Errorf("agent %d spawned outside [-3, 3): %v", i, a.Position)
		}
		if a.Velocity != geometry.Zero || a.Jitter != geometry.Zero {
			t.Errorf("agent %d should start at rest, got %+v", i, a)
		}
	}
}

func TestNewSimulation_TooSmall(t *testing.T) {
	s, _ := NewStepper(DefaultParams(), nil)
	for _, n := range []int{0, 1} {
		_, err := NewSimulation(make(Population, n), s)
		if !errors.Is(err, ErrDegenerateAlignment) {
			t.Errorf("NewSimulation(%d agents) = %v; want ErrDegenerateAlignment", n, err)
		}
	}
}

func TestSimulation_Tick(t *testing.T) {
	s, err := NewStepper(DefaultParams(), NewUniformJitter(0.1, 5))
	if err != nil {
		t.Fatalf("NewStepper returned error %v", err)
	}
	sim, err := NewSimulation(Spawn(8, 3, rand.New(rand.NewPCG(2, 2))), s)
	if err != nil {
		t.Fatalf("NewSimulation returned error %v", err)
	}

	before := sim.Snapshot()
	for i := 0; i < 3; i++ {
		if err := sim.Tick(); err != nil {
			t.Fatalf("Tick returned error %v", err)
		}
	}

	if sim.Ticks() != 3 {
		t.Errorf("Ticks() = %d; want 3", sim.Ticks())
	}
	moved := false
	for i := range before {
		if before[i].Position != sim.Population()[i].Position {
			moved = true
		}
	}
	if !moved {
		t.Error("Expected agents to move after 3 ticks")
	}
	// The snapshot taken earlier must not follow the live population.
	if before[0].Velocity != geometry.Zero {
		t.Errorf("snapshot was mutated: %+v", before[0])
	}
}
