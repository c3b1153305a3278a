// Package codec encodes flock snapshots in the protobuf wire format so that
// inspection tools outside this module can decode them with any protobuf
// runtime. The message layout is:
//
//	message Frame {
//	  uint64 tick = 1;
//	  repeated AgentState agents = 2;
//	}
//	message AgentState {
//	  uint32 index = 1;
//	  double position_x = 2; double position_y = 3;
//	  double velocity_x = 4; double velocity_y = 5;
//	  double jitter_x = 6;   double jitter_y = 7;
//	}
package codec

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// ErrMalformed is returned when a frame cannot be decoded.
var ErrMalformed = errors.New("malformed snapshot frame")

const (
	frameTick   protowire.Number = 1
	frameAgents protowire.Number = 2

	agentIndex protowire.Number = 1
	agentPosX  protowire.Number = 2
	agentPosY  protowire.Number = 3
	agentVelX  protowire.Number = 4
	agentVelY  protowire.Number = 5
	agentJitX  protowire.Number = 6
	agentJitY  protowire.Number = 7
)

// AgentState is the wire view of one flock.Agent.
type AgentState struct {
	Index    uint32
	Position geometry.Vector2D
	Velocity geometry.Vector2D
	Jitter   geometry.Vector2D
}

// Frame is the state of the whole population after a given tick.
type Frame struct {
	Tick   uint64
	Agents []AgentState
}

// NewFrame captures pop after tick.
func NewFrame(tick uint64, pop flock.Population) *Frame {
	f := &Frame{Tick: tick, Agents: make([]AgentState, len(pop))}
	for i, a := range pop {
		f.Agents[i] = AgentState{
			Index:    uint32(i),
			Position: a.Position,
			Velocity: a.Velocity,
			Jitter:   a.Jitter,
		}
	}
	return f
}

// Population rebuilds a population ordered by agent index.
// Indexes must form the range 0..len(Agents)-1.
func (f *Frame) Population() (flock.Population, error) {
	pop := make(flock.Population, len(f.Agents))
	seen := make([]bool, len(f.Agents))
	for _, a := range f.Agents {
		i := int(a.Index)
		if i >= len(pop) || seen[i] {
			return nil, fmt.Errorf("agent index %d in a frame of %d: %w", a.Index, len(pop), ErrMalformed)
		}
		seen[i] = true
		pop[i] = flock.Agent{Position: a.Position, Velocity: a.Velocity, Jitter: a.Jitter}
	}
	return pop, nil
}

// Encode serializes the frame.
func Encode(f *Frame) []byte {
	b := make([]byte, 0, 8+len(f.Agents)*64)
	b = protowire.AppendTag(b, frameTick, protowire.VarintType)
	b = protowire.AppendVarint(b, f.Tick)

	var agent []byte
	for _, a := range f.Agents {
		agent = appendAgent(agent[:0], a)
		b = protowire.AppendTag(b, frameAgents, protowire.BytesType)
		b = protowire.AppendBytes(b, agent)
	}
	return b
}

func appendAgent(b []byte, a AgentState) []byte {
	b = protowire.AppendTag(b, agentIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.Index))
	for _, field := range []struct {
		num   protowire.Number
		value float64
	}{
		{agentPosX, a.Position.X},
		{agentPosY, a.Position.Y},
		{agentVelX, a.Velocity.X},
		{agentVelY, a.Velocity.Y},
		{agentJitX, a.Jitter.X},
		{agentJitY, a.Jitter.Y},
	} {
		b = protowire.AppendTag(b, field.num, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(field.value))
	}
	return b
}

// Decode parses a frame produced by Encode. Unknown fields are skipped.
func Decode(b []byte) (*Frame, error) {
	f := &Frame{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == frameTick && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			f.Tick = v
			b = b[n:]
		case num == frameAgents && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			a, err := decodeAgent(raw)
			if err != nil {
				return nil, err
			}
			f.Agents = append(f.Agents, a)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return f, nil
}

func decodeAgent(b []byte) (AgentState, error) {
	var a AgentState
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return a, malformed(protowire.ParseError(n))
		}
		b = b[n:]

		if num == agentIndex && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return a, malformed(protowire.ParseError(n))
			}
			if v > math.MaxUint32 {
				return a, fmt.Errorf("agent index %d overflows uint32: %w", v, ErrMalformed)
			}
			a.Index = uint32(v)
			b = b[n:]
			continue
		}

		if dst := a.field(num); dst != nil && typ == protowire.Fixed64Type {
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return a, malformed(protowire.ParseError(n))
			}
			*dst = math.Float64frombits(v)
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return a, malformed(protowire.ParseError(n))
		}
		b = b[n:]
	}
	return a, nil
}

// field maps a double field number to the component it fills.
func (a *AgentState) field(num protowire.Number) *float64 {
	switch num {
	case agentPosX:
		return &a.Position.X
	case agentPosY:
		return &a.Position.Y
	case agentVelX:
		return &a.Velocity.X
	case agentVelY:
		return &a.Velocity.Y
	case agentJitX:
		return &a.Jitter.X
	case agentJitY:
		return &a.Jitter.Y
	}
	return nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
