// Package driver hosts a flock simulation inside a goakt actor and ticks it
// at a fixed cadence. The actor mailbox serializes ticks: one full-population
// step always completes before the next one starts.
package driver

import (
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/codec"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

// Messages understood by FlockActor. goakt only carries protobuf messages,
// the well-known wrappers are enough for this small protocol.
type (
	// AdvanceRequest asks for Value ticks. The reply is a TickCount.
	AdvanceRequest = wrapperspb.UInt32Value
	// TickCount is the number of ticks completed so far.
	TickCount = wrapperspb.UInt64Value
	// SnapshotRequest asks for the current state. The reply is a SnapshotFrame.
	SnapshotRequest = emptypb.Empty
	// SnapshotFrame holds a codec-encoded frame.
	SnapshotFrame = wrapperspb.BytesValue
	// Failure carries the error of a request that could not be served.
	Failure = wrapperspb.StringValue
)

// FlockActor owns the simulation. Only its Receive touches the population.
type FlockActor struct {
	sim *flock.Simulation
}

var _ actor.Actor = (*FlockActor)(nil)

func NewFlockActor(sim *flock.Simulation) *FlockActor {
	return &FlockActor{sim: sim}
}

// ============================================================================
// Actor Lifecycle Hooks
// ============================================================================

func (f *FlockActor) PreStart(ctx *actor.Context) error {
	p := f.sim.Params()
	ctx.ActorSystem().Logger().Infof("Flock %s ready: %d agents, radius %.2f, avoid %.2f, max speed %.2f",
		ctx.ActorName(), len(f.sim.Population()), p.NeighborhoodRadius, p.AvoidDistance, p.MaxSpeed)
	return nil
}

func (f *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("Flock %s stopped after %d ticks", ctx.ActorName(), f.sim.Ticks())
	return nil
}

// ============================================================================
// Message Routing
// ============================================================================

func (f *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {

	case *goaktpb.PostStart:
		ctx.Logger().Debugf("%s started", ctx.Self().Name())

	case *AdvanceRequest:
		for i := uint32(0); i < msg.GetValue(); i++ {
			if err := f.sim.Tick(); err != nil {
				ctx.Logger().Errorf("%s: %v", ctx.Self().Name(), err)
				ctx.Response(wrapperspb.String(err.Error()))
				return
			}
		}
		ctx.Response(wrapperspb.UInt64(f.sim.Ticks()))

	case *SnapshotRequest:
		frame := codec.NewFrame(f.sim.Ticks(), f.sim.Population())
		ctx.Response(wrapperspb.Bytes(codec.Encode(frame)))

	default:
		ctx.Unhandled()
	}
}
