package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/codec"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

// ErrUnexpectedReply is returned when the actor answers with an unknown message.
var ErrUnexpectedReply = errors.New("unexpected reply from flock actor")

// Observer receives a decoded snapshot every sampled tick.
type Observer interface {
	Observe(frame *codec.Frame) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(frame *codec.Frame) error

func (fn ObserverFunc) Observe(frame *codec.Frame) error { return fn(frame) }

// Driver is the external clock of a simulation: it owns the actor system
// and decides when the next tick happens.
type Driver struct {
	system actor.ActorSystem
	pid    *actor.PID
	logger golog.Logger

	tickRate    float64
	sampleEvery int
	askTimeout  time.Duration
	observers   []Observer

	// ticks is the last count the actor confirmed.
	ticks uint64
}

type Option func(*Driver)

// WithLogger sets the logger used by the driver and its actor system.
func WithLogger(l golog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithTickRate paces Run at hz ticks per second. 0 runs as fast as possible.
func WithTickRate(hz float64) Option {
	return func(d *Driver) { d.tickRate = hz }
}

// WithSampleEvery notifies observers every n ticks (and after the last one).
func WithSampleEvery(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.sampleEvery = n
		}
	}
}

// WithObserver registers an observer. Observers are called in registration order.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// WithAskTimeout bounds how long a single request to the actor may take.
func WithAskTimeout(t time.Duration) Option {
	return func(d *Driver) { d.askTimeout = t }
}

// New starts an actor system and spawns the flock actor hosting sim.
func New(ctx context.Context, sim *flock.Simulation, opts ...Option) (*Driver, error) {
	d := &Driver{
		logger:      golog.DiscardLogger,
		sampleEvery: 1,
		askTimeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tickRate < 0 {
		return nil, fmt.Errorf("tick rate must be >= 0, got %v: %w", d.tickRate, flock.ErrInvalidParams)
	}

	system, err := actor.NewActorSystem("FlockWorld",
		actor.WithLogger(d.logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return nil, fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start actor system: %w", err)
	}

	pid, err := system.Spawn(ctx, "flock", NewFlockActor(sim))
	if err != nil {
		_ = system.Stop(ctx)
		return nil, fmt.Errorf("failed to spawn flock actor: %w", err)
	}

	d.system = system
	d.pid = pid
	return d, nil
}

// Advance asks the actor to run n ticks and returns the total tick count.
func (d *Driver) Advance(ctx context.Context, n uint32) (uint64, error) {
	reply, err := d.ask(ctx, wrapperspb.UInt32(n))
	if err != nil {
		return 0, err
	}
	count, ok := reply.(*TickCount)
	if !ok {
		return 0, fmt.Errorf("%T: %w", reply, ErrUnexpectedReply)
	}
	d.ticks = count.GetValue()
	return d.ticks, nil
}

// Ticks returns the tick count of the last successful Advance. Unlike
// Simulation.Ticks it is safe to read while the actor may still be stepping.
func (d *Driver) Ticks() uint64 { return d.ticks }

// Snapshot fetches and decodes the current state of the flock.
func (d *Driver) Snapshot(ctx context.Context) (*codec.Frame, error) {
	reply, err := d.ask(ctx, &SnapshotRequest{})
	if err != nil {
		return nil, err
	}
	frame, ok := reply.(*SnapshotFrame)
	if !ok {
		return nil, fmt.Errorf("%T: %w", reply, ErrUnexpectedReply)
	}
	return codec.Decode(frame.GetValue())
}

func (d *Driver) ask(ctx context.Context, msg proto.Message) (proto.Message, error) {
	reply, err := actor.Ask(ctx, d.pid, msg, d.askTimeout)
	if err != nil {
		return nil, fmt.Errorf("flock actor request failed: %w", err)
	}
	if failure, ok := reply.(*Failure); ok {
		return nil, errors.New(failure.GetValue())
	}
	return reply, nil
}

// Run performs ticks steps, one per tick of the clock, and feeds observers.
// It returns ctx.Err() if the context is cancelled between two ticks.
func (d *Driver) Run(ctx context.Context, ticks int) error {
	var clock <-chan time.Time
	if d.tickRate > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / d.tickRate))
		defer ticker.Stop()
		clock = ticker.C
	}

	start := time.Now()
	for i := 1; i <= ticks; i++ {
		if clock != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		count, err := d.Advance(ctx, 1)
		if err != nil {
			return err
		}

		if i%d.sampleEvery == 0 || i == ticks {
			if err := d.notify(ctx); err != nil {
				return fmt.Errorf("observer failed at tick %d: %w", count, err)
			}
		}
	}

	d.logger.Infof("Run complete: %d ticks in %s", ticks, time.Since(start).Round(time.Millisecond))
	return nil
}

func (d *Driver) notify(ctx context.Context) error {
	if len(d.observers) == 0 {
		return nil
	}
	frame, err := d.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, o := range d.observers {
		if err := o.Observe(frame); err != nil {
			return err
		}
	}
	return nil
}

// Stop shuts the actor system down.
func (d *Driver) Stop(ctx context.Context) error {
	return d.system.Stop(ctx)
}
