package driver_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/codec"
	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/driver"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

func newSimulation(agents int) *flock.Simulation {
	p := flock.DefaultParams()
	stepper, err := flock.NewStepper(p, flock.NewUniformJitter(p.JitterAmplitude, 1))
	Expect(err).NotTo(HaveOccurred())
	sim, err := flock.NewSimulation(flock.Spawn(agents, 3, rand.New(rand.NewPCG(4, 2))), stepper)
	Expect(err).NotTo(HaveOccurred())
	return sim
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		sim    *flock.Simulation
		d      *driver.Driver
		frames []*codec.Frame
	)

	start := func(opts ...driver.Option) {
		var err error
		opts = append(opts, driver.WithObserver(driver.ObserverFunc(func(f *codec.Frame) error {
			frames = append(frames, f)
			return nil
		})))
		d, err = driver.New(ctx, sim, opts...)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		sim = newSimulation(12)
		frames = nil
		d = nil
	})

	AfterEach(func() {
		if d != nil {
			Expect(d.Stop(ctx)).To(Succeed())
		}
	})

	It("advances the simulation through the actor", func() {
		start()

		count, err := d.Advance(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(uint64(5)))

		count, err = d.Advance(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(uint64(7)))
	})

	It("returns snapshots matching the hosted population", func() {
		start()

		_, err := d.Advance(ctx, 3)
		Expect(err).NotTo(HaveOccurred())

		frame, err := d.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(frame.Tick).To(Equal(uint64(3)))

		pop, err := frame.Population()
		Expect(err).NotTo(HaveOccurred())
		Expect(pop).To(Equal(sim.Population()))
	})

	It("notifies observers every sampled tick and after the last one", func() {
		start(driver.WithSampleEvery(4))

		Expect(d.Run(ctx, 10)).To(Succeed())

		ticks := make([]uint64, 0, len(frames))
		for _, f := range frames {
			ticks = append(ticks, f.Tick)
		}
		Expect(ticks).To(Equal([]uint64{4, 8, 10}))
		Expect(d.Ticks()).To(Equal(uint64(10)))
	})

	It("paces ticks with the configured rate", func() {
		start(driver.WithTickRate(200))

		began := time.Now()
		Expect(d.Run(ctx, 10)).To(Succeed())
		Expect(time.Since(began)).To(BeNumerically(">=", 45*time.Millisecond))
		Expect(frames).To(HaveLen(10))
	})

	It("stops between ticks when the context is cancelled", func() {
		start(driver.WithTickRate(100))

		runCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		err := d.Run(runCtx, 1000)
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(d.Ticks()).To(BeNumerically(">", 0))
		Expect(d.Ticks()).To(BeNumerically("<", 1000))

		// The actor is still reachable and agrees with the confirmed count,
		// or is one tick ahead when the cancelled request had already been served.
		frame, err := d.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(frame.Tick).To(BeNumerically(">=", d.Ticks()))
		Expect(frame.Tick).To(BeNumerically("<=", d.Ticks()+1))
	})

	It("propagates observer errors", func() {
		boom := errors.New("disk full")
		start(driver.WithObserver(driver.ObserverFunc(func(*codec.Frame) error { return boom })))

		err := d.Run(ctx, 3)
		Expect(err).To(MatchError(ContainSubstring("disk full")))
	})

	It("keeps agents moving inside a finite state", func() {
		start()

		Expect(d.Run(ctx, 50)).To(Succeed())
		last := frames[len(frames)-1]
		Expect(last.Agents).To(HaveLen(12))
		for _, a := range last.Agents {
			Expect(a.Position.IsFinite()).To(BeTrue())
			Expect(a.Velocity.Len()).To(BeNumerically("<=", flock.DefaultParams().MaxSpeed+geometry.Epsilon))
		}
	})
})
