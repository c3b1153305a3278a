package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/codec"
	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/config"
	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/driver"
	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/telemetry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

var (
	verbose bool

	configFile  string
	ticks       int
	tickRate    float64
	seed        uint64
	population  int
	updateMode  string
	workers     int
	sampleEvery int
	csvOut      string
	framesOut   string
	plotMetric  string

	format string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "flock",
		Short:         "headless boids flocking simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the flock for a number of ticks",
		Args:  cobra.NoArgs,
		RunE:  runFlock,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file (json or yaml)")
	runCmd.Flags().IntVar(&ticks, "ticks", 0, "number of ticks (overrides config)")
	runCmd.Flags().Float64Var(&tickRate, "rate", 0, "ticks per second, 0 for unpaced (overrides config)")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (overrides config)")
	runCmd.Flags().IntVar(&population, "population", 0, "number of agents (overrides config)")
	runCmd.Flags().StringVar(&updateMode, "mode", "", "update mode: sequential or buffered (overrides config)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "workers, buffered mode only (overrides config)")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", 0, "record telemetry every n ticks (overrides config)")
	runCmd.Flags().StringVar(&csvOut, "csv", "", "write telemetry to this CSV file")
	runCmd.Flags().StringVar(&framesOut, "frames", "", "write snapshot frames to this file")
	runCmd.Flags().StringVar(&plotMetric, "plot", "", "plot a telemetry metric ("+strings.Join(telemetry.Metrics, ", ")+")")

	validateCmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE:  validateConfig,
	}

	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "print the default config",
		Args:  cobra.NoArgs,
		RunE:  printDefaults,
	}
	defaultsCmd.Flags().StringVar(&format, "format", "yaml", "output format: json or yaml")

	inspectCmd := &cobra.Command{
		Use:   "inspect [frames]",
		Short: "summarize a snapshot frames file",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectFrames,
	}
	inspectCmd.Flags().StringVar(&configFile, "config", "", "config file providing the bounds")

	rootCmd.AddCommand(runCmd, validateCmd, defaultsCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() golog.Logger {
	if verbose {
		return golog.New(golog.DebugLevel, os.Stderr)
	}
	return golog.New(golog.InfoLevel, os.Stderr)
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

// applyOverrides copies the run flags the user actually set onto cfg.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("ticks") {
		cfg.Ticks = ticks
	}
	if flags.Changed("rate") {
		cfg.TickRate = tickRate
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("population") {
		cfg.Population = population
	}
	if flags.Changed("mode") {
		cfg.UpdateMode = updateMode
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
}

func buildSimulation(cfg *config.Config, runSeed uint64) (*flock.Simulation, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	var jitter flock.JitterSource = flock.ZeroJitter{}
	if cfg.RandomnessFactor > 0 && cfg.JitterAmplitude > 0 {
		jitter = flock.NewUniformJitter(cfg.JitterAmplitude, runSeed)
	}

	stepper, err := flock.NewStepper(cfg.Params(), jitter,
		flock.WithUpdateMode(mode),
		flock.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(runSeed, runSeed+1))
	return flock.NewSimulation(flock.Spawn(cfg.Population, cfg.SpawnSpread, rng), stepper)
}

func runFlock(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	runSeed := cfg.Seed
	if runSeed == 0 {
		runSeed = uint64(time.Now().UnixNano())
	}
	logger.Infof("Starting flock: %d agents, %d ticks at %.0f Hz, %s updates, seed %d",
		cfg.Population, cfg.Ticks, cfg.TickRate, cfg.UpdateMode, runSeed)

	sim, err := buildSimulation(cfg, runSeed)
	if err != nil {
		return err
	}

	recorder := telemetry.NewRecorder(cfg.Params().Bounds)
	opts := []driver.Option{
		driver.WithLogger(logger),
		driver.WithTickRate(cfg.TickRate),
		driver.WithSampleEvery(cfg.SampleEvery),
		driver.WithObserver(recorder),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run := func(extra ...driver.Option) error {
		return drive(ctx, logger, sim, cfg.Ticks, append(opts, extra...)...)
	}
	if framesOut != "" {
		err = withFrames(framesOut, func(w *codec.Writer) error {
			return run(driver.WithObserver(w))
		})
	} else {
		err = run()
	}
	if err != nil {
		return err
	}

	if csvOut != "" {
		f, err := os.Create(csvOut)
		if err != nil {
			return fmt.Errorf("failed to create csv file: %w", err)
		}
		defer f.Close()
		if err := recorder.WriteCSV(f); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if plotMetric != "" {
		series, err := recorder.Series(plotMetric)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, telemetry.Plot(series, plotMetric))
	}
	if last, ok := recorder.Last(); ok {
		fmt.Fprintln(out, telemetry.RenderSummary("flock after run", last))
	}
	return nil
}

// drive runs the simulation for ticks ticks and shuts the actor system down.
// An interrupt ends the run early without an error.
func drive(ctx context.Context, logger golog.Logger, sim *flock.Simulation, ticks int, opts ...driver.Option) error {
	d, err := driver.New(ctx, sim, opts...)
	if err != nil {
		return err
	}

	runErr := d.Run(ctx, ticks)
	if errors.Is(runErr, context.Canceled) {
		logger.Warnf("Interrupted after %d ticks", d.Ticks())
		runErr = nil
	}
	if err := d.Stop(context.Background()); err != nil {
		logger.Errorf("failed to stop actor system: %v", err)
	}
	return runErr
}

// withFrames opens path as a frames file for fn. Frames written before fn
// fails are still flushed to disk.
func withFrames(path string, fn func(w *codec.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frames file: %w", err)
	}
	w := codec.NewWriter(f)

	runErr := fn(w)
	if err := w.Flush(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to flush frames: %w", err))
	}
	if err := f.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to close frames file: %w", err))
	}
	return runErr
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d agents, %s updates)\n", args[0], cfg.Population, cfg.UpdateMode)
	return nil
}

func printDefaults(cmd *cobra.Command, args []string) error {
	data, err := config.DefaultConfig().Marshal(format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func inspectFrames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open frames file: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	recorder := telemetry.NewRecorder(cfg.Params().Bounds)
	r := codec.NewReader(f)
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := recorder.Observe(frame); err != nil {
			return err
		}
		last, _ := recorder.Last()
		fmt.Fprintln(out, telemetry.FormatLine(last))
	}

	last, ok := recorder.Last()
	if !ok {
		return fmt.Errorf("%s holds no frames", args[0])
	}
	fmt.Fprintln(out, telemetry.RenderSummary(fmt.Sprintf("%d frames", len(recorder.Samples())), last))
	return nil
}
