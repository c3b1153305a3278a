// Package telemetry turns flock snapshots into per-tick statistics that can be
// exported as CSV, plotted in the terminal or printed as a summary.
package telemetry

import (
	"errors"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/codec"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

// ErrUnknownMetric is returned by Series for a column that does not exist.
var ErrUnknownMetric = errors.New("unknown metric")

// Sample is one row of telemetry.
type Sample struct {
	Tick         uint64  `csv:"tick"`
	Agents       int     `csv:"agents"`
	CentroidX    float64 `csv:"centroid_x"`
	CentroidY    float64 `csv:"centroid_y"`
	MeanSpeed    float64 `csv:"mean_speed"`
	SpeedStdDev  float64 `csv:"speed_std"`
	MaxSpeed     float64 `csv:"max_speed"`
	Polarization float64 `csv:"polarization"`
	Spread       float64 `csv:"spread"`
	OutOfBounds  int     `csv:"out_of_bounds"`
}

// NewSample summarizes a population after tick.
func NewSample(tick uint64, pop flock.Population, b flock.Bounds) Sample {
	st := flock.Summarize(pop, b)
	return Sample{
		Tick:         tick,
		Agents:       len(pop),
		CentroidX:    st.Centroid.X,
		CentroidY:    st.Centroid.Y,
		MeanSpeed:    st.MeanSpeed,
		SpeedStdDev:  st.SpeedStdDev,
		MaxSpeed:     st.MaxSpeed,
		Polarization: st.Polarization,
		Spread:       st.Spread,
		OutOfBounds:  st.OutOfBounds,
	}
}

// Metrics lists the names accepted by Series, in CSV column order.
var Metrics = []string{
	"centroid_x", "centroid_y", "mean_speed", "speed_std", "max_speed",
	"polarization", "spread", "out_of_bounds",
}

func (s Sample) metric(name string) (float64, bool) {
	switch name {
	case "centroid_x":
		return s.CentroidX, true
	case "centroid_y":
		return s.CentroidY, true
	case "mean_speed":
		return s.MeanSpeed, true
	case "speed_std":
		return s.SpeedStdDev, true
	case "max_speed":
		return s.MaxSpeed, true
	case "polarization":
		return s.Polarization, true
	case "spread":
		return s.Spread, true
	case "out_of_bounds":
		return float64(s.OutOfBounds), true
	}
	return 0, false
}

// Recorder accumulates one Sample per observed frame.
// It is meant to be registered as a driver observer.
type Recorder struct {
	bounds  flock.Bounds
	samples []*Sample
}

func NewRecorder(b flock.Bounds) *Recorder {
	return &Recorder{bounds: b}
}

// Observe implements driver.Observer.
func (r *Recorder) Observe(f *codec.Frame) error {
	pop, err := f.Population()
	if err != nil {
		return err
	}
	s := NewSample(f.Tick, pop, r.bounds)
	r.samples = append(r.samples, &s)
	return nil
}

// Samples returns the recorded rows in observation order.
func (r *Recorder) Samples() []Sample {
	out := make([]Sample, len(r.samples))
	for i, s := range r.samples {
		out[i] = *s
	}
	return out
}

// Last returns the most recent sample, if any.
func (r *Recorder) Last() (Sample, bool) {
	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return *r.samples[len(r.samples)-1], true
}

// Series extracts one metric across all samples.
func (r *Recorder) Series(name string) ([]float64, error) {
	if _, ok := (Sample{}).metric(name); !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownMetric)
	}
	out := make([]float64, len(r.samples))
	for i, s := range r.samples {
		out[i], _ = s.metric(name)
	}
	return out, nil
}

// WriteCSV writes all samples, with a header row, to f.
func (r *Recorder) WriteCSV(f *os.File) error {
	if err := gocsv.Marshal(r.samples, f); err != nil {
		return fmt.Errorf("writing telemetry csv: %w", err)
	}
	return nil
}

// CSV renders all samples, with a header row, as a string.
func (r *Recorder) CSV() (string, error) {
	return gocsv.MarshalString(r.samples)
}
