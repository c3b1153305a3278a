package telemetry

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/lao-tseu-is-alive/go-flock-simulation/internal/codec"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

func twoAgents(x float64) flock.Population {
	return flock.Population{
		{Position: geometry.Vector2D{X: -x}, Velocity: geometry.Vector2D{X: 1}},
		{Position: geometry.Vector2D{X: x}, Velocity: geometry.Vector2D{X: 1}},
	}
}

func record(t *testing.T) *Recorder {
	t.Helper()
	r := NewRecorder(flock.Bounds{MinX: -2, MaxX: 2, MinY: -2, MaxY: 2})
	for tick, x := range []float64{1, 2, 3} {
		if err := r.Observe(codec.NewFrame(uint64(tick+1), twoAgents(x))); err != nil {
			t.Fatalf("Observe returned error %v", err)
		}
	}
	return r
}

func TestRecorder_Samples(t *testing.T) {
	r := record(t)

	samples := r.Samples()
	if len(samples) != 3 {
		t.Fatalf("len(Samples) = %d; want 3", len(samples))
	}
	last, ok := r.Last()
	if !ok || last.Tick != 3 {
		t.Fatalf("Last() = %+v, %v; want tick 3", last, ok)
	}
	if last.OutOfBounds != 2 {
		t.Errorf("OutOfBounds = %d; want 2", last.OutOfBounds)
	}
	if math.Abs(last.Polarization-1) > 1e-9 {
		t.Errorf("Polarization = %v; want 1", last.Polarization)
	}
}

func TestRecorder_Series(t *testing.T) {
	r := record(t)

	spread, err := r.Series("spread")
	if err != nil {
		t.Fatalf("Series returned error %v", err)
	}
	want := []float64{1, 2, 3}
	for i := range want {
		if math.Abs(spread[i]-want[i]) > 1e-9 {
			t.Errorf("spread[%d] = %v; want %v", i, spread[i], want[i])
		}
	}

	if _, err := r.Series("temperature"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric, got %v", err)
	}
	for _, name := range Metrics {
		if _, err := NewRecorder(flock.Bounds{}).Series(name); err != nil {
			t.Errorf("Series(%q) on an empty recorder = %v; want nil", name, err)
		}
	}
}

func TestRecorder_CSV(t *testing.T) {
	r := record(t)

	out, err := r.CSV()
	if err != nil {
		t.Fatalf("CSV returned error %v", err)
	}
	header := strings.SplitN(out, "\n", 2)[0]
	if header != "tick,agents,"+strings.Join(Metrics, ",") {
		t.Errorf("unexpected header %q", header)
	}

	var rows []*Sample
	if err := gocsv.UnmarshalString(out, &rows); err != nil {
		t.Fatalf("UnmarshalString returned error %v", err)
	}
	if len(rows) != 3 || rows[2].Tick != 3 {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestRecorder_WriteCSV(t *testing.T) {
	r := record(t)

	path := filepath.Join(t.TempDir(), "telemetry.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create returned error %v", err)
	}
	if err := r.WriteCSV(f); err != nil {
		t.Fatalf("WriteCSV returned error %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close returned error %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 3 {
		t.Errorf("expected a header and 3 rows, got %d line breaks", lines)
	}
}

func TestRender(t *testing.T) {
	r := record(t)
	last, _ := r.Last()

	if s := RenderSummary("final", last); !strings.Contains(s, "polarization") || !strings.Contains(s, "final") {
		t.Errorf("summary is missing expected labels:\n%s", s)
	}
	if line := FormatLine(last); !strings.HasPrefix(line, "tick      3") {
		t.Errorf("unexpected line %q", line)
	}

	series, _ := r.Series("spread")
	if plot := Plot(series, "spread"); !strings.Contains(plot, "spread") {
		t.Errorf("plot is missing its caption:\n%s", plot)
	}
	if Plot(nil, "empty") != "" {
		t.Error("expected an empty plot for an empty series")
	}
}
