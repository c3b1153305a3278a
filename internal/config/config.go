// Package config loads and validates the settings of a flock run.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "config.schema.json"

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString(schemaURL, schemaJSON)
})

type Config struct {
	// Population
	Population  int     `json:"population" yaml:"population"`
	SpawnSpread float64 `json:"spawnSpread" yaml:"spawnSpread"` // spawn box half-width
	Seed        uint64  `json:"seed" yaml:"seed"`               // 0 picks a time based seed

	// Flocking rule
	AvoidDistance      float64 `json:"avoidDistance" yaml:"avoidDistance"`
	CohesionDivider    float64 `json:"cohesionDivider" yaml:"cohesionDivider"`
	AlignmentDivider   float64 `json:"alignmentDivider" yaml:"alignmentDivider"`
	MaxSpeed           float64 `json:"maxSpeed" yaml:"maxSpeed"`
	RandomnessFactor   float64 `json:"randomnessFactor" yaml:"randomnessFactor"`
	NeighborhoodRadius float64 `json:"neighborhoodRadius" yaml:"neighborhoodRadius"`

	// Bounds
	MinX float64 `json:"minX" yaml:"minX"`
	MaxX float64 `json:"maxX" yaml:"maxX"`
	MinY float64 `json:"minY" yaml:"minY"`
	MaxY float64 `json:"maxY" yaml:"maxY"`

	// Jitter shape
	JitterAmplitude float64 `json:"jitterAmplitude" yaml:"jitterAmplitude"`
	JitterBlend     float64 `json:"jitterBlend" yaml:"jitterBlend"`

	// Execution
	UpdateMode  string  `json:"updateMode" yaml:"updateMode"`
	Workers     int     `json:"workers" yaml:"workers"`
	TickRate    float64 `json:"tickRate" yaml:"tickRate"` // ticks per second, 0 runs unpaced
	Ticks       int     `json:"ticks" yaml:"ticks"`
	SampleEvery int     `json:"sampleEvery" yaml:"sampleEvery"`
}

func DefaultConfig() *Config {
	p := flock.DefaultParams()
	return &Config{
		Population:         10,
		SpawnSpread:        3,
		AvoidDistance:      p.AvoidDistance,
		CohesionDivider:    p.CohesionDivider,
		AlignmentDivider:   p.AlignmentDivider,
		MaxSpeed:           p.MaxSpeed,
		RandomnessFactor:   p.RandomnessFactor,
		NeighborhoodRadius: p.NeighborhoodRadius,
		MinX:               p.Bounds.MinX,
		MaxX:               p.Bounds.MaxX,
		MinY:               p.Bounds.MinY,
		MaxY:               p.Bounds.MaxY,
		JitterAmplitude:    p.JitterAmplitude,
		JitterBlend:        p.JitterBlend,
		UpdateMode:         flock.Sequential.String(),
		Workers:            1,
		TickRate:           50,
		Ticks:              500,
		SampleEvery:        1,
	}
}

// Load reads a JSON or YAML file, validates it against the embedded schema,
// and decodes it over DefaultConfig so omitted keys keep their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse is Load for in-memory content. ext is ".json", ".yaml" or ".yml".
func Parse(raw []byte, ext string) (*Config, error) {
	doc, err := normalize(raw, ext)
	if err != nil {
		return nil, err
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(doc, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize turns the raw file content into a JSON document.
func normalize(raw []byte, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		if len(bytes.TrimSpace(raw)) == 0 {
			return []byte("{}"), nil
		}
		return raw, nil
	case ".yaml", ".yml":
		var v interface{}
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode config yaml: %w", err)
		}
		if v == nil {
			return []byte("{}"), nil
		}
		doc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to convert config yaml to json: %w", err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
}

// Validate checks cross-field rules the schema cannot express, and the
// flocking parameters themselves.
func (c *Config) Validate() error {
	if c.Population < 2 {
		return fmt.Errorf("population %d: %w", c.Population, flock.ErrDegenerateAlignment)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d: %w", c.Workers, flock.ErrInvalidParams)
	}
	if c.SampleEvery < 1 {
		return fmt.Errorf("sampleEvery must be >= 1, got %d: %w", c.SampleEvery, flock.ErrInvalidParams)
	}
	if c.Ticks < 0 || c.TickRate < 0 || c.SpawnSpread < 0 {
		return fmt.Errorf("ticks, tickRate and spawnSpread must not be negative: %w", flock.ErrInvalidParams)
	}
	mode, err := c.Mode()
	if err != nil {
		return err
	}
	if mode == flock.Sequential && c.Workers > 1 {
		return fmt.Errorf("%d workers need buffered updates, sequential runs on one: %w", c.Workers, flock.ErrInvalidParams)
	}
	return c.Params().Validate()
}

// Params extracts the flocking parameters.
func (c *Config) Params() flock.Params {
	return flock.Params{
		AvoidDistance:      c.AvoidDistance,
		CohesionDivider:    c.CohesionDivider,
		AlignmentDivider:   c.AlignmentDivider,
		MaxSpeed:           c.MaxSpeed,
		RandomnessFactor:   c.RandomnessFactor,
		NeighborhoodRadius: c.NeighborhoodRadius,
		JitterAmplitude:    c.JitterAmplitude,
		JitterBlend:        c.JitterBlend,
		Bounds: flock.Bounds{
			MinX: c.MinX, MaxX: c.MaxX,
			MinY: c.MinY, MaxY: c.MaxY,
		},
	}
}

// Mode parses UpdateMode.
func (c *Config) Mode() (flock.UpdateMode, error) {
	return flock.ParseUpdateMode(c.UpdateMode)
}

// Marshal encodes the config as "json" or "yaml".
func (c *Config) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(c, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
}

// Write saves the config, picking the format from the file extension.
func (c *Config) Write(path string) error {
	data, err := c.Marshal(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
