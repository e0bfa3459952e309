// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Physics   PhysicsConfig   `yaml:"physics"`
	Biology   BiologyConfig   `yaml:"biology"`
	Brain     BrainConfig     `yaml:"brain"`
	Mutation  MutationConfig  `yaml:"mutation"`
	Races     []RaceConfig    `yaml:"races"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Output    OutputConfig    `yaml:"output"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PhysicsConfig holds grid and population-scale parameters.
type PhysicsConfig struct {
	SpaceSize         int     `yaml:"space_size"`          // Grid side length in cells
	NumFathers        int     `yaml:"num_fathers"`         // Creatures spawned at tick 0
	Eternity          int     `yaml:"eternity"`            // Hard tick limit for a run
	Slippery          bool    `yaml:"slippery"`            // Grid wraps at the edges
	FoodCreatureRatio float64 `yaml:"food_creature_ratio"` // Meals kept on the grid per living creature
	SoundTTL          int     `yaml:"sound_ttl"`           // Ticks a sound stays audible
	FertilityScale    float64 `yaml:"fertility_scale"`     // Noise frequency of the food map (0 = uniform)
}

// BiologyConfig holds the energy economy and the genotype defaults.
type BiologyConfig struct {
	InitialEnergy   int `yaml:"initial_energy"`
	MoveEnergy      int `yaml:"move_energy"`
	FightEnergy     int `yaml:"fight_energy"`
	MateEnergy      int `yaml:"mate_energy"`
	MaturityAge     int `yaml:"maturity_age"`
	WorkEnergy      int `yaml:"work_energy"` // Metabolic cost charged every tick
	MealSize        int `yaml:"meal_size"`
	BaseLearnFreq   int `yaml:"base_learn_freq"`
	BaseVisionRange int `yaml:"base_vision_range"`
	BaseDyingAge    int `yaml:"base_dying_age"`
	BaseMemorySize  int `yaml:"base_memory_size"`
}

// BrainConfig holds policy defaults shared by every race.
type BrainConfig struct {
	BaseGamma          float64 `yaml:"base_gamma"`
	BaseLearningRate   float64 `yaml:"base_learning_rate"`
	BaseStructureParam int     `yaml:"base_structure_param"`
	Temperature        float64 `yaml:"temperature"` // Softmax temperature for action sampling
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate     float64 `yaml:"rate"`
	Sigma    float64 `yaml:"sigma"`
	BigRate  float64 `yaml:"big_rate"`
	BigSigma float64 `yaml:"big_sigma"`
}

// RaceConfig defines one race descriptor.
type RaceConfig struct {
	Name        string    `yaml:"name"`
	Enemy       string    `yaml:"enemy"`        // Race attacked first in fights ("" = none)
	Actions     []string  `yaml:"actions"`      // Action names, index = policy output
	Fitrah      []float64 `yaml:"fitrah"`       // Innate action prior, one weight per action
	VisionRange int       `yaml:"vision_range"` // 0 = biology.base_vision_range
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // Ticks per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// OutputConfig holds persistence locations.
type OutputConfig struct {
	ModelDir      string `yaml:"model_dir"`      // Where the last survivor saves its policy ("" = never)
	ChroniclePath string `yaml:"chronicle_path"` // sqlite ledger path ("" = disabled)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	RaceIndex map[string]int // name -> index in Races
	NumCells  int            // SpaceSize squared
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.Merge(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Defaults returns a fresh copy of the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// Merge overlays YAML data onto the config. Only fields present in data are
// overwritten; a races list replaces the default list as a whole.
func (c *Config) Merge(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	c.computeDerived()
	return nil
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	out := *c
	out.Races = make([]RaceConfig, len(c.Races))
	for i, r := range c.Races {
		r.Actions = append([]string(nil), r.Actions...)
		r.Fitrah = append([]float64(nil), r.Fitrah...)
		out.Races[i] = r
	}
	out.computeDerived()
	return &out
}

// VisionRange returns the effective vision range of a race.
func (c *Config) VisionRange(r *RaceConfig) int {
	if r.VisionRange > 0 {
		return r.VisionRange
	}
	return c.Biology.BaseVisionRange
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NumCells = c.Physics.SpaceSize * c.Physics.SpaceSize
	c.Derived.RaceIndex = make(map[string]int, len(c.Races))
	for i, r := range c.Races {
		c.Derived.RaceIndex[r.Name] = i
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
