package main

import (
	"math"

	"github.com/pthm-cable/fitrah/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Column name in optimize_log.csv
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value

	apply   func(cfg *config.Config, v float64)
	extract func(cfg *config.Config) float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

func intParam(name, path string, lo, hi, def float64, field func(*config.Config) *int) ParamSpec {
	return ParamSpec{
		Name: name, Path: path, Min: lo, Max: hi, Default: def,
		apply:   func(cfg *config.Config, v float64) { *field(cfg) = int(math.Round(v)) },
		extract: func(cfg *config.Config) float64 { return float64(*field(cfg)) },
	}
}

func floatParam(name, path string, lo, hi, def float64, field func(*config.Config) *float64) ParamSpec {
	return ParamSpec{
		Name: name, Path: path, Min: lo, Max: hi, Default: def,
		apply:   func(cfg *config.Config, v float64) { *field(cfg) = v },
		extract: func(cfg *config.Config) float64 { return *field(cfg) },
	}
}

// NewParamVector creates the standard set of optimizable parameters: the
// biology knobs that decide whether a population can feed itself.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			intParam("meal_size", "biology.meal_size", 1, 30, 6,
				func(c *config.Config) *int { return &c.Biology.MealSize }),
			intParam("work_energy", "biology.work_energy", 0, 5, 3,
				func(c *config.Config) *int { return &c.Biology.WorkEnergy }),
			floatParam("food_creature_ratio", "physics.food_creature_ratio", 0.1, 4.0, 1.0,
				func(c *config.Config) *float64 { return &c.Physics.FoodCreatureRatio }),
			intParam("mate_energy", "biology.mate_energy", 5, 60, 25,
				func(c *config.Config) *int { return &c.Biology.MateEnergy }),
			intParam("base_learn_freq", "biology.base_learn_freq", 1, 100, 20,
				func(c *config.Config) *int { return &c.Biology.BaseLearnFreq }),
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].apply(cfg, v)
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = spec.extract(cfg)
	}
	return out
}
