// Package genotype defines the immutable parameter bundle that shapes a
// creature's memory, learning and innate action preferences.
package genotype

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/fitrah/config"
)

// ErrInvalidParams is returned by New when a parameter is out of range.
var ErrInvalidParams = errors.New("invalid genotype params")

// Params lists every heritable value explicitly.
type Params struct {
	MemorySize     int
	LearningRate   float64
	StructureParam int
	LearnFrequency int
	LifeExpectancy int
	RewardDiscount float64
	Fitrah         []float64
}

// Genotype is immutable after construction. Slice accessors return copies.
type Genotype struct {
	memorySize     int
	learningRate   float64
	structureParam int
	learnFrequency int
	lifeExpectancy int
	rewardDiscount float64
	fitrah         []float64
}

// New validates p and builds a genotype from it.
func New(p Params) (*Genotype, error) {
	switch {
	case p.MemorySize <= 0:
		return nil, fmt.Errorf("%w: memory size %d", ErrInvalidParams, p.MemorySize)
	case p.LearningRate <= 0:
		return nil, fmt.Errorf("%w: learning rate %g", ErrInvalidParams, p.LearningRate)
	case p.StructureParam <= 0:
		return nil, fmt.Errorf("%w: structure param %d", ErrInvalidParams, p.StructureParam)
	case p.LearnFrequency <= 0:
		return nil, fmt.Errorf("%w: learn frequency %d", ErrInvalidParams, p.LearnFrequency)
	case p.LifeExpectancy <= 0:
		return nil, fmt.Errorf("%w: life expectancy %d", ErrInvalidParams, p.LifeExpectancy)
	case p.RewardDiscount < 0 || p.RewardDiscount > 1:
		return nil, fmt.Errorf("%w: reward discount %g", ErrInvalidParams, p.RewardDiscount)
	case len(p.Fitrah) == 0:
		return nil, fmt.Errorf("%w: empty fitrah", ErrInvalidParams)
	}
	for i, f := range p.Fitrah {
		if f < 0 {
			return nil, fmt.Errorf("%w: fitrah[%d] = %g", ErrInvalidParams, i, f)
		}
	}

	return &Genotype{
		memorySize:     p.MemorySize,
		learningRate:   p.LearningRate,
		structureParam: p.StructureParam,
		learnFrequency: p.LearnFrequency,
		lifeExpectancy: p.LifeExpectancy,
		rewardDiscount: p.RewardDiscount,
		fitrah:         append([]float64(nil), p.Fitrah...),
	}, nil
}

// MustNew is like New but panics on invalid params.
func MustNew(p Params) *Genotype {
	g, err := New(p)
	if err != nil {
		panic(err)
	}
	return g
}

// Base builds the first-generation genotype of a race from the configured
// biology and brain defaults.
func Base(cfg *config.Config, fitrah []float64) (*Genotype, error) {
	return New(Params{
		MemorySize:     cfg.Biology.BaseMemorySize,
		LearningRate:   cfg.Brain.BaseLearningRate,
		StructureParam: cfg.Brain.BaseStructureParam,
		LearnFrequency: cfg.Biology.BaseLearnFreq,
		LifeExpectancy: cfg.Biology.BaseDyingAge,
		RewardDiscount: cfg.Brain.BaseGamma,
		Fitrah:         fitrah,
	})
}

func (g *Genotype) MemorySize() int         { return g.memorySize }
func (g *Genotype) LearningRate() float64   { return g.learningRate }
func (g *Genotype) StructureParam() int     { return g.structureParam }
func (g *Genotype) LearnFrequency() int     { return g.learnFrequency }
func (g *Genotype) LifeExpectancy() int     { return g.lifeExpectancy }
func (g *Genotype) RewardDiscount() float64 { return g.rewardDiscount }

// Fitrah returns a copy of the innate action prior.
func (g *Genotype) Fitrah() []float64 {
	return append([]float64(nil), g.fitrah...)
}

// NumActions is the length of the fitrah vector.
func (g *Genotype) NumActions() int { return len(g.fitrah) }

// Params returns the explicit parameter values of g.
func (g *Genotype) Params() Params {
	return Params{
		MemorySize:     g.memorySize,
		LearningRate:   g.learningRate,
		StructureParam: g.structureParam,
		LearnFrequency: g.learnFrequency,
		LifeExpectancy: g.lifeExpectancy,
		RewardDiscount: g.rewardDiscount,
		Fitrah:         g.Fitrah(),
	}
}

// Flatten returns the genotype as one ordered vector:
// memory size, learning rate, structure param, learn frequency,
// life expectancy, reward discount, then the fitrah weights.
func (g *Genotype) Flatten() []float64 {
	out := make([]float64, 0, 6+len(g.fitrah))
	out = append(out,
		float64(g.memorySize),
		g.learningRate,
		float64(g.structureParam),
		float64(g.learnFrequency),
		float64(g.lifeExpectancy),
		g.rewardDiscount,
	)
	return append(out, g.fitrah...)
}

// String implements fmt.Stringer.
func (g *Genotype) String() string {
	return fmt.Sprintf("mem=%d lr=%g struct=%d learn=%d life=%d gamma=%.2f fitrah=%v",
		g.memorySize, g.learningRate, g.structureParam, g.learnFrequency,
		g.lifeExpectancy, g.rewardDiscount, g.fitrah)
}
