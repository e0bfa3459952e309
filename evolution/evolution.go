// Package evolution provides the genetic operators that turn two parent
// genotypes into a child genotype.
package evolution

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/genotype"
)

// ErrIncompatible is returned when parents cannot be crossed.
var ErrIncompatible = errors.New("incompatible parents")

// minLearningRate keeps mutated learning rates strictly positive.
const minLearningRate = 1e-9

// Crossover picks every scalar parameter from one of the two parents with
// equal probability and does the same gene-by-gene for the fitrah, which is
// then renormalized to sum to 1.
func Crossover(a, b *genotype.Genotype, rng *rand.Rand) (*genotype.Genotype, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil parent", ErrIncompatible)
	}
	if a.NumActions() != b.NumActions() {
		return nil, fmt.Errorf("%w: fitrah lengths %d and %d", ErrIncompatible, a.NumActions(), b.NumActions())
	}

	pa, pb := a.Params(), b.Params()
	pick := func() bool { return rng.Intn(2) == 0 }

	child := pb
	if pick() {
		child.MemorySize = pa.MemorySize
	}
	if pick() {
		child.LearningRate = pa.LearningRate
	}
	if pick() {
		child.StructureParam = pa.StructureParam
	}
	if pick() {
		child.LearnFrequency = pa.LearnFrequency
	}
	if pick() {
		child.LifeExpectancy = pa.LifeExpectancy
	}
	if pick() {
		child.RewardDiscount = pa.RewardDiscount
	}
	child.Fitrah = make([]float64, len(pa.Fitrah))
	for i := range child.Fitrah {
		if pick() {
			child.Fitrah[i] = pa.Fitrah[i]
		} else {
			child.Fitrah[i] = pb.Fitrah[i]
		}
	}
	normalize(child.Fitrah)

	return genotype.New(child)
}

// Mutate applies sparse Gaussian mutation: each parameter mutates with
// probability cfg.Rate; a mutation is large (cfg.BigSigma) with probability
// cfg.BigRate, otherwise small (cfg.Sigma). Perturbations are relative for
// the scalar parameters and absolute for fitrah weights.
func Mutate(g *genotype.Genotype, rng *rand.Rand, cfg config.MutationConfig) (*genotype.Genotype, error) {
	p := g.Params()

	delta := func() (float64, bool) {
		if rng.Float64() >= cfg.Rate {
			return 0, false
		}
		if rng.Float64() < cfg.BigRate {
			return rng.NormFloat64() * cfg.BigSigma, true
		}
		return rng.NormFloat64() * cfg.Sigma, true
	}
	scaleInt := func(v int) int {
		if d, ok := delta(); ok {
			v = int(math.Round(float64(v) * (1 + d)))
		}
		return max(v, 1)
	}

	p.MemorySize = scaleInt(p.MemorySize)
	if d, ok := delta(); ok {
		p.LearningRate = math.Max(p.LearningRate*(1+d), minLearningRate)
	}
	p.StructureParam = scaleInt(p.StructureParam)
	p.LearnFrequency = scaleInt(p.LearnFrequency)
	p.LifeExpectancy = scaleInt(p.LifeExpectancy)
	if d, ok := delta(); ok {
		p.RewardDiscount = math.Max(0, math.Min(1, p.RewardDiscount+d))
	}

	for i := range p.Fitrah {
		if d, ok := delta(); ok {
			p.Fitrah[i] = math.Max(0, p.Fitrah[i]+d)
		}
	}
	normalize(p.Fitrah)

	return genotype.New(p)
}

// Offspring crosses two parents and mutates the result.
func Offspring(a, b *genotype.Genotype, rng *rand.Rand, cfg config.MutationConfig) (*genotype.Genotype, error) {
	child, err := Crossover(a, b, rng)
	if err != nil {
		return nil, err
	}
	return Mutate(child, rng, cfg)
}

// normalize scales w in place to sum to 1. An all-zero vector becomes
// uniform.
func normalize(w []float64) {
	sum := floats.Sum(w)
	if sum <= 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	floats.Scale(1/sum, w)
}
