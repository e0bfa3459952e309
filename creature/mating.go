package creature

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/fitrah/genotype"
)

// Attraction scores how appealing b is to a: c·(1−c) where c is the cosine
// similarity of the flattened genotypes. Identical and orthogonal genotypes
// both score 0; the peak is at c = 0.5.
func Attraction(a, b *genotype.Genotype) float64 {
	c := cosine(a.Flatten(), b.Flatten())
	return c * (1 - c)
}

// cosine is computed over the common prefix and clamped to [0,1]. A zero
// vector has similarity 0 with everything.
func cosine(x, y []float64) float64 {
	n := min(len(x), len(y))
	if n == 0 {
		return 0
	}
	x, y = x[:n], y[:n]
	nx, ny := floats.Norm(x, 2), floats.Norm(y, 2)
	if nx == 0 || ny == 0 {
		return 0
	}
	c := floats.Dot(x, y) / (nx * ny)
	return math.Max(0, math.Min(1, c))
}

// MateSelector draws spouses with probability proportional to attraction.
type MateSelector struct {
	rng *rand.Rand
}

// NewMateSelector creates a selector drawing from rng.
func NewMateSelector(rng *rand.Rand) *MateSelector {
	return &MateSelector{rng: rng}
}

// Select returns one of candidates, or nil if there are none. When every
// candidate scores zero the draw is uniform.
func (s *MateSelector) Select(chooser *Creature, candidates []*Creature) *Creature {
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}

	weights := make([]float64, len(candidates))
	for i, cand := range candidates {
		weights[i], _ = chooser.SexualAttraction(cand)
	}
	return candidates[s.draw(weights)]
}

// draw samples an index from unnormalized non-negative weights.
func (s *MateSelector) draw(weights []float64) int {
	total := floats.Sum(weights)
	if total <= 0 {
		return s.rng.Intn(len(weights))
	}
	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)
	u := s.rng.Float64() * total
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
	if i == len(cum) {
		i = len(cum) - 1
	}
	return i
}
