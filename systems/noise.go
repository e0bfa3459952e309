package systems

import (
	"math/rand"
	"sort"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/floats"
)

// fertilityFloor keeps every cell reachable by food placement.
const fertilityFloor = 0.05

// FertilityMap weights grid cells for food placement using coherent noise,
// so meals cluster in fertile patches instead of falling uniformly.
type FertilityMap struct {
	side    int
	weights []float64 // row-major, sums to 1
	cum     []float64
}

// NewFertilityMap samples simplex noise at the given frequency. A scale of 0
// yields a uniform map.
func NewFertilityMap(side int, scale float64, seed int64) *FertilityMap {
	weights := make([]float64, side*side)
	if scale <= 0 {
		for i := range weights {
			weights[i] = 1
		}
	} else {
		noise := opensimplex.NewNormalized(seed)
		for y := range side {
			for x := range side {
				v := noise.Eval2(float64(x)*scale, float64(y)*scale)
				weights[y*side+x] = fertilityFloor + v*v
			}
		}
	}
	floats.Scale(1/floats.Sum(weights), weights)

	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)
	return &FertilityMap{side: side, weights: weights, cum: cum}
}

// Sample draws a cell with probability proportional to its weight.
func (m *FertilityMap) Sample(rng *rand.Rand) (x, y int) {
	u := rng.Float64() * m.cum[len(m.cum)-1]
	i := sort.Search(len(m.cum), func(i int) bool { return m.cum[i] > u })
	i = min(i, len(m.cum)-1)
	return i % m.side, i / m.side
}
