package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fitrah/components"
)

// FoodSystem owns the meals lying on the grid. Each meal is an ECS entity;
// a cell index mirrors their positions for per-cell lookups.
type FoodSystem struct {
	mapper    *ecs.Map2[components.GridPos, components.Food]
	filter    *ecs.Filter2[components.GridPos, components.Food]
	index     *CellIndex
	fertility *FertilityMap
	rng       *rand.Rand
	mealSize  int32
}

// NewFoodSystem creates a food system for a side×side grid.
func NewFoodSystem(w *ecs.World, side, mealSize int, fertility *FertilityMap, rng *rand.Rand) *FoodSystem {
	return &FoodSystem{
		mapper:    ecs.NewMap2[components.GridPos, components.Food](w),
		filter:    ecs.NewFilter2[components.GridPos, components.Food](w),
		index:     NewCellIndex(side),
		fertility: fertility,
		rng:       rng,
		mealSize:  int32(mealSize),
	}
}

// Count returns the number of meals on the grid.
func (s *FoodSystem) Count() int { return s.index.Len() }

// At returns the number of meals at (x, y).
func (s *FoodSystem) At(x, y int) int {
	return len(s.index.At(components.GridPos{X: int32(x), Y: int32(y)}))
}

// Place puts one meal at (x, y).
func (s *FoodSystem) Place(x, y int, tick int32) {
	pos := components.GridPos{X: int32(x), Y: int32(y)}
	food := components.Food{Energy: s.mealSize, Placed: tick}
	e := s.mapper.NewEntity(&pos, &food)
	s.index.Insert(e, pos)
}

// TopUp places meals on fertile cells until at least target are on the
// grid. Returns how many were placed.
func (s *FoodSystem) TopUp(target int, tick int32) int {
	placed := 0
	for s.Count() < target {
		x, y := s.fertility.Sample(s.rng)
		s.Place(x, y, tick)
		placed++
	}
	return placed
}

// Consume removes one meal from (x, y) and returns its energy.
func (s *FoodSystem) Consume(x, y int) (energy int, ok bool) {
	pos := components.GridPos{X: int32(x), Y: int32(y)}
	meals := s.index.At(pos)
	if len(meals) == 0 {
		return 0, false
	}
	e := meals[0] // oldest first
	_, food := s.mapper.Get(e)
	energy = int(food.Energy)
	s.index.Remove(e, pos)
	s.mapper.Remove(e)
	return energy, true
}

// TotalEnergy sums the energy of every meal on the grid.
func (s *FoodSystem) TotalEnergy() int {
	total := 0
	query := s.filter.Query()
	for query.Next() {
		_, food := query.Get()
		total += int(food.Energy)
	}
	return total
}

