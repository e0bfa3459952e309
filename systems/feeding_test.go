package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fitrah/components"
)

func newTestFoodSystem(side int) *FoodSystem {
	w := ecs.NewWorld()
	rng := rand.New(rand.NewSource(42))
	return NewFoodSystem(w, side, 6, NewFertilityMap(side, 0.35, 42), rng)
}

func TestFoodSystem_PlaceAndConsume(t *testing.T) {
	s := newTestFoodSystem(4)
	s.Place(1, 2, 0)
	s.Place(1, 2, 3)

	if s.Count() != 2 || s.At(1, 2) != 2 {
		t.Fatalf("Count=%d At(1,2)=%d, want 2 2", s.Count(), s.At(1, 2))
	}

	energy, ok := s.Consume(1, 2)
	if !ok || energy != 6 {
		t.Errorf("Consume = %d, %v; want 6, true", energy, ok)
	}
	if s.At(1, 2) != 1 {
		t.Errorf("At(1,2) after eating = %d, want 1", s.At(1, 2))
	}
	if _, ok := s.Consume(0, 0); ok {
		t.Error("Consume on an empty cell should fail")
	}
	if s.TotalEnergy() != 6 {
		t.Errorf("TotalEnergy = %d, want 6", s.TotalEnergy())
	}
}

func TestFoodSystem_TopUp(t *testing.T) {
	s := newTestFoodSystem(5)
	if placed := s.TopUp(12, 0); placed != 12 {
		t.Errorf("TopUp placed %d, want 12", placed)
	}
	if placed := s.TopUp(10, 1); placed != 0 {
		t.Errorf("TopUp below the current count placed %d, want 0", placed)
	}

	sum := 0
	for y := range 5 {
		for x := range 5 {
			sum += s.At(x, y)
		}
	}
	if sum != 12 || s.TotalEnergy() != 12*6 {
		t.Errorf("cells hold %d meals worth %d, want 12 worth 72", sum, s.TotalEnergy())
	}
}

func TestFertilityMap(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
	}{
		{"uniform", 0},
		{"noisy", 0.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFertilityMap(6, tt.scale, 42)
			var sum float64
			for y := range 6 {
				for x := range 6 {
					w := m.weights[y*6+x]
					if w <= 0 {
						t.Fatalf("Weight(%d,%d) = %v, want > 0", x, y, w)
					}
					if tt.scale == 0 && math.Abs(w-1.0/36) > 1e-12 {
						t.Fatalf("uniform Weight(%d,%d) = %v, want 1/36", x, y, w)
					}
					sum += w
				}
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("weights sum to %v, want 1", sum)
			}

			rng := rand.New(rand.NewSource(42))
			for range 1000 {
				x, y := m.Sample(rng)
				if x < 0 || x >= 6 || y < 0 || y >= 6 {
					t.Fatalf("Sample = (%d,%d), off the grid", x, y)
				}
			}
		})
	}
}

func TestCellIndex(t *testing.T) {
	w := ecs.NewWorld()
	mapper := ecs.NewMap1[components.GridPos](w)
	idx := NewCellIndex(3)

	pos := components.GridPos{X: 2, Y: 1}
	a := mapper.NewEntity(&pos)
	b := mapper.NewEntity(&pos)
	idx.Insert(a, pos)
	idx.Insert(b, pos)
	idx.Insert(a, components.GridPos{X: 3, Y: 0}) // off grid, ignored

	if idx.Len() != 2 || len(idx.At(pos)) != 2 {
		t.Fatalf("Len=%d At=%d, want 2 2", idx.Len(), len(idx.At(pos)))
	}
	if !idx.Remove(a, pos) || idx.Remove(a, pos) {
		t.Error("Remove should succeed once")
	}
	if got := idx.At(pos); len(got) != 1 || got[0] != b {
		t.Errorf("At after remove = %v, want [b]", got)
	}
}
