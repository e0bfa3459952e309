// Package systems provides the ECS systems that manage food and sound on the
// grid.
package systems

import (
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fitrah/components"
)

// CellIndex buckets entities by grid cell for O(1) per-cell lookups.
type CellIndex struct {
	side  int
	cells [][]ecs.Entity // flat grid of entity lists
	count int
}

// NewCellIndex creates an index for a side×side grid.
func NewCellIndex(side int) *CellIndex {
	cells := make([][]ecs.Entity, side*side)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 4)
	}
	return &CellIndex{side: side, cells: cells}
}

// Len returns the number of indexed entities.
func (g *CellIndex) Len() int { return g.count }

// Contains reports whether pos lies on the grid.
func (g *CellIndex) Contains(pos components.GridPos) bool {
	return pos.X >= 0 && pos.Y >= 0 && int(pos.X) < g.side && int(pos.Y) < g.side
}

// Insert adds e at pos. Positions off the grid are ignored.
func (g *CellIndex) Insert(e ecs.Entity, pos components.GridPos) {
	if !g.Contains(pos) {
		return
	}
	idx := g.cellIndex(pos)
	g.cells[idx] = append(g.cells[idx], e)
	g.count++
}

// Remove drops e from pos and reports whether it was there.
func (g *CellIndex) Remove(e ecs.Entity, pos components.GridPos) bool {
	if !g.Contains(pos) {
		return false
	}
	idx := g.cellIndex(pos)
	i := slices.Index(g.cells[idx], e)
	if i < 0 {
		return false
	}
	g.cells[idx] = slices.Delete(g.cells[idx], i, i+1)
	g.count--
	return true
}

// At returns the entities at pos. The slice is owned by the index.
func (g *CellIndex) At(pos components.GridPos) []ecs.Entity {
	if !g.Contains(pos) {
		return nil
	}
	return g.cells[g.cellIndex(pos)]
}

func (g *CellIndex) cellIndex(pos components.GridPos) int {
	return int(pos.Y)*g.side + int(pos.X)
}
