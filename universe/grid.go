package universe

import (
	"slices"

	"github.com/pthm-cable/fitrah/creature"
)

// cell is one grid square. Any number of creatures may stand in it.
type cell struct {
	coord     creature.Coord
	occupants []*creature.Creature
}

func (c *cell) Coord() creature.Coord { return c.coord }

func (c *cell) add(cr *creature.Creature) { c.occupants = append(c.occupants, cr) }

func (c *cell) remove(cr *creature.Creature) {
	if i := slices.Index(c.occupants, cr); i >= 0 {
		c.occupants = slices.Delete(c.occupants, i, i+1)
	}
}

// grid is a square of cells addressed row-major.
type grid struct {
	side     int
	slippery bool
	cells    []*cell
}

func newGrid(side int, slippery bool) *grid {
	g := &grid{side: side, slippery: slippery, cells: make([]*cell, side*side)}
	for y := range side {
		for x := range side {
			g.cells[y*side+x] = &cell{coord: creature.Coord{X: x, Y: y}}
		}
	}
	return g
}

// resolve maps a coordinate onto the grid, wrapping when slippery.
// ok is false for an off-grid coordinate on a bounded grid.
func (g *grid) resolve(x, y int) (creature.Coord, bool) {
	if g.slippery {
		x = ((x % g.side) + g.side) % g.side
		y = ((y % g.side) + g.side) % g.side
		return creature.Coord{X: x, Y: y}, true
	}
	if x < 0 || y < 0 || x >= g.side || y >= g.side {
		return creature.Coord{}, false
	}
	return creature.Coord{X: x, Y: y}, true
}

func (g *grid) at(c creature.Coord) *cell {
	return g.cells[c.Y*g.side+c.X]
}

func (g *grid) clear() {
	for _, c := range g.cells {
		c.occupants = c.occupants[:0]
	}
}
