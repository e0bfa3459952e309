package creature

import (
	"github.com/pthm-cable/fitrah/memory"
	"github.com/pthm-cable/fitrah/perception"
)

// Coord addresses a grid cell.
type Coord struct {
	X, Y int
}

// Cell is the creature's handle into the world grid. The world owns cells;
// a creature only remembers where it stands.
type Cell interface {
	Coord() Coord
}

// World mediates every effect a creature has on the grid and on other
// creatures. Implementations own all shared state.
type World interface {
	// Surroundings returns food, one channel per race in Races() order and
	// sound for the (2·radius+1)² window centred on coord.
	Surroundings(coord Coord, radius int) perception.Tensor
	// CellState returns the raw channel values of a single cell.
	CellState(coord Coord) []float64

	Feed(c *Creature) error
	Move(c *Creature, direction int) error
	Mate(c *Creature) error
	Fight(c *Creature) error
	// Kill must call c.Dying() while c still counts in NumCreatures, then
	// clear its cell. Killing a creature that is not alive is a no-op.
	Kill(c *Creature) error

	Races() []string
	NumRaces() int
	NumCreatures() int
}

// Policy decides and learns. Any strategy satisfying it is substitutable.
type Policy interface {
	// Decide returns an action index in [0, number of race actions).
	Decide(state perception.Tensor) int
	// Train learns from a batch ordered oldest first.
	Train(batch []memory.Experience) error
	// Save persists the policy at path.
	Save(path string) error
}
