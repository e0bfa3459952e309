package creature

// State is a creature's lifecycle stage.
type State uint8

const (
	Unborn State = iota // constructed, not yet placed
	Alive               // placed in a cell
	Dying               // last will running
	Dead                // removed from the grid, terminal
)

func (s State) String() string {
	switch s {
	case Unborn:
		return "unborn"
	case Alive:
		return "alive"
	case Dying:
		return "dying"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}
