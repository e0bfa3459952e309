// Package components defines ECS components for the things lying on the grid
// that are not creatures: food and sound.
package components

// GridPos is an integer cell coordinate.
type GridPos struct {
	X, Y int32
}

// Food is one meal lying on a cell.
type Food struct {
	Energy int32 // Energy granted when eaten
	Placed int32 // Tick the meal appeared
}

// SoundKind identifies what made a sound.
type SoundKind uint8

const (
	SoundMate SoundKind = iota
	SoundFight
)

func (k SoundKind) String() string {
	switch k {
	case SoundMate:
		return "mate"
	case SoundFight:
		return "fight"
	default:
		return "unknown"
	}
}

// Sound is an audible event. It fades after TTL ticks.
type Sound struct {
	Kind   SoundKind
	Volume float32
	TTL    int32
}
