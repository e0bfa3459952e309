package perception

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// FoodChannel is the single leading non-race channel.
	FoodChannel = 0
	// SelfChannel always holds the observer's own race after Compose.
	SelfChannel = 1

	foodDims     = 1
	soundDims    = 1
	internalDims = 2 // energy, age
)

// WindowSide returns the side of a perception window of the given radius.
func WindowSide(visionRange int) int { return 2*visionRange + 1 }

// ObservationShape returns the shape of a composed tensor.
func ObservationShape(numRaces, visionRange int) [3]int {
	side := WindowSide(visionRange)
	return [3]int{numRaces + foodDims + soundDims + internalDims, side, side}
}

// SurroundingChannels returns how many channels the world provides for
// numRaces races.
func SurroundingChannels(numRaces int) int { return numRaces + foodDims + soundDims }

// InternalState broadcasts energy and age over a side×side window.
func InternalState(energy, age, side int) Tensor {
	return Tensor{side: side, channels: []*mat.Dense{
		Uniform(side, float64(energy)),
		Uniform(side, float64(age)),
	}}
}

// Compose stacks the world's surroundings (food, one channel per race in
// registration order, sound) with the internal channels, then swaps the
// observer's race channel into SelfChannel. The inputs are not modified.
func Compose(surroundings, internal Tensor, raceIndex int) (Tensor, error) {
	numRaces := surroundings.NumChannels() - foodDims - soundDims
	if numRaces < 1 {
		return Tensor{}, fmt.Errorf("surroundings have %d channels, need at least %d",
			surroundings.NumChannels(), foodDims+soundDims+1)
	}
	if raceIndex < 0 || raceIndex >= numRaces {
		return Tensor{}, fmt.Errorf("race index %d out of range [0,%d)", raceIndex, numRaces)
	}
	if internal.NumChannels() != internalDims {
		return Tensor{}, fmt.Errorf("internal state has %d channels, want %d", internal.NumChannels(), internalDims)
	}

	state, err := surroundings.Concat(internal)
	if err != nil {
		return Tensor{}, err
	}
	if raceIndex != 0 {
		state.Swap(SelfChannel, SelfChannel+raceIndex)
	}
	return state, nil
}

// Energy reads the energy channel of a composed observation.
func Energy(state Tensor) float64 {
	return state.Center(state.NumChannels() - internalDims)
}

// FoodHere reports whether the observer's own cell holds food.
func FoodHere(state Tensor) bool {
	return state.NumChannels() > FoodChannel && state.Center(FoodChannel) > 0
}
