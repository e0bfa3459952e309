// Package perception builds the multi-channel observation tensor a creature
// feeds to its policy.
//
// Channel layout of a composed tensor:
//
//	[0]          food
//	[1]          observer's own race (self channel)
//	[2 .. R]     the other races
//	[R+1]        sound
//	[R+2]        energy (uniform)
//	[R+3]        age (uniform)
package perception

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a stack of square channels sharing one spatial extent.
type Tensor struct {
	side     int
	channels []*mat.Dense
}

// New returns a zero tensor with n channels of side×side cells.
func New(n, side int) Tensor {
	t := Tensor{side: side, channels: make([]*mat.Dense, n)}
	for i := range t.channels {
		t.channels[i] = mat.NewDense(side, side, nil)
	}
	return t
}

// Filled returns a tensor with every cell set to v.
func Filled(n, side int, v float64) Tensor {
	t := Tensor{side: side, channels: make([]*mat.Dense, n)}
	for i := range t.channels {
		t.channels[i] = Uniform(side, v)
	}
	return t
}

// Uniform returns a side×side channel with every cell set to v.
func Uniform(side int, v float64) *mat.Dense {
	data := make([]float64, side*side)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(side, side, data)
}

// FromChannels stacks existing channels. Every channel must be square and of
// the same size. Channels are used as is, not copied.
func FromChannels(channels ...*mat.Dense) (Tensor, error) {
	if len(channels) == 0 {
		return Tensor{}, nil
	}
	side, c := channels[0].Dims()
	if side != c {
		return Tensor{}, fmt.Errorf("channel 0 is %dx%d, want square", side, c)
	}
	for i, ch := range channels[1:] {
		r, c := ch.Dims()
		if r != side || c != side {
			return Tensor{}, fmt.Errorf("channel %d is %dx%d, want %dx%d", i+1, r, c, side, side)
		}
	}
	return Tensor{side: side, channels: channels}, nil
}

// NumChannels returns the channel count.
func (t Tensor) NumChannels() int { return len(t.channels) }

// Side returns the spatial extent of one channel.
func (t Tensor) Side() int { return t.side }

// Shape returns (channels, side, side).
func (t Tensor) Shape() [3]int { return [3]int{len(t.channels), t.side, t.side} }

// Channel returns channel i.
func (t Tensor) Channel(i int) *mat.Dense { return t.channels[i] }

// At returns the value at channel c, row r, column col.
func (t Tensor) At(c, r, col int) float64 { return t.channels[c].At(r, col) }

// Set writes v at channel c, row r, column col.
func (t Tensor) Set(c, r, col int, v float64) { t.channels[c].Set(r, col, v) }

// Center returns the value of channel c at the observer's own cell.
func (t Tensor) Center(c int) float64 {
	mid := t.side / 2
	return t.channels[c].At(mid, mid)
}

// Swap exchanges channels i and j in place.
func (t Tensor) Swap(i, j int) {
	t.channels[i], t.channels[j] = t.channels[j], t.channels[i]
}

// Concat returns a new tensor holding deep copies of t's channels followed by
// other's channels.
func (t Tensor) Concat(other Tensor) (Tensor, error) {
	if len(t.channels) > 0 && len(other.channels) > 0 && t.side != other.side {
		return Tensor{}, fmt.Errorf("cannot stack side %d onto side %d", other.side, t.side)
	}
	side := t.side
	if len(t.channels) == 0 {
		side = other.side
	}
	out := Tensor{side: side, channels: make([]*mat.Dense, 0, len(t.channels)+len(other.channels))}
	for _, ch := range t.channels {
		out.channels = append(out.channels, mat.DenseCopyOf(ch))
	}
	for _, ch := range other.channels {
		out.channels = append(out.channels, mat.DenseCopyOf(ch))
	}
	return out, nil
}

// Clone returns a deep copy.
func (t Tensor) Clone() Tensor {
	out := Tensor{side: t.side, channels: make([]*mat.Dense, len(t.channels))}
	for i, ch := range t.channels {
		out.channels[i] = mat.DenseCopyOf(ch)
	}
	return out
}

// Flatten returns all cells channel-major, row-major.
func (t Tensor) Flatten() []float64 {
	out := make([]float64, 0, len(t.channels)*t.side*t.side)
	for _, ch := range t.channels {
		for r := 0; r < t.side; r++ {
			out = append(out, ch.RawRowView(r)...)
		}
	}
	return out
}

// Equal reports whether both tensors have the same shape and values.
func (t Tensor) Equal(other Tensor) bool {
	if t.Shape() != other.Shape() {
		return false
	}
	for i := range t.channels {
		if !mat.Equal(t.channels[i], other.channels[i]) {
			return false
		}
	}
	return true
}
