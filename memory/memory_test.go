package memory

import "testing"

func exp(action int) Experience {
	return Experience{Action: action, Energy: action * 10, Alive: true}
}

func actions(b *Buffer) []int {
	var out []int
	for _, e := range b.All() {
		out = append(out, e.Action)
	}
	return out
}

func TestBufferEvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Add(exp(i))
	}

	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	got := actions(b)
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("contents = %v, want %v", got, want)
		}
	}
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	b := NewBuffer(4)
	for i := 0; i < 50; i++ {
		b.Add(exp(i))
		if b.Len() > b.Cap() {
			t.Fatalf("after %d adds Len = %d exceeds Cap = %d", i+1, b.Len(), b.Cap())
		}
	}
}

func TestBufferPartialFill(t *testing.T) {
	b := NewBuffer(5)
	b.Add(exp(7))
	b.Add(exp(8))

	s := b.Slice()
	if len(s) != 2 || s[0].Action != 7 || s[1].Action != 8 {
		t.Errorf("Slice = %+v, want actions [7 8]", s)
	}
	last, ok := b.Latest()
	if !ok || last.Action != 8 {
		t.Errorf("Latest = %v, %v; want 8, true", last.Action, ok)
	}
	if b.At(0).Action != 7 {
		t.Errorf("At(0) = %d, want 7", b.At(0).Action)
	}
}

func TestBufferEmpty(t *testing.T) {
	b := NewBuffer(2)
	if _, ok := b.Latest(); ok {
		t.Error("Latest on empty buffer reported ok")
	}
	if len(b.Slice()) != 0 {
		t.Error("Slice on empty buffer not empty")
	}
	for range b.All() {
		t.Fatal("All yielded on empty buffer")
	}
}

func TestBufferEarlyBreak(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 3; i++ {
		b.Add(exp(i))
	}
	seen := 0
	for range b.All() {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("iterator ignored break, saw %d entries", seen)
	}
}

func TestBufferMinimumCapacity(t *testing.T) {
	b := NewBuffer(0)
	if b.Cap() != 1 {
		t.Errorf("Cap = %d, want 1", b.Cap())
	}
	b.Add(exp(1))
	b.Add(exp(2))
	if got := actions(b); len(got) != 1 || got[0] != 2 {
		t.Errorf("contents = %v, want [2]", got)
	}
}
