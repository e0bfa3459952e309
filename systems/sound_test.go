package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fitrah/components"
)

func TestSoundSystem_EmitAndDecay(t *testing.T) {
	s := NewSoundSystem(ecs.NewWorld(), 4, 2)
	s.Emit(1, 1, components.SoundMate, 1)
	s.Emit(1, 1, components.SoundFight, 2)
	s.Emit(9, 9, components.SoundFight, 5) // off grid

	if s.index.Len() != 2 {
		t.Fatalf("Count = %d, want 2", s.index.Len())
	}
	if v := s.Volume(1, 1); v != 3 {
		t.Errorf("Volume(1,1) = %v, want 3", v)
	}

	if removed := s.Decay(); removed != 0 {
		t.Errorf("first Decay removed %d, want 0", removed)
	}
	s.Emit(0, 0, components.SoundMate, 1)
	if removed := s.Decay(); removed != 2 {
		t.Errorf("second Decay removed %d, want 2", removed)
	}
	if s.Volume(1, 1) != 0 || s.index.Len() != 1 {
		t.Errorf("after fade: Volume(1,1)=%v Count=%d, want 0 1", s.Volume(1, 1), s.index.Len())
	}
}

func TestSoundSystem_Disabled(t *testing.T) {
	s := NewSoundSystem(ecs.NewWorld(), 4, 0)
	s.Emit(1, 1, components.SoundMate, 1)
	if s.index.Len() != 0 {
		t.Errorf("Count = %d with ttl 0, want 0", s.index.Len())
	}
}
