package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fitrah/components"
)

// SoundSystem tracks short-lived sounds made by mating and fighting.
type SoundSystem struct {
	mapper *ecs.Map2[components.GridPos, components.Sound]
	filter *ecs.Filter2[components.GridPos, components.Sound]
	index  *CellIndex
	ttl    int32

	expired []expiredSound // reused across Decay calls
}

type expiredSound struct {
	entity ecs.Entity
	pos    components.GridPos
}

// NewSoundSystem creates a sound system whose sounds last ttl ticks.
// A ttl of 0 disables sound.
func NewSoundSystem(w *ecs.World, side, ttl int) *SoundSystem {
	return &SoundSystem{
		mapper: ecs.NewMap2[components.GridPos, components.Sound](w),
		filter: ecs.NewFilter2[components.GridPos, components.Sound](w),
		index:  NewCellIndex(side),
		ttl:    int32(ttl),
	}
}

// Emit makes a sound at (x, y).
func (s *SoundSystem) Emit(x, y int, kind components.SoundKind, volume float32) {
	if s.ttl <= 0 {
		return
	}
	pos := components.GridPos{X: int32(x), Y: int32(y)}
	if !s.index.Contains(pos) {
		return
	}
	snd := components.Sound{Kind: kind, Volume: volume, TTL: s.ttl}
	e := s.mapper.NewEntity(&pos, &snd)
	s.index.Insert(e, pos)
}

// Volume returns the summed volume of the sounds at (x, y).
func (s *SoundSystem) Volume(x, y int) float64 {
	var v float64
	for _, e := range s.index.At(components.GridPos{X: int32(x), Y: int32(y)}) {
		_, snd := s.mapper.Get(e)
		v += float64(snd.Volume)
	}
	return v
}

// Decay ages every sound by one tick and removes the ones that faded.
// Returns the number removed.
func (s *SoundSystem) Decay() int {
	s.expired = s.expired[:0]

	// First pass: age (removal must wait until the query is done)
	query := s.filter.Query()
	for query.Next() {
		pos, snd := query.Get()
		snd.TTL--
		if snd.TTL <= 0 {
			s.expired = append(s.expired, expiredSound{entity: query.Entity(), pos: *pos})
		}
	}

	for _, dead := range s.expired {
		s.index.Remove(dead.entity, dead.pos)
		s.mapper.Remove(dead.entity)
	}
	return len(s.expired)
}
