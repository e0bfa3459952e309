package telemetry

// LifetimeStats tracks per-creature statistics over its lifetime.
type LifetimeStats struct {
	BirthTick int32
	Race      string

	Meals      int
	FightsWon  int
	Children   int
	PeakEnergy int
}

// LifetimeTracker manages per-creature lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register starts tracking a newborn creature.
func (lt *LifetimeTracker) Register(id uint32, birthTick int32, race string, energy int) {
	lt.stats[id] = &LifetimeStats{BirthTick: birthTick, Race: race, PeakEnergy: energy}
}

// Get returns the lifetime stats of a creature, or nil if not tracked.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove stops tracking a creature and returns its final stats.
func (lt *LifetimeTracker) Remove(id uint32) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// Observe updates the tracker from a telemetry event.
func (lt *LifetimeTracker) Observe(ev Event) {
	s := lt.stats[ev.CreatureID]
	if s == nil {
		return
	}
	switch ev.Type {
	case EventMeal:
		s.Meals++
	case EventFight:
		s.FightsWon++
	}
}

// RecordChild increments the children count of a parent.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// UpdateEnergy tracks peak energy.
func (lt *LifetimeTracker) UpdateEnergy(id uint32, energy int) {
	if s := lt.stats[id]; s != nil && energy > s.PeakEnergy {
		s.PeakEnergy = energy
	}
}

// Count returns the number of tracked creatures.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
