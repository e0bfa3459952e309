// Package telemetry provides per-race population tracking, window stats,
// performance timing and CSV output.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventBirth EventType = iota
	EventDeath
	EventMeal
	EventFight
	EventMate
)

func (t EventType) String() string {
	switch t {
	case EventBirth:
		return "birth"
	case EventDeath:
		return "death"
	case EventMeal:
		return "meal"
	case EventFight:
		return "fight"
	case EventMate:
		return "mate"
	default:
		return "unknown"
	}
}

// DeathCause says why a creature died.
type DeathCause uint8

const (
	CauseStarvation DeathCause = iota // could not pay an energy cost
	CauseOldAge                       // reached its life expectancy
	CauseCombat                       // lost a fight
	CauseKilled                       // removed by the driver
)

func (c DeathCause) String() string {
	switch c {
	case CauseStarvation:
		return "starvation"
	case CauseOldAge:
		return "old_age"
	case CauseCombat:
		return "combat"
	case CauseKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Event represents a single telemetry event.
type Event struct {
	Type       EventType
	Tick       int32
	CreatureID uint32
	Race       string

	// Optional fields depending on event type
	TargetID uint32     // partner (mate), loser (fight), first parent (birth)
	Amount   int        // energy eaten (meal) or taken (fight)
	Cause    DeathCause // death only
}

// NewBirthEvent creates a birth event. parentID is 0 for first-generation
// creatures.
func NewBirthEvent(tick int32, childID, parentID uint32, race string) Event {
	return Event{Type: EventBirth, Tick: tick, CreatureID: childID, Race: race, TargetID: parentID}
}

// NewDeathEvent creates a death event.
func NewDeathEvent(tick int32, id uint32, race string, cause DeathCause) Event {
	return Event{Type: EventDeath, Tick: tick, CreatureID: id, Race: race, Cause: cause}
}

// NewMealEvent creates a meal event.
func NewMealEvent(tick int32, id uint32, race string, energy int) Event {
	return Event{Type: EventMeal, Tick: tick, CreatureID: id, Race: race, Amount: energy}
}

// NewFightEvent records that winner beat loser and took energy from it.
func NewFightEvent(tick int32, winnerID, loserID uint32, race string, energy int) Event {
	return Event{Type: EventFight, Tick: tick, CreatureID: winnerID, Race: race, TargetID: loserID, Amount: energy}
}

// NewMateEvent creates a mating event from the initiator's side.
func NewMateEvent(tick int32, id, partnerID uint32, race string) Event {
	return Event{Type: EventMate, Tick: tick, CreatureID: id, Race: race, TargetID: partnerID}
}
