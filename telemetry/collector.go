package telemetry

// raceCounters holds the event counts of one race in the current window.
type raceCounters struct {
	births   int
	deaths   [CauseKilled + 1]int
	meals    int
	fights   int
	matings  int
	eaten    int
	captured int
}

// Sample is the state of one living creature at window end.
type Sample struct {
	Race   string
	Energy int
	Age    int
}

// FoodPool describes the food on the grid at window end.
type FoodPool struct {
	Count  int
	Energy int
}

// Collector accumulates events within windows and produces one WindowStats
// row per race.
type Collector struct {
	windowTicks     int32
	windowStartTick int32

	races    []string
	counters map[string]*raceCounters
}

// NewCollector creates a collector for the given races, flushing every
// windowTicks ticks.
func NewCollector(races []string, windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	c := &Collector{
		windowTicks: int32(windowTicks),
		races:       append([]string(nil), races...),
		counters:    make(map[string]*raceCounters, len(races)),
	}
	for _, r := range races {
		c.counters[r] = &raceCounters{}
	}
	return c
}

// Record counts ev. Events for unknown races are dropped.
func (c *Collector) Record(ev Event) {
	rc := c.counters[ev.Race]
	if rc == nil {
		return
	}
	switch ev.Type {
	case EventBirth:
		rc.births++
	case EventDeath:
		if int(ev.Cause) < len(rc.deaths) {
			rc.deaths[ev.Cause]++
		}
	case EventMeal:
		rc.meals++
		rc.eaten += ev.Amount
	case EventFight:
		rc.fights++
		rc.captured += ev.Amount
	case EventMate:
		rc.matings++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int32 { return c.windowTicks }

// Flush produces a row per race and resets the counters.
func (c *Collector) Flush(currentTick int32, samples []Sample, food FoodPool) []WindowStats {
	energies := make(map[string][]float64, len(c.races))
	ages := make(map[string][]float64, len(c.races))
	for _, s := range samples {
		energies[s.Race] = append(energies[s.Race], float64(s.Energy))
		ages[s.Race] = append(ages[s.Race], float64(s.Age))
	}

	rows := make([]WindowStats, 0, len(c.races))
	for _, race := range c.races {
		rc := c.counters[race]
		e := ComputeEnergyStats(energies[race])
		ageMean, _ := meanStd(ages[race])

		deaths := 0
		for _, n := range rc.deaths {
			deaths += n
		}

		rows = append(rows, WindowStats{
			WindowStartTick: c.windowStartTick,
			WindowEndTick:   currentTick,
			Race:            race,

			Population: len(energies[race]),
			Births:     rc.births,
			Deaths:     deaths,

			DeathsStarvation: rc.deaths[CauseStarvation],
			DeathsOldAge:     rc.deaths[CauseOldAge],
			DeathsCombat:     rc.deaths[CauseCombat],
			DeathsKilled:     rc.deaths[CauseKilled],

			Meals:          rc.meals,
			EnergyEaten:    rc.eaten,
			Fights:         rc.fights,
			EnergyCaptured: rc.captured,
			Matings:        rc.matings,

			EnergyMean: e.Mean,
			EnergyStd:  e.Std,
			EnergyP10:  e.P10,
			EnergyP50:  e.P50,
			EnergyP90:  e.P90,
			AgeMean:    ageMean,

			FoodCount:  food.Count,
			FoodEnergy: food.Energy,
		})
		*rc = raceCounters{}
	}

	c.windowStartTick = currentTick
	return rows
}
