package universe

import (
	"log/slog"

	"github.com/pthm-cable/fitrah/chronicle"
	"github.com/pthm-cable/fitrah/creature"
	"github.com/pthm-cable/fitrah/telemetry"
)

func (u *Universe) record(ev telemetry.Event) {
	u.collector.Record(ev)
	u.lifetime.Observe(ev)
}

func (u *Universe) recordBirth(c *creature.Creature, a, b *creature.Creature) {
	var parentA, parentB uint32
	if a != nil && b != nil {
		parentA, parentB = a.ID(), b.ID()
		u.lifetime.RecordChild(parentA)
		u.lifetime.RecordChild(parentB)
	}
	u.collector.Record(telemetry.NewBirthEvent(u.tick, c.ID(), parentA, c.Race().Name))
	u.lifetime.Register(c.ID(), u.tick, c.Race().Name, c.Energy())

	if u.ledger != nil {
		u.ledger.RecordBirth(chronicle.Birth{
			ID:      c.ID(),
			Name:    c.Name(),
			Race:    c.Race().Name,
			Tick:    int(u.tick),
			ParentA: parentA,
			ParentB: parentB,
		})
	}
}

func (u *Universe) recordDeath(c *creature.Creature, cause telemetry.DeathCause) {
	u.collector.Record(telemetry.NewDeathEvent(u.tick, c.ID(), c.Race().Name, cause))
	stats := u.lifetime.Remove(c.ID())

	if u.ledger == nil {
		return
	}
	d := chronicle.Death{
		ID:     c.ID(),
		Name:   c.Name(),
		Race:   c.Race().Name,
		Tick:   int(u.tick),
		Age:    c.Age(),
		Energy: c.Energy(),
		Cause:  cause.String(),
	}
	if stats != nil {
		d.Meals = stats.Meals
		d.FightsWon = stats.FightsWon
		d.Children = stats.Children
		d.PeakEnergy = stats.PeakEnergy
	}
	u.ledger.RecordDeath(d)
}

// flushTelemetry emits the window rows and any bookmarks when a stats
// window ends.
func (u *Universe) flushTelemetry() {
	if !u.collector.ShouldFlush(u.tick) {
		return
	}

	samples := make([]telemetry.Sample, len(u.population))
	for i, c := range u.population {
		samples[i] = telemetry.Sample{Race: c.Race().Name, Energy: c.Energy(), Age: c.Age()}
	}
	food := telemetry.FoodPool{Count: u.food.Count(), Energy: u.food.TotalEnergy()}

	rows := u.collector.Flush(u.tick, samples, food)
	perfStats := u.perf.Stats()

	if u.statsCallback != nil {
		u.statsCallback(rows)
	}
	if u.logStats {
		for _, row := range rows {
			row.LogStats()
		}
		perfStats.LogStats()
	}
	if u.output != nil {
		if err := u.output.WriteTelemetry(rows); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := u.output.WritePerf(perfStats, u.tick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	bookmarks := u.bookmarks.Check(rows)
	if len(bookmarks) == 0 {
		return
	}
	if u.logStats {
		for _, bm := range bookmarks {
			bm.LogBookmark()
		}
	}
	if err := u.output.WriteBookmarks(bookmarks); err != nil {
		slog.Error("failed to write bookmarks", "error", err)
	}
}
