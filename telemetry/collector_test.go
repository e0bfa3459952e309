package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
)

func TestCollector_FlushPerRace(t *testing.T) {
	c := NewCollector([]string{"human", "zombie"}, 10)

	c.Record(NewBirthEvent(1, 5, 0, "human"))
	c.Record(NewMealEvent(2, 5, "human", 6))
	c.Record(NewMealEvent(3, 5, "human", 6))
	c.Record(NewFightEvent(4, 7, 5, "zombie", 40))
	c.Record(NewDeathEvent(4, 5, "human", CauseCombat))
	c.Record(NewDeathEvent(5, 8, "zombie", CauseStarvation))
	c.Record(NewMateEvent(6, 9, 10, "zombie"))
	c.Record(NewMealEvent(6, 1, "ghost", 6)) // unknown race, dropped

	if c.ShouldFlush(9) {
		t.Error("ShouldFlush(9) = true before the window ends")
	}
	if !c.ShouldFlush(10) {
		t.Fatal("ShouldFlush(10) = false at window end")
	}

	samples := []Sample{
		{Race: "human", Energy: 10, Age: 4},
		{Race: "human", Energy: 30, Age: 8},
		{Race: "zombie", Energy: 50, Age: 2},
	}
	rows := c.Flush(10, samples, FoodPool{Count: 3, Energy: 18})
	if len(rows) != 2 {
		t.Fatalf("Flush returned %d rows, want 2", len(rows))
	}

	human, zombie := rows[0], rows[1]
	if human.Race != "human" || zombie.Race != "zombie" {
		t.Fatalf("row order = %s, %s", human.Race, zombie.Race)
	}
	if human.Population != 2 || human.Births != 1 || human.Meals != 2 || human.EnergyEaten != 12 {
		t.Errorf("human row = %+v", human)
	}
	if human.Deaths != 1 || human.DeathsCombat != 1 {
		t.Errorf("human deaths = %d (combat %d), want 1 (1)", human.Deaths, human.DeathsCombat)
	}
	if human.EnergyMean != 20 || human.AgeMean != 6 {
		t.Errorf("human energy mean %v age mean %v, want 20 6", human.EnergyMean, human.AgeMean)
	}
	if zombie.Fights != 1 || zombie.EnergyCaptured != 40 || zombie.Matings != 1 || zombie.DeathsStarvation != 1 {
		t.Errorf("zombie row = %+v", zombie)
	}
	if zombie.FoodCount != 3 || zombie.FoodEnergy != 18 {
		t.Errorf("food columns = %d/%d, want 3/18", zombie.FoodCount, zombie.FoodEnergy)
	}

	// Counters reset and the next window starts at 10.
	next := c.Flush(20, nil, FoodPool{})
	if next[0].Births != 0 || next[0].WindowStartTick != 10 || next[0].Population != 0 {
		t.Errorf("second window = %+v, want reset counters starting at 10", next[0])
	}
}

func TestLifetimeTracker(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register(1, 0, "human", 100)
	lt.Register(2, 0, "human", 100)

	lt.Observe(NewMealEvent(1, 1, "human", 6))
	lt.Observe(NewFightEvent(2, 1, 2, "human", 50))
	lt.Observe(NewMealEvent(3, 99, "human", 6)) // untracked
	lt.RecordChild(1)
	lt.UpdateEnergy(1, 156)
	lt.UpdateEnergy(1, 120)

	s := lt.Remove(1)
	if s == nil {
		t.Fatal("Remove(1) = nil")
	}
	if s.Meals != 1 || s.FightsWon != 1 || s.Children != 1 || s.PeakEnergy != 156 {
		t.Errorf("stats = %+v", s)
	}
	if lt.Count() != 1 || lt.Get(1) != nil {
		t.Errorf("tracker still holds creature 1 (count %d)", lt.Count())
	}
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	first := []WindowStats{{WindowEndTick: 100, Race: "human", Population: 3}}
	second := []WindowStats{{WindowEndTick: 200, Race: "human", Population: 5}}
	if err := om.WriteTelemetry(first); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteTelemetry(second); err != nil {
		t.Fatal(err)
	}
	if err := om.WritePerf(PerfStats{}, 100); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "window_end"); n != 1 {
		t.Errorf("header written %d times, want 1", n)
	}

	var rows []WindowStats
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	if len(rows) != 2 || rows[1].Population != 5 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	if err := om.WriteTelemetry([]WindowStats{{}}); err != nil {
		t.Errorf("nil manager WriteTelemetry = %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("nil manager Dir = %q", om.Dir())
	}
}
