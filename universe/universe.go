// Package universe is the concrete grid world: it owns every cell, the food
// and sound entities, and the per-tick driver that makes creatures act.
package universe

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fitrah/chronicle"
	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/creature"
	"github.com/pthm-cable/fitrah/genotype"
	"github.com/pthm-cable/fitrah/policy"
	"github.com/pthm-cable/fitrah/race"
	"github.com/pthm-cable/fitrah/systems"
	"github.com/pthm-cable/fitrah/telemetry"
)

// Ledger receives the birth and death records of a run.
// *chronicle.Ledger satisfies it.
type Ledger interface {
	RecordBirth(chronicle.Birth)
	RecordDeath(chronicle.Death)
	RecordSurvivor(chronicle.Survivor)
}

// Options configures a universe.
type Options struct {
	Seed     int64
	LogStats bool

	// Policies builds the policy of every new creature. Defaults to the
	// fitrah-seeded instinct.
	Policies policy.Factory
	// Output receives telemetry.csv and perf.csv rows (nil = disabled).
	Output *telemetry.OutputManager
	// Ledger records births and deaths (nil = disabled).
	Ledger Ledger
	// StatsCallback is called with every flushed window.
	StatsCallback func([]telemetry.WindowStats)
}

// Universe implements creature.World. It is driven by a single goroutine.
type Universe struct {
	cfg      *config.Config
	registry *race.Registry
	races    []string
	rng      *rand.Rand
	seq      *creature.Sequence
	selector *creature.MateSelector
	policies policy.Factory

	grid       *grid
	population []*creature.Creature

	ecs   *ecs.World
	food  *systems.FoodSystem
	sound *systems.SoundSystem

	tick       int32
	deathCause telemetry.DeathCause
	survivor   map[string]int

	collector     *telemetry.Collector
	bookmarks     *telemetry.BookmarkDetector
	lifetime      *telemetry.LifetimeTracker
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	ledger        Ledger
	logStats      bool
	statsCallback func([]telemetry.WindowStats)
}

var _ creature.World = (*Universe)(nil)

// New builds an empty universe. Call Populate to spawn the first generation.
func New(cfg *config.Config, opts Options) (*Universe, error) {
	registry, err := race.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("building races: %w", err)
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no races configured")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	side := cfg.Physics.SpaceSize
	w := ecs.NewWorld()
	fertility := systems.NewFertilityMap(side, cfg.Physics.FertilityScale, opts.Seed)

	u := &Universe{
		cfg:        cfg,
		registry:   registry,
		races:      registry.Names(),
		rng:        rng,
		seq:        creature.NewSequence(),
		selector:   creature.NewMateSelector(rand.New(rand.NewSource(opts.Seed + 1))),
		policies:   opts.Policies,
		grid:       newGrid(side, cfg.Physics.Slippery),
		ecs:        w,
		food:       systems.NewFoodSystem(w, side, cfg.Biology.MealSize, fertility, rng),
		sound:      systems.NewSoundSystem(w, side, cfg.Physics.SoundTTL),
		deathCause: telemetry.CauseKilled,

		collector:     telemetry.NewCollector(registry.Names(), cfg.Telemetry.StatsWindow),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		lifetime:      telemetry.NewLifetimeTracker(),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		output:        opts.Output,
		ledger:        opts.Ledger,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	if u.policies == nil {
		u.policies = policy.InstinctFactory(cfg, rand.New(rand.NewSource(opts.Seed+2)))
	}
	return u, nil
}

// Tick returns the number of completed steps.
func (u *Universe) Tick() int32 { return u.tick }

// Creatures returns the living creatures in birth order.
func (u *Universe) Creatures() []*creature.Creature {
	return append([]*creature.Creature(nil), u.population...)
}

// Extinct reports whether no creature is left.
func (u *Universe) Extinct() bool { return len(u.population) == 0 }

// Races returns race names in channel order.
func (u *Universe) Races() []string { return u.races }

// NumRaces returns the number of races.
func (u *Universe) NumRaces() int { return len(u.races) }

// NumCreatures returns the number of living creatures, including one that
// is running its Dying hook.
func (u *Universe) NumCreatures() int { return len(u.population) }

// FoodCount returns the number of meals on the grid.
func (u *Universe) FoodCount() int { return u.food.Count() }

// PlaceFood puts one meal at coord.
func (u *Universe) PlaceFood(coord creature.Coord) error {
	resolved, ok := u.grid.resolve(coord.X, coord.Y)
	if !ok {
		return fmt.Errorf("%w: food outside the grid at %v", creature.ErrInvariantViolation, coord)
	}
	u.food.Place(resolved.X, resolved.Y, u.tick)
	return nil
}

// LastSurvivor returns the fitrah summary of the last creature to die in an
// extinct universe, or nil.
func (u *Universe) LastSurvivor() map[string]int { return u.survivor }

// Perf returns the step timing collector.
func (u *Universe) Perf() *telemetry.PerfCollector { return u.perf }

// Spawn creates a creature of the named race at coord with the given
// genotype (nil = the race's base genotype) and energy.
func (u *Universe) Spawn(raceName string, coord creature.Coord, g *genotype.Genotype, energy int) (*creature.Creature, error) {
	r, ok := u.registry.Get(raceName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown race %q", creature.ErrInvariantViolation, raceName)
	}
	if g == nil {
		var err error
		if g, err = r.BaseGenotype(); err != nil {
			return nil, fmt.Errorf("base genotype of %s: %w", r.Name, err)
		}
	}
	return u.spawn(r, g, coord, energy, nil, nil)
}

func (u *Universe) spawn(r *race.Race, g *genotype.Genotype, coord creature.Coord, energy int, a, b *creature.Creature) (*creature.Creature, error) {
	resolved, ok := u.grid.resolve(coord.X, coord.Y)
	if !ok {
		return nil, fmt.Errorf("%w: spawning outside the grid at %v", creature.ErrInvariantViolation, coord)
	}

	id := u.seq.Next()
	opts := []creature.Option{
		creature.WithEnergy(energy),
		creature.WithMateSelector(u.selector),
	}
	if a != nil && b != nil {
		opts = append(opts, creature.WithParents(a, b))
	}
	if dir := u.cfg.Output.ModelDir; dir != "" {
		opts = append(opts, creature.WithModelPath(filepath.Join(dir, fmt.Sprintf("%d%s.ckpt", id, r.Name))))
	}

	c, err := creature.New(u, id, g, r, u.policies(g, r), opts...)
	if err != nil {
		return nil, err
	}
	home := u.grid.at(resolved)
	if err := c.UpdateCell(home); err != nil {
		return nil, err
	}
	home.add(c)
	u.population = append(u.population, c)
	u.recordBirth(c, a, b)
	return c, nil
}

// Populate spawns num_fathers creatures on random cells, cycling through
// the races, and lays the first food.
func (u *Universe) Populate() error {
	races := u.registry.All()
	side := u.cfg.Physics.SpaceSize
	for i := range u.cfg.Physics.NumFathers {
		r := races[i%len(races)]
		g, err := r.BaseGenotype()
		if err != nil {
			return fmt.Errorf("base genotype of %s: %w", r.Name, err)
		}
		coord := creature.Coord{X: u.rng.Intn(side), Y: u.rng.Intn(side)}
		if _, err := u.spawn(r, g, coord, u.cfg.Biology.InitialEnergy, nil, nil); err != nil {
			return err
		}
	}
	u.topUpFood()
	return nil
}

// Reset removes every creature, meal and sound and restarts the clock.
// Creatures are dropped without running their Dying hook.
func (u *Universe) Reset() {
	u.population = u.population[:0]
	u.grid.clear()
	u.ecs = ecs.NewWorld()
	side := u.cfg.Physics.SpaceSize
	fertility := systems.NewFertilityMap(side, u.cfg.Physics.FertilityScale, u.rng.Int63())
	u.food = systems.NewFoodSystem(u.ecs, side, u.cfg.Biology.MealSize, fertility, u.rng)
	u.sound = systems.NewSoundSystem(u.ecs, side, u.cfg.Physics.SoundTTL)
	u.seq.Reset()
	u.tick = 0
	u.survivor = nil
	u.collector = telemetry.NewCollector(u.races, u.cfg.Telemetry.StatsWindow)
	u.bookmarks = telemetry.NewBookmarkDetector(10)
	u.lifetime = telemetry.NewLifetimeTracker()
}
