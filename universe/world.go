package universe

import (
	"fmt"

	"github.com/pthm-cable/fitrah/chronicle"
	"github.com/pthm-cable/fitrah/components"
	"github.com/pthm-cable/fitrah/creature"
	"github.com/pthm-cable/fitrah/evolution"
	"github.com/pthm-cable/fitrah/perception"
	"github.com/pthm-cable/fitrah/telemetry"
)

// Sound volumes per source.
const (
	mateVolume  = 1.0
	fightVolume = 2.0
)

// Surroundings returns [food, race_0 … race_{R-1}, sound] over the window
// centred on coord. Off-grid cells read 0 unless the grid wraps.
func (u *Universe) Surroundings(coord creature.Coord, radius int) perception.Tensor {
	side := perception.WindowSide(radius)
	t := perception.New(perception.SurroundingChannels(len(u.races)), side)
	for row := range side {
		for col := range side {
			at, ok := u.grid.resolve(coord.X+col-radius, coord.Y+row-radius)
			if !ok {
				continue
			}
			for ch, v := range u.CellState(at) {
				if v != 0 {
					t.Set(ch, row, col, v)
				}
			}
		}
	}
	return t
}

// CellState returns the channel values of one cell: meal count, creature
// count per race, summed sound volume.
func (u *Universe) CellState(coord creature.Coord) []float64 {
	out := make([]float64, perception.SurroundingChannels(len(u.races)))
	at, ok := u.grid.resolve(coord.X, coord.Y)
	if !ok {
		return out
	}
	out[perception.FoodChannel] = float64(u.food.At(at.X, at.Y))
	for _, c := range u.grid.at(at).occupants {
		out[1+c.Race().Index()]++
	}
	out[len(out)-1] = u.sound.Volume(at.X, at.Y)
	return out
}

func (u *Universe) home(c *creature.Creature) (*cell, error) {
	if !c.Alive() {
		return nil, fmt.Errorf("%w: %s is not alive", creature.ErrDeadEntity, c.Name())
	}
	home, ok := c.Cell().(*cell)
	if !ok {
		return nil, fmt.Errorf("%w: %s stands in a cell of another world", creature.ErrInvariantViolation, c.Name())
	}
	return home, nil
}

// spend charges an energy cost. A creature that cannot pay starves.
func (u *Universe) spend(c *creature.Creature, amount int) error {
	if amount <= 0 {
		return nil
	}
	u.deathCause = telemetry.CauseStarvation
	defer func() { u.deathCause = telemetry.CauseKilled }()
	return c.ReduceEnergy(amount)
}

// Feed eats one meal from the creature's cell, if there is one.
func (u *Universe) Feed(c *creature.Creature) error {
	home, err := u.home(c)
	if err != nil {
		return err
	}
	energy, ok := u.food.Consume(home.coord.X, home.coord.Y)
	if !ok {
		return nil
	}
	if err := c.AddEnergy(energy); err != nil {
		return err
	}
	u.record(telemetry.NewMealEvent(u.tick, c.ID(), c.Race().Name, energy))
	return nil
}

// Move steps the creature one cell along X. A move off the edge of a
// bounded grid is refused and costs nothing.
func (u *Universe) Move(c *creature.Creature, direction int) error {
	if direction != -1 && direction != 1 {
		return fmt.Errorf("%w: move direction %d", creature.ErrInvariantViolation, direction)
	}
	home, err := u.home(c)
	if err != nil {
		return err
	}
	to, ok := u.grid.resolve(home.coord.X+direction, home.coord.Y)
	if !ok {
		return nil
	}
	if err := u.spend(c, u.cfg.Biology.MoveEnergy); err != nil {
		return err
	}
	if !c.Alive() {
		return nil
	}
	dest := u.grid.at(to)
	if err := c.UpdateCell(dest); err != nil {
		return err
	}
	home.remove(c)
	dest.add(c)
	return nil
}

func (u *Universe) canMate(c *creature.Creature) bool {
	return c.Alive() && c.Age() >= u.cfg.Biology.MaturityAge && c.Energy() >= u.cfg.Biology.MateEnergy
}

// Mate pairs the creature with a mature partner of its race in the same
// cell. Both parents pay mate_energy and the child is born in their cell.
func (u *Universe) Mate(c *creature.Creature) error {
	home, err := u.home(c)
	if err != nil {
		return err
	}
	if !u.canMate(c) {
		return nil
	}

	var candidates []*creature.Creature
	for _, o := range home.occupants {
		if o != c && o.Race() == c.Race() && u.canMate(o) {
			candidates = append(candidates, o)
		}
	}
	spouse := c.SelectSpouse(candidates)
	if spouse == nil {
		return nil
	}

	g, err := evolution.Offspring(c.Genotype(), spouse.Genotype(), u.rng, u.cfg.Mutation)
	if err != nil {
		return fmt.Errorf("breeding %s with %s: %w", c.Name(), spouse.Name(), err)
	}
	cost := u.cfg.Biology.MateEnergy
	if err := u.spend(c, cost); err != nil {
		return err
	}
	if err := u.spend(spouse, cost); err != nil {
		return err
	}

	if _, err := u.spawn(c.Race(), g, home.coord, 2*cost, c, spouse); err != nil {
		return fmt.Errorf("birth from %s and %s: %w", c.Name(), spouse.Name(), err)
	}
	u.record(telemetry.NewMateEvent(u.tick, c.ID(), spouse.ID(), c.Race().Name))
	u.sound.Emit(home.coord.X, home.coord.Y, components.SoundMate, mateVolume)
	return nil
}

// Fight attacks another creature in the same cell, preferring the race's
// enemy. The stronger creature takes the weaker one's energy and the weaker
// one dies; ties are decided by a coin flip.
func (u *Universe) Fight(c *creature.Creature) error {
	home, err := u.home(c)
	if err != nil {
		return err
	}

	var enemies, others []*creature.Creature
	for _, o := range home.occupants {
		if o == c || !o.Alive() {
			continue
		}
		if c.Race().IsEnemy(o.Race()) {
			enemies = append(enemies, o)
		} else {
			others = append(others, o)
		}
	}
	pool := enemies
	if len(pool) == 0 {
		pool = others
	}
	if len(pool) == 0 {
		return nil
	}
	opponent := pool[u.rng.Intn(len(pool))]

	if err := u.spend(c, u.cfg.Biology.FightEnergy); err != nil {
		return err
	}
	if !c.Alive() {
		return nil
	}

	winner, loser := c, opponent
	switch {
	case opponent.Energy() > c.Energy():
		winner, loser = opponent, c
	case opponent.Energy() == c.Energy() && u.rng.Intn(2) == 1:
		winner, loser = opponent, c
	}

	spoils := loser.Energy()
	if err := u.kill(loser, telemetry.CauseCombat); err != nil {
		return err
	}
	if err := winner.AddEnergy(spoils); err != nil {
		return err
	}
	u.record(telemetry.NewFightEvent(u.tick, winner.ID(), loser.ID(), winner.Race().Name, spoils))
	u.sound.Emit(home.coord.X, home.coord.Y, components.SoundFight, fightVolume)
	return nil
}

// Kill removes a living creature from the world. Killing a creature that
// is not alive is a no-op.
func (u *Universe) Kill(c *creature.Creature) error {
	return u.kill(c, u.deathCause)
}

func (u *Universe) kill(c *creature.Creature, cause telemetry.DeathCause) error {
	if !c.Alive() {
		return nil
	}
	home, err := u.home(c)
	if err != nil {
		return err
	}

	// Dying runs while c still counts, so the last survivor can tell.
	summary, dyingErr := c.Dying()

	home.remove(c)
	for i, p := range u.population {
		if p == c {
			u.population = append(u.population[:i], u.population[i+1:]...)
			break
		}
	}
	if err := c.UpdateCell(nil); err != nil {
		return err
	}
	u.recordDeath(c, cause)

	if summary != nil {
		u.survivor = summary
		if u.ledger != nil {
			u.ledger.RecordSurvivor(chronicle.Survivor{
				ID:     c.ID(),
				Name:   c.Name(),
				Race:   c.Race().Name,
				Tick:   int(u.tick),
				Fitrah: summary,
			})
		}
	}
	return dyingErr
}
