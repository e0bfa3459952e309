package universe

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/fitrah/creature"
	"github.com/pthm-cable/fitrah/telemetry"
)

// Step runs one tick:
//  1. every creature alive at tick start acts once, in shuffled order
//  2. metabolism: work energy, aging and death of old age
//  3. creatures whose age is a multiple of their learn frequency train
//  4. food is topped up and sounds fade
//  5. telemetry windows are flushed
//
// Creatures born during the tick first act on the next one. A creature
// breaking its contract aborts the step with an error.
func (u *Universe) Step() error {
	u.tick++
	u.perf.StartTick()
	defer u.perf.EndTick()

	order := u.Creatures()
	u.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	u.perf.StartPhase(telemetry.PhaseAct)
	for _, c := range order {
		if !c.Alive() {
			continue
		}
		if err := c.Act(); err != nil {
			return fmt.Errorf("tick %d: %w", u.tick, err)
		}
	}

	u.perf.StartPhase(telemetry.PhaseMetabolism)
	if err := u.metabolism(order); err != nil {
		return fmt.Errorf("tick %d: %w", u.tick, err)
	}

	u.perf.StartPhase(telemetry.PhaseLearning)
	for _, c := range order {
		if !c.Alive() {
			continue
		}
		if c.Age()%c.Genotype().LearnFrequency() == 0 {
			if err := c.Smarten(); err != nil {
				return fmt.Errorf("tick %d: %w", u.tick, err)
			}
		}
	}

	u.perf.StartPhase(telemetry.PhaseFood)
	u.topUpFood()

	u.perf.StartPhase(telemetry.PhaseSound)
	u.sound.Decay()

	u.perf.StartPhase(telemetry.PhaseTelemetry)
	u.flushTelemetry()
	return nil
}

func (u *Universe) metabolism(order []*creature.Creature) error {
	for _, c := range order {
		if !c.Alive() {
			continue
		}
		if err := u.spend(c, u.cfg.Biology.WorkEnergy); err != nil {
			return err
		}
		if !c.Alive() {
			continue
		}
		if err := c.IncreaseAge(); err != nil {
			return err
		}
		if c.Age() >= c.Genotype().LifeExpectancy() {
			if err := u.kill(c, telemetry.CauseOldAge); err != nil {
				return err
			}
			continue
		}
		u.lifetime.UpdateEnergy(c.ID(), c.Energy())
	}
	return nil
}

// topUpFood keeps food_creature_ratio meals per living creature on the grid.
func (u *Universe) topUpFood() {
	target := int(math.Round(u.cfg.Physics.FoodCreatureRatio * float64(len(u.population))))
	u.food.TopUp(target, u.tick)
}

// Run steps until maxTicks (0 = eternity), the eternity limit or
// extinction. It returns the number of steps taken.
func (u *Universe) Run(maxTicks int) (int, error) {
	limit := u.cfg.Physics.Eternity
	if maxTicks > 0 && (limit <= 0 || maxTicks < limit) {
		limit = maxTicks
	}
	steps := 0
	for !u.Extinct() && (limit <= 0 || int(u.tick) < limit) {
		if err := u.Step(); err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}

// IsContractError reports whether err is a creature contract violation
// rather than an I/O failure.
func IsContractError(err error) bool {
	return errors.Is(err, creature.ErrDeadEntity) ||
		errors.Is(err, creature.ErrInvalidAction) ||
		errors.Is(err, creature.ErrInvariantViolation)
}
