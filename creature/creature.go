// Package creature implements the agent side of the simulation: perception,
// the decide/act dispatch, the energy and aging economy, the learning
// trigger and mate selection. Every effect on the grid goes through World.
package creature

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"

	"github.com/pthm-cable/fitrah/genotype"
	"github.com/pthm-cable/fitrah/memory"
	"github.com/pthm-cable/fitrah/perception"
	"github.com/pthm-cable/fitrah/race"
)

// DefaultInitialEnergy is used when no WithEnergy option is given.
const DefaultInitialEnergy = 100

// Creature is one agent. It is driven by a single goroutine; none of its
// methods are safe for concurrent use.
type Creature struct {
	id       uint32
	name     string
	genotype *genotype.Genotype
	race     *race.Race
	age      int
	energy   int
	state    State
	cell     Cell
	parents  [2]*Creature
	memory   *memory.Buffer
	policy   Policy
	world    World
	selector *MateSelector

	// pending is the decision being dispatched by Act, so a death inside
	// the world call can still be remembered as its outcome.
	pending *memory.Experience

	modelPath string
}

// Option configures a creature at construction.
type Option func(*Creature)

// WithAge sets the starting age.
func WithAge(age int) Option { return func(c *Creature) { c.age = age } }

// WithEnergy sets the starting energy.
func WithEnergy(energy int) Option { return func(c *Creature) { c.energy = energy } }

// WithParents records both parents. Parents are not owned.
func WithParents(a, b *Creature) Option {
	return func(c *Creature) { c.parents = [2]*Creature{a, b} }
}

// WithMateSelector shares a selector (and its random source) between creatures.
func WithMateSelector(s *MateSelector) Option { return func(c *Creature) { c.selector = s } }

// WithModelPath sets where the policy is saved if this creature is the last
// one alive when it dies.
func WithModelPath(path string) Option { return func(c *Creature) { c.modelPath = path } }

// New creates an unborn creature. The world makes it alive by placing it
// with UpdateCell.
func New(world World, id uint32, g *genotype.Genotype, r *race.Race, p Policy, opts ...Option) (*Creature, error) {
	if world == nil || g == nil || r == nil || p == nil {
		return nil, fmt.Errorf("%w: creature %d needs a world, genotype, race and policy", ErrInvariantViolation, id)
	}
	if g.NumActions() != r.NumActions() {
		return nil, fmt.Errorf("%w: genotype has %d fitrah weights, race %s has %d actions",
			ErrInvariantViolation, g.NumActions(), r.Name, r.NumActions())
	}

	c := &Creature{
		id:       id,
		name:     fmt.Sprintf("%d%s", id, r.Name),
		genotype: g,
		race:     r,
		energy:   DefaultInitialEnergy,
		state:    Unborn,
		memory:   memory.NewBuffer(g.MemorySize()),
		policy:   p,
		world:    world,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.energy < 0 || c.age < 0 {
		return nil, fmt.Errorf("%w: creature %s starts with energy %d, age %d", ErrInvariantViolation, c.name, c.energy, c.age)
	}
	if c.selector == nil {
		c.selector = NewMateSelector(rand.New(rand.NewSource(int64(id))))
	}
	return c, nil
}

func (c *Creature) ID() uint32                   { return c.id }
func (c *Creature) Name() string                 { return c.name }
func (c *Creature) Genotype() *genotype.Genotype { return c.genotype }
func (c *Creature) Race() *race.Race             { return c.race }
func (c *Creature) Age() int                     { return c.age }
func (c *Creature) Energy() int                  { return c.energy }
func (c *Creature) Lifecycle() State             { return c.state }
func (c *Creature) Policy() Policy               { return c.policy }
func (c *Creature) Memory() *memory.Buffer       { return c.memory }
func (c *Creature) Cell() Cell                   { return c.cell }
func (c *Creature) VisionRange() int             { return c.race.VisionRange }

// Parents returns both parents, or ok=false for a first-generation creature.
func (c *Creature) Parents() (a, b *Creature, ok bool) {
	if c.parents[0] == nil {
		return nil, nil, false
	}
	return c.parents[0], c.parents[1], true
}

// Alive reports whether the creature stands in a cell.
func (c *Creature) Alive() bool { return c.state == Alive && c.cell != nil }

func (c *Creature) String() string { return c.name }

// Equal compares creatures by id. Comparing with anything that is not a
// creature is a contract violation.
func (c *Creature) Equal(other any) (bool, error) {
	o, ok := other.(*Creature)
	if !ok || o == nil {
		return false, fmt.Errorf("%w: comparing creature %s with %T", ErrInvariantViolation, c.name, other)
	}
	return c.id == o.id, nil
}

// UpdateCell moves the creature to cell. Placing an unborn creature makes it
// alive; a nil cell finishes a dying creature.
func (c *Creature) UpdateCell(cell Cell) error {
	if cell == nil {
		switch c.state {
		case Dying:
			c.cell = nil
			c.state = Dead
			return nil
		case Dead:
			return nil
		default:
			return fmt.Errorf("%w: clearing the cell of %s creature %s", ErrInvariantViolation, c.state, c.name)
		}
	}
	switch c.state {
	case Unborn, Alive:
		c.cell = cell
		c.state = Alive
		return nil
	default:
		return fmt.Errorf("%w: placing %s creature %s", ErrInvariantViolation, c.state, c.name)
	}
}

// Coord returns the coordinate of the creature's cell.
func (c *Creature) Coord() (Coord, error) {
	if c.cell == nil {
		return Coord{}, fmt.Errorf("%w: coordinate of %s creature %s", ErrDeadEntity, c.state, c.name)
	}
	return c.cell.Coord(), nil
}

// ReduceEnergy spends amount. When energy < amount the creature is killed
// through the world instead of going negative; energy == amount is
// sufficient and leaves exactly zero.
func (c *Creature) ReduceEnergy(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: reduce energy of %s by %d", ErrInvariantViolation, c.name, amount)
	}
	if !c.Alive() {
		return fmt.Errorf("%w: reduce energy of %s creature %s", ErrDeadEntity, c.state, c.name)
	}
	if c.energy < amount {
		return c.world.Kill(c)
	}
	c.energy -= amount
	return nil
}

// AddEnergy adds amount to the creature's energy.
func (c *Creature) AddEnergy(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: add negative energy %d to %s", ErrInvariantViolation, amount, c.name)
	}
	if c.state == Dead {
		return fmt.Errorf("%w: feeding dead creature %s", ErrDeadEntity, c.name)
	}
	c.energy += amount
	return nil
}

// IncreaseAge advances the creature by one tick.
func (c *Creature) IncreaseAge() error {
	if !c.Alive() {
		return fmt.Errorf("%w: aging %s creature %s", ErrDeadEntity, c.state, c.name)
	}
	c.age++
	return nil
}

// InternalState broadcasts energy and age over the perception window.
func (c *Creature) InternalState() perception.Tensor {
	return perception.InternalState(c.energy, c.age, perception.WindowSide(c.race.VisionRange))
}

// ObservationShape is the shape of every tensor State returns.
func (c *Creature) ObservationShape() [3]int {
	return perception.ObservationShape(c.world.NumRaces(), c.race.VisionRange)
}

// DeadState is the observation used in place of State once the creature
// is gone: every cell is -1.
func (c *Creature) DeadState() perception.Tensor {
	shape := c.ObservationShape()
	return perception.Filled(shape[0], shape[1], -1)
}

// State builds the observation tensor: the world's surroundings, the
// internal channels, and the observer's race swapped into the self channel.
func (c *Creature) State() (perception.Tensor, error) {
	coord, err := c.Coord()
	if err != nil {
		return perception.Tensor{}, err
	}
	raceIndex := slices.Index(c.world.Races(), c.race.Name)
	if raceIndex < 0 {
		return perception.Tensor{}, fmt.Errorf("%w: race %s is not registered in the world", ErrInvariantViolation, c.race.Name)
	}
	surroundings := c.world.Surroundings(coord, c.race.VisionRange)
	state, err := perception.Compose(surroundings, c.InternalState(), raceIndex)
	if err != nil {
		return perception.Tensor{}, fmt.Errorf("perceiving %s: %w", c.name, err)
	}
	return state, nil
}

// Act runs one tick of behaviour: perceive, decide, dispatch through the
// world and remember the outcome.
func (c *Creature) Act() error {
	if !c.Alive() {
		return fmt.Errorf("%w: %s creature %s cannot act", ErrDeadEntity, c.state, c.name)
	}
	state, err := c.State()
	if err != nil {
		return err
	}

	index := c.policy.Decide(state)
	action, ok := c.race.ActionAt(index)
	if !ok {
		return &ActionError{Creature: c.name, Index: index, NumActions: c.race.NumActions()}
	}

	c.pending = &memory.Experience{State: state, Action: index}
	defer func() { c.pending = nil }()

	switch action {
	case race.ActionLeft:
		err = c.world.Move(c, -1)
	case race.ActionRight:
		err = c.world.Move(c, 1)
	case race.ActionEat:
		err = c.world.Feed(c)
	case race.ActionMate:
		err = c.world.Mate(c)
	case race.ActionFight:
		err = c.world.Fight(c)
	default:
		return &ActionError{Creature: c.name, Index: index, NumActions: c.race.NumActions()}
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.name, action, err)
	}
	if !c.Alive() {
		// Dying already remembered this step.
		return nil
	}

	c.AddExperience(memory.Experience{
		State:  state,
		Action: index,
		Energy: c.energy,
		Age:    c.age,
		Alive:  true,
	})
	return nil
}

// AddExperience remembers e, forgetting the oldest experience when full.
func (c *Creature) AddExperience(e memory.Experience) {
	c.memory.Add(e)
}

// Smarten trains the policy on everything in memory.
func (c *Creature) Smarten() error {
	if err := c.policy.Train(c.memory.Slice()); err != nil {
		return fmt.Errorf("training %s: %w", c.name, err)
	}
	return nil
}

// Dying is the last will, called once by the world before it removes the
// creature. It remembers the death and always trains one final time. If this is the last creature
// alive the policy is saved and the fitrah summary returned; otherwise the
// summary is nil.
func (c *Creature) Dying() (map[string]int, error) {
	if c.state != Alive {
		return nil, fmt.Errorf("%w: dying called on %s creature %s", ErrInvariantViolation, c.state, c.name)
	}
	c.state = Dying
	c.rememberDeath()

	if err := c.Smarten(); err != nil {
		return nil, err
	}
	if c.world.NumCreatures() != 1 {
		return nil, nil
	}

	if c.modelPath != "" {
		if err := c.policy.Save(c.modelPath); err != nil {
			return nil, fmt.Errorf("saving policy of last survivor %s: %w", c.name, err)
		}
	}
	summary := c.FitrahSummary()
	slog.Info("last_survivor",
		"creature", c.name,
		"race", c.race.Name,
		"age", c.age,
		"model_path", c.modelPath,
		"fitrah", summary,
	)
	return summary, nil
}

// rememberDeath adds the terminal experience. The death is charged to the
// decision in flight, or to the latest one when the creature died between
// its own actions (old age, another creature's fight). A creature that never
// acted has nothing to learn from.
func (c *Creature) rememberDeath() {
	var e memory.Experience
	switch last, ok := c.memory.Latest(); {
	case c.pending != nil:
		e = *c.pending
	case ok:
		e = last
	default:
		return
	}
	e.Energy, e.Age, e.Alive = c.energy, c.age, false
	c.memory.Add(e)
}

// FitrahSummary maps each action name to its innate prior in percent.
func (c *Creature) FitrahSummary() map[string]int {
	fitrah := c.genotype.Fitrah()
	out := make(map[string]int, len(fitrah))
	for i, name := range c.race.ActionNames() {
		out[name] = int(math.Round(fitrah[i] * 100))
	}
	return out
}

// SexualAttraction scores other as a mate; ok is false when other is nil.
func (c *Creature) SexualAttraction(other *Creature) (score float64, ok bool) {
	if other == nil {
		return 0, false
	}
	return Attraction(c.genotype, other.genotype), true
}

// SelectSpouse picks one of candidates, or nil if there are none.
func (c *Creature) SelectSpouse(candidates []*Creature) *Creature {
	return c.selector.Select(c, candidates)
}
