package creature

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/genotype"
	"github.com/pthm-cable/fitrah/memory"
	"github.com/pthm-cable/fitrah/perception"
	"github.com/pthm-cable/fitrah/race"
)

type testCell Coord

func (c testCell) Coord() Coord { return Coord(c) }

// fakeWorld records calls and kills the way a real world must: Dying first,
// then clear the cell.
type fakeWorld struct {
	races     []string
	creatures int
	calls     []string
	killed    []*Creature
	summaries []map[string]int
}

func (w *fakeWorld) Surroundings(coord Coord, radius int) perception.Tensor {
	side := perception.WindowSide(radius)
	n := perception.SurroundingChannels(len(w.races))
	t := perception.New(n, side)
	for ch := range n {
		t.Set(ch, radius, radius, float64(ch))
	}
	return t
}

func (w *fakeWorld) CellState(Coord) []float64 { return nil }

func (w *fakeWorld) Feed(c *Creature) error {
	w.calls = append(w.calls, "feed")
	return c.AddEnergy(6)
}

func (w *fakeWorld) Move(c *Creature, dir int) error {
	if dir < 0 {
		w.calls = append(w.calls, "left")
	} else {
		w.calls = append(w.calls, "right")
	}
	return c.ReduceEnergy(1)
}

func (w *fakeWorld) Mate(c *Creature) error {
	w.calls = append(w.calls, "mate")
	return nil
}

func (w *fakeWorld) Fight(c *Creature) error {
	w.calls = append(w.calls, "fight")
	return nil
}

func (w *fakeWorld) Kill(c *Creature) error {
	if !c.Alive() {
		return nil
	}
	summary, err := c.Dying()
	if err != nil {
		return err
	}
	w.summaries = append(w.summaries, summary)
	w.creatures--
	w.killed = append(w.killed, c)
	return c.UpdateCell(nil)
}

func (w *fakeWorld) Races() []string  { return w.races }
func (w *fakeWorld) NumRaces() int    { return len(w.races) }
func (w *fakeWorld) NumCreatures() int { return w.creatures }

// scriptPolicy replays a fixed action sequence.
type scriptPolicy struct {
	actions []int
	next    int
	trained [][]memory.Experience
	saved   []string
}

func (p *scriptPolicy) Decide(perception.Tensor) int {
	a := p.actions[p.next%len(p.actions)]
	p.next++
	return a
}

func (p *scriptPolicy) Train(batch []memory.Experience) error {
	p.trained = append(p.trained, batch)
	return nil
}

func (p *scriptPolicy) Save(path string) error {
	p.saved = append(p.saved, path)
	return nil
}

func testRegistry(t *testing.T) *race.Registry {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	reg, err := race.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func newTestCreature(t *testing.T, w *fakeWorld, id uint32, raceName string, p Policy, opts ...Option) *Creature {
	t.Helper()
	r, ok := testRegistry(t).Get(raceName)
	if !ok {
		t.Fatalf("race %q not registered", raceName)
	}
	g, err := r.BaseGenotype()
	if err != nil {
		t.Fatalf("BaseGenotype: %v", err)
	}
	c, err := New(w, id, g, r, p, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{races: []string{"human", "zombie"}, creatures: 1}
}

func TestNewNamesCreature(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 7, "zombie", &scriptPolicy{actions: []int{0}})

	if c.Name() != "7zombie" {
		t.Errorf("Name() = %q, want 7zombie", c.Name())
	}
	if c.Energy() != DefaultInitialEnergy {
		t.Errorf("Energy() = %d, want %d", c.Energy(), DefaultInitialEnergy)
	}
	if c.Lifecycle() != Unborn || c.Alive() {
		t.Errorf("new creature should be unborn and not alive, got %s", c.Lifecycle())
	}
	if _, _, ok := c.Parents(); ok {
		t.Error("first-generation creature should have no parents")
	}
}

func TestNewRejectsMismatchedGenotype(t *testing.T) {
	w := newFakeWorld()
	r, _ := testRegistry(t).Get("human")
	g := genotype.MustNew(genotype.Params{
		MemorySize: 4, LearningRate: 0.1, StructureParam: 1, LearnFrequency: 1,
		LifeExpectancy: 10, RewardDiscount: 0.5, Fitrah: []float64{1, 1},
	})
	_, err := New(w, 1, g, r, &scriptPolicy{actions: []int{0}})
	if !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("New with 2-action genotype for 5-action race: err = %v, want ErrInvariantViolation", err)
	}
}

func TestAliveIffCell(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{0}})

	if _, err := c.Coord(); !errors.Is(err, ErrDeadEntity) {
		t.Errorf("Coord() before placement: err = %v, want ErrDeadEntity", err)
	}
	if err := c.UpdateCell(testCell{X: 3}); err != nil {
		t.Fatalf("UpdateCell: %v", err)
	}
	if !c.Alive() {
		t.Fatal("placed creature should be alive")
	}
	if coord, _ := c.Coord(); coord.X != 3 {
		t.Errorf("Coord().X = %d, want 3", coord.X)
	}

	if err := c.UpdateCell(nil); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("clearing the cell of an alive creature: err = %v, want ErrInvariantViolation", err)
	}

	if err := w.Kill(c); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if c.Alive() || c.Cell() != nil || c.Lifecycle() != Dead {
		t.Errorf("killed creature: alive=%v cell=%v state=%s", c.Alive(), c.Cell(), c.Lifecycle())
	}
	if err := c.UpdateCell(testCell{}); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("placing a dead creature: err = %v, want ErrInvariantViolation", err)
	}
	if err := c.UpdateCell(nil); err != nil {
		t.Errorf("clearing an already dead creature should be a no-op, got %v", err)
	}
}

func TestReduceEnergy(t *testing.T) {
	tests := []struct {
		name      string
		energy    int
		amount    int
		wantAlive bool
		want      int
		wantErr   error
	}{
		{"partial", 10, 3, true, 7, nil},
		{"exact leaves zero", 5, 5, true, 0, nil},
		{"insufficient kills", 4, 5, false, 4, nil},
		{"zero amount", 10, 0, true, 10, ErrInvariantViolation},
		{"negative amount", 10, -2, true, 10, ErrInvariantViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			w.creatures = 2
			c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{0}}, WithEnergy(tt.energy))
			if err := c.UpdateCell(testCell{}); err != nil {
				t.Fatal(err)
			}

			err := c.ReduceEnergy(tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReduceEnergy(%d) err = %v, want %v", tt.amount, err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ReduceEnergy(%d) unexpected error: %v", tt.amount, err)
			}
			if c.Alive() != tt.wantAlive {
				t.Errorf("Alive() = %v, want %v", c.Alive(), tt.wantAlive)
			}
			if c.Energy() != tt.want {
				t.Errorf("Energy() = %d, want %d", c.Energy(), tt.want)
			}
			if c.Energy() < 0 {
				t.Errorf("energy went negative: %d", c.Energy())
			}
		})
	}
}

func TestReduceEnergyOnDeadCreature(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{0}})
	if err := c.ReduceEnergy(1); !errors.Is(err, ErrDeadEntity) {
		t.Errorf("ReduceEnergy on unborn creature: err = %v, want ErrDeadEntity", err)
	}
}

func TestAddEnergyRejectsNegative(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{0}}, WithEnergy(10))
	if err := c.AddEnergy(-1); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("AddEnergy(-1) err = %v, want ErrInvariantViolation", err)
	}
	if err := c.AddEnergy(6); err != nil || c.Energy() != 16 {
		t.Errorf("AddEnergy(6): err=%v energy=%d, want nil 16", err, c.Energy())
	}
}

func TestActDispatch(t *testing.T) {
	w := newFakeWorld()
	// human actions: left, right, eat, mate, fight
	p := &scriptPolicy{actions: []int{0, 1, 2, 3, 4}}
	c := newTestCreature(t, w, 1, "human", p, WithEnergy(50))
	if err := c.UpdateCell(testCell{}); err != nil {
		t.Fatal(err)
	}

	for range 5 {
		if err := c.Act(); err != nil {
			t.Fatalf("Act: %v", err)
		}
	}

	want := []string{"left", "right", "feed", "mate", "fight"}
	if len(w.calls) != len(want) {
		t.Fatalf("world calls = %v, want %v", w.calls, want)
	}
	for i := range want {
		if w.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, w.calls[i], want[i])
		}
	}
	if c.Memory().Len() != 5 {
		t.Errorf("memory holds %d experiences, want 5", c.Memory().Len())
	}
	last, _ := c.Memory().Latest()
	if last.Action != 4 || !last.Alive {
		t.Errorf("latest experience = action %d alive %v, want 4 true", last.Action, last.Alive)
	}
	// 50 - 1 (left) - 1 (right) + 6 (eat)
	if c.Energy() != 54 {
		t.Errorf("Energy() = %d, want 54", c.Energy())
	}
}

func TestActRejectsInvalidAction(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{5}})
	if err := c.UpdateCell(testCell{}); err != nil {
		t.Fatal(err)
	}

	err := c.Act()
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("Act with out-of-range decision: err = %v, want ErrInvalidAction", err)
	}
	var ae *ActionError
	if !errors.As(err, &ae) || ae.Index != 5 || ae.NumActions != 5 {
		t.Errorf("ActionError = %+v, want index 5 of 5", ae)
	}
	if len(w.calls) != 0 {
		t.Errorf("world should not be touched, got calls %v", w.calls)
	}
}

func TestActOnDeadCreature(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{0}})
	if err := c.Act(); !errors.Is(err, ErrDeadEntity) {
		t.Errorf("Act on unborn creature: err = %v, want ErrDeadEntity", err)
	}
}

func TestActRecordsDeathByMove(t *testing.T) {
	w := newFakeWorld()
	w.creatures = 3
	p := &scriptPolicy{actions: []int{0}}
	c := newTestCreature(t, w, 1, "human", p, WithEnergy(0))
	if err := c.UpdateCell(testCell{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Act(); err != nil {
		t.Fatalf("Act: %v", err)
	}
	if c.Alive() {
		t.Fatal("moving with zero energy should kill")
	}
	if c.Memory().Len() != 1 {
		t.Errorf("memory holds %d experiences, want only the fatal one", c.Memory().Len())
	}
	last, ok := c.Memory().Latest()
	if !ok || last.Alive || last.Action != 0 {
		t.Errorf("latest experience should record the fatal move, got action %d alive %v ok=%v", last.Action, last.Alive, ok)
	}

	// The final training pass already sees the death.
	if len(p.trained) != 1 {
		t.Fatalf("trained %d times, want 1", len(p.trained))
	}
	batch := p.trained[0]
	if len(batch) != 1 || batch[0].Alive {
		t.Errorf("final batch = %+v, want one dead experience", batch)
	}
}

func TestDyingBetweenActions(t *testing.T) {
	tests := []struct {
		name     string
		acts     int
		wantLen  int
		wantLast int
	}{
		{"never acted", 0, 0, -1},
		{"blames latest decision", 2, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			w.creatures = 2
			p := &scriptPolicy{actions: []int{2, 3}}
			c := newTestCreature(t, w, 1, "human", p)
			if err := c.UpdateCell(testCell{}); err != nil {
				t.Fatal(err)
			}
			for range tt.acts {
				if err := c.Act(); err != nil {
					t.Fatal(err)
				}
			}

			if err := w.Kill(c); err != nil {
				t.Fatalf("Kill: %v", err)
			}
			if len(p.trained) != 1 {
				t.Fatalf("trained %d times, want 1", len(p.trained))
			}
			batch := p.trained[0]
			if len(batch) != tt.wantLen {
				t.Fatalf("final batch has %d experiences, want %d", len(batch), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			last := batch[len(batch)-1]
			if last.Alive || last.Action != tt.wantLast || last.Energy != c.Energy() {
				t.Errorf("terminal experience = action %d alive %v energy %d", last.Action, last.Alive, last.Energy)
			}
		})
	}
}

func TestStateSwapsOwnRaceIntoSelfChannel(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "zombie", &scriptPolicy{actions: []int{0}}, WithEnergy(33), WithAge(4))
	if err := c.UpdateCell(testCell{}); err != nil {
		t.Fatal(err)
	}

	state, err := c.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Shape() != c.ObservationShape() {
		t.Fatalf("Shape() = %v, want %v", state.Shape(), c.ObservationShape())
	}
	// fakeWorld marks the centre of channel ch with ch: [food, human, zombie, sound].
	// zombie has race index 1, so channels 1 and 2 swap.
	want := []float64{0, 2, 1, 3, 33, 4}
	for ch, v := range want {
		if got := state.Center(ch); got != v {
			t.Errorf("channel %d centre = %v, want %v", ch, got, v)
		}
	}
}

func TestStateSwapsThirdRaceIntoSelfChannel(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	elf := cfg.Races[0]
	elf.Name, elf.Enemy = "elf", ""
	cfg.Races = append(cfg.Races, elf)
	reg, err := race.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	r, _ := reg.Get("elf")
	g, err := r.BaseGenotype()
	if err != nil {
		t.Fatal(err)
	}

	w := newFakeWorld()
	w.races = []string{"human", "zombie", "elf"}
	c, err := New(w, 1, g, r, &scriptPolicy{actions: []int{0}}, WithEnergy(21), WithAge(8))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateCell(testCell{}); err != nil {
		t.Fatal(err)
	}

	state, err := c.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Shape() != c.ObservationShape() {
		t.Fatalf("Shape() = %v, want %v", state.Shape(), c.ObservationShape())
	}
	// World order is [food, human, zombie, elf, sound]. elf has race index 2,
	// so it takes the self channel and human moves to the vacated slot.
	want := []float64{0, 3, 2, 1, 4, 21, 8}
	for ch, v := range want {
		if got := state.Center(ch); got != v {
			t.Errorf("channel %d centre = %v, want %v", ch, got, v)
		}
	}
}

func TestDeadStateShape(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{0}})
	dead := c.DeadState()
	if dead.Shape() != c.ObservationShape() {
		t.Errorf("DeadState shape = %v, want %v", dead.Shape(), c.ObservationShape())
	}
	for _, v := range dead.Flatten() {
		if v != -1 {
			t.Fatalf("DeadState value %v, want -1", v)
		}
	}
}

func TestDying(t *testing.T) {
	tests := []struct {
		name        string
		population  int
		modelPath   string
		wantSummary bool
		wantSaves   int
	}{
		{"not last", 3, "model.json.zst", false, 0},
		{"last with model path", 1, "model.json.zst", true, 1},
		{"last without model path", 1, "", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			w.creatures = tt.population
			p := &scriptPolicy{actions: []int{2}}
			c := newTestCreature(t, w, 1, "human", p, WithModelPath(tt.modelPath))
			if err := c.UpdateCell(testCell{}); err != nil {
				t.Fatal(err)
			}
			if err := c.Act(); err != nil {
				t.Fatal(err)
			}

			if err := w.Kill(c); err != nil {
				t.Fatalf("Kill: %v", err)
			}
			if len(p.trained) != 1 || len(p.trained[0]) != 2 {
				t.Fatalf("Dying should train once on the experience and the death, got %d batches", len(p.trained))
			}
			if p.trained[0][1].Alive {
				t.Error("final batch does not end with the death")
			}
			if len(p.saved) != tt.wantSaves {
				t.Errorf("saves = %d, want %d", len(p.saved), tt.wantSaves)
			}
			gotSummary := w.summaries[0] != nil
			if gotSummary != tt.wantSummary {
				t.Errorf("summary returned = %v, want %v", gotSummary, tt.wantSummary)
			}
			if tt.wantSummary && w.summaries[0]["eat"] != 30 {
				t.Errorf("summary[eat] = %d, want 30", w.summaries[0]["eat"])
			}

			// Killing twice is a no-op and does not re-enter Dying.
			if err := w.Kill(c); err != nil {
				t.Errorf("second Kill: %v", err)
			}
			if len(p.trained) != 1 {
				t.Errorf("second Kill retrained the policy")
			}
		})
	}
}

func TestDyingRequiresAlive(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "human", &scriptPolicy{actions: []int{0}})
	if _, err := c.Dying(); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Dying on unborn creature: err = %v, want ErrInvariantViolation", err)
	}
}

func TestFitrahSummaryIdempotent(t *testing.T) {
	w := newFakeWorld()
	c := newTestCreature(t, w, 1, "zombie", &scriptPolicy{actions: []int{0}})
	first := c.FitrahSummary()
	second := c.FitrahSummary()

	want := map[string]int{"left": 15, "right": 15, "eat": 20, "mate": 10, "fight": 40}
	for k, v := range want {
		if first[k] != v || second[k] != v {
			t.Errorf("summary[%s] = %d then %d, want %d", k, first[k], second[k], v)
		}
	}
	if len(first) != len(want) {
		t.Errorf("summary has %d keys, want %d", len(first), len(want))
	}
}

func TestEqual(t *testing.T) {
	w := newFakeWorld()
	p := &scriptPolicy{actions: []int{0}}
	a := newTestCreature(t, w, 1, "human", p)
	b := newTestCreature(t, w, 2, "human", p)
	a2 := newTestCreature(t, w, 1, "zombie", p)

	if eq, err := a.Equal(b); err != nil || eq {
		t.Errorf("a.Equal(b) = %v, %v; want false, nil", eq, err)
	}
	if eq, err := a.Equal(a2); err != nil || !eq {
		t.Errorf("same id: Equal = %v, %v; want true, nil", eq, err)
	}
	if _, err := a.Equal("1human"); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Equal(string) err = %v, want ErrInvariantViolation", err)
	}
}

func TestMemoryBoundedByGenotype(t *testing.T) {
	w := newFakeWorld()
	r, _ := testRegistry(t).Get("human")
	g := genotype.MustNew(genotype.Params{
		MemorySize: 3, LearningRate: 0.1, StructureParam: 1, LearnFrequency: 1,
		LifeExpectancy: 10, RewardDiscount: 0.5, Fitrah: r.Fitrah,
	})
	c, err := New(w, 1, g, r, &scriptPolicy{actions: []int{2}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateCell(testCell{}); err != nil {
		t.Fatal(err)
	}
	for range 5 {
		if err := c.Act(); err != nil {
			t.Fatal(err)
		}
	}
	if c.Memory().Len() != 3 {
		t.Fatalf("memory holds %d, want capacity 3", c.Memory().Len())
	}
	// Energy after each eat: 106, 112, 118, 124, 130; the oldest two are gone.
	for i, want := range []int{118, 124, 130} {
		if got := c.Memory().At(i).Energy; got != want {
			t.Errorf("memory[%d].Energy = %d, want %d", i, got, want)
		}
	}
}

func TestSelectSpouse(t *testing.T) {
	w := newFakeWorld()
	p := &scriptPolicy{actions: []int{0}}
	sel := NewMateSelector(rand.New(rand.NewSource(42)))
	c := newTestCreature(t, w, 1, "human", p, WithMateSelector(sel))

	if got := c.SelectSpouse(nil); got != nil {
		t.Errorf("SelectSpouse(nil) = %v, want nil", got)
	}

	only := newTestCreature(t, w, 2, "human", p)
	if got := c.SelectSpouse([]*Creature{only}); got != only {
		t.Errorf("single candidate: got %v, want %v", got, only)
	}

	if _, ok := c.SexualAttraction(nil); ok {
		t.Error("SexualAttraction(nil) should report ok=false")
	}
}
