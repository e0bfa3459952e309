package policy

import (
	"math/rand"

	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/creature"
	"github.com/pthm-cable/fitrah/genotype"
	"github.com/pthm-cable/fitrah/memory"
	"github.com/pthm-cable/fitrah/perception"
	"github.com/pthm-cable/fitrah/race"
)

const scriptKind = "script"

var _ creature.Policy = (*Script)(nil)

// Script replays a fixed action list forever. It learns nothing but records
// the size of every batch it is trained on.
type Script struct {
	Actions []int
	Batches []int

	next int
}

// NewScript cycles through actions in order.
func NewScript(actions ...int) *Script {
	return &Script{Actions: append([]int(nil), actions...)}
}

func (s *Script) Decide(perception.Tensor) int {
	if len(s.Actions) == 0 {
		return 0
	}
	a := s.Actions[s.next%len(s.Actions)]
	s.next++
	return a
}

func (s *Script) Train(batch []memory.Experience) error {
	s.Batches = append(s.Batches, len(batch))
	return nil
}

func (s *Script) Save(path string) error {
	return writeCheckpoint(path, scriptKind, s.Actions)
}

// LoadScript restores a Script saved with Save.
func LoadScript(path string) (*Script, error) {
	var actions []int
	if err := readCheckpoint(path, scriptKind, &actions); err != nil {
		return nil, err
	}
	return NewScript(actions...), nil
}

// Factory builds the policy of a newborn creature.
type Factory func(g *genotype.Genotype, r *race.Race) creature.Policy

// InstinctFactory returns a Factory producing Instinct policies that share
// rng.
func InstinctFactory(cfg *config.Config, rng *rand.Rand) Factory {
	return func(g *genotype.Genotype, _ *race.Race) creature.Policy {
		return NewInstinct(g, cfg, rng)
	}
}

// ScriptFactory returns a Factory giving every creature its own copy of
// the same script.
func ScriptFactory(actions ...int) Factory {
	return func(*genotype.Genotype, *race.Race) creature.Policy {
		return NewScript(actions...)
	}
}
