// Package race provides the data-driven race descriptor injected into every
// creature: its name, action set, enemy, innate fitrah and vision range.
package race

import (
	"fmt"

	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/genotype"
)

// Race describes the behavioural variation of one race. Values are shared by
// every creature of the race and are never mutated after the registry is built.
type Race struct {
	Name        string
	Enemy       string
	Actions     []Action
	Fitrah      []float64
	VisionRange int

	index int
	base  func() (*genotype.Genotype, error)
}

// Index is the position of the race in the registry (and in the world's
// race channel order).
func (r *Race) Index() int { return r.index }

// NumActions returns the size of the action set.
func (r *Race) NumActions() int { return len(r.Actions) }

// ActionAt maps a policy output index to an action.
func (r *Race) ActionAt(i int) (Action, bool) {
	if i < 0 || i >= len(r.Actions) {
		return 0, false
	}
	return r.Actions[i], true
}

// ActionNames returns the action names in index order.
func (r *Race) ActionNames() []string {
	names := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		names[i] = a.String()
	}
	return names
}

// BaseGenotype builds a first-generation genotype for the race.
func (r *Race) BaseGenotype() (*genotype.Genotype, error) {
	return r.base()
}

// IsEnemy reports whether other is this race's enemy.
func (r *Race) IsEnemy(other *Race) bool {
	return other != nil && r.Enemy != "" && r.Enemy == other.Name
}

// Registry holds the races of a simulation in registration order.
type Registry struct {
	races  []*Race
	byName map[string]*Race
}

// NewRegistry builds descriptors for every configured race.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	reg := &Registry{byName: make(map[string]*Race, len(cfg.Races))}
	for i := range cfg.Races {
		rc := cfg.Races[i]
		actions := make([]Action, len(rc.Actions))
		for j, name := range rc.Actions {
			a, err := ParseAction(name)
			if err != nil {
				return nil, fmt.Errorf("race %q: %w", rc.Name, err)
			}
			actions[j] = a
		}
		if len(rc.Fitrah) != len(actions) {
			return nil, fmt.Errorf("race %q: %d actions but %d fitrah weights", rc.Name, len(actions), len(rc.Fitrah))
		}
		fitrah := append([]float64(nil), rc.Fitrah...)
		r := &Race{
			Name:        rc.Name,
			Enemy:       rc.Enemy,
			Actions:     actions,
			Fitrah:      fitrah,
			VisionRange: cfg.VisionRange(&rc),
			index:       i,
			base: func() (*genotype.Genotype, error) {
				return genotype.Base(cfg, fitrah)
			},
		}
		reg.races = append(reg.races, r)
		reg.byName[r.Name] = r
	}
	return reg, nil
}

// All returns the races in registration order.
func (reg *Registry) All() []*Race { return reg.races }

// Len returns the number of registered races.
func (reg *Registry) Len() int { return len(reg.races) }

// Get returns the race registered under name.
func (reg *Registry) Get(name string) (*Race, bool) {
	r, ok := reg.byName[name]
	return r, ok
}

// Names returns race names in registration order.
func (reg *Registry) Names() []string {
	names := make([]string, len(reg.races))
	for i, r := range reg.races {
		names[i] = r.Name
	}
	return names
}
