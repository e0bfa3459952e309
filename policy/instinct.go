// Package policy provides decision/learning strategies satisfying
// creature.Policy.
package policy

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/creature"
	"github.com/pthm-cable/fitrah/genotype"
	"github.com/pthm-cable/fitrah/memory"
	"github.com/pthm-cable/fitrah/perception"
)

const (
	instinctKind = "instinct"

	// minFitrah keeps log(fitrah) finite for actions with zero prior.
	minFitrah = 1e-6
	// prefLimit bounds preferences so softmax stays finite.
	prefLimit = 50.0
	// baselineRate is the step size of the running return baseline.
	baselineRate = 0.05
)

var _ creature.Policy = (*Instinct)(nil)

// Instinct is a tabular softmax policy. Its context is whether food lies at
// the observer's own cell crossed with an energy bucket; the number of energy
// buckets is the genotype's structure param. Every row starts at
// log(fitrah), so an untrained Instinct samples actions in proportion to the
// innate prior.
type Instinct struct {
	actions      int
	buckets      int
	prefs        [][]float64 // [context][action]
	baseline     float64
	learningRate float64
	discount     float64
	temperature  float64
	maxEnergy    float64
	deathPenalty float64
	updates      int

	rng *rand.Rand
}

// NewInstinct seeds an Instinct from a genotype and the brain/biology config.
func NewInstinct(g *genotype.Genotype, cfg *config.Config, rng *rand.Rand) *Instinct {
	buckets := max(g.StructureParam(), 1)
	fitrah := g.Fitrah()
	prefs := make([][]float64, 2*buckets)
	for ctx := range prefs {
		row := make([]float64, len(fitrah))
		for a, f := range fitrah {
			row[a] = math.Log(math.Max(f, minFitrah))
		}
		prefs[ctx] = row
	}
	return &Instinct{
		actions:      len(fitrah),
		buckets:      buckets,
		prefs:        prefs,
		learningRate: g.LearningRate(),
		discount:     g.RewardDiscount(),
		temperature:  cfg.Brain.Temperature,
		maxEnergy:    float64(2 * cfg.Biology.InitialEnergy),
		deathPenalty: float64(cfg.Biology.InitialEnergy),
		rng:          rng,
	}
}

// context maps an observation to a table row.
func (p *Instinct) context(state perception.Tensor) int {
	bucket := 0
	if p.maxEnergy > 0 {
		bucket = int(perception.Energy(state) / p.maxEnergy * float64(p.buckets))
	}
	bucket = max(0, min(bucket, p.buckets-1))
	if perception.FoodHere(state) {
		return p.buckets + bucket
	}
	return bucket
}

// Probabilities returns the action distribution for state.
func (p *Instinct) Probabilities(state perception.Tensor) []float64 {
	return p.softmax(p.prefs[p.context(state)])
}

func (p *Instinct) softmax(row []float64) []float64 {
	out := make([]float64, len(row))
	if p.temperature <= 0 {
		out[floats.MaxIdx(row)] = 1
		return out
	}
	for i, v := range row {
		out[i] = v / p.temperature
	}
	m := floats.Max(out)
	for i := range out {
		out[i] = math.Exp(out[i] - m)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Decide samples an action from the softmax of the current context's row.
func (p *Instinct) Decide(state perception.Tensor) int {
	probs := p.Probabilities(state)
	cum := make([]float64, len(probs))
	floats.CumSum(cum, probs)
	u := p.rng.Float64() * cum[len(cum)-1]
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
	return min(i, len(cum)-1)
}

// Train runs one REINFORCE pass over batch. Rewards are the energy change
// across each step; a step that ended in death is worth minus the initial
// energy. Returns are discounted with the genotype's reward discount.
func (p *Instinct) Train(batch []memory.Experience) error {
	if len(batch) == 0 {
		return nil
	}

	returns := make([]float64, len(batch))
	var g float64
	for i := len(batch) - 1; i >= 0; i-- {
		e := batch[i]
		if e.Action < 0 || e.Action >= p.actions {
			return fmt.Errorf("experience %d has action %d outside [0,%d)", i, e.Action, p.actions)
		}
		r := float64(e.Energy) - perception.Energy(e.State)
		if !e.Alive {
			r = -p.deathPenalty
			g = 0
		}
		g = r + p.discount*g
		returns[i] = g
	}

	for i, e := range batch {
		row := p.prefs[p.context(e.State)]
		probs := p.softmax(row)
		adv := returns[i] - p.baseline
		for a := range row {
			grad := -probs[a]
			if a == e.Action {
				grad += 1
			}
			row[a] = math.Max(-prefLimit, math.Min(prefLimit, row[a]+p.learningRate*adv*grad))
		}
		p.baseline += baselineRate * (returns[i] - p.baseline)
	}
	p.updates++
	return nil
}

// Updates counts completed Train calls with a non-empty batch.
func (p *Instinct) Updates() int { return p.updates }

// Preferences returns a copy of the preference table.
func (p *Instinct) Preferences() [][]float64 {
	out := make([][]float64, len(p.prefs))
	for i, row := range p.prefs {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

type instinctState struct {
	Actions      int         `json:"actions"`
	Buckets      int         `json:"buckets"`
	Preferences  [][]float64 `json:"preferences"`
	Baseline     float64     `json:"baseline"`
	LearningRate float64     `json:"learning_rate"`
	Discount     float64     `json:"discount"`
	Temperature  float64     `json:"temperature"`
	MaxEnergy    float64     `json:"max_energy"`
	DeathPenalty float64     `json:"death_penalty"`
	Updates      int         `json:"updates"`
}

// Save writes a zstd-compressed JSON checkpoint to path, creating parent
// directories as needed.
func (p *Instinct) Save(path string) error {
	return writeCheckpoint(path, instinctKind, instinctState{
		Actions:      p.actions,
		Buckets:      p.buckets,
		Preferences:  p.prefs,
		Baseline:     p.baseline,
		LearningRate: p.learningRate,
		Discount:     p.discount,
		Temperature:  p.temperature,
		MaxEnergy:    p.maxEnergy,
		DeathPenalty: p.deathPenalty,
		Updates:      p.updates,
	})
}

// LoadInstinct restores an Instinct saved with Save.
func LoadInstinct(path string, rng *rand.Rand) (*Instinct, error) {
	var s instinctState
	if err := readCheckpoint(path, instinctKind, &s); err != nil {
		return nil, err
	}
	if s.Buckets < 1 || len(s.Preferences) != 2*s.Buckets {
		return nil, fmt.Errorf("checkpoint %s: %d preference rows for %d buckets", path, len(s.Preferences), s.Buckets)
	}
	for i, row := range s.Preferences {
		if len(row) != s.Actions {
			return nil, fmt.Errorf("checkpoint %s: row %d has %d actions, want %d", path, i, len(row), s.Actions)
		}
	}
	return &Instinct{
		actions:      s.Actions,
		buckets:      s.Buckets,
		prefs:        s.Preferences,
		baseline:     s.Baseline,
		learningRate: s.LearningRate,
		discount:     s.Discount,
		temperature:  s.Temperature,
		maxEnergy:    s.MaxEnergy,
		deathPenalty: s.DeathPenalty,
		updates:      s.Updates,
		rng:          rng,
	}, nil
}
