package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/telemetry"
	"github.com/pthm-cable/fitrah/universe"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
	lastSurvive float64 // mean survival ticks from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// LastSurvival returns the mean survival ticks of the most recent evaluation.
func (fe *FitnessEvaluator) LastSurvival() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSurvive
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int                       // ticks before extinction (or maxTicks if survived)
	windows       [][]telemetry.WindowStats // one slice of per-race rows per window
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Seeds run in parallel, each on its own universe.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = fe.runSimulation(x, seed)
		}()
	}
	wg.Wait()

	var totalFitness, totalQuality, totalSurvival float64
	for _, r := range results {
		q := computeQuality(r.windows)
		totalFitness += computeFitness(r.survivalTicks, q)
		totalQuality += q
		totalSurvival += float64(r.survivalTicks)
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.lastSurvive = totalSurvival / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless run until extinction or maxTicks.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Output = config.OutputConfig{}

	result := &runResult{}
	u, err := universe.New(cfg, universe.Options{
		Seed: seed,
		StatsCallback: func(rows []telemetry.WindowStats) {
			result.windows = append(result.windows, rows)
		},
	})
	if err == nil {
		err = u.Populate()
	}
	if err != nil {
		slog.Error("evaluation setup failed", "seed", seed, "error", err)
		return result
	}

	steps, err := u.Run(fe.maxTicks)
	if err != nil {
		slog.Error("evaluation run failed", "seed", seed, "tick", u.Tick(), "error", err)
	}
	result.survivalTicks = steps
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Survival dominates; quality adds up to 20% to separate configs with
// similar survival.
func computeFitness(survivalTicks int, quality float64) float64 {
	return -(float64(survivalTicks) * (1.0 + 0.2*quality))
}

const qualityWarmupWindows = 2 // skip first N windows

// computeQuality scores a run in [0, 1]: every race should stay present
// (coexistence) and the total population should not swing (stability).
func computeQuality(windows [][]telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	totals := make([]float64, 0, len(valid))
	var coexist float64
	for _, rows := range valid {
		total, present := 0, 0
		for _, r := range rows {
			total += r.Population
			if r.Population > 0 {
				present++
			}
		}
		totals = append(totals, float64(total))
		if len(rows) > 0 {
			coexist += float64(present) / float64(len(rows))
		}
	}
	coexist /= float64(len(valid))

	stability := 0.0
	if mean, std := stat.PopMeanStdDev(totals, nil); mean > 0 {
		cv := std / mean
		stability = math.Exp(-cv * cv)
	}
	return clamp01(0.6*coexist + 0.4*stability)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
