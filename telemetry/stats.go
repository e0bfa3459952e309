package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics of one race over a window.
type WindowStats struct {
	WindowStartTick int32  `csv:"-"`
	WindowEndTick   int32  `csv:"window_end"`
	Race            string `csv:"race"`

	// Population at window end
	Population int `csv:"population"`

	// Events during window
	Births           int `csv:"births"`
	Deaths           int `csv:"deaths"`
	DeathsStarvation int `csv:"deaths_starvation"`
	DeathsOldAge     int `csv:"deaths_old_age"`
	DeathsCombat     int `csv:"deaths_combat"`
	DeathsKilled     int `csv:"deaths_killed"`
	Meals            int `csv:"meals"`
	EnergyEaten      int `csv:"energy_eaten"`
	Fights           int `csv:"fights"`
	EnergyCaptured   int `csv:"energy_captured"`
	Matings          int `csv:"matings"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`
	AgeMean    float64 `csv:"age_mean"`

	// Food on the grid, shared by all races
	FoodCount  int `csv:"food_count"`
	FoodEnergy int `csv:"food_energy"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// ComputeEnergyStats calculates the population mean, standard deviation and
// percentiles of values.
func ComputeEnergyStats(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	mean, std := meanStd(values)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.String("race", s.Race),
		slog.Int("population", s.Population),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("meals", s.Meals),
		slog.Int("fights", s.Fights),
		slog.Int("matings", s.Matings),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("age_mean", s.AgeMean),
		slog.Int("food_count", s.FoodCount),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"race", s.Race,
		"population", s.Population,
		"births", s.Births,
		"deaths", s.Deaths,
		"deaths_starvation", s.DeathsStarvation,
		"deaths_old_age", s.DeathsOldAge,
		"deaths_combat", s.DeathsCombat,
		"meals", s.Meals,
		"fights", s.Fights,
		"matings", s.Matings,
		"energy_mean", s.EnergyMean,
		"energy_std", s.EnergyStd,
		"energy_p10", s.EnergyP10,
		"energy_p50", s.EnergyP50,
		"energy_p90", s.EnergyP90,
		"age_mean", s.AgeMean,
		"food_count", s.FoodCount,
		"food_energy", s.FoodEnergy,
	)
}
