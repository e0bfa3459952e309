package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/fitrah/chronicle"
	"github.com/pthm-cable/fitrah/config"
	"github.com/pthm-cable/fitrah/telemetry"
	"github.com/pthm-cable/fitrah/universe"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = run until eternity)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	if err := run(cfg, rngSeed, *maxTicks, *outputDir, *logStats); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, seed int64, maxTicks int, outputDir string, logStats bool) error {
	output, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		return err
	}

	opts := universe.Options{
		Seed:     seed,
		LogStats: logStats,
		Output:   output,
	}
	if path := cfg.Output.ChroniclePath; path != "" {
		ledger, err := chronicle.Open(path)
		if err != nil {
			return err
		}
		defer ledger.Close()
		opts.Ledger = ledger
	}

	u, err := universe.New(cfg, opts)
	if err != nil {
		return err
	}
	if err := u.Populate(); err != nil {
		return err
	}

	slog.Info("starting simulation",
		"seed", seed,
		"max_ticks", maxTicks,
		"creatures", u.NumCreatures(),
		"races", u.Races(),
		"output_dir", output.Dir(),
	)

	start := time.Now()
	steps, err := u.Run(maxTicks)
	if err != nil {
		return err
	}

	attrs := []any{
		"tick", u.Tick(),
		"steps", steps,
		"creatures", u.NumCreatures(),
		"elapsed_ms", time.Since(start).Milliseconds(),
		"recent_ticks_per_sec", u.Perf().Stats().TicksPerSecond,
	}
	switch {
	case u.Extinct():
		slog.Info("extinct", append(attrs, "last_survivor", u.LastSurvivor())...)
	case maxTicks > 0 && int(u.Tick()) >= maxTicks:
		slog.Info("max ticks reached", attrs...)
	default:
		slog.Info("eternity reached", attrs...)
	}
	return nil
}
