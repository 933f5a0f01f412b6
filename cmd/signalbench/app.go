package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"SignalBench/internal/config"
	"SignalBench/internal/experiment"
	"SignalBench/internal/indicator"
	"SignalBench/internal/loader"
	"SignalBench/internal/metrics"
	"SignalBench/internal/model"
	"SignalBench/internal/recorder"
	"SignalBench/internal/report"
	"SignalBench/internal/weights"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries the loaded configuration and flags shared by every subcommand.
type app struct {
	cfg       *config.Config
	reg       *indicator.Registry
	synthetic int
	outDir    string
	record    bool
	winProb   string
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if w, _ := cmd.Flags().GetString("weights"); w != "" {
		cfg.WeightsFile = w
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	a.cfg = cfg
	a.reg = indicator.Default()
	a.synthetic, _ = cmd.Flags().GetInt("synthetic")
	a.outDir, _ = cmd.Flags().GetString("out")
	a.record, _ = cmd.Flags().GetBool("record")
	a.winProb, _ = cmd.Flags().GetString("win-prob")
	log.Debug().Str("config", path).Str("weights", cfg.WeightsFile).Msg(appName + " configured")
	return nil
}

// loadWeights reads the weight file over the registry defaults. A missing file falls back
// to the defaults; any invalid entry aborts before simulation starts.
func (a *app) loadWeights() (*weights.Config, error) {
	w, err := weights.Load(a.cfg.WeightsFile, a.reg)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", a.cfg.WeightsFile).Msg("Weight file not found, using defaults")
		return weights.Defaults(a.reg), nil
	}
	return w, err
}

func (a *app) loadUniverse() (*loader.Universe, error) {
	if a.synthetic > 0 {
		l := loader.Synthetic(loader.SyntheticSpec{Instruments: a.synthetic, Seed: a.cfg.Experiment.Seed})
		return loader.NewCollector(l).Collect(nil, "BENCH")
	}
	u, err := loader.NewCollector(loader.NewCSVLoader(a.cfg.DataDir)).Collect(a.cfg.Universe, a.cfg.Benchmark)
	if err != nil {
		return nil, err
	}
	if len(u.Series) == 0 {
		return nil, fmt.Errorf("no series found in %s", a.cfg.DataDir)
	}
	return u, nil
}

// openRecorder returns the SQLite recorder when recording is on, falling back to a no-op
// recorder if the database cannot be opened.
func (a *app) openRecorder(force bool) recorder.Recorder {
	if !a.record && !force {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("Init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

// startMetrics serves /metrics when metrics.addr is set. The returned stop func is never nil.
func (a *app) startMetrics() (*metrics.Metrics, func()) {
	if a.cfg.Metrics.Addr == "" {
		return nil, func() {}
	}
	m := metrics.New()
	srv := m.Serve(a.cfg.Metrics.Addr)
	return m, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}
}

// winProbability loads the --win-prob table, or returns nil when unset.
func (a *app) winProbability() (*loader.ProbabilityTable, error) {
	if a.winProb == "" {
		return nil, nil
	}
	t, err := loader.LoadProbabilities(a.winProb)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", a.winProb).Int("predictions", t.Len()).Msg("Win probabilities loaded")
	return t, nil
}

func (a *app) harness(u *loader.Universe, rec recorder.Recorder, m *metrics.Metrics) (*experiment.Harness, error) {
	opts := []experiment.Option{experiment.WithRecorder(rec), experiment.WithRegistry(a.reg)}
	if m != nil {
		opts = append(opts, experiment.WithObserver(m))
	}
	wp, err := a.winProbability()
	if err != nil {
		return nil, err
	}
	if wp != nil {
		opts = append(opts, experiment.WithWinProbability(wp))
	}
	return experiment.New(u, a.cfg.Backtest, a.cfg.Experiment, opts...)
}

func strategyFlag(cmd *cobra.Command) (model.Strategy, error) {
	v, _ := cmd.Flags().GetString("strategy")
	s := model.Strategy(strings.ToLower(v))
	if !s.Valid() {
		return "", &model.ConfigurationError{Strategy: v, Reason: "unknown strategy"}
	}
	return s, nil
}

// asOfDate parses --date, defaulting to the last benchmark (or universe) date.
func asOfDate(cmd *cobra.Command, u *loader.Universe) (time.Time, error) {
	v, _ := cmd.Flags().GetString("date")
	if v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, fmt.Errorf("--date: %w", err)
		}
		return t, nil
	}
	if u.Benchmark != nil && len(u.Benchmark.Bars) > 0 {
		return model.Day(u.Benchmark.Bars[len(u.Benchmark.Bars)-1].Time), nil
	}
	dates := u.Dates()
	if len(dates) == 0 {
		return time.Time{}, errors.New("universe has no bars")
	}
	return dates[len(dates)-1], nil
}

// saveArtifacts writes v as JSON and text next to each other when --out is set.
func (a *app) saveArtifacts(kind, label, id string, v any, text string) {
	if a.outDir == "" {
		return
	}
	path := filepath.Join(a.outDir, report.ArtifactName(kind, label, id))
	if err := report.SaveJSON(path, v); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to save artifact")
		return
	}
	txt := strings.TrimSuffix(path, ".json") + ".txt"
	if err := os.WriteFile(txt, []byte(text), 0644); err != nil {
		log.Error().Err(err).Str("path", txt).Msg("Failed to save report")
		return
	}
	log.Info().Str("path", path).Msg("Artifact saved")
}
