// Package config loads the application configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"SignalBench/internal/backtest"
	"SignalBench/internal/experiment"
	"SignalBench/internal/indicator"
	"SignalBench/internal/model"
	"SignalBench/internal/weights"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/signalbench.yaml"

// CalibrationJob is one scheduled multiplier sweep.
type CalibrationJob struct {
	Strategy    model.Strategy `yaml:"strategy"`
	Indicator   string         `yaml:"indicator"`
	Multipliers []float64      `yaml:"multipliers"`
}

// Config holds all application configuration.
type Config struct {
	DataDir     string            `yaml:"data_dir"`
	Benchmark   string            `yaml:"benchmark"`
	Universe    []string          `yaml:"universe"` // empty = every instrument in data_dir
	WeightsFile string            `yaml:"weights_file"`
	Backtest    backtest.Config   `yaml:"backtest"`
	Experiment  experiment.Config `yaml:"experiment"`
	Database    struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Schedule struct {
		CalibrationCron string           `yaml:"calibration_cron"`
		Jobs            []CalibrationJob `yaml:"jobs"`
	} `yaml:"schedule"`
	LogLevel string `yaml:"log_level"`
}

// Load reads .env, the YAML file at path (a missing file is not an error), then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Backtest:   backtest.DefaultConfig(),
		Experiment: experiment.DefaultConfig(),
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Defaults
	if cfg.DataDir == "" {
		cfg.DataDir = "data/bars"
	}
	if cfg.WeightsFile == "" {
		cfg.WeightsFile = "configs/weights.yaml"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/signalbench.db"
	}
	if cfg.Schedule.CalibrationCron == "" {
		cfg.Schedule.CalibrationCron = "0 0 6 * * 6"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SIGNALBENCH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SIGNALBENCH_WEIGHTS"); v != "" {
		c.WeightsFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CRON_CALIBRATION"); v != "" {
		c.Schedule.CalibrationCron = v
	}
	if v := os.Getenv("EXPERIMENT_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("EXPERIMENT_SEED: %w", err)
		}
		c.Experiment.Seed = seed
	}
	return nil
}

// Validate checks that the configuration can drive a simulation.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.WeightsFile == "" {
		return fmt.Errorf("weights_file is required")
	}
	if err := c.Backtest.Validate(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	if c.Experiment.Runs < 1 {
		return fmt.Errorf("experiment.runs must be positive, got %d", c.Experiment.Runs)
	}
	if c.Experiment.SampleSize < 0 {
		return fmt.Errorf("experiment.sample_size must be non-negative, got %d", c.Experiment.SampleSize)
	}
	if !c.Experiment.To.IsZero() && c.Experiment.To.Before(c.Experiment.From) {
		return fmt.Errorf("experiment.to is before experiment.from")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if len(c.Schedule.Jobs) > 0 {
		if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule.CalibrationCron); err != nil {
			return fmt.Errorf("schedule.calibration_cron: %w", err)
		}
	}
	for i, j := range c.Schedule.Jobs {
		if !j.Strategy.Valid() {
			return fmt.Errorf("schedule.jobs[%d]: unknown strategy %q", i, j.Strategy)
		}
		if j.Indicator == "" {
			return fmt.Errorf("schedule.jobs[%d]: indicator is required", i)
		}
		if len(j.Multipliers) < 2 {
			return fmt.Errorf("schedule.jobs[%d]: need a baseline and at least one candidate multiplier", i)
		}
		for _, m := range j.Multipliers {
			if _, err := weights.Isolated(indicator.Default(), j.Strategy, j.Indicator, m); err != nil {
				return fmt.Errorf("schedule.jobs[%d]: %w", i, err)
			}
		}
	}
	return nil
}
