package backtest

import (
	"fmt"
	"runtime"
)

// FillMode selects how a planned entry becomes an open trade.
type FillMode string

const (
	// FillSynthetic opens the trade at the plan's entry price on the as-of date.
	FillSynthetic FillMode = "synthetic"
	// FillLimit waits up to EntryWindowDays bars for the low to reach the entry price.
	FillLimit FillMode = "limit"
)

// SameBarPolicy decides the exit when one bar touches both stop and target.
type SameBarPolicy string

const (
	StopFirst   SameBarPolicy = "stop_first"
	TargetFirst SameBarPolicy = "target_first"
)

// Config holds the per-date simulation parameters. Zero fields take defaults.
type Config struct {
	TopK            int           `yaml:"top_k"`
	MaxHoldDays     int           `yaml:"max_hold_days"`
	MinScore        float64       `yaml:"min_score"`
	MinATRPct       float64       `yaml:"min_atr_pct"`
	MinStdDevPct    float64       `yaml:"min_stddev_pct"`
	StdDevWindow    int           `yaml:"stddev_window"`
	ATRPeriod       int           `yaml:"atr_period"`
	MinAvgVolume    float64       `yaml:"min_avg_volume"`
	VolumeWindow    int           `yaml:"volume_window"`
	FillMode        FillMode      `yaml:"fill_mode"`
	EntryWindowDays int           `yaml:"entry_window_days"`
	SameBarPolicy   SameBarPolicy `yaml:"same_bar_policy"`
	Workers         int           `yaml:"workers"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	var c Config
	return c.withDefaults()
}

func (c *Config) withDefaults() Config {
	q := *c
	if q.TopK == 0 {
		q.TopK = 5
	}
	if q.MaxHoldDays == 0 {
		q.MaxHoldDays = 10
	}
	if q.MinATRPct == 0 {
		q.MinATRPct = 0.005
	}
	if q.MinStdDevPct == 0 {
		q.MinStdDevPct = 0.002
	}
	if q.StdDevWindow == 0 {
		q.StdDevWindow = 10
	}
	if q.ATRPeriod == 0 {
		q.ATRPeriod = 14
	}
	if q.VolumeWindow == 0 {
		q.VolumeWindow = 20
	}
	if q.FillMode == "" {
		q.FillMode = FillSynthetic
	}
	if q.EntryWindowDays == 0 {
		q.EntryWindowDays = 3
	}
	if q.SameBarPolicy == "" {
		q.SameBarPolicy = StopFirst
	}
	if q.Workers == 0 {
		q.Workers = runtime.GOMAXPROCS(0)
	}
	return q
}

// Validate rejects parameters that cannot describe a simulation.
func (c Config) Validate() error {
	switch {
	case c.TopK < 1:
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	case c.MaxHoldDays < 1:
		return fmt.Errorf("max_hold_days must be positive, got %d", c.MaxHoldDays)
	case c.MinATRPct < 0 || c.MinStdDevPct < 0 || c.MinAvgVolume < 0:
		return fmt.Errorf("filter thresholds must be non-negative")
	case c.StdDevWindow < 2:
		return fmt.Errorf("stddev_window must be at least 2, got %d", c.StdDevWindow)
	case c.ATRPeriod < 2:
		return fmt.Errorf("atr_period must be at least 2, got %d", c.ATRPeriod)
	case c.FillMode != FillSynthetic && c.FillMode != FillLimit:
		return fmt.Errorf("unknown fill_mode %q", c.FillMode)
	case c.EntryWindowDays < 1:
		return fmt.Errorf("entry_window_days must be positive, got %d", c.EntryWindowDays)
	case c.SameBarPolicy != StopFirst && c.SameBarPolicy != TargetFirst:
		return fmt.Errorf("unknown same_bar_policy %q", c.SameBarPolicy)
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// Lookback returns the bars needed before a date for the flat filter to be defined.
func (c Config) Lookback() int {
	n := c.ATRPeriod + 1
	if c.StdDevWindow+1 > n {
		n = c.StdDevWindow + 1
	}
	return n
}
