package model

import "time"

// RunResult aggregates one simulated date (or any trade list). Derived, never mutated in place.
type RunResult struct {
	Run            int         `json:"run"`
	Date           time.Time   `json:"date"`
	TotalTrades    int         `json:"total_trades"`
	WinningTrades  int         `json:"winning_trades"`
	WinRate        float64     `json:"win_rate"`
	AvgPnL         float64     `json:"avg_pnl"`
	TotalPnL       float64     `json:"total_pnl"`
	SharpeRatio    float64     `json:"sharpe_ratio"`
	MaxDrawdown    float64     `json:"max_drawdown"`
	Scored         int         `json:"scored"`
	BelowThreshold int         `json:"below_threshold"`
	Selected       int         `json:"selected"`
	Trades         []Trade     `json:"trades,omitempty"`
	Exclusions     []Exclusion `json:"exclusions,omitempty"`
}

// ExperimentResult is one weight configuration evaluated over sampled runs.
type ExperimentResult struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Strategy   Strategy    `json:"strategy"`
	Indicator  string      `json:"indicator,omitempty"`
	Multiplier float64     `json:"multiplier"`
	Seed       uint64      `json:"seed"`
	Runs       int         `json:"runs"`
	SampleSize int         `json:"sample_size"`
	Completed  int         `json:"completed"`
	Cancelled  bool        `json:"cancelled"`
	RunResults []RunResult `json:"run_results"`
	Pooled     RunResult   `json:"pooled"`
	Trades     []Trade     `json:"trades"`
	Exclusions []Exclusion `json:"exclusions"`
	Skipped    []Exclusion `json:"skipped,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Comparable reports whether two experiments share their sampling methodology.
func (e *ExperimentResult) Comparable(o *ExperimentResult) bool {
	return e.Runs == o.Runs && e.SampleSize == o.SampleSize
}
