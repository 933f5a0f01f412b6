// Package recorder persists score breakdowns, experiments and calibration outcomes.
package recorder

import "SignalBench/internal/model"

// CalibrationEvent summarises one calibration sweep for a single indicator.
type CalibrationEvent struct {
	Strategy           model.Strategy
	Indicator          string
	BaselineMultiplier float64
	BestMultiplier     float64
	BaselineAvgPnL     float64
	BestAvgPnL         float64
	TTestP             *float64 // nil when not computable
	RankSumP           *float64
	ChiSquareP         *float64
	CohensD            *float64
	ExperimentIDs      []string
}

// Recorder persists simulation output for later analysis.
type Recorder interface {
	RecordBreakdown(b *model.ScoreBreakdown) error
	RecordExperiment(res *model.ExperimentResult) error
	RecordCalibration(evt *CalibrationEvent) error
	Close() error
}
