package recorder

import "SignalBench/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBreakdown(_ *model.ScoreBreakdown) error      { return nil }
func (n *NoopRecorder) RecordExperiment(_ *model.ExperimentResult) error { return nil }
func (n *NoopRecorder) RecordCalibration(_ *CalibrationEvent) error      { return nil }
func (n *NoopRecorder) Close() error                                     { return nil }
