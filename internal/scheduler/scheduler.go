// Package scheduler runs calibration sweeps on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"SignalBench/internal/config"
	"SignalBench/internal/experiment"
	"SignalBench/internal/model"
	"SignalBench/internal/report"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Calibrator runs one multiplier sweep. *experiment.Harness implements it.
type Calibrator interface {
	Calibrate(ctx context.Context, s model.Strategy, id string, multipliers []float64) (*experiment.Calibration, error)
}

var _ Calibrator = (*experiment.Harness)(nil)

// Scheduler manages the cron-driven calibration jobs.
type Scheduler struct {
	Cron       *cron.Cron
	Calibrator Calibrator
	Jobs       []config.CalibrationJob
	OutputDir  string // empty = no artifacts
	Ctx        context.Context

	running sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, cal Calibrator, jobs []config.CalibrationJob, outputDir string) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Calibrator: cal,
		Jobs:       jobs,
		OutputDir:  outputDir,
		Ctx:        ctx,
	}
}

// Register schedules the calibration sweep with a six-field cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.calibrationTask); err != nil {
		return fmt.Errorf("register calibration task: %w", err)
	}
	log.Info().Str("cron", spec).Int("jobs", len(s.Jobs)).Msg("Calibration task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("Scheduler started")
}

// Stop stops the cron scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// RunNow executes the calibration sweep immediately (manual trigger / run on start).
func (s *Scheduler) RunNow() {
	s.calibrationTask()
}

func (s *Scheduler) calibrationTask() {
	if !s.running.TryLock() {
		log.Warn().Msg("Previous calibration sweep still running, skipping")
		return
	}
	defer s.running.Unlock()

	log.Info().Int("jobs", len(s.Jobs)).Msg("Running calibration sweep")
	for _, job := range s.Jobs {
		if err := s.Ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("Calibration sweep cancelled")
			return
		}
		start := time.Now()
		cal, err := s.Calibrator.Calibrate(s.Ctx, job.Strategy, job.Indicator, job.Multipliers)
		if err != nil {
			log.Error().Err(err).
				Str("strategy", string(job.Strategy)).
				Str("indicator", job.Indicator).
				Msg("Calibration failed")
			continue
		}
		log.Info().
			Str("strategy", string(job.Strategy)).
			Str("indicator", job.Indicator).
			Dur("elapsed", time.Since(start)).
			Msg("Calibration job done")
		if err := s.writeArtifacts(cal); err != nil {
			log.Error().Err(err).Str("indicator", job.Indicator).Msg("Failed to write calibration artifacts")
		}
	}
}

func (s *Scheduler) writeArtifacts(cal *experiment.Calibration) error {
	if s.OutputDir == "" {
		return nil
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	base := filepath.Join(s.OutputDir, fmt.Sprintf("calibration_%s.%s_%s", cal.Strategy, cal.Indicator, stamp))
	if err := report.SaveJSON(base+".json", cal); err != nil {
		return err
	}
	return os.WriteFile(base+".txt", []byte(report.FormatCalibration(cal)), 0644)
}
