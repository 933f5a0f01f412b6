// Package experiment runs a weight configuration over many sampled historical dates and
// pools the resulting trades for statistics.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"SignalBench/internal/backtest"
	"SignalBench/internal/indicator"
	"SignalBench/internal/loader"
	"SignalBench/internal/model"
	"SignalBench/internal/recorder"
	"SignalBench/internal/stats"
	"SignalBench/internal/weights"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoEligibleDates means the universe is too short for the lookback and holding period.
var ErrNoEligibleDates = errors.New("no eligible backtest dates")

// Config controls sampling and concurrency. Zero fields take defaults.
type Config struct {
	Runs        int       `yaml:"runs"`
	SampleSize  int       `yaml:"sample_size"` // instruments per run, 0 = whole universe
	Seed        uint64    `yaml:"seed"`
	MinLookback int       `yaml:"min_lookback"`
	Concurrency int       `yaml:"concurrency"`
	From        time.Time `yaml:"from"`
	To          time.Time `yaml:"to"`
}

// DefaultConfig returns the documented sampling defaults.
func DefaultConfig() Config {
	var c Config
	return c.withDefaults()
}

func (c *Config) withDefaults() Config {
	q := *c
	if q.Runs == 0 {
		q.Runs = 20
	}
	if q.Seed == 0 {
		q.Seed = 42
	}
	if q.MinLookback == 0 {
		q.MinLookback = 60
	}
	if q.Concurrency == 0 {
		q.Concurrency = runtime.GOMAXPROCS(0)
	}
	return q
}

// Observer receives progress callbacks. Implementations must be safe for concurrent use.
type Observer interface {
	RunCompleted(s model.Strategy, r *model.RunResult, elapsed time.Duration)
	ExperimentCompleted(res *model.ExperimentResult)
}

// Option customises a Harness.
type Option func(*Harness)

// WithRecorder persists every finished experiment. Recording failures are logged only.
func WithRecorder(r recorder.Recorder) Option { return func(h *Harness) { h.recorder = r } }

// WithObserver registers progress callbacks.
func WithObserver(o Observer) Option { return func(h *Harness) { h.observer = o } }

// WithWinProbability attaches an external classifier's predictions to plans.
func WithWinProbability(m backtest.WinProbabilityModel) Option {
	return func(h *Harness) { h.winProb = m }
}

// WithRegistry overrides the indicator registry used for isolated configurations.
func WithRegistry(reg *indicator.Registry) Option { return func(h *Harness) { h.registry = reg } }

// Harness runs experiments over a fixed universe. Weight configurations are passed per
// call, so one harness can evaluate many configurations concurrently.
type Harness struct {
	universe *loader.Universe
	bt       backtest.Config
	cfg      Config
	dates    []time.Time
	registry *indicator.Registry
	recorder recorder.Recorder
	observer Observer
	winProb  backtest.WinProbabilityModel
}

// New validates the configuration and precomputes the eligible date calendar.
func New(u *loader.Universe, bt backtest.Config, cfg Config, opts ...Option) (*Harness, error) {
	h := &Harness{
		universe: u,
		bt:       bt,
		cfg:      cfg.withDefaults(),
		registry: indicator.Default(),
		recorder: recorder.NewNoopRecorder(),
	}
	for _, o := range opts {
		o(h)
	}
	if h.cfg.Runs < 1 || h.cfg.SampleSize < 0 || h.cfg.MinLookback < 0 || h.cfg.Concurrency < 1 {
		return nil, fmt.Errorf("experiment config: runs %d, sample_size %d, min_lookback %d, concurrency %d",
			h.cfg.Runs, h.cfg.SampleSize, h.cfg.MinLookback, h.cfg.Concurrency)
	}
	if u == nil || len(u.Series) == 0 {
		return nil, errors.New("experiment: empty universe")
	}
	sim, err := backtest.New(bt, model.TrendFollowing, weights.Defaults(h.registry))
	if err != nil {
		return nil, err
	}
	maxHold := sim.Config().MaxHoldDays
	// Dates earlier than the flat filter's lookback would all be excluded as insufficient_history.
	if need := sim.Config().Lookback(); h.cfg.MinLookback < need {
		log.Debug().Int("min_lookback", h.cfg.MinLookback).Int("filter_lookback", need).Msg("Raising minimum lookback")
		h.cfg.MinLookback = need
	}

	calendar := u.Dates()
	if u.Benchmark != nil && len(u.Benchmark.Bars) > 0 {
		calendar = calendar[:0:0]
		for _, b := range u.Benchmark.Bars {
			calendar = append(calendar, model.Day(b.Time))
		}
	}
	h.dates = eligibleDates(calendar, h.cfg.MinLookback, maxHold, h.cfg.From, h.cfg.To)
	if len(h.dates) == 0 {
		return nil, fmt.Errorf("%w: %d calendar days, lookback %d, hold %d",
			ErrNoEligibleDates, len(calendar), h.cfg.MinLookback, maxHold)
	}
	return h, nil
}

// Config returns the effective sampling configuration.
func (h *Harness) Config() Config { return h.cfg }

// SampleSize is the number of instruments each run draws.
func (h *Harness) SampleSize() int {
	if h.cfg.SampleSize > 0 && h.cfg.SampleSize < len(h.universe.Series) {
		return h.cfg.SampleSize
	}
	return len(h.universe.Series)
}

// Run evaluates w under strategy s over the sampled runs.
//
// Cancelling ctx stops new runs from starting; runs already in flight finish. The
// partial result (Cancelled set, aggregated over completed runs only) is returned
// together with ctx's error.
func (h *Harness) Run(ctx context.Context, label string, s model.Strategy, w *weights.Config) (*model.ExperimentResult, error) {
	return h.run(ctx, label, s, "", 0, w)
}

// RunIsolated evaluates a configuration where only indicator id of strategy s is enabled,
// at multiplier m.
func (h *Harness) RunIsolated(ctx context.Context, s model.Strategy, id string, m float64) (*model.ExperimentResult, error) {
	w, err := weights.Isolated(h.registry, s, id, m)
	if err != nil {
		return nil, err
	}
	return h.run(ctx, IsolatedLabel(s, id, m), s, id, m, w)
}

// IsolatedLabel names an isolated experiment.
func IsolatedLabel(s model.Strategy, id string, m float64) string {
	return fmt.Sprintf("%s.%s@%g", s, id, m)
}

func (h *Harness) run(ctx context.Context, label string, s model.Strategy, id string, m float64, w *weights.Config) (*model.ExperimentResult, error) {
	sim, err := backtest.New(h.bt, s, w)
	if err != nil {
		return nil, err
	}
	if h.winProb != nil {
		sim = sim.WithWinProbability(h.winProb)
	}

	res := &model.ExperimentResult{
		ID:         uuid.NewString(),
		Label:      label,
		Strategy:   s,
		Indicator:  id,
		Multiplier: m,
		Seed:       h.cfg.Seed,
		Runs:       h.cfg.Runs,
		SampleSize: h.SampleSize(),
		Skipped:    h.universe.Skipped,
		StartedAt:  time.Now().UTC(),
	}
	plans := planRuns(h.cfg.Seed, h.cfg.Runs, h.cfg.SampleSize, h.dates, h.universe.Series)
	results := make([]*model.RunResult, len(plans))

	// In-flight runs are never interrupted, so they get a context that ignores cancellation.
	runCtx := context.WithoutCancel(ctx)
	var (
		g       errgroup.Group
		stopped bool
	)
	g.SetLimit(h.cfg.Concurrency)
	for i, p := range plans {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			began := time.Now()
			r, err := sim.RunDate(runCtx, p.Date, p.Universe, h.universe.Benchmark)
			if err != nil {
				return fmt.Errorf("run %d: %w", p.Index, err)
			}
			r.Run = p.Index
			for j := range r.Trades {
				r.Trades[j].Run = p.Index
			}
			results[i] = r
			if h.observer != nil {
				h.observer.RunCompleted(s, r, time.Since(began))
			}
			log.Debug().Str("label", label).Int("run", p.Index).Time("date", p.Date).
				Int("trades", r.TotalTrades).Float64("win_rate", r.WinRate).Msg("Run completed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	aggregate(res, results)
	res.Cancelled = stopped || res.Completed < res.Runs
	res.FinishedAt = time.Now().UTC()

	if err := h.recorder.RecordExperiment(res); err != nil {
		log.Error().Err(err).Str("experiment", res.ID).Msg("Failed to record experiment")
	}
	if h.observer != nil {
		h.observer.ExperimentCompleted(res)
	}
	log.Info().
		Str("experiment", res.ID).
		Str("label", label).
		Str("strategy", string(s)).
		Int("runs", res.Completed).
		Int("trades", res.Pooled.TotalTrades).
		Float64("win_rate", res.Pooled.WinRate).
		Float64("avg_pnl", res.Pooled.AvgPnL).
		Bool("cancelled", res.Cancelled).
		Msg("Experiment finished")

	if res.Cancelled {
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// aggregate pools completed runs in run order, so the result never depends on which
// worker finished first.
func aggregate(res *model.ExperimentResult, results []*model.RunResult) {
	var scored, below, selected int
	for _, r := range results {
		if r == nil {
			continue
		}
		res.Completed++
		res.RunResults = append(res.RunResults, *r)
		res.Trades = append(res.Trades, r.Trades...)
		res.Exclusions = append(res.Exclusions, r.Exclusions...)
		scored += r.Scored
		below += r.BelowThreshold
		selected += r.Selected
	}
	res.Pooled = stats.Summarize(res.Trades)
	res.Pooled.Scored, res.Pooled.BelowThreshold, res.Pooled.Selected = scored, below, selected
}
