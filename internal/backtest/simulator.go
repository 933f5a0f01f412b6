// Package backtest replays one historical date: it scores the universe, selects the
// top-ranked candidates, plans and simulates their trades and aggregates the outcome.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"SignalBench/internal/calculator"
	"SignalBench/internal/model"
	"SignalBench/internal/planner"
	"SignalBench/internal/stats"
	"SignalBench/internal/strategy"
	"SignalBench/internal/weights"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// WinProbabilityModel is an optional external classifier. Its output is attached to
// plans and never influences ranking or selection.
type WinProbabilityModel interface {
	PredictWinProbability(instrument string, asOf time.Time) (float64, error)
}

// Simulator runs single-date backtests for one strategy and weight configuration.
// It holds no mutable state and is safe for concurrent use.
type Simulator struct {
	cfg      Config
	strategy model.Strategy
	weights  *weights.Config
	planner  *planner.Planner
	winProb  WinProbabilityModel
}

// New validates cfg (after defaults) and returns a simulator.
func New(cfg Config, s model.Strategy, w *weights.Config) (*Simulator, error) {
	c := cfg.withDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("backtest config: %w", err)
	}
	if !s.Valid() {
		return nil, &model.ConfigurationError{Strategy: string(s), Reason: "unknown strategy"}
	}
	if w == nil {
		return nil, &model.ConfigurationError{Strategy: string(s), Reason: "no weight configuration"}
	}
	return &Simulator{cfg: c, strategy: s, weights: w, planner: planner.New(c.ATRPeriod)}, nil
}

// WithWinProbability returns a copy that enriches plans with m's predictions.
func (s *Simulator) WithWinProbability(m WinProbabilityModel) *Simulator {
	cp := *s
	cp.winProb = m
	return &cp
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config { return s.cfg }

// Strategy returns the simulated strategy.
func (s *Simulator) Strategy() model.Strategy { return s.strategy }

type evaluation struct {
	series    *model.Series
	index     int
	breakdown *model.ScoreBreakdown
	exclusion *model.Exclusion
}

// RunDate simulates date over universe. Per-instrument problems become exclusions;
// only a configuration error or ctx cancellation aborts the run.
func (s *Simulator) RunDate(ctx context.Context, date time.Time, universe []*model.Series, benchmark *model.Series) (*model.RunResult, error) {
	date = model.Day(date)
	evals := make([]evaluation, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, sr := range universe {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := s.evaluate(sr, date, benchmark)
			if err != nil {
				return err
			}
			evals[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &model.RunResult{Date: date}
	var candidates []evaluation
	for _, ev := range evals {
		if ev.exclusion != nil {
			res.Exclusions = append(res.Exclusions, *ev.exclusion)
			continue
		}
		res.Scored++
		if ev.breakdown.Total > s.cfg.MinScore {
			candidates = append(candidates, ev)
		} else {
			res.BelowThreshold++
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].breakdown, candidates[j].breakdown
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Instrument < b.Instrument
	})
	if len(candidates) > s.cfg.TopK {
		candidates = candidates[:s.cfg.TopK]
	}
	res.Selected = len(candidates)

	for _, c := range candidates {
		trade, ex := s.trade(c, date)
		if ex != nil {
			res.Exclusions = append(res.Exclusions, *ex)
			continue
		}
		res.Trades = append(res.Trades, *trade)
	}

	summary := stats.Summarize(res.Trades)
	summary.Date, summary.Scored, summary.BelowThreshold, summary.Selected = res.Date, res.Scored, res.BelowThreshold, res.Selected
	summary.Trades, summary.Exclusions = res.Trades, res.Exclusions

	log.Debug().
		Str("strategy", string(s.strategy)).
		Time("date", date).
		Int("universe", len(universe)).
		Int("scored", summary.Scored).
		Int("selected", summary.Selected).
		Int("trades", summary.TotalTrades).
		Int("excluded", len(summary.Exclusions)).
		Msg("Backtest date simulated")
	return &summary, nil
}

// Score returns the breakdown of one instrument on date after the sanity filter, or the
// exclusion that kept it out.
func (s *Simulator) Score(sr *model.Series, date time.Time, benchmark *model.Series) (*model.ScoreBreakdown, *model.Exclusion, error) {
	ev, err := s.evaluate(sr, model.Day(date), benchmark)
	return ev.breakdown, ev.exclusion, err
}

func (s *Simulator) evaluate(sr *model.Series, date time.Time, benchmark *model.Series) (evaluation, error) {
	ev := evaluation{series: sr}
	exclude := func(reason, detail string) (evaluation, error) {
		ev.exclusion = &model.Exclusion{Instrument: sr.Instrument, Date: date, Reason: reason, Detail: detail}
		log.Debug().Str("instrument", sr.Instrument).Time("date", date).Str("reason", reason).Str("detail", detail).Msg("Instrument excluded")
		return ev, nil
	}

	idx := sr.IndexOf(date)
	if idx < 0 {
		return exclude(model.ReasonNoBar, "")
	}
	ev.index = idx
	if err := sr.ValidateThrough(idx); err != nil {
		return exclude(model.ReasonDataIntegrity, err.Error())
	}
	if reason, detail := s.filter(sr.Bars[:idx+1]); reason != "" {
		return exclude(reason, detail)
	}

	b, err := strategy.Score(sr, idx, benchmark, s.strategy, s.weights)
	if err != nil {
		var de *model.DataIntegrityError
		if errors.As(err, &de) {
			return exclude(model.ReasonDataIntegrity, err.Error())
		}
		return ev, err
	}
	ev.breakdown = b
	return ev, nil
}

// filter applies the dead-or-flat and liquidity rules to bars ending at the as-of bar.
func (s *Simulator) filter(bars []model.OHLCV) (reason, detail string) {
	last := bars[len(bars)-1]
	if last.Close <= 0 {
		return model.ReasonDeadOrFlat, "non-positive close"
	}
	atr, err := calculator.CalculateATR(bars, s.cfg.ATRPeriod)
	if err != nil {
		return filterError(bars, err)
	}
	if atr/last.Close < s.cfg.MinATRPct {
		return model.ReasonDeadOrFlat, fmt.Sprintf("ATR %.4f%% of price", atr/last.Close*100)
	}
	sd, err := calculator.CalculateReturnStdDev(calculator.Closes(bars), s.cfg.StdDevWindow)
	if err != nil {
		return filterError(bars, err)
	}
	if sd < s.cfg.MinStdDevPct {
		return model.ReasonDeadOrFlat, fmt.Sprintf("return stddev %.4f%%", sd*100)
	}
	if s.cfg.MinAvgVolume > 0 {
		avg, err := calculator.CalculateAverageVolume(bars, s.cfg.VolumeWindow)
		if err != nil || avg < s.cfg.MinAvgVolume {
			return model.ReasonIlliquid, fmt.Sprintf("average volume %.0f", avg)
		}
	}
	return "", ""
}

// filterError classifies a failed filter measure. Short history is its own reason unless
// the bars seen so far are already flat.
func filterError(bars []model.OHLCV, err error) (reason, detail string) {
	if errors.Is(err, calculator.ErrInsufficientData) && !flat(bars) {
		return model.ReasonInsufficientHistory, err.Error()
	}
	return model.ReasonDeadOrFlat, err.Error()
}

func flat(bars []model.OHLCV) bool {
	for _, b := range bars {
		if b.High != b.Low || b.Close != bars[0].Close {
			return false
		}
	}
	return true
}

func (s *Simulator) trade(c evaluation, date time.Time) (*model.Trade, *model.Exclusion) {
	exclusion := func(reason, detail string) *model.Exclusion {
		log.Debug().Str("instrument", c.series.Instrument).Time("date", date).Str("reason", reason).Str("detail", detail).Msg("Candidate skipped")
		return &model.Exclusion{Instrument: c.series.Instrument, Date: date, Reason: reason, Detail: detail}
	}

	plan, err := s.planner.Plan(c.breakdown, c.series, c.index)
	if err != nil {
		return nil, exclusion(model.ReasonDegeneratePlan, err.Error())
	}
	if s.winProb != nil {
		p, err := s.winProb.PredictWinProbability(plan.Instrument, plan.AsOf)
		switch {
		case errors.Is(err, model.ErrNotFound):
			log.Debug().Str("instrument", plan.Instrument).Time("date", plan.AsOf).Msg("No win probability for candidate")
		case err != nil:
			log.Warn().Err(err).Str("instrument", plan.Instrument).Msg("Win probability unavailable")
		case math.IsNaN(p) || p < 0 || p > 1:
			log.Warn().Float64("probability", p).Str("instrument", plan.Instrument).Msg("Win probability out of range, ignored")
		default:
			plan.WinProbability = &p
		}
	}

	t, err := Advance(plan, c.series, c.index, s.cfg)
	switch {
	case errors.Is(err, ErrNotFilled):
		return nil, exclusion(model.ReasonNotFilled, "")
	case errors.Is(err, ErrNoForwardBars):
		return nil, exclusion(model.ReasonNoForwardBars, "")
	case err != nil:
		return nil, exclusion(model.ReasonNoForwardBars, err.Error())
	}
	return t, nil
}
