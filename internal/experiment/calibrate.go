package experiment

import (
	"context"
	"errors"
	"fmt"

	"SignalBench/internal/model"
	"SignalBench/internal/recorder"
	"SignalBench/internal/stats"

	"github.com/rs/zerolog/log"
)

// CalibrationPoint is one multiplier's isolated experiment and its comparison to the baseline.
type CalibrationPoint struct {
	Multiplier float64                 `json:"multiplier"`
	Result     *model.ExperimentResult `json:"result"`
	VsBaseline *stats.Comparison       `json:"vs_baseline,omitempty"`
}

// Calibration is a sweep of isolated experiments over multipliers for one indicator.
// The first point is the baseline.
type Calibration struct {
	Strategy  model.Strategy     `json:"strategy"`
	Indicator string             `json:"indicator"`
	Points    []CalibrationPoint `json:"points"`
	Best      int                `json:"best"`
}

// BestPoint returns the point with the highest pooled average P&L.
func (c *Calibration) BestPoint() *CalibrationPoint {
	if c.Best < 0 || c.Best >= len(c.Points) {
		return nil
	}
	return &c.Points[c.Best]
}

// Calibrate runs an isolated experiment per multiplier. Every experiment shares the same
// sampled dates and instruments, so differences come from the multiplier alone.
// On cancellation the points finished so far are returned with ctx's error.
func (h *Harness) Calibrate(ctx context.Context, s model.Strategy, id string, multipliers []float64) (*Calibration, error) {
	if len(multipliers) == 0 {
		return nil, errors.New("calibrate: no multipliers")
	}
	cal := &Calibration{Strategy: s, Indicator: id, Best: -1}
	for _, m := range multipliers {
		res, err := h.RunIsolated(ctx, s, id, m)
		if res != nil && !res.Cancelled {
			p := CalibrationPoint{Multiplier: m, Result: res}
			if len(cal.Points) > 0 {
				cmp, cerr := stats.Compare(cal.Points[0].Result, res)
				if cerr != nil {
					return cal, cerr
				}
				p.VsBaseline = cmp
			}
			cal.Points = append(cal.Points, p)
		}
		if err != nil {
			cal.pickBest()
			return cal, fmt.Errorf("calibrate %s.%s at %g: %w", s, id, m, err)
		}
	}
	cal.pickBest()

	if best := cal.BestPoint(); best != nil {
		log.Info().
			Str("strategy", string(s)).
			Str("indicator", id).
			Float64("best_multiplier", best.Multiplier).
			Float64("best_avg_pnl", best.Result.Pooled.AvgPnL).
			Float64("baseline_avg_pnl", cal.Points[0].Result.Pooled.AvgPnL).
			Msg("Calibration finished")
	}
	if err := h.recorder.RecordCalibration(cal.Event()); err != nil {
		log.Error().Err(err).Str("indicator", id).Msg("Failed to record calibration")
	}
	return cal, nil
}

func (c *Calibration) pickBest() {
	c.Best = -1
	for i, p := range c.Points {
		if p.Result.Pooled.TotalTrades == 0 {
			continue
		}
		if c.Best < 0 || p.Result.Pooled.AvgPnL > c.Points[c.Best].Result.Pooled.AvgPnL {
			c.Best = i
		}
	}
}

// Event converts the sweep into a recorder row.
func (c *Calibration) Event() *recorder.CalibrationEvent {
	evt := &recorder.CalibrationEvent{Strategy: c.Strategy, Indicator: c.Indicator}
	for _, p := range c.Points {
		evt.ExperimentIDs = append(evt.ExperimentIDs, p.Result.ID)
	}
	if len(c.Points) == 0 {
		return evt
	}
	base := c.Points[0]
	evt.BaselineMultiplier, evt.BaselineAvgPnL = base.Multiplier, base.Result.Pooled.AvgPnL
	best := c.BestPoint()
	if best == nil {
		return evt
	}
	evt.BestMultiplier, evt.BestAvgPnL = best.Multiplier, best.Result.Pooled.AvgPnL
	if cmp := best.VsBaseline; cmp != nil {
		evt.TTestP = pValue(cmp.TTest)
		evt.RankSumP = pValue(cmp.RankSum)
		evt.ChiSquareP = pValue(cmp.ChiSquare)
		if cmp.CohensD.Computable {
			d := cmp.CohensD.D
			evt.CohensD = &d
		}
	}
	return evt
}

func pValue(t stats.TestResult) *float64 {
	if !t.Computable {
		return nil
	}
	p := t.PValue
	return &p
}
