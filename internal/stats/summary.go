// Package stats computes run metrics and pairwise significance tests over trade sets.
//
// Degenerate inputs never panic or error: tests report Computable=false with a Reason.
package stats

import (
	"math"
	"sort"

	"SignalBench/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Chronological returns a copy of trades ordered by exit date, then entry date,
// instrument and run.
func Chronological(trades []model.Trade) []model.Trade {
	out := make([]model.Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ExitDate.Equal(b.ExitDate) {
			return a.ExitDate.Before(b.ExitDate)
		}
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.Before(b.EntryDate)
		}
		if a.Plan.Instrument != b.Plan.Instrument {
			return a.Plan.Instrument < b.Plan.Instrument
		}
		return a.Run < b.Run
	})
	return out
}

// Summarize fills the metric fields of a RunResult from trades. Trade and exclusion
// lists are left for the caller.
func Summarize(trades []model.Trade) model.RunResult {
	ordered := Chronological(trades)
	pnls := make([]float64, len(ordered))
	var r model.RunResult
	for i, t := range ordered {
		pnls[i] = t.PnLPct
		r.TotalPnL += t.PnLPct
		if t.Win() {
			r.WinningTrades++
		}
	}
	r.TotalTrades = len(trades)
	r.WinRate = WinRate(r.WinningTrades, r.TotalTrades)
	if r.TotalTrades > 0 {
		r.AvgPnL = r.TotalPnL / float64(r.TotalTrades)
	}
	r.SharpeRatio = Sharpe(pnls)
	r.MaxDrawdown = MaxDrawdown(pnls)
	return r
}

// WinRate returns wins/total, with 0/0 defined as 0.
func WinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// Sharpe returns mean/population stddev of per-trade returns, 0 with fewer than two
// trades or zero dispersion.
func Sharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	sd := math.Sqrt(stat.PopVariance(pnls, nil))
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return stat.Mean(pnls, nil) / sd
}

// MaxDrawdown returns the largest peak-to-trough decline, in percentage points, of the
// cumulative return curve built by adding pnls in order. The curve starts at 0.
func MaxDrawdown(pnls []float64) float64 {
	var cum, peak, dd float64
	for _, p := range pnls {
		cum += p
		if cum > peak {
			peak = cum
		}
		if peak-cum > dd {
			dd = peak - cum
		}
	}
	return dd
}
