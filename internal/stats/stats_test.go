package stats

import (
	"errors"
	"math"
	"testing"
	"time"

	"SignalBench/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func trade(inst string, exitDay int, pnl float64) model.Trade {
	return model.Trade{
		Plan:      model.TradePlan{Instrument: inst},
		EntryDate: day0,
		ExitDate:  day0.AddDate(0, 0, exitDay),
		PnLPct:    pnl,
	}
}

func TestWinRateIdentity(t *testing.T) {
	assert.Equal(t, 0.0, WinRate(0, 0))
	assert.Equal(t, 0.75, WinRate(3, 4))

	trades := []model.Trade{trade("A", 1, 2), trade("B", 2, -1), trade("C", 3, 0), trade("D", 4, 5)}
	r := Summarize(trades)
	assert.Equal(t, 4, r.TotalTrades)
	assert.Equal(t, 2, r.WinningTrades, "zero P&L is not a win")
	assert.Equal(t, float64(r.WinningTrades)/float64(r.TotalTrades), r.WinRate)
	assert.InDelta(t, 6, r.TotalPnL, 1e-12)
	assert.InDelta(t, 1.5, r.AvgPnL, 1e-12)

	empty := Summarize(nil)
	assert.Equal(t, model.RunResult{}, empty)
}

func TestSharpe(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe(nil))
	assert.Equal(t, 0.0, Sharpe([]float64{4}))
	assert.Equal(t, 0.0, Sharpe([]float64{2, 2, 2}))
	assert.InDelta(t, 3, Sharpe([]float64{2, 4}), 1e-12)
	assert.InDelta(t, 0, Sharpe([]float64{1, -1}), 1e-12)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 2, 3}))
	assert.InDelta(t, 7, MaxDrawdown([]float64{5, -3, -4, 6, -1}), 1e-12)
	assert.InDelta(t, 3, MaxDrawdown([]float64{-1, -2}), 1e-12, "curve starts at zero")
}

func TestSummarizeOrdersChronologically(t *testing.T) {
	// Exit order is +5, -3, -4, +6, -1 regardless of slice order.
	trades := []model.Trade{
		trade("D", 4, 6), trade("A", 1, 5), trade("E", 5, -1), trade("C", 3, -4), trade("B", 2, -3),
	}
	r := Summarize(trades)
	assert.InDelta(t, 7, r.MaxDrawdown, 1e-12)

	ordered := Chronological(trades)
	for i, want := range []string{"A", "B", "C", "D", "E"} {
		assert.Equal(t, want, ordered[i].Plan.Instrument)
	}
	assert.Equal(t, "D", trades[0].Plan.Instrument, "input untouched")
}

func TestWelchTTest(t *testing.T) {
	r := WelchTTest([]float64{1, 2, 3, 4, 5}, []float64{3, 4, 5, 6, 7})
	require.True(t, r.Computable)
	assert.InDelta(t, -2, r.Statistic, 1e-12)
	assert.InDelta(t, 0.0805, r.PValue, 1e-3)
	assert.False(t, r.Significant(0.05))
	assert.True(t, r.Significant(0.1))
}

func TestRankSum(t *testing.T) {
	r := RankSum([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.True(t, r.Computable)
	assert.Equal(t, 0.0, r.Statistic)
	assert.InDelta(t, 0.0809, r.PValue, 2e-3)

	r = RankSum([]float64{1, 1, 2}, []float64{1, 2, 2})
	require.True(t, r.Computable, "ties are corrected, not rejected")
}

func TestChiSquare(t *testing.T) {
	r := ChiSquare(30, 10, 10, 30)
	require.True(t, r.Computable)
	assert.InDelta(t, 20, r.Statistic, 1e-12)
	assert.Less(t, r.PValue, 1e-4)

	r = ChiSquare(10, 10, 10, 10)
	assert.InDelta(t, 1, r.PValue, 1e-12)
}

func TestCohensD(t *testing.T) {
	e := CohensD([]float64{1, 2, 3, 4, 5}, []float64{3, 4, 5, 6, 7})
	require.True(t, e.Computable)
	assert.InDelta(t, -2/math.Sqrt(2.5), e.D, 1e-12)
	assert.Equal(t, "large", e.Magnitude)
}

func TestDegenerateInputsAreNotComputable(t *testing.T) {
	tests := []struct {
		name string
		got  TestResult
	}{
		{"t empty", WelchTTest(nil, []float64{1, 2})},
		{"t single", WelchTTest([]float64{1}, []float64{1, 2})},
		{"t zero variance", WelchTTest([]float64{2, 2}, []float64{2, 2, 2})},
		{"rank empty", RankSum(nil, []float64{1})},
		{"rank all tied", RankSum([]float64{3, 3}, []float64{3})},
		{"chi empty sample", ChiSquare(0, 0, 3, 4)},
		{"chi all wins", ChiSquare(5, 0, 7, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.got.Computable)
			assert.NotEmpty(t, tt.got.Reason)
		})
	}

	assert.False(t, CohensD(nil, nil).Computable)
	assert.False(t, CohensD([]float64{1, 1}, []float64{1, 1}).Computable)
}

// Two experiments built from the same 50 trades split identically show no difference.
func TestCompareIdenticalSplits(t *testing.T) {
	all := make([]model.Trade, 50)
	for i := range all {
		pnl := math.Sin(float64(i)*1.7) * 4
		all[i] = trade("X", i%25, pnl)
	}
	half := all[:25]
	a := &model.ExperimentResult{Label: "a", Runs: 5, SampleSize: 10, Trades: half}
	b := &model.ExperimentResult{Label: "b", Runs: 5, SampleSize: 10, Trades: append([]model.Trade(nil), half...)}

	c, err := Compare(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.TTest.PValue, 1e-9)
	assert.InDelta(t, 0.0, c.CohensD.D, 1e-12)
	assert.InDelta(t, 1.0, c.RankSum.PValue, 1e-9)
	assert.InDelta(t, 1.0, c.ChiSquare.PValue, 1e-9)
	assert.Equal(t, c.MeanA, c.MeanB)
}

func TestCompareRejectsDifferentSampling(t *testing.T) {
	a := &model.ExperimentResult{Runs: 5, SampleSize: 10}
	b := &model.ExperimentResult{Runs: 6, SampleSize: 10}
	_, err := Compare(a, b)
	assert.True(t, errors.Is(err, model.ErrIncomparable))
}

func TestCompareEmptyExperiments(t *testing.T) {
	c := CompareTrades("a", nil, "b", nil)
	assert.False(t, c.TTest.Computable)
	assert.False(t, c.RankSum.Computable)
	assert.False(t, c.ChiSquare.Computable)
	assert.False(t, c.CohensD.Computable)
	assert.Zero(t, c.MeanA)
}
