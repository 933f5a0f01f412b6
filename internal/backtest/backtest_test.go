package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"SignalBench/internal/indicator"
	"SignalBench/internal/model"
	"SignalBench/internal/weights"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func randomWalk(name string, n int, seed uint64) *model.Series {
	rng := rand.New(rand.NewPCG(seed, 99))
	s := &model.Series{Instrument: name}
	price := 50 + rng.Float64()*50
	for i := 0; i < n; i++ {
		next := price * math.Exp(0.001+rng.NormFloat64()*0.02)
		s.Bars = append(s.Bars, model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   math.Max(price, next) * (1 + rng.Float64()*0.01),
			Low:    math.Min(price, next) * (1 - rng.Float64()*0.01),
			Close:  next,
			Volume: 1e5 * (1 + rng.Float64()),
		})
		price = next
	}
	return s
}

func flatSeries(name string, n int) *model.Series {
	s := &model.Series{Instrument: name}
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, model.OHLCV{Time: start.AddDate(0, 0, i), Open: 100, High: 100, Low: 100, Close: 100, Volume: 5000})
	}
	return s
}

func hand(bars ...[4]float64) *model.Series {
	s := &model.Series{Instrument: "HAND"}
	for i, b := range bars {
		s.Bars = append(s.Bars, model.OHLCV{Time: start.AddDate(0, 0, i), Open: b[0], High: b[1], Low: b[2], Close: b[3], Volume: 1000})
	}
	return s
}

func universe(n, bars int) []*model.Series {
	out := make([]*model.Series, n)
	for i := range out {
		out[i] = randomWalk(fmt.Sprintf("I%02d", i), bars, uint64(i+1))
	}
	return out
}

func simulator(t *testing.T, cfg Config, s model.Strategy) *Simulator {
	t.Helper()
	sim, err := New(cfg, s, weights.Defaults(indicator.Default()))
	require.NoError(t, err)
	return sim
}

var plan100 = &model.TradePlan{Instrument: "HAND", EntryPrice: 100, StopPrice: 95, TargetPrice: 110}

func TestAdvanceStopWinsSameBar(t *testing.T) {
	sr := hand([4]float64{100, 101, 99, 100}, [4]float64{100, 111, 94, 100})

	tr, err := Advance(plan100, sr, 0, Config{})
	require.NoError(t, err)
	assert.Equal(t, model.ExitStop, tr.ExitReason)
	assert.Equal(t, 95.0, tr.ExitPrice)
	assert.InDelta(t, -5, tr.PnLPct, 1e-12)
	assert.Equal(t, 1, tr.BarsHeld)
	assert.Equal(t, sr.Bars[1].Time, tr.ExitDate)
	assert.Equal(t, model.StateClosedStop, tr.State())

	tr, err = Advance(plan100, sr, 0, Config{SameBarPolicy: TargetFirst})
	require.NoError(t, err)
	assert.Equal(t, model.ExitTarget, tr.ExitReason)
	assert.Equal(t, 110.0, tr.ExitPrice)
}

func TestAdvanceIgnoresEntryBar(t *testing.T) {
	sr := hand([4]float64{100, 120, 80, 100}, [4]float64{100, 112, 99, 111})
	tr, err := Advance(plan100, sr, 0, Config{})
	require.NoError(t, err)
	assert.Equal(t, model.ExitTarget, tr.ExitReason)
	assert.InDelta(t, 10, tr.PnLPct, 1e-12)
}

func TestAdvanceTimeExit(t *testing.T) {
	var bars [][4]float64
	for i := 0; i < 15; i++ {
		c := 100 + float64(i)*0.1
		bars = append(bars, [4]float64{c, c + 1, c - 1, c})
	}
	sr := hand(bars...)

	tr, err := Advance(plan100, sr, 0, Config{MaxHoldDays: 10})
	require.NoError(t, err)
	assert.Equal(t, model.ExitTimeExit, tr.ExitReason)
	assert.Equal(t, 10, tr.BarsHeld)
	assert.Equal(t, sr.Bars[10].Close, tr.ExitPrice)
	assert.Equal(t, model.StateClosedTime, tr.State())

	short := hand(bars[:4]...)
	tr, err = Advance(plan100, short, 0, Config{MaxHoldDays: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.BarsHeld, "series end closes the trade")

	_, err = Advance(plan100, short, 3, Config{})
	assert.ErrorIs(t, err, ErrNoForwardBars)
}

func TestAdvanceLimitFill(t *testing.T) {
	plan := &model.TradePlan{Instrument: "HAND", EntryPrice: 98, StopPrice: 93, TargetPrice: 108}
	sr := hand(
		[4]float64{100, 101, 99, 100},
		[4]float64{100, 101, 99, 100},
		[4]float64{100, 101, 97.5, 99},
		[4]float64{99, 109, 98, 108},
	)
	tr, err := Advance(plan, sr, 0, Config{FillMode: FillLimit, EntryWindowDays: 3})
	require.NoError(t, err)
	assert.Equal(t, sr.Bars[2].Time, tr.EntryDate)
	assert.Equal(t, model.ExitTarget, tr.ExitReason)

	_, err = Advance(plan, sr, 0, Config{FillMode: FillLimit, EntryWindowDays: 1})
	assert.ErrorIs(t, err, ErrNotFilled)
}

func TestFlatSeriesExcludedOnEveryDate(t *testing.T) {
	sim := simulator(t, Config{MinScore: -1000}, model.TrendFollowing)
	u := []*model.Series{flatSeries("FLAT", 60), randomWalk("LIVE", 60, 3)}

	for i := 0; i < 60; i++ {
		res, err := sim.RunDate(context.Background(), start.AddDate(0, 0, i), u, nil)
		require.NoError(t, err)
		var found bool
		for _, ex := range res.Exclusions {
			if ex.Instrument == "FLAT" {
				found = true
				assert.Equal(t, model.ReasonDeadOrFlat, ex.Reason)
			}
		}
		assert.True(t, found, "day %d", i)
		for _, tr := range res.Trades {
			assert.NotEqual(t, "FLAT", tr.Plan.Instrument)
		}
	}
}

func TestRunDateExclusions(t *testing.T) {
	missing := randomWalk("LATE", 200, 7)
	for i := range missing.Bars {
		missing.Bars[i].Time = missing.Bars[i].Time.AddDate(1, 0, 0)
	}
	broken := randomWalk("BROKEN", 200, 8)
	broken.Bars[50].Time = broken.Bars[49].Time
	thin := randomWalk("THIN", 200, 9)
	for i := range thin.Bars {
		thin.Bars[i].Volume = 10
	}

	sim := simulator(t, Config{MinAvgVolume: 1000}, model.TrendFollowing)
	res, err := sim.RunDate(context.Background(), start.AddDate(0, 0, 120), []*model.Series{missing, broken, thin}, nil)
	require.NoError(t, err)

	reasons := map[string]string{}
	for _, ex := range res.Exclusions {
		reasons[ex.Instrument] = ex.Reason
	}
	assert.Equal(t, model.ReasonNoBar, reasons["LATE"])
	assert.Equal(t, model.ReasonDataIntegrity, reasons["BROKEN"])
	assert.Equal(t, model.ReasonIlliquid, reasons["THIN"])
	assert.Zero(t, res.Scored)
	assert.Zero(t, res.TotalTrades)
}

func TestShortHistoryExcludedAsInsufficient(t *testing.T) {
	sim := simulator(t, Config{MinScore: -1000}, model.TrendFollowing)
	u := []*model.Series{randomWalk("YOUNG", 40, 4), flatSeries("FLAT", 40)}

	res, err := sim.RunDate(context.Background(), start.AddDate(0, 0, 5), u, nil)
	require.NoError(t, err)
	reasons := map[string]model.Exclusion{}
	for _, ex := range res.Exclusions {
		reasons[ex.Instrument] = ex
	}
	assert.Equal(t, model.ReasonInsufficientHistory, reasons["YOUNG"].Reason)
	assert.Contains(t, reasons["YOUNG"].Detail, "not enough data")
	assert.Equal(t, model.ReasonDeadOrFlat, reasons["FLAT"].Reason)

	res, err = sim.RunDate(context.Background(), start.AddDate(0, 0, 30), u, nil)
	require.NoError(t, err)
	assert.Zero(t, countReason(res.Exclusions, model.ReasonInsufficientHistory))
}

func TestRunDateSelectsTopK(t *testing.T) {
	sim := simulator(t, Config{MinScore: -1000, TopK: 3}, model.MeanReversion)
	u := universe(10, 200)
	res, err := sim.RunDate(context.Background(), start.AddDate(0, 0, 150), u, nil)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Scored)
	assert.Equal(t, 3, res.Selected)
	assert.Equal(t, res.Selected, res.TotalTrades+countReason(res.Exclusions, model.ReasonDegeneratePlan))
	for i := 1; i < len(res.Trades); i++ {
		assert.GreaterOrEqual(t, res.Trades[i-1].Plan.Score, res.Trades[i].Plan.Score)
	}
	assert.Equal(t, float64(res.WinningTrades)/float64(res.TotalTrades), res.WinRate)
}

func countReason(ex []model.Exclusion, reason string) int {
	n := 0
	for _, e := range ex {
		if e.Reason == reason {
			n++
		}
	}
	return n
}

func TestRunDateDeterministicAcrossWorkers(t *testing.T) {
	u := universe(12, 220)
	bench := randomWalk("BENCH", 220, 1000)
	date := start.AddDate(0, 0, 130)

	var results []*model.RunResult
	for _, workers := range []int{1, 4, 16, 16} {
		sim := simulator(t, Config{Workers: workers, MinScore: -1000}, model.TrendFollowing)
		res, err := sim.RunDate(context.Background(), date, u, bench)
		require.NoError(t, err)
		results = append(results, res)
	}
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, 12, results[0].Scored)
}

func TestScoreIgnoresFutureBars(t *testing.T) {
	sim := simulator(t, Config{}, model.TrendFollowing)
	sr := randomWalk("X", 200, 42)
	date := start.AddDate(0, 0, 100)

	before, ex, err := sim.Score(sr, date, nil)
	require.NoError(t, err)
	require.Nil(t, ex)
	planBefore, err := sim.planner.Plan(before, sr, 100)
	require.NoError(t, err)

	for i := 101; i < len(sr.Bars); i++ {
		sr.Bars[i].Close *= 3
		sr.Bars[i].High *= 3
		sr.Bars[i].Volume = 0
	}
	after, _, err := sim.Score(sr, date, nil)
	require.NoError(t, err)
	planAfter, err := sim.planner.Plan(after, sr, 100)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, planBefore, planAfter)
}

type fixedProbability float64

func (f fixedProbability) PredictWinProbability(string, time.Time) (float64, error) {
	return float64(f), nil
}

type failingProbability struct{}

func (failingProbability) PredictWinProbability(string, time.Time) (float64, error) {
	return 0, errors.New("model offline")
}

func TestWinProbabilityIsPassThrough(t *testing.T) {
	u := universe(8, 200)
	date := start.AddDate(0, 0, 120)
	base := simulator(t, Config{MinScore: -1000}, model.TrendFollowing)

	plain, err := base.RunDate(context.Background(), date, u, nil)
	require.NoError(t, err)
	enriched, err := base.WithWinProbability(fixedProbability(0.7)).RunDate(context.Background(), date, u, nil)
	require.NoError(t, err)
	failing, err := base.WithWinProbability(failingProbability{}).RunDate(context.Background(), date, u, nil)
	require.NoError(t, err)

	require.Len(t, enriched.Trades, len(plain.Trades))
	require.NotEmpty(t, plain.Trades)
	for i := range plain.Trades {
		assert.Equal(t, plain.Trades[i].Plan.Instrument, enriched.Trades[i].Plan.Instrument)
		require.NotNil(t, enriched.Trades[i].Plan.WinProbability)
		assert.Equal(t, 0.7, *enriched.Trades[i].Plan.WinProbability)
		assert.Nil(t, failing.Trades[i].Plan.WinProbability)
	}
}

type missingProbability struct{}

func (missingProbability) PredictWinProbability(instrument string, date time.Time) (float64, error) {
	return 0, fmt.Errorf("%s on %s: %w", instrument, date.Format("2006-01-02"), model.ErrNotFound)
}

func TestMissingWinProbabilityLeavesPlanUnset(t *testing.T) {
	u := universe(6, 200)
	date := start.AddDate(0, 0, 120)
	base := simulator(t, Config{MinScore: -1000}, model.TrendFollowing)

	plain, err := base.RunDate(context.Background(), date, u, nil)
	require.NoError(t, err)
	missing, err := base.WithWinProbability(missingProbability{}).RunDate(context.Background(), date, u, nil)
	require.NoError(t, err)

	assert.Equal(t, plain, missing)
	for _, tr := range missing.Trades {
		assert.Nil(t, tr.Plan.WinProbability)
	}
}

func TestRunDateHonoursCancelledContext(t *testing.T) {
	sim := simulator(t, Config{}, model.TrendFollowing)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.RunDate(ctx, start.AddDate(0, 0, 100), universe(3, 150), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Equal(t, 5, DefaultConfig().TopK)
	assert.Equal(t, StopFirst, DefaultConfig().SameBarPolicy)

	_, err := New(Config{FillMode: "market"}, model.TrendFollowing, weights.Defaults(indicator.Default()))
	assert.Error(t, err)
	_, err = New(Config{TopK: -1}, model.TrendFollowing, weights.Defaults(indicator.Default()))
	assert.Error(t, err)
	_, err = New(Config{}, model.Strategy("swing"), weights.Defaults(indicator.Default()))
	var ce *model.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}
