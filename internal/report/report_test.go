package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SignalBench/internal/experiment"
	"SignalBench/internal/model"
	"SignalBench/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func trade(run, exitDay int, pnl float64) model.Trade {
	return model.Trade{
		Plan:       model.TradePlan{Instrument: "AAA", Strategy: model.TrendFollowing},
		Run:        run,
		EntryDate:  day(exitDay - 1),
		ExitDate:   day(exitDay),
		ExitReason: model.ExitTarget,
		PnLPct:     pnl,
	}
}

func experimentResult(label string, pnls ...float64) *model.ExperimentResult {
	res := &model.ExperimentResult{
		ID: "0123456789abcdef", Label: label, Strategy: model.TrendFollowing,
		Runs: 2, SampleSize: 10, Completed: 2, Seed: 42,
		Exclusions: []model.Exclusion{
			{Instrument: "FLAT", Date: day(4), Reason: model.ReasonDeadOrFlat, Detail: "atr 0.10%"},
			{Instrument: "GAP", Date: day(4), Reason: model.ReasonDataIntegrity},
			{Instrument: "FLAT", Date: day(5), Reason: model.ReasonDeadOrFlat},
		},
	}
	for i, p := range pnls {
		res.Trades = append(res.Trades, trade(i%2, 10+i, p))
	}
	res.Pooled = stats.Summarize(res.Trades)
	res.RunResults = []model.RunResult{{Run: 0, Date: day(4)}, {Run: 1, Date: day(5)}}
	return res
}

func TestFormatExperimentListsExclusionsByReason(t *testing.T) {
	out := FormatExperiment(experimentResult("baseline", 2, -1, 3))

	assert.Contains(t, out, "Experiment baseline")
	assert.Contains(t, out, "runs 2/2, sample size 10, seed 42")
	assert.Contains(t, out, "pooled: trades 3, wins 2")
	assert.Contains(t, out, "Exclusions (3):")
	assert.Contains(t, out, "  data_integrity: 1\n")
	assert.Contains(t, out, "  dead_or_flat: 2\n")
	assert.Contains(t, out, "2024-03-04 FLAT (atr 0.10%)")
	assert.Less(t, strings.Index(out, "data_integrity"), strings.Index(out, "dead_or_flat"))
}

func TestFormatExperimentListsLoadSkips(t *testing.T) {
	res := experimentResult("baseline", 1)
	assert.NotContains(t, FormatExperiment(res), "Skipped at load")

	res.Skipped = []model.Exclusion{
		{Instrument: "GONE", Reason: model.ReasonNotFound},
		{Instrument: "DUP", Reason: model.ReasonDataIntegrity, Detail: "duplicate date 2024-01-02"},
	}
	out := FormatExperiment(res)
	assert.Contains(t, out, "Skipped at load Exclusions (2):")
	assert.Contains(t, out, "  not_found: 1\n    GONE\n")
	assert.Contains(t, out, "    DUP (duplicate date 2024-01-02)\n")
	assert.NotContains(t, out, "0001-01-01")
	assert.Less(t, strings.Index(out, "Exclusions (3):"), strings.Index(out, "Skipped at load"))
}

func TestFormatComparison(t *testing.T) {
	a := experimentResult("a", 1, 2, 3, 4, 5)
	b := experimentResult("b", 1, 2, 3, 4, 5)
	cmp, err := stats.Compare(a, b)
	require.NoError(t, err)

	out := FormatComparison(cmp)
	assert.Contains(t, out, "a vs b")
	assert.Contains(t, out, "trades:   5 vs 5")
	assert.NotContains(t, out, " *\n")

	empty := stats.CompareTrades("x", nil, "y", nil)
	assert.Contains(t, FormatComparison(empty), "not computable")
}

func TestFormatCalibrationMarksBest(t *testing.T) {
	base := experimentResult("base", -1, -2)
	better := experimentResult("better", 3, 4)
	cmp, err := stats.Compare(base, better)
	require.NoError(t, err)
	cal := &experiment.Calibration{
		Strategy: model.TrendFollowing, Indicator: "volume_surge", Best: 1,
		Points: []experiment.CalibrationPoint{
			{Multiplier: 0, Result: base},
			{Multiplier: 2, Result: better, VsBaseline: cmp},
		},
	}
	out := FormatCalibration(cal)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "0 "))
	assert.NotContains(t, lines[2], "best")
	assert.Contains(t, lines[3], "<- best")

	cal.Best = -1
	assert.Contains(t, FormatCalibration(cal), "no multiplier produced trades")
}

func TestFormatBreakdown(t *testing.T) {
	bd := &model.ScoreBreakdown{
		Instrument: "AAA", AsOf: day(8), Strategy: model.TrendFollowing,
		Details: []model.Contribution{
			{Indicator: "breakout_20d", Category: "price_action", Raw: 8, Multiplier: 1.5, Points: 12},
		},
		Abstained: []string{"near_high_52w"},
		Total:     12, Tier: model.TierLow,
	}
	out := FormatBreakdown(bd)
	assert.Contains(t, out, "AAA | 2024-03-08 | trend_following")
	assert.Contains(t, out, "breakout_20d")
	assert.Contains(t, out, "abstained: near_high_52w")
	assert.Contains(t, out, "tier: LOW")
}

func TestArtifactRoundTrip(t *testing.T) {
	res := experimentResult("trend_following.hammer@1", 1.5, -0.5)
	path := filepath.Join(t.TempDir(), "out", ArtifactName("experiment", res.Label, res.ID))
	assert.Equal(t, "experiment_trend_following.hammer_1_01234567.json", filepath.Base(path))

	require.NoError(t, SaveJSON(path, res))
	got, err := LoadExperiment(path)
	require.NoError(t, err)
	assert.Equal(t, res.Label, got.Label)
	assert.Equal(t, res.Pooled, got.Pooled)
	assert.Len(t, got.Trades, 2)
	assert.True(t, res.Comparable(got))

	cal := &experiment.Calibration{Strategy: model.MeanReversion, Indicator: "hammer", Best: 0,
		Points: []experiment.CalibrationPoint{{Multiplier: 1, Result: res}}}
	calPath := filepath.Join(t.TempDir(), "cal.json")
	require.NoError(t, SaveJSON(calPath, cal))
	gotCal, err := LoadCalibration(calPath)
	require.NoError(t, err)
	assert.Equal(t, "hammer", gotCal.Indicator)
	assert.Equal(t, 1.0, gotCal.BestPoint().Multiplier)

	_, err = LoadExperiment(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
