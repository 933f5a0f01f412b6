// Package report renders experiment, comparison and calibration results as plain text
// and stores them as JSON artifacts.
package report

import (
	"fmt"
	"sort"
	"strings"

	"SignalBench/internal/experiment"
	"SignalBench/internal/model"
	"SignalBench/internal/stats"
)

// Alpha is the significance level used to flag test results.
const Alpha = 0.05

// FormatBreakdown formats one instrument's score with every contribution.
func FormatBreakdown(bd *model.ScoreBreakdown) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s | %s | %s\n", bd.Instrument, bd.AsOf.Format("2006-01-02"), bd.Strategy))
	for _, d := range bd.Details {
		b.WriteString(fmt.Sprintf("  %-14s %-20s %+6.2f (x%.2f) = %+7.2f\n",
			d.Category, d.Indicator, d.Raw, d.Multiplier, d.Points))
	}
	if len(bd.Abstained) > 0 {
		b.WriteString(fmt.Sprintf("  abstained: %s\n", strings.Join(bd.Abstained, ", ")))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  total: %+.2f  tier: %s\n", bd.Total, bd.Tier))
	return b.String()
}

// FormatExperiment formats the pooled statistics, the per-run table and the exclusions.
func FormatExperiment(res *model.ExperimentResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Experiment %s | %s | id %s\n", res.Label, res.Strategy, res.ID))
	b.WriteString(fmt.Sprintf("runs %d/%d, sample size %d, seed %d", res.Completed, res.Runs, res.SampleSize, res.Seed))
	if res.Cancelled {
		b.WriteString(" (cancelled)")
	}
	b.WriteString("\n\n")

	b.WriteString(formatSummary("pooled", res.Pooled))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%-4s %-10s %6s %6s %7s %8s %8s %8s %6s %6s\n",
		"run", "date", "trades", "wins", "win%", "avg%", "sharpe", "maxdd", "scored", "excl"))
	for _, r := range res.RunResults {
		b.WriteString(fmt.Sprintf("%-4d %-10s %6d %6d %6.1f%% %+8.2f %8.2f %8.2f %6d %6d\n",
			r.Run, r.Date.Format("2006-01-02"), r.TotalTrades, r.WinningTrades, r.WinRate*100,
			r.AvgPnL, r.SharpeRatio, r.MaxDrawdown, r.Scored, len(r.Exclusions)))
	}

	if len(res.Exclusions) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatExclusions(res.Exclusions))
	}
	if len(res.Skipped) > 0 {
		b.WriteString("\nSkipped at load ")
		b.WriteString(FormatExclusions(res.Skipped))
	}
	return b.String()
}

func formatSummary(name string, r model.RunResult) string {
	return fmt.Sprintf("%s: trades %d, wins %d, win rate %.1f%%, avg %+.2f%%, total %+.2f%%, sharpe %.3f, max drawdown %.2f%%\n",
		name, r.TotalTrades, r.WinningTrades, r.WinRate*100, r.AvgPnL, r.TotalPnL, r.SharpeRatio, r.MaxDrawdown)
}

// FormatExclusions groups exclusions by reason and lists each instrument/date.
func FormatExclusions(ex []model.Exclusion) string {
	byReason := make(map[string][]model.Exclusion)
	for _, e := range ex {
		byReason[e.Reason] = append(byReason[e.Reason], e)
	}
	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Exclusions (%d):\n", len(ex)))
	for _, r := range reasons {
		list := byReason[r]
		b.WriteString(fmt.Sprintf("  %s: %d\n", r, len(list)))
		for _, e := range list {
			line := "    " + e.Instrument
			if !e.Date.IsZero() {
				line = fmt.Sprintf("    %s %s", e.Date.Format("2006-01-02"), e.Instrument)
			}
			if e.Detail != "" {
				line += " (" + e.Detail + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// FormatComparison formats every pairwise test between two experiments.
func FormatComparison(c *stats.Comparison) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s vs %s\n", c.LabelA, c.LabelB))
	b.WriteString(fmt.Sprintf("  trades:   %d vs %d\n", c.NA, c.NB))
	b.WriteString(fmt.Sprintf("  avg P&L:  %+.3f%% vs %+.3f%%\n", c.MeanA, c.MeanB))
	b.WriteString(fmt.Sprintf("  win rate: %.1f%% vs %.1f%%\n", c.WinRateA*100, c.WinRateB*100))
	for _, t := range []stats.TestResult{c.TTest, c.RankSum, c.ChiSquare} {
		b.WriteString("  " + formatTest(t) + "\n")
	}
	if c.CohensD.Computable {
		b.WriteString(fmt.Sprintf("  cohen's d: %+.3f (%s)\n", c.CohensD.D, c.CohensD.Magnitude))
	} else {
		b.WriteString(fmt.Sprintf("  cohen's d: not computable (%s)\n", c.CohensD.Reason))
	}
	return b.String()
}

func formatTest(t stats.TestResult) string {
	if !t.Computable {
		return fmt.Sprintf("%s: not computable (%s)", t.Name, t.Reason)
	}
	mark := ""
	if t.Significant(Alpha) {
		mark = " *"
	}
	return fmt.Sprintf("%s: statistic %.4f, p %.4f%s", t.Name, t.Statistic, t.PValue, mark)
}

// FormatCalibration formats a multiplier sweep, one row per multiplier.
func FormatCalibration(cal *experiment.Calibration) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Calibration %s.%s\n", cal.Strategy, cal.Indicator))
	b.WriteString(fmt.Sprintf("%-6s %6s %7s %8s %8s %8s %8s %8s\n",
		"mult", "trades", "win%", "avg%", "sharpe", "p(t)", "p(rank)", "p(chi2)"))
	for i, p := range cal.Points {
		r := p.Result.Pooled
		pt, pr, pc := "-", "-", "-"
		if p.VsBaseline != nil {
			pt, pr, pc = pCell(p.VsBaseline.TTest), pCell(p.VsBaseline.RankSum), pCell(p.VsBaseline.ChiSquare)
		}
		mark := ""
		if i == cal.Best {
			mark = "  <- best"
		}
		b.WriteString(fmt.Sprintf("%-6g %6d %6.1f%% %+8.2f %8.2f %8s %8s %8s%s\n",
			p.Multiplier, r.TotalTrades, r.WinRate*100, r.AvgPnL, r.SharpeRatio, pt, pr, pc, mark))
	}
	if cal.BestPoint() == nil {
		b.WriteString("no multiplier produced trades\n")
	}
	return b.String()
}

func pCell(t stats.TestResult) string {
	if !t.Computable {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", t.PValue)
}
