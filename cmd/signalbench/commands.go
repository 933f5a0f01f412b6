package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"SignalBench/internal/backtest"
	"SignalBench/internal/model"
	"SignalBench/internal/report"
	"SignalBench/internal/scheduler"
	"SignalBench/internal/stats"
	"SignalBench/internal/strategy"
	"SignalBench/internal/weights"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) runValidate(cmd *cobra.Command, _ []string) error {
	w, err := a.loadWeights()
	if err != nil {
		return err
	}
	for _, s := range model.Strategies {
		enabled, total := 0, 0
		for _, e := range a.reg.Entries(s) {
			total++
			if w.Enabled(e.Key()) {
				enabled++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d indicators enabled\n", s, enabled, total)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "config ok (%s, weights %s)\n", a.cfg.DataDir, a.cfg.WeightsFile)
	return nil
}

func (a *app) runScore(cmd *cobra.Command, _ []string) error {
	s, err := strategyFlag(cmd)
	if err != nil {
		return err
	}
	w, err := a.loadWeights()
	if err != nil {
		return err
	}
	sim, err := backtest.New(a.cfg.Backtest, s, w)
	if err != nil {
		return err
	}
	u, err := a.loadUniverse()
	if err != nil {
		return err
	}
	date, err := asOfDate(cmd, u)
	if err != nil {
		return err
	}
	series := u.Series
	if id, _ := cmd.Flags().GetString("instrument"); id != "" {
		sr := u.Get(id)
		if sr == nil {
			return fmt.Errorf("instrument %s: %w", id, model.ErrNotFound)
		}
		series = []*model.Series{sr}
	}

	rec := a.openRecorder(false)
	defer rec.Close()

	var scored []*model.ScoreBreakdown
	var excluded []model.Exclusion
	for _, sr := range series {
		bd, ex, err := sim.Score(sr, date, u.Benchmark)
		if err != nil {
			return err
		}
		if ex != nil {
			excluded = append(excluded, *ex)
			continue
		}
		scored = append(scored, bd)
		log.Debug().Msg(strategy.Explain(bd))
		if err := rec.RecordBreakdown(bd); err != nil {
			log.Error().Err(err).Str("instrument", bd.Instrument).Msg("Failed to record breakdown")
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Total != scored[j].Total {
			return scored[i].Total > scored[j].Total
		}
		return scored[i].Instrument < scored[j].Instrument
	})

	out := cmd.OutOrStdout()
	for _, bd := range scored {
		fmt.Fprintln(out, report.FormatBreakdown(bd))
	}
	if len(excluded) > 0 {
		fmt.Fprint(out, report.FormatExclusions(excluded))
	}
	return nil
}

func (a *app) runBacktest(cmd *cobra.Command, _ []string) error {
	s, err := strategyFlag(cmd)
	if err != nil {
		return err
	}
	w, err := a.loadWeights()
	if err != nil {
		return err
	}
	sim, err := backtest.New(a.cfg.Backtest, s, w)
	if err != nil {
		return err
	}
	wp, err := a.winProbability()
	if err != nil {
		return err
	}
	if wp != nil {
		sim = sim.WithWinProbability(wp)
	}
	u, err := a.loadUniverse()
	if err != nil {
		return err
	}
	date, err := asOfDate(cmd, u)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := sim.RunDate(ctx, date, u.Series, u.Benchmark)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Backtest %s | %s | universe %d, scored %d, below threshold %d, selected %d\n\n",
		s, date.Format("2006-01-02"), len(u.Series), res.Scored, res.BelowThreshold, res.Selected))
	for _, t := range res.Trades {
		b.WriteString(fmt.Sprintf("  %-8s %-7s score %6.1f entry %9.2f stop %9.2f target %9.2f -> %-9s %s %+6.2f%% (%d bars)\n",
			t.Plan.Instrument, t.Plan.Tier, t.Plan.Score, t.Plan.EntryPrice, t.Plan.StopPrice, t.Plan.TargetPrice,
			t.ExitReason, t.ExitDate.Format("2006-01-02"), t.PnLPct, t.BarsHeld))
	}
	b.WriteString(fmt.Sprintf("\ntrades %d, win rate %.1f%%, avg %+.2f%%, sharpe %.3f, max drawdown %.2f%%\n",
		res.TotalTrades, res.WinRate*100, res.AvgPnL, res.SharpeRatio, res.MaxDrawdown))
	if len(res.Exclusions) > 0 {
		b.WriteString("\n" + report.FormatExclusions(res.Exclusions))
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	a.saveArtifacts("backtest", string(s)+"_"+date.Format("20060102"), "", res, b.String())
	return nil
}

func (a *app) runExperiment(cmd *cobra.Command, _ []string) error {
	s, err := strategyFlag(cmd)
	if err != nil {
		return err
	}
	u, err := a.loadUniverse()
	if err != nil {
		return err
	}
	rec := a.openRecorder(false)
	defer rec.Close()
	m, stopMetrics := a.startMetrics()
	defer stopMetrics()
	h, err := a.harness(u, rec, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *model.ExperimentResult
	if id, _ := cmd.Flags().GetString("isolate"); id != "" {
		mult, _ := cmd.Flags().GetFloat64("multiplier")
		res, err = h.RunIsolated(ctx, s, id, mult)
	} else {
		w, werr := a.loadWeights()
		if werr != nil {
			return werr
		}
		label, _ := cmd.Flags().GetString("label")
		if label == "" {
			label = strings.TrimSuffix(filepath.Base(a.cfg.WeightsFile), filepath.Ext(a.cfg.WeightsFile))
		}
		res, err = h.Run(ctx, label, s, w)
	}
	if res != nil {
		text := report.FormatExperiment(res)
		fmt.Fprint(cmd.OutOrStdout(), text)
		a.saveArtifacts("experiment", res.Label, res.ID, res, text)
	}
	return err
}

func (a *app) runCalibrate(cmd *cobra.Command, _ []string) error {
	s, err := strategyFlag(cmd)
	if err != nil {
		return err
	}
	id, _ := cmd.Flags().GetString("indicator")
	if id == "" {
		return fmt.Errorf("--indicator is required")
	}
	multipliers, _ := cmd.Flags().GetFloat64Slice("multipliers")
	if len(multipliers) == 0 {
		return fmt.Errorf("--multipliers is empty")
	}
	// Fail fast on an unknown indicator before loading any series.
	if _, err := weights.Isolated(a.reg, s, id, multipliers[0]); err != nil {
		return err
	}

	u, err := a.loadUniverse()
	if err != nil {
		return err
	}
	rec := a.openRecorder(false)
	defer rec.Close()
	m, stopMetrics := a.startMetrics()
	defer stopMetrics()
	h, err := a.harness(u, rec, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cal, err := h.Calibrate(ctx, s, id, multipliers)
	if cal != nil && len(cal.Points) > 0 {
		text := report.FormatCalibration(cal)
		fmt.Fprint(cmd.OutOrStdout(), text)
		a.saveArtifacts("calibration", string(s)+"."+id, cal.Points[0].Result.ID, cal, text)
	}
	return err
}

func (a *app) runCompare(cmd *cobra.Command, args []string) error {
	ea, err := report.LoadExperiment(args[0])
	if err != nil {
		return err
	}
	eb, err := report.LoadExperiment(args[1])
	if err != nil {
		return err
	}
	cmp, err := stats.Compare(ea, eb)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatComparison(cmp))
	return nil
}

func (a *app) runReport(cmd *cobra.Command, args []string) error {
	cal, err := report.LoadCalibration(args[0])
	if err != nil {
		return err
	}
	if len(cal.Points) == 0 {
		return fmt.Errorf("%s: calibration has no points", args[0])
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatCalibration(cal))
	return nil
}

func (a *app) runSchedule(cmd *cobra.Command, _ []string) error {
	if len(a.cfg.Schedule.Jobs) == 0 {
		return fmt.Errorf("schedule.jobs is empty")
	}
	u, err := a.loadUniverse()
	if err != nil {
		return err
	}
	rec := a.openRecorder(true)
	defer rec.Close()
	m, stopMetrics := a.startMetrics()
	defer stopMetrics()
	h, err := a.harness(u, rec, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, h, a.cfg.Schedule.Jobs, a.outDir)
	if err := sched.Register(a.cfg.Schedule.CalibrationCron); err != nil {
		return err
	}
	if runNow, _ := cmd.Flags().GetBool("run-on-start"); runNow {
		sched.RunNow()
	}
	sched.Start()

	log.Info().Msg(appName + " is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	sched.Stop()
	return nil
}
