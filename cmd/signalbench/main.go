package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "SignalBench"
	version = "v0.4.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg(appName + " failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:     "signalbench",
		Short:   "Indicator ensemble scoring and backtest experiments",
		Version: version,
		Long: `SignalBench scores instruments with a weighted ensemble of technical indicators and
validates weight configurations by replaying historical dates with synthetic trades.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.PersistentFlags().String("config", "", "App config path (default $CONFIG_PATH or configs/signalbench.yaml)")
	rootCmd.PersistentFlags().String("weights", "", "Weight config path (overrides weights_file)")
	rootCmd.PersistentFlags().Int("synthetic", 0, "Use N generated random-walk instruments instead of data_dir")
	rootCmd.PersistentFlags().String("out", "", "Directory for JSON/text artifacts")
	rootCmd.PersistentFlags().Bool("record", false, "Write results to the SQLite recorder")
	rootCmd.PersistentFlags().String("win-prob", "", "CSV of instrument,date,probability attached to trade plans")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate app and weight configuration",
		RunE:  a.runValidate,
	}

	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Score instruments on one date",
		RunE:  a.runScore,
	}
	scoreCmd.Flags().String("instrument", "", "Score a single instrument")

	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Simulate one historical date",
		RunE:  a.runBacktest,
	}

	for _, cmd := range []*cobra.Command{scoreCmd, backtestCmd} {
		cmd.Flags().String("date", "", "As-of date (YYYY-MM-DD, default last benchmark bar)")
	}

	experimentCmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run a weight configuration over sampled historical dates",
		RunE:  a.runExperiment,
	}
	experimentCmd.Flags().String("label", "", "Experiment label (default weights file name)")
	experimentCmd.Flags().String("isolate", "", "Enable only this indicator")
	experimentCmd.Flags().Float64("multiplier", 1, "Multiplier for --isolate")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Sweep multipliers for one isolated indicator",
		RunE:  a.runCalibrate,
	}
	calibrateCmd.Flags().String("indicator", "", "Indicator id (required)")
	calibrateCmd.Flags().Float64Slice("multipliers", []float64{0, 0.5, 1, 1.5, 2}, "Multipliers, the first is the baseline")

	for _, cmd := range []*cobra.Command{scoreCmd, backtestCmd, experimentCmd, calibrateCmd} {
		cmd.Flags().String("strategy", "trend_following", "Strategy (trend_following|mean_reversion)")
	}

	compareCmd := &cobra.Command{
		Use:   "compare <experiment-a.json> <experiment-b.json>",
		Short: "Compare two saved experiments",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runCompare,
	}

	reportCmd := &cobra.Command{
		Use:   "report <calibration.json>",
		Short: "Reprint a saved calibration",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runReport,
	}

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run configured calibration jobs on their cron schedule",
		RunE:  a.runSchedule,
	}
	scheduleCmd.Flags().Bool("run-on-start", false, "Run the sweep once before waiting for the schedule")

	rootCmd.AddCommand(validateCmd, scoreCmd, backtestCmd, experimentCmd, calibrateCmd, compareCmd, reportCmd, scheduleCmd)
	return rootCmd
}
