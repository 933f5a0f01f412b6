package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"SignalBench/internal/model"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets report queries read while an experiment writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("SQLite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS score_breakdowns (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at   INTEGER NOT NULL,
			instrument    TEXT NOT NULL,
			as_of         TEXT NOT NULL,
			strategy      TEXT NOT NULL,
			total         REAL,
			tier          TEXT,
			contributions TEXT,
			adjustments   TEXT,
			abstained     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_breakdowns_inst ON score_breakdowns(instrument, as_of)`,

		`CREATE TABLE IF NOT EXISTS experiments (
			id            TEXT PRIMARY KEY,
			recorded_at   INTEGER NOT NULL,
			label         TEXT,
			strategy      TEXT,
			indicator     TEXT,
			multiplier    REAL,
			seed          INTEGER,
			runs          INTEGER,
			sample_size   INTEGER,
			completed     INTEGER,
			cancelled     INTEGER,
			total_trades  INTEGER,
			win_rate      REAL,
			avg_pnl       REAL,
			total_pnl     REAL,
			sharpe_ratio  REAL,
			max_drawdown  REAL,
			started_at    TEXT,
			finished_at   TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS experiment_runs (
			experiment_id   TEXT NOT NULL,
			run             INTEGER NOT NULL,
			date            TEXT,
			total_trades    INTEGER,
			winning_trades  INTEGER,
			win_rate        REAL,
			avg_pnl         REAL,
			total_pnl       REAL,
			sharpe_ratio    REAL,
			max_drawdown    REAL,
			scored          INTEGER,
			below_threshold INTEGER,
			selected        INTEGER,
			PRIMARY KEY (experiment_id, run)
		)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			experiment_id   TEXT NOT NULL,
			run             INTEGER,
			instrument      TEXT,
			strategy        TEXT,
			as_of           TEXT,
			tier            TEXT,
			score           REAL,
			entry_price     REAL,
			stop_price      REAL,
			target_price    REAL,
			win_probability REAL,
			entry_date      TEXT,
			exit_date       TEXT,
			exit_reason     TEXT,
			exit_price      REAL,
			pnl_pct         REAL,
			bars_held       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_exp ON trades(experiment_id)`,

		`CREATE TABLE IF NOT EXISTS exclusions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			experiment_id TEXT NOT NULL,
			instrument    TEXT,
			date          TEXT,
			reason        TEXT,
			detail        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exclusions_exp ON exclusions(experiment_id)`,

		`CREATE TABLE IF NOT EXISTS calibrations (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at         INTEGER NOT NULL,
			strategy            TEXT,
			indicator           TEXT,
			baseline_multiplier REAL,
			best_multiplier     REAL,
			baseline_avg_pnl    REAL,
			best_avg_pnl        REAL,
			t_test_p            REAL,
			rank_sum_p          REAL,
			chi_square_p        REAL,
			cohens_d            REAL,
			experiment_ids      TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const dateLayout = "2006-01-02"

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (r *SQLiteRecorder) RecordBreakdown(b *model.ScoreBreakdown) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO score_breakdowns
		(recorded_at, instrument, as_of, strategy, total, tier, contributions, adjustments, abstained)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), b.Instrument, day(b.AsOf), string(b.Strategy), b.Total, string(b.Tier),
		jsonText(b.Contributions), jsonText(b.Adjustments), strings.Join(b.Abstained, ","),
	)
	return err
}

// RecordExperiment writes the experiment with its runs, trades and exclusions in one transaction.
func (r *SQLiteRecorder) RecordExperiment(res *model.ExperimentResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	p := res.Pooled
	_, err = tx.Exec(`INSERT OR REPLACE INTO experiments
		(id, recorded_at, label, strategy, indicator, multiplier, seed, runs, sample_size, completed, cancelled,
		 total_trades, win_rate, avg_pnl, total_pnl, sharpe_ratio, max_drawdown, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, time.Now().Unix(), res.Label, string(res.Strategy), res.Indicator, res.Multiplier,
		int64(res.Seed), res.Runs, res.SampleSize, res.Completed, res.Cancelled,
		p.TotalTrades, p.WinRate, p.AvgPnL, p.TotalPnL, p.SharpeRatio, p.MaxDrawdown,
		res.StartedAt.UTC().Format(time.RFC3339), res.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}

	for _, run := range res.RunResults {
		_, err := tx.Exec(`INSERT OR REPLACE INTO experiment_runs
			(experiment_id, run, date, total_trades, winning_trades, win_rate, avg_pnl, total_pnl,
			 sharpe_ratio, max_drawdown, scored, below_threshold, selected)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			res.ID, run.Run, day(run.Date), run.TotalTrades, run.WinningTrades, run.WinRate, run.AvgPnL,
			run.TotalPnL, run.SharpeRatio, run.MaxDrawdown, run.Scored, run.BelowThreshold, run.Selected,
		)
		if err != nil {
			return fmt.Errorf("insert run %d: %w", run.Run, err)
		}
	}

	for _, t := range res.Trades {
		_, err := tx.Exec(`INSERT INTO trades
			(experiment_id, run, instrument, strategy, as_of, tier, score, entry_price, stop_price, target_price,
			 win_probability, entry_date, exit_date, exit_reason, exit_price, pnl_pct, bars_held)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			res.ID, t.Run, t.Plan.Instrument, string(t.Plan.Strategy), day(t.Plan.AsOf), string(t.Plan.Tier),
			t.Plan.Score, t.Plan.EntryPrice, t.Plan.StopPrice, t.Plan.TargetPrice, t.Plan.WinProbability,
			day(t.EntryDate), day(t.ExitDate), string(t.ExitReason), t.ExitPrice, t.PnLPct, t.BarsHeld,
		)
		if err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	for _, ex := range res.Exclusions {
		_, err := tx.Exec(`INSERT INTO exclusions (experiment_id, instrument, date, reason, detail) VALUES (?,?,?,?,?)`,
			res.ID, ex.Instrument, day(ex.Date), ex.Reason, ex.Detail)
		if err != nil {
			return fmt.Errorf("insert exclusion: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordCalibration(evt *CalibrationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO calibrations
		(recorded_at, strategy, indicator, baseline_multiplier, best_multiplier, baseline_avg_pnl, best_avg_pnl,
		 t_test_p, rank_sum_p, chi_square_p, cohens_d, experiment_ids)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), string(evt.Strategy), evt.Indicator, evt.BaselineMultiplier, evt.BestMultiplier,
		evt.BaselineAvgPnL, evt.BestAvgPnL, evt.TTestP, evt.RankSumP, evt.ChiSquareP, evt.CohensD,
		strings.Join(evt.ExperimentIDs, ","),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("Closing SQLite recorder")
	return r.db.Close()
}
