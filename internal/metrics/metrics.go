// Package metrics exposes experiment progress as Prometheus series.
package metrics

import (
	"net/http"
	"time"

	"SignalBench/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics records run and experiment outcomes. It satisfies experiment.Observer.
type Metrics struct {
	registry      *prometheus.Registry
	RunsTotal     *prometheus.CounterVec
	TradesTotal   *prometheus.CounterVec
	Exclusions    *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	Experiments   *prometheus.CounterVec
	PooledWinRate *prometheus.GaugeVec
	PooledAvgPnL  *prometheus.GaugeVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signalbench_runs_total", Help: "Simulated backtest dates"},
			[]string{"strategy"},
		),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signalbench_trades_total", Help: "Closed simulated trades"},
			[]string{"strategy", "exit_reason"},
		),
		Exclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signalbench_exclusions_total", Help: "Instruments excluded from a backtest date"},
			[]string{"strategy", "reason"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "signalbench_run_duration_seconds", Help: "Wall time of one backtest date", Buckets: prometheus.DefBuckets},
			[]string{"strategy"},
		),
		Experiments: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signalbench_experiments_total", Help: "Finished experiments"},
			[]string{"strategy", "cancelled"},
		),
		PooledWinRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalbench_experiment_win_rate", Help: "Pooled win rate of the latest experiment per label"},
			[]string{"label"},
		),
		PooledAvgPnL: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalbench_experiment_avg_pnl_pct", Help: "Pooled average P&L of the latest experiment per label"},
			[]string{"label"},
		),
	}
	m.registry.MustRegister(m.RunsTotal, m.TradesTotal, m.Exclusions, m.RunDuration, m.Experiments, m.PooledWinRate, m.PooledAvgPnL)
	return m
}

// RunCompleted records one simulated date.
func (m *Metrics) RunCompleted(s model.Strategy, r *model.RunResult, elapsed time.Duration) {
	st := string(s)
	m.RunsTotal.WithLabelValues(st).Inc()
	m.RunDuration.WithLabelValues(st).Observe(elapsed.Seconds())
	for _, t := range r.Trades {
		m.TradesTotal.WithLabelValues(st, string(t.ExitReason)).Inc()
	}
	for _, ex := range r.Exclusions {
		m.Exclusions.WithLabelValues(st, ex.Reason).Inc()
	}
}

// ExperimentCompleted records pooled results.
func (m *Metrics) ExperimentCompleted(res *model.ExperimentResult) {
	cancelled := "false"
	if res.Cancelled {
		cancelled = "true"
	}
	m.Experiments.WithLabelValues(string(res.Strategy), cancelled).Inc()
	m.PooledWinRate.WithLabelValues(res.Label).Set(res.Pooled.WinRate)
	m.PooledAvgPnL.WithLabelValues(res.Label).Set(res.Pooled.AvgPnL)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a /metrics endpoint in the background.
func (m *Metrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("Metrics server listening")
	return srv
}
