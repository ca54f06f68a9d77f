package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus. It also
// satisfies scheduler.Recorder and queue.Observer.
type Recorder struct {
	taskDuration  *prometheus.HistogramVec
	taskFailures  *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	slowCycles    *prometheus.CounterVec
	signals       *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	orders        *prometheus.CounterVec
	escalations   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	portfolio     *prometheus.GaugeVec
	openPositions prometheus.Gauge
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		taskDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepilot_task_duration_seconds",
				Help:    "Duration of scheduled task iterations in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"task"},
		),
		taskFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_task_failures_total",
				Help: "Total number of failed task iterations",
			},
			[]string{"task"},
		),
		cycleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepilot_asset_cycle_duration_seconds",
				Help:    "Duration of one asset's high-frequency cycle in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"symbol"},
		),
		slowCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_slow_cycles_total",
				Help: "Asset cycles that exceeded the cycle budget",
			},
			[]string{"symbol"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_signals_total",
				Help: "Trading signals emitted by strategies",
			},
			[]string{"strategy", "action"},
		),
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_decisions_total",
				Help: "Aggregated decisions by action",
			},
			[]string{"action"},
		),
		orders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_orders_total",
				Help: "Orders by resulting status",
			},
			[]string{"status"},
		),
		escalations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_escalations_total",
				Help: "Deep-analysis escalations by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepilot_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		portfolio: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepilot_portfolio",
				Help: "Portfolio aggregates (cost, value, pnl)",
			},
			[]string{"field"},
		),
		openPositions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradepilot_open_positions",
				Help: "Number of open positions",
			},
		),
	}
}

// ObserveTask records one scheduler iteration.
func (r *Recorder) ObserveTask(name string, elapsed time.Duration, err error) {
	r.taskDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		r.taskFailures.WithLabelValues(name).Inc()
	}
}

func (r *Recorder) RecordCycle(symbol string, elapsed time.Duration) {
	r.cycleDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())
}

func (r *Recorder) RecordSlowCycle(symbol string) {
	r.slowCycles.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordSignal(strategy, action string) {
	r.signals.WithLabelValues(strategy, action).Inc()
}

func (r *Recorder) RecordDecision(action string) {
	r.decisions.WithLabelValues(action).Inc()
}

func (r *Recorder) RecordOrder(status string) {
	r.orders.WithLabelValues(status).Inc()
}

// RecordEscalation counts escalations: submitted, dropped, completed, failed.
func (r *Recorder) RecordEscalation(result string) {
	r.escalations.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordPortfolio(cost, value, pnl float64, positions int) {
	r.portfolio.WithLabelValues("cost").Set(cost)
	r.portfolio.WithLabelValues("value").Set(value)
	r.portfolio.WithLabelValues("pnl").Set(pnl)
	r.openPositions.Set(float64(positions))
}

// JobDropped implements queue.Observer.
func (r *Recorder) JobDropped(string) {
	r.RecordEscalation("dropped")
}

// JobFinished implements queue.Observer.
func (r *Recorder) JobFinished(_ string, _ time.Duration, err error) {
	switch {
	case err == nil:
		r.RecordEscalation("completed")
	case errors.Is(err, context.Canceled):
		r.RecordEscalation("cancelled")
	default:
		r.RecordEscalation("failed")
	}
}
