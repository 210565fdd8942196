// Package metrics exposes the Prometheus gauges/counters/histograms for the
// trading engine: clock phase, day-picks, order fills, feature-engine
// warnings. Grounded on SynapseStrike/metrics/metrics.go's Registry +
// promauto + Update*/Record* convention, restructured from its per-
// exchange-trader label set to this domain's single-process-per-day
// labels (date, stock, phase, reason).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the custom prometheus registry for this process, kept
	// separate from the global default registry so tests can construct an
	// isolated one if ever needed.
	Registry = prometheus.NewRegistry()

	// ClockPhase reports the Time Service's current phase as 0..4 (§4.2);
	// a gauge rather than a counter since only the current value matters.
	ClockPhase = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "daytrader",
			Subsystem: "clock",
			Name:      "phase",
			Help:      "Current Time Service phase: 0=DataPrep 1=MarketOpen 2=Update 3=MarketClose 4=Overnight",
		},
	)

	// PredictionPicksTotal counts Prediction Stage outcomes by result
	// ("pick" or "none").
	PredictionPicksTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daytrader",
			Subsystem: "prediction",
			Name:      "picks_total",
			Help:      "Prediction Stage outcomes",
		},
		[]string{"result"},
	)

	// FeatureEngineWarningsTotal counts failed feature-vector computations:
	// the Prediction Stage defaults that candidate to zeros rather than
	// aborting the day (§4.7 step 3), the Materializer skips that row.
	FeatureEngineWarningsTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: "daytrader",
			Subsystem: "features",
			Name:      "compute_warnings_total",
			Help:      "Feature vector computations that failed",
		},
	)

	// OrdersTotal counts broker orders submitted by side and reason.
	OrdersTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daytrader",
			Subsystem: "broker",
			Name:      "orders_total",
			Help:      "Orders submitted to the broker adapter",
		},
		[]string{"side", "reason"},
	)

	// OrderErrorsTotal counts broker order failures by the errs.Kind they
	// classified to.
	OrderErrorsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daytrader",
			Subsystem: "broker",
			Name:      "order_errors_total",
			Help:      "Broker order failures",
		},
		[]string{"kind"},
	)

	// DayPnLPercent is the realized P&L percentage for the day's single
	// position, set once the State Machine reaches Closed.
	DayPnLPercent = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "daytrader",
			Subsystem: "trader",
			Name:      "day_pnl_percent",
			Help:      "Realized P&L percentage for the current trading day",
		},
	)

	// StateMachineState reports the Trading State Machine's current state
	// as 0=WaitingForEntry 1=Holding 2=Closed.
	StateMachineState = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "daytrader",
			Subsystem: "trader",
			Name:      "state",
			Help:      "Trading State Machine state: 0=WaitingForEntry 1=Holding 2=Closed",
		},
	)

	// MaterializerRowsWritten counts rows written by the offline Feature
	// Materializer, by table.
	MaterializerRowsWritten = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daytrader",
			Subsystem: "materializer",
			Name:      "rows_written_total",
			Help:      "Rows written to the analytics store",
		},
		[]string{"table"},
	)
)

// Init registers the standard Go process collectors alongside the
// trading-domain metrics above, matching the teacher's own Init.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}

// RecordPick increments PredictionPicksTotal for a non-nil Pick.
func RecordPick() { PredictionPicksTotal.WithLabelValues("pick").Inc() }

// RecordNoPick increments PredictionPicksTotal for a None outcome.
func RecordNoPick() { PredictionPicksTotal.WithLabelValues("none").Inc() }

// RecordOrder increments OrdersTotal for a submitted order.
func RecordOrder(side, reason string) { OrdersTotal.WithLabelValues(side, reason).Inc() }

// RecordOrderError increments OrderErrorsTotal for a failed order, keyed by
// its errs.Kind string.
func RecordOrderError(kind string) { OrderErrorsTotal.WithLabelValues(kind).Inc() }
