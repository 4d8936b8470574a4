// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the sniper.
type Metrics struct {
	// Feed metrics
	TokensDetected prometheus.Counter
	WSReconnects   prometheus.Counter

	// Lifecycle metrics
	TradesAdmitted  prometheus.Counter
	TradesRejected  *prometheus.CounterVec
	TradesCompleted prometheus.Counter
	TradesFailed    prometheus.Counter
	OpenPositions   prometheus.Gauge

	// Execution metrics
	Buys                 *prometheus.CounterVec
	Sells                *prometheus.CounterVec
	ConfirmationPolls    prometheus.Counter
	ConfirmationsUnknown prometheus.Counter

	// Monitor metrics
	MonitorTicks      prometheus.Counter
	TakeProfitExits   prometheus.Counter
	RealizedProfitPct prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all metrics registered under
// the namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "curve_sniper"
	}

	return &Metrics{
		TokensDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "tokens_detected_total",
			Help:      "Total number of new-token events extracted from the feed",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),
		TradesAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "trades_admitted_total",
			Help:      "Total number of admitted trade cycles",
		}),
		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "trades_rejected_total",
			Help:      "Total number of rejected admissions by reason",
		}, []string{"reason"}),
		TradesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "trades_completed_total",
			Help:      "Total number of trades completed with a confirmed sell",
		}),
		TradesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "trades_failed_total",
			Help:      "Total number of trades ending in failed state",
		}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "open_positions",
			Help:      "Number of currently running trade cycles",
		}),
		Buys: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "buys_total",
			Help:      "Total number of buy attempts by result",
		}, []string{"result"}),
		Sells: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "sells_total",
			Help:      "Total number of sell attempts by result",
		}, []string{"result"}),
		ConfirmationPolls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "confirmation_polls_total",
			Help:      "Total number of transaction outcome polls",
		}),
		ConfirmationsUnknown: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "confirmations_unknown_total",
			Help:      "Confirmations exhausted without a definitive outcome; needs operator reconciliation",
		}),
		MonitorTicks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "ticks_total",
			Help:      "Total number of position monitor ticks",
		}),
		TakeProfitExits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "take_profit_exits_total",
			Help:      "Total number of sells triggered by the take-profit threshold",
		}),
		RealizedProfitPct: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "realized_profit_pct",
			Help:      "Realized profit percentage of completed trades",
			Buckets:   []float64{-100, -50, -20, -10, 0, 10, 20, 50, 100, 200, 500},
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTokenDetected increments the detected tokens counter.
func RecordTokenDetected() {
	DefaultMetrics.TokensDetected.Inc()
}

// RecordAdmission increments the admitted trades counter and gauge.
func RecordAdmission() {
	DefaultMetrics.TradesAdmitted.Inc()
	DefaultMetrics.OpenPositions.Inc()
}

// RecordRejection increments the rejected trades counter.
func RecordRejection(reason string) {
	DefaultMetrics.TradesRejected.WithLabelValues(reason).Inc()
}

// RecordTradeEnd records a terminal trade state and closes the position gauge.
func RecordTradeEnd(completed bool, profitPct float64) {
	DefaultMetrics.OpenPositions.Dec()
	if completed {
		DefaultMetrics.TradesCompleted.Inc()
		DefaultMetrics.RealizedProfitPct.Observe(profitPct)
	} else {
		DefaultMetrics.TradesFailed.Inc()
	}
}

// RecordBuy records a buy attempt result.
func RecordBuy(result string) {
	DefaultMetrics.Buys.WithLabelValues(result).Inc()
}

// RecordSell records a sell attempt result.
func RecordSell(result string) {
	DefaultMetrics.Sells.WithLabelValues(result).Inc()
}

// RecordConfirmationPoll increments the outcome poll counter.
func RecordConfirmationPoll() {
	DefaultMetrics.ConfirmationPolls.Inc()
}

// RecordConfirmationUnknown increments the unknown-outcome counter.
func RecordConfirmationUnknown() {
	DefaultMetrics.ConfirmationsUnknown.Inc()
}

// RecordMonitorTick increments the monitor tick counter.
func RecordMonitorTick() {
	DefaultMetrics.MonitorTicks.Inc()
}

// RecordTakeProfitExit increments the take-profit exits counter.
func RecordTakeProfitExit() {
	DefaultMetrics.TakeProfitExits.Inc()
}
