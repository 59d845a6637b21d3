// Package metrics exposes flashvaultd's Prometheus counters and
// histograms, the domain-stack counterpart to observability/otel's traces.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles flashvaultd's Prometheus counters/histograms. The HTTP
// layer records RequestDuration through ObserveRequest; the engine facade
// does not update the other collectors. Construct once per process and pass
// by pointer.
type Metrics struct {
	Deposits          *prometheus.CounterVec
	Withdrawals       *prometheus.CounterVec
	FlashLoans        *prometheus.CounterVec
	FlashLoanFailures *prometheus.CounterVec
	CollectedFeesBps  *prometheus.GaugeVec
	RequestDuration   *prometheus.HistogramVec
}

// ObserveRequest records one HTTP request's latency, labeled by route and
// status class (e.g. "2xx", "4xx"), satisfying server.Metrics.
func (m *Metrics) ObserveRequest(route, statusClass string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, statusClass).Observe(seconds)
}

// New registers and returns a fresh Metrics bundle against reg. Pass
// prometheus.DefaultRegisterer for the process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Deposits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashvault",
			Name:      "deposits_total",
			Help:      "Accepted deposits, labeled by asset.",
		}, []string{"asset"}),
		Withdrawals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashvault",
			Name:      "withdrawals_total",
			Help:      "Accepted withdrawals, labeled by asset and kind (all|fees_only).",
		}, []string{"asset", "kind"}),
		FlashLoans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashvault",
			Name:      "flash_loans_total",
			Help:      "Successfully repaid flash loans, labeled by asset.",
		}, []string{"asset"}),
		FlashLoanFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashvault",
			Name:      "flash_loan_failures_total",
			Help:      "Reverted flash loans, labeled by asset and failure reason.",
		}, []string{"asset", "reason"}),
		CollectedFeesBps: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flashvault",
			Name:      "effective_lp_fee_bps",
			Help:      "Current effective LP fee in basis points, labeled by asset.",
		}, []string{"asset"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flashvault",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, labeled by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status_class"}),
	}
}
