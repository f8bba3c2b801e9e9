// Package metrics exposes Prometheus instrumentation for the claims engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// Metrics implements the engine's measurement hooks on a Prometheus
// registry.
type Metrics struct {
	claimsFiled        prometheus.Counter
	claimsResolved     *prometheus.CounterVec
	fraudScores        prometheus.Histogram
	payoutsTotal       prometheus.Counter
	reserveRatio       prometheus.Gauge
	reentrancyRejected prometheus.Counter
}

// New registers the engine collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claimsFiled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "claims_engine",
			Name:      "claims_filed_total",
			Help:      "Claims filed against any policy.",
		}),
		claimsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims_engine",
			Name:      "claims_resolved_total",
			Help:      "Resolved claims by outcome.",
		}, []string{"outcome"}),
		fraudScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "claims_engine",
			Name:      "fraud_score",
			Help:      "Fraud scores produced at submission.",
			Buckets:   []float64{10, 20, 40, 60, 85, 100},
		}),
		payoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "claims_engine",
			Name:      "payouts_amount_total",
			Help:      "Total amount paid out, in currency units.",
		}),
		reserveRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "claims_engine",
			Name:      "pool_reserve_ratio_bp",
			Help:      "Risk pool reserve ratio in basis points.",
		}),
		reentrancyRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "claims_engine",
			Name:      "reentrancy_rejections_total",
			Help:      "Fund operations refused because one was already in flight.",
		}),
	}
	reg.MustRegister(m.claimsFiled, m.claimsResolved, m.fraudScores, m.payoutsTotal, m.reserveRatio, m.reentrancyRejected)
	return m
}

func (m *Metrics) ClaimFiled() {
	m.claimsFiled.Inc()
}

func (m *Metrics) ClaimResolved(outcome string) {
	m.claimsResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FraudScoreObserved(score int) {
	m.fraudScores.Observe(float64(score))
}

func (m *Metrics) PayoutRecorded(amount values.Money) {
	f, _ := amount.Amount().Float64()
	m.payoutsTotal.Add(f)
}

func (m *Metrics) ReserveRatioUpdated(bp int64) {
	m.reserveRatio.Set(float64(bp))
}

func (m *Metrics) ReentrancyRejected() {
	m.reentrancyRejected.Inc()
}
