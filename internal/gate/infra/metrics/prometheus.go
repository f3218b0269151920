package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quellen/codegate/internal/gate/services/evaluator"
)

// Prometheus implements evaluator.Metrics using the Prometheus client.
type Prometheus struct {
	evaluations  *prometheus.CounterVec
	ruleMatches  *prometheus.CounterVec
	guardErrors  *prometheus.CounterVec
	evalDuration prometheus.Histogram
}

// NewPrometheus creates a new Prometheus metrics collector.
// All metrics are registered with the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Prometheus{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codegate",
			Subsystem: "evaluator",
			Name:      "evaluations_total",
			Help:      "Total evaluations by verdict",
		}, []string{"verdict"}),

		ruleMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codegate",
			Subsystem: "evaluator",
			Name:      "rule_matches_total",
			Help:      "Total rule matches by rule ID",
		}, []string{"rule"}),

		guardErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codegate",
			Subsystem: "evaluator",
			Name:      "guard_errors_total",
			Help:      "Total per-call guard errors by kind",
		}, []string{"kind"}),

		evalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "codegate",
			Subsystem: "evaluator",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating one submission",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
		}),
	}
}

func (p *Prometheus) IncEvaluation(verdict string) {
	p.evaluations.WithLabelValues(verdict).Inc()
}

func (p *Prometheus) IncRuleMatch(ruleID string) {
	p.ruleMatches.WithLabelValues(ruleID).Inc()
}

func (p *Prometheus) IncGuardError(kind string) {
	p.guardErrors.WithLabelValues(kind).Inc()
}

func (p *Prometheus) ObserveEvalDuration(d time.Duration) {
	p.evalDuration.Observe(d.Seconds())
}

// Ensure Prometheus implements evaluator.Metrics
var _ evaluator.Metrics = (*Prometheus)(nil)
