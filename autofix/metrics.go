// ABOUTME: Prometheus metrics for auto-fix runs: outcomes, iterations to converge, fixes produced.
// ABOUTME: A nil *Metrics is valid and records nothing.
package autofix

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/2389-research/infracache/schema"
)

// Metrics records auto-fix activity.
type Metrics struct {
	runs       *prometheus.CounterVec
	iterations prometheus.Histogram
	fixes      *prometheus.CounterVec
}

// NewMetrics creates and registers the auto-fix metrics. It returns nil when
// registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infracache_autofix_runs_total",
			Help: "Auto-fix runs by outcome",
		}, []string{"outcome"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "infracache_autofix_iterations",
			Help:    "Iterations run by successful auto-fix runs",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		fixes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infracache_autofix_fixes_total",
			Help: "Fixes produced by object type and operation",
		}, []string{"obj_type", "operation"}),
	}
	registry.MustRegister(m.runs, m.iterations, m.fixes)
	return m
}

func (m *Metrics) observeRun(outcome string, iterations int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == outcomeConverged {
		m.iterations.Observe(float64(iterations))
	}
}

func (m *Metrics) observeFix(op schema.Operation) {
	if m == nil {
		return
	}
	m.fixes.WithLabelValues(string(op.Ref().Type), string(op.Kind())).Inc()
}
