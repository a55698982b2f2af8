// Package metrics holds the engine's Prometheus instruments. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cropadvisor"

// Metrics groups engine counters and histograms.
type Metrics struct {
	inferenceErrors *prometheus.CounterVec
	trialFailures   *prometheus.CounterVec
	operationTime   *prometheus.HistogramVec
	fallbacks       prometheus.Counter
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inferenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_inference_errors_total",
			Help:      "Failures raised by the classifier or regressor.",
		}, []string{"model"}),
		trialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dosage_trial_failures_total",
			Help:      "Dosage grid trials that failed and scored zero.",
		}, []string{"code"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine entry points.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_fallbacks_total",
			Help:      "Crop selections answered with the fallback crop.",
		}),
	}
	reg.MustRegister(m.inferenceErrors, m.trialFailures, m.operationTime, m.fallbacks)
	return m
}

func (m *Metrics) InferenceError(model string) {
	if m == nil {
		return
	}
	m.inferenceErrors.WithLabelValues(model).Inc()
}

func (m *Metrics) TrialFailure(code string) {
	if m == nil {
		return
	}
	m.trialFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// ObserveSince records the time elapsed since start for operation.
func (m *Metrics) ObserveSince(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
