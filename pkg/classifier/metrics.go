package classifier

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	opClassify  = "classify"
	opSummarize = "summarize"
)

// Metrics contains Prometheus metrics for the classifier. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	outcomes  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	tokens    *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

// NewMetrics registers the classifier collectors on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_requests_total",
				Help:      "Total classifier operations by source of the result",
			},
			[]string{"operation", "source"},
		),

		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classifier_completion_duration_seconds",
				Help:      "Duration of completion calls made by the classifier",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"operation"},
		),

		tokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_tokens_total",
				Help:      "Tokens consumed by classifier completion calls",
			},
			[]string{"operation", "direction"},
		),

		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_fallbacks_total",
				Help:      "Total completion failures by cause",
			},
			[]string{"operation", "cause"},
		),
	}
}

func (m *Metrics) recordOutcome(operation, source string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, source).Inc()
}

func (m *Metrics) recordLatency(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) recordTokens(operation string, in, out int64) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(operation, "input").Add(float64(in))
	m.tokens.WithLabelValues(operation, "output").Add(float64(out))
}

func (m *Metrics) recordFallback(operation, cause string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(operation, cause).Inc()
}
