package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the quota package. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Quota checks
	checks        *prometheus.CounterVec
	usagePercent  *prometheus.GaugeVec
	checkDuration prometheus.Histogram

	// Registration
	registeredTokens     *prometheus.CounterVec
	registrationFailures *prometheus.CounterVec

	// Cache
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheInvalidations prometheus.Counter
	cacheSwept         prometheus.Counter
}

// NewMetrics registers the quota collectors on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		checks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_checks_total",
				Help:      "Total number of quota checks by result",
			},
			[]string{"result", "reason"},
		),

		usagePercent: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "quota_usage_percentage",
				Help:      "Current monthly usage as a percentage of the limit",
			},
			[]string{"company_id"},
		),

		checkDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quota_check_duration_seconds",
				Help:      "Duration of quota checks in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
			},
		),

		registeredTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_tokens_registered_total",
				Help:      "Total tokens registered by direction",
			},
			[]string{"direction"},
		),

		registrationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_registration_failures_total",
				Help:      "Total usage registrations that were not persisted",
			},
			[]string{"cause"},
		),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_cache_hits_total",
			Help:      "Total quota cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_cache_misses_total",
			Help:      "Total quota cache misses",
		}),

		cacheInvalidations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_cache_invalidations_total",
			Help:      "Total quota cache invalidations",
		}),

		cacheSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_cache_swept_total",
			Help:      "Total expired cache entries removed by the sweeper",
		}),
	}
}

func (m *Metrics) recordCheck(d *Decision, seconds float64) {
	if m == nil {
		return
	}
	result := "allowed"
	switch {
	case d.Reason == ReasonError:
		result = "error"
	case d.LimitReached:
		result = "blocked"
	}
	m.checks.WithLabelValues(result, string(d.Reason)).Inc()
	m.checkDuration.Observe(seconds)
	if d.Reason != ReasonError && !d.Unlimited() {
		m.usagePercent.WithLabelValues(d.CompanyID).Set(d.PercentUsed)
	}
}

func (m *Metrics) recordRegistered(inputTokens, outputTokens int64) {
	if m == nil {
		return
	}
	m.registeredTokens.WithLabelValues("input").Add(float64(inputTokens))
	m.registeredTokens.WithLabelValues("output").Add(float64(outputTokens))
}

func (m *Metrics) recordRegistrationFailure(cause string) {
	if m == nil {
		return
	}
	m.registrationFailures.WithLabelValues(cause).Inc()
}

func (m *Metrics) recordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) recordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) recordCacheInvalidation() {
	if m == nil {
		return
	}
	m.cacheInvalidations.Inc()
}

func (m *Metrics) recordSwept(n int) {
	if m == nil {
		return
	}
	m.cacheSwept.Add(float64(n))
}
