package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RateLimitSubjectKey  = "key"
	RateLimitSubjectUser = "user"
	RateLimitSubjectIP   = "ip"
)

const (
	UsageLogOutcomeWritten    = "written"
	UsageLogOutcomeFailed     = "failed"
	UsageLogOutcomeBufferFull = "buffer_full"
)

// GateMetrics captures rate limiter and usage recorder health signals scraped from /metrics.
type GateMetrics struct {
	rateLimitDecisions   *prometheus.CounterVec
	rateLimitStoreErrors prometheus.Counter
	usageLogEntries      *prometheus.CounterVec
	usageLogQueueDepth   prometheus.Gauge
}

var (
	gateMetricsOnce sync.Once
	gateMetrics     *GateMetrics
)

// Gate returns the singleton gate metrics registry.
func Gate() *GateMetrics {
	return GateWithConfig(Config{})
}

// GateWithConfig returns the singleton gate metrics registry using config labels.
func GateWithConfig(cfg Config) *GateMetrics {
	gateMetricsOnce.Do(func() {
		gateMetrics = NewGateMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return gateMetrics
}

// NewGateMetrics registers a fresh set of collectors, mainly for tests with their own registry.
func NewGateMetrics(registerer prometheus.Registerer, cfg Config) *GateMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "gatekeeper"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	rateLimitDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gatekeeper_rate_limit_decisions_total",
		Help:        "Rate limit decisions by subject and outcome.",
		ConstLabels: constLabels,
	}, []string{"subject", "outcome"})

	rateLimitStoreErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "gatekeeper_rate_limit_store_errors_total",
		Help:        "Counter store failures while evaluating rate limits.",
		ConstLabels: constLabels,
	})

	usageLogEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gatekeeper_usage_log_entries_total",
		Help:        "Usage log entries by write outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	usageLogQueueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "gatekeeper_usage_log_queue_depth",
		Help:        "Usage log entries waiting for the background writer.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		rateLimitDecisions,
		rateLimitStoreErrors,
		usageLogEntries,
		usageLogQueueDepth,
	)

	return &GateMetrics{
		rateLimitDecisions:   rateLimitDecisions,
		rateLimitStoreErrors: rateLimitStoreErrors,
		usageLogEntries:      usageLogEntries,
		usageLogQueueDepth:   usageLogQueueDepth,
	}
}

func (m *GateMetrics) ObserveRateLimit(subject string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.rateLimitDecisions.WithLabelValues(subject, outcome).Inc()
}

func (m *GateMetrics) IncRateLimitStoreError() {
	if m == nil {
		return
	}
	m.rateLimitStoreErrors.Inc()
}

func (m *GateMetrics) ObserveUsageLog(outcome string) {
	if m == nil {
		return
	}
	m.usageLogEntries.WithLabelValues(outcome).Inc()
}

func (m *GateMetrics) SetUsageLogQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.usageLogQueueDepth.Set(float64(depth))
}
