package contextkit

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hrygo/contextkit/compress"
	"github.com/hrygo/contextkit/token"
)

// Metrics exports context-build and compression observations in Prometheus
// format. Attach one recorder to many managers; the underlying collectors
// are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	builds           prometheus.Counter
	buildTokens      prometheus.Histogram
	buildMessages    prometheus.Histogram
	compressions     *prometheus.CounterVec
	compressionRatio prometheus.Gauge
	tokensSaved      prometheus.Counter
}

// NewMetrics creates a recorder on the given registry (a fresh one when
// nil).
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{registry: registry}

	m.builds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "contextkit",
		Name:      "builds_total",
		Help:      "Total number of context builds",
	})
	m.buildTokens = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "contextkit",
		Name:      "build_tokens",
		Help:      "Tokens used per built context",
		Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
	})
	m.buildMessages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "contextkit",
		Name:      "build_messages",
		Help:      "Messages per built context",
		Buckets:   prometheus.LinearBuckets(1, 5, 10),
	})
	m.compressions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contextkit",
		Name:      "compressions_total",
		Help:      "Total number of compression passes",
	}, []string{"strategy"})
	m.compressionRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "contextkit",
		Name:      "compression_ratio",
		Help:      "Compressed/original token ratio of the last pass",
	})
	m.tokensSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "contextkit",
		Name:      "tokens_saved_total",
		Help:      "Cumulative tokens removed by compression",
	})

	registry.MustRegister(
		m.builds,
		m.buildTokens,
		m.buildMessages,
		m.compressions,
		m.compressionRatio,
		m.tokensSaved,
	)

	return m
}

// Registry returns the underlying Prometheus registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBuild records one successful context build.
func (m *Metrics) ObserveBuild(usage token.Allocation, messageCount int) {
	m.builds.Inc()
	m.buildTokens.Observe(float64(usage.Used))
	m.buildMessages.Observe(float64(messageCount))
}

// ObserveCompression records one compression pass.
func (m *Metrics) ObserveCompression(result *compress.Result) {
	m.compressions.WithLabelValues(string(result.Strategy)).Inc()
	m.compressionRatio.Set(result.CompressionRatio)
	if saved := result.OriginalTokenCount - result.CompressedTokenCount; saved > 0 {
		m.tokensSaved.Add(float64(saved))
	}
}
