// Package metrics exposes Prometheus collectors for the update cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cryptobot"

// Collector holds the bot's metrics on its own registry.
// Recording methods are no-ops on a nil Collector.
type Collector struct {
	registry *prometheus.Registry

	cycles             *prometheus.CounterVec
	marketDataRequests prometheus.Counter
	fetchRetries       prometheus.Counter
	summaries          *prometheus.CounterVec
	publishes          *prometheus.CounterVec
	lastSuccess        prometheus.Gauge
	resolvedSymbols    prometheus.Gauge
	cycleDuration      prometheus.Histogram
}

// NewCollector creates and registers all collectors.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cycle",
		Name:      "total",
		Help:      "Completed update cycles by result (success, error)",
	}, []string{"result"})

	c.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cycle",
		Name:      "duration_seconds",
		Help:      "Time from cycle start to report delivery",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	c.marketDataRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "marketdata",
		Name:      "requests_total",
		Help:      "HTTP requests sent to the market-data API",
	})

	c.fetchRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "marketdata",
		Name:      "retries_total",
		Help:      "Fetch attempts retried after a request failure",
	})

	c.summaries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "summary",
		Name:      "total",
		Help:      "Summaries by result (ok, unavailable, disabled)",
	}, []string{"result"})

	c.publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "publish",
		Name:      "total",
		Help:      "Message deliveries by target and result",
	}, []string{"target", "result"})

	c.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cycle",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful update",
	})

	c.resolvedSymbols = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "marketdata",
		Name:      "resolved_symbols",
		Help:      "Symbols resolved in the last successful fetch",
	})

	c.registry.MustRegister(
		c.cycles,
		c.cycleDuration,
		c.marketDataRequests,
		c.fetchRetries,
		c.summaries,
		c.publishes,
		c.lastSuccess,
		c.resolvedSymbols,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) CycleSucceeded(at time.Time, took time.Duration, resolved int) {
	if c == nil {
		return
	}
	c.cycles.WithLabelValues("success").Inc()
	c.cycleDuration.Observe(took.Seconds())
	c.lastSuccess.Set(float64(at.Unix()))
	c.resolvedSymbols.Set(float64(resolved))
}

func (c *Collector) CycleFailed() {
	if c == nil {
		return
	}
	c.cycles.WithLabelValues("error").Inc()
}

func (c *Collector) MarketDataRequest() {
	if c == nil {
		return
	}
	c.marketDataRequests.Inc()
}

func (c *Collector) FetchRetry() {
	if c == nil {
		return
	}
	c.fetchRetries.Inc()
}

func (c *Collector) Summary(result string) {
	if c == nil {
		return
	}
	c.summaries.WithLabelValues(result).Inc()
}

func (c *Collector) Publish(target string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.publishes.WithLabelValues(target, result).Inc()
}
