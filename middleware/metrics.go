package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sfi2k7/blueroute"
)

type MetricsOption func(*metricsConfig)

// metric names are <namespace>_<subsystem>_<name>, blueroute_http_ unless
// changed
type metricsConfig struct {
	namespace string
	subsystem string
	buckets   []float64 // request duration, prometheus.DefBuckets unless set
	registry  prometheus.Registerer
}

func WithNamespace(namespace string) MetricsOption {
	return func(c *metricsConfig) {
		c.namespace = namespace
	}
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *metricsConfig) {
		c.subsystem = subsystem
	}
}

// WithBuckets replaces the duration histogram buckets, in seconds
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *metricsConfig) {
		c.buckets = buckets
	}
}

// WithRegistry registers the collectors with registry instead of the
// process wide default registerer served by Router.Handler.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *metricsConfig) {
		c.registry = registry
	}
}

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newMetrics(config metricsConfig) *metrics {
	factory := promauto.With(config.registry)

	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.namespace,
			Subsystem: config.subsystem,
			Name:      "requests_total",
			Help:      "Total number of requests by method, route and status",
		}, []string{"method", "route", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.namespace,
			Subsystem: config.subsystem,
			Name:      "request_duration_seconds",
			Help:      "Request handling duration in seconds",
			Buckets:   config.buckets,
		}, []string{"method", "route"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.namespace,
			Subsystem: config.subsystem,
			Name:      "requests_in_flight",
			Help:      "Requests currently being handled",
		}),
	}
}

// Metrics records request counts, durations and in-flight requests labelled
// by the matched route pattern, which keeps label cardinality bounded by the
// number of registered routes. It panics if the collectors are already
// registered with the registry.
func Metrics(opts ...MetricsOption) blueroute.Middleware {
	config := metricsConfig{
		namespace: "blueroute",
		subsystem: "http",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}

	m := newMetrics(config)

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (*blueroute.Response, error) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		res, err := next.Handle(c)

		r := route(c)
		m.requests.WithLabelValues(c.Method(), r, strconv.Itoa(statusOf(res, err))).Inc()
		m.duration.WithLabelValues(c.Method(), r).Observe(time.Since(start).Seconds())
		return res, err
	})
}
