package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/predictify/internal/logger"
)

const namespace = "predictify"

type Metrics struct {
	registry *prometheus.Registry

	predictionsTotal *prometheus.CounterVec
	factorsTotal     *prometheus.CounterVec
	probability      prometheus.Histogram
	cacheRequests    *prometheus.CounterVec
	cacheErrors      prometheus.Counter
	rescoreCycles    *prometheus.CounterVec
	rescoreDuration  prometheus.Histogram
	rescoreEvents    prometheus.Gauge
	busEvents        *prometheus.CounterVec
	busDropped       prometheus.Counter
	circuitState     *prometheus.GaugeVec
	wsClients        prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpInFlight     prometheus.Gauge
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide collectors, registered on a private registry.
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		predictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions computed, by level",
		}, []string{"level"}),
		factorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_factors_total",
			Help:      "Triggered prediction factors, by factor id",
		}, []string{"factor"}),
		probability: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_probability",
			Help:      "Distribution of computed attendance probabilities",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_requests_total",
			Help:      "Prediction cache lookups, by result",
		}, []string{"result"}),
		cacheErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_errors_total",
			Help:      "Prediction cache backend failures",
		}),
		rescoreCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rescore_cycles_total",
			Help:      "Batch re-scoring cycles, by outcome",
		}, []string{"outcome"}),
		rescoreDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rescore_duration_seconds",
			Help:      "Duration of batch re-scoring cycles",
			Buckets:   prometheus.DefBuckets,
		}),
		rescoreEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rescore_last_scored_events",
			Help:      "Events scored by the last re-scoring cycle",
		}),
		busEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_total",
			Help:      "Events published on the internal bus, by type",
		}, []string{"type"}),
		busDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_dropped_total",
			Help:      "Events dropped because a subscriber was full",
		}),
		circuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests received",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Number of in-flight HTTP requests",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObservePrediction(level string, probability int, factorIDs []string) {
	m.predictionsTotal.WithLabelValues(level).Inc()
	m.probability.Observe(float64(probability))
	for _, id := range factorIDs {
		m.factorsTotal.WithLabelValues(id).Inc()
	}
}

func (m *Metrics) IncCacheHit() {
	m.cacheRequests.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncCacheMiss() {
	m.cacheRequests.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncCacheError() {
	m.cacheErrors.Inc()
}

func (m *Metrics) ObserveRescore(outcome string, scored int, d time.Duration) {
	m.rescoreCycles.WithLabelValues(outcome).Inc()
	m.rescoreDuration.Observe(d.Seconds())
	m.rescoreEvents.Set(float64(scored))
}

func (m *Metrics) IncBusEvent(eventType string) {
	m.busEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncBusDropped() {
	m.busDropped.Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) SetWebSocketClients(n int) {
	m.wsClients.Set(float64(n))
}

// GinMiddleware records request count, latency and in-flight requests per
// route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StartServer exposes /metrics on a dedicated port.
func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
}
