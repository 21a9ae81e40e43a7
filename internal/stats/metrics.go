package stats

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "video_extraction"

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry           *prometheus.Registry
	extractions        *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	cacheHits          prometheus.Counter
	degraded           *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Extraction items by platform, status and error code.",
		}, []string{"platform", "status", "code"}),
		extractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Processing time of successful extraction items.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}, []string{"platform", "cache"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Items served from the cache.",
		}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_enrichments_total",
			Help:      "Enrichments that failed without failing their item.",
		}, []string{"code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		m.extractions,
		m.extractionDuration,
		m.cacheHits,
		m.degraded,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(latency.Seconds())
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	status := "success"
	if !o.Success {
		status = "failed"
	}
	m.extractions.WithLabelValues(o.Platform, status, o.Code).Inc()
	if o.Success {
		cache := "miss"
		if o.CacheHit {
			cache = "hit"
		}
		m.extractionDuration.WithLabelValues(o.Platform, cache).Observe(o.ProcessingDuration.Seconds())
	}
	if o.CacheHit {
		m.cacheHits.Inc()
	}
	for _, code := range o.Degraded {
		m.degraded.WithLabelValues(code).Inc()
	}
}
