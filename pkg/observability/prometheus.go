package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exports hook events as Prometheus metrics. It implements
// [PipelineHooks], [CacheHooks] and [HTTPHooks], and carries its own
// registry so several collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	Files         *prometheus.CounterVec
	FileDuration  prometheus.Histogram
	ParseDuration *prometheus.HistogramVec
	ParseErrors   *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheBytes  *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPErrors   *prometheus.CounterVec
}

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Input files processed, by terminal status",
			},
			[]string{"status"},
		),
		FileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "file_duration_seconds",
				Help:      "Wall time spent on one input file",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ParseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "parse_duration_seconds",
				Help:      "Parse duration in seconds, by input format",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		ParseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Files that failed to parse, by input format",
			},
			[]string{"format"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Cache hits, by key type",
			},
			[]string{"key_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Cache misses, by key type",
			},
			[]string{"key_type"},
		),
		CacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_written_bytes_total",
				Help:      "Bytes written to the cache, by key type",
			},
			[]string{"key_type"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by direction, host and status",
			},
			[]string{"direction", "host", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"direction", "host"},
		),
		HTTPErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_errors_total",
				Help:      "Outgoing HTTP requests that failed without a response",
			},
			[]string{"host"},
		),
	}

	c.registry.MustRegister(
		c.Files,
		c.FileDuration,
		c.ParseDuration,
		c.ParseErrors,
		c.CacheHits,
		c.CacheMisses,
		c.CacheBytes,
		c.HTTPRequests,
		c.HTTPDuration,
		c.HTTPErrors,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records incoming requests served by next.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.HTTPRequests.WithLabelValues("in", r.Host, strconv.Itoa(sw.status)).Inc()
		c.HTTPDuration.WithLabelValues("in", r.Host).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// =============================================================================
// Hook implementations
// =============================================================================

func (c *Collector) OnParseStart(context.Context, string, string) {}

func (c *Collector) OnParseComplete(_ context.Context, _, format string, _ int, d time.Duration, err error) {
	c.ParseDuration.WithLabelValues(format).Observe(d.Seconds())
	if err != nil {
		c.ParseErrors.WithLabelValues(format).Inc()
	}
}

func (c *Collector) OnFileComplete(_ context.Context, _, status, _ string, d time.Duration) {
	c.Files.WithLabelValues(status).Inc()
	c.FileDuration.Observe(d.Seconds())
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheHits.WithLabelValues(keyType).Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheMisses.WithLabelValues(keyType).Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (c *Collector) OnRequest(context.Context, string, string, string) {}

func (c *Collector) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues("out", host, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues("out", host).Observe(d.Seconds())
}

func (c *Collector) OnError(_ context.Context, _, host, _ string, _ error) {
	c.HTTPErrors.WithLabelValues(host).Inc()
}

var (
	_ PipelineHooks = (*Collector)(nil)
	_ CacheHooks    = (*Collector)(nil)
	_ HTTPHooks     = (*Collector)(nil)
)
