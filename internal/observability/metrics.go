package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ComputeCollector bundles Prometheus metrics for the compute service and
// the HTTP surface, and provides helpers to wire them into handlers.
type ComputeCollector struct {
	gatherer prometheus.Gatherer

	ComputeRequests  *prometheus.CounterVec
	ComputeDurations prometheus.Histogram
	GridCells        prometheus.Gauge
	Bands            prometheus.Gauge
	SourcesFiltered  prometheus.Counter

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewComputeCollector registers the compute metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Re-registration of identical collectors is tolerated so that tests can
// build multiple collectors against the default registry.
func NewComputeCollector(reg prometheus.Registerer) (*ComputeCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	computeRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compute_requests_total",
		Help: "Total number of compute invocations, labeled by outcome (ok, invalid, error).",
	}, []string{"outcome"})
	computeRequests, err := registerCounterVec(reg, computeRequests, "compute_requests_total")
	if err != nil {
		return nil, err
	}

	computeDurations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "compute_duration_seconds",
		Help:    "Wall-clock latency of one compute invocation in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}), "compute_duration_seconds")
	if err != nil {
		return nil, err
	}

	gridCells, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "compute_grid_cells",
		Help: "Grid cell count of the most recent compute invocation.",
	}), "compute_grid_cells")
	if err != nil {
		return nil, err
	}
	bands, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "compute_bands",
		Help: "Band count of the most recent compute invocation.",
	}), "compute_bands")
	if err != nil {
		return nil, err
	}

	filtered, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sources_filtered_total",
		Help: "Total number of sources culled by the influence buffer.",
	}), "sources_filtered_total")
	if err != nil {
		return nil, err
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by path and status code.",
	}, []string{"path", "code"})
	httpRequests, err = registerCounterVec(reg, httpRequests, "http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds, labeled by path.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"path"})
	httpDurations, err = registerHistogramVec(reg, httpDurations, "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &ComputeCollector{
		gatherer:         gatherer,
		ComputeRequests:  computeRequests,
		ComputeDurations: computeDurations,
		GridCells:        gridCells,
		Bands:            bands,
		SourcesFiltered:  filtered,
		HTTPRequests:     httpRequests,
		HTTPDurations:    httpDurations,
	}, nil
}

// ObserveCompute records one compute invocation.
func (c *ComputeCollector) ObserveCompute(outcome string, duration time.Duration, gridCells, bands, sourcesFiltered int) {
	if c == nil {
		return
	}
	if c.ComputeRequests != nil {
		c.ComputeRequests.WithLabelValues(outcome).Inc()
	}
	if c.ComputeDurations != nil {
		c.ComputeDurations.Observe(duration.Seconds())
	}
	if c.GridCells != nil {
		c.GridCells.Set(float64(gridCells))
	}
	if c.Bands != nil {
		c.Bands.Set(float64(bands))
	}
	if c.SourcesFiltered != nil && sourcesFiltered > 0 {
		c.SourcesFiltered.Add(float64(sourcesFiltered))
	}
}

// Middleware records request counts and durations for an HTTP handler. The
// path label is the registered route pattern, not the raw URL, to keep
// cardinality bounded.
func (c *ComputeCollector) Middleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		if c == nil {
			return
		}
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(path, strconv.Itoa(sw.code)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(path).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ComputeCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
