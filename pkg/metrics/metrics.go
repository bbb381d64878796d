// Package metrics exposes Prometheus metrics for chunking runs.
//
// Metrics (namespace defaults to "regchunk"):
//   - documents_processed_total{kind,status}
//   - elements_total
//   - elements_dropped_total{reason}
//   - chunks_emitted_total{treatment}
//   - processing_duration_seconds
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coolbeans/regchunk/pkg/pipeline"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "regchunk"

const (
	statusOK    = "ok"
	statusError = "error"
	kindUnknown = "unknown"
)

// Collector records pipeline runs into its own registry. It implements
// pipeline.Observer.
type Collector struct {
	registry *prometheus.Registry

	documentsProcessed *prometheus.CounterVec
	elementsTotal      prometheus.Counter
	elementsDropped    *prometheus.CounterVec
	chunksEmitted      *prometheus.CounterVec
	duration           prometheus.Histogram
}

var _ pipeline.Observer = (*Collector)(nil)

// NewCollector creates a Collector. An empty namespace means
// DefaultNamespace; a nil registry means a fresh one.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		documentsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_processed_total",
				Help:      "Documents run through the chunking pipeline",
			},
			[]string{"kind", "status"},
		),
		elementsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elements_total",
			Help:      "Structural elements kept after deduplication and revocation filtering",
		}),
		elementsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "elements_dropped_total",
				Help:      "Elements removed before chunking",
			},
			[]string{"reason"},
		),
		chunksEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_emitted_total",
				Help:      "Chunks emitted by treatment",
			},
			[]string{"treatment"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time to chunk one document",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	registry.MustRegister(
		c.documentsProcessed,
		c.elementsTotal,
		c.elementsDropped,
		c.chunksEmitted,
		c.duration,
	)
	return c
}

// ObserveRun implements pipeline.Observer.
func (c *Collector) ObserveRun(res *pipeline.Result, err error, elapsed time.Duration) {
	c.duration.Observe(elapsed.Seconds())

	if err != nil || res == nil {
		c.documentsProcessed.WithLabelValues(kindUnknown, statusError).Inc()
		return
	}

	kind := string(res.Kind)
	if kind == "" {
		kind = kindUnknown
	}
	c.documentsProcessed.WithLabelValues(kind, statusOK).Inc()
	c.elementsTotal.Add(float64(res.Stats.Elements))
	c.elementsDropped.WithLabelValues("duplicate").Add(float64(res.Stats.Duplicates))
	c.elementsDropped.WithLabelValues("revoked").Add(float64(res.Stats.Revoked))
	for _, ch := range res.Chunks {
		c.chunksEmitted.WithLabelValues(string(ch.Treatment)).Inc()
	}
}

// Registry returns the registry the metrics are registered in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
