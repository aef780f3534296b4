// Package metrics holds the Prometheus collectors for research runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "research"

// Scrape outcomes.
const (
	OutcomeVerified   = "verified"
	OutcomeUnverified = "unverified"
	OutcomeFailed     = "failed"
	OutcomeCached     = "cached"
)

// Metrics is a set of collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	searches       *prometheus.CounterVec
	searchFallback prometheus.Counter
	scrapes        *prometheus.CounterVec
	scrapeDuration *prometheus.HistogramVec
	ratings        *prometheus.CounterVec
	persistErrors  prometheus.Counter
	researchRuns   prometheus.Counter
	researchTime   prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search provider calls by provider and result.",
		}, []string{"provider", "result"}),
		searchFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallback_total",
			Help:      "Searches answered from the static fallback list.",
		}),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_results_total",
			Help:      "Per-URL scrape outcomes.",
		}, []string{"outcome"}),
		scrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Time spent extracting and scoring one URL.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}, []string{"source"}),
		ratings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credibility_ratings_total",
			Help:      "Content verifications by method.",
		}, []string{"method"}),
		persistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_persist_errors_total",
			Help:      "Failed cache snapshot writes.",
		}),
		researchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed research runs.",
		}),
		researchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a research run.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.searches, m.searchFallback, m.scrapes, m.scrapeDuration,
		m.ratings, m.persistErrors, m.researchRuns, m.researchTime,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SearchResult(provider string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.searches.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) SearchFallback() {
	if m == nil {
		return
	}
	m.searchFallback.Inc()
}

func (m *Metrics) ScrapeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.scrapes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ScrapeDuration(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.scrapeDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) Rating(method string) {
	if m == nil {
		return
	}
	m.ratings.WithLabelValues(method).Inc()
}

func (m *Metrics) PersistError() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

func (m *Metrics) ResearchRun(d time.Duration) {
	if m == nil {
		return
	}
	m.researchRuns.Inc()
	m.researchTime.Observe(d.Seconds())
}
