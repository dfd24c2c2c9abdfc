// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	identifiersIndexedTotal prometheus.Counter
	sitemapWindowsTotal     *prometheus.CounterVec
	decisionsFetchedTotal   *prometheus.CounterVec
	rawDocumentsStoredTotal prometheus.Counter
	pendingIdentifiers      prometheus.Gauge
	throttleDelaySeconds    prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		identifiersIndexedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_identifiers_indexed_total",
				Help: "Total number of identifier rows upserted from sitemap windows.",
			},
		)

		sitemapWindowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_sitemap_windows_total",
				Help: "Total number of sitemap windows processed, labeled by outcome.",
			},
			[]string{"status"},
		)

		decisionsFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_decisions_fetched_total",
				Help: "Total number of content fetch attempts, labeled by outcome.",
			},
			[]string{"status"},
		)

		rawDocumentsStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_raw_documents_stored_total",
				Help: "Total number of raw XML documents written to the object store.",
			},
		)

		pendingIdentifiers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_pending_identifiers",
				Help: "Identifiers known but not yet scraped, as of the last store query.",
			},
		)

		throttleDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_throttle_delay_seconds",
				Help:    "Histogram of rate limiter wait durations.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AddIndexed increments the indexed-identifiers counter by n.
func AddIndexed(n int) {
	identifiersIndexedTotal.Add(float64(n))
}

// ObserveWindow increments the window counter for the given outcome.
func ObserveWindow(status string) {
	sitemapWindowsTotal.WithLabelValues(status).Inc()
}

// ObserveFetch increments the fetch counter for the given outcome.
func ObserveFetch(status string) {
	decisionsFetchedTotal.WithLabelValues(status).Inc()
}

// IncRawStored increments the raw-document counter.
func IncRawStored() {
	rawDocumentsStoredTotal.Inc()
}

// SetPending records the last observed size of the pending set.
func SetPending(n int64) {
	pendingIdentifiers.Set(float64(n))
}

// ObserveThrottleDelay records the duration of a rate limit wait.
func ObserveThrottleDelay(d time.Duration) {
	throttleDelaySeconds.Observe(d.Seconds())
}
