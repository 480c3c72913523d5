package metrics

import "github.com/prometheus/client_golang/prometheus"

// Listing search Prometheus metrics.
var (
	ListingFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "listing_fetch_total",
			Help:      "Total number of listing page fetches",
		},
		[]string{"table", "result"}, // "ok" / "error"
	)

	ListingFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dealscout",
			Name:      "listing_fetch_duration_seconds",
			Help:      "Listing page fetch duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"table"},
	)

	PageCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "page_cache_total",
			Help:      "Listing page cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	BrowseSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dealscout",
			Name:      "browse_sessions",
			Help:      "Number of live search sessions",
		},
	)
)

var listingMetricsRegistered bool

// RegisterListingMetrics registers the listing search metrics. Must be called once from main.
func RegisterListingMetrics() {
	if listingMetricsRegistered {
		return
	}
	prometheus.MustRegister(ListingFetchTotal)
	prometheus.MustRegister(ListingFetchDuration)
	prometheus.MustRegister(PageCacheTotal)
	prometheus.MustRegister(BrowseSessions)
	listingMetricsRegistered = true
}
