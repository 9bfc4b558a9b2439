package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("abengine.engine")

var (
	// searchTotal counts engine calls by operation and outcome
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abengine_search_total",
		Help: "Total search calls by operation and result",
	}, []string{"operation", "result"})

	// searchDuration tracks wall-clock time of search calls
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "abengine_search_duration_seconds",
		Help:    "Search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12), // 0.1ms to ~7min
	}, []string{"operation"})

	// searchNodes counts visited nodes by kind
	searchNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abengine_search_nodes_total",
		Help: "Nodes visited by searches, by kind",
	}, []string{"kind"})

	// searchForks counts units of work run concurrently
	searchForks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "abengine_search_forks_total",
		Help: "Units of search work forked onto new goroutines",
	})

	// iterativeDepth tracks the deepest completed round of iterative searches
	iterativeDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "abengine_iterative_depth_reached",
		Help:    "Deepest completed round per iterative search",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 10, 12, 16, 20, 30},
	})

	// cacheEntries tracks the size of the engine's reused cache
	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "abengine_cache_entries",
		Help: "Entries held by the most recently used reuse-mode cache",
	})
)

// observe records one finished call
func observe(op string, r *SearchResult, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case r != nil && !r.Completed:
		result = "cancelled"
	}
	searchTotal.WithLabelValues(op, result).Inc()
	if r == nil {
		return
	}
	searchDuration.WithLabelValues(op).Observe(r.SearchTime.Seconds())
	searchNodes.WithLabelValues("leaf").Add(float64(r.Leaves))
	searchNodes.WithLabelValues("internal").Add(float64(r.InternalNodes))
	searchForks.Add(float64(r.Forks))
}
