package paths

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// catalogBuildTotal counts catalog builds by result
	catalogBuildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geokeeper_catalog_build_total",
		Help: "Total path catalog builds by result",
	}, []string{"result"}) // "ok", "empty" or "error"

	// catalogBuildDuration tracks engine enumeration latency on cache misses
	catalogBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geokeeper_catalog_build_duration_seconds",
		Help:    "Engine path enumeration duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
	})

	catalogCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geokeeper_catalog_cache_hits_total",
		Help: "Total path catalog cache hits",
	})

	catalogCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geokeeper_catalog_cache_misses_total",
		Help: "Total path catalog cache misses",
	})

	// selectionTotal counts path selections by policy and result
	selectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geokeeper_path_selection_total",
		Help: "Total path selections by policy and result",
	}, []string{"policy", "result"}) // policy: "path_id", "preferred_ops" or "default"

	// composeLegs tracks the number of legs per composed transform
	composeLegs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geokeeper_compose_legs",
		Help:    "Number of legs per composed transform",
		Buckets: []float64{1, 2, 3, 4, 5, 8, 12, 16},
	})

	// transformPoints tracks points executed per engine transform call
	transformPoints = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geokeeper_transform_points",
		Help:    "Number of points per engine transform call",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k
	})
)
