package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog and cache counters. External factor-catalog failures are recovered
// transparently through the static fallback, so telemetry is the only place
// they surface.
var (
	CatalogLookups = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carbonos",
		Subsystem: "factors",
		Name:      "catalog_lookups_total",
		Help:      "Factor catalog lookups attempted.",
	})

	CatalogFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carbonos",
		Subsystem: "factors",
		Name:      "catalog_fallbacks_total",
		Help:      "Lookups served from the static fallback table.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carbonos",
		Subsystem: "factors",
		Name:      "cache_hits_total",
		Help:      "Factor cache hits.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carbonos",
		Subsystem: "factors",
		Name:      "cache_misses_total",
		Help:      "Factor cache misses.",
	})

	AggregateRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carbonos",
		Subsystem: "emissions",
		Name:      "aggregate_recomputes_total",
		Help:      "Full scope-total recomputations performed.",
	})

	AggregateDriftRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carbonos",
		Subsystem: "emissions",
		Name:      "aggregate_drift_repairs_total",
		Help:      "Stored scope totals repaired by the consistency sweeper.",
	})
)
