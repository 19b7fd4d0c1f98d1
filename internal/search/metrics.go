package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level registration keeps metric identity stable regardless of
// how many orchestrators or caches a process constructs.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediad",
		Subsystem: "search",
		Name:      "cache_hits_total",
		Help:      "Query result cache hits",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediad",
		Subsystem: "search",
		Name:      "cache_misses_total",
		Help:      "Query result cache misses, including expirations",
	})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediad",
		Subsystem: "search",
		Name:      "cache_evictions_total",
		Help:      "Entries evicted under partition size pressure",
	})

	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediad",
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Completed searches by mode, provenance, and degradation",
	}, []string{"mode", "provenance", "degraded"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediad",
		Subsystem: "search",
		Name:      "fallbacks_total",
		Help:      "Metadata fallbacks by trigger reason",
	}, []string{"reason"})

	providerRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediad",
		Subsystem: "search",
		Name:      "provider_retries_total",
		Help:      "Single in-request retries against the embedding provider",
	})

	isolationViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediad",
		Subsystem: "search",
		Name:      "isolation_violations_total",
		Help:      "Aborted requests due to cross-tenant result leakage",
	})
)
