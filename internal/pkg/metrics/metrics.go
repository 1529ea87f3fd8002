// Package metrics defines and registers the custom Prometheus metrics of the
// task tracker. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default registry at package init through
// promauto; HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasks"

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheLookupsTotal counts cache-aside probes.
// Labels:
//   - kind: "task", "user_tasks" or "all_tasks"
//   - result: "hit", "miss" or "error" (errors are served as misses)
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of cache lookups, by entry kind and result.",
	},
	[]string{"kind", "result"},
)

// CacheWriteErrorsTotal counts swallowed cache set/delete failures.
// Label:
//   - op: "set", "delete" or "delete_matching"
var CacheWriteErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_write_errors_total",
		Help:      "Total number of cache writes that failed and were ignored.",
	},
	[]string{"op"},
)

// ── Search metrics ────────────────────────────────────────────────────────────

// SearchRequestsTotal counts task searches by the path that produced the answer.
// Label:
//   - path: "index", "fallback_error" or "fallback_empty"
var SearchRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_requests_total",
		Help:      "Total number of task searches, by the path that served them.",
	},
	[]string{"path"},
)

// IndexOperationsTotal counts best-effort writes to the search index.
// Labels:
//   - op: "index", "delete" or "reindex"
//   - result: "ok" or "error"
var IndexOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_operations_total",
		Help:      "Total number of search index writes, by operation and result.",
	},
	[]string{"op", "result"},
)

// ── Task metrics ──────────────────────────────────────────────────────────────

// TaskMutationsTotal counts successful writes to the primary store.
// Label:
//   - op: "create", "update" or "delete"
var TaskMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_mutations_total",
		Help:      "Total number of task mutations committed to the primary store.",
	},
	[]string{"op"},
)

// StoreQueryDuration measures primary store reads issued by the repository.
// Label:
//   - query: "get", "list", "search" or "all"
var StoreQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_query_duration_seconds",
		Help:      "Duration of primary store reads issued by the task repository.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"query"},
)
