// Package metrics exposes Prometheus counters for cache and sync activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	OfflineResponses prometheus.Counter
	QueuedMutations  prometheus.Counter
	SyncReplayed     *prometheus.CounterVec
}

// New registers the gateway collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expensegw_cache_hits_total",
			Help: "Cache store hits by request class.",
		}, []string{"class"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expensegw_cache_misses_total",
			Help: "Cache store misses by request class.",
		}, []string{"class"}),
		OfflineResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "expensegw_offline_responses_total",
			Help: "Synthesized offline responses returned to callers.",
		}),
		QueuedMutations: factory.NewCounter(prometheus.CounterOpts{
			Name: "expensegw_queued_mutations_total",
			Help: "Mutations queued for later replay.",
		}),
		SyncReplayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expensegw_sync_replayed_total",
			Help: "Queued mutation replays by result.",
		}, []string{"result"}),
	}
}
