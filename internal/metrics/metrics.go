package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pageloom"

var (
	// live websocket connections across all sessions
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Number of live websocket connections.",
	})

	// live sessions
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of live sessions.",
	})

	// sessions destroyed by the idle expiry sweep
	SessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_expired_total",
		Help:      "Sessions destroyed after exceeding the idle timeout.",
	})

	// document updates merged into session state
	UpdatesMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_merged_total",
		Help:      "Document updates merged into session state.",
	})

	// duplicate updates ignored by merge idempotence
	UpdatesDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_duplicate_total",
		Help:      "Redelivered updates ignored as already applied.",
	})

	// structurally invalid updates dropped
	UpdatesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_rejected_total",
		Help:      "Updates dropped for failing structural validation.",
	})

	// session broadcasts published (local delivery)
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Session broadcasts delivered to local connections.",
	})

	// broadcasts replayed from other nodes via the shared channel
	RelayedBroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relayed_broadcasts_total",
		Help:      "Broadcasts received from other nodes and replayed locally.",
	})

	// shared channel publish failures (degraded mode)
	FanoutFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fanout_failures_total",
		Help:      "Cross-node publish failures; local delivery still proceeded.",
	})

	// reload notifications coalesced per debounce window
	CoalescedChangesPerFlush = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "coalesced_changes_per_flush",
		Help:      "Distinct change keys batched into one reload notification.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
	})

	// connections dropped because their send buffer filled
	ConnectionsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_dropped_total",
		Help:      "Connections closed because their send buffer overflowed.",
	})
)
