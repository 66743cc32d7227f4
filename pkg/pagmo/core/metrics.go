package core

import "github.com/prometheus/client_golang/prometheus"

// Process-wide metrics for the island subsystem. The spec's non-goals
// exclude reliable delivery, ordering, auth, encryption and NAT
// traversal, but never observability, so these are carried the way
// the wider corpus carries Prometheus metrics even though the chosen
// teacher repo itself has no metrics layer of its own.
var (
	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pagmo",
		Subsystem: "island",
		Name:      "peers_connected",
		Help:      "Number of remote peers currently wired into the subscriber sockets of this process's islands.",
	})

	TicksRun = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pagmo",
		Subsystem: "island",
		Name:      "ticks_total",
		Help:      "Number of evolve ticks run by this process's islands.",
	})

	MigrationsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pagmo",
		Subsystem: "island",
		Name:      "migrations_applied_total",
		Help:      "Number of incoming populations successfully decoded and applied.",
	})

	MigrationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pagmo",
		Subsystem: "island",
		Name:      "migrations_dropped_total",
		Help:      "Number of incoming messages dropped due to a deserialization failure.",
	})

	PublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pagmo",
		Subsystem: "island",
		Name:      "publish_failures_total",
		Help:      "Number of failed attempts to broadcast a population on the publisher socket.",
	})
)

func init() {
	prometheus.MustRegister(PeersConnected, TicksRun, MigrationsApplied, MigrationsDropped, PublishFailures)
}
