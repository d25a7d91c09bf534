package client

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	resyncsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "weft",
		Subsystem: "client",
		Name:      "resyncs_total",
		Help:      "Completed state resynchronizations against the authority.",
	})
	resyncFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "weft",
		Subsystem: "client",
		Name:      "resync_failures_total",
		Help:      "Resynchronization attempts that returned an error.",
	})
	submissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "weft",
		Subsystem: "client",
		Name:      "submissions_total",
		Help:      "Transactions accepted by the authority.",
	})
	pollWaitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "weft",
		Subsystem: "client",
		Name:      "poll_waits_total",
		Help:      "Sleep intervals spent waiting for commitment.",
	})
)

func registerMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(resyncsTotal, resyncFailures, submissionsTotal, pollWaitsTotal)
	})
}

// CountPollWait is recorded by pollers between resync rounds.
func CountPollWait() { pollWaitsTotal.Inc() }
