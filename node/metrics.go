package node

import "github.com/prometheus/client_golang/prometheus"

// activePeerSessions mirrors oauth2/metrics.go's GaugeVec pattern, keyed
// on session direction instead of HTTP endpoint. The transaction-accept
// and dispatch-duration metrics live in dispatch/metrics.go, next to the
// dispatcher that actually observes them.
var activePeerSessions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "nuts",
	Subsystem: "session",
	Name:      "active_peers",
	Help:      "Number of currently connected peer sessions.",
}, []string{"direction"})

func init() {
	prometheus.MustRegister(activePeerSessions)
}
