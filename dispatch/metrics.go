package dispatch

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirror oauth2/metrics.go's shape (a curried HistogramVec plus
// plain CounterVecs registered once at package init), keyed on dispatch
// activity instead of HTTP endpoints. They live alongside the dispatcher
// itself, rather than in node, so node (which imports dispatch) doesn't
// need a reverse dependency for it to observe them.
var (
	transactionsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nuts",
		Subsystem: "graph",
		Name:      "transactions_accepted_total",
		Help:      "Number of transactions accepted into the graph, by peer.",
	}, []string{"peer_id"})

	transactionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nuts",
		Subsystem: "graph",
		Name:      "transactions_rejected_total",
		Help:      "Number of transactions rejected while dispatching, by reason.",
	}, []string{"reason"})

	dispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nuts",
		Subsystem: "dispatch",
		Name:      "message_duration_seconds",
		Help:      "Histogram of time spent handling one inbound message.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(transactionsAccepted, transactionsRejected, dispatchDuration)
}
