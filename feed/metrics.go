package feed

import "github.com/prometheus/client_golang/prometheus"

var (
	mutationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedkv",
			Subsystem: "feed",
			Name:      "mutations_total",
			Help:      "Count of committed feed mutations.",
		}, []string{"op"})

	conflictCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedkv",
			Subsystem: "feed",
			Name:      "conflicts_total",
			Help:      "Count of aborted commit attempts due to write conflicts.",
		}, []string{"op"})

	idGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "feedkv",
			Subsystem: "feed",
			Name:      "last_allocated_id",
			Help:      "Record of the id allocator.",
		}, []string{"feed"})
)

func init() {
	prometheus.MustRegister(mutationCounter)
	prometheus.MustRegister(conflictCounter)
	prometheus.MustRegister(idGauge)
}
