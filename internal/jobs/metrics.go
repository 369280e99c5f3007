package jobs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueued  prometheus.Counter
	processed *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "menuimport",
			Subsystem: "jobs",
			Name:      "enqueued_total",
			Help:      "Imports queued for background processing.",
		}),
		processed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menuimport",
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Background imports processed, by outcome. Pending counts imports requeued for lack of a free slot.",
		}, []string{"status"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
