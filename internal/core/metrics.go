package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	importsTotal   *prometheus.CounterVec
	importDuration *prometheus.HistogramVec

	stageDuration *prometheus.HistogramVec
	stageRows     *prometheus.CounterVec
	stageAborts   *prometheus.CounterVec

	activeImports prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		importsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menuimport",
			Name:      "imports_total",
			Help:      "Total number of imports by result (success, rolled_back, error).",
		}, []string{"result"}),
		importDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "menuimport",
			Name:      "import_duration_seconds",
			Help:      "Wall time of a whole import, transaction included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "menuimport",
			Name:      "stage_duration_seconds",
			Help:      "Latency distribution for a single import stage.",
			Buckets: []float64{
				0.001, 0.005, 0.01, 0.05,
				0.1, 0.5, 1, 5, 10,
			},
		}, []string{"model"}),
		stageRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menuimport",
			Name:      "stage_rows_total",
			Help:      "Rows upserted per model.",
		}, []string{"model"}),
		stageAborts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menuimport",
			Name:      "stage_aborts_total",
			Help:      "Stages that aborted and rolled the import back.",
		}, []string{"model"}),
		activeImports: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "menuimport",
			Name:      "active_imports",
			Help:      "Imports currently holding a limiter slot.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
