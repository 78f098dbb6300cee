package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors for the report path.
type Metrics struct {
	ReportDuration *prometheus.HistogramVec
	DriftFindings  prometheus.Counter
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
}

// NewMetrics registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sinistro_report_duration_seconds",
			Help:    "Time spent computing a claims-ratio report.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		DriftFindings: factory.NewCounter(prometheus.CounterOpts{
			Name: "sinistro_report_drift_findings_total",
			Help: "Aggregate invariant drift findings logged across runs.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "sinistro_report_cache_hits_total",
			Help: "Report cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "sinistro_report_cache_misses_total",
			Help: "Report cache misses.",
		}),
	}
}
