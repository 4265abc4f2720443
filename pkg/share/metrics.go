package share

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. Create one per registerer.
type Metrics struct {
	uploads          *prometheus.CounterVec
	uploadedBytes    *prometheus.CounterVec
	retrievals       *prometheus.CounterVec
	backendErrors    *prometheus.CounterVec
	orphans          prometheus.Counter
	accessNotCounted prometheus.Counter
	linkCacheHits    prometheus.Counter
	linkCacheMisses  prometheus.Counter
	sweepRuns        prometheus.Counter
	sweepRemoved     prometheus.Counter
	sweepDuration    prometheus.Histogram
}

// NewMetrics registers the service metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tempshare_uploads_total",
			Help: "Uploads by provider and result.",
		}, []string{"provider", "result"}),
		uploadedBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tempshare_uploaded_bytes_total",
			Help: "Bytes stored by provider.",
		}, []string{"provider"}),
		retrievals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tempshare_retrievals_total",
			Help: "Retrieval attempts by outcome.",
		}, []string{"outcome"}),
		backendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tempshare_backend_errors_total",
			Help: "Storage backend failures by provider and operation.",
		}, []string{"provider", "operation"}),
		orphans: f.NewCounter(prometheus.CounterOpts{
			Name: "tempshare_orphaned_objects_total",
			Help: "Uploads stored in a backend whose registry commit failed.",
		}),
		accessNotCounted: f.NewCounter(prometheus.CounterOpts{
			Name: "tempshare_access_commit_failures_total",
			Help: "Deliveries whose access count could not be persisted.",
		}),
		linkCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "tempshare_link_cache_hits_total",
			Help: "Signed link cache hits.",
		}),
		linkCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "tempshare_link_cache_misses_total",
			Help: "Signed link cache misses.",
		}),
		sweepRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "tempshare_sweep_runs_total",
			Help: "Completed sweeper runs.",
		}),
		sweepRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "tempshare_sweep_removed_total",
			Help: "Records removed by the sweeper.",
		}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tempshare_sweep_duration_seconds",
			Help:    "Sweeper run duration.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
}
