// Package metrics exposes the pipeline's Prometheus collectors: RSR
// reception quality, expiration counts, image render latency, and store
// retry counts (spec §B domain stack "Reception-quality metrics", grounded
// on runZeroInc-sockstats pkg/exporter's direct client_golang usage).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the Curator and pipeline update. A zero
// Metrics (via New) registers against prometheus.DefaultRegisterer;
// callers that want an isolated registry for tests should use NewWithRegisterer.
type Metrics struct {
	RSRPercent        *prometheus.GaugeVec
	ProductsEmitted   *prometheus.CounterVec
	ProductsExpired   *prometheus.CounterVec
	StoreRetries      prometheus.Counter
	StorePermanentErr prometheus.Counter
	ImageRenderLatency *prometheus.HistogramVec
	SegmentsExpired   prometheus.Counter
	TWGOOrphans       prometheus.Counter
}

// New registers every collector against prometheus.DefaultRegisterer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers every collector against reg, so tests can
// pass a fresh prometheus.NewRegistry() instead of the process-wide default.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RSRPercent: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fisbd",
			Subsystem: "rsr",
			Name:      "reception_percent",
			Help:      "Most recent RSR reception percentage per ground station.",
		}, []string{"station"}),

		ProductsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fisbd",
			Subsystem: "l3",
			Name:      "products_forwarded_total",
			Help:      "Products forwarded past the L3 change filter, by type.",
		}, []string{"type"}),

		ProductsExpired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fisbd",
			Subsystem: "curator",
			Name:      "products_expired_total",
			Help:      "Products removed from the store by the expiration engine, by type.",
		}, []string{"type"}),

		StoreRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fisbd",
			Subsystem: "curator",
			Name:      "store_retry_total",
			Help:      "Transient store upsert failures retried with backoff.",
		}),

		StorePermanentErr: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fisbd",
			Subsystem: "curator",
			Name:      "store_permanent_failure_total",
			Help:      "Store upsert failures that exhausted the retry budget.",
		}),

		ImageRenderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fisbd",
			Subsystem: "curator",
			Name:      "image_render_seconds",
			Help:      "Wall time spent rendering one raster to PNG.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"product"}),

		SegmentsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fisbd",
			Subsystem: "l1",
			Name:      "segments_expired_total",
			Help:      "Multi-frame segment buffers evicted before completion.",
		}),

		TWGOOrphans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fisbd",
			Subsystem: "l1",
			Name:      "twgo_orphans_total",
			Help:      "TWGO graphics/text halves discarded with no match within TTL.",
		}),
	}
}
