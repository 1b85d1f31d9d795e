package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	FeaturesRead     *prometheus.CounterVec // labels: dataset={buildings,secondary,roads,pois}
	FeaturesExported *prometheus.CounterVec // labels: kind
	FeaturesDropped  *prometheus.CounterVec // labels: kind, reason={invalid,empty}
	GeometryRepairs  *prometheus.CounterVec // labels: kind
	Reprojected      *prometheus.CounterVec // labels: kind
	ExportBytes      *prometheus.CounterVec // labels: kind
	ElevatedLines    prometheus.Counter

	// Height resolution metrics.
	HeightSources  *prometheus.CounterVec // labels: source={primary,secondary,levels,default}
	HeightsClamped prometheus.Counter

	// Secondary-source gap filling.
	SecondaryMatches *prometheus.CounterVec // labels: outcome={matched,unmatched}

	// Projection transformer cache.
	ProjCache *prometheus.CounterVec // labels: result={hit,miss}

	RunDuration     prometheus.Histogram
	RunFailures     prometheus.Counter
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.FeaturesRead,
		m.FeaturesExported,
		m.FeaturesDropped,
		m.GeometryRepairs,
		m.Reprojected,
		m.ExportBytes,
		m.ElevatedLines,
		m.HeightSources,
		m.HeightsClamped,
		m.SecondaryMatches,
		m.ProjCache,
		m.RunDuration,
		m.RunFailures,
		m.PipelineRunning,
		m.LastSuccess,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		FeaturesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "features_read_total",
			Help:      help("Features loaded from acquisition output, by dataset."),
		}, []string{"dataset"}),
		FeaturesExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "features_exported_total",
			Help:      help("Features written to layer files, by kind."),
		}, []string{"kind"}),
		FeaturesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "features_dropped_total",
			Help:      help("Features removed by geometry sanitization, by kind and reason."),
		}, []string{"kind", "reason"}),
		GeometryRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "geometry_repairs_total",
			Help:      help("Invalid geometries repaired with a zero-width buffer, by kind."),
		}, []string{"kind"}),
		Reprojected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "features_reprojected_total",
			Help:      help("Features reprojected into WGS84, by kind."),
		}, []string{"kind"}),
		ExportBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "export_bytes_total",
			Help:      help("Bytes written to layer files, by kind."),
		}, []string{"kind"}),
		ElevatedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "elevated_lines_total",
			Help:      help("Road lines exported with a synthesized deck elevation."),
		}),
		HeightSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "height_sources_total",
			Help:      help("Resolved building heights by provenance."),
		}, []string{"source"}),
		HeightsClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "heights_clamped_total",
			Help:      help("Resolved heights that fell outside the configured bounds."),
		}),
		SecondaryMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "secondary_matches_total",
			Help:      help("Nearest-neighbour lookups against the secondary source, by outcome."),
		}, []string{"outcome"}),
		ProjCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "proj_cache_total",
			Help:      help("Projection transformer cache lookups by result."),
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "urban3d_etl",
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete pipeline run."),
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		RunFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urban3d_etl",
			Name:      "run_failures_total",
			Help:      help("Pipeline runs aborted by a schema, configuration, or I/O error."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "urban3d_etl",
			Name:      "pipeline_running",
			Help:      help("1 while a pipeline run is in progress, 0 otherwise."),
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "urban3d_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      help("Unix time of the last successful pipeline run."),
		}),
	}
}
