package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
	"github.com/couchcryptid/urban3d-etl/internal/observability"
)

// Source loads one acquisition dataset. An optional dataset that is not
// present yields an empty collection, not an error.
type Source interface {
	Load(ctx context.Context, ds domain.Dataset) (domain.FeatureCollection, error)
}

// Merger fills missing primary heights from the secondary source.
type Merger interface {
	Merge(primary domain.Collection[domain.BuildingCandidate], secondary domain.Collection[domain.SecondaryBuilding]) (domain.Collection[domain.BuildingCandidate], domain.MergeStats, error)
}

// Sanitizer repairs geometry and normalizes the CRS of a collection.
type Sanitizer interface {
	Sanitize(fc domain.FeatureCollection) (domain.FeatureCollection, domain.SanitizeStats, error)
}

// Exporter writes one layer file.
type Exporter interface {
	Export(ctx context.Context, kind domain.Kind, fc domain.FeatureCollection, path string) (domain.ExportStats, error)
}

// Notifier announces exported layers to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, layers []domain.LayerExported) error
}

// Options carries the run-level settings of a pipeline.
type Options struct {
	City             string
	OutputDir        string
	SecondaryEnabled bool
	Heights          domain.HeightConfig
}

// Pipeline runs the building, road, and POI stages end to end.
type Pipeline struct {
	source    Source
	merger    Merger
	sanitizer Sanitizer
	exporter  Exporter
	notifier  Notifier
	resolver  *domain.HeightResolver
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	runMu sync.Mutex
	ready atomic.Bool
	last  atomic.Pointer[domain.RunReport]
}

// New creates a Pipeline. merger may be nil when the secondary source is
// disabled; notifier may be nil when no one listens for exports.
func New(src Source, m Merger, s Sanitizer, e Exporter, n Notifier, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    src,
		merger:    m,
		sanitizer: s,
		exporter:  e,
		notifier:  n,
		resolver:  domain.NewHeightResolver(opts.Heights),
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
}

// SetClock replaces the scheduler clock. Tests pass a fake clock.
func (p *Pipeline) SetClock(c clockwork.Clock) {
	p.clock = c
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastReport returns the report of the latest successful run, or nil.
func (p *Pipeline) LastReport() *domain.RunReport {
	return p.last.Load()
}

// LayerPath is where a layer of kind is written for the configured city.
func (p *Pipeline) LayerPath(kind domain.Kind) string {
	return filepath.Join(p.opts.OutputDir, domain.CitySlug(p.opts.City), string(kind)+".geojson")
}

// RunEvery runs the pipeline immediately and then on every tick of interval
// until ctx is cancelled. A failed run is logged and retried on the next tick.
func (p *Pipeline) RunEvery(ctx context.Context, interval time.Duration) error {
	p.logger.Info("scheduled pipeline started", "interval", interval)
	p.runLogged(ctx)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.runLogged(ctx)
		}
	}
}

func (p *Pipeline) runLogged(ctx context.Context) {
	if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("pipeline run failed", "error", err)
	}
}

// Run executes one full pass. Schema, configuration, and I/O errors abort the
// run; dropped or unmatched features are data gaps and only counted.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	start := p.clock.Now()
	report := domain.RunReport{
		City:      p.opts.City,
		StartedAt: start,
		Layers:    make(map[domain.Kind]domain.LayerReport, len(domain.Kinds)),
	}
	p.logger.Info("pipeline run started", "city", p.opts.City, "secondary", p.opts.SecondaryEnabled)

	var exported []domain.LayerExported
	stages := []struct {
		kind  domain.Kind
		build func(context.Context, *domain.RunReport) (domain.FeatureCollection, error)
	}{
		{domain.KindBuildings, p.buildings},
		{domain.KindRoads, p.roads},
		{domain.KindPOIs, p.pois},
	}
	for _, st := range stages {
		fc, err := st.build(ctx, &report)
		if err != nil {
			return p.fail(err)
		}
		ev, err := p.finish(ctx, st.kind, fc, &report)
		if err != nil {
			return p.fail(err)
		}
		exported = append(exported, ev)
	}

	p.notify(ctx, exported)

	report.FinishedAt = p.clock.Now()
	elapsed := report.FinishedAt.Sub(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
	p.last.Store(&report)
	p.ready.Store(true)

	p.logger.Info("pipeline run complete",
		"city", p.opts.City,
		"duration", elapsed,
		"buildings", report.Layers[domain.KindBuildings].Export.Features,
		"roads", report.Layers[domain.KindRoads].Export.Features,
		"pois", report.Layers[domain.KindPOIs].Export.Features,
	)
	return report, nil
}

func (p *Pipeline) fail(err error) (domain.RunReport, error) {
	p.metrics.RunFailures.Inc()
	return domain.RunReport{}, err
}

// finish sanitizes and exports one layer.
func (p *Pipeline) finish(ctx context.Context, kind domain.Kind, fc domain.FeatureCollection, report *domain.RunReport) (domain.LayerExported, error) {
	if err := ctx.Err(); err != nil {
		return domain.LayerExported{}, err
	}

	clean, sstats, err := p.sanitizer.Sanitize(fc)
	if err != nil {
		return domain.LayerExported{}, fmt.Errorf("sanitize %s: %w", kind, err)
	}
	k := string(kind)
	p.metrics.Reprojected.WithLabelValues(k).Add(float64(sstats.Reprojected))
	p.metrics.GeometryRepairs.WithLabelValues(k).Add(float64(sstats.Repaired))
	p.metrics.FeaturesDropped.WithLabelValues(k, "invalid").Add(float64(sstats.DroppedInvalid))
	p.metrics.FeaturesDropped.WithLabelValues(k, "empty").Add(float64(sstats.DroppedEmpty))
	if dropped := sstats.DroppedInvalid + sstats.DroppedEmpty; dropped > 0 {
		p.logger.Warn("features dropped during sanitization",
			"kind", kind,
			"invalid", sstats.DroppedInvalid,
			"empty", sstats.DroppedEmpty,
		)
	}

	path := p.LayerPath(kind)
	estats, err := p.exporter.Export(ctx, kind, clean, path)
	if err != nil {
		return domain.LayerExported{}, fmt.Errorf("export %s: %w", kind, err)
	}
	p.metrics.FeaturesExported.WithLabelValues(k).Add(float64(estats.Features))
	p.metrics.ExportBytes.WithLabelValues(k).Add(float64(estats.Bytes))
	p.metrics.ElevatedLines.Add(float64(estats.Elevated))
	p.logger.Info("layer exported",
		"kind", kind,
		"path", path,
		"features", estats.Features,
		"elevated", estats.Elevated,
		"bytes", estats.Bytes,
	)

	report.Layers[kind] = domain.LayerReport{Sanitize: sstats, Export: estats, Path: path}
	return domain.LayerExported{
		City:       p.opts.City,
		Kind:       kind,
		Path:       path,
		Features:   estats.Features,
		Bytes:      estats.Bytes,
		ExportedAt: domain.Now(),
	}, nil
}

// notify is best effort: layer files are already on disk, so a failed
// announcement is logged and the run still succeeds.
func (p *Pipeline) notify(ctx context.Context, layers []domain.LayerExported) {
	if p.notifier == nil || len(layers) == 0 {
		return
	}
	if err := p.notifier.Notify(ctx, layers); err != nil {
		p.logger.Warn("layer notification failed", "error", err, "layers", len(layers))
	}
}
