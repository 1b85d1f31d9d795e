package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

// buildings merges, resolves, and validates heights, yielding the flattened layer.
func (p *Pipeline) buildings(ctx context.Context, report *domain.RunReport) (domain.FeatureCollection, error) {
	raw, err := p.load(ctx, domain.DatasetBuildings)
	if err != nil {
		return domain.FeatureCollection{}, err
	}
	candidates := domain.Decode(raw, domain.DecodeBuilding)

	if p.opts.SecondaryEnabled && p.merger != nil {
		secondaryRaw, err := p.load(ctx, domain.DatasetSecondary)
		if err != nil {
			return domain.FeatureCollection{}, err
		}
		secondary := domain.DecodeSecondaries(secondaryRaw)

		merged, stats, err := p.merger.Merge(candidates, secondary)
		if err != nil {
			return domain.FeatureCollection{}, fmt.Errorf("merge secondary heights: %w", err)
		}
		candidates = merged
		report.Merge = &stats
		p.metrics.SecondaryMatches.WithLabelValues("matched").Add(float64(stats.Matched))
		p.metrics.SecondaryMatches.WithLabelValues("unmatched").Add(float64(stats.Unmatched))
		p.logger.Info("secondary heights merged",
			"secondary", len(secondary.Items),
			"candidates", stats.Candidates,
			"matched", stats.Matched,
			"unmatched", stats.Unmatched,
		)
	}

	resolved, hstats := p.resolver.Resolve(candidates.Items)
	report.Heights = hstats
	for src, n := range hstats.Sources {
		p.metrics.HeightSources.WithLabelValues(string(src)).Add(float64(n))
	}
	p.metrics.HeightsClamped.Add(float64(hstats.Clamped))

	fc := domain.ToFeatures(domain.Collection[domain.Building]{CRS: candidates.CRS, Items: resolved})
	quality, err := domain.ValidateBuildings(fc)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("validate buildings: %w", err)
	}
	report.Quality = quality
	p.logger.Info("building heights resolved",
		"total", quality.TotalBuildings,
		"pct_known_height", quality.PctKnownHeight,
		"avg_height", quality.AvgHeight,
		"clamped", hstats.Clamped,
	)
	return fc, nil
}

func (p *Pipeline) roads(ctx context.Context, _ *domain.RunReport) (domain.FeatureCollection, error) {
	raw, err := p.load(ctx, domain.DatasetRoads)
	if err != nil {
		return domain.FeatureCollection{}, err
	}
	return domain.ToFeatures(domain.Decode(raw, domain.DecodeRoad)), nil
}

func (p *Pipeline) pois(ctx context.Context, _ *domain.RunReport) (domain.FeatureCollection, error) {
	raw, err := p.load(ctx, domain.DatasetPOIs)
	if err != nil {
		return domain.FeatureCollection{}, err
	}
	return domain.ToFeatures(domain.Decode(raw, domain.DecodePOI)), nil
}

func (p *Pipeline) load(ctx context.Context, ds domain.Dataset) (domain.FeatureCollection, error) {
	fc, err := p.source.Load(ctx, ds)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("load %s: %w", ds, err)
	}
	p.metrics.FeaturesRead.WithLabelValues(string(ds)).Add(float64(len(fc.Items)))
	p.logger.Debug("dataset loaded", "dataset", ds, "features", len(fc.Items), "crs", fc.CRS)
	return fc, nil
}
