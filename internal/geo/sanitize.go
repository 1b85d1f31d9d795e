package geo

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

type outcome int

const (
	outcomeKept outcome = iota
	outcomeRepaired
	outcomeInvalid
	outcomeEmpty
)

// Sanitizer brings a feature collection into WGS84 and drops geometries
// that cannot be made valid.
type Sanitizer struct {
	projector Projector
}

// NewSanitizer creates a sanitizer that reprojects through p.
func NewSanitizer(p Projector) *Sanitizer {
	return &Sanitizer{projector: p}
}

// Sanitize reprojects every geometry into EPSG:4326, repairs invalid ones
// with a zero-width buffer, and drops those still invalid or empty. Valid
// geometries are passed through untouched, elevations included, so
// sanitizing a clean collection is a no-op. Attributes are never modified and the output is contiguous.
//
// Dropped features are reported in the stats, not as errors. An unknown CRS
// or a failed reprojection aborts.
func (s *Sanitizer) Sanitize(fc domain.FeatureCollection) (domain.FeatureCollection, domain.SanitizeStats, error) {
	stats := domain.SanitizeStats{Input: len(fc.Items)}

	src, err := NormalizeCRS(fc.CRS)
	if err != nil {
		return domain.FeatureCollection{}, stats, err
	}

	out := domain.FeatureCollection{
		CRS:   domain.TargetCRS,
		Items: make([]domain.Feature, 0, len(fc.Items)),
	}
	for i, f := range fc.Items {
		if f.Geometry == nil {
			stats.DroppedEmpty++
			continue
		}

		g := f.Geometry
		if src != domain.TargetCRS {
			g, err = s.projector.Transform(src, domain.TargetCRS, g)
			if err != nil {
				return domain.FeatureCollection{}, stats, fmt.Errorf("reproject feature %d: %w", i, err)
			}
			stats.Reprojected++
		}

		clean, res := cleanGeometry(g)
		z := f.Z
		switch res {
		case outcomeInvalid:
			stats.DroppedInvalid++
			continue
		case outcomeEmpty:
			stats.DroppedEmpty++
			continue
		case outcomeRepaired:
			// The buffer rebuilds the vertex list in 2D.
			stats.Repaired++
			z = nil
		}
		out.Items = append(out.Items, domain.Feature{Geometry: clean, Z: z, Properties: f.Properties})
	}
	return out, stats, nil
}

func cleanGeometry(g orb.Geometry) (orb.Geometry, outcome) {
	gg, err := toGEOS(g)
	if err != nil {
		return nil, outcomeInvalid
	}
	defer gg.Destroy()

	if gg.IsEmpty() {
		return nil, outcomeEmpty
	}
	if gg.IsValid() {
		return g, outcomeKept
	}

	fixed, err := repair(gg)
	if err != nil || fixed == nil {
		return nil, outcomeInvalid
	}
	defer fixed.Destroy()

	if fixed.IsEmpty() {
		return nil, outcomeEmpty
	}
	if !fixed.IsValid() {
		return nil, outcomeInvalid
	}
	repaired, err := fromGEOS(fixed)
	if err != nil {
		return nil, outcomeInvalid
	}
	return repaired, outcomeRepaired
}
