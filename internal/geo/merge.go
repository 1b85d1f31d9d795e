package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/twpayne/go-geos"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

// MergeConfig controls secondary-source gap filling.
type MergeConfig struct {
	// MaxDistanceM is the inclusive match radius in metres.
	MaxDistanceM float64
}

// DefaultMergeConfig matches within 5 m, enough to absorb the offset between
// OSM and Overture footprints of the same building.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{MaxDistanceM: 5}
}

// SpatialMerger fills missing primary heights from the nearest secondary building.
type SpatialMerger struct {
	projector Projector
	cfg       MergeConfig
}

// NewSpatialMerger creates a merger that measures distances in a local UTM
// zone reached through p.
func NewSpatialMerger(p Projector, cfg MergeConfig) *SpatialMerger {
	return &SpatialMerger{projector: p, cfg: cfg}
}

// Merge attaches a secondary height to every building lacking a primary
// height whose nearest secondary footprint lies within MaxDistanceM. The
// nearest secondary wins, ties keep the one listed first, and one secondary
// may serve several buildings. Buildings with a primary height pass through
// with no secondary height; geometry, order, and CRS are preserved.
//
// An empty secondary set returns the input unchanged. Unmatched buildings
// are a data gap, not an error; a projection failure is.
func (m *SpatialMerger) Merge(
	primary domain.Collection[domain.BuildingCandidate],
	secondary domain.Collection[domain.SecondaryBuilding],
) (domain.Collection[domain.BuildingCandidate], domain.MergeStats, error) {
	var stats domain.MergeStats
	if len(secondary.Items) == 0 {
		return primary, stats, nil
	}

	out := domain.Collection[domain.BuildingCandidate]{
		CRS:   primary.CRS,
		Items: make([]domain.BuildingCandidate, len(primary.Items)),
	}
	var missing []int
	for i, b := range primary.Items {
		b.HeightSecondary = nil
		out.Items[i] = b
		if !b.HasPrimaryHeight() && b.Geometry != nil {
			missing = append(missing, i)
		}
	}
	stats.Candidates = len(missing)
	if len(missing) == 0 {
		return out, stats, nil
	}

	primaryCRS, err := NormalizeCRS(primary.CRS)
	if err != nil {
		return out, stats, fmt.Errorf("primary buildings: %w", err)
	}
	secondaryCRS, err := NormalizeCRS(secondary.CRS)
	if err != nil {
		return out, stats, fmt.Errorf("secondary buildings: %w", err)
	}

	utm, err := m.localZone(primaryCRS, out.Items, missing)
	if err != nil {
		return out, stats, err
	}

	idx, err := m.buildIndex(secondaryCRS, utm, secondary.Items)
	if err != nil {
		return out, stats, err
	}
	defer idx.destroy()

	for _, i := range missing {
		g, err := m.projector.Transform(primaryCRS, utm, out.Items[i].Geometry)
		if err != nil {
			return out, stats, fmt.Errorf("project building %d: %w", i, err)
		}
		h, ok, err := idx.nearest(g, m.cfg.MaxDistanceM)
		if err != nil {
			return out, stats, fmt.Errorf("match building %d: %w", i, err)
		}
		if !ok {
			stats.Unmatched++
			continue
		}
		out.Items[i].HeightSecondary = &h
		stats.Matched++
	}
	return out, stats, nil
}

// localZone estimates the UTM zone from the lon/lat extent of the buildings
// that need a match.
func (m *SpatialMerger) localZone(crs string, items []domain.BuildingCandidate, missing []int) (string, error) {
	var bound orb.Bound
	seen := false
	for _, i := range missing {
		g, err := m.projector.Transform(crs, domain.TargetCRS, items[i].Geometry)
		if err != nil {
			return "", fmt.Errorf("estimate utm zone: %w", err)
		}
		gb := g.Bound()
		if gb.IsEmpty() {
			continue
		}
		if !seen {
			bound, seen = gb, true
			continue
		}
		bound = bound.Union(gb)
	}
	return EstimateUTM(bound), nil
}

type indexedSecondary struct {
	order  int
	height float64
	bound  orb.Bound
	geom   *geos.Geom
}

func (s *indexedSecondary) Point() orb.Point {
	return s.bound.Center()
}

// secondaryIndex locates secondary footprints by bound centre. A footprint
// intersecting a query bound has its centre within the query padded by the
// largest footprint half-extent.
type secondaryIndex struct {
	tree      *quadtree.Quadtree
	items     []*indexedSecondary
	maxExtent float64
}

func (m *SpatialMerger) buildIndex(crs, utm string, items []domain.SecondaryBuilding) (*secondaryIndex, error) {
	idx := &secondaryIndex{items: make([]*indexedSecondary, 0, len(items))}

	var root orb.Bound
	for i, s := range items {
		g, err := m.projector.Transform(crs, utm, s.Geometry)
		if err != nil {
			idx.destroy()
			return nil, fmt.Errorf("project secondary building %d: %w", i, err)
		}
		gg, err := toGEOS(g)
		if err != nil {
			// An undecodable footprint cannot be measured against.
			continue
		}
		if gg.IsEmpty() {
			gg.Destroy()
			continue
		}
		b := g.Bound()
		idx.items = append(idx.items, &indexedSecondary{order: i, height: s.Height, bound: b, geom: gg})
		half := math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]) / 2
		idx.maxExtent = math.Max(idx.maxExtent, half)
		if len(idx.items) == 1 {
			root = orb.Bound{Min: b.Center(), Max: b.Center()}
		} else {
			root = root.Extend(b.Center())
		}
	}

	idx.tree = quadtree.New(root)
	for _, s := range idx.items {
		if err := idx.tree.Add(s); err != nil {
			idx.destroy()
			return nil, fmt.Errorf("index secondary building %d: %w", s.order, err)
		}
	}
	return idx, nil
}

// nearest returns the height of the closest footprint within maxDist of g.
func (idx *secondaryIndex) nearest(g orb.Geometry, maxDist float64) (float64, bool, error) {
	if len(idx.items) == 0 {
		return 0, false, nil
	}
	query := g.Bound().Pad(maxDist)
	found := idx.tree.InBound(nil, query.Pad(idx.maxExtent))
	if len(found) == 0 {
		return 0, false, nil
	}
	sort.Slice(found, func(a, b int) bool {
		return found[a].(*indexedSecondary).order < found[b].(*indexedSecondary).order
	})

	gg, err := toGEOS(g)
	if err != nil {
		return 0, false, nil
	}
	defer gg.Destroy()
	if gg.IsEmpty() {
		return 0, false, nil
	}

	best, bestDist, ok := 0.0, math.Inf(1), false
	for _, p := range found {
		s := p.(*indexedSecondary)
		if !s.bound.Intersects(query) {
			continue
		}
		d, err := distance(gg, s.geom)
		if err != nil {
			return 0, false, err
		}
		if d < bestDist {
			best, bestDist, ok = s.height, d, true
		}
	}
	if !ok || bestDist > maxDist {
		return 0, false, nil
	}
	return best, true, nil
}

func (idx *secondaryIndex) destroy() {
	for _, s := range idx.items {
		s.geom.Destroy()
	}
}
