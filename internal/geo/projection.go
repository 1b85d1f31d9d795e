package geo

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/twpayne/go-proj/v10"

	"github.com/couchcryptid/urban3d-etl/internal/observability"
)

// Projector transforms geometries between coordinate reference systems.
// Both CRS names are in the normalized "EPSG:<code>" form. Implementations
// must not modify the input geometry.
type Projector interface {
	Transform(src, dst string, g orb.Geometry) (orb.Geometry, error)
}

// PROJProjector is a Projector backed by libproj. Transformer objects are
// expensive to build, so they are kept in an LRU cache keyed by CRS pair.
type PROJProjector struct {
	// mu serializes Transform calls; a PJ is not safe for concurrent use.
	mu      sync.Mutex
	cache   *lruCache[*proj.PJ]
	metrics *observability.Metrics
}

// NewPROJProjector creates a projector caching up to cacheSize transformers.
func NewPROJProjector(cacheSize int, metrics *observability.Metrics) *PROJProjector {
	return &PROJProjector{
		cache:   newLRUCache(cacheSize, func(pj *proj.PJ) { pj.Destroy() }),
		metrics: metrics,
	}
}

// Transform returns a reprojected copy of g. Axis order is always lon/lat or
// easting/northing regardless of the CRS definition.
func (p *PROJProjector) Transform(src, dst string, g orb.Geometry) (orb.Geometry, error) {
	if g == nil || src == dst {
		return g, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pj, err := p.transformer(src, dst)
	if err != nil {
		return nil, err
	}

	var fwdErr error
	out := project.Geometry(orb.Clone(g), func(pt orb.Point) orb.Point {
		if fwdErr != nil {
			return pt
		}
		c, err := pj.Forward(proj.NewCoord(pt[0], pt[1], 0, 0))
		if err != nil {
			fwdErr = err
			return pt
		}
		return orb.Point{c.X(), c.Y()}
	})
	if fwdErr != nil {
		return nil, fmt.Errorf("transform %s to %s: %w", src, dst, fwdErr)
	}
	return out, nil
}

// Close releases every cached transformer.
func (p *PROJProjector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.purge()
}

func (p *PROJProjector) transformer(src, dst string) (*proj.PJ, error) {
	key := src + ">" + dst
	if pj, ok := p.cache.get(key); ok {
		p.metrics.ProjCache.WithLabelValues("hit").Inc()
		return pj, nil
	}
	p.metrics.ProjCache.WithLabelValues("miss").Inc()

	raw, err := proj.NewCRSToCRS(src, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("create transformer %s to %s: %w", src, dst, err)
	}
	pj, err := raw.NormalizeForVisualization()
	raw.Destroy()
	if err != nil {
		return nil, fmt.Errorf("normalize transformer %s to %s: %w", src, dst, err)
	}
	p.cache.put(key, pj)
	return pj, nil
}
