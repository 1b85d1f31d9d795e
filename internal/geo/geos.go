package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// toGEOS converts an orb geometry into a GEOS geometry via WKB. The caller
// owns the result and must Destroy it.
func toGEOS(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("decode geos geometry: %w", err)
	}
	return gg, nil
}

func fromGEOS(gg *geos.Geom) (orb.Geometry, error) {
	g, err := wkb.Unmarshal(gg.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return g, nil
}

// repair rebuilds an invalid geometry with a zero-width buffer. GEOS reports
// some topology failures by panicking through the binding, so those are
// turned into errors.
func repair(gg *geos.Geom) (fixed *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			fixed, err = nil, fmt.Errorf("buffer: %v", r)
		}
	}()
	return gg.Buffer(0, 8), nil
}

// distance returns the planar distance between two geometries.
func distance(a, b *geos.Geom) (d float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = 0, fmt.Errorf("distance: %v", r)
		}
	}()
	return a.Distance(b), nil
}
