// Package export turns sanitized feature collections into the GeoJSON layer
// files served to the 3D frontend.
package export

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

// ErrUnsupportedGeometry is returned for geometry types a layer file cannot hold.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// Config controls layer output.
type Config struct {
	Precision      int     // decimal places kept per coordinate axis
	LayerHeightM   float64 // deck height of one vertical road level
	TaperMinPoints int     // elevated lines are resampled up to this many points
}

// DefaultConfig returns 6 decimals (about 0.1 m), 6 m per level and 5-point tapers.
func DefaultConfig() Config {
	return Config{Precision: 6, LayerHeightM: 6.0, TaperMinPoints: 5}
}

// keep lists the attributes written per layer, in output order.
var keep = map[domain.Kind][]string{
	domain.KindBuildings: {domain.AttrHeight, domain.AttrHeightSource, domain.AttrBuildingType, domain.AttrName},
	domain.KindRoads:     {domain.AttrRoadTag, domain.AttrRoadClass, domain.AttrName, domain.AttrLineWidth},
	domain.KindPOIs:      {domain.AttrName, domain.AttrCategory, domain.AttrAmenityTag},
}

// Document is a layer file ready to be serialized.
type Document struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one exported GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds GeoJSON coordinates as nested float slices, so positions
// may carry a third (Z) value. A GeometryCollection has Geometries and no
// coordinates.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates any        `json:"coordinates,omitempty"`
	Geometries  []Geometry `json:"geometries,omitempty"`
}

// Exporter builds and writes layer files.
type Exporter struct {
	cfg Config
}

// New creates an exporter.
func New(cfg Config) *Exporter {
	return &Exporter{cfg: cfg}
}

// Build projects a collection onto the attribute set of its kind. Roads get a
// tapered Z profile when their bridge/layer hints put them above ground; the
// hints themselves are never written. Other positions keep the elevation they
// were read with. Coordinates are rounded last.
func (e *Exporter) Build(kind domain.Kind, fc domain.FeatureCollection) (Document, domain.ExportStats, error) {
	attrs, ok := keep[kind]
	if !ok {
		return Document{}, domain.ExportStats{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}

	doc := Document{Type: "FeatureCollection", Features: make([]Feature, 0, len(fc.Items))}
	var stats domain.ExportStats
	for i, f := range fc.Items {
		props := make(map[string]any, len(attrs))
		for _, a := range attrs {
			if v, ok := f.Properties[a]; ok && v != nil {
				props[a] = v
			}
		}
		if _, ok := props[domain.AttrName]; !ok {
			props[domain.AttrName] = ""
		}

		layer := 0
		if kind == domain.KindRoads {
			layer = effectiveLayer(f.Properties[domain.AttrBridge], f.Properties[domain.AttrLayer])
		}

		geom, elevated, err := e.geometry(f.Geometry, newElevation(f.Geometry, f.Z), layer)
		if err != nil {
			return Document{}, domain.ExportStats{}, fmt.Errorf("%s feature %d: %w", kind, i, err)
		}
		if elevated {
			stats.Elevated++
		}
		doc.Features = append(doc.Features, Feature{Type: "Feature", Geometry: geom, Properties: props})
	}
	stats.Features = len(doc.Features)
	return doc, stats, nil
}

// Export builds the layer and writes it to path.
func (e *Exporter) Export(ctx context.Context, kind domain.Kind, fc domain.FeatureCollection, path string) (domain.ExportStats, error) {
	doc, stats, err := e.Build(kind, fc)
	if err != nil {
		return stats, err
	}
	n, err := Write(ctx, path, doc)
	if err != nil {
		return stats, err
	}
	stats.Bytes = n
	return stats, nil
}

// geometry encodes g, lifting lines to 3D when layer is above ground. Only
// lines are ever elevated; a tapered line replaces whatever elevation its
// input positions carried. Collections are encoded member by member.
func (e *Exporter) geometry(g orb.Geometry, z *elevation, layer int) (Geometry, bool, error) {
	maxZ := float64(layer) * e.cfg.LayerHeightM
	lift := layer > 0

	switch v := g.(type) {
	case orb.Point:
		return Geometry{Type: "Point", Coordinates: e.position(v, z)}, false, nil
	case orb.MultiPoint:
		return Geometry{Type: "MultiPoint", Coordinates: e.positions([]orb.Point(v), z)}, false, nil
	case orb.LineString:
		return Geometry{Type: "LineString", Coordinates: e.line(v, z, lift, maxZ)}, lift, nil
	case orb.MultiLineString:
		coords := make([][][]float64, len(v))
		for i, ls := range v {
			coords[i] = e.line(ls, z, lift, maxZ)
		}
		return Geometry{Type: "MultiLineString", Coordinates: coords}, lift, nil
	case orb.Polygon:
		return Geometry{Type: "Polygon", Coordinates: e.rings(v, z)}, false, nil
	case orb.MultiPolygon:
		coords := make([][][][]float64, len(v))
		for i, p := range v {
			coords[i] = e.rings(p, z)
		}
		return Geometry{Type: "MultiPolygon", Coordinates: coords}, false, nil
	case orb.Collection:
		members := make([]Geometry, len(v))
		elevated := false
		for i, m := range v {
			geom, lifted, err := e.geometry(m, z, layer)
			if err != nil {
				return Geometry{}, false, fmt.Errorf("member %d: %w", i, err)
			}
			members[i] = geom
			elevated = elevated || lifted
		}
		return Geometry{Type: "GeometryCollection", Geometries: members}, elevated, nil
	case nil:
		return Geometry{}, false, fmt.Errorf("%w: nil geometry", ErrUnsupportedGeometry)
	default:
		return Geometry{}, false, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

func (e *Exporter) line(ls orb.LineString, z *elevation, lift bool, maxZ float64) [][]float64 {
	if lift {
		z.skip(len(ls))
		return e.round3(taper(ls, maxZ, e.cfg.TaperMinPoints))
	}
	return e.positions([]orb.Point(ls), z)
}

func (e *Exporter) rings(p orb.Polygon, z *elevation) [][][]float64 {
	out := make([][][]float64, len(p))
	for i, r := range p {
		out[i] = e.positions([]orb.Point(r), z)
	}
	return out
}

func (e *Exporter) positions(pts []orb.Point, z *elevation) [][]float64 {
	out := make([][]float64, len(pts))
	for i, p := range pts {
		out[i] = e.position(p, z)
	}
	return out
}

func (e *Exporter) position(p orb.Point, z *elevation) []float64 {
	if h, ok := z.next(); ok {
		return []float64{e.round(p[0]), e.round(p[1]), e.round(h)}
	}
	return []float64{e.round(p[0]), e.round(p[1])}
}

// elevation hands out input Z values in vertex order. A nil elevation
// yields none, so positions stay 2D.
type elevation struct {
	z []float64
	i int
}

func newElevation(g orb.Geometry, z []float64) *elevation {
	if len(z) == 0 || len(z) != domain.VertexCount(g) {
		return nil
	}
	return &elevation{z: z}
}

func (el *elevation) next() (float64, bool) {
	if el == nil || el.i >= len(el.z) {
		return 0, false
	}
	h := el.z[el.i]
	el.i++
	return h, true
}

func (el *elevation) skip(n int) {
	if el != nil {
		el.i += n
	}
}

func (e *Exporter) round3(coords [][]float64) [][]float64 {
	for _, c := range coords {
		for j := range c {
			c[j] = e.round(c[j])
		}
	}
	return coords
}

// round rounds half away from zero to the configured number of decimals.
func (e *Exporter) round(v float64) float64 {
	scale := math.Pow10(e.cfg.Precision)
	return math.Round(v*scale) / scale
}
