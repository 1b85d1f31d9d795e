package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// TargetCRS is the geographic reference every exported layer is expressed in.
const TargetCRS = "EPSG:4326"

// ErrUnknownKind is returned when a layer kind tag is not one of buildings, roads, or pois.
var ErrUnknownKind = errors.New("unknown feature kind")

// Kind selects the attribute set and geometry handling of an exported layer.
type Kind string

const (
	KindBuildings Kind = "buildings"
	KindRoads     Kind = "roads"
	KindPOIs      Kind = "pois"
)

// Kinds lists every exportable layer in pipeline order.
var Kinds = []Kind{KindBuildings, KindRoads, KindPOIs}

// ParseKind validates a kind tag.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindBuildings, KindRoads, KindPOIs:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Dataset names an acquisition output consumed by the pipeline.
type Dataset string

const (
	DatasetBuildings Dataset = "buildings"
	DatasetSecondary Dataset = "secondary_buildings"
	DatasetRoads     Dataset = "roads"
	DatasetPOIs      Dataset = "pois"
)

// CitySlug turns a city name into the directory name of its layer files:
// "Bolzano, Italy" becomes "bolzano_italy".
func CitySlug(city string) string {
	s := strings.ToLower(strings.TrimSpace(city))
	s = strings.ReplaceAll(s, ",", "")
	return strings.ReplaceAll(s, " ", "_")
}

// Feature is a geometry plus a flat attribute map. Absent attributes are
// missing keys; a nil value is treated the same as a missing key.
//
// Z holds the elevation of every vertex of Geometry in GeoJSON coordinate
// order. It is nil when the source positions were 2D.
type Feature struct {
	Geometry   orb.Geometry
	Z          []float64
	Properties map[string]any
}

// VertexCount returns how many positions g holds, in the order GeoJSON
// lists them.
func VertexCount(g orb.Geometry) int {
	switch v := g.(type) {
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(v)
	case orb.LineString:
		return len(v)
	case orb.Ring:
		return len(v)
	case orb.MultiLineString:
		n := 0
		for _, ls := range v {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range v {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range v {
			n += VertexCount(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, g := range v {
			n += VertexCount(g)
		}
		return n
	default:
		return 0
	}
}

// Collection is an ordered set of records sharing one coordinate reference.
// An empty CRS means the source did not declare one.
type Collection[T any] struct {
	CRS   string
	Items []T
}

// FeatureCollection is the untyped form every stage boundary speaks.
type FeatureCollection = Collection[Feature]

// Featurer is implemented by typed records that can be flattened for export.
type Featurer interface {
	Feature() Feature
}

// ToFeatures flattens typed records into a FeatureCollection, keeping order and CRS.
func ToFeatures[T Featurer](c Collection[T]) FeatureCollection {
	out := FeatureCollection{CRS: c.CRS, Items: make([]Feature, len(c.Items))}
	for i, item := range c.Items {
		out.Items[i] = item.Feature()
	}
	return out
}

// Decode maps every feature of a collection through a typed decoder.
func Decode[T any](fc FeatureCollection, decode func(Feature) T) Collection[T] {
	out := Collection[T]{CRS: fc.CRS, Items: make([]T, len(fc.Items))}
	for i, f := range fc.Items {
		out.Items[i] = decode(f)
	}
	return out
}

// setOptional writes a string attribute only when it is present.
func setOptional(props map[string]any, key string, v *string) {
	if v != nil {
		props[key] = *v
	}
}
