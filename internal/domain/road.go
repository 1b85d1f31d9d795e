package domain

import "github.com/paulmach/orb"

// RoadClass is the visual hierarchy bucket of a road segment.
type RoadClass string

const (
	RoadClassMajor RoadClass = "major"
	RoadClassMinor RoadClass = "minor"
	RoadClassPath  RoadClass = "path"
	RoadClassOther RoadClass = "other"
)

// Road attribute names. Bridge and layer are elevation hints consumed by the
// exporter and never written to a layer file.
const (
	AttrRoadTag   = "road_tag"
	AttrHighway   = "highway"
	AttrRoadClass = "road_class"
	AttrLineWidth = "line_width"
	AttrBridge    = "bridge"
	AttrLayer     = "layer"
)

var roadHierarchy = map[string]RoadClass{
	"motorway":    RoadClassMajor,
	"trunk":       RoadClassMajor,
	"primary":     RoadClassMajor,
	"secondary":   RoadClassMinor,
	"tertiary":    RoadClassMinor,
	"residential": RoadClassMinor,
	"footway":     RoadClassPath,
	"cycleway":    RoadClassPath,
	"path":        RoadClassPath,
	"pedestrian":  RoadClassPath,
}

var lineWidths = map[RoadClass]int{
	RoadClassMajor: 3,
	RoadClassMinor: 2,
	RoadClassPath:  1,
	RoadClassOther: 1,
}

// ClassifyRoad maps a raw highway tag to its class and rendered line width.
// Unknown tags fall into RoadClassOther.
func ClassifyRoad(tag string) (RoadClass, int) {
	class, ok := roadHierarchy[tag]
	if !ok {
		class = RoadClassOther
	}
	return class, lineWidths[class]
}

// Road is a line feature of the road network.
type Road struct {
	Geometry  orb.Geometry
	Z         []float64
	RoadTag   *string
	Name      *string
	RoadClass RoadClass
	LineWidth int

	// Raw elevation hints. Layer keeps whatever the source supplied; the
	// exporter decides whether it parses as an integer.
	Bridge string
	Layer  any
}

// Feature flattens the road, including its transient elevation hints.
func (r Road) Feature() Feature {
	props := map[string]any{
		AttrRoadClass: string(r.RoadClass),
		AttrLineWidth: r.LineWidth,
	}
	setOptional(props, AttrRoadTag, r.RoadTag)
	setOptional(props, AttrName, r.Name)
	if r.Bridge != "" {
		props[AttrBridge] = r.Bridge
	}
	if r.Layer != nil {
		props[AttrLayer] = r.Layer
	}
	return Feature{Geometry: r.Geometry, Z: r.Z, Properties: props}
}

// DecodeRoad reads a road from acquisition attributes, collapsing list-valued
// tags to their first element and deriving class and width. A road without
// any highway tag is classed as other and written without road_tag.
func DecodeRoad(f Feature) Road {
	raw, ok := f.Properties[AttrRoadTag]
	if !ok || raw == nil {
		raw = f.Properties[AttrHighway]
	}
	tag := optionalString(raw)
	class, width := ClassifyRoad(FirstTag(raw))
	return Road{
		Geometry:  f.Geometry,
		Z:         f.Z,
		RoadTag:   tag,
		Name:      optionalString(f.Properties[AttrName]),
		RoadClass: class,
		LineWidth: width,
		Bridge:    FirstTag(f.Properties[AttrBridge]),
		Layer:     firstValue(f.Properties[AttrLayer]),
	}
}

func firstValue(v any) any {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}
