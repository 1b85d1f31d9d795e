package domain

import "github.com/paulmach/orb"

// HeightSource records which signal determined a building's final height.
type HeightSource string

const (
	HeightSourcePrimary   HeightSource = "primary"
	HeightSourceSecondary HeightSource = "secondary"
	HeightSourceLevels    HeightSource = "levels"
	HeightSourceDefault   HeightSource = "default"
)

// HeightSources lists provenance labels from highest to lowest priority.
var HeightSources = []HeightSource{
	HeightSourcePrimary,
	HeightSourceSecondary,
	HeightSourceLevels,
	HeightSourceDefault,
}

// Acquisition attribute names for buildings. Primary height also accepts the
// raw OSM column name produced by older fetchers.
const (
	AttrBuildingType    = "building_type"
	AttrName            = "name"
	AttrHeightPrimary   = "height_primary"
	AttrHeightOSM       = "height_osm"
	AttrHeightSecondary = "height_secondary"
	AttrLevels          = "levels"
	AttrHeight          = "height"
	AttrHeightSource    = "height_source"
)

// BuildingCandidate is a building before height resolution. Each signal is
// nil when absent or not a finite number.
type BuildingCandidate struct {
	Geometry        orb.Geometry
	Z               []float64
	BuildingType    *string
	Name            *string
	HeightPrimary   *float64
	HeightSecondary *float64
	Levels          *float64
}

// HasPrimaryHeight reports whether a directly reported height is usable.
func (b BuildingCandidate) HasPrimaryHeight() bool {
	return b.HeightPrimary != nil
}

// Feature flattens the candidate, including the raw signals that are present.
func (b BuildingCandidate) Feature() Feature {
	props := make(map[string]any, 5)
	setOptional(props, AttrBuildingType, b.BuildingType)
	setOptional(props, AttrName, b.Name)
	if b.HeightPrimary != nil {
		props[AttrHeightPrimary] = *b.HeightPrimary
	}
	if b.HeightSecondary != nil {
		props[AttrHeightSecondary] = *b.HeightSecondary
	}
	if b.Levels != nil {
		props[AttrLevels] = *b.Levels
	}
	return Feature{Geometry: b.Geometry, Z: b.Z, Properties: props}
}

// DecodeBuilding reads a building candidate from acquisition attributes.
func DecodeBuilding(f Feature) BuildingCandidate {
	primary := ParseSignal(f.Properties[AttrHeightPrimary])
	if _, ok := f.Properties[AttrHeightPrimary]; !ok {
		primary = ParseSignal(f.Properties[AttrHeightOSM])
	}
	return BuildingCandidate{
		Geometry:        f.Geometry,
		Z:               f.Z,
		BuildingType:    optionalString(f.Properties[AttrBuildingType]),
		Name:            optionalString(f.Properties[AttrName]),
		HeightPrimary:   primary,
		HeightSecondary: ParseSignal(f.Properties[AttrHeightSecondary]),
		Levels:          ParseSignal(f.Properties[AttrLevels]),
	}
}

// Building is a building after height resolution. Raw signals are gone by
// construction, so they cannot reach an exported layer.
type Building struct {
	Geometry     orb.Geometry
	Z            []float64
	BuildingType *string
	Name         *string
	Height       float64
	HeightSource HeightSource
}

// Feature flattens the resolved building.
func (b Building) Feature() Feature {
	props := map[string]any{
		AttrHeight:       b.Height,
		AttrHeightSource: string(b.HeightSource),
	}
	setOptional(props, AttrBuildingType, b.BuildingType)
	setOptional(props, AttrName, b.Name)
	return Feature{Geometry: b.Geometry, Z: b.Z, Properties: props}
}

// SecondaryBuilding is a gap-filling candidate from the secondary source.
type SecondaryBuilding struct {
	Geometry orb.Geometry
	Height   float64
}

// DecodeSecondary reads a secondary candidate. ok is false when the record
// carries no finite height and cannot fill a gap.
func DecodeSecondary(f Feature) (SecondaryBuilding, bool) {
	h := ParseSignal(f.Properties[AttrHeight])
	if h == nil || f.Geometry == nil {
		return SecondaryBuilding{}, false
	}
	return SecondaryBuilding{Geometry: f.Geometry, Height: *h}, true
}

// DecodeSecondaries keeps only the secondary records with a usable height.
func DecodeSecondaries(fc FeatureCollection) Collection[SecondaryBuilding] {
	out := Collection[SecondaryBuilding]{CRS: fc.CRS, Items: make([]SecondaryBuilding, 0, len(fc.Items))}
	for _, f := range fc.Items {
		if s, ok := DecodeSecondary(f); ok {
			out.Items = append(out.Items, s)
		}
	}
	return out
}
