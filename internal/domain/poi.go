package domain

import "github.com/paulmach/orb"

// POI attribute names.
const (
	AttrCategory   = "category"
	AttrAmenityTag = "amenity_tag"
)

// CategoryOther is the bucket for any category outside the fixed set.
const CategoryOther = "other"

var poiCategories = map[string]bool{
	"food":          true,
	"healthcare":    true,
	"education":     true,
	"finance":       true,
	"accommodation": true,
	"culture":       true,
	"shopping":      true,
}

// NormalizeCategory collapses anything outside the closed category set to "other".
func NormalizeCategory(c string) string {
	if poiCategories[c] {
		return c
	}
	return CategoryOther
}

// POI is a point of interest. It carries no building height.
type POI struct {
	Geometry   orb.Geometry
	Z          []float64
	Name       *string
	Category   *string
	AmenityTag *string
}

func (p POI) Feature() Feature {
	props := make(map[string]any, 3)
	setOptional(props, AttrName, p.Name)
	setOptional(props, AttrCategory, p.Category)
	setOptional(props, AttrAmenityTag, p.AmenityTag)
	return Feature{Geometry: p.Geometry, Z: p.Z, Properties: props}
}

// DecodePOI reads a point of interest from classified acquisition output.
// A present category outside the fixed set becomes "other"; an absent one
// stays absent.
func DecodePOI(f Feature) POI {
	poi := POI{
		Geometry:   f.Geometry,
		Z:          f.Z,
		Name:       optionalString(f.Properties[AttrName]),
		AmenityTag: optionalString(f.Properties[AttrAmenityTag]),
	}
	if c := optionalString(f.Properties[AttrCategory]); c != nil {
		normalized := NormalizeCategory(*c)
		poi.Category = &normalized
	}
	return poi
}
