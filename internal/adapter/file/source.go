package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

// Source reads acquisition output from <dir>/<dataset>.geojson.
// It implements pipeline.Source.
type Source struct {
	dir    string
	logger *slog.Logger
}

// NewSource creates a GeoJSON file source rooted at dir.
func NewSource(dir string, logger *slog.Logger) *Source {
	return &Source{dir: dir, logger: logger}
}

// Path returns the file a dataset is read from.
func (s *Source) Path(ds domain.Dataset) string {
	return filepath.Join(s.dir, string(ds)+".geojson")
}

// Load decodes one dataset. A missing secondary or POI file yields an empty
// collection; buildings and roads are required.
func (s *Source) Load(ctx context.Context, ds domain.Dataset) (domain.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return domain.FeatureCollection{}, err
	}

	path := s.Path(ds)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && optional(ds) {
			s.logger.Info("optional dataset not found, continuing without it", "dataset", ds, "path", path)
			return domain.FeatureCollection{}, nil
		}
		return domain.FeatureCollection{}, fmt.Errorf("read %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode %s: %w", path, err)
	}

	// orb keeps X/Y only, so elevations are read from a second pass over the
	// raw coordinates.
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode %s: %w", path, err)
	}

	out := domain.FeatureCollection{
		CRS:   crsName(fc.ExtraMembers["crs"]),
		Items: make([]domain.Feature, len(fc.Features)),
	}
	for i, f := range fc.Features {
		props := map[string]any(f.Properties)
		if props == nil {
			props = map[string]any{}
		}
		var z []float64
		if i < len(raw.Features) && raw.Features[i].Geometry != nil {
			z = raw.Features[i].Geometry.elevations()
		}
		if len(z) != domain.VertexCount(f.Geometry) {
			z = nil
		}
		out.Items[i] = domain.Feature{Geometry: f.Geometry, Z: z, Properties: props}
	}
	return out, nil
}

type rawCollection struct {
	Features []struct {
		Geometry *rawGeometry `json:"geometry"`
	} `json:"features"`
}

type rawGeometry struct {
	Coordinates any           `json:"coordinates"`
	Geometries  []rawGeometry `json:"geometries"`
}

// elevations returns the third ordinate of every position in document order,
// or nil unless every position has one.
func (g *rawGeometry) elevations() []float64 {
	var z []float64
	if !g.collect(&z) || len(z) == 0 {
		return nil
	}
	return z
}

func (g *rawGeometry) collect(z *[]float64) bool {
	if !collectZ(g.Coordinates, z) {
		return false
	}
	for i := range g.Geometries {
		if !g.Geometries[i].collect(z) {
			return false
		}
	}
	return true
}

func collectZ(v any, z *[]float64) bool {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return true
	}
	if _, isPosition := list[0].(float64); isPosition {
		if len(list) < 3 {
			return false
		}
		h, ok := list[2].(float64)
		if !ok {
			return false
		}
		*z = append(*z, h)
		return true
	}
	for _, e := range list {
		if !collectZ(e, z) {
			return false
		}
	}
	return true
}

func optional(ds domain.Dataset) bool {
	return ds == domain.DatasetSecondary || ds == domain.DatasetPOIs
}

// crsName extracts the legacy named-CRS member:
//
//	"crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::3857"}}
//
// Anything else is treated as undeclared.
func crsName(v any) string {
	member, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	props, ok := member["properties"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := props["name"].(string)
	return name
}
