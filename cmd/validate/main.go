// Command validate performs integrity checks on the layer files exported for
// one city: file presence, building heights and provenance, stripped raw
// signals, road elevation profiles, POI categories and coordinate precision.
//
// Usage:
//
//	go run ./cmd/validate -out data/processed -city "Bolzano, Italy"
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
	"github.com/couchcryptid/urban3d-etl/internal/export"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// limits are the bounds the exported layers are checked against.
type limits struct {
	minHeight float64
	maxHeight float64
	precision int
}

func main() {
	outDir := flag.String("out", "data/processed", "pipeline OUTPUT_DIR")
	city := flag.String("city", "Bolzano, Italy", "city the layers were exported for")
	heights := domain.DefaultHeightConfig()
	minHeight := flag.Float64("min-height", heights.MinHeightM, "lowest allowed building height in metres")
	maxHeight := flag.Float64("max-height", heights.MaxHeightM, "highest allowed building height in metres")
	precision := flag.Int("precision", export.DefaultConfig().Precision, "maximum decimals per coordinate axis")
	flag.Parse()

	dir := filepath.Join(*outDir, domain.CitySlug(*city))
	os.Exit(run(dir, limits{minHeight: *minHeight, maxHeight: *maxHeight, precision: *precision}))
}

func run(dir string, lim limits) int {
	fmt.Println("=== Urban3D Layer Validation ===")
	fmt.Println()

	layers := make(map[domain.Kind]*export.Document, len(domain.Kinds))
	load := &phase{name: "Phase 1: Layer files"}
	for _, kind := range domain.Kinds {
		doc, err := loadLayer(filepath.Join(dir, string(kind)+".geojson"))
		if err != nil {
			load.errorf("%s: %v", kind, err)
			continue
		}
		layers[kind] = doc
	}
	if !load.passed() {
		report([]*phase{load})
		return 1
	}

	phases := []*phase{
		load,
		validateBuildings(layers[domain.KindBuildings], lim),
		validateRoads(layers[domain.KindRoads]),
		validatePOIs(layers[domain.KindPOIs]),
		validatePrecision(layers, lim.precision),
	}

	fmt.Printf("Features: %d buildings, %d roads, %d pois\n",
		len(layers[domain.KindBuildings].Features),
		len(layers[domain.KindRoads].Features),
		len(layers[domain.KindPOIs].Features))

	if report(phases) {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func report(phases []*phase) bool {
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}
	return allPassed
}

func loadLayer(path string) (*export.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if doc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("type is %q, want FeatureCollection", doc.Type)
	}
	return &doc, nil
}

// ── Phase 2: buildings ──

var rawSignals = []string{
	domain.AttrHeightPrimary,
	domain.AttrHeightOSM,
	domain.AttrHeightSecondary,
	domain.AttrLevels,
}

func validateBuildings(doc *export.Document, lim limits) *phase {
	p := &phase{name: "Phase 2: Building heights"}

	fc := domain.FeatureCollection{Items: make([]domain.Feature, len(doc.Features))}
	for i, f := range doc.Features {
		fc.Items[i] = domain.Feature{Properties: f.Properties}

		if f.Geometry.Type != "Polygon" && f.Geometry.Type != "MultiPolygon" {
			p.errorf("building %d: geometry %s, want Polygon or MultiPolygon", i, f.Geometry.Type)
		}
		if h, ok := f.Properties[domain.AttrHeight].(float64); ok && (h < lim.minHeight || h > lim.maxHeight) {
			p.errorf("building %d: height %.1f outside [%.1f, %.1f]", i, h, lim.minHeight, lim.maxHeight)
		}
		for _, key := range rawSignals {
			if _, ok := f.Properties[key]; ok {
				p.errorf("building %d: raw signal %q was not stripped", i, key)
			}
		}
	}

	// Required attributes and provenance labels.
	quality, err := domain.ValidateBuildings(fc)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	sources := make([]string, 0, len(quality.Sources))
	for s, n := range quality.Sources {
		sources = append(sources, fmt.Sprintf("%s=%d", s, n))
	}
	sort.Strings(sources)
	fmt.Printf("Buildings: %d total, %.1f%% known height, avg %.1f m, range %.1f-%.1f m, sources %v\n",
		quality.TotalBuildings, quality.PctKnownHeight, quality.AvgHeight,
		quality.MinHeight, quality.MaxHeight, sources)
	return p
}

// ── Phase 3: roads ──

func validateRoads(doc *export.Document) *phase {
	p := &phase{name: "Phase 3: Road elevation"}

	elevated := 0
	for i, f := range doc.Features {
		for _, key := range []string{domain.AttrBridge, domain.AttrLayer} {
			if _, ok := f.Properties[key]; ok {
				p.errorf("road %d: %q should be folded into Z", i, key)
			}
		}
		if _, ok := f.Properties[domain.AttrRoadClass].(string); !ok {
			p.errorf("road %d: missing %q", i, domain.AttrRoadClass)
		}

		lines, err := roadLines(f.Geometry)
		if err != nil {
			p.errorf("road %d: %v", i, err)
			continue
		}

		for _, line := range lines {
			lifted, err := checkProfile(line)
			if err != nil {
				p.errorf("road %d: %v", i, err)
			}
			if lifted {
				elevated++
			}
		}
	}
	fmt.Printf("Roads: %d features, %d elevated lines\n", len(doc.Features), elevated)
	return p
}

// roadLines collects the line parts of a road geometry. Points inside a
// collection are allowed; anything else is not a road.
func roadLines(g export.Geometry) ([][]any, error) {
	switch g.Type {
	case "LineString":
		return [][]any{asList(g.Coordinates)}, nil
	case "MultiLineString":
		var lines [][]any
		for _, part := range asList(g.Coordinates) {
			lines = append(lines, asList(part))
		}
		return lines, nil
	case "GeometryCollection":
		var lines [][]any
		for _, m := range g.Geometries {
			if m.Type == "Point" || m.Type == "MultiPoint" {
				continue
			}
			part, err := roadLines(m)
			if err != nil {
				return nil, err
			}
			lines = append(lines, part...)
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("geometry %s, want LineString or MultiLineString", g.Type)
	}
}

// checkProfile verifies a line's elevation. A 2D line is flat. A 3D line
// that starts and ends at ground level is a taper and must rise to a single
// peak; any other 3D line carries surveyed elevation and is left alone.
func checkProfile(line []any) (bool, error) {
	if len(line) < 2 {
		return false, fmt.Errorf("line has %d positions", len(line))
	}
	dims := len(asList(line[0]))
	for _, pos := range line {
		if len(asList(pos)) != dims {
			return false, errors.New("mixed 2D and 3D positions")
		}
	}
	if dims == 2 {
		return false, nil
	}

	z := make([]float64, len(line))
	for i, pos := range line {
		z[i], _ = asList(pos)[2].(float64)
	}
	if z[0] != 0 || z[len(z)-1] != 0 {
		return false, nil
	}
	peak := 0
	for i := range z {
		if z[i] > z[peak] {
			peak = i
		}
	}
	if z[peak] <= 0 {
		return true, errors.New("elevated line has no positive Z")
	}
	for i := 1; i <= peak; i++ {
		if z[i] < z[i-1] {
			return true, fmt.Errorf("elevation falls before the peak at position %d", i)
		}
	}
	for i := peak + 1; i < len(z); i++ {
		if z[i] > z[i-1] {
			return true, fmt.Errorf("elevation rises after the peak at position %d", i)
		}
	}
	return true, nil
}

// ── Phase 4: POIs ──

func validatePOIs(doc *export.Document) *phase {
	p := &phase{name: "Phase 4: POI categories"}

	counts := map[string]int{}
	for i, f := range doc.Features {
		if f.Geometry.Type != "Point" && f.Geometry.Type != "MultiPoint" {
			p.errorf("poi %d: geometry %s, want Point", i, f.Geometry.Type)
		}
		c, ok := f.Properties[domain.AttrCategory].(string)
		if ok && domain.NormalizeCategory(c) != c {
			p.errorf("poi %d: category %q outside the fixed set", i, c)
		}
		counts[c]++
	}
	fmt.Printf("POIs: %d features, categories %v\n", len(doc.Features), counts)
	return p
}

// ── Phase 5: precision ──

func validatePrecision(layers map[domain.Kind]*export.Document, precision int) *phase {
	p := &phase{name: "Phase 5: Coordinate precision"}
	scale := math.Pow10(precision)

	for _, kind := range domain.Kinds {
		for i, f := range layers[kind].Features {
			walkGeometry(f.Geometry, func(v float64) {
				if math.Abs(v*scale-math.Round(v*scale)) > 1e-6 {
					p.errorf("%s %d: %v has more than %d decimals", kind, i, v, precision)
				}
			})
		}
	}
	return p
}

// ── Helpers ──

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func walkGeometry(g export.Geometry, fn func(float64)) {
	walkNumbers(g.Coordinates, fn)
	for _, m := range g.Geometries {
		walkGeometry(m, fn)
	}
}

func walkNumbers(v any, fn func(float64)) {
	switch x := v.(type) {
	case float64:
		fn(x)
	case []any:
		for _, e := range x {
			walkNumbers(e, fn)
		}
	}
}
