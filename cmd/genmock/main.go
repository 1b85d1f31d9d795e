// Command genmock writes a deterministic synthetic acquisition set for one
// city block so the pipeline can run without network access. The output
// exercises every signal path: explicit heights, levels, secondary gap
// filling, invalid and empty footprints, bridges, tunnels and list tags.
//
// Usage:
//
//	go run ./cmd/genmock -out data/raw -rows 8
//	INPUT_DIR=data/raw go run ./cmd/etl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

// Block origin in central Bolzano and the footprint grid spacing, in degrees.
const (
	originLon = 11.3500
	originLat = 46.4960
	cellDeg   = 0.0003
	sizeDeg   = 0.0001
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "directory to write the <dataset>.geojson files into")
	rows := flag.Int("rows", 6, "buildings per side of the synthetic grid")
	seed := flag.Uint64("seed", 42, "random seed for heights and names")
	flag.Parse()

	if *out == "" || *rows < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed)) //nolint:gosec // fixture data, not security sensitive

	buildings, secondary := genBuildings(rng, *rows)
	datasets := map[domain.Dataset]*geojson.FeatureCollection{
		domain.DatasetBuildings: buildings,
		domain.DatasetSecondary: secondary,
		domain.DatasetRoads:     genRoads(*rows),
		domain.DatasetPOIs:      genPOIs(rng, *rows),
	}

	for _, ds := range []domain.Dataset{domain.DatasetBuildings, domain.DatasetSecondary, domain.DatasetRoads, domain.DatasetPOIs} {
		path := filepath.Join(*out, string(ds)+".geojson")
		if err := writeJSON(path, datasets[ds]); err != nil {
			return fmt.Errorf("writing %s: %w", ds, err)
		}
		log.Printf("%s: %d features -> %s", ds, len(datasets[ds].Features), path)
	}

	printStats(buildings)
	return nil
}

// genBuildings lays out a rows x rows grid of square footprints and cycles
// through the height signals. Every fourth building has no signal of its
// own and gets a secondary record about a metre away.
func genBuildings(rng *rand.Rand, rows int) (*geojson.FeatureCollection, *geojson.FeatureCollection) {
	buildings := geojson.NewFeatureCollection()
	secondary := geojson.NewFeatureCollection()
	secondary.ExtraMembers = geojson.Properties{"crs": namedCRS("EPSG:3857")}

	types := []string{"residential", "apartments", "commercial", "yes", "church"}
	for i := range rows * rows {
		sw := orb.Point{originLon + float64(i%rows)*cellDeg, originLat + float64(i/rows)*cellDeg}
		f := geojson.NewFeature(square(sw, sizeDeg))
		f.Properties["building_type"] = types[i%len(types)]

		switch i % 8 {
		case 0:
			f.Properties[domain.AttrHeightPrimary] = fmt.Sprintf("%.1f", 8+rng.Float64()*30)
		case 1:
			f.Properties[domain.AttrHeightOSM] = 12 + rng.IntN(20)
		case 2:
			f.Properties[domain.AttrLevels] = fmt.Sprint(2 + rng.IntN(6))
		case 3, 7:
			shifted := orb.Point{sw[0] + 0.00001, sw[1]}
			s := geojson.NewFeature(project.Geometry(square(shifted, sizeDeg), project.WGS84.ToMercator))
			s.Properties[domain.AttrHeight] = float64(int((15+rng.Float64()*25)*10)) / 10
			secondary.Append(s)
		case 4:
			f.Properties[domain.AttrHeightPrimary] = "12 m"   // unparsable, falls through
			f.Properties[domain.AttrLevels] = []any{"3", "4"} // lists are not numeric signals
		case 5:
			f.Geometry = bowtie(sw, sizeDeg)
			f.Properties[domain.AttrLevels] = 2
		case 6:
			f.Properties[domain.AttrHeightPrimary] = "900" // clamped to the maximum
		}
		if i%3 == 0 {
			f.Properties[domain.AttrName] = fmt.Sprintf("Edificio %d", i+1)
		}
		buildings.Append(f)
	}

	// A footprint with no coordinates is dropped by the sanitizer.
	empty := geojson.NewFeature(orb.Polygon{})
	empty.Properties[domain.AttrLevels] = "3"
	buildings.Append(empty)

	return buildings, secondary
}

// genRoads draws one street between every grid row plus a bridge and a
// tunnel crossing the block.
func genRoads(rows int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	tags := []any{"residential", "tertiary", []any{"secondary", "primary"}, "footway"}
	span := float64(rows) * cellDeg

	for r := range rows {
		lat := originLat + float64(r)*cellDeg - (cellDeg-sizeDeg)/2
		f := geojson.NewFeature(orb.LineString{{originLon - cellDeg, lat}, {originLon + span, lat}})
		f.Properties[domain.AttrHighway] = tags[r%len(tags)]
		f.Properties[domain.AttrName] = fmt.Sprintf("Via %d", r+1)
		fc.Append(f)
	}

	bridge := geojson.NewFeature(orb.LineString{{originLon - cellDeg, originLat}, {originLon + span, originLat + span}})
	bridge.Properties[domain.AttrHighway] = "primary"
	bridge.Properties[domain.AttrBridge] = "viaduct"
	bridge.Properties[domain.AttrLayer] = "1"
	bridge.Properties[domain.AttrName] = "Ponte Talvera"
	fc.Append(bridge)

	tunnel := geojson.NewFeature(orb.LineString{
		{originLon + span, originLat},
		{originLon + span/2, originLat + span/2},
		{originLon - cellDeg, originLat + span},
	})
	tunnel.Properties[domain.AttrHighway] = "trunk"
	tunnel.Properties["tunnel"] = "yes"
	tunnel.Properties[domain.AttrLayer] = -1
	fc.Append(tunnel)

	return fc
}

func genPOIs(rng *rand.Rand, rows int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	pois := []struct{ category, amenity string }{
		{"food", "restaurant"},
		{"healthcare", "pharmacy"},
		{"education", "school"},
		{"finance", "bank"},
		{"culture", "museum"},
		{"nightlife", "bar"}, // outside the category set
	}
	for i, p := range pois {
		pt := orb.Point{
			originLon + rng.Float64()*float64(rows)*cellDeg,
			originLat + rng.Float64()*float64(rows)*cellDeg,
		}
		f := geojson.NewFeature(pt)
		f.Properties[domain.AttrCategory] = p.category
		f.Properties[domain.AttrAmenityTag] = p.amenity
		if i%2 == 0 {
			f.Properties[domain.AttrName] = fmt.Sprintf("%s %d", p.amenity, i+1)
		}
		fc.Append(f)
	}
	return fc
}

func square(sw orb.Point, size float64) orb.Polygon {
	return orb.Polygon{{
		sw,
		{sw[0] + size, sw[1]},
		{sw[0] + size, sw[1] + size},
		{sw[0], sw[1] + size},
		sw,
	}}
}

// bowtie is a self-intersecting ring that needs repair.
func bowtie(sw orb.Point, size float64) orb.Polygon {
	return orb.Polygon{{
		sw,
		{sw[0] + size, sw[1] + size},
		{sw[0] + size, sw[1]},
		{sw[0], sw[1] + size},
		sw,
	}}
}

func namedCRS(name string) map[string]any {
	return map[string]any{
		"type":       "name",
		"properties": map[string]any{"name": name},
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// printStats reports which height signal each generated building will
// resolve from before secondary gap filling.
func printStats(fc *geojson.FeatureCollection) {
	counts := map[string]int{}
	for _, f := range fc.Features {
		c := domain.DecodeBuilding(domain.Feature{Geometry: f.Geometry, Properties: f.Properties})
		switch {
		case c.HeightPrimary != nil:
			counts["primary"]++
		case c.Levels != nil:
			counts["levels"]++
		default:
			counts["no signal"]++
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\n=== Building signals ===")
	for _, k := range keys {
		fmt.Printf("  %-10s %d\n", k, counts[k])
	}
}
