package export

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// effectiveLayer reads the vertical level of a road from its raw hints. A
// layer that does not parse as an integer counts as 0; a bridge at layer 0
// is lifted to layer 1 because bridges are elevated by definition.
func effectiveLayer(bridge, layer any) int {
	n := parseLayer(layer)
	if n == 0 && bridgeTruthy(bridge) {
		return 1
	}
	return n
}

func parseLayer(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	case []any:
		if len(x) == 0 {
			return 0
		}
		return parseLayer(x[0])
	default:
		return 0
	}
}

// bridgeTruthy accepts any OSM bridge value except absent, empty, "no", and
// numeric zero.
func bridgeTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		s := strings.TrimSpace(x)
		return s != "" && !strings.EqualFold(s, "no")
	case []any:
		return len(x) > 0 && bridgeTruthy(x[0])
	default:
		return true
	}
}

// taper lifts a line into 3D with a raised-cosine profile: zero at both
// ends, maxZ at the middle. Lines shorter than minPoints are resampled first
// so short spans still get a visible ramp.
func taper(line orb.LineString, maxZ float64, minPoints int) [][]float64 {
	pts := []orb.Point(line)
	if len(pts) < minPoints {
		pts = resampleLine(line, minPoints)
	}

	n := len(pts)
	out := make([][]float64, n)
	for i, p := range pts {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		z := maxZ * 0.5 * (1 - math.Cos(2*math.Pi*math.Min(t, 1-t)))
		out[i] = []float64{p[0], p[1], z}
	}
	return out
}

// resampleLine returns n points evenly spaced by arc length along ls. The
// first and last points are kept exactly; intermediate vertices shape the
// path, so a bent line stays bent.
func resampleLine(ls orb.LineString, n int) []orb.Point {
	if len(ls) < 2 || n < 2 {
		pts := make([]orb.Point, n)
		if len(ls) > 0 {
			for i := range pts {
				pts[i] = ls[0]
			}
		}
		return pts
	}

	cumLen := make([]float64, len(ls))
	for i := 1; i < len(ls); i++ {
		cumLen[i] = cumLen[i-1] + math.Hypot(ls[i][0]-ls[i-1][0], ls[i][1]-ls[i-1][1])
	}
	totalLen := cumLen[len(cumLen)-1]
	if totalLen == 0 {
		pts := make([]orb.Point, n)
		for i := range pts {
			pts[i] = ls[0]
		}
		return pts
	}

	result := make([]orb.Point, n)
	result[0] = ls[0]
	result[n-1] = ls[len(ls)-1]

	seg := 0
	for i := 1; i < n-1; i++ {
		target := totalLen * float64(i) / float64(n-1)
		for seg < len(cumLen)-2 && cumLen[seg+1] < target {
			seg++
		}
		segLen := cumLen[seg+1] - cumLen[seg]
		if segLen == 0 {
			result[i] = ls[seg]
			continue
		}
		f := (target - cumLen[seg]) / segLen
		result[i] = orb.Point{
			ls[seg][0] + f*(ls[seg+1][0]-ls[seg][0]),
			ls[seg][1] + f*(ls[seg+1][1]-ls[seg][1]),
		}
	}
	return result
}
