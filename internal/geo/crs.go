package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

// ErrUnsupportedCRS is returned for a CRS name that is not an EPSG code or a CRS84 alias.
var ErrUnsupportedCRS = errors.New("unsupported CRS")

// NormalizeCRS maps the CRS spellings found in GeoJSON files onto "EPSG:<code>".
// An empty name means undeclared, which GeoJSON defines as WGS84.
//
//	EPSG:32632                     → EPSG:32632
//	urn:ogc:def:crs:EPSG::3857     → EPSG:3857
//	urn:ogc:def:crs:OGC:1.3:CRS84  → EPSG:4326
func NormalizeCRS(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return domain.TargetCRS, nil
	}
	upper := strings.ToUpper(s)
	switch upper {
	case "OGC:CRS84", "CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84", "URN:OGC:DEF:CRS:OGC::CRS84":
		return domain.TargetCRS, nil
	}

	var code string
	switch {
	case strings.HasPrefix(upper, "EPSG:"):
		code = upper[len("EPSG:"):]
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		code = upper[strings.LastIndex(upper, ":")+1:]
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
	}
	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
	}
	return "EPSG:" + strconv.Itoa(n), nil
}

// UTMZone returns the WGS84 UTM zone whose central meridian is nearest to a
// lon/lat point, as an EPSG code: 326zz north of the equator, 327zz south.
func UTMZone(p orb.Point) string {
	lon := math.Mod(p.Lon()+180, 360)
	if lon < 0 {
		lon += 360
	}
	zone := int(lon/6) + 1
	if zone > 60 {
		zone = 60
	}
	base := 32600
	if p.Lat() < 0 {
		base = 32700
	}
	return "EPSG:" + strconv.Itoa(base+zone)
}

// EstimateUTM picks the UTM zone for the centre of a lon/lat bound.
func EstimateUTM(b orb.Bound) string {
	return UTMZone(b.Center())
}
