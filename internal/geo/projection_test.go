package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/urban3d-etl/internal/observability"
)

func TestPROJProjector_RoundTrip(t *testing.T) {
	p := NewPROJProjector(4, observability.NewMetricsForTesting())
	t.Cleanup(p.Close)

	bolzano := orb.Point{11.3548, 46.4983}

	utm, err := p.Transform("EPSG:4326", "EPSG:32632", bolzano)
	require.NoError(t, err)
	pt, ok := utm.(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, 680000, pt.X(), 5000, "easting")
	assert.InDelta(t, 5151000, pt.Y(), 5000, "northing")

	back, err := p.Transform("EPSG:32632", "EPSG:4326", utm)
	require.NoError(t, err)
	assert.InDelta(t, bolzano.Lon(), back.(orb.Point).Lon(), 1e-7)
	assert.InDelta(t, bolzano.Lat(), back.(orb.Point).Lat(), 1e-7)

	assert.Equal(t, 2, p.cache.len())
}

func TestPROJProjector_DoesNotMutateInput(t *testing.T) {
	p := NewPROJProjector(4, observability.NewMetricsForTesting())
	t.Cleanup(p.Close)

	line := orb.LineString{{11.35, 46.49}, {11.36, 46.50}}
	orig := orb.Clone(line).(orb.LineString)

	out, err := p.Transform("EPSG:4326", "EPSG:3857", line)
	require.NoError(t, err)
	assert.Equal(t, orig, line)
	assert.NotEqual(t, line, out)
	require.Len(t, out.(orb.LineString), 2)
}

func TestPROJProjector_SameCRSIsIdentity(t *testing.T) {
	p := NewPROJProjector(4, observability.NewMetricsForTesting())
	t.Cleanup(p.Close)

	poly := square(11.35, 46.49, 0.001)
	out, err := p.Transform("EPSG:4326", "EPSG:4326", poly)
	require.NoError(t, err)
	assert.Equal(t, poly, out)
	assert.Zero(t, p.cache.len())
}

func TestPROJProjector_UnknownCRS(t *testing.T) {
	p := NewPROJProjector(4, observability.NewMetricsForTesting())
	t.Cleanup(p.Close)

	_, err := p.Transform("EPSG:999999", "EPSG:4326", orb.Point{1, 2})
	require.Error(t, err)
}

func TestPROJProjector_EvictsBeyondCapacity(t *testing.T) {
	p := NewPROJProjector(1, observability.NewMetricsForTesting())
	t.Cleanup(p.Close)

	pt := orb.Point{11.35, 46.49}
	_, err := p.Transform("EPSG:4326", "EPSG:32632", pt)
	require.NoError(t, err)
	_, err = p.Transform("EPSG:4326", "EPSG:3857", pt)
	require.NoError(t, err)

	assert.Equal(t, 1, p.cache.len())
	_, ok := p.cache.get("EPSG:4326>EPSG:3857")
	assert.True(t, ok)
}
