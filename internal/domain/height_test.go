package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var testSquare = orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

func TestHeightResolver_Resolve(t *testing.T) {
	resolver := NewHeightResolver(DefaultHeightConfig())

	tests := []struct {
		name       string
		candidate  BuildingCandidate
		wantHeight float64
		wantSource HeightSource
	}{
		{
			name:       "primary wins over everything",
			candidate:  BuildingCandidate{HeightPrimary: ptr(25.0), HeightSecondary: ptr(30.0), Levels: ptr(10.0)},
			wantHeight: 25,
			wantSource: HeightSourcePrimary,
		},
		{
			name:       "secondary when primary absent",
			candidate:  BuildingCandidate{HeightSecondary: ptr(14.5), Levels: ptr(2.0)},
			wantHeight: 14.5,
			wantSource: HeightSourceSecondary,
		},
		{
			name:       "levels times floor height",
			candidate:  BuildingCandidate{Levels: ptr(4.0)},
			wantHeight: 12,
			wantSource: HeightSourceLevels,
		},
		{
			name:       "no signals falls back to default",
			candidate:  BuildingCandidate{},
			wantHeight: 9,
			wantSource: HeightSourceDefault,
		},
		{
			name:       "primary above max is clamped but keeps source",
			candidate:  BuildingCandidate{HeightPrimary: ptr(999.0)},
			wantHeight: 300,
			wantSource: HeightSourcePrimary,
		},
		{
			name:       "primary below min is clamped but keeps source",
			candidate:  BuildingCandidate{HeightPrimary: ptr(0.5)},
			wantHeight: 2,
			wantSource: HeightSourcePrimary,
		},
		{
			name:       "zero primary still counts as primary",
			candidate:  BuildingCandidate{HeightPrimary: ptr(0.0), Levels: ptr(5.0)},
			wantHeight: 2,
			wantSource: HeightSourcePrimary,
		},
		{
			name:       "zero levels is available",
			candidate:  BuildingCandidate{Levels: ptr(0.0)},
			wantHeight: 2,
			wantSource: HeightSourceLevels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.candidate.Geometry = testSquare
			out, stats := resolver.Resolve([]BuildingCandidate{tt.candidate})

			require.Len(t, out, 1)
			assert.InDelta(t, tt.wantHeight, out[0].Height, 1e-9)
			assert.Equal(t, tt.wantSource, out[0].HeightSource)
			assert.Equal(t, testSquare, out[0].Geometry)
			assert.Equal(t, 1, stats.Total)
			assert.Equal(t, 1, stats.Sources[tt.wantSource])
		})
	}
}

func TestHeightResolver_NonNumericSignalsFallThrough(t *testing.T) {
	resolver := NewHeightResolver(DefaultHeightConfig())

	candidate := DecodeBuilding(Feature{
		Geometry: testSquare,
		Properties: map[string]any{
			AttrHeightPrimary:   "12 m",
			AttrHeightSecondary: nil,
			AttrLevels:          "3",
		},
	})

	out, _ := resolver.Resolve([]BuildingCandidate{candidate})
	require.Len(t, out, 1)
	assert.InDelta(t, 9.0, out[0].Height, 1e-9)
	assert.Equal(t, HeightSourceLevels, out[0].HeightSource)
}

func TestHeightResolver_HeightAlwaysInBounds(t *testing.T) {
	cfg := DefaultHeightConfig()
	resolver := NewHeightResolver(cfg)

	candidates := []BuildingCandidate{
		{HeightPrimary: ptr(-40.0)},
		{HeightPrimary: ptr(1e12)},
		{HeightSecondary: ptr(0.1)},
		{Levels: ptr(1e307)},
		{Levels: ptr(-2.0)},
		{},
	}

	out, stats := resolver.Resolve(candidates)
	require.Len(t, out, len(candidates))
	for i, b := range out {
		assert.GreaterOrEqual(t, b.Height, cfg.MinHeightM, "building %d", i)
		assert.LessOrEqual(t, b.Height, cfg.MaxHeightM, "building %d", i)
	}
	assert.Equal(t, 5, stats.Clamped)
	assert.Equal(t, 2, stats.Sources[HeightSourcePrimary])
	assert.Equal(t, 1, stats.Sources[HeightSourceSecondary])
	assert.Equal(t, 2, stats.Sources[HeightSourceLevels])
	assert.Equal(t, 1, stats.Sources[HeightSourceDefault])
}

func TestHeightResolver_RawSignalsDoNotLeak(t *testing.T) {
	resolver := NewHeightResolver(DefaultHeightConfig())

	out, _ := resolver.Resolve([]BuildingCandidate{{
		Geometry:        testSquare,
		Name:            ptr("Museion"),
		BuildingType:    ptr("museum"),
		HeightPrimary:   ptr(21.0),
		HeightSecondary: ptr(20.0),
		Levels:          ptr(6.0),
	}})
	require.Len(t, out, 1)

	props := out[0].Feature().Properties
	assert.Equal(t, map[string]any{
		AttrHeight:       21.0,
		AttrHeightSource: "primary",
		AttrName:         "Museion",
		AttrBuildingType: "museum",
	}, props)
}

func TestHeightResolver_CustomConfig(t *testing.T) {
	resolver := NewHeightResolver(HeightConfig{
		DefaultHeightM: 6,
		FloorHeightM:   3.5,
		MinHeightM:     1,
		MaxHeightM:     100,
	})

	out, _ := resolver.Resolve([]BuildingCandidate{{Levels: ptr(2.0)}, {}})
	require.Len(t, out, 2)
	assert.InDelta(t, 7.0, out[0].Height, 1e-9)
	assert.InDelta(t, 6.0, out[1].Height, 1e-9)
}
