package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Bolzano, Italy", cfg.City)
	assert.Equal(t, "data/raw", cfg.InputDir)
	assert.Equal(t, "data/processed", cfg.OutputDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Zero(t, cfg.RunInterval)

	assert.InDelta(t, 9.0, cfg.DefaultHeightM, 1e-9)
	assert.InDelta(t, 3.0, cfg.FloorHeightM, 1e-9)
	assert.InDelta(t, 2.0, cfg.MinHeightM, 1e-9)
	assert.InDelta(t, 300.0, cfg.MaxHeightM, 1e-9)

	assert.False(t, cfg.SecondaryEnabled)
	assert.InDelta(t, 5.0, cfg.SecondaryMaxDistanceM, 1e-9)

	assert.Equal(t, 6, cfg.CoordPrecision)
	assert.InDelta(t, 6.0, cfg.LayerHeightM, 1e-9)
	assert.Equal(t, 5, cfg.TaperMinPoints)
	assert.Equal(t, 16, cfg.ProjCacheSize)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "urban3d-layers", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CITY", "Milan, Italy")
	t.Setenv("INPUT_DIR", "/in")
	t.Setenv("OUTPUT_DIR", "/out")
	t.Setenv("RUN_INTERVAL", "6h")
	t.Setenv("DEFAULT_HEIGHT_M", "12")
	t.Setenv("FLOOR_HEIGHT_M", "3.5")
	t.Setenv("MIN_HEIGHT_M", "1")
	t.Setenv("MAX_HEIGHT_M", "500")
	t.Setenv("SECONDARY_ENABLED", "true")
	t.Setenv("SECONDARY_MAX_DISTANCE_M", "7.5")
	t.Setenv("COORD_PRECISION", "5")
	t.Setenv("LAYER_HEIGHT_M", "5")
	t.Setenv("TAPER_MIN_POINTS", "9")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "layers")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Milan, Italy", cfg.City)
	assert.Equal(t, "/in", cfg.InputDir)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)
	assert.InDelta(t, 12.0, cfg.DefaultHeightM, 1e-9)
	assert.InDelta(t, 3.5, cfg.FloorHeightM, 1e-9)
	assert.InDelta(t, 1.0, cfg.MinHeightM, 1e-9)
	assert.InDelta(t, 500.0, cfg.MaxHeightM, 1e-9)
	assert.True(t, cfg.SecondaryEnabled)
	assert.InDelta(t, 7.5, cfg.SecondaryMaxDistanceM, 1e-9)
	assert.Equal(t, 5, cfg.CoordPrecision)
	assert.InDelta(t, 5.0, cfg.LayerHeightM, 1e-9)
	assert.Equal(t, 9, cfg.TaperMinPoints)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "layers", cfg.KafkaTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidRunInterval(t *testing.T) {
	t.Setenv("RUN_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUN_INTERVAL")
}

func TestLoad_InvalidHeights(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DEFAULT_HEIGHT_M", "abc"},
		{"FLOOR_HEIGHT_M", "-3"},
		{"MAX_HEIGHT_M", "0"},
		{"SECONDARY_MAX_DISTANCE_M", "far"},
		{"LAYER_HEIGHT_M", "-6"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MinAboveMax(t *testing.T) {
	t.Setenv("MIN_HEIGHT_M", "50")
	t.Setenv("MAX_HEIGHT_M", "10")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIN_HEIGHT_M")
}

func TestLoad_PrecisionOutOfRange(t *testing.T) {
	t.Setenv("COORD_PRECISION", "20")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COORD_PRECISION")
}

func TestLoad_TaperMinPointsTooSmall(t *testing.T) {
	t.Setenv("TAPER_MIN_POINTS", "2")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAPER_MIN_POINTS")
}
