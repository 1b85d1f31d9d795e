package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	City      string
	InputDir  string
	OutputDir string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// RunInterval re-runs the pipeline on a schedule. Zero means run once and exit.
	RunInterval time.Duration

	// Height resolution.
	DefaultHeightM float64
	FloorHeightM   float64
	MinHeightM     float64
	MaxHeightM     float64

	// Secondary-source gap filling.
	SecondaryEnabled      bool
	SecondaryMaxDistanceM float64

	// Export.
	CoordPrecision int
	LayerHeightM   float64
	TaperMinPoints int

	ProjCacheSize int

	// Kafka export notifications.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	runInterval, err := parseDuration("RUN_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		City:            sharedcfg.EnvOrDefault("CITY", "Bolzano, Italy"),
		InputDir:        sharedcfg.EnvOrDefault("INPUT_DIR", "data/raw"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "data/processed"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RunInterval:     runInterval,

		SecondaryEnabled: os.Getenv("SECONDARY_ENABLED") == "true",

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "urban3d-layers"),
		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
	}

	floats := []struct {
		key  string
		def  string
		dest *float64
	}{
		{"DEFAULT_HEIGHT_M", "9.0", &cfg.DefaultHeightM},
		{"FLOOR_HEIGHT_M", "3.0", &cfg.FloorHeightM},
		{"MIN_HEIGHT_M", "2.0", &cfg.MinHeightM},
		{"MAX_HEIGHT_M", "300.0", &cfg.MaxHeightM},
		{"SECONDARY_MAX_DISTANCE_M", "5.0", &cfg.SecondaryMaxDistanceM},
		{"LAYER_HEIGHT_M", "6.0", &cfg.LayerHeightM},
	}
	for _, f := range floats {
		v, err := parsePositiveFloat(f.key, f.def)
		if err != nil {
			return nil, err
		}
		*f.dest = v
	}

	if cfg.CoordPrecision, err = parseInt("COORD_PRECISION", "6", 0, 15); err != nil {
		return nil, err
	}
	if cfg.TaperMinPoints, err = parseInt("TAPER_MIN_POINTS", "5", 3, 1000); err != nil {
		return nil, err
	}
	if cfg.ProjCacheSize, err = parseInt("PROJ_CACHE_SIZE", "16", 1, 1024); err != nil {
		return nil, err
	}

	if cfg.MinHeightM > cfg.MaxHeightM {
		return nil, errors.New("MIN_HEIGHT_M must not exceed MAX_HEIGHT_M")
	}
	if cfg.InputDir == "" {
		return nil, errors.New("INPUT_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return v, nil
}

func parseInt(key, def string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", key, lo, hi)
	}
	return n, nil
}
