package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	fileadapter "github.com/couchcryptid/urban3d-etl/internal/adapter/file"
	httpadapter "github.com/couchcryptid/urban3d-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/urban3d-etl/internal/adapter/kafka"
	"github.com/couchcryptid/urban3d-etl/internal/config"
	"github.com/couchcryptid/urban3d-etl/internal/domain"
	"github.com/couchcryptid/urban3d-etl/internal/export"
	"github.com/couchcryptid/urban3d-etl/internal/geo"
	"github.com/couchcryptid/urban3d-etl/internal/observability"
	"github.com/couchcryptid/urban3d-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	projector := geo.NewPROJProjector(cfg.ProjCacheSize, metrics)
	defer projector.Close()

	// Secondary-source gap filling (feature-flagged via SECONDARY_ENABLED).
	var merger pipeline.Merger
	if cfg.SecondaryEnabled {
		merger = geo.NewSpatialMerger(projector, geo.MergeConfig{MaxDistanceM: cfg.SecondaryMaxDistanceM})
		logger.Info("secondary height source enabled", "max_distance_m", cfg.SecondaryMaxDistanceM)
	} else {
		logger.Info("secondary height source disabled")
	}

	// Export notifications (feature-flagged via KAFKA_ENABLED).
	var notifier pipeline.Notifier
	if cfg.KafkaEnabled {
		n := kafkaadapter.NewNotifier(cfg, logger)
		defer func() {
			if err := n.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = n
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaTopic)
	}

	source := fileadapter.NewSource(cfg.InputDir, logger)
	exporter := export.New(export.Config{
		Precision:      cfg.CoordPrecision,
		LayerHeightM:   cfg.LayerHeightM,
		TaperMinPoints: cfg.TaperMinPoints,
	})

	p := pipeline.New(source, merger, geo.NewSanitizer(projector), exporter, notifier, pipeline.Options{
		City:             cfg.City,
		OutputDir:        cfg.OutputDir,
		SecondaryEnabled: cfg.SecondaryEnabled,
		Heights: domain.HeightConfig{
			DefaultHeightM: cfg.DefaultHeightM,
			FloorHeightM:   cfg.FloorHeightM,
			MinHeightM:     cfg.MinHeightM,
			MaxHeightM:     cfg.MaxHeightM,
		},
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One-shot mode: run, report, exit.
	if cfg.RunInterval == 0 {
		report, err := p.Run(ctx)
		if err != nil {
			logger.Error("pipeline failed", "error", err)
			return 1
		}
		logger.Info("pipeline complete",
			"city", report.City,
			"duration", report.FinishedAt.Sub(report.StartedAt),
			"buildings", report.Layers[domain.KindBuildings].Export.Features,
			"roads", report.Layers[domain.KindRoads].Export.Features,
			"pois", report.Layers[domain.KindPOIs].Export.Features,
		)
		return 0
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduled pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.RunEvery(ctx, cfg.RunInterval); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
	return 0
}
