package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/scene"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/source"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/config"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/observability"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/pipeline"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	entries, err := domain.ParseGradientSpec(cfg.HeatGradient)
	if err != nil {
		logger.Error("invalid HEAT_GRADIENT", "error", err)
		os.Exit(1)
	}
	gradient, err := domain.BuildGradient(entries)
	if err != nil {
		logger.Error("invalid HEAT_GRADIENT", "error", err)
		os.Exit(1)
	}

	// Dataset loading (cached via DATASET_CACHE_TTL; 0 re-fetches every time).
	loader := source.NewLoader(source.NewFetcher(cfg.DataSource, cfg.FetchTimeout, logger), logger, metrics)
	var datasets pipeline.DatasetLoader = loader
	if cfg.DatasetCacheTTL > 0 {
		datasets = source.NewCachedLoader(loader, cfg.DatasetCacheSize, cfg.DatasetCacheTTL, metrics)
		logger.Info("dataset cache enabled", "ttl", cfg.DatasetCacheTTL, "size", cfg.DatasetCacheSize)
	}

	calendar := domain.Calendar{
		StartYear:  cfg.StartYear,
		StartMonth: cfg.StartMonth,
		Prefix:     cfg.ColumnPrefix,
		LatColumn:  cfg.LatColumn,
		LonColumn:  cfg.LonColumn,
	}
	p := pipeline.New(datasets, calendar, gradient, logger, metrics)

	renderer := scene.New(scene.Tiles{
		URL:         cfg.TileURL,
		Attribution: cfg.TileAttribution,
		MaxZoom:     cfg.TileMaxZoom,
	}, metrics)

	// Event publishing (feature-flagged via KAFKA_ENABLED).
	var publisher session.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		metrics.PublishEnabled.Set(1)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	sessions := session.NewRegistry(session.Deps{
		Pipeline:  p,
		Renderer:  renderer,
		Publisher: publisher,
		Options: session.Options{
			Center: domain.LatLon{Lat: cfg.MapCenterLat, Lon: cfg.MapCenterLon},
			Zoom:   cfg.MapZoom,
			Style: domain.HeatStyle{
				MinOpacity: cfg.HeatMinOpacity,
				Radius:     cfg.HeatRadius,
				Blur:       cfg.HeatBlur,
			},
		},
		Logger:  logger,
		Metrics: metrics,
	}, cfg.MaxSessions)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Sessions: sessions,
		Scenes:   renderer,
		Dataset:  p,
		Ready:    p,
		Calendar: calendar,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load the dataset once up front so /readyz reflects a usable source.
	go func() {
		if err := p.WarmUp(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dataset warm-up error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
