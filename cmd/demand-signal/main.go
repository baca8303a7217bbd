package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/happytummy/demand-signal/internal/advisory"
	"github.com/happytummy/demand-signal/internal/api"
	"github.com/happytummy/demand-signal/internal/cache"
	"github.com/happytummy/demand-signal/internal/config"
	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/loader"
	"github.com/happytummy/demand-signal/internal/metrics"
	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/oracle"
	"github.com/happytummy/demand-signal/internal/services"
	"github.com/happytummy/demand-signal/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting demand-signal",
		slog.String("address", cfg.Server.Address),
		slog.String("sources", cfg.Sources.Driver),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider, err := cache.New(cfg.Cache, utils.Component(logger, "cache"))
	if err != nil {
		logger.Warn("cache unavailable, loading sources on every request", slog.Any("error", err))
		cacheProvider = cache.NoopProvider{}
	}
	defer cacheProvider.Close()

	sources, sourceCloser, err := buildSources(cfg.Sources)
	if err != nil {
		logger.Error("failed to open event sources", slog.Any("error", err))
		os.Exit(1)
	}
	defer sourceCloser.Close()

	eventCache, err := loader.NewCache(cacheProvider, cfg.Cache.EventsTTL, utils.Component(logger, "loader"), sources...)
	if err != nil {
		logger.Error("failed to build event cache", slog.Any("error", err))
		os.Exit(1)
	}

	forecastOracle, err := oracle.New(cfg.Forecast, logger)
	if err != nil {
		logger.Error("failed to build forecast oracle", slog.Any("error", err))
		os.Exit(1)
	}
	pipeline := engine.NewPipeline(utils.Component(logger, "pipeline"), forecastOracle)
	logger.Info("forecast oracle ready", slog.String("oracle", pipeline.OracleName()))

	advisories, err := advisory.Load(cfg.Advisory.Path, utils.Component(logger, "advisory"))
	if err != nil {
		logger.Error("failed to load advisory book", slog.String("path", cfg.Advisory.Path), slog.Any("error", err))
		os.Exit(1)
	}

	demandService := services.NewDemandService(logger, eventCache, pipeline, advisories, services.Options{
		DefaultHorizonDays: cfg.Forecast.DefaultHorizonDays,
		MaxHorizonDays:     cfg.Forecast.MaxHorizonDays,
		Parallelism:        cfg.Forecast.Parallelism,
		ForecastTimeout:    cfg.Forecast.Timeout,
		SummaryTopN:        cfg.Summary.TopN,
	})

	server, err := api.NewServer(cfg.Server, services.NewHandler(demandService, logger), utils.Component(logger, "grpc"))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("gRPC server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("demand-signal stopped", slog.Duration("forecast_p95", demandService.LatencyP95()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildSources opens the requester and supplier tables for the configured driver.
func buildSources(cfg config.SourcesConfig) ([]loader.Source, io.Closer, error) {
	switch strings.ToLower(cfg.Driver) {
	case "csv":
		return []loader.Source{
			loader.NewCSVSource(cfg.RequesterPath, models.OriginRequester),
			loader.NewCSVSource(cfg.SupplierPath, models.OriginSupplier),
		}, nopCloser{}, nil
	case "postgres":
		db, err := loader.Connect(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return []loader.Source{
			db.Source(cfg.RequesterTable, models.OriginRequester),
			db.Source(cfg.SupplierTable, models.OriginSupplier),
		}, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
	}
}
