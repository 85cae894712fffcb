package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mjasion/degree-days/buffer"
	"github.com/mjasion/degree-days/config"
	"github.com/mjasion/degree-days/coordinator"
	"github.com/mjasion/degree-days/history"
	"github.com/mjasion/degree-days/metrics"
	"github.com/mjasion/degree-days/profiling"
	"github.com/mjasion/degree-days/server"
	"github.com/mjasion/degree-days/telemetry"
	"github.com/mjasion/degree-days/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("c", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting degree-days service")
	logger.Info("configuration loaded successfully", zap.Any("config", cfg.Redacted()))

	// Initialize Pyroscope profiling
	profiler, err := profiling.Start(&cfg.Profiling, logger)
	if err != nil {
		logger.Error("failed to initialize profiler", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if profiler != nil {
			if err := profiler.Stop(); err != nil {
				logger.Error("failed to shutdown profiler", zap.Error(err))
			}
		}
	}()

	// Initialize OpenTelemetry providers
	ctx := context.Background()
	otelProviders, err := telemetry.InitProviders(ctx, &cfg.OpenTelemetry, logger)
	if err != nil {
		logger.Error("failed to initialize OpenTelemetry providers", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if otelProviders != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := otelProviders.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown OpenTelemetry providers", zap.Error(err))
			}
		}
	}()

	// History store client
	historyClient := history.NewClient(
		cfg.HistoryURL,
		cfg.HistoryToken,
		time.Duration(cfg.HistoryTimeoutSeconds*float64(time.Second)),
		logger,
	)

	// Remote-write pipeline, only when a Prometheus URL is configured
	var buf *buffer.RingBuffer[*types.Reading]
	var pusher *metrics.Pusher
	if cfg.PushEnabled() {
		buf = buffer.New[*types.Reading](cfg.BufferSize, logger)
		pusher = metrics.New(metrics.Config{
			URL:             cfg.PrometheusURL,
			Username:        cfg.PrometheusUsername,
			Password:        cfg.PrometheusPassword,
			PushIntervalSec: cfg.PushIntervalSeconds,
			TimeSeriesBuilder: metrics.CombineBuilders(
				metrics.BuildDegreeDayTimeSeries,
				metrics.BuildTemperatureTimeSeries,
			),
		}, buf, logger)
	} else {
		logger.Info("prometheus remote write disabled, no URL configured")
	}

	// One coordinator per validated sensor; an invalid sensor is skipped and
	// the remaining instances keep running
	var instances []server.Instance
	var coordinators []*coordinator.Coordinator
	for _, sensorCfg := range cfg.Sensors {
		if err := historyClient.ValidateEntity(ctx, sensorCfg.EntityID); err != nil {
			logger.Error("sensor validation failed, skipping instance",
				zap.String("sensor", sensorCfg.Name),
				zap.String("entity_id", sensorCfg.EntityID),
				zap.Error(err),
			)
			continue
		}

		coord := coordinator.New(coordinator.Config{
			Sensor:          sensorCfg.Name,
			EntityID:        sensorCfg.EntityID,
			BaseTemperature: *sensorCfg.BaseTemperature,
			TemperatureUnit: sensorCfg.TemperatureUnit,
			IncludeCooling:  sensorCfg.IncludeCooling,
			IncludeWeekly:   *sensorCfg.IncludeWeekly,
			IncludeMonthly:  *sensorCfg.IncludeMonthly,
			RetentionDays:   cfg.RetentionDays,
		}, historyClient, buf, logger)

		coordinators = append(coordinators, coord)
		instances = append(instances, server.Instance{
			Name:           sensorCfg.Name,
			Title:          sensorCfg.Title(),
			IncludeWeekly:  *sensorCfg.IncludeWeekly,
			IncludeMonthly: *sensorCfg.IncludeMonthly,
			Source:         coord,
		})

		logger.Info("sensor instance configured",
			zap.String("sensor", sensorCfg.Name),
			zap.String("entity_id", sensorCfg.EntityID),
			zap.Float64("base_temperature", *sensorCfg.BaseTemperature),
			zap.String("temperature_unit", sensorCfg.TemperatureUnit),
			zap.Bool("include_cooling", sensorCfg.IncludeCooling),
		)
	}

	if len(coordinators) == 0 {
		logger.Error("no valid sensor instances, exiting")
		os.Exit(1)
	}

	updateInterval := time.Duration(cfg.UpdateIntervalSeconds) * time.Second

	// Status server
	statusServer := server.New(instances, buf, updateInterval, cfg.StatusPort, logger)
	go func() {
		if err := statusServer.Start(); err != nil {
			logger.Error("status server error", zap.Error(err))
		}
	}()

	// Set up context for graceful shutdown
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if pusher != nil {
		go pusher.Start(appCtx)
	}

	// Schedule update cycles. SkipIfStillRunning guarantees at most one
	// in-flight cycle per instance.
	cronLogger := &zapCronLogger{logger: logger.Named("cron")}
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	schedule := fmt.Sprintf("@every %ds", cfg.UpdateIntervalSeconds)
	for _, coord := range coordinators {
		coord := coord
		if _, err := scheduler.AddFunc(schedule, func() {
			coord.Tick(appCtx)
		}); err != nil {
			logger.Error("failed to schedule update cycle", zap.Error(err))
			os.Exit(1)
		}
	}

	// Run the first cycle immediately, then on the schedule
	for _, coord := range coordinators {
		coord.Tick(appCtx)
	}
	scheduler.Start()

	logger.Info("service started",
		zap.Int("sensors", len(coordinators)),
		zap.Duration("update_interval", updateInterval),
		zap.Bool("remote_write", pusher != nil),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	stopCtx := scheduler.Stop()
	cancel()
	statusServer.Stop()
	<-stopCtx.Done()

	logger.Info("shutdown complete")
}

// zapCronLogger adapts a zap logger to the cron.Logger interface
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, zap.Any("details", keysAndValues))
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
