package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/veloq/bikectl/internal/config"
	"codeberg.org/veloq/bikectl/internal/control"
	"codeberg.org/veloq/bikectl/internal/device"
	"codeberg.org/veloq/bikectl/internal/errors"
	"codeberg.org/veloq/bikectl/internal/logger"
	"codeberg.org/veloq/bikectl/internal/metrics"
	"codeberg.org/veloq/bikectl/internal/poller"
	"codeberg.org/veloq/bikectl/internal/telemetry"
)

const metricsShutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.EffectiveLogLevel(), logger.IsService())
	logger.Debug().Msg("Config loaded")

	client, err := device.NewHTTPClient(device.ClientConfig{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize device client")
	}

	ctrl := control.NewController(client)

	p, err := poller.New(poller.Config{
		Interval:         cfg.PollInterval(),
		OfflineThreshold: cfg.OfflineThreshold,
	}, client, ctrl, &statusLog{ctrl: ctrl})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize poller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	var metricsSrv *http.Server
	if cfg.MetricsListen != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsListen)
		go func() {
			if serveErr := metricsSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error().Err(serveErr).Msg("metrics server failed")
			}
		}()
		logger.Info().Str("addr", cfg.MetricsListen).Msg("metrics endpoint enabled")
	}

	p.Run(ctx)

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shut down metrics server")
		}
	}

	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// statusLog mirrors every accepted snapshot to the log, with the displayed
// view the controller would hand to a frontend.
type statusLog struct {
	ctrl *control.Controller
}

func (l *statusLog) OnSnapshot(s *telemetry.Snapshot) {
	view := l.ctrl.View()

	event := logger.Info().
		Float64("engine_temp_c", s.EngineTempC).
		Float64("battery_voltage", s.BatteryVoltage).
		Float64("tire_pressure_kpa", s.TirePressureKpa).
		Bool("moving", s.Moving).
		Bool("immobilized", view.Immobilized).
		Bool("pending", view.Pending).
		Str("health", view.Health.String()).
		Int64("timestamp", s.Timestamp)
	if s.HasFix() {
		event = event.Float64("gps_lat", *s.GPSLat).Float64("gps_lon", *s.GPSLon)
	}
	event.Msg("")
}

func (l *statusLog) OnFetchError(error) {
	// The poller already logs the failure; the view stays on the last
	// accepted snapshot.
}

func (l *statusLog) OnHealthChange(poller.Health) {}
