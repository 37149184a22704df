package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/logging"
	intOtel "github.com/OCAP2/tactical/internal/otel"
)

// telemetry bundles the loggers and the OTel provider of one run.
type telemetry struct {
	slogManager *logging.SlogManager
	logger      *slog.Logger
	// dbLogger is used by the database and influx managers
	dbLogger zerolog.Logger
	provider *intOtel.Provider
	logFile  *os.File
	logPath  string
}

// setupTelemetry opens the session log file, starts OTel when enabled and
// builds both loggers. It never fails: without a log file everything goes
// to stdout.
func setupTelemetry(battleCtx *battle.Context, sessionStart time.Time) *telemetry {
	t := &telemetry{
		slogManager: logging.NewSlogManager().WithContext(logging.BattleAttrs(battleCtx)),
	}
	level := viper.GetString("logLevel")

	var out io.Writer
	logsDir := viper.GetString("logsDir")
	fileErr := os.MkdirAll(logsDir, 0755)
	if fileErr == nil {
		t.logPath = logging.LogFilePath(logsDir, logging.ServiceName, sessionStart)
		t.logFile, fileErr = os.OpenFile(t.logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if fileErr == nil {
			out = t.logFile
		}
	}

	var otelErr error
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		t.provider, otelErr = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    out,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
			Tracing: intOtel.TracingConfig{
				Enabled:     otelCfg.Tracing.Enabled,
				Exporter:    otelCfg.Tracing.Exporter,
				Endpoint:    otelCfg.Tracing.Endpoint,
				SampleRatio: otelCfg.Tracing.SampleRatio,
				Writer:      out,
			},
		})
	}

	var logProvider *sdklog.LoggerProvider
	if t.provider != nil {
		logProvider = t.provider.LoggerProvider()
	}
	t.slogManager.Setup(logging.Options{
		Output:    out,
		Level:     level,
		Format:    viper.GetString("logFormat"),
		Provider:  logProvider,
		OTelLevel: viper.GetString("otel.logLevel"),
	})
	t.logger = t.slogManager.Logger()

	zlOut := out
	if zlOut == nil {
		zlOut = os.Stdout
	}
	zlLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		zlLevel = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	t.dbLogger = zerolog.New(zerolog.ConsoleWriter{
		Out:        zlOut,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).Level(zlLevel).With().Timestamp().Logger()

	if fileErr != nil {
		t.logger.Warn("Failed to create/open log file, logging to stdout", "error", fileErr, "dir", logsDir)
	} else {
		t.logger.Info("Logging to file", "path", t.logPath)
	}
	if otelErr != nil {
		t.logger.Error("Failed to initialize OTel provider", "error", otelErr)
	} else if t.provider != nil {
		t.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint, "tracing", otelCfg.Tracing.Enabled)
	}
	return t
}

// Close flushes OTel data and closes the log file.
func (t *telemetry) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.slogManager.Flush(ctx); err != nil {
		t.logger.Warn("Failed to flush OTel logs", "error", err)
	}
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			t.logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if t.logFile != nil {
		_ = t.logFile.Close()
	}
}
