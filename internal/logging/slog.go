package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope used for OTel log records.
const ServiceName = "tactical-sim"

// swapped in tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// Options selects where records go.
type Options struct {
	// Output receives the local log. Stdout is used when nil.
	Output io.Writer
	Level  string
	// Format is "text" or "json".
	Format string
	// Provider, when set, also receives records at or above OTelLevel.
	Provider  *sdklog.LoggerProvider
	OTelLevel string
}

// SlogManager builds the run's slog.Logger and owns the OTel log provider
// it forwards to.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
	context     ContextProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// WithContext makes every record carry the attributes returned by p.
// It applies to the next Setup.
func (m *SlogManager) WithContext(p ContextProvider) *SlogManager {
	m.context = p
	return m
}

// parseLevel accepts slog level names in any case, with an optional
// offset like "debug-4". Anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// utcTime renders the top-level record time as RFC3339 in UTC.
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup replaces the logger. Calling it again detaches the previous output.
func (m *SlogManager) Setup(opts Options) {
	out := opts.Output
	if out == nil {
		out = osStdout
	}
	handlerOpts := &slog.HandlerOptions{
		Level:       parseLevel(opts.Level),
		ReplaceAttr: utcTime,
	}

	var local slog.Handler
	if opts.Format == "json" {
		local = slog.NewJSONHandler(out, handlerOpts)
	} else {
		local = slog.NewTextHandler(out, handlerOpts)
	}

	var remote slog.Handler
	m.logProvider = opts.Provider
	if opts.Provider != nil {
		remote = AtLeast(
			otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(opts.Provider)),
			parseLevel(opts.OTelLevel),
		)
	}

	handler := Fanout(local, remote)
	if m.context != nil {
		handler = NewContextHandler(handler, m.context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", handlerOpts.Level, "format", formatName(opts.Format))
}

func formatName(f string) string {
	if f == "json" {
		return f
	}
	return "text"
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
