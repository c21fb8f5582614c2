package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	out    io.Writer
	level  string

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// Dynamic state callbacks, added to every record when set
	GetRunID   func() string
	GetRunning func() int
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system with file and optional OTel output.
// Records go to the file when one is given, otherwise to stdout.
// If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider
	m.level = level

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	m.out = file
	if file == nil {
		m.out = osStdout
	}
	handlers = append(handlers, slog.NewTextHandler(m.out, handlerOpts))

	if provider != nil {
		otelHandler := otelslog.NewHandler("combatsim", otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	multiHandler := NewMultiHandler(handlers...)

	m.logger = slog.New(NewContextHandler(multiHandler, m.contextAttrs))
	m.logger.Info("Logging initialized", "level", level)
}

func (m *SlogManager) contextAttrs() []slog.Attr {
	var attrs []slog.Attr
	if m.GetRunID != nil {
		if id := m.GetRunID(); id != "" {
			attrs = append(attrs, slog.String("run", id))
		}
	}
	if m.GetRunning != nil {
		attrs = append(attrs, slog.Int("running", m.GetRunning()))
	}
	return attrs
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Zerolog returns a zerolog.Logger writing to the same output and level as the slog logger,
// for components that log through zerolog.
func (m *SlogManager) Zerolog() zerolog.Logger {
	out := m.out
	if out == nil {
		out = osStdout
	}
	return zerolog.New(out).Level(zerologLevel(m.level)).With().Timestamp().Logger()
}

func zerologLevel(level string) zerolog.Level {
	switch parseLevel(level) {
	case slog.LevelDebug:
		return zerolog.DebugLevel
	case slog.LevelWarn:
		return zerolog.WarnLevel
	case slog.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified function name, data, and level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	m.WriteLogContext(context.Background(), functionName, data, level)
}

// WriteLogContext is WriteLog with a context, so engagement ids set with WithEngagement
// reach the record.
func (m *SlogManager) WriteLogContext(ctx context.Context, functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(ctx, parseLevel(level), data, "function", functionName)
}
