// Package logger provides structured logging for the content tool server
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nainya/contentmcp/pkg/faults"
)

// Logger wraps zerolog with tool-server specific helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output for development
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a level name to zerolog, defaulting to info
func ParseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a structured logger. Output defaults to stderr because
// stdout carries the stdio tool protocol.
func NewLogger(cfg Config) *Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "contentmcp").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// Component returns a zerolog logger tagged with a component name
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// ToolLogger returns a logger for one tool
func (l *Logger) ToolLogger(tool string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "tools").
			Str("tool", tool).
			Logger(),
	}
}

// RepoLogger returns a logger for repository calls
func (l *Logger) RepoLogger() *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", "repository").Logger()}
}

// LogToolCall logs a finished tool invocation. Indeterminate outcomes are
// logged at error level with the requery flag so operators can follow up.
func (l *Logger) LogToolCall(transport, tool, invocationID string, duration time.Duration, err error) {
	if err == nil {
		l.zlog.Info().
			Str("component", "tools").
			Str("transport", transport).
			Str("tool", tool).
			Str("invocation_id", invocationID).
			Dur("duration_ms", duration).
			Msg("tool call completed")
		return
	}
	kind := faults.KindOf(err)
	event := l.zlog.Warn()
	if kind == faults.KindIndeterminate || kind == faults.KindInternal {
		event = l.zlog.Error()
	}
	event.
		Str("component", "tools").
		Str("transport", transport).
		Str("tool", tool).
		Str("invocation_id", invocationID).
		Str("kind", string(kind)).
		Bool("requery_state", faults.RequiresRequery(err)).
		Dur("duration_ms", duration).
		Err(err).
		Msg("tool call failed")
}

// LogGrpcRequest logs a finished gRPC request with its status code
func (l *Logger) LogGrpcRequest(method, code string, duration time.Duration, err error) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Warn().Err(err)
	}
	event.
		Str("component", "grpc").
		Str("method", method).
		Str("code", code).
		Dur("duration_ms", duration).
		Msg("gRPC request completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(transport, addr, backend string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("transport", transport).
		Str("addr", addr).
		Str("backend", backend).
		Msg("content tool server starting")
}

// LogServerReady logs when a listener is ready
func (l *Logger) LogServerReady(transport, addr string) {
	l.zlog.Info().
		Str("event", "server_ready").
		Str("transport", transport).
		Str("addr", addr).
		Msg("content tool server ready to accept connections")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("content tool server shutting down")
}

var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		InitGlobalLogger(Config{Level: "info"})
	}
	return globalLogger
}
