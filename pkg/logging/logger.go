package logging

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/niels/repo-status/pkg/config"
	"github.com/rs/zerolog"
)

var (
	// Global logger instance, silent until InitGlobalLogger is called
	globalLogger = zerolog.Nop()
)

// InitGlobalLogger initializes the global logger.
// Logs go to a rotating file when enabled in cfg, and to stderr in debug mode.
func InitGlobalLogger(debug bool, cfg *config.LogConfig) {
	var writers []io.Writer

	if cfg != nil && cfg.LogToFile {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    cfg.MaxSize, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		})
	}
	if debug {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = io.MultiWriter(writers...)
	}

	globalLogger = NewLogger(debug, output)
}

// NewLogger creates a new zerolog logger with the specified debug level
func NewLogger(debug bool, output io.Writer) zerolog.Logger {
	// If no output is specified, use stderr
	if output == nil {
		output = os.Stderr
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Debug logs a message at debug level
func Debug(msg string) {
	globalLogger.Debug().Msg(msg)
}

// Info logs a message at info level
func Info(msg string) {
	globalLogger.Info().Msg(msg)
}

// Warn logs a message at warn level
func Warn(msg string) {
	globalLogger.Warn().Msg(msg)
}

// Error logs a message at error level
func Error(msg string) {
	globalLogger.Error().Msg(msg)
}

// DebugWith logs a message at debug level with additional context
func DebugWith(msg string, fields map[string]interface{}) {
	globalLogger.Debug().Fields(fields).Msg(msg)
}

// InfoWith logs a message at info level with additional context
func InfoWith(msg string, fields map[string]interface{}) {
	globalLogger.Info().Fields(fields).Msg(msg)
}

// WarnWith logs a message at warn level with additional context
func WarnWith(msg string, fields map[string]interface{}) {
	globalLogger.Warn().Fields(fields).Msg(msg)
}

// ErrorWith logs a message at error level with additional context
func ErrorWith(msg string, fields map[string]interface{}) {
	globalLogger.Error().Fields(fields).Msg(msg)
}

// GetLogger returns the global logger instance
func GetLogger() zerolog.Logger {
	return globalLogger
}

// SetLogger replaces the global logger, mostly useful in tests
func SetLogger(logger zerolog.Logger) {
	globalLogger = logger
}

// WithComponent returns a logger with the component field set
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}

// WithRepository returns a logger tagged with a component and a working copy path
func WithRepository(component, path string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Str("repository", path).Logger()
}
