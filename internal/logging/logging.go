// Package logging provides structured JSON logging for taskwatch.
// It uses zerolog for context-field logging and supports log rotation
// via lumberjack.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents a log level.
type Level = zerolog.Level

// Log levels for convenience.
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level.
	Level Level

	// JSON enables JSON output format.
	JSON bool

	// FilePath is the path to the log file (empty for console only).
	FilePath string

	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int

	// Compress enables gzip compression of rotated files.
	Compress bool

	// Console enables console output in addition to file output.
	Console bool
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		JSON:       true,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     7,
		Compress:   true,
	}
}

// Logger wraps zerolog.Logger with taskwatch context fields.
type Logger struct {
	zl zerolog.Logger
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
	loggerMu     sync.RWMutex
)

// Init initializes the global logger with the given configuration.
// If config is nil, defaults are used.
func Init(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	if cfg.Console || cfg.FilePath == "" {
		if cfg.JSON {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.RFC3339,
			})
		}
	}

	var output io.Writer
	if len(writers) == 1 {
		output = writers[0]
	} else {
		output = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()

	loggerMu.Lock()
	globalLogger = &Logger{zl: zl}
	loggerMu.Unlock()

	return nil
}

// Get returns the global logger, initializing with defaults if needed.
func Get() *Logger {
	loggerOnce.Do(func() {
		if globalLogger == nil {
			_ = Init(nil)
		}
	})

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}

// WithSubscriber returns a new logger with the subscriber field set.
func (l *Logger) WithSubscriber(id string) *Logger {
	return &Logger{zl: l.zl.With().Str("subscriber", id).Logger()}
}

// WithTier returns a new logger with the tier field set.
func (l *Logger) WithTier(tier string) *Logger {
	return &Logger{zl: l.zl.With().Str("tier", tier).Logger()}
}

// WithCommand returns a new logger with the command field set.
func (l *Logger) WithCommand(command string) *Logger {
	return &Logger{zl: l.zl.With().Str("command", command).Logger()}
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// WithError returns a new logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) { l.zl.Debug().Msgf(format, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string) { l.zl.Info().Msg(msg) }

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) { l.zl.Info().Msgf(format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string) { l.zl.Warn().Msg(msg) }

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) { l.zl.Warn().Msgf(format, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) { l.zl.Error().Msgf(format, args...) }

// Fatal logs a fatal error message and exits.
func (l *Logger) Fatal(msg string) { l.zl.Fatal().Msg(msg) }

// ParseLevel parses a level string into a Level.
func ParseLevel(level string) (Level, error) {
	return zerolog.ParseLevel(level)
}

// Convenience functions that use the global logger.

// Debug logs a debug message using the global logger.
func Debug(msg string) { Get().Debug(msg) }

// Info logs an info message using the global logger.
func Info(msg string) { Get().Info(msg) }

// Warn logs a warning message using the global logger.
func Warn(msg string) { Get().Warn(msg) }

// Error logs an error message using the global logger.
func Error(msg string) { Get().Error(msg) }

// WithCommand returns a new logger with command set.
func WithCommand(command string) *Logger { return Get().WithCommand(command) }

// WithSubscriber returns a new logger with subscriber set.
func WithSubscriber(id string) *Logger { return Get().WithSubscriber(id) }

// WithError returns a new logger with the error set.
func WithError(err error) *Logger { return Get().WithError(err) }

// LoggingConfig mirrors the logging section of the config file.
type LoggingConfig struct {
	Level      string
	FilePath   string
	JSON       bool
	Console    bool
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// InitFromLogConfig initializes the logger from a LoggingConfig struct.
func InitFromLogConfig(lc LoggingConfig) error {
	cfg := DefaultConfig()

	if lc.Level != "" {
		level, err := ParseLevel(lc.Level)
		if err != nil {
			return err
		}
		cfg.Level = level
	}

	cfg.FilePath = lc.FilePath
	cfg.JSON = lc.JSON
	cfg.Console = lc.Console

	if lc.MaxSize > 0 {
		cfg.MaxSize = lc.MaxSize
	}
	if lc.MaxBackups > 0 {
		cfg.MaxBackups = lc.MaxBackups
	}
	if lc.MaxAge > 0 {
		cfg.MaxAge = lc.MaxAge
	}
	cfg.Compress = lc.Compress

	return Init(cfg)
}
