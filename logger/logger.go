package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger with component scoped helpers
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the process wide logger
	Default *Logger

	initOnce sync.Once
)

// Init initializes Default from LOG_LEVEL and SHOPCOMPARE_ENVIRONMENT
func Init() {
	initOnce.Do(func() {
		level := getLogLevel()
		zerolog.TimeFieldFormat = time.RFC3339
		zerolog.SetGlobalLevel(level)

		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		Default = New(output, level)

		Default.Debug().
			Str("level", level.String()).
			Msg("Logger initialized")
	})
}

// New builds a logger writing to w at the given level
func New(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{logger: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("SHOPCOMPARE_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func defaultLogger() *Logger {
	if Default == nil {
		Init()
	}
	return Default
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal returns a fatal event
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return defaultLogger().logger.GetLevel() <= zerolog.DebugLevel
}

// ForScraper creates a logger for one platform scraper
func ForScraper(platform string) *Logger {
	return defaultLogger().WithField("platform", platform)
}

// ForCascade creates a logger for the retrieval cascade
func ForCascade() *Logger {
	return ForComponent("cascade")
}

// ForSearch creates a logger for the search orchestrator
func ForSearch() *Logger {
	return ForComponent("search")
}

// ForCart creates a logger for cart operations
func ForCart() *Logger {
	return ForComponent("cart")
}

// ForAPI creates a logger for the HTTP layer
func ForAPI() *Logger {
	return ForComponent("api")
}

// ForComponent creates a logger tagged with a component name
func ForComponent(name string) *Logger {
	return defaultLogger().WithField("component", name)
}

// LogError logs an error with its component
func LogError(component string, err error, format string, v ...interface{}) {
	defaultLogger().Error().
		Str("component", component).
		Err(err).
		Msg(fmt.Sprintf(format, v...))
}
