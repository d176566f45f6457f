package core

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is structured logging interface used throughout the scheduler,
// worker pool and bus. Implementations can integrate with any backend.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger is backed by zerolog, matching the structured-logging
// idiom the rest of the retrieval pack reaches for.
type DefaultLogger struct {
	logger zerolog.Logger
}

// NewDefaultLogger creates a DefaultLogger writing to stderr.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{logger: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

// NewDefaultLoggerWithWriter creates a DefaultLogger writing to w.
func NewDefaultLoggerWithWriter(w zerolog.LevelWriter) *DefaultLogger {
	return &DefaultLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log(l.logger.Debug(), msg, fields) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log(l.logger.Info(), msg, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log(l.logger.Warn(), msg, fields) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.log(l.logger.Error(), msg, fields) }

func (l *DefaultLogger) log(e *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	e.Msg(msg)
}

// NoOpLogger discards all log messages; useful for tests.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
