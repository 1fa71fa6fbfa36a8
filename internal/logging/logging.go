package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a deliberately small, framework-agnostic logging interface.
// Packages depend on this rather than on zerolog directly so tests can swap
// in recording doubles.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning.
	Warn(msg string, fields ...Field)

	// Error logs an error.
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// Field is a simple key/value pair for structured logging fields.
type Field struct {
	Key   string
	Value any
}

// StdoutLogger is the structured logger used by the binaries.
// It implements Logger and prints JSON lines through zerolog.
type StdoutLogger struct {
	zl zerolog.Logger
}

// NewStdoutLogger creates a logger writing JSON lines to stdout. component is
// optional and is attached as a persistent field.
func NewStdoutLogger(component string) *StdoutLogger {
	return NewLogger(os.Stdout, component, zerolog.DebugLevel)
}

// NewLogger creates a logger writing JSON lines to w at the given minimum level.
func NewLogger(w io.Writer, component string, level zerolog.Level) *StdoutLogger {
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if component != "" {
		ctx = ctx.Str("component", component)
	}
	return &StdoutLogger{zl: ctx.Logger()}
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (s *StdoutLogger) log(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			ev = ev.AnErr(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) {
	s.log(s.zl.Debug(), msg, fields)
}

func (s *StdoutLogger) Info(msg string, fields ...Field) {
	s.log(s.zl.Info(), msg, fields)
}

func (s *StdoutLogger) Warn(msg string, fields ...Field) {
	s.log(s.zl.Warn(), msg, fields)
}

func (s *StdoutLogger) Error(msg string, fields ...Field) {
	s.log(s.zl.Error(), msg, fields)
}

func (s *StdoutLogger) With(fields ...Field) Logger {
	ctx := s.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &StdoutLogger{zl: ctx.Logger()}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }
