// Package orclog provides dirorch's logging, built on charmbracelet/log.
// All output goes to stderr; stdout is reserved for "status"/"validate"
// command output. Adapted from AbdelazizMoustafa10m-Raven's
// internal/logging package, which wraps the same library for a similar
// CLI-tool use case.
package orclog

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Level names accepted by --log-level, per spec.md §6.
const (
	Debug   = "DEBUG"
	Info    = "INFO"
	Warning = "WARNING"
	Error   = "ERROR"
)

var levelByName = map[string]log.Level{
	Debug:   log.DebugLevel,
	Info:    log.InfoLevel,
	Warning: log.WarnLevel,
	Error:   log.ErrorLevel,
}

// Logger is the logging handle passed to every core component.
type Logger struct {
	inner *log.Logger
}

// New creates a Logger at the given level name (DEBUG/INFO/WARNING/ERROR),
// writing to stderr. An unrecognized level name falls back to INFO.
func New(levelName string) *Logger {
	level, ok := levelByName[levelName]
	if !ok {
		level = log.InfoLevel
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	l.SetLevel(level)
	return &Logger{inner: l}
}

// NewDiscard returns a Logger whose output is discarded, for tests.
func NewDiscard() *Logger {
	l := log.New(io.Discard)
	return &Logger{inner: l}
}

func (l *Logger) Debugf(format string, args ...any) { l.inner.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.inner.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.inner.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.inner.Error(fmt.Sprintf(format, args...)) }

// With returns a Logger with structured key/value pairs attached to
// every subsequent message (e.g. phase, transition, entity name).
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{inner: l.inner.With(keyvals...)}
}
