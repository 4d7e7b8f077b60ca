// Package logging defines the leveled logger interface threaded through
// every component constructor in this module. Nothing here is a
// process-wide singleton: callers inject the Logger they want, including
// Nop when they want none.
package logging

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the minimal leveled-logging surface every component needs.
// All four methods take a printf-style format and args, matching the
// convention already used by github.com/charmbracelet/log.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// charmLogger adapts *charmlog.Logger to the Logger interface.
type charmLogger struct {
	l *charmlog.Logger
}

// New returns the default Logger, backed by charmbracelet/log and
// writing to stderr at the given level ("debug", "info", "warn",
// "error"). An unrecognized level falls back to "info".
func New(level string) Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	})
	l.SetLevel(parseLevel(level))
	return &charmLogger{l: l}
}

func parseLevel(level string) charmlog.Level {
	switch level {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

func (c *charmLogger) Debugf(format string, args ...any) { c.l.Debugf(format, args...) }
func (c *charmLogger) Infof(format string, args ...any)  { c.l.Infof(format, args...) }
func (c *charmLogger) Warnf(format string, args ...any)  { c.l.Warnf(format, args...) }
func (c *charmLogger) Errorf(format string, args ...any) { c.l.Errorf(format, args...) }

// nopLogger discards everything; useful for library consumers and tests
// that don't want output.
type nopLogger struct{}

// Nop is a Logger that discards every message.
var Nop Logger = nopLogger{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
