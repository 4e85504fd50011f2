// Package logging provides a structured logger. It keeps the teacher's
// Logger interface shape
// (DebugEnabled/SetDebug/Debugf/Infof/Warnf/Errorf) but backs it with
// logrus instead of the standard library's log.Logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging contract this package provides. The app and CLI
// packages do not use it; they log through logrus directly.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// logrusLogger wraps a *logrus.Logger.
type logrusLogger struct {
	entry *logrus.Logger
}

// New builds the default logger: text formatter, timestamps on, writing to
// stderr so stdout stays free for any future piped output.
func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return &logrusLogger{entry: l}
}

func (l *logrusLogger) DebugEnabled() bool {
	return l.entry.GetLevel() >= logrus.DebugLevel
}

func (l *logrusLogger) SetDebug(enabled bool) {
	if enabled {
		l.entry.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.SetLevel(logrus.InfoLevel)
	}
}

func (l *logrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

// nopLogger discards everything; used by this package's tests, which do
// not care about log output.
type nopLogger struct{ debug bool }

// NewNop returns a Logger that discards all output.
func NewNop() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool              { return n.debug }
func (n *nopLogger) SetDebug(enabled bool)           { n.debug = enabled }
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}
