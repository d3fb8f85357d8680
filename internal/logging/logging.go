// Package logging provides the structured logger injected into every
// task constructor. Grounded on the teacher's logInf/logErr/logDbg
// wrapper style (main/logging_test.go) and backed by
// sirupsen/logrus rather than a process-wide global, per the
// "inject a logging sink into each task" design note.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Logger is the small structured-logging surface every task depends
// on. Each method takes a message and alternating key/value pairs,
// mirroring logrus.Fields without forcing callers to import logrus
// directly.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	// With returns a child logger that always includes the given
	// component name in its fields, matching the teacher's
	// per-module named loggers (logging.getLogger('ComponentName')
	// in the original).
	With(component string) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger writing to w at info level (NewDefault writes to
// stderr), or debug level when verbose is true — mirroring
// globalSettings.DEBUG in the teacher.
func New(w io.Writer, verbose bool) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// NewDefault returns a logger writing to stderr at info level.
func NewDefault() Logger {
	return New(os.Stderr, false)
}

// Since renders t relative to now as a human-friendly phrase
// ("3 seconds ago", "2 minutes ago", or "5 seconds from now" for a
// future t), matching the teacher's Monotonic.HumanizeTime pattern
// (main/monotonic_utils_test.go). Used by sbs1client to log when the
// next reconnect attempt is due.
func Since(t time.Time) string {
	return humanize.Time(t)
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

func (l *logrusLogger) Debug(msg string, kv ...any) { l.entry.WithFields(fields(kv)).Debug(msg) }
func (l *logrusLogger) Info(msg string, kv ...any)  { l.entry.WithFields(fields(kv)).Info(msg) }
func (l *logrusLogger) Warn(msg string, kv ...any)  { l.entry.WithFields(fields(kv)).Warn(msg) }
func (l *logrusLogger) Error(msg string, kv ...any) { l.entry.WithFields(fields(kv)).Error(msg) }

func (l *logrusLogger) With(component string) Logger {
	return &logrusLogger{entry: l.entry.WithField("component", component)}
}
