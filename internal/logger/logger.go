// Package logger builds the process logger and offers the leveled Log helper
// used by the command layer.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var std = logrus.New()

// New creates a logger writing to stderr. format is "text" or "json".
func New(level, format string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return l, nil
}

// SetDefault replaces the logger behind Log and Default.
func SetDefault(l *logrus.Logger) {
	std = l
}

// Default returns the process logger.
func Default() *logrus.Logger {
	return std
}

// Discard returns an entry that drops everything written to it.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// OrDiscard returns e, or a discarding entry when e is nil.
func OrDiscard(e *logrus.Entry) *logrus.Entry {
	if e == nil {
		return Discard()
	}
	return e
}

// Log writes msg at level with the given fields and optional error.
func Log(level int, fields map[string]string, err error, msg string) {
	entry := logrus.NewEntry(std)
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	if err != nil {
		entry = entry.WithError(err)
	}

	switch level {
	case LevelDebug:
		entry.Debug(msg)
	case LevelInfo:
		entry.Info(msg)
	case LevelWarn:
		entry.Warn(msg)
	default:
		entry.Error(msg)
	}
}
