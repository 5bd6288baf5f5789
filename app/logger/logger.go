// Package logger configures the application logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at level in format "text" or "json".
func New(level, format string) (*logrus.Logger, error) {
	return NewWithOutput(os.Stderr, level, format)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(out io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Badger adapts a logrus logger to badger's logger, demoting badger's
// chatty info output to debug.
type Badger struct {
	*logrus.Entry
}

func NewBadger(log *logrus.Logger) *Badger {
	return &Badger{Entry: log.WithField("component", "badger")}
}

func (b *Badger) Infof(format string, args ...interface{}) {
	b.Entry.Debugf(strings.TrimSpace(format), args...)
}

func (b *Badger) Errorf(format string, args ...interface{}) {
	b.Entry.Errorf(strings.TrimSpace(format), args...)
}

func (b *Badger) Warningf(format string, args ...interface{}) {
	b.Entry.Warnf(strings.TrimSpace(format), args...)
}

func (b *Badger) Debugf(format string, args ...interface{}) {
	b.Entry.Debugf(strings.TrimSpace(format), args...)
}
