// ABOUTME: File-backed structured logging on logrus
// ABOUTME: The terminal belongs to the UI, so entries go to the log directory or nowhere
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harperreed/termvid/internal/filesystem"
	"github.com/harperreed/termvid/internal/key"
	"github.com/harperreed/termvid/internal/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	enabled bool
	base    = logrus.NewEntry(logrus.StandardLogger())
)

// Setup opens the day's log file and applies format and level from config.
// When logs.write is false every call in this package is discarded.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		logrus.SetOutput(io.Discard)
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))

	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	return configure(f)
}

// SetupWriter logs to w regardless of config, used by tests and the probe command
func SetupWriter(w io.Writer) error {
	enabled = true
	return configure(w)
}

func configure(w io.Writer) error {
	logrus.SetOutput(w)
	if viper.GetBool(key.LogsJSON) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	return nil
}

// SetSession tags every later entry with the playback session id
func SetSession(id string) {
	base = logrus.NewEntry(logrus.StandardLogger()).WithField("session", id)
}

// WithField returns an entry carrying k=v on top of the session field
func WithField(k string, v any) *logrus.Entry {
	if !enabled {
		return discard
	}
	return base.WithField(k, v)
}

var discard = func() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}()

func Errorf(format string, args ...interface{}) {
	if enabled {
		base.Errorf(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if enabled {
		base.Warnf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled {
		base.Infof(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if enabled {
		base.Debugf(format, args...)
	}
}
