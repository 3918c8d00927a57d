// Package logger configures the process-wide logrus logger.
//
// Go Pattern: One *logrus.Logger is built at startup and shared. Packages ask
// for a component-scoped *logrus.Entry so every line carries "component".
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls level, format and destination of log output.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output string // stdout, file or both
	File   string // path used when Output includes file

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Log is the shared logger. It is usable before Init with logrus defaults.
var Log = logrus.New()

// Init applies cfg to the shared logger.
func Init(cfg Config) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if cfg.Format == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		})
	}
	if cfg.Output != "file" {
		writers = append(writers, os.Stdout)
	}
	Log.SetOutput(io.MultiWriter(writers...))

	return nil
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// MaskToken keeps the first 6 characters of a secret so log lines stay
// correlatable without exposing the value.
func MaskToken(token string) string {
	if len(token) <= 6 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + strings.Repeat("*", 6)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
