// Package log provides the router's structured logger, backed by logrus.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"firestige.xyz/router/internal/config"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	mu      sync.RWMutex
	base    *logrus.Logger
	logger  Logger
	outputs *MultiWriter
)

func init() {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base = l
	logger = &logrusAdapter{entry: logrus.NewEntry(l)}
}

// GetLogger returns the process-wide logger. It is usable before Init.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process-wide logger according to cfg.
// Output always includes stdout, plus a rotating file when enabled.
func Init(cfg config.LogConfig) error {
	writers := NewMultiWriter().Add(os.Stdout)
	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return fmt.Errorf("file output requires 'path' field")
		}
		writers.AddFileAppender(FileAppenderOpt{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}

	l, err := newLogrus(writers, cfg)
	if err != nil {
		writers.Close()
		return err
	}

	mu.Lock()
	previous := outputs
	base = l
	logger = &logrusAdapter{entry: logrus.NewEntry(l)}
	outputs = writers
	mu.Unlock()

	if previous != nil {
		return previous.Close()
	}
	return nil
}

// SetLevel changes the level of the process-wide logger in place.
// Loggers derived with WithField share the change.
func SetLevel(level string) error {
	lv, err := parseLevel(level)
	if err != nil {
		return err
	}
	mu.RLock()
	defer mu.RUnlock()
	base.SetLevel(lv)
	return nil
}

// New builds a standalone logger writing to out. Used where a component
// needs its own sink, e.g. tests capturing output.
func New(out io.Writer, cfg config.LogConfig) (Logger, error) {
	l, err := newLogrus(out, cfg)
	if err != nil {
		return nil, err
	}
	return &logrusAdapter{entry: logrus.NewEntry(l)}, nil
}

func newLogrus(out io.Writer, cfg config.LogConfig) (*logrus.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timeFormat(cfg.TimeFormat),
			DisableColors:   true,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timeFormat(cfg.TimeFormat)})
	case "pattern":
		l.SetFormatter(&formatter{pattern: cfg.Pattern, time: timeFormat(cfg.TimeFormat)})
	case "prefixed":
		l.SetFormatter(&prefixed.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timeFormat(cfg.TimeFormat),
			DisableColors:   true,
			ForceFormatting: true,
		})
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	return l, nil
}

// parseLevel converts a config level to a logrus level. "warning" is accepted.
func parseLevel(levelStr string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown level: %s", levelStr)
	}
}

func timeFormat(layout string) string {
	if layout == "" {
		return "2006-01-02 15:04:05.000"
	}
	return layout
}
