// Package logging sets up the shared logrus logger used across every
// cmd/ binary, optionally rotating to a log file via lumberjack.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	Level   string // logrus level name, e.g. "info", "debug"
	LogFile string // if set, logs rotate into this file instead of stderr

	RotateMaxSizeMB  int
	RotateMaxBackups int
	RotateMaxAgeDays int
}

// Setup builds a *logrus.Logger per Options. A zero-value Options produces
// an info-level logger writing to stderr.
func Setup(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)

	if opts.LogFile == "" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    defaultOr(opts.RotateMaxSizeMB, 50),
			MaxBackups: defaultOr(opts.RotateMaxBackups, 3),
			MaxAge:     defaultOr(opts.RotateMaxAgeDays, 28),
			Compress:   true,
		})
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger, nil
}

func defaultOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

// WarnDecodeWarning logs a recoverable decode anomaly at WarnLevel with
// structured fields, matching the severity split between DecodeWarning
// (logged, scan continues) and FormatError (logged, scan aborts).
func WarnDecodeWarning(logger *logrus.Logger, offset int64, entry string, reason error) {
	logger.WithFields(logrus.Fields{
		"offset": offset,
		"entry":  entry,
	}).Warn(reason)
}

// ErrorFatal logs a FormatError/IoError at ErrorLevel before the caller
// exits the process.
func ErrorFatal(logger *logrus.Logger, err error) {
	logger.WithError(err).Error("fatal decode error")
}
