package log

/*
 * Braggi Logging
 *
 * Named loggers for the compiler subsystems. Every package creates its
 * own logger via NamedLogger(subsystem, stream) and logs through it so
 * output can be filtered per subsystem during debugging.
 */

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var rootLogger = newRootLogger()

func newRootLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	return logger
}

// RootLogger returns the root logger shared by all subsystems
func RootLogger() *logrus.Logger {
	return rootLogger
}

// NamedLogger returns a logger tagged with a subsystem and stream name
func NamedLogger(subsystem, stream string) *logrus.Entry {
	return rootLogger.WithFields(logrus.Fields{
		"subsystem": subsystem,
		"stream":    stream,
	})
}

// SetLevel adjusts the root log level
func SetLevel(level logrus.Level) {
	rootLogger.SetLevel(level)
}

// SetOutput redirects all subsystem logs
func SetOutput(w io.Writer) {
	rootLogger.SetOutput(w)
}
