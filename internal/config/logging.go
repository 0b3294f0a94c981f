package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ldl-target-server/internal/domain"
)

// NewLogger builds a logrus logger from level and format settings.
// Unknown levels fall back to info; any format other than text is JSON.
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)

	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// LoggerFromConfig builds the logger described by the logging section.
// Output "stderr" writes to stderr, anything else to stdout.
func LoggerFromConfig(cfg domain.LoggingConfig) *logrus.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewLogger(cfg.Level, cfg.Format, out)
}
