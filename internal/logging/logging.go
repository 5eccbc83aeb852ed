// Package logging configures the process-wide structured logger.
package logging

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config selects log verbosity and output format.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // "text" or "json"
	Quiet  bool   // caps verbosity at warn
}

// New builds a logrus logger from cfg. Unknown levels fall back to info.
// Logs go to stderr so machine-readable output on stdout stays clean.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Quiet && level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}
	return log
}
