// Package logging configures logrus for the binaries.
package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at the named level. Unknown levels fall back to info.
func New(level string, json bool) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	if json {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
