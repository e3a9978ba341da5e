// Package core wires the engine together: configuration,
// logging and the asset sources the loaders read from.
package core

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// NewLogger creates a logger from the log configuration.
func NewLogger(cfg LogConfiguration, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logger := log.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", ErrConfiguration, cfg.Format)
	}
	return logger, nil
}
