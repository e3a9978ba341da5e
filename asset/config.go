// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import log "github.com/sirupsen/logrus"

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 4

// Configuration describes the asset loader configuration
type Configuration struct {
	// Workers is the number of worker goroutines. Zero or less
	// means DefaultWorkers. One worker gives deterministic ordering.
	Workers int

	// Logger receives scheduling events. Defaults to the logrus
	// standard logger.
	Logger log.FieldLogger
}

func (c Configuration) withDefaults() Configuration {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Logger == nil {
		c.Logger = log.StandardLogger()
	}
	return c
}
