package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/koruasset/asset"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Loader LoaderConfiguration `yaml:"loader"`
	Assets AssetsConfiguration `yaml:"assets"`
	Log    LogConfiguration    `yaml:"log"`
}

// LoaderConfiguration is used to configure the asset loader
type LoaderConfiguration struct {
	// Workers is the size of the worker pool
	Workers int `yaml:"workers"`
}

// AssetsConfiguration tells where assets are read from.
// When Archive is set, assets come from that kar archive
// instead of the Root directory.
type AssetsConfiguration struct {
	Root    string `yaml:"root"`
	Archive string `yaml:"archive"`
}

// Path returns the location of an asset on disk.
func (a AssetsConfiguration) Path(name string) string {
	return filepath.Join(a.Root, filepath.FromSlash(name))
}

// Location tells where an asset is read from, for reporting.
func (a AssetsConfiguration) Location(name string) string {
	if a.Archive != "" {
		return a.Archive + ":" + name
	}
	return a.Path(name)
}

// LogConfiguration is used to configure logging
type LogConfiguration struct {
	// Level is a logrus level name
	Level string `yaml:"level"`

	// Format is either text or json
	Format string `yaml:"format"`
}

// Validate checks the configuration for values that cannot work.
func (c Configuration) Validate() error {
	var errs []error
	if c.Loader.Workers < 1 {
		errs = append(errs, fmt.Errorf("loader.workers must be positive, got %d", c.Loader.Workers))
	}
	if c.Assets.Root == "" && c.Assets.Archive == "" {
		errs = append(errs, errors.New("one of assets.root or assets.archive is required"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// AssetLoader returns the asset loader configuration.
func (c Configuration) AssetLoader(logger log.FieldLogger) asset.Configuration {
	return asset.Configuration{
		Workers: c.Loader.Workers,
		Logger:  logger,
	}
}
