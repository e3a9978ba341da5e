package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration is wrapped by every configuration error.
var ErrConfiguration = errors.New("invalid configuration")

// Environment variables that override configuration values.
const (
	EnvWorkers      = "KORU_WORKERS"
	EnvAssetsRoot   = "KORU_ASSETS_ROOT"
	EnvAssetArchive = "KORU_ASSETS_ARCHIVE"
	EnvLogLevel     = "KORU_LOG_LEVEL"
	EnvLogFormat    = "KORU_LOG_FORMAT"
)

var defaults = packr.NewBox("./defaults")

// DefaultConfiguration returns the built in configuration.
func DefaultConfiguration() (Configuration, error) {
	raw, err := defaults.Find("koru.yaml")
	if err != nil {
		return Configuration{}, err
	}
	var cfg Configuration
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("defaults: %w", err)
	}
	return cfg, nil
}

// LoadConfiguration builds the configuration in layers: the built in
// defaults, then the YAML file at path when it's not empty, then the
// given env files, then KORU_* environment variables.
// Missing env files are ignored, a missing configuration file is not.
func LoadConfiguration(path string, envFiles ...string) (Configuration, error) {
	cfg, err := DefaultConfiguration()
	if err != nil {
		return Configuration{}, err
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Configuration{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Configuration{}, fmt.Errorf("%w: %s: %v", ErrConfiguration, path, err)
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Configuration{}, fmt.Errorf("env file %s: %w", f, err)
		}
	}
	envy.Reload()

	if err := applyEnvironment(&cfg); err != nil {
		return Configuration{}, err
	}
	return cfg, cfg.Validate()
}

func applyEnvironment(cfg *Configuration) error {
	if v := envy.Get(EnvWorkers, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfiguration, EnvWorkers, err)
		}
		cfg.Loader.Workers = n
	}
	for key, field := range map[string]*string{
		EnvAssetsRoot:   &cfg.Assets.Root,
		EnvAssetArchive: &cfg.Assets.Archive,
		EnvLogLevel:     &cfg.Log.Level,
		EnvLogFormat:    &cfg.Log.Format,
	} {
		if v := envy.Get(key, ""); v != "" {
			*field = v
		}
	}
	return nil
}
