// Package study holds the YAML configuration of one analysis session: which
// cache backend to use, per-kind dataset config defaults and shared
// provenance attributes. The CLI and embedding applications load it once and
// open the configured backend through the factory here.
package study

import (
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/enerframe/enerframe/pkg/database/badgerdb"
	"github.com/enerframe/enerframe/pkg/database/chdb"
	"github.com/enerframe/enerframe/pkg/database/mongodb"
	"github.com/enerframe/enerframe/pkg/database/redisdb"
	"github.com/enerframe/enerframe/pkg/dataset"
)

// ErrUnknownBackend is returned for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown database backend")

// Backend names accepted in the database section.
const (
	BackendNone       = "none"
	BackendBadger     = "badger"
	BackendRedis      = "redis"
	BackendClickHouse = "clickhouse"
	BackendMongoDB    = "mongodb"
)

// Config is the study configuration.
type Config struct {
	// Name identifies the study in logs and default attributes.
	Name string `yaml:"name" default:"study"`

	// Logging level
	Logging string `yaml:"logging" default:"info"`

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string `yaml:"metricsAddr"`

	// Attributes are provenance attributes shared by the study's datasets.
	Attributes map[string]string `yaml:"attributes"`

	// Database selects and configures the cache backend.
	Database DatabaseConfig `yaml:"database"`

	// Defaults holds per-kind dataset config defaults, keyed by dataset kind
	// (for example "dataset", "merge", "platform").
	Defaults map[string]dataset.Config `yaml:"defaults"`
}

// DatabaseConfig selects one backend and carries every backend's settings;
// only the selected one is validated and opened.
type DatabaseConfig struct {
	Backend    string          `yaml:"backend" default:"none"`
	Badger     badgerdb.Config `yaml:"badger"`
	Redis      redisdb.Config  `yaml:"redis"`
	ClickHouse chdb.Config     `yaml:"clickhouse"`
	MongoDB    mongodb.Config  `yaml:"mongodb"`
}

// Validate checks the configuration, including the selected backend's own
// config.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case BackendNone:
		return nil
	case BackendBadger:
		return c.Database.Badger.Validate()
	case BackendRedis:
		return c.Database.Redis.Validate()
	case BackendClickHouse:
		return c.Database.ClickHouse.Validate()
	case BackendMongoDB:
		return c.Database.MongoDB.Validate()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Database.Backend)
	}
}

// Registry builds the per-kind config registry from the defaults section.
func (c *Config) Registry() *dataset.ConfigRegistry {
	registry := dataset.NewConfigRegistry()

	for kind, cfg := range c.Defaults {
		registry.SetDefault(kind, cfg)
	}

	return registry
}

// Load reads the study configuration from a YAML file. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}

		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
