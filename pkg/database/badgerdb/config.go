package badgerdb

import (
	"errors"

	"github.com/creasty/defaults"
)

// ErrPathRequired is returned when a persistent store has no directory.
var ErrPathRequired = errors.New("path is required unless in-memory mode is enabled")

// Config holds the badger backend configuration.
type Config struct {
	// Path is the directory for the store's files. Ignored in-memory.
	Path string `yaml:"path"`
	// InMemory keeps everything in RAM; used by tests.
	InMemory bool `yaml:"inMemory" default:"false"`
	// Prefix namespaces every entry this backend writes.
	Prefix string `yaml:"prefix" default:"enerframe"`
	// SyncWrites forces durable writes.
	SyncWrites bool `yaml:"syncWrites" default:"true"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() error {
	return defaults.Set(c)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return ErrPathRequired
	}

	return nil
}
