package mongodb

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrURIRequired = errors.New("mongodb URI is required")
)

// Config holds the MongoDB backend configuration.
type Config struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Prefix         string        `yaml:"prefix"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.URI == "" {
		return ErrURIRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration.
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "enerframe"
	}

	if c.Prefix == "" {
		c.Prefix = "enerframe"
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}
