package redisdb

import (
	"errors"
	"fmt"
)

// Static errors for configuration validation
var (
	ErrAddressRequired = errors.New("redis address is required")
)

// Config holds the Redis backend configuration.
type Config struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Address == "" {
		return ErrAddressRequired
	}

	if c.Prefix == "" {
		c.Prefix = "enerframe"
	}

	return nil
}

// PrefixKey adds the configured prefix to a Redis key.
func (c *Config) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}

	return fmt.Sprintf("%s:%s", c.Prefix, key)
}
