package dataset

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/creasty/defaults"
)

// Config carries the per-fetch behavior options. Fields are pointers so a
// partial config can act as an override: nil means "inherit", a set value
// replaces the inherited one. Resolution order at fetch time is
// per-kind default -> instance config -> per-call config.
type Config struct {
	// UseDatabase enables the cache round-trip when a database is attached.
	UseDatabase *bool `yaml:"useDatabase" default:"true"`
	// AutoSortTimeIndex sorts results with a time-typed row axis
	// chronologically after production.
	AutoSortTimeIndex *bool `yaml:"autoSortTimeIndex" default:"true"`
	// RemoveDuplicateLabels drops all but the first row of duplicated row
	// labels after production.
	RemoveDuplicateLabels *bool `yaml:"removeDuplicateLabels" default:"true"`
}

// Bool is a literal helper for building override configs.
func Bool(v bool) *bool {
	return &v
}

// Merge overlays an override onto c: every non-nil field of the override
// wins, nil fields fall through. Pure; neither operand is modified.
func (c Config) Merge(override *Config) Config {
	if override == nil {
		return c
	}

	out := c

	if override.UseDatabase != nil {
		out.UseDatabase = override.UseDatabase
	}

	if override.AutoSortTimeIndex != nil {
		out.AutoSortTimeIndex = override.AutoSortTimeIndex
	}

	if override.RemoveDuplicateLabels != nil {
		out.RemoveDuplicateLabels = override.RemoveDuplicateLabels
	}

	return out
}

// Resolved materializes the config with all unset fields at their defaults.
func (c Config) Resolved() ResolvedConfig {
	base := Config{}
	if err := defaults.Set(&base); err != nil {
		// Tags are static; this cannot fail.
		panic(err)
	}

	merged := base.Merge(&c)

	return ResolvedConfig{
		UseDatabase:           *merged.UseDatabase,
		AutoSortTimeIndex:     *merged.AutoSortTimeIndex,
		RemoveDuplicateLabels: *merged.RemoveDuplicateLabels,
	}
}

// ResolvedConfig is a fully materialized config as used during a fetch.
type ResolvedConfig struct {
	UseDatabase           bool
	AutoSortTimeIndex     bool
	RemoveDuplicateLabels bool
}

// AsOverride converts the resolved config back into a fully-set Config, the
// form collections hand down to their children.
func (r ResolvedConfig) AsOverride() *Config {
	return &Config{
		UseDatabase:           Bool(r.UseDatabase),
		AutoSortTimeIndex:     Bool(r.AutoSortTimeIndex),
		RemoveDuplicateLabels: Bool(r.RemoveDuplicateLabels),
	}
}

// Canonical renders the resolved config as a deterministic sorted
// field=value string. This is the versioned encoding cache keys hash, so it
// must stay byte-stable across processes.
func (r ResolvedConfig) Canonical() string {
	return "autoSortTimeIndex=" + strconv.FormatBool(r.AutoSortTimeIndex) +
		"&removeDuplicateLabels=" + strconv.FormatBool(r.RemoveDuplicateLabels) +
		"&useDatabase=" + strconv.FormatBool(r.UseDatabase)
}

// Hash returns the short stable digest of the canonical encoding.
func (r ResolvedConfig) Hash() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(r.Canonical()))
}

// ConfigRegistry holds per-kind default configs, the outermost layer of the
// resolution order. It is an explicit value handed to datasets at
// construction rather than process-global state.
type ConfigRegistry struct {
	byKind map[string]Config
}

// NewConfigRegistry creates an empty registry.
func NewConfigRegistry() *ConfigRegistry {
	return &ConfigRegistry{byKind: make(map[string]Config)}
}

// SetDefault registers the default config for a dataset kind, replacing any
// previous default.
func (r *ConfigRegistry) SetDefault(kind string, cfg Config) {
	r.byKind[kind] = cfg
}

// Default returns the registered default for a kind.
func (r *ConfigRegistry) Default(kind string) (Config, bool) {
	cfg, ok := r.byKind[kind]
	return cfg, ok
}

// Effective resolves the full layering for a kind: registered default, then
// the instance config, then the per-call override.
func (r *ConfigRegistry) Effective(kind string, instance, call *Config) ResolvedConfig {
	base := Config{}

	if r != nil {
		if kindDefault, ok := r.byKind[kind]; ok {
			base = kindDefault
		}
	}

	return base.Merge(instance).Merge(call).Resolved()
}
