package database

import (
	"strings"

	"github.com/enerframe/enerframe/pkg/flags"
)

// Key addresses one cached artifact. Owner is the producing dataset's name,
// the hashes are canonical digests of the effective config and the call
// parameters. Identical (owner, flag, config, params) always yield the same
// key; the digests are short non-cryptographic hashes, so collisions are a
// known, accepted risk.
type Key struct {
	Owner      string
	Flag       flags.Flag
	ConfigHash string
	ParamsHash string
}

// String renders the logical cache key embedded in persisted entries:
// {owner}_{flag}[_config_{hash}][_params_{hash}].
func (k Key) String() string {
	var b strings.Builder

	b.WriteString(k.Owner)
	b.WriteByte('_')
	b.WriteString(string(k.Flag))

	if k.ConfigHash != "" {
		b.WriteString("_config_")
		b.WriteString(k.ConfigHash)
	}

	if k.ParamsHash != "" {
		b.WriteString("_params_")
		b.WriteString(k.ParamsHash)
	}

	return b.String()
}

// Filter selects entries for Delete and ListKeys. Zero-valued fields match
// anything; a fully zero filter matches every entry.
type Filter struct {
	Owner      string
	Flag       flags.Flag
	ConfigHash string
	ParamsHash string
}

// Matches reports whether the filter selects the given key.
func (f Filter) Matches(k Key) bool {
	if f.Owner != "" && f.Owner != k.Owner {
		return false
	}

	if f.Flag != "" && f.Flag != k.Flag {
		return false
	}

	if f.ConfigHash != "" && f.ConfigHash != k.ConfigHash {
		return false
	}

	if f.ParamsHash != "" && f.ParamsHash != k.ParamsHash {
		return false
	}

	return true
}
