package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Params are free-form call arguments forwarded to producers and folded into
// the cache key (e.g. a date range restriction). Values are strings so the
// canonical encoding is unambiguous.
type Params map[string]string

// Canonical renders the params as a deterministic sorted k=v string.
func (p Params) Canonical() string {
	if len(p) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + p[k]
	}

	return strings.Join(parts, "&")
}

// Hash returns the short stable digest of the canonical encoding, or the
// empty string for empty params (so parameterless keys stay compact).
func (p Params) Hash() string {
	if len(p) == 0 {
		return ""
	}

	return fmt.Sprintf("%016x", xxhash.Sum64String(p.Canonical()))
}

// Clone returns a copy of the params.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}

	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}
