// Package dataset implements the access and composition layer: a uniform
// "which flags do you accept / fetch this flag" contract over heterogeneous
// sources, layered configuration resolution, transparent cache round-trips
// through a pluggable database backend, and the composition algebra (link,
// merge, concat, sum) that folds many child datasets into one artifact.
//
// The layer is synchronous and single-threaded by design: Fetch blocks on
// backend I/O or the underlying computation, and callers needing timeouts
// wrap the context themselves.
package dataset

import (
	"context"

	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// FetchOptions carry the per-call overrides of a fetch: a partial config
// merged over the dataset's own layers and free-form producer params.
type FetchOptions struct {
	Config *Config
	Params Params
}

// Dataset is the capability contract every node in a composition tree
// implements, leaves and collections alike. AcceptedFlags must be stable for
// the lifetime of the instance; callers cache routing decisions on it.
type Dataset interface {
	// Name returns the display and cache-key identity of the dataset.
	Name() string
	// Accepts reports whether the dataset can produce the flag.
	Accepts(f flags.Flag) bool
	// AcceptedFlags returns the full set of producible flags.
	AcceptedFlags() flags.Set
	// Attributes returns the provenance/grouping attributes.
	Attributes() map[string]string
	// FlagIndex returns the injected flag metadata index.
	FlagIndex() flags.Index
	// Fetch resolves the effective config and returns the artifact for the
	// flag, from cache when possible. opts may be nil.
	Fetch(ctx context.Context, f flags.Flag, opts *FetchOptions) (*frame.Frame, error)
}

// Producer is the production half a leaf dataset supplies: the set of flags
// it can compute and the computation itself. Fetch never calls Produce when a
// cached artifact is available.
type Producer interface {
	// ProducedFlags returns the flags this producer computes.
	ProducedFlags() flags.Set
	// Produce computes the artifact for a flag under the resolved config.
	Produce(ctx context.Context, f flags.Flag, cfg ResolvedConfig, params Params) (*frame.Frame, error)
}

// childLister is implemented by collections; the composition cycle guard
// walks it.
type childLister interface {
	Children() []Dataset
}
