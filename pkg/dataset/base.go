package dataset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
	"github.com/enerframe/enerframe/pkg/observability"
)

// Base is the leaf dataset implementation: it wraps a Producer with naming,
// attributes, flag-index plumbing, config resolution and the cache
// round-trip. Collections embed it and supply themselves as the producer.
type Base struct {
	log        logrus.FieldLogger
	name       string
	kind       string
	parent     Dataset
	attributes map[string]string
	db         database.Database
	flagIndex  flags.Index
	config     *Config
	registry   *ConfigRegistry
	producer   Producer
}

// Option configures a Base at construction.
type Option func(*Base)

// WithName sets the dataset name. Unnamed datasets get a generated one.
func WithName(name string) Option {
	return func(b *Base) { b.name = name }
}

// WithKind sets the kind used for config-registry default lookup.
func WithKind(kind string) Option {
	return func(b *Base) { b.kind = kind }
}

// WithParent sets the back-link to the enclosing dataset. The link is
// informational only, never an ownership edge.
func WithParent(parent Dataset) Option {
	return func(b *Base) { b.parent = parent }
}

// WithAttributes sets the provenance/grouping attributes.
func WithAttributes(attributes map[string]string) Option {
	return func(b *Base) {
		b.attributes = make(map[string]string, len(attributes))
		for k, v := range attributes {
			b.attributes[k] = v
		}
	}
}

// WithDatabase attaches a cache backend.
func WithDatabase(db database.Database) Option {
	return func(b *Base) { b.db = db }
}

// WithFlagIndex injects the flag metadata index.
func WithFlagIndex(idx flags.Index) Option {
	return func(b *Base) { b.flagIndex = idx }
}

// WithConfig sets the instance config layer.
func WithConfig(cfg Config) Option {
	return func(b *Base) { b.config = &cfg }
}

// WithConfigRegistry attaches the per-kind default config registry.
func WithConfigRegistry(r *ConfigRegistry) Option {
	return func(b *Base) { b.registry = r }
}

// WithLogger sets the logger; a component field is added per dataset.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Base) { b.log = log }
}

// New creates a leaf dataset around a producer.
func New(producer Producer, opts ...Option) *Base {
	b := &Base{producer: producer, kind: "dataset"}

	for _, opt := range opts {
		opt(b)
	}

	if b.name == "" {
		b.name = fmt.Sprintf("%s_%s", b.kind, uuid.NewString()[:8])
	}

	if b.log == nil {
		b.log = logrus.StandardLogger()
	}

	b.log = b.log.WithField("dataset", b.name)

	if b.attributes == nil {
		b.attributes = make(map[string]string)
	}

	return b
}

// Name returns the dataset name.
func (b *Base) Name() string {
	return b.name
}

// Kind returns the config-registry kind.
func (b *Base) Kind() string {
	return b.kind
}

// Accepts reports whether the producer computes the flag.
func (b *Base) Accepts(f flags.Flag) bool {
	return b.producer.ProducedFlags().Has(f)
}

// AcceptedFlags returns the producible flags.
func (b *Base) AcceptedFlags() flags.Set {
	return b.producer.ProducedFlags()
}

// Attributes returns a copy of the attributes map.
func (b *Base) Attributes() map[string]string {
	out := make(map[string]string, len(b.attributes))
	for k, v := range b.attributes {
		out[k] = v
	}

	return out
}

// SetAttribute records one provenance attribute.
func (b *Base) SetAttribute(key, value string) {
	b.attributes[key] = value
}

// Parent returns the enclosing dataset, or nil for roots.
func (b *Base) Parent() Dataset {
	return b.parent
}

// setParent is used by collections when adopting children they built.
func (b *Base) setParent(parent Dataset) {
	b.parent = parent
}

// FlagIndex returns the injected index, or an empty one.
func (b *Base) FlagIndex() flags.Index {
	if b.flagIndex == nil {
		b.flagIndex = flags.NewEmptyIndex(b.log)
	}

	return b.flagIndex
}

// Database returns the attached cache backend, if any.
func (b *Base) Database() database.Database {
	return b.db
}

// EffectiveConfig resolves the config layering with an optional per-call
// override.
func (b *Base) EffectiveConfig(call *Config) ResolvedConfig {
	return b.registry.Effective(b.kind, b.config, call)
}

// AcceptedFlagsContaining returns the accepted flags whose string form
// contains the given substring; a discovery aid for interactive use.
func (b *Base) AcceptedFlagsContaining(substr string) []flags.Flag {
	out := make([]flags.Flag, 0)

	for _, f := range b.AcceptedFlags().Sorted() {
		if containsFold(string(f), substr) {
			out = append(out, f)
		}
	}

	return out
}

// Fetch implements the dataset contract: flag guard, config resolution,
// cache lookup, production, post-processing, cache store.
func (b *Base) Fetch(ctx context.Context, f flags.Flag, opts *FetchOptions) (*frame.Frame, error) {
	if !b.Accepts(f) {
		return nil, fmt.Errorf("%w: %q by dataset %q", ErrFlagNotAccepted, f, b.name)
	}

	if opts == nil {
		opts = &FetchOptions{}
	}

	cfg := b.EffectiveConfig(opts.Config)
	key := b.cacheKey(f, cfg, opts.Params)
	useDB := b.db != nil && cfg.UseDatabase

	started := time.Now()

	if useDB {
		present, err := b.db.Exists(ctx, key)
		if err != nil {
			observability.RecordError("dataset", "cache_read")
			return nil, fmt.Errorf("cache presence check for %q: %w", key.String(), err)
		}

		if present {
			cached, err := b.db.Get(ctx, key)
			if err != nil {
				observability.RecordError("dataset", "cache_read")
				return nil, fmt.Errorf("cache read for %q: %w", key.String(), err)
			}

			observability.CacheRequests.WithLabelValues("hit").Inc()
			observability.RecordFetch(b.name, "cached", time.Since(started))

			return cached, nil
		}

		observability.CacheRequests.WithLabelValues("miss").Inc()
	}

	produced, err := b.producer.Produce(ctx, f, cfg, opts.Params)
	if err != nil {
		observability.RecordError("dataset", "produce")
		observability.RecordFetch(b.name, "error", time.Since(started))

		return nil, err
	}

	processed := b.postProcess(produced, f, cfg)

	if useDB {
		if err := b.db.Set(ctx, key, processed); err != nil {
			observability.RecordError("dataset", "cache_write")
			return nil, fmt.Errorf("cache write for %q: %w", key.String(), err)
		}

		observability.CacheRequests.WithLabelValues("store").Inc()
	}

	observability.RecordFetch(b.name, "produced", time.Since(started))

	return processed, nil
}

// CacheKey exposes the key a fetch would use; the CLI and tests rely on it.
func (b *Base) CacheKey(f flags.Flag, call *Config, params Params) database.Key {
	return b.cacheKey(f, b.EffectiveConfig(call), params)
}

func (b *Base) cacheKey(f flags.Flag, cfg ResolvedConfig, params Params) database.Key {
	return database.Key{
		Owner:      b.name,
		Flag:       f,
		ConfigHash: cfg.Hash(),
		ParamsHash: params.Hash(),
	}
}

func (b *Base) postProcess(f *frame.Frame, flag flags.Flag, cfg ResolvedConfig) *frame.Frame {
	out := f

	if cfg.RemoveDuplicateLabels && out.HasDuplicateIndex() {
		b.log.WithField("flag", flag.String()).Warn(
			"producer returned duplicate row labels; keeping the first of each")

		out = out.DedupeIndex()
	}

	if cfg.AutoSortTimeIndex {
		out = out.SortByTimeIndex()
	}

	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
