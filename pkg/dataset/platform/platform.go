// Package platform builds a routing dataset over a registry of interpreter
// factories. Each interpreter is a leaf dataset specialized for one category
// of flags within a platform-specific output format; the platform dataset
// fans them behind one uniform flag vocabulary with first-match-wins routing.
package platform

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/dataset"
	"github.com/enerframe/enerframe/pkg/flags"
)

var (
	// ErrDuplicateInterpreter is returned when registering a factory under a
	// name already taken.
	ErrDuplicateInterpreter = errors.New("interpreter already registered")
	// ErrUnknownInterpreter is returned when looking up a name nobody
	// registered.
	ErrUnknownInterpreter = errors.New("interpreter not registered")
	// ErrNoInterpreters is returned when building a platform dataset from an
	// empty registry.
	ErrNoInterpreters = errors.New("registry has no interpreters")
)

// Env is the explicit environment handed to every interpreter factory. It
// replaces passing the platform dataset's own constructor arguments through by
// signature inspection: a factory reads the fields it needs and ignores the
// rest.
type Env struct {
	// Log is the base logger; interpreters add their own dataset field.
	Log logrus.FieldLogger
	// Database is the shared cache backend, if any.
	Database database.Database
	// FlagIndex is the shared flag metadata index, if any.
	FlagIndex flags.Index
	// ConfigRegistry holds per-kind config defaults.
	ConfigRegistry *dataset.ConfigRegistry
	// Config is an instance config override applied to every interpreter.
	Config *dataset.Config
	// Attributes are provenance attributes shared by all interpreters.
	Attributes map[string]string
	// Vars carries free-form platform inputs (file paths, scenario names)
	// that individual factories know how to interpret.
	Vars map[string]string
}

// DatasetOptions translates the shared environment into construction options
// for an interpreter named name. Factories typically append their own options.
func (e Env) DatasetOptions(name string) []dataset.Option {
	opts := []dataset.Option{dataset.WithName(name), dataset.WithKind("interpreter")}

	if e.Log != nil {
		opts = append(opts, dataset.WithLogger(e.Log))
	}

	if e.Database != nil {
		opts = append(opts, dataset.WithDatabase(e.Database))
	}

	if e.FlagIndex != nil {
		opts = append(opts, dataset.WithFlagIndex(e.FlagIndex))
	}

	if e.ConfigRegistry != nil {
		opts = append(opts, dataset.WithConfigRegistry(e.ConfigRegistry))
	}

	if e.Config != nil {
		opts = append(opts, dataset.WithConfig(*e.Config))
	}

	if e.Attributes != nil {
		opts = append(opts, dataset.WithAttributes(e.Attributes))
	}

	return opts
}

// Factory builds one interpreter dataset. name is the registered interpreter
// name; pass it through Env.DatasetOptions so the built dataset carries it.
type Factory func(name string, env Env) (dataset.Dataset, error)

// Handle identifies one completed registration.
type Handle struct {
	name string
}

// Name returns the registered interpreter name.
func (h Handle) Name() string {
	return h.name
}

// Registry is an explicit, instance-scoped collection of interpreter
// factories. Registration order is preserved and becomes the routing order of
// the built platform dataset. A Registry is not safe for concurrent
// registration; populate it during setup.
type Registry struct {
	names     []string
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register records a factory under a unique name and returns its handle.
func (r *Registry) Register(name string, factory Factory) (Handle, error) {
	if _, ok := r.factories[name]; ok {
		return Handle{}, fmt.Errorf("%w: %q", ErrDuplicateInterpreter, name)
	}

	r.names = append(r.names, name)
	r.factories[name] = factory

	return Handle{name: name}, nil
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpreter, name)
	}

	return factory, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	return len(r.names)
}

// Dataset is a link collection whose children are the interpreters built from
// a registry. Requests route to the first interpreter, in registration order,
// accepting the flag.
type Dataset struct {
	*dataset.LinkCollection

	registry *Registry
	env      Env
}

// New instantiates every registered interpreter with the shared environment
// and wires them behind a link collection named name. Construction fails fast
// on the first factory error.
func New(name string, registry *Registry, env Env, opts ...dataset.Option) (*Dataset, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, ErrNoInterpreters
	}

	children := make([]dataset.Dataset, 0, registry.Len())

	for _, interp := range registry.Names() {
		factory, err := registry.Lookup(interp)
		if err != nil {
			return nil, err
		}

		child, err := factory(interp, env)
		if err != nil {
			return nil, fmt.Errorf("building interpreter %q: %w", interp, err)
		}

		children = append(children, child)
	}

	guard := func(child dataset.Dataset) error {
		if child == nil {
			return fmt.Errorf("interpreter factory returned nil for platform %q", name)
		}

		return nil
	}

	base := []dataset.Option{dataset.WithKind("platform"), dataset.WithName(name)}
	base = append(base, envOptions(env)...)
	base = append(base, opts...)

	link, err := dataset.NewGuardedLink(children, guard, base...)
	if err != nil {
		return nil, err
	}

	return &Dataset{LinkCollection: link, registry: registry, env: env}, nil
}

// Interpreter returns the built interpreter registered under name.
func (d *Dataset) Interpreter(name string) (dataset.Dataset, error) {
	if _, err := d.registry.Lookup(name); err != nil {
		return nil, err
	}

	return d.Get(name)
}

// envOptions applies the environment's shared wiring to the platform
// collection itself, minus the per-interpreter naming.
func envOptions(env Env) []dataset.Option {
	opts := make([]dataset.Option, 0, 6)

	if env.Log != nil {
		opts = append(opts, dataset.WithLogger(env.Log))
	}

	if env.Database != nil {
		opts = append(opts, dataset.WithDatabase(env.Database))
	}

	if env.FlagIndex != nil {
		opts = append(opts, dataset.WithFlagIndex(env.FlagIndex))
	}

	if env.ConfigRegistry != nil {
		opts = append(opts, dataset.WithConfigRegistry(env.ConfigRegistry))
	}

	if env.Config != nil {
		opts = append(opts, dataset.WithConfig(*env.Config))
	}

	if env.Attributes != nil {
		opts = append(opts, dataset.WithAttributes(env.Attributes))
	}

	return opts
}
