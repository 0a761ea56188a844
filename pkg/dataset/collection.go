package dataset

import (
	"context"
	"fmt"

	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// ChildGuard validates a candidate child before a collection adopts it.
// A nil guard accepts any dataset.
type ChildGuard func(Dataset) error

// Collection is the shared behavior of all composite datasets: an ordered
// list of children keyed by name, the union flag vocabulary, and guarded
// adoption. Order is significant; it drives link routing and merge
// precedence. Concrete collections embed it and implement Produce.
type Collection struct {
	*Base
	children []Dataset
	guard    ChildGuard
}

// newCollection wires a concrete collection type: the concrete value is the
// producer the embedded Base dispatches to.
func newCollection(producer Producer, guard ChildGuard, children []Dataset, opts ...Option) (*Collection, error) {
	c := &Collection{guard: guard}
	c.Base = New(producer, opts...)

	for _, child := range children {
		if err := c.Add(child); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ProducedFlags returns the union of all children's accepted flags.
func (c *Collection) ProducedFlags() flags.Set {
	out := flags.NewSet()
	for _, child := range c.children {
		out = out.Union(child.AcceptedFlags())
	}

	return out
}

// Accepts reports whether any child accepts the flag. Children may override
// their acceptance logic, so this asks each child rather than the union set.
func (c *Collection) Accepts(f flags.Flag) bool {
	for _, child := range c.children {
		if child.Accepts(f) {
			return true
		}
	}

	return false
}

// Children returns the ordered child list. The returned slice is a copy; the
// order is the adoption order and is a caller-visible routing property.
func (c *Collection) Children() []Dataset {
	return append([]Dataset(nil), c.children...)
}

// Len returns the number of children.
func (c *Collection) Len() int {
	return len(c.children)
}

// Add adopts a child. The child must pass the guard; a child with an
// already-present name replaces the existing entry (with a warning) instead
// of duplicating it, and adoption that would make the collection contain
// itself is rejected.
func (c *Collection) Add(child Dataset) error {
	if c.guard != nil {
		if err := c.guard(child); err != nil {
			return fmt.Errorf("%w: %v", ErrChildRejected, err)
		}
	}

	if err := c.checkCycle(child); err != nil {
		return err
	}

	for i, existing := range c.children {
		if existing.Name() == child.Name() {
			c.log.WithField("child", child.Name()).Warn(
				"child dataset with this name already present; replacing it")

			c.children[i] = child
			c.adopt(child)

			return nil
		}
	}

	c.children = append(c.children, child)
	c.adopt(child)

	return nil
}

// AddAll adopts children in order, stopping at the first rejection.
func (c *Collection) AddAll(children []Dataset) error {
	for _, child := range children {
		if err := c.Add(child); err != nil {
			return err
		}
	}

	return nil
}

// adopt sets the parent back-link where the child supports it. The link
// points at the concrete collection, not the embedded base.
func (c *Collection) adopt(child Dataset) {
	type parentSetter interface{ setParent(Dataset) }

	s, ok := child.(parentSetter)
	if !ok {
		return
	}

	if parent, ok := c.producer.(Dataset); ok {
		s.setParent(parent)
		return
	}

	s.setParent(c)
}

// Get returns the first child when name is empty, otherwise the child with
// that exact name.
func (c *Collection) Get(name string) (Dataset, error) {
	if len(c.children) == 0 {
		return nil, ErrNoChildren
	}

	if name == "" {
		return c.children[0], nil
	}

	for _, child := range c.children {
		if child.Name() == name {
			return child, nil
		}
	}

	return nil, fmt.Errorf("%w: %q in collection %q", ErrDatasetNotFound, name, c.name)
}

// Attributes returns the attributes all children agree on, overlaid by the
// collection's own.
func (c *Collection) Attributes() map[string]string {
	out := intersectAttributes(c.children)

	for k, v := range c.Base.Attributes() {
		out[k] = v
	}

	return out
}

// FlagIndex returns the collection's own index when set, otherwise the index
// shared by all children (when they share one instance).
func (c *Collection) FlagIndex() flags.Index {
	if c.Base.flagIndex != nil {
		return c.Base.flagIndex
	}

	var shared flags.Index

	for i, child := range c.children {
		idx := child.FlagIndex()

		if i == 0 {
			shared = idx
			continue
		}

		if idx != shared {
			return c.Base.FlagIndex()
		}
	}

	if shared != nil {
		return shared
	}

	return c.Base.FlagIndex()
}

// FetchMerged fetches the flag through a throwaway merge collection over the
// same children, leaving the receiver untouched.
func (c *Collection) FetchMerged(ctx context.Context, f flags.Flag, keepFirst bool, opts *FetchOptions) (*frame.Frame, error) {
	merge, err := NewMerge(c.Children(), keepFirst, WithName(c.name+" merged"), WithLogger(c.log))
	if err != nil {
		return nil, err
	}

	return merge.Fetch(ctx, f, opts)
}

// FetchMultiple fetches several flags and stacks them under a new "variable"
// level along the column axis.
func (c *Collection) FetchMultiple(ctx context.Context, fs []flags.Flag, opts *FetchOptions) (*frame.Frame, error) {
	names := make([]string, 0, len(fs))
	results := make([]*frame.Frame, 0, len(fs))

	for _, f := range fs {
		res, err := c.Base.Fetch(ctx, f, opts)
		if err != nil {
			return nil, err
		}

		names = append(names, f.String())
		results = append(results, res)
	}

	return frame.Stack(names, results, frame.ConcatOptions{
		Axis:      frame.ConcatColumns,
		LevelName: "variable",
		Top:       true,
	})
}

// fetchAccepting fetches the flag from every child that accepts it, in child
// order, and returns the results with the producing children's names.
// Non-accepting children are skipped silently; a failure in any accepting
// child aborts the whole composite fetch.
func (c *Collection) fetchAccepting(ctx context.Context, f flags.Flag, cfg ResolvedConfig, params Params) ([]string, []*frame.Frame, error) {
	names := make([]string, 0, len(c.children))
	results := make([]*frame.Frame, 0, len(c.children))

	opts := &FetchOptions{Config: cfg.AsOverride(), Params: params}

	for _, child := range c.children {
		if !child.Accepts(f) {
			continue
		}

		res, err := child.Fetch(ctx, f, opts)
		if err != nil {
			return nil, nil, err
		}

		names = append(names, child.Name())
		results = append(results, res)
	}

	return names, results, nil
}

func intersectAttributes(children []Dataset) map[string]string {
	out := make(map[string]string)

	for i, child := range children {
		atts := child.Attributes()

		if i == 0 {
			for k, v := range atts {
				out[k] = v
			}

			continue
		}

		for k, v := range out {
			if other, ok := atts[k]; !ok || other != v {
				delete(out, k)
			}
		}
	}

	return out
}
