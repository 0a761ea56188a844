package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// ConcatCollection fetches a flag from every accepting child and stacks the
// results along a configurable axis under a new composite-key level carrying
// each child's name. This is what turns N independent scenario datasets into
// one queryable structure without losing per-scenario provenance.
type ConcatCollection struct {
	*Collection
	concat frame.ConcatOptions
}

// ConcatOption tweaks the stacking behavior.
type ConcatOption func(*frame.ConcatOptions)

// WithConcatAxis selects the stacking axis (default: columns).
func WithConcatAxis(axis frame.ConcatAxis) ConcatOption {
	return func(o *frame.ConcatOptions) { o.Axis = axis }
}

// WithLevelName names the added composite level (default "dataset").
func WithLevelName(name string) ConcatOption {
	return func(o *frame.ConcatOptions) { o.LevelName = name }
}

// WithConcatTop places the added level outermost (default) or innermost.
func WithConcatTop(top bool) ConcatOption {
	return func(o *frame.ConcatOptions) { o.Top = top }
}

// NewConcat builds a concat collection.
func NewConcat(children []Dataset, concatOpts []ConcatOption, opts ...Option) (*ConcatCollection, error) {
	settings := frame.DefaultConcatOptions()
	for _, opt := range concatOpts {
		opt(&settings)
	}

	cc := &ConcatCollection{concat: settings}

	col, err := newCollection(cc, nil, children, append([]Option{WithKind("concat")}, opts...)...)
	if err != nil {
		return nil, err
	}

	cc.Collection = col

	return cc, nil
}

// LevelName returns the composite-key level name this collection stacks
// under.
func (c *ConcatCollection) LevelName() string {
	return c.concat.LevelName
}

// Produce gathers per-child results (skipping non-accepting children) and
// stacks them. Heterogeneous result shapes are an explicit non-goal and
// error out.
func (c *ConcatCollection) Produce(ctx context.Context, f flags.Flag, cfg ResolvedConfig, params Params) (*frame.Frame, error) {
	names, results, err := c.fetchAccepting(ctx, f, cfg, params)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q by any child of concat collection %q", ErrFlagNotAccepted, f, c.name)
	}

	stacked, err := frame.Stack(names, results, c.concat)
	if err != nil {
		if errors.Is(err, frame.ErrAxesIncompatible) {
			return nil, fmt.Errorf("%w: %v", ErrShapeUnsupported, err)
		}

		return nil, fmt.Errorf("stacking %d results for %q: %w", len(results), f, err)
	}

	return stacked, nil
}

// AttributesFrame returns a per-child attribute table: one column per child
// under the collection's composite level, one row per attribute key.
func (c *ConcatCollection) AttributesFrame() (*frame.Frame, error) {
	names := make([]string, 0, len(c.children))
	results := make([]*frame.Frame, 0, len(c.children))

	for _, child := range c.children {
		atts := child.Attributes()

		keys := make([]string, 0, len(atts))
		for k := range atts {
			keys = append(keys, k)
		}

		f, err := attributeColumn(child.Name(), keys, atts)
		if err != nil {
			return nil, err
		}

		names = append(names, child.Name())
		results = append(results, f)
	}

	if len(results) == 0 {
		return nil, ErrNoChildren
	}

	return frame.Stack(names, results, frame.ConcatOptions{
		Axis:      frame.ConcatColumns,
		LevelName: c.concat.LevelName,
		Top:       true,
	})
}

func attributeColumn(name string, keys []string, atts map[string]string) (*frame.Frame, error) {
	sort.Strings(keys)

	index := frame.NewStringAxis("attribute", keys)
	columns := frame.NewStringAxis("column", []string{name})

	cells := make([][]frame.Cell, 1)
	cells[0] = make([]frame.Cell, len(keys))

	for i, k := range keys {
		cells[0][i] = frame.Text(atts[k])
	}

	return frame.New(index, columns, cells)
}
