package dataset

import (
	"context"
	"fmt"

	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// MergeCollection fetches a flag from every accepting child and reconciles
// the fragments into one artifact: disjoint columns over shared rows
// concatenate sideways, disjoint rows over shared columns stack, anything
// else combines cell-wise with gaps filled from the other operand. KeepFirst
// picks the winner where both operands carry a value.
type MergeCollection struct {
	*Collection
	keepFirst bool
}

// NewMerge builds a merge collection. keepFirst selects the earlier child's
// value on conflicting cells.
func NewMerge(children []Dataset, keepFirst bool, opts ...Option) (*MergeCollection, error) {
	m := &MergeCollection{keepFirst: keepFirst}

	col, err := newCollection(m, nil, children, append([]Option{WithKind("merge")}, opts...)...)
	if err != nil {
		return nil, err
	}

	m.Collection = col

	return m, nil
}

// KeepFirst reports the configured conflict tie-break.
func (m *MergeCollection) KeepFirst() bool {
	return m.keepFirst
}

// Produce gathers all accepting children's results and folds them pairwise.
func (m *MergeCollection) Produce(ctx context.Context, f flags.Flag, cfg ResolvedConfig, params Params) (*frame.Frame, error) {
	_, results, err := m.fetchAccepting(ctx, f, cfg, params)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q by any child of merge collection %q", ErrFlagNotAccepted, f, m.name)
	}

	merged, err := frame.Combine(results, m.keepFirst)
	if err != nil {
		return nil, fmt.Errorf("merging %d fragments for %q: %w", len(results), f, err)
	}

	return merged, nil
}
