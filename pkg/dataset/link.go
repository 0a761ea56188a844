package dataset

import (
	"context"
	"fmt"

	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// LinkCollection routes each flag request to the first child, in adoption
// order, that accepts it. It is the dispatcher that lets heterogeneous
// interpreters present one uniform flag vocabulary. Overlapping flag
// ownership between children is a configuration smell, not a runtime fault:
// construction warns about it and routing silently favors the earliest child.
type LinkCollection struct {
	*Collection
}

// NewLink builds a link collection over the given children.
func NewLink(children []Dataset, opts ...Option) (*LinkCollection, error) {
	return NewGuardedLink(children, nil, opts...)
}

// NewGuardedLink builds a link collection that vets every adopted child
// through the guard; the platform dataset uses it.
func NewGuardedLink(children []Dataset, guard ChildGuard, opts ...Option) (*LinkCollection, error) {
	l := &LinkCollection{}

	col, err := newCollection(l, guard, children, append([]Option{WithKind("link")}, opts...)...)
	if err != nil {
		return nil, err
	}

	l.Collection = col
	l.warnOverlappingFlags()

	return l, nil
}

// Produce routes the request to the first accepting child and returns its
// result unmodified.
func (l *LinkCollection) Produce(ctx context.Context, f flags.Flag, cfg ResolvedConfig, params Params) (*frame.Frame, error) {
	opts := &FetchOptions{Config: cfg.AsOverride(), Params: params}

	for _, child := range l.children {
		if child.Accepts(f) {
			return child.Fetch(ctx, f, opts)
		}
	}

	return nil, fmt.Errorf("%w: %q by any child of link collection %q", ErrFlagNotAccepted, f, l.name)
}

// First returns the first child matching the predicate; a convenience for
// pulling a specific interpreter back out of the collection.
func (l *LinkCollection) First(match func(Dataset) bool) (Dataset, error) {
	for _, child := range l.children {
		if match(child) {
			return child, nil
		}
	}

	return nil, fmt.Errorf("%w: no child matched in collection %q", ErrDatasetNotFound, l.name)
}

func (l *LinkCollection) warnOverlappingFlags() {
	counts := make(map[flags.Flag]int)

	for _, child := range l.children {
		for f := range child.AcceptedFlags() {
			counts[f]++
		}
	}

	overlapping := make([]string, 0)

	for f, n := range counts {
		if n > 1 {
			overlapping = append(overlapping, f.String())
		}
	}

	if len(overlapping) > 0 {
		l.log.WithField("flags", overlapping).Warn(
			"multiple children claim the same flags; only the first child in list order will serve them")
	}
}
