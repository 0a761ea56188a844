package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// SumCollection fetches a flag from every accepting child and returns the
// element-wise sum. Only numeric results are supported; nothing is coerced.
type SumCollection struct {
	*Collection
}

// NewSum builds a sum collection.
func NewSum(children []Dataset, opts ...Option) (*SumCollection, error) {
	s := &SumCollection{}

	col, err := newCollection(s, nil, children, append([]Option{WithKind("sum")}, opts...)...)
	if err != nil {
		return nil, err
	}

	s.Collection = col

	return s, nil
}

// Produce gathers all accepting children's results and sums them.
func (s *SumCollection) Produce(ctx context.Context, f flags.Flag, cfg ResolvedConfig, params Params) (*frame.Frame, error) {
	_, results, err := s.fetchAccepting(ctx, f, cfg, params)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q by any child of sum collection %q", ErrFlagNotAccepted, f, s.name)
	}

	total, err := frame.Sum(results)
	if err != nil {
		if errors.Is(err, frame.ErrNotNumeric) {
			return nil, fmt.Errorf("%w: flag %q", ErrNonNumericSum, f)
		}

		return nil, fmt.Errorf("summing %d results for %q: %w", len(results), f, err)
	}

	return total, nil
}
