package frame

import (
	"errors"
	"fmt"
)

// ConcatAxis selects the axis a stacking operation extends.
type ConcatAxis int

const (
	// ConcatRows stacks along the row axis.
	ConcatRows ConcatAxis = 0
	// ConcatColumns stacks along the column axis.
	ConcatColumns ConcatAxis = 1
)

// Static errors for stacking
var (
	ErrNameCountMismatch = errors.New("frame name count does not match frame count")
	ErrAxesIncompatible  = errors.New("frames have incompatible axes for stacking")
)

// ConcatOptions controls Stack behavior.
type ConcatOptions struct {
	// Axis is the axis the new composite level is stacked onto.
	Axis ConcatAxis
	// LevelName names the added level (default "dataset").
	LevelName string
	// Top places the new level outermost when true, innermost otherwise.
	Top bool
}

// DefaultConcatOptions mirror the common multi-scenario case: stack along the
// column axis with an outermost "dataset" level.
func DefaultConcatOptions() ConcatOptions {
	return ConcatOptions{Axis: ConcatColumns, LevelName: "dataset", Top: true}
}

// Stack concatenates frames along the chosen axis, adding a composite-key
// level populated with each frame's name. All frames must carry the same
// level names per axis; frames naming them in a different order are realigned
// to the first frame's order before stacking. Heterogeneous shapes are
// unsupported.
func Stack(names []string, frames []*Frame, opts ConcatOptions) (*Frame, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	if len(names) != len(frames) {
		return nil, fmt.Errorf("%w: %d names for %d frames", ErrNameCountMismatch, len(names), len(frames))
	}

	if opts.LevelName == "" {
		opts.LevelName = "dataset"
	}

	aligned := make([]*Frame, len(frames))
	aligned[0] = frames[0]

	for i, f := range frames[1:] {
		af, err := alignFrame(frames[0], f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAxesIncompatible, err)
		}

		aligned[i+1] = af
	}

	if opts.Axis == ConcatRows {
		return stackRows(names, aligned, opts)
	}

	return stackColumns(names, aligned, opts)
}

func stackColumns(names []string, frames []*Frame, opts ConcatOptions) (*Frame, error) {
	// Rows are outer-joined across frames, first frame's order first.
	index := frames[0].index
	for _, f := range frames[1:] {
		index = unionAxis(index, f.index)
	}

	colNames := levelNames(frames[0].columns.Names(), opts)
	labels := make([]Label, 0)
	cells := make([][]Cell, 0)

	for i, f := range frames {
		for _, l := range f.columns.labels {
			labels = append(labels, extendLabel(l, names[i], opts))
		}

		cells = append(cells, reindexColumns(f, index)...)
	}

	columns := &Axis{names: colNames, labels: labels}

	return &Frame{index: index, columns: columns, cells: cells}, nil
}

func stackRows(names []string, frames []*Frame, opts ConcatOptions) (*Frame, error) {
	columns := frames[0].columns
	for _, f := range frames[1:] {
		columns = unionAxis(columns, f.columns)
	}

	idxNames := levelNames(frames[0].index.Names(), opts)
	labels := make([]Label, 0)

	for i, f := range frames {
		for _, l := range f.index.labels {
			labels = append(labels, extendLabel(l, names[i], opts))
		}
	}

	index := &Axis{names: idxNames, labels: labels}

	cells := make([][]Cell, columns.Len())

	for c := 0; c < columns.Len(); c++ {
		key := columns.Label(c).String()
		col := make([]Cell, 0, index.Len())

		for _, f := range frames {
			if p, ok := f.columns.positions()[key]; ok {
				col = append(col, f.cells[p]...)
			} else {
				col = appendNulls(col, f.Rows())
			}
		}

		cells[c] = col
	}

	return &Frame{index: index, columns: columns, cells: cells}, nil
}

func levelNames(base []string, opts ConcatOptions) []string {
	if opts.Top {
		return append([]string{opts.LevelName}, base...)
	}

	return append(append([]string(nil), base...), opts.LevelName)
}

func extendLabel(l Label, value string, opts ConcatOptions) Label {
	if opts.Top {
		return append(Label{value}, l.clone()...)
	}

	return append(l.clone(), value)
}

// SelectColumns returns the sub-frame whose column labels carry the given
// value on the named level, with that level removed. This is how a single
// scenario is pulled back out of a stacked result.
func (f *Frame) SelectColumns(level, value string) (*Frame, error) {
	pos := -1

	for i, n := range f.columns.names {
		if n == level {
			pos = i
			break
		}
	}

	if pos < 0 {
		return nil, fmt.Errorf("%w: %q", ErrLevelNotFound, level)
	}

	names := make([]string, 0, f.columns.Levels()-1)
	names = append(names, f.columns.names[:pos]...)
	names = append(names, f.columns.names[pos+1:]...)

	labels := make([]Label, 0)
	cells := make([][]Cell, 0)

	for c, l := range f.columns.labels {
		if l[pos] != value {
			continue
		}

		kept := make(Label, 0, len(l)-1)
		kept = append(kept, l[:pos]...)
		kept = append(kept, l[pos+1:]...)

		labels = append(labels, kept)
		cells = append(cells, append([]Cell(nil), f.cells[c]...))
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no column with %s=%q", ErrLabelNotFound, level, value)
	}

	columns := &Axis{names: names, labels: labels}

	return &Frame{index: f.index.Clone(), columns: columns, cells: cells}, nil
}
