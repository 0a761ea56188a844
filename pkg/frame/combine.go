package frame

import (
	"errors"
	"fmt"
)

// Static errors for combination operations
var (
	ErrNoFrames        = errors.New("at least one frame is required")
	ErrAxisNamesDiffer = errors.New("axis level names differ between frames")
	ErrNotNumeric      = errors.New("operation requires numeric frames")
)

// Combine folds the frames pairwise with the fragment-reconciliation rule:
//
//  1. disjoint column sets but overlapping row labels -> column concat
//  2. disjoint row labels but overlapping column sets -> row concat
//  3. otherwise -> cell-wise fill combine, first operand winning when
//     keepFirst is true
//
// This is what turns fragmented sources (monthly simulation slices, a static
// property sheet plus a simulation table, a re-run week overriding a yearly
// run) into one artifact.
func Combine(frames []*Frame, keepFirst bool) (*Frame, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	out := frames[0]

	for _, next := range frames[1:] {
		merged, err := combinePair(out, next, keepFirst)
		if err != nil {
			return nil, err
		}

		out = merged
	}

	return out, nil
}

func combinePair(a, b *Frame, keepFirst bool) (*Frame, error) {
	b, err := alignFrame(a, b)
	if err != nil {
		return nil, err
	}

	colsDisjoint := labelsDisjoint(a.columns, b.columns)
	rowsOverlap := labelsOverlap(a.index, b.index)

	switch {
	case colsDisjoint && rowsOverlap:
		return concatColumns(a, b)
	case !colsDisjoint && !rowsOverlap:
		return concatRows(a, b)
	default:
		if keepFirst {
			return fillCombine(a, b)
		}

		return fillCombine(b, a)
	}
}

// concatColumns places b's columns next to a's over the union of row labels.
func concatColumns(a, b *Frame) (*Frame, error) {
	if err := requireSameNames(a.index, b.index); err != nil {
		return nil, err
	}

	index := unionAxis(a.index, b.index)
	columns := &Axis{
		names:  a.columns.Names(),
		labels: append(cloneLabels(a.columns.labels), cloneLabels(b.columns.labels)...),
	}

	cells := make([][]Cell, 0, a.Cols()+b.Cols())
	cells = append(cells, reindexColumns(a, index)...)
	cells = append(cells, reindexColumns(b, index)...)

	return &Frame{index: index, columns: columns, cells: cells}, nil
}

// concatRows places b's rows under a's over the union of column labels.
func concatRows(a, b *Frame) (*Frame, error) {
	if err := requireSameNames(a.columns, b.columns); err != nil {
		return nil, err
	}

	index := &Axis{
		names:  a.index.Names(),
		labels: append(cloneLabels(a.index.labels), cloneLabels(b.index.labels)...),
		time:   a.index.time && b.index.time,
	}
	columns := unionAxis(a.columns, b.columns)

	cells := make([][]Cell, columns.Len())

	aCols := a.columns.positions()
	bCols := b.columns.positions()

	for c := 0; c < columns.Len(); c++ {
		key := columns.Label(c).String()
		col := make([]Cell, 0, index.Len())

		if p, ok := aCols[key]; ok {
			col = append(col, a.cells[p]...)
		} else {
			col = appendNulls(col, a.Rows())
		}

		if p, ok := bCols[key]; ok {
			col = append(col, b.cells[p]...)
		} else {
			col = appendNulls(col, b.Rows())
		}

		cells[c] = col
	}

	return &Frame{index: index, columns: columns, cells: cells}, nil
}

// fillCombine unions both axes and fills each cell from the first frame,
// falling back to the second where the first has no value.
func fillCombine(first, second *Frame) (*Frame, error) {
	if err := requireSameNames(first.index, second.index); err != nil {
		return nil, err
	}

	if err := requireSameNames(first.columns, second.columns); err != nil {
		return nil, err
	}

	index := unionAxis(first.index, second.index)
	columns := unionAxis(first.columns, second.columns)

	firstRows := first.index.positions()
	secondRows := second.index.positions()
	firstCols := first.columns.positions()
	secondCols := second.columns.positions()

	cells := make([][]Cell, columns.Len())

	for c := 0; c < columns.Len(); c++ {
		colKey := columns.Label(c).String()
		cells[c] = make([]Cell, index.Len())

		for r := 0; r < index.Len(); r++ {
			rowKey := index.Label(r).String()

			cell := cellAt(first, firstRows, firstCols, rowKey, colKey)
			if cell.IsNull() {
				cell = cellAt(second, secondRows, secondCols, rowKey, colKey)
			}

			cells[c][r] = cell
		}
	}

	return &Frame{index: index, columns: columns, cells: cells}, nil
}

// Sum returns the element-wise sum of numeric frames over union-aligned axes.
// A cell missing or null in any operand yields a null sum cell, matching the
// propagation behavior analysts expect from missing observations.
func Sum(frames []*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	for _, f := range frames {
		if !f.IsNumeric() {
			return nil, ErrNotNumeric
		}
	}

	aligned := make([]*Frame, len(frames))
	aligned[0] = frames[0]

	for i, f := range frames[1:] {
		af, err := alignFrame(frames[0], f)
		if err != nil {
			return nil, err
		}

		aligned[i+1] = af
	}

	frames = aligned

	index := frames[0].index
	columns := frames[0].columns

	for _, f := range frames[1:] {
		index = unionAxis(index, f.index)
		columns = unionAxis(columns, f.columns)
	}

	rowPos := make([]map[string]int, len(frames))
	colPos := make([]map[string]int, len(frames))

	for i, f := range frames {
		rowPos[i] = f.index.positions()
		colPos[i] = f.columns.positions()
	}

	cells := make([][]Cell, columns.Len())

	for c := 0; c < columns.Len(); c++ {
		colKey := columns.Label(c).String()
		cells[c] = make([]Cell, index.Len())

		for r := 0; r < index.Len(); r++ {
			rowKey := index.Label(r).String()
			total := 0.0
			null := false

			for i, f := range frames {
				cell := cellAt(f, rowPos[i], colPos[i], rowKey, colKey)

				v, ok := cell.Number()
				if !ok {
					null = true
					break
				}

				total += v
			}

			if null {
				cells[c][r] = Null()
			} else {
				cells[c][r] = Number(total)
			}
		}
	}

	return &Frame{index: index, columns: columns, cells: cells}, nil
}

func cellAt(f *Frame, rows, cols map[string]int, rowKey, colKey string) Cell {
	r, okR := rows[rowKey]
	c, okC := cols[colKey]

	if !okR || !okC {
		return Null()
	}

	return f.cells[c][r]
}

// reindexColumns re-aligns a frame's columns to a target row axis, padding
// rows the frame does not cover with nulls.
func reindexColumns(f *Frame, index *Axis) [][]Cell {
	rows := f.index.positions()

	out := make([][]Cell, f.Cols())
	for c := range out {
		out[c] = make([]Cell, index.Len())
		for r := 0; r < index.Len(); r++ {
			if p, ok := rows[index.Label(r).String()]; ok {
				out[c][r] = f.cells[c][p]
			} else {
				out[c][r] = Null()
			}
		}
	}

	return out
}

func requireSameNames(a, b *Axis) error {
	if a.Levels() != b.Levels() {
		return fmt.Errorf("%w: %v vs %v", ErrAxisNamesDiffer, a.names, b.names)
	}

	for i, n := range a.names {
		if b.names[i] != n {
			return fmt.Errorf("%w: %v vs %v", ErrAxisNamesDiffer, a.names, b.names)
		}
	}

	return nil
}

// alignFrame returns b with both axes reordered to a's level order. Label
// merging downstream is positional, so frames that name the same levels in a
// different order must have their label tuples permuted first.
func alignFrame(a, b *Frame) (*Frame, error) {
	index, err := alignLevels(a.index, b.index)
	if err != nil {
		return nil, err
	}

	columns, err := alignLevels(a.columns, b.columns)
	if err != nil {
		return nil, err
	}

	if index == b.index && columns == b.columns {
		return b, nil
	}

	return &Frame{index: index, columns: columns, cells: b.cells}, nil
}

// alignLevels permutes axis label tuples into target's level order. The axis
// is returned unchanged when the orders already match. Differing name sets,
// or duplicate names that make the permutation ambiguous, are rejected.
func alignLevels(target, axis *Axis) (*Axis, error) {
	if err := requireSameNames(target, axis); err == nil {
		return axis, nil
	}

	if axis.Levels() != target.Levels() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrAxisNamesDiffer, target.names, axis.names)
	}

	src := make(map[string]int, len(axis.names))
	for i, n := range axis.names {
		if _, dup := src[n]; dup {
			return nil, fmt.Errorf("%w: duplicate level %q", ErrAxisNamesDiffer, n)
		}

		src[n] = i
	}

	perm := make([]int, len(target.names))

	for i, n := range target.names {
		p, ok := src[n]
		if !ok {
			return nil, fmt.Errorf("%w: %v vs %v", ErrAxisNamesDiffer, target.names, axis.names)
		}

		perm[i] = p
	}

	labels := make([]Label, len(axis.labels))
	for i, l := range axis.labels {
		permuted := make(Label, len(perm))
		for j, p := range perm {
			permuted[j] = l[p]
		}

		labels[i] = permuted
	}

	return &Axis{names: append([]string(nil), target.names...), labels: labels, time: axis.time}, nil
}

func appendNulls(col []Cell, n int) []Cell {
	for i := 0; i < n; i++ {
		col = append(col, Null())
	}

	return col
}
