// Package frame implements the labeled two-dimensional table exchanged between
// datasets, collections and cache backends: a row axis of observations
// (typically time) and a column axis of entities, with numeric, text or
// geometry cells. Axes may carry multiple label levels, which is how
// composite keys (e.g. a per-scenario "dataset" level) are represented.
package frame

import (
	"errors"
	"fmt"
)

// Static errors for frame construction and access
var (
	ErrShapeMismatch = errors.New("cell block does not match axis shape")
	ErrLabelWidth    = errors.New("label width does not match axis level count")
	ErrLabelNotFound = errors.New("label not found")
	ErrLevelNotFound = errors.New("axis level not found")
	ErrEmptyAxis     = errors.New("axis must carry at least one level name")
)

// Label is one axis entry: a tuple of strings, one per axis level.
type Label []string

// L is a shorthand constructor for labels.
func L(parts ...string) Label {
	return Label(parts)
}

// String renders the label with "|" between levels. Used as a map key and in
// persisted cache entries; level values containing "|" are not supported on
// persisted frames.
func (l Label) String() string {
	if len(l) == 1 {
		return l[0]
	}

	out := ""
	for i, p := range l {
		if i > 0 {
			out += "|"
		}
		out += p
	}

	return out
}

// Equal reports level-wise equality.
func (l Label) Equal(o Label) bool {
	if len(l) != len(o) {
		return false
	}

	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}

	return true
}

func (l Label) clone() Label {
	out := make(Label, len(l))
	copy(out, l)

	return out
}

// Axis is an ordered sequence of labels with named levels. The row axis may
// additionally be marked as a time axis, in which case labels are RFC3339
// timestamps and sort chronologically as strings.
type Axis struct {
	names  []string
	labels []Label
	time   bool
}

// NewAxis builds an axis. Every label must have exactly one value per level.
func NewAxis(names []string, labels []Label) (*Axis, error) {
	if len(names) == 0 {
		return nil, ErrEmptyAxis
	}

	for _, l := range labels {
		if len(l) != len(names) {
			return nil, fmt.Errorf("%w: label %q has %d levels, axis has %d", ErrLabelWidth, l.String(), len(l), len(names))
		}
	}

	return &Axis{names: append([]string(nil), names...), labels: cloneLabels(labels)}, nil
}

// NewStringAxis builds a single-level axis from plain strings.
func NewStringAxis(name string, values []string) *Axis {
	labels := make([]Label, len(values))
	for i, v := range values {
		labels[i] = Label{v}
	}

	return &Axis{names: []string{name}, labels: labels}
}

// NewTimeAxis builds a single-level time axis from RFC3339 timestamps.
func NewTimeAxis(name string, timestamps []string) *Axis {
	a := NewStringAxis(name, timestamps)
	a.time = true

	return a
}

// Names returns the level names.
func (a *Axis) Names() []string {
	return append([]string(nil), a.names...)
}

// NameSet returns the level names as a set.
func (a *Axis) NameSet() map[string]struct{} {
	out := make(map[string]struct{}, len(a.names))
	for _, n := range a.names {
		out[n] = struct{}{}
	}

	return out
}

// Len returns the number of labels.
func (a *Axis) Len() int {
	return len(a.labels)
}

// Levels returns the number of label levels.
func (a *Axis) Levels() int {
	return len(a.names)
}

// Label returns the label at position i.
func (a *Axis) Label(i int) Label {
	return a.labels[i]
}

// IsTime reports whether the axis is a time axis.
func (a *Axis) IsTime() bool {
	return a.time
}

// SetTime marks or unmarks the axis as a time axis. Backends use it when
// rebuilding frames from row storage.
func (a *Axis) SetTime(time bool) {
	a.time = time
}

// Clone returns a deep copy.
func (a *Axis) Clone() *Axis {
	return &Axis{names: append([]string(nil), a.names...), labels: cloneLabels(a.labels), time: a.time}
}

// positions maps label string forms to their first position.
func (a *Axis) positions() map[string]int {
	out := make(map[string]int, len(a.labels))
	for i, l := range a.labels {
		key := l.String()
		if _, seen := out[key]; !seen {
			out[key] = i
		}
	}

	return out
}

func cloneLabels(labels []Label) []Label {
	out := make([]Label, len(labels))
	for i, l := range labels {
		out[i] = l.clone()
	}

	return out
}

// Frame is the two-dimensional labeled table. Cells are stored column-major.
type Frame struct {
	index   *Axis
	columns *Axis
	cells   [][]Cell
}

// New builds a frame from axes and a column-major cell block:
// cells[c][r] is the value of column c at row r.
func New(index, columns *Axis, cells [][]Cell) (*Frame, error) {
	if len(cells) != columns.Len() {
		return nil, fmt.Errorf("%w: %d cell columns for %d column labels", ErrShapeMismatch, len(cells), columns.Len())
	}

	for c, col := range cells {
		if len(col) != index.Len() {
			return nil, fmt.Errorf("%w: column %d has %d cells for %d rows", ErrShapeMismatch, c, len(col), index.Len())
		}
	}

	return &Frame{index: index.Clone(), columns: columns.Clone(), cells: cloneCells(cells)}, nil
}

// FromNumbers builds a single-level numeric frame. values[r][c] is row-major,
// the natural literal layout; NaN is not supported, use explicit nulls via New.
func FromNumbers(indexName string, rowLabels []string, columnNames []string, values [][]float64) (*Frame, error) {
	index := NewStringAxis(indexName, rowLabels)
	columns := NewStringAxis("column", columnNames)

	cells := make([][]Cell, len(columnNames))
	for c := range columnNames {
		cells[c] = make([]Cell, len(rowLabels))
		for r := range rowLabels {
			if r >= len(values) || c >= len(values[r]) {
				return nil, fmt.Errorf("%w: value block smaller than axes", ErrShapeMismatch)
			}
			cells[c][r] = Number(values[r][c])
		}
	}

	return New(index, columns, cells)
}

// Index returns the row axis.
func (f *Frame) Index() *Axis {
	return f.index
}

// Columns returns the column axis.
func (f *Frame) Columns() *Axis {
	return f.columns
}

// Rows returns the number of rows.
func (f *Frame) Rows() int {
	return f.index.Len()
}

// Cols returns the number of columns.
func (f *Frame) Cols() int {
	return f.columns.Len()
}

// At returns the cell at row r, column c.
func (f *Frame) At(r, c int) Cell {
	return f.cells[c][r]
}

// Column returns a copy of the cells of column c.
func (f *Frame) Column(c int) []Cell {
	return append([]Cell(nil), f.cells[c]...)
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	return &Frame{index: f.index.Clone(), columns: f.columns.Clone(), cells: cloneCells(f.cells)}
}

// Equal reports structural equality: same axes (names, labels, order, time
// flag) and cell-wise equal values.
func (f *Frame) Equal(o *Frame) bool {
	if o == nil {
		return false
	}

	if !axesEqual(f.index, o.index) || !axesEqual(f.columns, o.columns) {
		return false
	}

	for c := range f.cells {
		for r := range f.cells[c] {
			if !f.cells[c][r].Equal(o.cells[c][r]) {
				return false
			}
		}
	}

	return true
}

// IsNumeric reports whether every cell is numeric or null.
func (f *Frame) IsNumeric() bool {
	for _, col := range f.cells {
		for _, cell := range col {
			if cell.kind != KindNull && cell.kind != KindNumber {
				return false
			}
		}
	}

	return true
}

// HasGeometry reports whether any cell carries a geometry value.
func (f *Frame) HasGeometry() bool {
	for _, col := range f.cells {
		for _, cell := range col {
			if cell.kind == KindGeometry {
				return true
			}
		}
	}

	return false
}

func axesEqual(a, b *Axis) bool {
	if a.time != b.time || a.Levels() != b.Levels() || a.Len() != b.Len() {
		return false
	}

	for i, n := range a.names {
		if b.names[i] != n {
			return false
		}
	}

	for i, l := range a.labels {
		if !l.Equal(b.labels[i]) {
			return false
		}
	}

	return true
}

func cloneCells(cells [][]Cell) [][]Cell {
	out := make([][]Cell, len(cells))
	for i, col := range cells {
		out[i] = append([]Cell(nil), col...)
	}

	return out
}
