package frame

import "sort"

// SortByTimeIndex returns a copy with rows in chronological order. Frames
// without a time index are returned unchanged.
func (f *Frame) SortByTimeIndex() *Frame {
	if !f.index.time {
		return f
	}

	order := make([]int, f.Rows())
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return f.index.labels[order[a]].String() < f.index.labels[order[b]].String()
	})

	return f.takeRows(order)
}

// DedupeIndex returns a copy keeping only the first row of every duplicated
// row label. Frames without duplicates are returned unchanged.
func (f *Frame) DedupeIndex() *Frame {
	if !f.HasDuplicateIndex() {
		return f
	}

	seen := make(map[string]struct{}, f.Rows())
	keep := make([]int, 0, f.Rows())

	for i, l := range f.index.labels {
		key := l.String()
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	return f.takeRows(keep)
}

// HasDuplicateIndex reports whether any row label occurs more than once.
func (f *Frame) HasDuplicateIndex() bool {
	seen := make(map[string]struct{}, f.Rows())
	for _, l := range f.index.labels {
		key := l.String()
		if _, dup := seen[key]; dup {
			return true
		}

		seen[key] = struct{}{}
	}

	return false
}

// takeRows builds a copy containing the given row positions in order.
func (f *Frame) takeRows(positions []int) *Frame {
	labels := make([]Label, len(positions))
	for i, p := range positions {
		labels[i] = f.index.labels[p].clone()
	}

	index := &Axis{names: f.index.Names(), labels: labels, time: f.index.time}

	cells := make([][]Cell, f.Cols())
	for c := range cells {
		cells[c] = make([]Cell, len(positions))
		for i, p := range positions {
			cells[c][i] = f.cells[c][p]
		}
	}

	return &Frame{index: index, columns: f.columns.Clone(), cells: cells}
}

// labelsOverlap reports whether two axes share at least one label.
func labelsOverlap(a, b *Axis) bool {
	pos := a.positions()
	for _, l := range b.labels {
		if _, ok := pos[l.String()]; ok {
			return true
		}
	}

	return false
}

// labelsDisjoint reports whether two axes share no label.
func labelsDisjoint(a, b *Axis) bool {
	return !labelsOverlap(a, b)
}

// unionAxis appends b's unseen labels to a's, preserving a's level names.
// The time flag survives only if both axes carry it.
func unionAxis(a, b *Axis) *Axis {
	labels := cloneLabels(a.labels)
	pos := a.positions()

	for _, l := range b.labels {
		if _, ok := pos[l.String()]; !ok {
			labels = append(labels, l.clone())
		}
	}

	return &Axis{names: a.Names(), labels: labels, time: a.time && b.time}
}
