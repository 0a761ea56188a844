package testutil

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/enerframe/enerframe/pkg/frame"
)

// NumericFrame builds a single-level numeric frame from row-major values.
func NumericFrame(t *testing.T, rows, cols []string, values [][]float64) *frame.Frame {
	t.Helper()

	f, err := frame.FromNumbers("node", rows, cols, values)
	require.NoError(t, err)

	return f
}

// SingleCellFrame builds a 1x1 numeric frame, the minimal sum/merge operand.
func SingleCellFrame(t *testing.T, value float64) *frame.Frame {
	t.Helper()

	return NumericFrame(t, []string{"x"}, []string{"v"}, [][]float64{{value}})
}

// TimeFrame builds a numeric frame over a time-typed row axis. Timestamps
// must be RFC3339 strings.
func TimeFrame(t *testing.T, timestamps, cols []string, values [][]float64) *frame.Frame {
	t.Helper()

	index := frame.NewTimeAxis("snapshot", timestamps)
	columns := frame.NewStringAxis("column", cols)

	cells := make([][]frame.Cell, len(cols))
	for c := range cols {
		cells[c] = make([]frame.Cell, len(timestamps))
		for r := range timestamps {
			cells[c][r] = frame.Number(values[r][c])
		}
	}

	f, err := frame.New(index, columns, cells)
	require.NoError(t, err)

	return f
}

// GeometryFrame builds a frame with one text and one geometry column, the
// shape static model tables with locations take.
func GeometryFrame(t *testing.T) *frame.Frame {
	t.Helper()

	index := frame.NewStringAxis("node", []string{"n1", "n2"})
	columns := frame.NewStringAxis("column", []string{"carrier", "location"})

	cells := [][]frame.Cell{
		{frame.Text("AC"), frame.Text("DC")},
		{frame.Geometry(orb.Point{13.4, 52.5}), frame.Geometry(orb.Point{2.35, 48.86})},
	}

	f, err := frame.New(index, columns, cells)
	require.NoError(t, err)

	return f
}
