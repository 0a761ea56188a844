package frame

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaSignature(t *testing.T) {
	f := numeric(t, []string{"x"}, []string{"q", "p"}, [][]float64{{1, 2}})

	schema := f.Schema()

	// column names are sorted in the signature regardless of frame order
	assert.Equal(t, []string{"p", "q"}, schema.Columns)
	assert.Equal(t, "number", schema.Types["p"])
	assert.Equal(t, []string{"node"}, schema.IndexNames)
	assert.False(t, schema.HasGeometry)
}

func TestSchemaHashStability(t *testing.T) {
	a := numeric(t, []string{"x"}, []string{"p", "q"}, [][]float64{{1, 2}})
	b := numeric(t, []string{"y", "z"}, []string{"q", "p"}, [][]float64{{3, 4}, {5, 6}})

	// same structure, different values, row count and column order
	assert.Equal(t, a.Schema().Hash(), b.Schema().Hash())

	index := NewStringAxis("node", []string{"x"})
	columns := NewStringAxis("column", []string{"p", "q"})
	withGeom, err := New(index, columns, [][]Cell{
		{Number(1)},
		{Geometry(orb.Point{1, 2})},
	})
	require.NoError(t, err)

	assert.NotEqual(t, a.Schema().Hash(), withGeom.Schema().Hash())
	assert.True(t, withGeom.Schema().HasGeometry)
}

func TestFrameJSONRoundTrip(t *testing.T) {
	index := NewTimeAxis("snapshot", []string{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"})

	columns, err := NewAxis([]string{"dataset", "column"}, []Label{
		L("base", "p"),
		L("base", "loc"),
	})
	require.NoError(t, err)

	f, err := New(index, columns, [][]Cell{
		{Number(1.5), Null()},
		{Geometry(orb.Point{13.4, 52.5}), Text("missing")},
	})
	require.NoError(t, err)

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var restored Frame
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.True(t, f.Equal(&restored))
	assert.True(t, restored.Index().IsTime())
}

func TestCellEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
	}{
		{name: "number", cell: Number(42.25)},
		{name: "text", cell: Text("AC")},
		{name: "geometry", cell: Geometry(orb.Point{1, 2})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := tt.cell.Encode()
			require.True(t, ok)

			decoded, err := DecodeCell(tt.cell.Kind(), value)
			require.NoError(t, err)
			assert.True(t, tt.cell.Equal(decoded))
		})
	}

	_, ok := Null().Encode()
	assert.False(t, ok)
}
