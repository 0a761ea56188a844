package chdb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerframe/enerframe/internal/testutil"
	"github.com/enerframe/enerframe/pkg/frame"
)

func TestConfigDefaults(t *testing.T) {
	config := &Config{}
	require.ErrorIs(t, config.Validate(), ErrURLRequired)

	config.URL = "http://localhost:8123"
	require.NoError(t, config.Validate())

	config.SetDefaults()

	assert.Equal(t, "default", config.Database)
	assert.Equal(t, "enerframe", config.Prefix)
	assert.NotZero(t, config.QueryTimeout)
	assert.NotZero(t, config.InsertTimeout)
}

func TestColumnID(t *testing.T) {
	a := columnID("base|p")
	b := columnID("base|p")
	c := columnID("base|q")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^col_[0-9a-f]{16}$`, a)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "plain", escape("plain"))
	assert.Equal(t, `it\'s`, escape("it's"))
	assert.Equal(t, `a\\b`, escape(`a\b`))
}

func TestBuildMeta(t *testing.T) {
	f := testutil.GeometryFrame(t)

	meta := buildMeta(f)

	assert.Equal(t, []string{"node"}, meta.IndexNames)
	assert.False(t, meta.TimeIndex)
	assert.Equal(t, []string{"column"}, meta.ColumnNames)
	require.Len(t, meta.Columns, 2)

	assert.Equal(t, []string{"carrier"}, meta.Columns[0].Label)
	assert.Equal(t, "text", meta.Columns[0].Kind)
	assert.Equal(t, "geometry", meta.Columns[1].Kind)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame *frame.Frame
	}{
		{
			name:  "numeric",
			frame: testutil.NumericFrame(t, []string{"x", "y"}, []string{"p", "q"}, [][]float64{{1, 2}, {3, 4}}),
		},
		{
			name: "time index",
			frame: testutil.TimeFrame(t,
				[]string{"2024-01-01T00:00:00Z", "2024-01-01T01:00:00Z"},
				[]string{"p"},
				[][]float64{{1}, {2}}),
		},
		{
			name:  "geometry and text",
			frame: testutil.GeometryFrame(t),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := buildMeta(tt.frame)

			rows, err := encodeRows("pool_buses", meta, tt.frame)
			require.NoError(t, err)
			require.Len(t, rows, tt.frame.Rows())

			raw := make([]json.RawMessage, len(rows))
			for i, row := range rows {
				raw[i] = json.RawMessage(row)
			}

			restored, err := decodeFrame(meta, raw)
			require.NoError(t, err)

			assert.True(t, tt.frame.Equal(restored))
			assert.Equal(t, tt.frame.Index().IsTime(), restored.Index().IsTime())
		})
	}
}

func TestEncodeRowsCarriesNulls(t *testing.T) {
	index := frame.NewStringAxis("node", []string{"x"})
	columns := frame.NewStringAxis("column", []string{"p", "q"})

	f, err := frame.New(index, columns, [][]frame.Cell{
		{frame.Number(1)},
		{frame.Null()},
	})
	require.NoError(t, err)

	meta := buildMeta(f)

	rows, err := encodeRows("k", meta, f)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var row map[string]any
	require.NoError(t, json.Unmarshal(rows[0], &row))

	assert.Equal(t, "k", row["dataset_key"])
	assert.Equal(t, `["x"]`, row["row_label"])
	assert.Nil(t, row[meta.Columns[1].ID])

	restored, err := decodeFrame(meta, []json.RawMessage{json.RawMessage(rows[0])})
	require.NoError(t, err)
	assert.Equal(t, frame.KindNull, restored.At(0, 1).Kind())
}

func TestDecodeFrameRejectsMissingLabel(t *testing.T) {
	meta := frameMeta{
		IndexNames:  []string{"node"},
		ColumnNames: []string{"column"},
		Columns:     []columnMeta{{ID: columnID("p"), Label: []string{"p"}, Kind: "number"}},
	}

	_, err := decodeFrame(meta, []json.RawMessage{json.RawMessage(`{"pos": 0}`)})
	require.Error(t, err)
}
