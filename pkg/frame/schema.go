package frame

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Schema is the structural signature of a frame: sorted column names, a
// column -> type-name mapping, the index level names and whether any geometry
// is carried. Cache backends group physical storage by this signature, so two
// frames with equal schemas share a table/collection/key-namespace.
type Schema struct {
	Columns     []string          `json:"columns"`
	Types       map[string]string `json:"types"`
	IndexNames  []string          `json:"index_names"`
	HasGeometry bool              `json:"has_geometry"`
}

// Schema derives the frame's structural signature. A column's type is the
// kind of its first non-null cell; an all-null column reports "null".
func (f *Frame) Schema() Schema {
	cols := make([]string, f.Cols())
	types := make(map[string]string, f.Cols())

	for c := 0; c < f.Cols(); c++ {
		name := f.columns.Label(c).String()
		cols[c] = name
		types[name] = f.columnKind(c).String()
	}

	sort.Strings(cols)

	return Schema{
		Columns:     cols,
		Types:       types,
		IndexNames:  f.index.Names(),
		HasGeometry: f.HasGeometry(),
	}
}

// columnKind returns the kind of the first non-null cell in column c.
func (f *Frame) columnKind(c int) Kind {
	for _, cell := range f.cells[c] {
		if cell.kind != KindNull {
			return cell.kind
		}
	}

	return KindNull
}

// Hash returns a short stable digest of the schema. The encoding is
// canonical (sorted JSON object keys), so the same structure always hashes
// identically across processes.
func (s Schema) Hash() string {
	payload, err := json.Marshal(s)
	if err != nil {
		// Schema marshals plain maps and slices; this cannot fail.
		panic(err)
	}

	return fmt.Sprintf("%012x", xxhash.Sum64(payload)&0xffffffffffff)
}
