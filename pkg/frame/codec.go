package frame

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// frameJSON is the persisted wire form of a frame. Geometry cells travel as
// GeoJSON, the interchange format shared with the document backend.
type frameJSON struct {
	IndexNames   []string     `json:"index_names"`
	TimeIndex    bool         `json:"time_index"`
	IndexLabels  [][]string   `json:"index_labels"`
	ColumnNames  []string     `json:"column_names"`
	ColumnLabels [][]string   `json:"column_labels"`
	Cells        [][]cellJSON `json:"cells"`
}

type cellJSON struct {
	Kind string            `json:"kind"`
	Num  *float64          `json:"num,omitempty"`
	Txt  *string           `json:"txt,omitempty"`
	Geom *geojson.Geometry `json:"geom,omitempty"`
}

// MarshalJSON encodes the frame in its persisted wire form.
func (f *Frame) MarshalJSON() ([]byte, error) {
	out := frameJSON{
		IndexNames:   f.index.Names(),
		TimeIndex:    f.index.time,
		IndexLabels:  labelsToStrings(f.index.labels),
		ColumnNames:  f.columns.Names(),
		ColumnLabels: labelsToStrings(f.columns.labels),
		Cells:        make([][]cellJSON, len(f.cells)),
	}

	for c, col := range f.cells {
		out.Cells[c] = make([]cellJSON, len(col))
		for r, cell := range col {
			enc := cellJSON{Kind: cell.kind.String()}

			switch cell.kind {
			case KindNumber:
				v := cell.num
				enc.Num = &v
			case KindText:
				s := cell.txt
				enc.Txt = &s
			case KindGeometry:
				enc.Geom = geojson.NewGeometry(cell.geom)
			}

			out.Cells[c][r] = enc
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the persisted wire form.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var in frameJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	index, err := NewAxis(in.IndexNames, stringsToLabels(in.IndexLabels))
	if err != nil {
		return fmt.Errorf("invalid index axis: %w", err)
	}

	index.time = in.TimeIndex

	columns, err := NewAxis(in.ColumnNames, stringsToLabels(in.ColumnLabels))
	if err != nil {
		return fmt.Errorf("invalid column axis: %w", err)
	}

	cells := make([][]Cell, len(in.Cells))

	for c, col := range in.Cells {
		cells[c] = make([]Cell, len(col))

		for r, enc := range col {
			switch KindFromString(enc.Kind) {
			case KindNumber:
				if enc.Num == nil {
					return fmt.Errorf("row %d col %d: numeric cell without value", r, c)
				}

				cells[c][r] = Number(*enc.Num)
			case KindText:
				if enc.Txt == nil {
					return fmt.Errorf("row %d col %d: text cell without value", r, c)
				}

				cells[c][r] = Text(*enc.Txt)
			case KindGeometry:
				if enc.Geom == nil {
					return fmt.Errorf("row %d col %d: geometry cell without value", r, c)
				}

				cells[c][r] = Geometry(enc.Geom.Geometry())
			default:
				cells[c][r] = Null()
			}
		}
	}

	built, err := New(index, columns, cells)
	if err != nil {
		return err
	}

	*f = *built

	return nil
}

func labelsToStrings(labels []Label) [][]string {
	out := make([][]string, len(labels))
	for i, l := range labels {
		out[i] = append([]string(nil), l...)
	}

	return out
}

func stringsToLabels(in [][]string) []Label {
	out := make([]Label, len(in))
	for i, parts := range in {
		out[i] = Label(append([]string(nil), parts...))
	}

	return out
}
