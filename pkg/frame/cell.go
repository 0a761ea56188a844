package frame

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Kind discriminates the value carried by a cell.
type Kind uint8

const (
	// KindNull marks an absent value.
	KindNull Kind = iota
	// KindNumber marks a float64 value.
	KindNumber
	// KindText marks a string value.
	KindText
	// KindGeometry marks a geometry value.
	KindGeometry
)

// String returns the type name used in schema signatures.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindGeometry:
		return "geometry"
	default:
		return "null"
	}
}

// KindFromString parses a schema type name back to a Kind.
func KindFromString(s string) Kind {
	switch s {
	case "number":
		return KindNumber
	case "text":
		return KindText
	case "geometry":
		return KindGeometry
	default:
		return KindNull
	}
}

// Cell is a single table value: null, number, text or geometry.
type Cell struct {
	kind Kind
	num  float64
	txt  string
	geom orb.Geometry
}

// Null returns the absent-value cell.
func Null() Cell {
	return Cell{kind: KindNull}
}

// Number wraps a float64.
func Number(v float64) Cell {
	return Cell{kind: KindNumber, num: v}
}

// Text wraps a string.
func Text(s string) Cell {
	return Cell{kind: KindText, txt: s}
}

// Geometry wraps a geometry value.
func Geometry(g orb.Geometry) Cell {
	return Cell{kind: KindGeometry, geom: g}
}

// Kind returns the cell's kind.
func (c Cell) Kind() Kind {
	return c.kind
}

// IsNull reports whether the cell is absent.
func (c Cell) IsNull() bool {
	return c.kind == KindNull
}

// Number returns the numeric value; ok is false for non-numeric cells.
func (c Cell) Number() (float64, bool) {
	return c.num, c.kind == KindNumber
}

// Text returns the string value; ok is false for non-text cells.
func (c Cell) Text() (string, bool) {
	return c.txt, c.kind == KindText
}

// Geometry returns the geometry value; ok is false for non-geometry cells.
func (c Cell) Geometry() (orb.Geometry, bool) {
	return c.geom, c.kind == KindGeometry
}

// Equal reports value equality. Geometries compare by their WKT rendering,
// the same form they round-trip through persistence with.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}

	switch c.kind {
	case KindNumber:
		return c.num == o.num
	case KindText:
		return c.txt == o.txt
	case KindGeometry:
		return wkt.MarshalString(c.geom) == wkt.MarshalString(o.geom)
	default:
		return true
	}
}

// Encode renders the cell as a string for relational storage: numbers in
// shortest float form, text verbatim, geometry as WKT.
func (c Cell) Encode() (value string, ok bool) {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'g', -1, 64), true
	case KindText:
		return c.txt, true
	case KindGeometry:
		return wkt.MarshalString(c.geom), true
	default:
		return "", false
	}
}

// DecodeCell parses a string produced by Encode back into a cell of the given
// kind.
func DecodeCell(kind Kind, value string) (Cell, error) {
	switch kind {
	case KindNumber:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Null(), err
		}

		return Number(v), nil
	case KindText:
		return Text(value), nil
	case KindGeometry:
		g, err := wkt.Unmarshal(value)
		if err != nil {
			return Null(), err
		}

		return Geometry(g), nil
	default:
		return Null(), nil
	}
}
