package flags

import (
	"github.com/sirupsen/logrus"
)

// Index resolves flag metadata that this layer never interprets itself: the
// physical unit of a flag's values and the model flag a time-series flag is
// linked to (e.g. "lines_t.p0" -> "lines"). Consumers such as the KPI system
// inject an Index; datasets only pass it through.
type Index interface {
	// Unit returns the unit string for a flag, if known.
	Unit(f Flag) (string, bool)
	// LinkedModelFlag returns the static model flag backing a time-series
	// flag, if one is declared.
	LinkedModelFlag(f Flag) (Flag, bool)
}

// Entry declares the metadata of a single flag in a StaticIndex.
type Entry struct {
	Unit      string
	ModelFlag Flag
}

// StaticIndex is an Index backed by a fixed table of entries.
type StaticIndex struct {
	entries map[Flag]Entry
}

// NewStaticIndex builds an index from a flag -> metadata table.
func NewStaticIndex(entries map[Flag]Entry) *StaticIndex {
	cp := make(map[Flag]Entry, len(entries))
	for f, e := range entries {
		cp[f] = e
	}

	return &StaticIndex{entries: cp}
}

func (i *StaticIndex) Unit(f Flag) (string, bool) {
	e, ok := i.entries[f]
	if !ok || e.Unit == "" {
		return "", false
	}

	return e.Unit, true
}

func (i *StaticIndex) LinkedModelFlag(f Flag) (Flag, bool) {
	e, ok := i.entries[f]
	if !ok || e.ModelFlag == "" {
		return "", false
	}

	return e.ModelFlag, true
}

// EmptyIndex is the fallback used by datasets constructed without an index.
// It answers nothing and logs once on first use so a missing index is
// diagnosable without failing reads.
type EmptyIndex struct {
	log    logrus.FieldLogger
	warned bool
}

// NewEmptyIndex creates an EmptyIndex. The logger may be nil.
func NewEmptyIndex(log logrus.FieldLogger) *EmptyIndex {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &EmptyIndex{log: log}
}

func (i *EmptyIndex) Unit(Flag) (string, bool) {
	i.warnOnce()
	return "", false
}

func (i *EmptyIndex) LinkedModelFlag(Flag) (Flag, bool) {
	i.warnOnce()
	return "", false
}

func (i *EmptyIndex) warnOnce() {
	if i.warned {
		return
	}

	i.warned = true
	i.log.Warn("flag index consulted but none was configured; unit and model lookups will resolve to nothing")
}
