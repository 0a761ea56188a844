package database

import (
	"encoding/json"
	"fmt"

	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// Entry is the persisted envelope for key-value style backends: the key
// components (so filters can match without parsing key strings) plus the
// frame in its wire form.
type Entry struct {
	Owner      string       `json:"owner"`
	Flag       string       `json:"flag"`
	ConfigHash string       `json:"config_hash,omitempty"`
	ParamsHash string       `json:"params_hash,omitempty"`
	Frame      *frame.Frame `json:"frame"`
}

// NewEntry wraps a key and frame into the persisted envelope.
func NewEntry(key Key, f *frame.Frame) Entry {
	return Entry{
		Owner:      key.Owner,
		Flag:       string(key.Flag),
		ConfigHash: key.ConfigHash,
		ParamsHash: key.ParamsHash,
		Frame:      f,
	}
}

// Key reassembles the entry's cache key.
func (e Entry) Key() Key {
	return Key{
		Owner:      e.Owner,
		Flag:       flags.Flag(e.Flag),
		ConfigHash: e.ConfigHash,
		ParamsHash: e.ParamsHash,
	}
}

// Encode serializes the envelope.
func (e Entry) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}

	return data, nil
}

// DecodeEntry deserializes an envelope.
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}

	return e, nil
}
