// Package database defines the persistence contract cache backends implement:
// store and retrieve one tabular artifact per cache key. The contract has no
// staleness notion; a key that exists is by definition up to date. Backends
// group physical storage by frame schema signature and are expected to be
// fail-fast: misconfiguration and unreachable stores error at construction,
// not at first use.
package database

import (
	"context"
	"errors"

	"github.com/enerframe/enerframe/pkg/frame"
)

// Static errors shared by all backends
var (
	// ErrNotFound is returned by Get when no entry matches the key.
	ErrNotFound = errors.New("no cache entry for key")
	// ErrClosed is returned when a backend is used after Close.
	ErrClosed = errors.New("database is closed")
)

// Database is the pluggable cache backend contract. Set has delete-then-insert
// semantics: any existing entry for the key is replaced whole, never merged.
type Database interface {
	// Get retrieves the artifact stored under key, or ErrNotFound.
	Get(ctx context.Context, key Key) (*frame.Frame, error)
	// Set stores the artifact under key, replacing any existing entry.
	Set(ctx context.Context, key Key, f *frame.Frame) error
	// Exists reports whether an entry is present for key. Presence is the
	// only freshness notion this layer has.
	Exists(ctx context.Context, key Key) (bool, error)
	// Delete removes all entries matching the filter.
	Delete(ctx context.Context, filter Filter) error
	// ListKeys returns the sorted string forms of all keys matching the
	// filter. Cost is O(number of distinct schemas) scans, not O(1).
	ListKeys(ctx context.Context, filter Filter) ([]string, error)
	// Close releases the backend's resources.
	Close() error
}
