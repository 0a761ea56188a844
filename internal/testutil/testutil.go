// Package testutil provides test utilities for enerframe:
//   - Miniredis helpers for the Redis backend tests (miniredis.go)
//   - Frame fixtures shared across packages (fixtures.go)
//
// None of the helpers require Docker; the Redis backend is exercised against
// miniredis and the badger backend against its in-memory mode.
package testutil
