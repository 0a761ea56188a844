// Package badgerdb implements the cache backend contract on an embedded
// BadgerDB key-value store. Frames are stored as JSON envelopes grouped by
// schema signature; an explicit key index maps each logical cache key to the
// schema namespace holding its data.
package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
	"github.com/enerframe/enerframe/pkg/observability"
)

// Store is a badger-backed cache database.
type Store struct {
	log    logrus.FieldLogger
	config *Config
	db     *badger.DB
}

// indexRecord is the value stored under each key-index entry: the key
// components for filter matching plus the schema namespace the data lives in.
type indexRecord struct {
	Schema     string `json:"schema"`
	Owner      string `json:"owner"`
	Flag       string `json:"flag"`
	ConfigHash string `json:"config_hash,omitempty"`
	ParamsHash string `json:"params_hash,omitempty"`
}

// New opens the store. Opening fails fast on a bad path.
func New(log logrus.FieldLogger, config *Config) (*Store, error) {
	if err := config.SetDefaults(); err != nil {
		return nil, fmt.Errorf("apply badger config defaults: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	opts := badger.DefaultOptions(config.Path).
		WithInMemory(config.InMemory).
		WithSyncWrites(config.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &Store{
		log:    log.WithField("component", "database/badger"),
		config: config,
		db:     db,
	}, nil
}

// Get retrieves the frame stored under key.
func (s *Store) Get(ctx context.Context, key database.Key) (*frame.Frame, error) {
	started := time.Now()

	f, err := s.get(ctx, key)
	s.record("get", started, err)

	return f, err
}

func (s *Store) get(ctx context.Context, key database.Key) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry database.Entry

	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := s.lookupIndex(txn, key)
		if err != nil {
			return err
		}

		item, err := txn.Get(s.dataKey(rec.Schema, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %q", database.ErrNotFound, key.String())
			}

			return err
		}

		return item.Value(func(val []byte) error {
			decoded, err := database.DecodeEntry(val)
			if err != nil {
				return err
			}

			entry = decoded

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entry.Frame, nil
}

// Set stores the frame under key, replacing any previous entry whole.
func (s *Store) Set(ctx context.Context, key database.Key, f *frame.Frame) error {
	started := time.Now()

	err := s.set(ctx, key, f)
	s.record("set", started, err)

	return err
}

func (s *Store) set(ctx context.Context, key database.Key, f *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	schema := f.Schema()

	data, err := database.NewEntry(key, f).Encode()
	if err != nil {
		return err
	}

	rec := indexRecord{
		Schema:     schema.Hash(),
		Owner:      key.Owner,
		Flag:       string(key.Flag),
		ConfigHash: key.ConfigHash,
		ParamsHash: key.ParamsHash,
	}

	recData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode index record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Delete-then-insert: the previous entry may live under a different
		// schema namespace, so drop it via the index first.
		if old, err := s.lookupIndex(txn, key); err == nil {
			if err := txn.Delete(s.dataKey(old.Schema, key)); err != nil {
				return err
			}
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		if err := txn.Set(s.dataKey(rec.Schema, key), data); err != nil {
			return err
		}

		return txn.Set(s.indexKey(key), recData)
	})
}

// Exists reports whether an entry is present for key.
func (s *Store) Exists(ctx context.Context, key database.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := s.lookupIndex(txn, key)
		return err
	})

	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// Delete removes every entry matching the filter.
func (s *Store) Delete(ctx context.Context, filter database.Filter) error {
	started := time.Now()

	err := s.delete(ctx, filter)
	s.record("delete", started, err)

	return err
}

func (s *Store) delete(ctx context.Context, filter database.Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return s.scanIndex(txn, func(indexKey []byte, rec indexRecord) error {
			key := recordKey(rec)
			if !filter.Matches(key) {
				return nil
			}

			if err := txn.Delete(s.dataKey(rec.Schema, key)); err != nil {
				return err
			}

			return txn.Delete(indexKey)
		})
	})
}

// ListKeys returns the sorted string forms of all keys matching the filter.
func (s *Store) ListKeys(ctx context.Context, filter database.Filter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		return s.scanIndex(txn, func(_ []byte, rec indexRecord) error {
			key := recordKey(rec)
			if filter.Matches(key) {
				keys = append(keys, key.String())
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)

	return keys, nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lookupIndex(txn *badger.Txn, key database.Key) (indexRecord, error) {
	item, err := txn.Get(s.indexKey(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return indexRecord{}, fmt.Errorf("%w: %q", database.ErrNotFound, key.String())
		}

		return indexRecord{}, err
	}

	var rec indexRecord

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return indexRecord{}, fmt.Errorf("decode index record for %q: %w", key.String(), err)
	}

	return rec, nil
}

func (s *Store) scanIndex(txn *badger.Txn, fn func(indexKey []byte, rec indexRecord) error) error {
	prefix := []byte(s.config.Prefix + "/key/")

	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()

		var rec indexRecord

		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
		if err != nil {
			return fmt.Errorf("decode index record: %w", err)
		}

		if err := fn(item.KeyCopy(nil), rec); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) indexKey(key database.Key) []byte {
	return []byte(fmt.Sprintf("%s/key/%s", s.config.Prefix, url.PathEscape(key.String())))
}

func (s *Store) dataKey(schema string, key database.Key) []byte {
	return []byte(fmt.Sprintf("%s/data/%s/%s", s.config.Prefix, schema, url.PathEscape(key.String())))
}

func (s *Store) record(operation string, started time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		status = "error"
	}

	observability.RecordDatabaseOperation("badger", operation, status, time.Since(started))
}

func recordKey(rec indexRecord) database.Key {
	return database.Key{
		Owner:      rec.Owner,
		Flag:       flags.Flag(rec.Flag),
		ConfigHash: rec.ConfigHash,
		ParamsHash: rec.ParamsHash,
	}
}
