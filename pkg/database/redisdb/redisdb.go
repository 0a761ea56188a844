// Package redisdb implements the cache backend contract on Redis. Each entry
// is one JSON envelope stored under {prefix}:data:{schemaHash}:{key}; an index
// key per logical cache key points at the schema namespace so lookups stay a
// single round-trip and listing is a SCAN over the index.
package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
	"github.com/enerframe/enerframe/pkg/observability"
)

// Store is a Redis-backed cache database.
type Store struct {
	log    logrus.FieldLogger
	config *Config
	client *redis.Client
}

type indexRecord struct {
	Schema     string `json:"schema"`
	Owner      string `json:"owner"`
	Flag       string `json:"flag"`
	ConfigHash string `json:"config_hash,omitempty"`
	ParamsHash string `json:"params_hash,omitempty"`
}

// New connects to Redis and pings it; an unreachable server fails here, not
// at first use.
func New(ctx context.Context, log logrus.FieldLogger, config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", config.Address, err)
	}

	return &Store{
		log:    log.WithField("component", "database/redis"),
		config: config,
		client: client,
	}, nil
}

// NewWithClient wraps an existing client; tests use it with miniredis.
func NewWithClient(log logrus.FieldLogger, config *Config, client *redis.Client) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	return &Store{
		log:    log.WithField("component", "database/redis"),
		config: config,
		client: client,
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
	rec, err := s.lookupIndex(ctx, key)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.dataKey(rec.Schema, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %q", database.ErrNotFound, key.String())
		}

		return nil, fmt.Errorf("redis get for %q: %w", key.String(), err)
	}

	entry, err := database.DecodeEntry(data)
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
	data, err := database.NewEntry(key, f).Encode()
	if err != nil {
		return err
	}

	rec := indexRecord{
		Schema:     f.Schema().Hash(),
		Owner:      key.Owner,
		Flag:       string(key.Flag),
		ConfigHash: key.ConfigHash,
		ParamsHash: key.ParamsHash,
	}

	recData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode index record: %w", err)
	}

	// Delete-then-insert: the previous entry may live under a different
	// schema namespace.
	if old, err := s.lookupIndex(ctx, key); err == nil {
		if err := s.client.Del(ctx, s.dataKey(old.Schema, key)).Err(); err != nil {
			return fmt.Errorf("redis delete stale entry for %q: %w", key.String(), err)
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(rec.Schema, key), data, 0)
	pipe.Set(ctx, s.indexKey(key), recData, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set for %q: %w", key.String(), err)
	}

	return nil
}

// Exists reports whether an entry is present for key.
func (s *Store) Exists(ctx context.Context, key database.Key) (bool, error) {
	n, err := s.client.Exists(ctx, s.indexKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists for %q: %w", key.String(), err)
	}

	return n > 0, nil
}

// Delete removes every entry matching the filter.
func (s *Store) Delete(ctx context.Context, filter database.Filter) error {
	started := time.Now()

	err := s.scanIndex(ctx, func(indexKey string, rec indexRecord) error {
		key := recordKey(rec)
		if !filter.Matches(key) {
			return nil
		}

		return s.client.Del(ctx, s.dataKey(rec.Schema, key), indexKey).Err()
	})
	s.record("delete", started, err)

	return err
}

// ListKeys returns the sorted string forms of all keys matching the filter.
func (s *Store) ListKeys(ctx context.Context, filter database.Filter) ([]string, error) {
	keys := make([]string, 0)

	err := s.scanIndex(ctx, func(_ string, rec indexRecord) error {
		key := recordKey(rec)
		if filter.Matches(key) {
			keys = append(keys, key.String())
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)

	return keys, nil
}

// Close closes the client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) lookupIndex(ctx context.Context, key database.Key) (indexRecord, error) {
	data, err := s.client.Get(ctx, s.indexKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return indexRecord{}, fmt.Errorf("%w: %q", database.ErrNotFound, key.String())
		}

		return indexRecord{}, fmt.Errorf("redis index lookup for %q: %w", key.String(), err)
	}

	var rec indexRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return indexRecord{}, fmt.Errorf("decode index record for %q: %w", key.String(), err)
	}

	return rec, nil
}

func (s *Store) scanIndex(ctx context.Context, fn func(indexKey string, rec indexRecord) error) error {
	pattern := s.config.PrefixKey("key:*")

	var cursor uint64

	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}

		for _, indexKey := range batch {
			data, err := s.client.Get(ctx, indexKey).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				return fmt.Errorf("redis get index %q: %w", indexKey, err)
			}

			var rec indexRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode index record %q: %w", indexKey, err)
			}

			if err := fn(indexKey, rec); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *Store) indexKey(key database.Key) string {
	return s.config.PrefixKey("key:" + url.PathEscape(key.String()))
}

func (s *Store) dataKey(schema string, key database.Key) string {
	return s.config.PrefixKey(fmt.Sprintf("data:%s:%s", schema, url.PathEscape(key.String())))
}

func (s *Store) record(operation string, started time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		status = "error"
	}

	observability.RecordDatabaseOperation("redis", operation, status, time.Since(started))
}

func recordKey(rec indexRecord) database.Key {
	return database.Key{
		Owner:      rec.Owner,
		Flag:       flags.Flag(rec.Flag),
		ConfigHash: rec.ConfigHash,
		ParamsHash: rec.ParamsHash,
	}
}
