// Package chdb implements the cache backend contract on ClickHouse over its
// HTTP interface. Frames are stored row-wise in per-schema tables named
// {prefix}_{schemaHash}; a {prefix}_keys table is the explicit schema
// registry mapping each logical cache key to its schema namespace and axis
// metadata. Geometry cells are serialized as WKT.
package chdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/frame"
	"github.com/enerframe/enerframe/pkg/observability"
)

// Store is a ClickHouse-backed cache database.
type Store struct {
	log    logrus.FieldLogger
	config *Config
	client *client
}

// keyRow is one row of the {prefix}_keys registry table.
type keyRow struct {
	DatasetKey string `json:"dataset_key"`
	Owner      string `json:"owner"`
	Flag       string `json:"flag"`
	ConfigHash string `json:"config_hash"`
	ParamsHash string `json:"params_hash"`
	SchemaHash string `json:"schema_hash"`
	MetaJSON   string `json:"meta_json"`
}

// frameMeta is the axis metadata persisted per entry; row storage alone
// cannot reproduce level names, column order or cell kinds.
type frameMeta struct {
	IndexNames  []string     `json:"index_names"`
	TimeIndex   bool         `json:"time_index"`
	ColumnNames []string     `json:"column_names"`
	Columns     []columnMeta `json:"columns"`
}

type columnMeta struct {
	ID    string   `json:"id"`
	Label []string `json:"label"`
	Kind  string   `json:"kind"`
}

// New connects to ClickHouse, probes connectivity and creates the key
// registry table. An unreachable server fails here, not at first use.
func New(ctx context.Context, log logrus.FieldLogger, config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid clickhouse config: %w", err)
	}

	config.SetDefaults()

	s := &Store{
		log:    log.WithField("component", "database/clickhouse"),
		config: config,
	}
	s.client = newHTTPClient(s.log, config)

	if err := s.client.ping(ctx); err != nil {
		return nil, err
	}

	if err := s.createKeysTable(ctx); err != nil {
		return nil, err
	}

	s.log.Info("Connected to ClickHouse HTTP interface")

	return s, nil
}

// Get retrieves the frame stored under key.
func (s *Store) Get(ctx context.Context, key database.Key) (*frame.Frame, error) {
	started := time.Now()

	f, err := s.get(ctx, key)
	s.record("get", started, err)

	return f, err
}

func (s *Store) get(ctx context.Context, key database.Key) (*frame.Frame, error) {
	reg, err := s.lookupKey(ctx, key)
	if err != nil {
		return nil, err
	}

	var meta frameMeta
	if err := json.Unmarshal([]byte(reg.MetaJSON), &meta); err != nil {
		return nil, fmt.Errorf("decode frame metadata for %q: %w", key.String(), err)
	}

	rows, err := s.client.query(ctx, fmt.Sprintf(
		"SELECT * FROM %s WHERE dataset_key = '%s' ORDER BY pos",
		s.dataTable(reg.SchemaHash), escape(key.String())))
	if err != nil {
		return nil, err
	}

	return decodeFrame(meta, rows)
}

// Set stores the frame under key with delete-then-insert semantics.
func (s *Store) Set(ctx context.Context, key database.Key, f *frame.Frame) error {
	started := time.Now()

	err := s.set(ctx, key, f)
	s.record("set", started, err)

	return err
}

func (s *Store) set(ctx context.Context, key database.Key, f *frame.Frame) error {
	schemaHash := f.Schema().Hash()
	meta := buildMeta(f)

	if err := s.ensureDataTable(ctx, schemaHash, meta); err != nil {
		return err
	}

	// Drop any previous entry first; it may live under a different schema.
	if old, err := s.lookupKey(ctx, key); err == nil {
		if err := s.deleteEntry(ctx, old.SchemaHash, key.String()); err != nil {
			return err
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	rows, err := encodeRows(key.String(), meta, f)
	if err != nil {
		return err
	}

	if err := s.client.insertRows(ctx, s.dataTable(schemaHash), rows); err != nil {
		return err
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode frame metadata: %w", err)
	}

	reg, err := json.Marshal(keyRow{
		DatasetKey: key.String(),
		Owner:      key.Owner,
		Flag:       string(key.Flag),
		ConfigHash: key.ConfigHash,
		ParamsHash: key.ParamsHash,
		SchemaHash: schemaHash,
		MetaJSON:   string(metaJSON),
	})
	if err != nil {
		return fmt.Errorf("encode key row: %w", err)
	}

	return s.client.insertRows(ctx, s.keysTable(), [][]byte{reg})
}

// Exists reports whether an entry is present for key.
func (s *Store) Exists(ctx context.Context, key database.Key) (bool, error) {
	_, err := s.lookupKey(ctx, key)
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
	matches, err := s.matchingKeys(ctx, filter)
	if err != nil {
		return err
	}

	for _, reg := range matches {
		if err := s.deleteEntry(ctx, reg.SchemaHash, reg.DatasetKey); err != nil {
			return err
		}
	}

	return nil
}

// ListKeys returns the sorted string forms of all keys matching the filter.
func (s *Store) ListKeys(ctx context.Context, filter database.Filter) ([]string, error) {
	matches, err := s.matchingKeys(ctx, filter)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(matches))
	for _, reg := range matches {
		keys = append(keys, reg.DatasetKey)
	}

	sort.Strings(keys)

	return keys, nil
}

// Close releases the HTTP client's idle connections.
func (s *Store) Close() error {
	s.client.close()

	return nil
}

func (s *Store) createKeysTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		dataset_key String,
		owner String,
		flag String,
		config_hash String,
		params_hash String,
		schema_hash String,
		meta_json String
	) ENGINE = MergeTree ORDER BY dataset_key`, s.keysTable())

	if _, err := s.client.exec(ctx, ddl); err != nil {
		return fmt.Errorf("create key registry table: %w", err)
	}

	return nil
}

// ensureDataTable creates the per-schema table on first use and evolves an
// existing one by adding missing value columns.
func (s *Store) ensureDataTable(ctx context.Context, schemaHash string, meta frameMeta) error {
	cols := make([]string, 0, len(meta.Columns)+3)
	cols = append(cols, "dataset_key String", "pos UInt32", "row_label String")

	for _, cm := range meta.Columns {
		cols = append(cols, fmt.Sprintf("%s Nullable(String)", cm.ID))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree ORDER BY (dataset_key, pos)",
		s.dataTable(schemaHash), strings.Join(cols, ", "))

	if _, err := s.client.exec(ctx, ddl); err != nil {
		return fmt.Errorf("create data table for schema %s: %w", schemaHash, err)
	}

	existing, err := s.tableColumns(ctx, schemaHash)
	if err != nil {
		return err
	}

	for _, cm := range meta.Columns {
		if _, ok := existing[cm.ID]; ok {
			continue
		}

		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s Nullable(String)", s.dataTable(schemaHash), cm.ID)
		if _, err := s.client.exec(ctx, alter); err != nil {
			return fmt.Errorf("add column %s to schema %s: %w", cm.ID, schemaHash, err)
		}

		s.log.WithField("schema", schemaHash).WithField("column", cm.ID).Info("Added column to data table")
	}

	return nil
}

func (s *Store) tableColumns(ctx context.Context, schemaHash string) (map[string]struct{}, error) {
	rows, err := s.client.query(ctx, fmt.Sprintf(
		"SELECT name FROM system.columns WHERE database = '%s' AND table = '%s_%s'",
		escape(s.config.Database), escape(s.config.Prefix), escape(schemaHash)))
	if err != nil {
		return nil, fmt.Errorf("list columns for schema %s: %w", schemaHash, err)
	}

	out := make(map[string]struct{}, len(rows))

	for _, raw := range rows {
		var row struct {
			Name string `json:"name"`
		}

		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode column row: %w", err)
		}

		out[row.Name] = struct{}{}
	}

	return out, nil
}

func (s *Store) lookupKey(ctx context.Context, key database.Key) (keyRow, error) {
	rows, err := s.client.query(ctx, fmt.Sprintf(
		"SELECT * FROM %s WHERE dataset_key = '%s' LIMIT 1",
		s.keysTable(), escape(key.String())))
	if err != nil {
		return keyRow{}, err
	}

	if len(rows) == 0 {
		return keyRow{}, fmt.Errorf("%w: %q", database.ErrNotFound, key.String())
	}

	var reg keyRow
	if err := json.Unmarshal(rows[0], &reg); err != nil {
		return keyRow{}, fmt.Errorf("decode key row for %q: %w", key.String(), err)
	}

	return reg, nil
}

func (s *Store) matchingKeys(ctx context.Context, filter database.Filter) ([]keyRow, error) {
	clauses := make([]string, 0, 4)

	if filter.Owner != "" {
		clauses = append(clauses, fmt.Sprintf("owner = '%s'", escape(filter.Owner)))
	}

	if filter.Flag != "" {
		clauses = append(clauses, fmt.Sprintf("flag = '%s'", escape(string(filter.Flag))))
	}

	if filter.ConfigHash != "" {
		clauses = append(clauses, fmt.Sprintf("config_hash = '%s'", escape(filter.ConfigHash)))
	}

	if filter.ParamsHash != "" {
		clauses = append(clauses, fmt.Sprintf("params_hash = '%s'", escape(filter.ParamsHash)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.client.query(ctx, fmt.Sprintf("SELECT * FROM %s%s", s.keysTable(), where))
	if err != nil {
		return nil, err
	}

	out := make([]keyRow, 0, len(rows))

	for _, raw := range rows {
		var reg keyRow
		if err := json.Unmarshal(raw, &reg); err != nil {
			return nil, fmt.Errorf("decode key row: %w", err)
		}

		out = append(out, reg)
	}

	return out, nil
}

// deleteEntry removes one entry from its data table and the key registry.
// Mutations run synchronously so a following insert observes the deletion.
func (s *Store) deleteEntry(ctx context.Context, schemaHash, datasetKey string) error {
	del := fmt.Sprintf("ALTER TABLE %s DELETE WHERE dataset_key = '%s' SETTINGS mutations_sync = 1",
		s.dataTable(schemaHash), escape(datasetKey))
	if _, err := s.client.exec(ctx, del); err != nil {
		return fmt.Errorf("delete entry %q from schema %s: %w", datasetKey, schemaHash, err)
	}

	del = fmt.Sprintf("ALTER TABLE %s DELETE WHERE dataset_key = '%s' SETTINGS mutations_sync = 1",
		s.keysTable(), escape(datasetKey))
	if _, err := s.client.exec(ctx, del); err != nil {
		return fmt.Errorf("delete key row %q: %w", datasetKey, err)
	}

	return nil
}

func (s *Store) keysTable() string {
	return fmt.Sprintf("%s.%s_keys", s.config.Database, s.config.Prefix)
}

func (s *Store) dataTable(schemaHash string) string {
	return fmt.Sprintf("%s.%s_%s", s.config.Database, s.config.Prefix, schemaHash)
}

func (s *Store) record(operation string, started time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		status = "error"
	}

	observability.RecordDatabaseOperation("clickhouse", operation, status, time.Since(started))
}

func buildMeta(f *frame.Frame) frameMeta {
	meta := frameMeta{
		IndexNames:  f.Index().Names(),
		TimeIndex:   f.Index().IsTime(),
		ColumnNames: f.Columns().Names(),
		Columns:     make([]columnMeta, f.Cols()),
	}

	for c := 0; c < f.Cols(); c++ {
		label := f.Columns().Label(c)
		meta.Columns[c] = columnMeta{
			ID:    columnID(label.String()),
			Label: append([]string(nil), label...),
			Kind:  columnKindOf(f, c),
		}
	}

	return meta
}

func columnKindOf(f *frame.Frame, c int) string {
	for r := 0; r < f.Rows(); r++ {
		if k := f.At(r, c).Kind(); k != frame.KindNull {
			return k.String()
		}
	}

	return frame.KindNull.String()
}

// columnID derives a stable physical column name from a label; labels carry
// arbitrary characters that ClickHouse identifiers cannot.
func columnID(label string) string {
	return fmt.Sprintf("col_%016x", xxhash.Sum64String(label))
}

func encodeRows(datasetKey string, meta frameMeta, f *frame.Frame) ([][]byte, error) {
	rows := make([][]byte, 0, f.Rows())

	for r := 0; r < f.Rows(); r++ {
		labelJSON, err := json.Marshal([]string(f.Index().Label(r)))
		if err != nil {
			return nil, fmt.Errorf("encode row label: %w", err)
		}

		row := make(map[string]any, len(meta.Columns)+3)
		row["dataset_key"] = datasetKey
		row["pos"] = r
		row["row_label"] = string(labelJSON)

		for c, cm := range meta.Columns {
			if value, ok := f.At(r, c).Encode(); ok {
				row[cm.ID] = value
			} else {
				row[cm.ID] = nil
			}
		}

		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", r, err)
		}

		rows = append(rows, data)
	}

	return rows, nil
}

func decodeFrame(meta frameMeta, rows []json.RawMessage) (*frame.Frame, error) {
	indexLabels := make([]frame.Label, 0, len(rows))
	cells := make([][]frame.Cell, len(meta.Columns))

	for c := range cells {
		cells[c] = make([]frame.Cell, 0, len(rows))
	}

	for i, raw := range rows {
		var row map[string]any
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode data row %d: %w", i, err)
		}

		labelField, ok := row["row_label"].(string)
		if !ok {
			return nil, fmt.Errorf("data row %d has no row label", i)
		}

		var parts []string
		if err := json.Unmarshal([]byte(labelField), &parts); err != nil {
			return nil, fmt.Errorf("decode row label %d: %w", i, err)
		}

		indexLabels = append(indexLabels, frame.Label(parts))

		for c, cm := range meta.Columns {
			value, ok := row[cm.ID].(string)
			if !ok {
				cells[c] = append(cells[c], frame.Null())
				continue
			}

			cell, err := frame.DecodeCell(frame.KindFromString(cm.Kind), value)
			if err != nil {
				return nil, fmt.Errorf("decode cell at row %d column %s: %w", i, cm.ID, err)
			}

			cells[c] = append(cells[c], cell)
		}
	}

	index, err := frame.NewAxis(meta.IndexNames, indexLabels)
	if err != nil {
		return nil, fmt.Errorf("rebuild index axis: %w", err)
	}

	index.SetTime(meta.TimeIndex)

	columnLabels := make([]frame.Label, len(meta.Columns))
	for c, cm := range meta.Columns {
		columnLabels[c] = frame.Label(cm.Label)
	}

	columns, err := frame.NewAxis(meta.ColumnNames, columnLabels)
	if err != nil {
		return nil, fmt.Errorf("rebuild column axis: %w", err)
	}

	return frame.New(index, columns, cells)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return strings.ReplaceAll(s, `'`, `\'`)
}
