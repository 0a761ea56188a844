// Package mongodb implements the cache backend contract on MongoDB. Frames
// are stored one document per row in per-schema collections named
// {prefix}_{schemaHash}; a {prefix}_keys collection is the explicit schema
// registry holding each entry's key components and axis metadata. Geometry
// cells are stored as embedded GeoJSON documents.
package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/frame"
	"github.com/enerframe/enerframe/pkg/observability"
)

// Store is a MongoDB-backed cache database.
type Store struct {
	log    logrus.FieldLogger
	config *Config
	client *mongo.Client
	db     *mongo.Database
}

// keyDoc is the schema registry document, one per logical cache key.
type keyDoc struct {
	DatasetKey string  `bson:"_id"`
	Owner      string  `bson:"owner"`
	Flag       string  `bson:"flag"`
	ConfigHash string  `bson:"config_hash,omitempty"`
	ParamsHash string  `bson:"params_hash,omitempty"`
	SchemaHash string  `bson:"schema_hash"`
	Meta       metaDoc `bson:"meta"`
}

// metaDoc is the axis metadata persisted per entry.
type metaDoc struct {
	IndexNames  []string    `bson:"index_names"`
	TimeIndex   bool        `bson:"time_index"`
	ColumnNames []string    `bson:"column_names"`
	Columns     []columnDoc `bson:"columns"`
}

type columnDoc struct {
	ID    string   `bson:"id"`
	Label []string `bson:"label"`
	Kind  string   `bson:"kind"`
}

// rowDoc is one frame row. Cells are keyed by a derived column ID because
// column labels may carry characters MongoDB field names cannot.
type rowDoc struct {
	DatasetKey string             `bson:"dataset_key"`
	Pos        int                `bson:"pos"`
	RowLabel   []string           `bson:"row_label"`
	Cells      map[string]cellDoc `bson:"cells"`
}

type cellDoc struct {
	Kind string         `bson:"kind"`
	Num  *float64       `bson:"num,omitempty"`
	Txt  *string        `bson:"txt,omitempty"`
	Geo  map[string]any `bson:"geo,omitempty"`
}

// New connects to MongoDB and pings it; an unreachable server fails here, not
// at first use.
func New(ctx context.Context, log logrus.FieldLogger, config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb config: %w", err)
	}

	config.SetDefaults()

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb at %s: %w", config.URI, err)
	}

	return &Store{
		log:    log.WithField("component", "database/mongodb"),
		config: config,
		client: client,
		db:     client.Database(config.Database),
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
	reg, err := s.lookupKey(ctx, key)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "pos", Value: 1}})

	cursor, err := s.dataCollection(reg.SchemaHash).Find(ctx,
		bson.M{"dataset_key": key.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("find rows for %q: %w", key.String(), err)
	}

	var rows []rowDoc
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode rows for %q: %w", key.String(), err)
	}

	return decodeFrame(reg.Meta, rows)
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

	// Drop any previous entry first; it may live under a different schema.
	if old, err := s.lookupKey(ctx, key); err == nil {
		if _, err := s.dataCollection(old.SchemaHash).DeleteMany(ctx,
			bson.M{"dataset_key": key.String()}); err != nil {
			return fmt.Errorf("delete stale rows for %q: %w", key.String(), err)
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	rows, err := encodeRows(key.String(), meta, f)
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		if _, err := s.dataCollection(schemaHash).InsertMany(ctx, rows); err != nil {
			return fmt.Errorf("insert rows for %q: %w", key.String(), err)
		}
	}

	reg := keyDoc{
		DatasetKey: key.String(),
		Owner:      key.Owner,
		Flag:       string(key.Flag),
		ConfigHash: key.ConfigHash,
		ParamsHash: key.ParamsHash,
		SchemaHash: schemaHash,
		Meta:       meta,
	}

	upsert := options.Replace().SetUpsert(true)
	if _, err := s.keysCollection().ReplaceOne(ctx,
		bson.M{"_id": key.String()}, reg, upsert); err != nil {
		return fmt.Errorf("upsert key document for %q: %w", key.String(), err)
	}

	return nil
}

// Exists reports whether an entry is present for key.
func (s *Store) Exists(ctx context.Context, key database.Key) (bool, error) {
	n, err := s.keysCollection().CountDocuments(ctx, bson.M{"_id": key.String()})
	if err != nil {
		return false, fmt.Errorf("count key documents for %q: %w", key.String(), err)
	}

	return n > 0, nil
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
		if _, err := s.dataCollection(reg.SchemaHash).DeleteMany(ctx,
			bson.M{"dataset_key": reg.DatasetKey}); err != nil {
			return fmt.Errorf("delete rows for %q: %w", reg.DatasetKey, err)
		}

		if _, err := s.keysCollection().DeleteOne(ctx,
			bson.M{"_id": reg.DatasetKey}); err != nil {
			return fmt.Errorf("delete key document for %q: %w", reg.DatasetKey, err)
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

// Close disconnects from the server.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ConnectTimeout)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect from mongodb: %w", err)
	}

	return nil
}

func (s *Store) lookupKey(ctx context.Context, key database.Key) (keyDoc, error) {
	var reg keyDoc

	err := s.keysCollection().FindOne(ctx, bson.M{"_id": key.String()}).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return keyDoc{}, fmt.Errorf("%w: %q", database.ErrNotFound, key.String())
	}

	if err != nil {
		return keyDoc{}, fmt.Errorf("find key document for %q: %w", key.String(), err)
	}

	return reg, nil
}

func (s *Store) matchingKeys(ctx context.Context, filter database.Filter) ([]keyDoc, error) {
	query := bson.M{}

	if filter.Owner != "" {
		query["owner"] = filter.Owner
	}

	if filter.Flag != "" {
		query["flag"] = string(filter.Flag)
	}

	if filter.ConfigHash != "" {
		query["config_hash"] = filter.ConfigHash
	}

	if filter.ParamsHash != "" {
		query["params_hash"] = filter.ParamsHash
	}

	cursor, err := s.keysCollection().Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find key documents: %w", err)
	}

	var matches []keyDoc
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("decode key documents: %w", err)
	}

	return matches, nil
}

func (s *Store) keysCollection() *mongo.Collection {
	return s.db.Collection(s.config.Prefix + "_keys")
}

func (s *Store) dataCollection(schemaHash string) *mongo.Collection {
	return s.db.Collection(fmt.Sprintf("%s_%s", s.config.Prefix, schemaHash))
}

func (s *Store) record(operation string, started time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		status = "error"
	}

	observability.RecordDatabaseOperation("mongodb", operation, status, time.Since(started))
}

func buildMeta(f *frame.Frame) metaDoc {
	meta := metaDoc{
		IndexNames:  f.Index().Names(),
		TimeIndex:   f.Index().IsTime(),
		ColumnNames: f.Columns().Names(),
		Columns:     make([]columnDoc, f.Cols()),
	}

	for c := 0; c < f.Cols(); c++ {
		label := f.Columns().Label(c)
		meta.Columns[c] = columnDoc{
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

func columnID(label string) string {
	return fmt.Sprintf("col_%016x", xxhash.Sum64String(label))
}

func encodeRows(datasetKey string, meta metaDoc, f *frame.Frame) ([]any, error) {
	rows := make([]any, 0, f.Rows())

	for r := 0; r < f.Rows(); r++ {
		row := rowDoc{
			DatasetKey: datasetKey,
			Pos:        r,
			RowLabel:   append([]string(nil), f.Index().Label(r)...),
			Cells:      make(map[string]cellDoc, f.Cols()),
		}

		for c, cm := range meta.Columns {
			cell, err := encodeCell(f.At(r, c))
			if err != nil {
				return nil, fmt.Errorf("encode cell at row %d column %s: %w", r, cm.ID, err)
			}

			row.Cells[cm.ID] = cell
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func encodeCell(cell frame.Cell) (cellDoc, error) {
	out := cellDoc{Kind: cell.Kind().String()}

	switch cell.Kind() {
	case frame.KindNumber:
		v, _ := cell.Number()
		out.Num = &v
	case frame.KindText:
		s, _ := cell.Text()
		out.Txt = &s
	case frame.KindGeometry:
		g, _ := cell.Geometry()

		data, err := json.Marshal(geojson.NewGeometry(g))
		if err != nil {
			return cellDoc{}, fmt.Errorf("encode geometry: %w", err)
		}

		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return cellDoc{}, fmt.Errorf("rebuild geometry document: %w", err)
		}

		out.Geo = doc
	}

	return out, nil
}

func decodeCell(doc cellDoc) (frame.Cell, error) {
	switch frame.KindFromString(doc.Kind) {
	case frame.KindNumber:
		if doc.Num == nil {
			return frame.Null(), errors.New("numeric cell without value")
		}

		return frame.Number(*doc.Num), nil
	case frame.KindText:
		if doc.Txt == nil {
			return frame.Null(), errors.New("text cell without value")
		}

		return frame.Text(*doc.Txt), nil
	case frame.KindGeometry:
		if doc.Geo == nil {
			return frame.Null(), errors.New("geometry cell without value")
		}

		data, err := json.Marshal(doc.Geo)
		if err != nil {
			return frame.Null(), fmt.Errorf("encode geometry document: %w", err)
		}

		geom, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return frame.Null(), fmt.Errorf("decode geometry: %w", err)
		}

		return frame.Geometry(geom.Geometry()), nil
	default:
		return frame.Null(), nil
	}
}

func decodeFrame(meta metaDoc, rows []rowDoc) (*frame.Frame, error) {
	indexLabels := make([]frame.Label, 0, len(rows))
	cells := make([][]frame.Cell, len(meta.Columns))

	for c := range cells {
		cells[c] = make([]frame.Cell, 0, len(rows))
	}

	for i, row := range rows {
		indexLabels = append(indexLabels, frame.Label(row.RowLabel))

		for c, cm := range meta.Columns {
			doc, ok := row.Cells[cm.ID]
			if !ok {
				cells[c] = append(cells[c], frame.Null())
				continue
			}

			cell, err := decodeCell(doc)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, cm.ID, err)
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
