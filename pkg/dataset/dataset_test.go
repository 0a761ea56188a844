package dataset

import (
	"context"
	"errors"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
	"github.com/enerframe/enerframe/pkg/observability"
)

// stubProducer produces fixed frames for a fixed flag vocabulary and counts
// invocations.
type stubProducer struct {
	flags  flags.Set
	frames map[flags.Flag]*frame.Frame
	err    error
	calls  int
}

func (p *stubProducer) ProducedFlags() flags.Set {
	return p.flags
}

func (p *stubProducer) Produce(_ context.Context, f flags.Flag, _ ResolvedConfig, _ Params) (*frame.Frame, error) {
	p.calls++

	if p.err != nil {
		return nil, p.err
	}

	return p.frames[f], nil
}

// memoryDB is an in-memory database.Database for pipeline tests.
type memoryDB struct {
	mu      sync.Mutex
	entries map[string]*frame.Frame
}

func newMemoryDB() *memoryDB {
	return &memoryDB{entries: make(map[string]*frame.Frame)}
}

func (m *memoryDB) Get(_ context.Context, key database.Key) (*frame.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.entries[key.String()]
	if !ok {
		return nil, database.ErrNotFound
	}

	return f, nil
}

func (m *memoryDB) Set(_ context.Context, key database.Key, f *frame.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key.String()] = f

	return nil
}

func (m *memoryDB) Exists(_ context.Context, key database.Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[key.String()]

	return ok, nil
}

func (m *memoryDB) Delete(_ context.Context, _ database.Filter) error {
	return nil
}

func (m *memoryDB) ListKeys(_ context.Context, _ database.Filter) ([]string, error) {
	return nil, nil
}

func (m *memoryDB) Close() error {
	return nil
}

func numericFrame(t *testing.T, rows, cols []string, values [][]float64) *frame.Frame {
	t.Helper()

	f, err := frame.FromNumbers("node", rows, cols, values)
	require.NoError(t, err)

	return f
}

func leaf(t *testing.T, name string, produced map[flags.Flag]*frame.Frame, opts ...Option) (*Base, *stubProducer) {
	t.Helper()

	accepted := flags.NewSet()
	for f := range produced {
		accepted.Add(f)
	}

	producer := &stubProducer{flags: accepted, frames: produced}

	return New(producer, append([]Option{WithName(name)}, opts...)...), producer
}

func TestBaseRejectsUnacceptedFlag(t *testing.T) {
	ds, _ := leaf(t, "plain", map[flags.Flag]*frame.Frame{
		"buses": numericFrame(t, []string{"x"}, []string{"p"}, [][]float64{{1}}),
	})

	assert.True(t, ds.Accepts("buses"))
	assert.False(t, ds.Accepts("lines"))

	_, err := ds.Fetch(context.Background(), "lines", nil)
	require.ErrorIs(t, err, ErrFlagNotAccepted)
}

func TestBaseFetchCachesResult(t *testing.T) {
	expected := numericFrame(t, []string{"x"}, []string{"p"}, [][]float64{{1}})
	db := newMemoryDB()

	ds, producer := leaf(t, "cached", map[flags.Flag]*frame.Frame{"buses": expected}, WithDatabase(db))

	first, err := ds.Fetch(context.Background(), "buses", nil)
	require.NoError(t, err)
	assert.True(t, expected.Equal(first))
	assert.Equal(t, 1, producer.calls)

	second, err := ds.Fetch(context.Background(), "buses", nil)
	require.NoError(t, err)
	assert.True(t, expected.Equal(second))

	// second fetch must come from the cache
	assert.Equal(t, 1, producer.calls)
}

func TestBaseFetchBypassesDisabledCache(t *testing.T) {
	expected := numericFrame(t, []string{"x"}, []string{"p"}, [][]float64{{1}})
	db := newMemoryDB()

	ds, producer := leaf(t, "uncached", map[flags.Flag]*frame.Frame{"buses": expected}, WithDatabase(db))

	opts := &FetchOptions{Config: &Config{UseDatabase: Bool(false)}}

	for i := 0; i < 2; i++ {
		_, err := ds.Fetch(context.Background(), "buses", opts)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, producer.calls)
	assert.Empty(t, db.entries)
}

func TestBaseFetchPostProcessing(t *testing.T) {
	index := frame.NewTimeAxis("snapshot", []string{
		"2024-01-02T00:00:00Z",
		"2024-01-01T00:00:00Z",
		"2024-01-01T00:00:00Z",
	})
	columns := frame.NewStringAxis("column", []string{"p"})

	raw, err := frame.New(index, columns, [][]frame.Cell{{frame.Number(2), frame.Number(1), frame.Number(99)}})
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()

	ds, _ := leaf(t, "messy", map[flags.Flag]*frame.Frame{"prices": raw}, WithLogger(logger))

	got, err := ds.Fetch(context.Background(), "prices", nil)
	require.NoError(t, err)

	// duplicates dropped (first occurrence kept), then sorted chronologically
	require.Equal(t, 2, got.Rows())
	assert.Equal(t, "2024-01-01T00:00:00Z", got.Index().Label(0).String())

	v, _ := got.At(0, 0).Number()
	assert.InDelta(t, 1.0, v, 0)

	found := false

	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			found = true
		}
	}

	assert.True(t, found, "duplicate labels should be warned about")
}

func TestBaseFetchFailureRecordsError(t *testing.T) {
	boom := errors.New("source unavailable")
	producer := &stubProducer{flags: flags.NewSet("buses"), err: boom}
	ds := New(producer, WithName("failing"))

	before := promtest.ToFloat64(observability.ErrorsTotal.WithLabelValues("dataset", "produce"))

	_, err := ds.Fetch(context.Background(), "buses", nil)
	require.ErrorIs(t, err, boom)

	after := promtest.ToFloat64(observability.ErrorsTotal.WithLabelValues("dataset", "produce"))
	assert.InDelta(t, 1.0, after-before, 0)
}

func TestBaseGeneratesFallbackName(t *testing.T) {
	producer := &stubProducer{flags: flags.NewSet("buses")}

	ds := New(producer, WithKind("interpreter"))

	assert.Contains(t, ds.Name(), "interpreter_")
}

func TestCacheKeyDeterminism(t *testing.T) {
	ds, _ := leaf(t, "keyed", map[flags.Flag]*frame.Frame{"buses": nil})

	params := Params{"from": "2024-01-01", "to": "2024-02-01"}

	a := ds.CacheKey("buses", nil, params)
	b := ds.CacheKey("buses", nil, Params{"to": "2024-02-01", "from": "2024-01-01"})

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "keyed", a.Owner)
	assert.Contains(t, a.String(), "keyed_buses_config_")
	assert.Contains(t, a.String(), "_params_")

	noParams := ds.CacheKey("buses", nil, nil)
	assert.NotContains(t, noParams.String(), "_params_")
}

func TestAcceptedFlagsContaining(t *testing.T) {
	ds, _ := leaf(t, "search", map[flags.Flag]*frame.Frame{
		"buses":         nil,
		"buses_t.price": nil,
		"lines":         nil,
	})

	matches := ds.AcceptedFlagsContaining("BUSES")

	require.Len(t, matches, 2)
	assert.Equal(t, flags.Flag("buses"), matches[0])
	assert.Equal(t, flags.Flag("buses_t.price"), matches[1])
}
