package badgerdb

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerframe/enerframe/internal/testutil"
	"github.com/enerframe/enerframe/pkg/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	config := &Config{InMemory: true}
	require.NoError(t, config.SetDefaults())

	store, err := New(log, config)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestNewAppliesDefaults(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	// A directly-constructed config must not land in an unprefixed namespace.
	config := &Config{InMemory: true}

	store, err := New(log, config)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	assert.Equal(t, "enerframe", config.Prefix)
	assert.True(t, config.SyncWrites)
}

func TestConfigValidate(t *testing.T) {
	config := &Config{}
	require.NoError(t, config.SetDefaults())

	assert.Equal(t, "enerframe", config.Prefix)
	assert.True(t, config.SyncWrites)
	require.ErrorIs(t, config.Validate(), ErrPathRequired)

	config.InMemory = true
	require.NoError(t, config.Validate())

	config = &Config{Path: t.TempDir()}
	require.NoError(t, config.SetDefaults())
	require.NoError(t, config.Validate())
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := database.Key{Owner: "pool", Flag: "buses", ConfigHash: "aa"}
	expected := testutil.NumericFrame(t, []string{"x", "y"}, []string{"p", "q"}, [][]float64{{1, 2}, {3, 4}})

	present, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, present)

	_, err = store.Get(ctx, key)
	require.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, store.Set(ctx, key, expected))

	present, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, present)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, expected.Equal(got))
}

func TestStoreRoundTripGeometry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := database.Key{Owner: "pool", Flag: "buses"}
	expected := testutil.GeometryFrame(t)

	require.NoError(t, store.Set(ctx, key, expected))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, expected.Equal(got))
}

func TestStoreSetReplacesAcrossSchemaChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := database.Key{Owner: "pool", Flag: "buses"}

	first := testutil.NumericFrame(t, []string{"x"}, []string{"p"}, [][]float64{{1}})
	second := testutil.NumericFrame(t, []string{"x"}, []string{"p", "q"}, [][]float64{{2, 3}})

	require.NoError(t, store.Set(ctx, key, first))
	require.NoError(t, store.Set(ctx, key, second))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, second.Equal(got))

	// the stale entry under the old schema namespace must be gone
	keys, err := store.ListKeys(ctx, database.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{key.String()}, keys)
}

func TestStoreListKeysAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	f := testutil.SingleCellFrame(t, 1)

	entries := []database.Key{
		{Owner: "pool", Flag: "buses"},
		{Owner: "pool", Flag: "lines"},
		{Owner: "study", Flag: "buses"},
	}

	for _, key := range entries {
		require.NoError(t, store.Set(ctx, key, f))
	}

	keys, err := store.ListKeys(ctx, database.Filter{})
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	keys, err = store.ListKeys(ctx, database.Filter{Owner: "pool"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pool_buses", "pool_lines"}, keys)

	keys, err = store.ListKeys(ctx, database.Filter{Flag: "buses"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pool_buses", "study_buses"}, keys)

	require.NoError(t, store.Delete(ctx, database.Filter{Owner: "pool"}))

	keys, err = store.ListKeys(ctx, database.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"study_buses"}, keys)

	present, err := store.Exists(ctx, database.Key{Owner: "study", Flag: "buses"})
	require.NoError(t, err)
	assert.True(t, present)
}

func TestStoreHonorsContextCancellation(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, database.Key{Owner: "pool", Flag: "buses"})
	require.ErrorIs(t, err, context.Canceled)

	err = store.Set(ctx, database.Key{Owner: "pool", Flag: "buses"}, testutil.SingleCellFrame(t, 1))
	require.ErrorIs(t, err, context.Canceled)
}
