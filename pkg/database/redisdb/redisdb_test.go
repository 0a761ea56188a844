package redisdb

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

	mr, client := testutil.NewMiniredisClient(t)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	store, err := NewWithClient(log, &Config{Address: mr.Addr(), Prefix: "test"}, client)
	require.NoError(t, err)

	return store
}

func TestConfigValidate(t *testing.T) {
	config := &Config{}
	require.ErrorIs(t, config.Validate(), ErrAddressRequired)

	config = &Config{Address: "localhost:6379"}
	require.NoError(t, config.Validate())
	assert.Equal(t, "enerframe", config.Prefix)
	assert.Equal(t, "enerframe:key:abc", config.PrefixKey("key:abc"))
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := database.Key{Owner: "pool", Flag: "buses", ConfigHash: "aa", ParamsHash: "bb"}
	expected := testutil.TimeFrame(t,
		[]string{"2024-01-01T00:00:00Z", "2024-01-01T01:00:00Z"},
		[]string{"p", "q"},
		[][]float64{{1, 2}, {3, 4}})

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
	assert.True(t, got.Index().IsTime())
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

	require.NoError(t, store.Delete(ctx, database.Filter{Flag: "buses"}))

	keys, err = store.ListKeys(ctx, database.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"pool_lines"}, keys)
}

func TestStoresAreIsolatedByPrefix(t *testing.T) {
	mr, client := testutil.NewMiniredisClient(t)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	a, err := NewWithClient(log, &Config{Address: mr.Addr(), Prefix: "a"}, client)
	require.NoError(t, err)

	b, err := NewWithClient(log, &Config{Address: mr.Addr(), Prefix: "b"}, client)
	require.NoError(t, err)

	ctx := context.Background()
	key := database.Key{Owner: "pool", Flag: "buses"}

	require.NoError(t, a.Set(ctx, key, testutil.SingleCellFrame(t, 1)))

	present, err := b.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, present)

	keys, err := b.ListKeys(ctx, database.Filter{})
	require.NoError(t, err)
	assert.Empty(t, keys)
}
