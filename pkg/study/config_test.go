package study

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerframe/enerframe/pkg/dataset"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "study", config.Name)
	assert.Equal(t, "info", config.Logging)
	assert.Equal(t, BackendNone, config.Database.Backend)
}

func TestLoadParsesBackendSection(t *testing.T) {
	path := writeConfig(t, `
name: grid-expansion
logging: debug
metricsAddr: ":9090"
attributes:
  scenario: base
database:
  backend: badger
  badger:
    inMemory: true
defaults:
  merge:
    useDatabase: false
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "grid-expansion", config.Name)
	assert.Equal(t, "debug", config.Logging)
	assert.Equal(t, ":9090", config.MetricsAddr)
	assert.Equal(t, "base", config.Attributes["scenario"])
	assert.Equal(t, BackendBadger, config.Database.Backend)
	assert.True(t, config.Database.Badger.InMemory)

	resolved := config.Registry().Effective("merge", nil, nil)
	assert.False(t, resolved.UseDatabase)
	assert.True(t, resolved.AutoSortTimeIndex)

	other := config.Registry().Effective("dataset", nil, nil)
	assert.True(t, other.UseDatabase)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
database:
  backend: cassandra
`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestLoadValidatesSelectedBackend(t *testing.T) {
	path := writeConfig(t, `
database:
  backend: redis
`)

	_, err := Load(path)
	require.Error(t, err, "redis without an address must not validate")
}

func TestOpenDatabaseNone(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	db, err := OpenDatabase(context.Background(), logrus.New(), config)
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestOpenDatabaseBadger(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	config.Database.Backend = BackendBadger
	config.Database.Badger.InMemory = true
	config.Database.Badger.Prefix = "test"

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	db, err := OpenDatabase(context.Background(), log, config)
	require.NoError(t, err)
	require.NotNil(t, db)

	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
}

func TestRegistryIsUsableByDatasets(t *testing.T) {
	config := &Config{Defaults: map[string]dataset.Config{
		"platform": {AutoSortTimeIndex: dataset.Bool(false)},
	}}

	resolved := config.Registry().Effective("platform", nil, nil)
	assert.False(t, resolved.AutoSortTimeIndex)
	assert.True(t, resolved.UseDatabase)
}
