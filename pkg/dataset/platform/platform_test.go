package platform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerframe/enerframe/pkg/dataset"
	"github.com/enerframe/enerframe/pkg/dataset/platform"
	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/frame"
)

// fixedProducer serves canned frames for a fixed flag vocabulary.
type fixedProducer struct {
	frames map[flags.Flag]*frame.Frame
}

func (p *fixedProducer) ProducedFlags() flags.Set {
	out := flags.NewSet()
	for f := range p.frames {
		out.Add(f)
	}

	return out
}

func (p *fixedProducer) Produce(_ context.Context, f flags.Flag, _ dataset.ResolvedConfig, _ dataset.Params) (*frame.Frame, error) {
	return p.frames[f], nil
}

func factoryFor(frames map[flags.Flag]*frame.Frame) platform.Factory {
	return func(name string, env platform.Env) (dataset.Dataset, error) {
		return dataset.New(&fixedProducer{frames: frames}, env.DatasetOptions(name)...), nil
	}
}

func singleCell(t *testing.T, value float64) *frame.Frame {
	t.Helper()

	f, err := frame.FromNumbers("node", []string{"x"}, []string{"v"}, [][]float64{{value}})
	require.NoError(t, err)

	return f
}

func TestRegistryRegister(t *testing.T) {
	registry := platform.NewRegistry()

	handle, err := registry.Register("buses", factoryFor(nil))
	require.NoError(t, err)
	assert.Equal(t, "buses", handle.Name())

	_, err = registry.Register("buses", factoryFor(nil))
	require.ErrorIs(t, err, platform.ErrDuplicateInterpreter)

	_, err = registry.Lookup("missing")
	require.ErrorIs(t, err, platform.ErrUnknownInterpreter)

	_, err = registry.Register("buses_t.price", factoryFor(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"buses", "buses_t.price"}, registry.Names())
	assert.Equal(t, 2, registry.Len())
}

func TestNewBuildsOneChildPerInterpreter(t *testing.T) {
	busFrame := singleCell(t, 1)
	priceFrame := singleCell(t, 2)

	registry := platform.NewRegistry()

	_, err := registry.Register("buses", factoryFor(map[flags.Flag]*frame.Frame{"buses": busFrame}))
	require.NoError(t, err)

	_, err = registry.Register("prices", factoryFor(map[flags.Flag]*frame.Frame{"buses_t.price": priceFrame}))
	require.NoError(t, err)

	ds, err := platform.New("results", registry, platform.Env{})
	require.NoError(t, err)

	assert.Equal(t, "results", ds.Name())
	assert.Equal(t, 2, ds.Len())

	got, err := ds.Fetch(context.Background(), "buses", nil)
	require.NoError(t, err)
	assert.True(t, busFrame.Equal(got))

	got, err = ds.Fetch(context.Background(), "buses_t.price", nil)
	require.NoError(t, err)
	assert.True(t, priceFrame.Equal(got))

	_, err = ds.Fetch(context.Background(), "generators", nil)
	require.ErrorIs(t, err, dataset.ErrFlagNotAccepted)
}

func TestNewRequiresInterpreters(t *testing.T) {
	_, err := platform.New("results", platform.NewRegistry(), platform.Env{})
	require.ErrorIs(t, err, platform.ErrNoInterpreters)

	_, err = platform.New("results", nil, platform.Env{})
	require.ErrorIs(t, err, platform.ErrNoInterpreters)
}

func TestNewFailsOnFactoryError(t *testing.T) {
	registry := platform.NewRegistry()

	_, err := registry.Register("broken", func(string, platform.Env) (dataset.Dataset, error) {
		return nil, assert.AnError
	})
	require.NoError(t, err)

	_, err = platform.New("results", registry, platform.Env{})
	require.ErrorIs(t, err, assert.AnError)
}

func TestInterpreterLookup(t *testing.T) {
	registry := platform.NewRegistry()

	_, err := registry.Register("buses", factoryFor(map[flags.Flag]*frame.Frame{"buses": nil}))
	require.NoError(t, err)

	ds, err := platform.New("results", registry, platform.Env{})
	require.NoError(t, err)

	interp, err := ds.Interpreter("buses")
	require.NoError(t, err)
	assert.Equal(t, "buses", interp.Name())

	_, err = ds.Interpreter("lines")
	require.ErrorIs(t, err, platform.ErrUnknownInterpreter)
}

func TestEnvPropagatesToInterpreters(t *testing.T) {
	registry := platform.NewRegistry()

	_, err := registry.Register("buses", factoryFor(map[flags.Flag]*frame.Frame{"buses": nil}))
	require.NoError(t, err)

	env := platform.Env{
		Attributes: map[string]string{"scenario": "base"},
		Vars:       map[string]string{"path": "/tmp/run"},
	}

	ds, err := platform.New("results", registry, env)
	require.NoError(t, err)

	interp, err := ds.Interpreter("buses")
	require.NoError(t, err)

	assert.Equal(t, "base", interp.Attributes()["scenario"])
	assert.Equal(t, "base", ds.Attributes()["scenario"])
}
