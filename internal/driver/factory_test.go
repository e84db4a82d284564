package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewLoopback()))
	return NewFactory(registry, []LineSpec{
		{Index: 0, Backend: "loopback"},
		{Index: 1, Backend: "loopback", Device: "echo"},
		{Index: 7, Backend: "missing"},
	})
}

func TestFactoryCreate(t *testing.T) {
	t.Run("opens a configured line", func(t *testing.T) {
		f := newTestFactory(t)

		drv, err := f.Create(0, 9600, nil)
		require.NoError(t, err)
		require.NotNil(t, drv)
		assert.Equal(t, 9600, drv.(*LoopbackLine).Baud())
	})

	t.Run("unknown index", func(t *testing.T) {
		f := newTestFactory(t)

		_, err := f.Create(42, 0, nil)
		assert.ErrorIs(t, err, ErrNoSuchLine)
	})

	t.Run("unknown backend", func(t *testing.T) {
		f := newTestFactory(t)

		_, err := f.Create(7, 0, nil)
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})
}

func TestFactoryExclusiveOwnership(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.Create(0, 0, nil)
	require.NoError(t, err)

	_, err = f.Create(0, 0, nil)
	assert.ErrorIs(t, err, ErrLineBusy, "an in-use index must be refused")

	// a different index is unaffected
	_, err = f.Create(1, 0, nil)
	assert.NoError(t, err)

	f.Release(0)
	_, err = f.Create(0, 0, nil)
	assert.NoError(t, err, "release must make the index acquirable again")
}

func TestFactoryReleaseUnusedIndex(t *testing.T) {
	f := newTestFactory(t)

	// no panic, no state damage
	f.Release(5)

	_, err := f.Create(0, 0, nil)
	assert.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(NewLoopback()))

	backend, ok := registry.Get("loopback")
	assert.True(t, ok)
	assert.Equal(t, "loopback", backend.ID())

	_, ok = registry.Get("serial")
	assert.False(t, ok)

	assert.Contains(t, registry.List(), "loopback")
}
