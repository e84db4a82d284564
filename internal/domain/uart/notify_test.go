package uart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBridgeFiresRegisteredTarget(t *testing.T) {
	bridge := NewNotificationBridge()

	fired := 0
	bridge.Register(func() { fired++ })

	bridge.CharArrived()
	bridge.CharArrived()

	assert.Equal(t, 2, fired)
}

func TestBridgeDropsWithoutTarget(t *testing.T) {
	bridge := NewNotificationBridge()

	// no target registered: arrivals are dropped, not queued
	bridge.CharArrived()

	fired := 0
	bridge.Register(func() { fired++ })
	assert.Equal(t, 0, fired, "past arrivals must not be replayed without an avail predicate")
}

func TestBridgeCatchUpOnRegister(t *testing.T) {
	t.Run("data already waiting", func(t *testing.T) {
		bridge := NewNotificationBridge()
		bridge.Bind(func() bool { return true })

		fired := 0
		bridge.Register(func() { fired++ })

		assert.Equal(t, 1, fired, "register must fire synchronously when data is waiting")
	})

	t.Run("no data waiting", func(t *testing.T) {
		bridge := NewNotificationBridge()
		bridge.Bind(func() bool { return false })

		fired := 0
		bridge.Register(func() { fired++ })

		assert.Equal(t, 0, fired)
	})
}

func TestBridgeDeregister(t *testing.T) {
	bridge := NewNotificationBridge()

	fired := 0
	bridge.Register(func() { fired++ })
	bridge.Register(nil)

	bridge.CharArrived()
	assert.Equal(t, 0, fired)
}

func TestBridgeRetargeting(t *testing.T) {
	bridge := NewNotificationBridge()

	first, second := 0, 0
	bridge.Register(func() { first++ })
	bridge.Register(func() { second++ })

	bridge.CharArrived()

	assert.Equal(t, 0, first, "replaced target must not fire")
	assert.Equal(t, 1, second)
}
