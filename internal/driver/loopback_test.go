package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLoopback(t *testing.T, cfg OpenConfig) *LoopbackLine {
	t.Helper()
	drv, err := NewLoopback().Open(cfg)
	require.NoError(t, err)
	return drv.(*LoopbackLine)
}

func TestLoopbackReceive(t *testing.T) {
	line := openLoopback(t, OpenConfig{})

	assert.False(t, line.CharAvail())

	line.InjectString("hi")

	require.True(t, line.CharAvail())
	assert.Equal(t, byte('h'), line.GetChar())
	assert.Equal(t, byte('i'), line.GetChar())
	assert.False(t, line.CharAvail())
}

func TestLoopbackTransmit(t *testing.T) {
	line := openLoopback(t, OpenConfig{})

	line.PutChar('o')
	line.PutChar('k')

	assert.Equal(t, []byte("ok"), line.Transmitted())

	line.ResetTransmitted()
	assert.Empty(t, line.Transmitted())
}

func TestLoopbackArrivalCallback(t *testing.T) {
	fired := 0
	line := openLoopback(t, OpenConfig{Callback: func() { fired++ }})

	line.Inject([]byte("chunk"))

	assert.Equal(t, 1, fired, "one wake-up per arrival chunk, not per byte")
}

func TestLoopbackEcho(t *testing.T) {
	line := openLoopback(t, OpenConfig{Device: "echo"})

	line.PutChar('x')

	require.True(t, line.CharAvail(), "echo line reflects transmitted bytes")
	assert.Equal(t, byte('x'), line.GetChar())
}

func TestLoopbackOverflowDrops(t *testing.T) {
	line := openLoopback(t, OpenConfig{})

	chunk := make([]byte, 4096)
	for written := 0; written < loopbackTxCap; written += len(chunk) {
		for _, c := range chunk {
			line.PutChar(c)
		}
	}
	line.PutChar('y')

	assert.Equal(t, 1, line.Dropped(), "overflow drops and counts, never blocks")
	assert.Len(t, line.Transmitted(), loopbackTxCap)
}

func TestLoopbackBaud(t *testing.T) {
	line := openLoopback(t, OpenConfig{Baud: 9600})
	assert.Equal(t, 9600, line.Baud())

	line.SetBaudRate(115200)
	assert.Equal(t, 115200, line.Baud())
}
