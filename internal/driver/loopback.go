package driver

import (
	"sync"

	"github.com/Time0o/uartd/internal/domain/uart"
)

// loopbackTxCap bounds the captured transmit side of a loopback line.
// Overflowing bytes are dropped and counted, which is the resolution of
// the write back-pressure gap for in-memory lines.
const loopbackTxCap = 64 * 1024

// Loopback is the in-memory backend used by tests and demos.
type Loopback struct{}

// NewLoopback creates the loopback backend.
func NewLoopback() *Loopback { return &Loopback{} }

// ID returns the backend identifier.
func (*Loopback) ID() string { return "loopback" }

// Open creates a fresh in-memory line. With Device "echo" every
// transmitted byte is also reflected back as received input.
func (*Loopback) Open(cfg OpenConfig) (uart.Driver, error) {
	l := &LoopbackLine{
		baud: cfg.Baud,
		echo: cfg.Device == "echo",
	}
	l.rx.callback = cfg.Callback
	return l, nil
}

// LoopbackLine is one in-memory uart line. The test side injects
// received data with Inject and observes transmissions with
// Transmitted.
type LoopbackLine struct {
	rx rxQueue

	mu      sync.Mutex
	tx      []byte
	dropped int
	baud    int
	echo    bool
	closed  bool
}

// CharAvail implements uart.Driver.
func (l *LoopbackLine) CharAvail() bool { return l.rx.avail() }

// GetChar implements uart.Driver.
func (l *LoopbackLine) GetChar() byte { return l.rx.pop() }

// PutChar implements uart.Driver. Overflow beyond the transmit capture
// capacity drops the byte and counts the drop.
func (l *LoopbackLine) PutChar(c byte) {
	l.mu.Lock()
	if len(l.tx) < loopbackTxCap {
		l.tx = append(l.tx, c)
	} else {
		l.dropped++
	}
	echo := l.echo
	l.mu.Unlock()

	if echo {
		l.rx.push([]byte{c})
	}
}

// SetBaudRate implements uart.Driver. The rate is recorded but has no
// effect on an in-memory line.
func (l *LoopbackLine) SetBaudRate(bps int) {
	l.mu.Lock()
	l.baud = bps
	l.mu.Unlock()
}

// Close implements uart.Driver.
func (l *LoopbackLine) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

// Inject feeds received data into the line, firing the arrival
// callback.
func (l *LoopbackLine) Inject(p []byte) { l.rx.push(p) }

// InjectString feeds received data into the line.
func (l *LoopbackLine) InjectString(s string) { l.rx.push([]byte(s)) }

// Transmitted returns a copy of everything the session wrote so far.
func (l *LoopbackLine) Transmitted() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.tx...)
}

// ResetTransmitted clears the transmit capture.
func (l *LoopbackLine) ResetTransmitted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tx = l.tx[:0]
}

// Dropped returns the count of bytes lost to transmit overflow.
func (l *LoopbackLine) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Baud returns the last configured rate.
func (l *LoopbackLine) Baud() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baud
}
