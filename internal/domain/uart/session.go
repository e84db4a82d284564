package uart

import (
	"time"

	"github.com/Time0o/uartd/internal/shared/id"
)

// Session composes a Driver, an IOBuffer, a NotificationBridge and a
// detected (or assumed) Size into the client-facing operation surface.
// Driver, buffer and size are fixed for the session's lifetime; only
// the baud rate is mutable, through an explicit operation.
//
// Session methods are not self-synchronizing. They run on the Root's
// entrypoint, which serializes every operation of every session.
type Session struct {
	id      id.SessionID
	label   string
	line    int
	baud    int
	created time.Time

	drv    Driver
	buf    *IOBuffer
	bridge *NotificationBridge
	size   Size
}

// ID returns the session identifier.
func (s *Session) ID() id.SessionID { return s.id }

// Label returns the client identity label the session was created for.
func (s *Session) Label() string { return s.label }

// SetBaudRate forwards the new rate to the driver. No range validation
// happens here; that is the driver's concern.
func (s *Session) SetBaudRate(bps int) {
	s.drv.SetBaudRate(bps)
	s.baud = bps
}

// Size returns the geometry computed once at construction. It is never
// recomputed; a skipped or failed detection stays Size{} forever.
func (s *Session) Size() Size { return s.size }

// Avail reports whether the line has received data waiting.
func (s *Session) Avail() bool { return s.drv.CharAvail() }

// ReadBuf copies up to min(n, buffer capacity) characters from the
// driver into the I/O buffer, stopping early once the driver runs dry.
// It returns the count actually copied, possibly zero.
func (s *Session) ReadBuf(n int) int {
	sz := s.buf.Clamp(n)
	dst := s.buf.Bytes()

	copied := 0
	for copied < sz && s.drv.CharAvail() {
		dst[copied] = s.drv.GetChar()
		copied++
	}
	return copied
}

// WriteBuf transmits the first min(n, buffer capacity) characters of
// the I/O buffer, in order, one character at a time. There is no
// back-pressure signal; a slow line blocks inside the driver.
func (s *Session) WriteBuf(n int) {
	sz := s.buf.Clamp(n)
	src := s.buf.Bytes()
	for i := 0; i < sz; i++ {
		s.drv.PutChar(src[i])
	}
}

// Buffer exposes the session's I/O buffer to the transport layer, which
// copies payloads in and out around WriteBuf/ReadBuf.
func (s *Session) Buffer() *IOBuffer { return s.buf }

// ConnectedSigh fires the target immediately, every time it is invoked.
// The session is ready the moment it exists, so this is a courtesy
// echo, not a state check.
func (s *Session) ConnectedSigh(t NotifyTarget) {
	if t != nil {
		t()
	}
}

// ReadAvailSigh registers the data-available target. If data is already
// waiting the target fires synchronously within this call.
func (s *Session) ReadAvailSigh(t NotifyTarget) {
	s.bridge.Register(t)
}

// Read satisfies the wider terminal session surface. Bulk transfer goes
// through the shared I/O buffer instead; this entry point always
// reports zero bytes.
func (s *Session) Read(p []byte) (int, error) { return 0, nil }

// Write is the counterpart of Read and likewise reports zero bytes.
func (s *Session) Write(p []byte) (int, error) { return 0, nil }

// close releases the driver and the buffer. The Root releases the line
// index back to the factory.
func (s *Session) close() {
	s.bridge.Register(nil)
	s.drv.Close()
	s.buf.Release()
}
