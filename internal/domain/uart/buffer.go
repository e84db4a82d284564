package uart

// IOBufferSize is the fixed capacity of the per-session transfer
// buffer. Requests beyond it are truncated, never rejected.
const IOBufferSize = 4096

// IOBuffer is the bounded shared byte buffer used for bulk transfer
// across the session boundary. It is allocated once at session
// construction, owned exclusively by that session, and released at
// teardown.
type IOBuffer struct {
	data []byte
}

// NewIOBuffer allocates a buffer of the fixed capacity.
func NewIOBuffer() *IOBuffer {
	return &IOBuffer{data: make([]byte, IOBufferSize)}
}

// Cap returns the buffer capacity.
func (b *IOBuffer) Cap() int { return len(b.data) }

// Bytes exposes the backing storage. Callers copy in before WriteBuf
// and copy out after ReadBuf.
func (b *IOBuffer) Bytes() []byte { return b.data }

// Clamp truncates a requested transfer length to the capacity.
// Negative lengths clamp to zero.
func (b *IOBuffer) Clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > len(b.data) {
		return len(b.data)
	}
	return n
}

// Release drops the backing storage. The buffer must not be used
// afterwards.
func (b *IOBuffer) Release() { b.data = nil }
