package driver

import "sync"

// rxQueue buffers received bytes between a backend's reader goroutine
// and the session's polling side. push fires the arrival callback once
// per chunk, not once per byte; the session drains after a wake-up.
type rxQueue struct {
	mu       sync.Mutex
	buf      []byte
	callback func()
}

func (q *rxQueue) push(p []byte) {
	if len(p) == 0 {
		return
	}
	q.mu.Lock()
	q.buf = append(q.buf, p...)
	cb := q.callback
	q.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (q *rxQueue) avail() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) > 0
}

// pop removes one byte. Returns 0 when the queue is empty; callers are
// expected to check avail first, matching the driver contract.
func (q *rxQueue) pop() byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return 0
	}
	c := q.buf[0]
	q.buf = q.buf[1:]
	return c
}
