package uart

import "sync"

// Entrypoint is the single shared dispatch context. Every session
// operation and every session-creation request is executed on one
// goroutine, in submission order; an in-progress operation runs to
// completion before the next one is picked up, from any client.
//
// This mirrors the scheduling model of the source system: no per-session
// threads, no locking inside sessions, and no two sessions making
// progress at the same time. The bounded SizeDetector deadline caps how
// long a single operation can hold the context.
type Entrypoint struct {
	ops  chan func()
	stop chan struct{}

	mu      sync.Mutex
	running bool
	done    sync.WaitGroup

	// execMu serializes every operation, whether it runs on the loop
	// goroutine or inline in a caller after Stop. Serialization must
	// survive shutdown: operations racing a Stop still may not overlap.
	execMu sync.Mutex
}

// NewEntrypoint creates a stopped entrypoint.
func NewEntrypoint() *Entrypoint {
	return &Entrypoint{
		ops:  make(chan func(), 64),
		stop: make(chan struct{}),
	}
}

// Start launches the dispatch loop. Starting twice is a no-op.
func (e *Entrypoint) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.done.Add(1)
	go e.loop()
}

// Stop shuts the loop down and waits for the operation in flight, if
// any, to finish. Operations submitted after Stop run inline in the
// caller, still one at a time, which keeps teardown paths simple.
func (e *Entrypoint) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	e.mu.Unlock()
	e.done.Wait()
}

// Exec submits fn to the dispatch context and blocks until it has run.
func (e *Entrypoint) Exec(fn func()) {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		e.run(fn)
		return
	}

	finished := make(chan struct{})
	select {
	case e.ops <- func() {
		fn()
		close(finished)
	}:
		<-finished
	case <-e.stop:
		e.run(fn)
	}
}

func (e *Entrypoint) run(op func()) {
	e.execMu.Lock()
	defer e.execMu.Unlock()
	op()
}

func (e *Entrypoint) loop() {
	defer e.done.Done()
	for {
		select {
		case op := <-e.ops:
			e.run(op)
		case <-e.stop:
			// drain submissions that won the race against stop
			for {
				select {
				case op := <-e.ops:
					e.run(op)
				default:
					return
				}
			}
		}
	}
}
