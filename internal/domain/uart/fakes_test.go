package uart

import (
	"bytes"
	"errors"
	"sync"
)

// scriptDriver is an in-memory Driver for tests: received bytes are
// preloaded or appended to rx, transmitted bytes accumulate in tx.
type scriptDriver struct {
	rx     []byte
	tx     []byte
	baud   int
	closed bool
}

func (d *scriptDriver) CharAvail() bool { return len(d.rx) > 0 }

func (d *scriptDriver) GetChar() byte {
	c := d.rx[0]
	d.rx = d.rx[1:]
	return c
}

func (d *scriptDriver) PutChar(c byte)    { d.tx = append(d.tx, c) }
func (d *scriptDriver) SetBaudRate(b int) { d.baud = b }
func (d *scriptDriver) Close() error      { d.closed = true; return nil }

// ansiTerminal behaves like a terminal emulator on the far end of the
// line: once the cursor-position report request arrives it replies with
// the scripted bytes.
type ansiTerminal struct {
	scriptDriver
	reply []byte
}

func (t *ansiTerminal) PutChar(c byte) {
	t.tx = append(t.tx, c)
	if bytes.HasSuffix(t.tx, []byte(probeReport)) {
		t.rx = append(t.rx, t.reply...)
	}
}

// fakeFactory implements DriverFactory over scriptDrivers and records
// every acquisition and release.
type fakeFactory struct {
	mu       sync.Mutex
	busy     map[int]bool
	created  int
	released []int
	failWith error
	make     func(index int, callback func()) Driver
	last     Driver
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{busy: make(map[int]bool)}
}

func (f *fakeFactory) Create(index, baud int, callback func()) (Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.busy[index] {
		return nil, errors.New("line busy")
	}
	f.busy[index] = true
	f.created++

	var drv Driver
	if f.make != nil {
		drv = f.make(index, callback)
	} else {
		drv = &scriptDriver{baud: baud}
	}
	f.last = drv
	return drv, nil
}

func (f *fakeFactory) Release(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.busy, index)
	f.released = append(f.released, index)
}

// mapPolicy resolves labels from a fixed table.
type mapPolicy map[string]PolicyRule

func (p mapPolicy) Resolve(label string) (PolicyRule, bool) {
	rule, ok := p[label]
	return rule, ok
}

func intPtr(v int) *int { return &v }
