package driver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Time0o/uartd/internal/domain/uart"
)

// ErrLineBusy refuses a second acquisition of an in-use line index.
// Exclusive ownership is enforced here so no two sessions can ever
// share hardware.
var ErrLineBusy = errors.New("uart line busy")

// ErrNoSuchLine is returned for an index absent from the line table.
var ErrNoSuchLine = errors.New("no such uart line")

// ErrUnknownBackend is returned when a line's configured backend is not
// registered.
var ErrUnknownBackend = errors.New("unknown driver backend")

// LineSpec binds a line index to a backend and device endpoint.
type LineSpec struct {
	Index   int
	Backend string
	Device  string
}

// Factory implements uart.DriverFactory over a backend registry and a
// line table.
type Factory struct {
	registry *Registry

	mu    sync.Mutex
	specs map[int]LineSpec
	inUse map[int]bool
}

// NewFactory creates a factory serving the given line table.
func NewFactory(registry *Registry, specs []LineSpec) *Factory {
	table := make(map[int]LineSpec, len(specs))
	for _, s := range specs {
		table[s.Index] = s
	}
	return &Factory{
		registry: registry,
		specs:    table,
		inUse:    make(map[int]bool),
	}
}

// Create opens the line at index and transfers exclusive ownership of
// the returned driver to the caller.
func (f *Factory) Create(index int, baud int, callback func()) (uart.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	spec, ok := f.specs[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchLine, index)
	}
	if f.inUse[index] {
		return nil, fmt.Errorf("%w: index %d", ErrLineBusy, index)
	}

	backend, ok := f.registry.Get(spec.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, spec.Backend)
	}

	drv, err := backend.Open(OpenConfig{
		Device:   spec.Device,
		Baud:     baud,
		Callback: callback,
	})
	if err != nil {
		return nil, fmt.Errorf("open line %d: %w", index, err)
	}

	f.inUse[index] = true
	return drv, nil
}

// Release returns a line index to the pool. Releasing an index that is
// not in use is a no-op.
func (f *Factory) Release(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inUse, index)
}

// Lines returns the configured line table, for diagnostics.
func (f *Factory) Lines() []LineSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LineSpec, 0, len(f.specs))
	for _, s := range f.specs {
		out = append(out, s)
	}
	return out
}
