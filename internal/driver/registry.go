package driver

import (
	"fmt"
	"sync"

	"github.com/Time0o/uartd/internal/domain/uart"
)

// OpenConfig carries everything a backend needs to open one line.
type OpenConfig struct {
	// Device is the backend-specific endpoint, e.g. "/dev/ttyUSB0" for
	// the serial backend. The loopback backend interprets "echo" as a
	// line that reflects transmitted bytes back as input.
	Device string

	// Baud is the initial rate; 0 keeps the backend default.
	Baud int

	// Callback fires on character arrival, once per received chunk.
	Callback func()
}

// Backend opens raw lines for one class of devices.
type Backend interface {
	ID() string
	Open(cfg OpenConfig) (uart.Driver, error)
}

// Registry manages backend discovery.
type Registry struct {
	backends sync.Map
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a backend.
func (r *Registry) Register(b Backend) error {
	if b.ID() == "" {
		return fmt.Errorf("backend ID cannot be empty")
	}
	r.backends.Store(b.ID(), b)
	return nil
}

// Get retrieves a backend by ID.
func (r *Registry) Get(backendID string) (Backend, bool) {
	val, ok := r.backends.Load(backendID)
	if !ok {
		return nil, false
	}
	return val.(Backend), true
}

// List returns the IDs of all registered backends.
func (r *Registry) List() []string {
	var ids []string
	r.backends.Range(func(key, _ interface{}) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}
