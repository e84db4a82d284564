package driver

import (
	"fmt"
	"sync"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/Time0o/uartd/internal/domain/uart"
	"github.com/Time0o/uartd/internal/infrastructure/logging"
)

// DefaultBaud is used when a session leaves the rate at the driver
// default (baud 0).
const DefaultBaud = 115200

// Serial is the host serial port backend.
type Serial struct {
	log *logging.Logger
}

// NewSerial creates the serial backend.
func NewSerial(log *logging.Logger) *Serial {
	return &Serial{log: log}
}

// ID returns the backend identifier.
func (*Serial) ID() string { return "serial" }

// Open opens the serial device and starts its reader.
func (s *Serial) Open(cfg OpenConfig) (uart.Driver, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}

	l := &serialLine{
		device: cfg.Device,
		baud:   baud,
		port:   port,
		log:    s.log,
	}
	l.rx.callback = cfg.Callback
	go l.readLoop(port)

	return l, nil
}

// serialLine drives one host serial port. A reader goroutine pumps the
// OS receive path into the rx queue; the session side polls it.
type serialLine struct {
	device string
	rx     rxQueue
	log    *logging.Logger

	mu     sync.Mutex
	port   *serial.Port
	baud   int
	closed bool
}

func (l *serialLine) readLoop(port *serial.Port) {
	buf := make([]byte, 128)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			l.rx.push(buf[:n])
		}
		if err != nil {
			// closed, or replaced by a baud-rate change; either way
			// this reader's port is gone
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if !closed {
				l.log.Debug("serial reader stopped",
					zap.String("device", l.device),
					zap.Error(err))
			}
			return
		}
	}
}

// CharAvail implements uart.Driver.
func (l *serialLine) CharAvail() bool { return l.rx.avail() }

// GetChar implements uart.Driver.
func (l *serialLine) GetChar() byte { return l.rx.pop() }

// PutChar implements uart.Driver. The OS write path blocks until the
// line accepts the byte; there is no error surface here, matching the
// session contract.
func (l *serialLine) PutChar(c byte) {
	l.mu.Lock()
	port := l.port
	l.mu.Unlock()
	if port == nil {
		return
	}
	if _, err := port.Write([]byte{c}); err != nil {
		l.log.Warn("serial write failed",
			zap.String("device", l.device),
			zap.Error(err))
	}
}

// SetBaudRate reopens the device at the new rate. The old port is
// closed first, which also stops its reader. A rate of 0 or less keeps
// the current configuration.
func (l *serialLine) SetBaudRate(bps int) {
	if bps <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || bps == l.baud {
		return
	}

	if l.port != nil {
		l.port.Close()
	}

	port, err := serial.OpenPort(&serial.Config{Name: l.device, Baud: bps})
	if err != nil {
		l.log.Error("baud rate change failed, line is down",
			zap.String("device", l.device),
			zap.Int("baud", bps),
			zap.Error(err))
		l.port = nil
		return
	}

	l.port = port
	l.baud = bps
	go l.readLoop(port)
}

// Close implements uart.Driver.
func (l *serialLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.port != nil {
		return l.port.Close()
	}
	return nil
}
