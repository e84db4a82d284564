package driver

import (
	"fmt"
	"os"
	"sync"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/Time0o/uartd/internal/domain/uart"
	"github.com/Time0o/uartd/internal/infrastructure/logging"
)

// PTY is the pseudo-terminal backend. Each line is a pty pair: the
// server drives the master side, and the slave path is what a terminal
// emulator or another process attaches to. Geometry detection works
// against anything answering ANSI cursor reports on the slave end.
type PTY struct {
	log *logging.Logger
}

// NewPTY creates the pty backend.
func NewPTY(log *logging.Logger) *PTY {
	return &PTY{log: log}
}

// ID returns the backend identifier.
func (*PTY) ID() string { return "pty" }

// Open allocates a pty pair and starts the master-side reader.
func (p *PTY) Open(cfg OpenConfig) (uart.Driver, error) {
	ptmx, tts, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty pair: %w", err)
	}

	l := &ptyLine{
		ptmx: ptmx,
		tts:  tts,
		baud: cfg.Baud,
		log:  p.log,
	}
	l.rx.callback = cfg.Callback
	go l.readLoop()

	p.log.Info("pty line ready", zap.String("attach", tts.Name()))
	return l, nil
}

// ptyLine drives the master side of one pty pair.
type ptyLine struct {
	ptmx *os.File
	tts  *os.File
	rx   rxQueue
	log  *logging.Logger

	mu     sync.Mutex
	baud   int
	closed bool
}

func (l *ptyLine) readLoop() {
	buf := make([]byte, 128)
	for {
		n, err := l.ptmx.Read(buf)
		if n > 0 {
			l.rx.push(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// SlavePath returns the endpoint a client process attaches to.
func (l *ptyLine) SlavePath() string { return l.tts.Name() }

// CharAvail implements uart.Driver.
func (l *ptyLine) CharAvail() bool { return l.rx.avail() }

// GetChar implements uart.Driver.
func (l *ptyLine) GetChar() byte { return l.rx.pop() }

// PutChar implements uart.Driver.
func (l *ptyLine) PutChar(c byte) {
	if _, err := l.ptmx.Write([]byte{c}); err != nil {
		l.log.Warn("pty write failed",
			zap.String("attach", l.tts.Name()),
			zap.Error(err))
	}
}

// SetBaudRate implements uart.Driver. Pseudo-terminals have no physical
// rate; the value is recorded for diagnostics only.
func (l *ptyLine) SetBaudRate(bps int) {
	l.mu.Lock()
	l.baud = bps
	l.mu.Unlock()
}

// Close implements uart.Driver.
func (l *ptyLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.ptmx.Close()
	return l.tts.Close()
}
