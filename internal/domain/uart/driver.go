package uart

// Driver is the character-level contract a hardware backend provides
// for one UART line. A Driver is exclusively owned by one Session for
// the session's entire lifetime.
type Driver interface {
	// CharAvail reports whether at least one received character is
	// waiting. Non-blocking.
	CharAvail() bool

	// GetChar pops one received character. Precondition: CharAvail
	// returned true; behavior is undefined otherwise.
	GetChar() byte

	// PutChar transmits one character. May block until the line
	// accepts the byte; it never reports failure.
	PutChar(c byte)

	// SetBaudRate reconfigures the line's transmission rate. Range
	// validation is the backend's concern.
	SetBaudRate(bps int)

	// Close releases backend resources held for the line.
	Close() error
}

// DriverFactory binds a numeric line index to a concrete Driver and
// wires the data-available callback into it. Create transfers exclusive
// ownership of the returned Driver to the caller; the factory must
// refuse a second acquisition of an in-use index.
type DriverFactory interface {
	Create(index int, baud int, callback func()) (Driver, error)
	Release(index int)
}
