package uart

import "time"

// Size is a terminal geometry in character cells. The zero value means
// "unknown/undetected". It is immutable after session construction.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Probe sequences for geometry detection. The cursor is first pushed to
// row 199 of a forced scroll region and column 255, far beyond plausible
// terminal dimensions, so the terminal clamps it to its actual last
// row/column. The cursor-position report then reveals the geometry.
const (
	probeCursor = "\x1b[1;199r\x1b[199;255H"
	probeReport = "\x1b[6n"
)

// DetectState enumerates the parser states of the cursor-report
// grammar: ESC '[' <digits> ';' <digits> 'R'.
type DetectState int

const (
	AwaitEsc DetectState = iota
	AwaitBracket
	AwaitHeight
	AwaitWidth
	DetectDone
	DetectFailed
)

// SizeDetector parses a cursor-position report one byte at a time.
// Numbers are read digit-by-digit; the first non-digit character
// terminates a number and is then matched against the expected
// separator or terminator. Any mismatch moves the machine to
// DetectFailed, which resolves to Size{} rather than an error.
type SizeDetector struct {
	state  DetectState
	width  int
	height int
}

// Feed advances the machine by one byte and reports whether a terminal
// state (DetectDone or DetectFailed) has been reached.
func (d *SizeDetector) Feed(c byte) bool {
	switch d.state {
	case AwaitEsc:
		if c == 0x1b {
			d.state = AwaitBracket
		} else {
			d.state = DetectFailed
		}
	case AwaitBracket:
		if c == '[' {
			d.state = AwaitHeight
		} else {
			d.state = DetectFailed
		}
	case AwaitHeight:
		switch {
		case isDigit(c):
			d.height = d.height*10 + int(c-'0')
		case c == ';':
			d.state = AwaitWidth
		default:
			d.state = DetectFailed
		}
	case AwaitWidth:
		switch {
		case isDigit(c):
			d.width = d.width*10 + int(c-'0')
		case c == 'R':
			d.state = DetectDone
		default:
			d.state = DetectFailed
		}
	}
	return d.state == DetectDone || d.state == DetectFailed
}

// Result returns the detected geometry, or Size{} unless the machine
// reached DetectDone.
func (d *SizeDetector) Result() Size {
	if d.state != DetectDone {
		return Size{}
	}
	return Size{Width: d.width, Height: d.height}
}

// DetectSize runs the geometry probe against a driver: push the cursor
// out of range, drain stale input, request a cursor-position report and
// parse the reply. The poll is bounded by deadline; expiry resolves to
// Size{} exactly like a grammar mismatch. The calling context is
// occupied for the whole run, so the deadline caps how long one session
// can stall the dispatch loop.
func DetectSize(drv Driver, deadline time.Duration) Size {
	putString(drv, probeCursor)

	// stale input would be parsed as a bogus report
	for drv.CharAvail() {
		drv.GetChar()
	}

	putString(drv, probeReport)

	var d SizeDetector
	limit := time.Now().Add(deadline)
	for {
		if !drv.CharAvail() {
			if time.Now().After(limit) {
				return Size{}
			}
			time.Sleep(time.Millisecond)
			continue
		}
		if d.Feed(drv.GetChar()) {
			return d.Result()
		}
	}
}

func putString(drv Driver, s string) {
	for i := 0; i < len(s); i++ {
		drv.PutChar(s[i])
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
