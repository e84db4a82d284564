package uart

import "errors"

// ErrUnavailable refuses a session-creation request. It covers both "no
// matching policy" and "missing uart attribute"; the wrapped message
// distinguishes them. The server itself keeps running.
var ErrUnavailable = errors.New("session unavailable")

// ErrNoSession is returned for operations on an unknown or already
// torn-down session ID.
var ErrNoSession = errors.New("no such session")
