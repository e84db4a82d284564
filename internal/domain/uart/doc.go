// Package uart implements the driver-session core of the server.
//
// A Session gives one client a terminal-like view of one physical UART
// line: size query, buffered read/write through a fixed shared I/O
// buffer, and an edge-triggered data-available notification. Hardware
// access is delegated to an opaque Driver obtained from a DriverFactory.
//
// Components:
//   - Driver/DriverFactory: character-level hardware contract
//   - IOBuffer: fixed-capacity transfer buffer, one per session
//   - NotificationBridge: data-available wake-up with catch-up on register
//   - SizeDetector: ANSI cursor-report geometry probe
//   - Session: the client-facing operation surface
//   - Root: policy-driven session construction and teardown
//   - Entrypoint: the single serialized dispatch context
//
// All session operations and all session-creation requests are executed
// on one dispatch goroutine (the Entrypoint). Sessions therefore need no
// internal locking; mutual exclusion follows from serialization.
package uart
