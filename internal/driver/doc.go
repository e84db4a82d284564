// Package driver provides the hardware backends behind the uart core.
//
// A Backend opens raw byte lines for one class of devices:
//   - serial: host serial ports via tarm/serial (index -> /dev path)
//   - pty: pseudo-terminal pairs via creack/pty, for development and
//     for exercising geometry detection against terminal emulators
//   - loopback: in-memory lines for tests and demos
//
// The Factory implements uart.DriverFactory on top of a backend
// Registry and a line table. It enforces exclusive line ownership: a
// second Create for an in-use index fails with ErrLineBusy instead of
// handing two sessions the same hardware.
package driver
