// Package pipe implements the client side of a named-pipe endpoint: a
// bounded, cancelable polling connect and ownership of the resulting
// duplex stream. Named pipes are Unix domain sockets on non-Windows
// platforms and real named pipes (via go-winio) on Windows.
package pipe
