package errors

import (
	"errors"
	"fmt"
	"time"
)

// TransportError is the base interface for all transport errors.
type TransportError interface {
	error
	IsTransportError() bool
}

// Compile-time verification that all error types implement TransportError.
var (
	_ TransportError = (*ProcessNotFoundError)(nil)
	_ TransportError = (*ConnectionTimeoutError)(nil)
	_ TransportError = (*ConnectionFailedError)(nil)
	_ TransportError = (*SpawnError)(nil)
	_ TransportError = (*TransportIOError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrAlreadyConnected indicates a second Connect on a live connection.
	ErrAlreadyConnected = errors.New("connection already established or in progress")

	// ErrNotConnected indicates an operation that requires an open connection.
	ErrNotConnected = errors.New("transport not connected")

	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.New("session closed: sessions are single-use, create a new one")

	// ErrConnectAborted indicates an in-flight connect was cancelled via AbortConnect.
	ErrConnectAborted = errors.New("connect aborted")
)

// ProcessNotFoundError indicates the target process id no longer exists.
type ProcessNotFoundError struct {
	PID int
	Err error
}

func (e *ProcessNotFoundError) Error() string {
	return fmt.Sprintf("process %d not found: %v", e.PID, e.Err)
}

func (e *ProcessNotFoundError) Unwrap() error {
	return e.Err
}

// IsTransportError implements TransportError.
func (e *ProcessNotFoundError) IsTransportError() bool { return true }

// ConnectionTimeoutError indicates the connect deadline elapsed before the
// endpoint accepted the connection.
type ConnectionTimeoutError struct {
	Endpoint string
	Timeout  time.Duration
}

func (e *ConnectionTimeoutError) Error() string {
	return fmt.Sprintf("timed out connecting to %s after %s", e.Endpoint, e.Timeout)
}

// IsTransportError implements TransportError.
func (e *ConnectionTimeoutError) IsTransportError() bool { return true }

// ConnectionFailedError indicates the endpoint is unreachable (it does not
// exist or refused outright). Distinct from ConnectionTimeoutError so callers
// can tell "retry later" from "reconfigure".
type ConnectionFailedError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error {
	return e.Err
}

// IsTransportError implements TransportError.
func (e *ConnectionFailedError) IsTransportError() bool { return true }

// SpawnError indicates the peer process could not be located or started.
type SpawnError struct {
	Path          string
	SearchedPaths []string
	Err           error
}

func (e *SpawnError) Error() string {
	if len(e.SearchedPaths) > 0 {
		return fmt.Sprintf("peer executable not found in: %v", e.SearchedPaths)
	}

	return fmt.Sprintf("failed to start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsTransportError implements TransportError.
func (e *SpawnError) IsTransportError() bool { return true }

// TransportIOError indicates an I/O failure on an established session.
// The reader loop raises it through the engine's error hook rather than
// returning it to a caller.
type TransportIOError struct {
	Err error
}

func (e *TransportIOError) Error() string {
	return fmt.Sprintf("transport I/O failure: %v", e.Err)
}

func (e *TransportIOError) Unwrap() error {
	return e.Err
}

// IsTransportError implements TransportError.
func (e *TransportIOError) IsTransportError() bool { return true }
