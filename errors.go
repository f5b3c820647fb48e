package pstransport

import "github.com/smnsjas/go-pstransport/internal/errors"

// Re-export error types from internal package

// ProcessNotFoundError indicates the target process id no longer exists.
type ProcessNotFoundError = errors.ProcessNotFoundError

// ConnectionTimeoutError indicates the connect deadline elapsed.
type ConnectionTimeoutError = errors.ConnectionTimeoutError

// ConnectionFailedError indicates the endpoint is unreachable.
type ConnectionFailedError = errors.ConnectionFailedError

// SpawnError indicates the peer process could not be located or started.
type SpawnError = errors.SpawnError

// TransportIOError indicates an I/O failure on an established session.
type TransportIOError = errors.TransportIOError

// TransportError is the base interface for all transport errors.
type TransportError = errors.TransportError

// Re-export sentinel errors from internal package.
var (
	// ErrAlreadyConnected indicates a second Connect on a live connection.
	ErrAlreadyConnected = errors.ErrAlreadyConnected

	// ErrNotConnected indicates an operation that requires an open connection.
	ErrNotConnected = errors.ErrNotConnected

	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrConnectAborted indicates an in-flight connect was cancelled.
	ErrConnectAborted = errors.ErrConnectAborted
)
