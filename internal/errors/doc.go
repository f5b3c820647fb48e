// Package errors defines error types for the transport layer.
//
// This package provides structured error types for the distinct failure
// scenarios a remoting transport can hit: the target process vanishing
// before its endpoint name could be derived, a connect deadline elapsing,
// an unreachable endpoint, a peer process that could not be spawned, and
// I/O failures on an established session. All error types support error
// unwrapping and can be checked using errors.Is, errors.As, and
// errors.AsType.
package errors
