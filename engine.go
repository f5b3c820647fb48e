package pstransport

// MessageWriter is the outbound half of a connection. Every WriteLine is
// flushed to the peer immediately; there is no application-level batching.
// Writes happen on the caller's goroutine and are delivered in call order.
type MessageWriter interface {
	// WriteLine sends one message. A trailing newline is appended if
	// missing; the payload itself must not contain a line terminator.
	WriteLine(data []byte) error
}

// Engine is the surface the remoting engine exposes to a transport
// session. It is deliberately narrow: register the outbound writer,
// accept inbound lines, accept asynchronous transport errors.
//
// SetMessageWriter is called by Session.Open after the reader loop is
// already listening, so an engine that sends its first negotiation
// fragment from SetMessageWriter cannot lose the peer's reply.
//
// HandleDataReceived is invoked once per inbound line, in the exact order
// received, from the session's reader goroutine. RaiseErrorHandler is
// invoked at most once per session, also from the reader goroutine, and
// only for failures that are not part of an orderly shutdown.
type Engine interface {
	SetMessageWriter(w MessageWriter)
	HandleDataReceived(line string)
	RaiseErrorHandler(err error)
}
