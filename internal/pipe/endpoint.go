package pipe

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

// PollInterval is the cadence of the connect loop. It bounds both the
// timeout overshoot and the worst-case latency of AbortConnect.
const PollInterval = 100 * time.Millisecond

// State is the lifecycle state of an Endpoint.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateClosed
)

// Endpoint owns the duplex byte stream to one named endpoint.
//
// Connect polls rather than blocking in a single dial so that AbortConnect
// takes effect within one poll interval even while an attempt is
// outstanding. At most one connect may be in flight per endpoint.
type Endpoint struct {
	log  *slog.Logger
	name string
	path string

	mu    sync.Mutex
	state State
	conn  net.Conn

	abort atomic.Bool
}

// NewEndpoint creates an endpoint for the given name. The name is mapped to
// the transport path the peer runtime uses (\\.\pipe\<name> on Windows, a
// CoreFxPipe_-prefixed socket in the temp directory elsewhere).
func NewEndpoint(log *slog.Logger, name string) *Endpoint {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Endpoint{
		log:  log.With("component", "pipe", "endpoint", name),
		name: name,
		path: endpointPath(name),
	}
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string { return e.name }

// Path returns the OS-level path the endpoint dials.
func (e *Endpoint) Path() string { return e.path }

// State returns the current lifecycle state.
func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Connect establishes the connection, polling every PollInterval until the
// endpoint accepts, the timeout elapses, the context is cancelled, or
// AbortConnect is called. A negative timeout means no deadline.
//
// A missing endpoint fails fast with ConnectionFailedError; an endpoint
// that exists but does not accept is retried until the deadline, then
// reported as ConnectionTimeoutError.
func (e *Endpoint) Connect(ctx context.Context, timeout time.Duration) (net.Conn, error) {
	e.mu.Lock()

	switch e.state {
	case StateIdle:
		e.state = StateConnecting
	case StateClosed:
		e.mu.Unlock()

		return nil, transerrors.ErrSessionClosed
	default:
		e.mu.Unlock()

		return nil, transerrors.ErrAlreadyConnected
	}
	e.mu.Unlock()

	e.log.Debug("Connecting", "path", e.path, "timeout", timeout)

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if e.abort.Load() {
			e.log.Debug("Connect aborted")
			e.setIdle()

			return nil, transerrors.ErrConnectAborted
		}

		if err := ctx.Err(); err != nil {
			e.setIdle()

			return nil, err
		}

		conn, err := dialOnce(e.path, PollInterval)
		if err == nil {
			return e.adopt(conn)
		}

		if errors.Is(err, fs.ErrNotExist) {
			e.log.Debug("Endpoint does not exist", "error", err)
			e.setIdle()

			return nil, &transerrors.ConnectionFailedError{Endpoint: e.name, Err: err}
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			e.log.Debug("Connect timed out", "timeout", timeout)
			e.setIdle()

			return nil, &transerrors.ConnectionTimeoutError{Endpoint: e.name, Timeout: timeout}
		}

		time.Sleep(PollInterval)
	}
}

// adopt records a successfully dialed connection, unless the endpoint was
// closed while the dial was outstanding.
func (e *Endpoint) adopt(conn net.Conn) (net.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		_ = conn.Close()

		return nil, transerrors.ErrSessionClosed
	}

	e.state = StateConnected
	e.conn = conn
	e.log.Debug("Connected")

	return conn, nil
}

func (e *Endpoint) setIdle() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateConnecting {
		e.state = StateIdle
	}
}

// AbortConnect makes an in-flight Connect give up on its next poll
// iteration. Safe to call from any goroutine, including when no connect is
// in flight. It has no effect on an established connection.
func (e *Endpoint) AbortConnect() {
	e.abort.Store(true)
}

// Close closes the underlying stream if open. Idempotent; closing an
// already-closed endpoint is a no-op.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateClosed

	if e.conn == nil {
		return nil
	}

	conn := e.conn
	e.conn = nil

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
