package pstransport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

// maxScanTokenSize is the maximum buffer size for one inbound message line.
const maxScanTokenSize = 1024 * 1024 // 1MB

// connector is the slice of ConnectionInfo a session drives.
type connector interface {
	Connect(ctx context.Context) (MessageWriter, *bufio.Reader, error)
	StopConnect() error
	Close() error
}

// Session binds a connected duplex stream to the remoting engine: the
// writer half is registered as the engine's outbound channel and a
// dedicated reader goroutine delivers each inbound line to the engine in
// order. The session owns teardown of the underlying endpoint or process.
//
// Sessions are single-use: Open once, Close once (Close is idempotent).
type Session struct {
	log    *slog.Logger
	id     uuid.UUID
	engine Engine
	conn   connector

	mu     sync.Mutex
	opened bool
	closed bool
	eg     *errgroup.Group

	closing atomic.Bool
}

// NewSession creates a session over the given connection descriptor.
// The engine's hooks are not invoked until Open.
func NewSession(engine Engine, info *ConnectionInfo, opts *Options) *Session {
	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		log = NopLogger()
	}

	id := uuid.New()

	return &Session{
		log:    log.With("component", "session", "session_id", id),
		id:     id,
		engine: engine,
		conn:   info,
	}
}

// ID returns the session's instance identifier, used to correlate log
// output with the engine's GUID-keyed bookkeeping.
func (s *Session) ID() uuid.UUID { return s.id }

// Open connects the underlying transport, starts the reader loop, and then
// registers the outbound writer with the engine. Registration happens
// strictly after the reader is running: an engine that sends its first
// negotiation fragment upon SetMessageWriter cannot lose the peer's reply.
//
// Connect failures propagate synchronously; failures after Open only
// surface through the engine's error hook.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return transerrors.ErrSessionClosed
	}

	if s.opened {
		s.mu.Unlock()

		return transerrors.ErrAlreadyConnected
	}

	s.opened = true
	s.mu.Unlock()

	writer, reader, err := s.conn.Connect(ctx)
	if err != nil {
		s.mu.Lock()
		s.opened = false
		s.mu.Unlock()

		return err
	}

	s.log.Info("Transport session open")

	eg, _ := errgroup.WithContext(context.Background())

	s.mu.Lock()
	s.eg = eg
	s.mu.Unlock()

	eg.Go(func() error {
		s.readLoop(reader)

		return nil
	})

	s.engine.SetMessageWriter(writer)

	return nil
}

// readLoop delivers inbound lines to the engine until the stream ends.
//
// End of stream is not an error here: the peer closing the connection
// looks identical to a graceful shutdown at this layer, and failure
// diagnosis belongs to the stderr/exit-code side channel. Read failures
// during an orderly shutdown are swallowed; any other failure is raised
// through the engine's error hook exactly once, then the connection is
// torn down.
func (s *Session) readLoop(r *bufio.Reader) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	messageCount := 0

	for scanner.Scan() {
		messageCount++
		s.engine.HandleDataReceived(scanner.Text())
	}

	err := scanner.Err()

	switch {
	case err == nil:
		s.log.Debug("Peer closed stream", "messages", messageCount)

	case s.closing.Load() && isClosedStream(err):
		s.log.Debug("Reader stopped during shutdown")

	default:
		s.log.Error("Transport read failure", "error", err, "messages", messageCount)
		s.engine.RaiseErrorHandler(&transerrors.TransportIOError{Err: err})
		s.teardown()
	}
}

// teardown closes the connection without waiting for the reader goroutine;
// it is called from that goroutine on read failure.
func (s *Session) teardown() {
	s.closing.Store(true)

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return
	}

	s.closed = true
	s.mu.Unlock()

	_ = s.conn.Close()
}

// Close stops the reader loop by closing the underlying stream, waits for
// it to drain, and tears down the endpoint or owned process. Idempotent;
// never fails on an already-closed session.
func (s *Session) Close() error {
	s.closing.Store(true)

	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	eg := s.eg
	s.mu.Unlock()

	var err error
	if !alreadyClosed {
		err = s.conn.Close()
	}

	if eg != nil {
		_ = eg.Wait()
	}

	if !alreadyClosed {
		s.log.Info("Transport session closed")
	}

	return err
}

// isClosedStream reports whether err is the "stream already disposed"
// condition produced by closing a stream that is mid-read.
func isClosedStream(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed)
}
