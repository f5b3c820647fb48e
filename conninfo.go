package pstransport

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
	"github.com/smnsjas/go-pstransport/internal/host"
	"github.com/smnsjas/go-pstransport/internal/pipe"
	"github.com/smnsjas/go-pstransport/internal/pipename"
	"github.com/smnsjas/go-pstransport/internal/pwsh"
)

type targetKind int

const (
	targetProcessID targetKind = iota
	targetEndpointName
	targetSpawn
)

type connState int

const (
	stateUnconnected connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// ConnectionInfo describes how to reach a remoting peer: by the pid of a
// process hosting a named-pipe server, by an explicit endpoint name, or by
// spawning a fresh server process and talking over its standard streams.
// Exactly one target is active per instance.
//
// A ConnectionInfo owns at most one physical connection. Connect must not
// be invoked twice concurrently; a second call while a connection is live
// or in flight returns ErrAlreadyConnected. Clone produces a descriptor
// with the same target but no connection state.
type ConnectionInfo struct {
	log *slog.Logger

	kind         targetKind
	pid          int
	endpointName string
	exePath      string
	extraArgs    []string

	timeoutMillis int
	ownsProcess   bool
	inspector     pipename.Inspector
	stderrLine    func(string)

	mu       sync.Mutex
	state    connState
	endpoint *pipe.Endpoint
	procHost *host.Host
	writer   *lineWriter
}

func newConnectionInfo(kind targetKind, opts *Options) *ConnectionInfo {
	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		log = NopLogger()
	}

	timeout := opts.TimeoutMillis
	if timeout == 0 {
		timeout = DefaultTimeoutMillis
	}

	return &ConnectionInfo{
		log:           log.With("component", "conninfo"),
		kind:          kind,
		timeoutMillis: timeout,
		inspector:     opts.Inspector,
		stderrLine:    opts.StderrLine,
	}
}

// NewProcessIDConnection targets the named-pipe server endpoint of an
// existing process. The endpoint name is derived from the process identity
// at Connect time; the process is not owned and never killed on teardown.
func NewProcessIDConnection(pid int, opts *Options) *ConnectionInfo {
	c := newConnectionInfo(targetProcessID, opts)
	c.pid = pid

	return c
}

// NewEndpointConnection targets an explicitly named endpoint, bypassing
// name derivation.
func NewEndpointConnection(name string, opts *Options) *ConnectionInfo {
	c := newConnectionInfo(targetEndpointName, opts)
	c.endpointName = name

	return c
}

// NewSpawnedProcessConnection spawns a fresh server process at Connect time
// and communicates over its standard streams. An empty exePath locates pwsh
// on the execution path and launches it with the fixed server-mode flags
// plus args; an explicit exePath is launched with exactly args. The spawned
// process is owned: Close kills it.
func NewSpawnedProcessConnection(exePath string, args []string, opts *Options) *ConnectionInfo {
	c := newConnectionInfo(targetSpawn, opts)
	c.exePath = exePath
	c.extraArgs = args
	c.ownsProcess = true

	return c
}

// PID returns the target pid for process-id connections, else 0.
func (c *ConnectionInfo) PID() int {
	if c.kind == targetProcessID {
		return c.pid
	}

	return 0
}

// TimeoutMillis returns the configured connect timeout.
func (c *ConnectionInfo) TimeoutMillis() int { return c.timeoutMillis }

// OwnsProcess reports whether teardown kills the peer process.
func (c *ConnectionInfo) OwnsProcess() bool { return c.ownsProcess }

func (c *ConnectionInfo) timeout() time.Duration {
	if c.timeoutMillis < 0 {
		return -1
	}

	return time.Duration(c.timeoutMillis) * time.Millisecond
}

// Connect establishes the duplex stream for this target and returns the
// line-oriented writer and reader halves. For pipe targets the connect is
// a bounded poll honoring the configured timeout; for spawn targets the
// streams exist as soon as the process starts.
//
// Naming, connect, and spawn failures propagate to the caller; there is no
// silent fallback between targets.
func (c *ConnectionInfo) Connect(ctx context.Context) (MessageWriter, *bufio.Reader, error) {
	c.mu.Lock()

	switch c.state {
	case stateUnconnected:
		c.state = stateConnecting
	case stateClosed:
		c.mu.Unlock()

		return nil, nil, transerrors.ErrSessionClosed
	default:
		c.mu.Unlock()

		return nil, nil, transerrors.ErrAlreadyConnected
	}
	c.mu.Unlock()

	var (
		w   io.Writer
		r   io.Reader
		err error
	)

	switch c.kind {
	case targetSpawn:
		w, r, err = c.connectSpawn()
	default:
		w, r, err = c.connectPipe(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if c.state == stateConnecting {
			c.state = stateUnconnected
		}

		return nil, nil, err
	}

	if c.state == stateClosed {
		// StopConnect raced the successful connect; the streams are
		// already being torn down.
		return nil, nil, transerrors.ErrSessionClosed
	}

	c.state = stateConnected
	c.writer = &lineWriter{w: w}

	return c.writer, bufio.NewReader(r), nil
}

func (c *ConnectionInfo) connectPipe(ctx context.Context) (io.Writer, io.Reader, error) {
	name := c.endpointName

	if c.kind == targetProcessID {
		deriver := pipename.NewDeriver(&pipename.Config{
			Inspector: c.inspector,
			Logger:    c.log,
		})

		derived, err := deriver.Derive(c.pid)
		if err != nil {
			return nil, nil, err
		}

		name = derived
	}

	endpoint := pipe.NewEndpoint(c.log, name)

	c.mu.Lock()

	if c.state != stateConnecting {
		c.mu.Unlock()

		return nil, nil, transerrors.ErrSessionClosed
	}

	c.endpoint = endpoint
	c.mu.Unlock()

	conn, err := endpoint.Connect(ctx, c.timeout())
	if err != nil {
		return nil, nil, err
	}

	return conn, conn, nil
}

func (c *ConnectionInfo) connectSpawn() (io.Writer, io.Reader, error) {
	exePath := c.exePath
	args := c.extraArgs

	if exePath == "" {
		discoverer := pwsh.NewDiscoverer(&pwsh.Config{Logger: c.log})

		found, err := discoverer.Discover()
		if err != nil {
			return nil, nil, err
		}

		exePath = found
		args = pwsh.BuildArgs(c.extraArgs)
	}

	h := host.New(&host.Options{
		Logger:     c.log,
		StderrLine: c.stderrLine,
	})

	c.mu.Lock()

	if c.state != stateConnecting {
		c.mu.Unlock()

		return nil, nil, transerrors.ErrSessionClosed
	}

	c.procHost = h
	c.mu.Unlock()

	if err := h.Spawn(exePath, args); err != nil {
		return nil, nil, err
	}

	return h.Stdin(), h.Stdout(), nil
}

// StopConnect aborts any in-flight connect and closes the streams. Safe to
// call multiple times and before Connect was ever invoked. It does not
// kill an owned process; that is Close's job.
func (c *ConnectionInfo) StopConnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return nil
	}

	c.state = stateClosed

	if c.endpoint != nil {
		c.endpoint.AbortConnect()
		_ = c.endpoint.Close()
	}

	if c.procHost != nil {
		c.procHost.CloseStreams()
	}

	if c.writer != nil {
		c.writer.detach()
	}

	c.log.Debug("Connection stopped")

	return nil
}

// Host returns the spawned process host, or nil for pipe targets.
// Exposed for exit-code and stderr diagnosis after a silent closure.
func (c *ConnectionInfo) Host() *host.Host {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.procHost
}

// Clone returns a new ConnectionInfo with the same target and timeout but
// none of the connection state. Cloning never opens a second physical
// connection; the clone is Unconnected until its own Connect call.
func (c *ConnectionInfo) Clone() *ConnectionInfo {
	return &ConnectionInfo{
		log:           c.log,
		kind:          c.kind,
		pid:           c.pid,
		endpointName:  c.endpointName,
		exePath:       c.exePath,
		extraArgs:     c.extraArgs,
		timeoutMillis: c.timeoutMillis,
		ownsProcess:   c.ownsProcess,
		inspector:     c.inspector,
		stderrLine:    c.stderrLine,
	}
}

// Close stops any connect in flight and closes the streams. When this
// instance owns a spawned process it also terminates it. Idempotent.
func (c *ConnectionInfo) Close() error {
	_ = c.StopConnect()

	c.mu.Lock()
	h := c.procHost
	owns := c.ownsProcess
	c.mu.Unlock()

	if owns && h != nil {
		return h.Terminate()
	}

	return nil
}

// lineWriter is the MessageWriter over a raw stream. Writes are serialized
// and flushed immediately; a detached writer (after StopConnect) fails
// with ErrNotConnected.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// Compile-time verification that lineWriter implements MessageWriter.
var _ MessageWriter = (*lineWriter)(nil)

func (l *lineWriter) WriteLine(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return transerrors.ErrNotConnected
	}

	// Ensure data ends with newline. Explicit copy so spare capacity in
	// the caller's slice is never mutated.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		withNL := make([]byte, len(data)+1)
		copy(withNL, data)
		withNL[len(data)] = '\n'
		data = withNL
	}

	if _, err := l.w.Write(data); err != nil {
		return &transerrors.TransportIOError{Err: err}
	}

	return nil
}

func (l *lineWriter) detach() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w = nil
}
