package pipe

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

// uniqueName returns an endpoint name short enough to stay inside Unix
// socket path limits.
func uniqueName(t *testing.T) string {
	t.Helper()

	return fmt.Sprintf("gotest.%d.%d", os.Getpid(), time.Now().UnixNano()%1_000_000)
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("test drives Unix domain sockets directly")
	}
}

// listen binds a server socket at the path the endpoint will dial.
func listen(t *testing.T, name string) net.Listener {
	t.Helper()

	l, err := net.Listen("unix", endpointPath(name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	return l
}

// refusingEndpoint plants a plain file at the endpoint path, so every dial
// is refused while the endpoint itself exists.
func refusingEndpoint(t *testing.T, name string) {
	t.Helper()

	path := endpointPath(name)
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	t.Cleanup(func() { _ = os.Remove(path) })
}

func TestConnectSuccess(t *testing.T) {
	skipOnWindows(t)

	name := uniqueName(t)
	l := listen(t, name)

	go func() {
		server, err := l.Accept()
		if err != nil {
			return
		}

		fmt.Fprintln(server, "hello")
		_ = server.Close()
	}()

	e := NewEndpoint(nil, name)

	conn, err := e.Connect(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, e.State())

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	require.NoError(t, e.Close())
}

func TestConnectMissingEndpointFailsFast(t *testing.T) {
	skipOnWindows(t)

	e := NewEndpoint(nil, uniqueName(t))

	start := time.Now()
	_, err := e.Connect(context.Background(), 5*time.Second)
	elapsed := time.Since(start)

	var failed *transerrors.ConnectionFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, e.Name(), failed.Endpoint)

	// Fail fast, not after the timeout.
	assert.Less(t, elapsed, time.Second)
}

func TestConnectTimeoutBounds(t *testing.T) {
	skipOnWindows(t)

	name := uniqueName(t)
	refusingEndpoint(t, name)

	e := NewEndpoint(nil, name)
	timeout := 300 * time.Millisecond

	start := time.Now()
	_, err := e.Connect(context.Background(), timeout)
	elapsed := time.Since(start)

	var timedOut *transerrors.ConnectionTimeoutError
	require.ErrorAs(t, err, &timedOut)
	assert.Equal(t, timeout, timedOut.Timeout)

	// No earlier than the timeout, no later than roughly one extra poll.
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+3*PollInterval)
}

func TestAbortConnectUnblocksWithinOnePoll(t *testing.T) {
	skipOnWindows(t)

	name := uniqueName(t)
	refusingEndpoint(t, name)

	e := NewEndpoint(nil, name)

	go func() {
		time.Sleep(150 * time.Millisecond)
		e.AbortConnect()
	}()

	start := time.Now()
	_, err := e.Connect(context.Background(), time.Hour)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, transerrors.ErrConnectAborted)
	assert.Less(t, elapsed, time.Second)
}

func TestConnectHonorsContextCancellation(t *testing.T) {
	skipOnWindows(t)

	name := uniqueName(t)
	refusingEndpoint(t, name)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	e := NewEndpoint(nil, name)

	start := time.Now()
	_, err := e.Connect(ctx, time.Hour)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConnectNoDeadline(t *testing.T) {
	skipOnWindows(t)

	name := uniqueName(t)
	refusingEndpoint(t, name)

	e := NewEndpoint(nil, name)

	// A negative timeout means no deadline; only the abort stops it.
	go func() {
		time.Sleep(250 * time.Millisecond)
		e.AbortConnect()
	}()

	_, err := e.Connect(context.Background(), -1)
	require.ErrorIs(t, err, transerrors.ErrConnectAborted)
}

func TestSecondConnectRejected(t *testing.T) {
	skipOnWindows(t)

	name := uniqueName(t)
	l := listen(t, name)

	go func() {
		for {
			server, err := l.Accept()
			if err != nil {
				return
			}

			defer server.Close()
		}
	}()

	e := NewEndpoint(nil, name)

	_, err := e.Connect(context.Background(), 5*time.Second)
	require.NoError(t, err)

	_, err = e.Connect(context.Background(), 5*time.Second)
	require.ErrorIs(t, err, transerrors.ErrAlreadyConnected)

	require.NoError(t, e.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	e := NewEndpoint(nil, "never-connected")

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, StateClosed, e.State())
}

func TestConnectAfterCloseRejected(t *testing.T) {
	e := NewEndpoint(nil, "never-connected")
	require.NoError(t, e.Close())

	_, err := e.Connect(context.Background(), time.Second)
	require.ErrorIs(t, err, transerrors.ErrSessionClosed)
}
