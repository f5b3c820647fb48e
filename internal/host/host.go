package host

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

// maxStderrBufferSize caps the retained stderr buffer. The stderr line
// callback receives everything; only the buffer stops growing, to keep
// memory bounded for chatty peers.
const maxStderrBufferSize = 1024 * 1024 // 1MB

// Options holds configuration for a process host.
type Options struct {
	// Logger receives spawn and teardown events.
	Logger *slog.Logger

	// StderrLine, if set, is invoked once per line of the child's stderr.
	// The transport itself treats peer stream closure as silent; callers
	// diagnose failures through this side channel.
	StderrLine func(string)
}

// Host owns the lifecycle of one spawned child process: redirected standard
// streams, exit monitoring, and forced termination. Processes merely
// attached by pid are never represented by a Host; they communicate over a
// named pipe and are never signalled by this package.
type Host struct {
	log        *slog.Logger
	stderrLine func(string)

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
	killed bool

	exited   atomic.Bool
	exitCode atomic.Int64
	waitDone chan struct{}

	stderrMu  sync.Mutex
	stderrBuf strings.Builder
}

// New creates an unstarted host.
func New(opts *Options) *Host {
	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Host{
		log:        log.With("component", "host"),
		stderrLine: opts.StderrLine,
	}
}

// Spawn starts the child with stdin, stdout, and stderr redirected, no
// shell interpretation, and no visible window. Returns SpawnError if the
// process cannot be started.
func (h *Host) Spawn(exePath string, args []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil {
		return transerrors.ErrAlreadyConnected
	}

	//nolint:gosec // G204: launching a caller-configured peer binary is the point
	cmd := exec.Command(exePath, args...)
	cmd.SysProcAttr = sysProcAttr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &transerrors.SpawnError{Path: exePath, Err: err}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &transerrors.SpawnError{Path: exePath, Err: err}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &transerrors.SpawnError{Path: exePath, Err: err}
	}

	if err := cmd.Start(); err != nil {
		h.log.Error("Failed to start peer process", "path", exePath, "error", err)

		return &transerrors.SpawnError{Path: exePath, Err: err}
	}

	h.cmd = cmd
	h.stdin = stdin
	h.stdout = stdout
	h.stderr = stderr
	h.waitDone = make(chan struct{})

	h.log.Info("Peer process started", "pid", cmd.Process.Pid, "path", exePath)

	go h.drainStderr(stderr)
	go h.monitor()

	return nil
}

// drainStderr reads the child's stderr to completion, buffering up to
// maxStderrBufferSize and invoking the line callback for every line.
func (h *Host) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()

		h.stderrMu.Lock()

		if h.stderrBuf.Len() < maxStderrBufferSize {
			if h.stderrBuf.Len() > 0 {
				h.stderrBuf.WriteString("\n")
			}

			h.stderrBuf.WriteString(line)
		}

		h.stderrMu.Unlock()

		if h.stderrLine != nil {
			h.stderrLine(line)
		}
	}

	if err := scanner.Err(); err != nil {
		h.log.Debug("Stderr scanner error", "error", err)
	}
}

// monitor reaps the child and records its exit state. It waits on the
// process directly rather than exec.Cmd.Wait so the stdout pipe stays
// readable until the session has drained it.
func (h *Host) monitor() {
	state, err := h.cmd.Process.Wait()
	if err != nil {
		h.log.Debug("Process wait failed", "error", err)
	} else {
		h.exitCode.Store(int64(state.ExitCode()))
		h.log.Debug("Peer process exited", "pid", h.cmd.Process.Pid, "exit_code", state.ExitCode())
	}

	h.exited.Store(true)
	close(h.waitDone)
}

// PID returns the child's process id, or 0 before Spawn.
func (h *Host) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}

	return h.cmd.Process.Pid
}

// Stdin returns the write end of the child's standard input.
func (h *Host) Stdin() io.WriteCloser {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stdin
}

// Stdout returns the read end of the child's standard output.
func (h *Host) Stdout() io.ReadCloser {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stdout
}

// Exited reports whether the child has exited.
func (h *Host) Exited() bool {
	return h.exited.Load()
}

// ExitCode returns the child's exit code once Exited is true.
func (h *Host) ExitCode() int {
	return int(h.exitCode.Load())
}

// Done returns a channel closed when the child has been reaped.
// Nil before Spawn.
func (h *Host) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.waitDone
}

// StderrOutput returns the buffered stderr captured so far.
func (h *Host) StderrOutput() string {
	h.stderrMu.Lock()
	defer h.stderrMu.Unlock()

	return h.stderrBuf.String()
}

// CloseStreams closes the redirected standard streams. Idempotent; errors
// from already-closed pipes are swallowed.
func (h *Host) CloseStreams() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range []io.Closer{h.stdin, h.stdout, h.stderr} {
		if c != nil {
			if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				h.log.Debug("Stream close error", "error", err)
			}
		}
	}

	h.stdin = nil
	h.stdout = nil
	h.stderr = nil
}

// Terminate forcibly kills the spawned child. Idempotent, and safe against
// the race where the child exits naturally just before the kill: the
// exited check is best effort and a kill racing a natural exit is
// tolerated, never surfaced.
func (h *Host) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd == nil || h.cmd.Process == nil || h.killed {
		return nil
	}

	h.killed = true

	if h.exited.Load() {
		return nil
	}

	h.log.Debug("Killing peer process", "pid", h.cmd.Process.Pid)

	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}

	return nil
}
