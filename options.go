package pstransport

import (
	"log/slog"

	"github.com/smnsjas/go-pstransport/internal/pipename"
)

// Timeout values for Options.TimeoutMillis.
const (
	// NoTimeout disables the connect deadline entirely.
	NoTimeout = -1

	// DefaultTimeoutMillis is used when Options.TimeoutMillis is zero.
	DefaultTimeoutMillis = 60_000
)

// ProcessIdentity is the (pid, start time, image name) triple that
// endpoint names are derived from.
type ProcessIdentity = pipename.Identity

// ProcessInspector resolves a live process into its ProcessIdentity.
// Inject a fake to derive endpoint names without touching real processes.
type ProcessInspector = pipename.Inspector

// Options configures a ConnectionInfo.
type Options struct {
	// Logger receives operation tracking and debugging output.
	// Nil means silent operation.
	Logger *slog.Logger

	// TimeoutMillis bounds Connect for pipe targets. Zero selects
	// DefaultTimeoutMillis; NoTimeout (-1) waits indefinitely.
	TimeoutMillis int

	// Inspector overrides the platform process inspector used for
	// endpoint name derivation.
	Inspector ProcessInspector

	// StderrLine, if set, receives each stderr line of a spawned peer.
	// The reader loop treats peer stream closure as silent; this side
	// channel is where failure diagnosis happens.
	StderrLine func(string)
}
