package pipename

import (
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	namePrefix = "PSHost"
	appDomain  = "DefaultAppDomain"
)

// filetimeEpochDelta is the number of seconds between the FILETIME epoch
// (1601-01-01 UTC) and the Unix epoch.
const filetimeEpochDelta = 11_644_473_600

// Identity captures the fields of a process that participate in endpoint
// naming. StartTime is a FILETIME-like value: 100 ns intervals since
// 1601-01-01 UTC. The (PID, StartTime) pair distinguishes reused pids.
type Identity struct {
	PID       int
	StartTime int64
	ImageName string
}

// Inspector resolves a live process into its naming identity.
//
// The default implementation is platform specific (procfs on Linux, sysctl
// on Darwin, process APIs on Windows). Inject a fake to derive names without
// touching real processes.
type Inspector interface {
	Inspect(pid int) (Identity, error)
}

// Config holds configuration for name derivation.
type Config struct {
	// Inspector overrides the platform process inspector. Nil selects the
	// default for the current OS.
	Inspector Inspector

	// Logger is an optional logger for derivation operations.
	Logger *slog.Logger
}

// Deriver computes the deterministic endpoint name a remoting server
// publishes for a given process. Client and server derive the name
// independently; the rendering must agree bit for bit.
type Deriver struct {
	inspector Inspector
	log       *slog.Logger
}

// NewDeriver creates a Deriver from the given configuration.
func NewDeriver(cfg *Config) *Deriver {
	if cfg == nil {
		cfg = &Config{}
	}

	inspector := cfg.Inspector
	if inspector == nil {
		inspector = DefaultInspector()
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Deriver{
		inspector: inspector,
		log:       log.With("component", "pipename"),
	}
}

// Derive resolves the process and renders its endpoint name.
// Returns ProcessNotFoundError if the pid no longer exists.
func (d *Deriver) Derive(pid int) (string, error) {
	id, err := d.inspector.Inspect(pid)
	if err != nil {
		d.log.Debug("Process inspection failed", "pid", pid, "error", err)

		return "", err
	}

	name := Render(id)
	d.log.Debug("Derived endpoint name", "pid", pid, "name", name)

	return name, nil
}

// Render produces the endpoint name for an identity:
//
//	PSHost.<startTime>.<pid>.DefaultAppDomain.<imageName>
//
// The start-time field is the full decimal FILETIME on Windows and a
// truncated hex rendering elsewhere, where name length is constrained by
// socket path limits. Both sides of a connection must use the same
// platform rules or the names will not match.
func Render(id Identity) string {
	return strings.Join([]string{
		namePrefix,
		encodeStartTime(id.StartTime),
		strconv.Itoa(id.PID),
		appDomain,
		id.ImageName,
	}, ".")
}

func encodeStartTime(ft int64) string {
	if runtime.GOOS == "windows" {
		return strconv.FormatInt(ft, 10)
	}

	return truncatedHex(ft)
}

// truncatedHex renders the FILETIME as uppercase hex and keeps the 8
// characters after the leading one. The high digit changes on a scale of
// decades; the dropped precision is irrelevant for distinguishing starts
// within a pid-reuse window.
func truncatedHex(ft int64) string {
	hex := strings.ToUpper(strconv.FormatInt(ft, 16))
	for len(hex) < 9 {
		hex = "0" + hex
	}

	return hex[1:9]
}

// Filetime converts a wall-clock time to the FILETIME representation used
// in Identity.StartTime.
func Filetime(t time.Time) int64 {
	return (t.Unix()+filetimeEpochDelta)*10_000_000 + int64(t.Nanosecond())/100
}
