package pwsh

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

// Config holds configuration for peer binary discovery.
type Config struct {
	// Path is an explicit binary path that skips PATH search.
	// If empty, discovery searches PATH and common install locations.
	Path string

	// Logger is an optional logger for discovery operations.
	Logger *slog.Logger
}

// Discoverer locates the PowerShell binary used for spawned-process
// connections. It is an injected collaborator so the transport never
// consults hidden process-wide state to find its peer.
type Discoverer interface {
	// Discover returns the path to the peer binary, or SpawnError listing
	// the searched locations.
	Discover() (string, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "pwsh"),
	}
}

// Discover locates the pwsh binary.
func (d *discoverer) Discover() (string, error) {
	// If explicit path provided, use it and only it
	if d.cfg.Path != "" {
		d.log.Debug("Using explicit pwsh path", "path", d.cfg.Path)

		if _, err := os.Stat(d.cfg.Path); err == nil {
			return d.cfg.Path, nil
		}

		return "", &transerrors.SpawnError{SearchedPaths: []string{d.cfg.Path}}
	}

	searchedPaths := make([]string, 0, 4)

	d.log.Debug("Searching for 'pwsh' in PATH")

	if path, err := exec.LookPath(binaryName); err == nil {
		d.log.Debug("Found pwsh in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, path := range commonPaths() {
		searchedPaths = append(searchedPaths, path)
		d.log.Debug("Checking common path", "path", path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found pwsh at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("pwsh not found in any searched paths", "searched_paths", searchedPaths)

	return "", &transerrors.SpawnError{SearchedPaths: searchedPaths}
}

func commonPaths() []string {
	paths := []string{
		"/usr/local/bin/pwsh",
		"/usr/bin/pwsh",
		"/opt/microsoft/powershell/7/pwsh",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".dotnet/tools/pwsh"))
	}

	return paths
}
