package pwsh

const binaryName = "pwsh"

// DefaultArgs returns the fixed flags for a spawned remoting server:
// server/streaming mode with the startup banner and profile loading
// disabled. Callers append their own flags after these.
func DefaultArgs() []string {
	return []string{"-s", "-NoLogo", "-NoProfile"}
}

// BuildArgs constructs the argument list for a spawned peer: the fixed
// server-mode flags followed by any caller-supplied extras. The arguments
// are passed to the process directly, never through a shell.
func BuildArgs(extra []string) []string {
	args := DefaultArgs()

	return append(args, extra...)
}
