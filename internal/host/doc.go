// Package host manages an owned child process: spawning with redirected
// standard streams, exit monitoring, stderr capture, and forced
// termination on teardown.
package host
