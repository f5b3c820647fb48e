// Package pipename derives the deterministic named-pipe endpoint name a
// remoting server publishes for its hosting process.
//
// The name is a function of the process's start time, pid, and image name,
// so a client can locate the server endpoint with no coordination beyond
// knowing the pid. Resolution of live process details goes through the
// Inspector interface; rendering is pure and covered by tests on all
// platforms.
package pipename
