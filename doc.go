// Package pstransport is a pluggable out-of-process transport for
// PowerShell remoting clients. It exchanges line-delimited protocol
// messages with a peer process over either the peer's named-pipe server
// endpoint (located deterministically from the peer's pid) or the standard
// streams of a freshly spawned server process.
//
// The surrounding remoting engine plugs in through the narrow Engine
// interface; message payloads are opaque lines at this layer.
//
// # Connecting to an existing process
//
//	info := pstransport.NewProcessIDConnection(serverPid, &pstransport.Options{
//	    Logger:        slog.Default(),
//	    TimeoutMillis: 10_000,
//	})
//	sess := pstransport.NewSession(engine, info, nil)
//	if err := sess.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
// # Spawning a fresh server process
//
//	info := pstransport.NewSpawnedProcessConnection("", nil, nil)
//	sess := pstransport.NewSession(engine, info, nil)
//	err := sess.Open(ctx)
//
// An empty executable path locates pwsh on the current execution path. The
// spawned process is owned by the connection and killed on Close.
//
// # Error Handling
//
// Connect-phase failures are returned synchronously from Open and are
// typed: ConnectionTimeoutError (deadline elapsed), ConnectionFailedError
// (endpoint absent), SpawnError, ProcessNotFoundError. After Open, read
// failures surface asynchronously through Engine.RaiseErrorHandler as a
// TransportIOError; a peer that simply closes the stream surfaces as a
// silent stop, to be diagnosed via the process's stderr or exit code.
package pstransport
