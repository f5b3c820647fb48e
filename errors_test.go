package pstransport

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsCarryTheMarkerInterface(t *testing.T) {
	cases := []TransportError{
		&ProcessNotFoundError{PID: 42, Err: errors.New("gone")},
		&ConnectionTimeoutError{Endpoint: "PSHost.X.42.DefaultAppDomain.pwsh", Timeout: time.Second},
		&ConnectionFailedError{Endpoint: "PSHost.X.42.DefaultAppDomain.pwsh", Err: errors.New("refused")},
		&SpawnError{Path: "/usr/bin/pwsh", Err: errors.New("exec format error")},
		&TransportIOError{Err: errors.New("broken pipe")},
	}

	for _, err := range cases {
		assert.True(t, err.IsTransportError(), "%T", err)
		assert.NotEmpty(t, err.Error(), "%T", err)
	}
}

func TestErrorUnwrapping(t *testing.T) {
	inner := errors.New("root cause")

	wrapped := fmt.Errorf("open transport: %w", &ConnectionFailedError{
		Endpoint: "name",
		Err:      inner,
	})

	var failed *ConnectionFailedError
	require.ErrorAs(t, wrapped, &failed)
	require.ErrorIs(t, wrapped, inner)
}

func TestSpawnErrorMessages(t *testing.T) {
	searched := &SpawnError{SearchedPaths: []string{"$PATH", "/usr/bin/pwsh"}}
	assert.Contains(t, searched.Error(), "$PATH")

	started := &SpawnError{Path: "/opt/pwsh", Err: errors.New("permission denied")}
	assert.Contains(t, started.Error(), "/opt/pwsh")
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrAlreadyConnected,
		ErrNotConnected,
		ErrSessionClosed,
		ErrConnectAborted,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}

			assert.NotErrorIs(t, a, b)
		}
	}
}
