//go:build windows

package pipe

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func endpointPath(name string) string {
	return `\\.\pipe\` + name
}

func dialOnce(path string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(path, &timeout)
}
