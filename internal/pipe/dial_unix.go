//go:build !windows

package pipe

import (
	"net"
	"os"
	"path/filepath"
	"time"
)

// endpointPath maps an endpoint name to the Unix domain socket path the
// peer runtime binds: a CoreFxPipe_-prefixed file in the temp directory.
func endpointPath(name string) string {
	return filepath.Join(os.TempDir(), "CoreFxPipe_"+name)
}

func dialOnce(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}
