//go:build darwin

package pipename

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

type sysctlInspector struct{}

// DefaultInspector returns the sysctl-based inspector.
func DefaultInspector() Inspector { return sysctlInspector{} }

func (sysctlInspector) Inspect(pid int) (Identity, error) {
	kp, err := unix.SysctlKinfoProc("kern.proc.pid", pid)
	if err != nil {
		if errors.Is(err, unix.ESRCH) || errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EINVAL) {
			return Identity{}, &transerrors.ProcessNotFoundError{PID: pid, Err: err}
		}

		return Identity{}, err
	}

	tv := kp.Proc.P_starttime
	started := time.Unix(tv.Sec, int64(tv.Usec)*1000)

	return Identity{
		PID:       pid,
		StartTime: Filetime(started),
		ImageName: commString(kp.Proc.P_comm[:]),
	}, nil
}

func commString(comm []int8) string {
	b := make([]byte, 0, len(comm))

	for _, c := range comm {
		if c == 0 {
			break
		}

		b = append(b, byte(c))
	}

	return string(b)
}
