//go:build windows

package pipename

import (
	"errors"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

type apiInspector struct{}

// DefaultInspector returns the process-API-based inspector.
func DefaultInspector() Inspector { return apiInspector{} }

func (apiInspector) Inspect(pid int) (Identity, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// OpenProcess reports a dead pid as an invalid parameter.
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return Identity{}, &transerrors.ProcessNotFoundError{PID: pid, Err: err}
		}

		return Identity{}, err
	}
	defer windows.CloseHandle(h)

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h, &creation, &exit, &kernel, &user); err != nil {
		return Identity{}, err
	}

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))

	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return Identity{}, err
	}

	image := filepath.Base(windows.UTF16ToString(buf[:size]))
	if strings.EqualFold(filepath.Ext(image), ".exe") {
		image = image[:len(image)-len(".exe")]
	}

	return Identity{
		PID:       pid,
		StartTime: int64(creation.HighDateTime)<<32 | int64(creation.LowDateTime),
		ImageName: image,
	}, nil
}
