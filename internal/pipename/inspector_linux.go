//go:build linux

package pipename

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

// userHZ is the USER_HZ tick rate the kernel uses for the starttime field
// in /proc/<pid>/stat. Fixed at 100 on Linux regardless of CONFIG_HZ.
const userHZ = 100

type procInspector struct{}

// DefaultInspector returns the procfs-based inspector.
func DefaultInspector() Inspector { return procInspector{} }

func (procInspector) Inspect(pid int) (Identity, error) {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return Identity{}, wrapProcErr(pid, err)
	}

	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return Identity{}, wrapProcErr(pid, err)
	}

	ticks, err := parseStartTicks(string(stat))
	if err != nil {
		return Identity{}, fmt.Errorf("parse /proc/%d/stat: %w", pid, err)
	}

	boot, err := bootTime()
	if err != nil {
		return Identity{}, err
	}

	started := boot.Add(time.Duration(ticks) * (time.Second / userHZ))

	return Identity{
		PID:       pid,
		StartTime: Filetime(started),
		ImageName: strings.TrimSpace(string(comm)),
	}, nil
}

func wrapProcErr(pid int, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &transerrors.ProcessNotFoundError{PID: pid, Err: err}
	}

	return err
}

// parseStartTicks extracts field 22 (starttime, ticks since boot) from a
// /proc/<pid>/stat line. The comm field may contain spaces, so fields are
// counted from the closing paren.
func parseStartTicks(stat string) (int64, error) {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 || end+2 > len(stat) {
		return 0, fmt.Errorf("malformed stat line %q", stat)
	}

	fields := strings.Fields(stat[end+2:])

	// starttime is the 20th field after the state field.
	const startTimeIndex = 19

	if len(fields) <= startTimeIndex {
		return 0, fmt.Errorf("stat line has %d fields after comm, need %d", len(fields), startTimeIndex+1)
	}

	return strconv.ParseInt(fields[startTimeIndex], 10, 64)
}

// bootTime reads the btime entry (boot time, seconds since the Unix epoch)
// from /proc/stat.
func bootTime() (time.Time, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if rest, ok := strings.CutPrefix(line, "btime "); ok {
			sec, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse btime: %w", err)
			}

			return time.Unix(sec, 0), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return time.Time{}, err
	}

	return time.Time{}, errors.New("btime not present in /proc/stat")
}
