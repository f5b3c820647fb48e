//go:build !windows

package host

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
