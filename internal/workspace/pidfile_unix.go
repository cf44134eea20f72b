//go:build !windows

package workspace

import "syscall"

// isRunning tests process existence with signal 0.
func (p *pidFile) isRunning(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
