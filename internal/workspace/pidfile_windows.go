//go:build windows

package workspace

import (
	"os"
	"syscall"
)

// isRunning tests process existence. FindProcess always succeeds on
// Windows, so probe with a zero signal.
func (p *pidFile) isRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
