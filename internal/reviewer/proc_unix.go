//go:build !windows

package reviewer

import (
	"os/exec"
	"syscall"
	"time"
)

// configureProc places the child in its own process group so termination
// reaches the whole tree, not just the immediate child.
func configureProc(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProc delivers SIGTERM to the process group, waits out the grace
// period, then SIGKILLs whatever is left. done carries the cmd.Wait result
// and is always drained before returning.
func terminateProc(cmd *exec.Cmd, grace time.Duration, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil || pgid <= 0 {
		_ = cmd.Process.Kill()
		<-done
		return
	}

	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	select {
	case <-done:
		return
	case <-time.After(grace):
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
	<-done
}
