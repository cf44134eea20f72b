//go:build windows

package reviewer

import (
	"os/exec"
	"time"
)

func configureProc(cmd *exec.Cmd) {}

// Windows has no signalable process groups; kill the child directly.
func terminateProc(cmd *exec.Cmd, _ time.Duration, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	<-done
}
