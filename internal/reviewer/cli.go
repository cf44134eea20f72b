package reviewer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// CLIReviewer invokes an external agent CLI as a subprocess, prompt as the
// final argument, stdout as the response.
type CLIReviewer struct {
	name       string
	command    string
	args       []string
	searchArgs []string
	grace      time.Duration
}

// NewCLI builds a CLI capability. An empty command defaults to the
// capability name.
func NewCLI(name, command string, args, searchArgs []string, grace time.Duration) *CLIReviewer {
	if command == "" {
		command = name
	}
	return &CLIReviewer{
		name:       name,
		command:    command,
		args:       args,
		searchArgs: searchArgs,
		grace:      grace,
	}
}

func (r *CLIReviewer) Name() string { return r.name }

func (r *CLIReviewer) Available() error {
	if _, err := exec.LookPath(r.command); err != nil {
		return fmt.Errorf("command %q not found: %w", r.command, err)
	}
	return nil
}

// Review runs the command in the request's working directory. The child gets
// its own process group; when ctx expires, the group receives SIGTERM, then
// SIGKILL after the grace period.
func (r *CLIReviewer) Review(ctx context.Context, req Request) (string, error) {
	args := slices.Clone(r.args)
	if req.SearchEnabled {
		args = append(args, r.searchArgs...)
	}
	args = append(args, req.Prompt)

	cmd := exec.Command(r.command, args...)
	cmd.Dir = req.WorkingDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProc(cmd)

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", r.name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("%s exited: %w%s", r.name, err, stderrTail(&stderr))
		}
		return stdout.String(), nil
	case <-ctx.Done():
		terminateProc(cmd, r.grace, done)
		return "", fmt.Errorf("%s terminated: %w", r.name, ctx.Err())
	}
}

// stderrTail trims stderr to a useful suffix for error messages.
func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return ""
	}
	if len(s) > 400 {
		s = s[len(s)-400:]
	}
	return ": " + s
}
