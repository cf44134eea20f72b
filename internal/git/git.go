// Package git shells out to git for the repository context recorded in
// review reports.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Context is the VCS state captured for a report's artifact section.
type Context struct {
	Branch string
	Commit string
	Dirty  bool
}

// Client defines the git operations the report compiler needs. Methods take
// a path parameter since sessions review artifacts anywhere on disk.
type Client interface {
	RepoRoot(path string) (string, error)
	CurrentBranch(path string) (string, error)
	LastCommitHash(path string) (string, error)
	IsDirty(path string) (bool, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
}

func (c *RealClient) LastCommitHash(path string) (string, error) {
	return gitCmd(path, "log", "-1", "--format=%h")
}

func (c *RealClient) IsDirty(path string) (bool, error) {
	out, err := gitCmd(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Capture collects the context for path, or nil when path is not inside a
// git repository. Best effort: reports simply omit the section.
func Capture(c Client, path string) *Context {
	if path == "" {
		return nil
	}
	if _, err := c.RepoRoot(path); err != nil {
		return nil
	}
	branch, err := c.CurrentBranch(path)
	if err != nil {
		return nil
	}
	commit, err := c.LastCommitHash(path)
	if err != nil {
		return nil
	}
	dirty, _ := c.IsDirty(path)
	return &Context{Branch: branch, Commit: commit, Dirty: dirty}
}
