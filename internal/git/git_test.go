package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	cmds := [][]string{
		{"git", "-C", dir, "init"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
		{"git", "-C", dir, "commit", "--allow-empty", "-m", "init"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func TestCaptureInRepo(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	ctx := Capture(NewClient(), dir)
	require.NotNil(t, ctx)

	assert.NotEmpty(t, ctx.Branch)
	assert.NotEmpty(t, ctx.Commit)
	assert.False(t, ctx.Dirty)
}

func TestCaptureDirtyRepo(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("wip"), 0644))

	ctx := Capture(NewClient(), dir)
	require.NotNil(t, ctx)
	assert.True(t, ctx.Dirty)
}

func TestCaptureOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	assert.Nil(t, Capture(NewClient(), t.TempDir()))
	assert.Nil(t, Capture(NewClient(), ""))
}

func TestIsDirty(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	c := NewClient()
	dirty, err := c.IsDirty(dir)
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644))
	dirty, err = c.IsDirty(dir)
	require.NoError(t, err)
	assert.True(t, dirty)
}
