package workspace

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// pidFile records which process owns a workspace.
type pidFile struct {
	path string
}

func newPidFile(path string) *pidFile {
	return &pidFile{path: path}
}

func (p *pidFile) write() error {
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func (p *pidFile) read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file content: %w", err)
	}
	return pid, nil
}
