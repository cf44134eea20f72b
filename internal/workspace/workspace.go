// Package workspace manages the ephemeral per-session directory tree.
//
// Layout:
//
//	consilium-<session>-*/
//	    assignment.json    label-to-capability mapping, mode 0600
//	    session.pid        owning process, for orphan sweeps
//	    ledger.db          sqlite transcript ledger
//	    rounds/round-<k>/<label>.md
//
// The tree is removed when the session closes unless retention was requested.
// A process killed before its deferred cleanup leaves the tree behind; Sweep
// reclaims those by probing the recorded pid.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"consilium/internal/blind"
	"consilium/internal/models"
)

const (
	prefix         = "consilium-"
	assignmentFile = "assignment.json"
	pidFileName    = "session.pid"
	ledgerFile     = "ledger.db"
	roundsDir      = "rounds"
)

// Workspace is one session's scratch tree.
type Workspace struct {
	Dir    string
	Retain bool
}

// Create makes the workspace under the system temp dir and stamps it with
// the owning pid.
func Create(sessionID string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", prefix+sessionID+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	if err := newPidFile(filepath.Join(dir, pidFileName)).write(); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, roundsDir), 0755); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("create rounds dir: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// LedgerPath is where the session's transcript ledger lives.
func (w *Workspace) LedgerPath() string {
	return filepath.Join(w.Dir, ledgerFile)
}

// SaveAssignment persists the secret mapping, readable by the operator only.
func (w *Workspace) SaveAssignment(a *blind.Assignment) error {
	data, err := a.MarshalSecret()
	if err != nil {
		return fmt.Errorf("marshal assignment: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dir, assignmentFile), data, 0600); err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

// WriteRecord stores one sanitized response under rounds/.
func (w *Workspace) WriteRecord(rec *models.ReviewRecord) error {
	dir := filepath.Join(w.Dir, roundsDir, fmt.Sprintf("round-%d", rec.Round))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create round dir: %w", err)
	}
	path := filepath.Join(dir, rec.Label+".md")
	if err := os.WriteFile(path, []byte(rec.SanitizedText), 0644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close releases the workspace. Retained workspaces are left in place for
// the operator to inspect.
func (w *Workspace) Close() error {
	if w.Retain {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// Orphans lists workspaces in the system temp dir whose owning process is
// gone. Workspaces without a readable pid file are left alone.
func Orphans() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), prefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("scan temp dir: %w", err)
	}

	var orphans []string
	for _, dir := range matches {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		pf := newPidFile(filepath.Join(dir, pidFileName))
		pid, err := pf.read()
		if err != nil || pid <= 0 {
			continue
		}
		if pf.isRunning(pid) {
			continue
		}
		orphans = append(orphans, dir)
	}
	return orphans, nil
}

// Sweep removes every orphaned workspace and returns the removed paths.
func Sweep() ([]string, error) {
	orphans, err := Orphans()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, dir := range orphans {
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("remove orphan %s: %w", dir, err)
		}
		removed = append(removed, dir)
	}
	return removed, nil
}
