package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"consilium/internal/blind"
	"consilium/internal/content"
	"consilium/internal/git"
	"consilium/internal/models"
	"consilium/internal/output"
	"consilium/internal/report"
	"consilium/internal/reviewer"
	"consilium/internal/sanitize"
	"consilium/internal/store"
	"consilium/internal/workspace"
)

// Params configures one session run.
type Params struct {
	Mode          models.Mode
	Artifact      *content.Artifact
	Panel         []reviewer.Capability
	MaxRounds     int
	Timeout       time.Duration
	Policy        models.FailurePolicy
	SearchEnabled bool
	WorkingDir    string
	Retain        bool
	Version       string
	UI            *output.UI
	// Rand seeds the label shuffle; nil draws from crypto/rand. Tests
	// inject a seeded source.
	Rand rand.Source
}

// Result is what a finished session hands back to its caller.
type Result struct {
	Session *models.Session
	Outcome *Outcome
	Report  string
	// WorkspaceDir is set only when the workspace was retained.
	WorkspaceDir string
}

// RunSession runs one complete blinded review: preflight, workspace and
// ledger setup, label assignment, the round loop, and report compilation.
//
// The panel preflight runs before anything touches disk, so a missing
// capability aborts with no side effects. Once the workspace exists its
// release is deferred, which makes cleanup unconditional - normal
// completion, any error below, and signal cancellation all pass through it.
func RunSession(ctx context.Context, p Params) (*Result, error) {
	ui := p.UI
	if ui == nil {
		ui = output.Silent()
	}

	if err := reviewer.Preflight(p.Panel); err != nil {
		return nil, err
	}

	sess := &models.Session{
		ID:            models.NewID(),
		Mode:          p.Mode,
		Source:        p.Artifact.Source,
		ContentHash:   p.Artifact.Hash,
		Reviewers:     len(p.Panel),
		MaxRounds:     p.MaxRounds,
		SearchEnabled: p.SearchEnabled,
		WorkingDir:    p.WorkingDir,
		Policy:        p.Policy,
		StartedAt:     time.Now().UTC(),
	}

	ws, err := workspace.Create(sess.ID)
	if err != nil {
		return nil, err
	}
	ws.Retain = p.Retain
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			ui.Warning("workspace cleanup failed: %v", cerr)
		}
	}()

	names := reviewer.Names(p.Panel)
	assignment, err := blind.New(names, p.Rand)
	if err != nil {
		return nil, err
	}
	if err := ws.SaveAssignment(assignment); err != nil {
		return nil, err
	}

	ledger, err := store.NewSQLiteLedger(ws.LedgerPath())
	if err != nil {
		return nil, err
	}
	defer func() { _ = ledger.Close() }()

	if err := ledger.Migrate(ctx); err != nil {
		return nil, err
	}
	if err := ledger.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	ui.VerboseLog("session %s: %s review of %s, %d reviewers, up to %d rounds", sess.ID, sess.Mode, sess.Source, sess.Reviewers, sess.MaxRounds)

	eng := New(Config{
		Session:    sess,
		Artifact:   p.Artifact,
		Assignment: assignment,
		Panel:      p.Panel,
		Sanitizer:  sanitize.New(names...),
		Ledger:     ledger,
		Workspace:  ws,
		Timeout:    p.Timeout,
		UI:         ui,
	})

	outcome, err := eng.Run(ctx)
	if err != nil {
		return nil, err
	}

	if err := ledger.SetOutcome(ctx, outcome.Final, outcome.Reason); err != nil {
		return nil, err
	}

	// Compile from the ledger's read-back, not the in-memory rounds: the
	// report then reflects exactly what was persisted.
	rounds, err := ledger.Rounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("read back transcript: %w", err)
	}

	res := &Result{
		Session: sess,
		Outcome: outcome,
		Report: report.Compile(report.Params{
			Session:    sess,
			Artifact:   p.Artifact,
			Rounds:     rounds,
			Final:      outcome.Final,
			Reason:     outcome.Reason,
			Tally:      outcome.Tally,
			Incomplete: outcome.Incomplete,
			VCS:        git.Capture(git.NewClient(), p.WorkingDir),
			Version:    p.Version,
		}),
	}
	if p.Retain {
		res.WorkspaceDir = ws.Dir
		ui.Info("Workspace retained: %s", ws.Dir)
	}
	return res, nil
}
