// Package engine runs the blinded multi-round review protocol: independent
// round-1 opinions, anonymized discussion rounds, and consensus checks after
// every round.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"consilium/internal/blind"
	"consilium/internal/consensus"
	"consilium/internal/content"
	"consilium/internal/models"
	"consilium/internal/output"
	"consilium/internal/reviewer"
	"consilium/internal/sanitize"
	"consilium/internal/store"
	"consilium/internal/workspace"
)

// InvocationError aborts a session under the strict failure policy. It names
// the anonymous label, never the capability.
type InvocationError struct {
	Round int
	Label string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("round %d: %s invocation failed: %v", e.Round, e.Label, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Config wires one session's dependencies into an Engine.
type Config struct {
	Session    *models.Session
	Artifact   *content.Artifact
	Assignment *blind.Assignment
	Panel      []reviewer.Capability
	Sanitizer  *sanitize.Sanitizer
	Ledger     store.Ledger
	Workspace  *workspace.Workspace
	Timeout    time.Duration
	UI         *output.UI
}

// Engine drives the round state machine over one fixed, blinded panel.
type Engine struct {
	session    *models.Session
	artifact   *content.Artifact
	assignment *blind.Assignment
	caps       map[string]reviewer.Capability
	sanitizer  *sanitize.Sanitizer
	ledger     store.Ledger
	ws         *workspace.Workspace
	timeout    time.Duration
	ui         *output.UI
}

// New indexes the panel by anonymous label. From here on the engine never
// touches a capability name again.
func New(cfg Config) *Engine {
	caps := make(map[string]reviewer.Capability, len(cfg.Panel))
	for _, c := range cfg.Panel {
		caps[cfg.Assignment.LabelFor(c.Name())] = c
	}
	ui := cfg.UI
	if ui == nil {
		ui = output.Silent()
	}
	return &Engine{
		session:    cfg.Session,
		artifact:   cfg.Artifact,
		assignment: cfg.Assignment,
		caps:       caps,
		sanitizer:  cfg.Sanitizer,
		ledger:     cfg.Ledger,
		ws:         cfg.Workspace,
		timeout:    cfg.Timeout,
		ui:         ui,
	}
}

// Outcome is the terminal state of a finished session.
type Outcome struct {
	Final      models.ConsensusStatus
	Reason     string
	Tally      consensus.Tally
	Rounds     []models.RoundTranscript
	Incomplete []string
}

// Run executes rounds until the panel is unanimous, the round budget is
// spent, or the context is cancelled. Round 1 is independent; every later
// round discusses the previous round's anonymized transcript.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	var rounds []models.RoundTranscript

	for k := 1; k <= e.session.MaxRounds; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if k == 1 {
			e.ui.Info("Round 1: collecting independent reviews from %d reviewers", len(e.caps))
		} else {
			e.ui.Info("Round %d: panel discussing round %d positions", k, k-1)
		}

		rt, err := e.collect(ctx, k, rounds)
		if err != nil {
			return nil, err
		}

		status, tally := consensus.Classify(rt.Texts())
		rt.Status = status
		if err := e.ledger.SaveRoundStatus(ctx, k, status); err != nil {
			return nil, err
		}
		rounds = append(rounds, *rt)
		e.ui.Info("Round %d classified %s (approve %d, reject %d)", k, output.ConsensusColor(status), tally.Approve, tally.Reject)

		if status.Terminal() {
			return e.outcome(rounds, status, tally, models.TerminationReasonUnanimous), nil
		}
		if k == e.session.MaxRounds {
			return e.outcome(rounds, status, tally, models.TerminationReasonExhausted), nil
		}
	}

	// MaxRounds is validated positive before the engine is built.
	return nil, fmt.Errorf("no rounds executed")
}

// collect runs one round: every reviewer invoked in parallel, one goroutine
// each, joined on a WaitGroup barrier. The round is never classified - and
// the next prompt never assembled - until every invocation has returned.
func (e *Engine) collect(ctx context.Context, round int, prior []models.RoundTranscript) (*models.RoundTranscript, error) {
	labels := e.assignment.Labels()
	records := make([]models.ReviewRecord, len(labels))
	errs := make([]error, len(labels))

	var wg sync.WaitGroup
	for i, label := range labels {
		prompt := e.promptFor(round, label, prior)
		wg.Add(1)
		go func(i int, label, prompt string) {
			defer wg.Done()
			records[i], errs[i] = e.invoke(ctx, round, label, prompt)
		}(i, label, prompt)
	}
	wg.Wait()

	// A cancelled session produces no transcript at all; an individual
	// timeout inside a live session is an invocation failure instead.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Persist every record before applying the failure policy, so even an
	// aborted strict session leaves a complete trail for the round.
	for i := range records {
		if err := e.ledger.SaveRecord(ctx, &records[i]); err != nil {
			return nil, err
		}
		if err := e.ws.WriteRecord(&records[i]); err != nil {
			return nil, err
		}
	}

	if e.session.Policy == models.PolicyStrict {
		for i := range records {
			if errs[i] != nil {
				return nil, &InvocationError{Round: round, Label: records[i].Label, Err: errs[i]}
			}
		}
	}

	return &models.RoundTranscript{Round: round, Records: records}, nil
}

// invoke issues one reviewer call under its own wall-clock budget. The
// returned record is complete either way: a failure carries the neutral
// placeholder as its sanitized text.
func (e *Engine) invoke(ctx context.Context, round int, label, prompt string) (models.ReviewRecord, error) {
	rec := models.ReviewRecord{Round: round, Label: label}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.caps[label].Review(cctx, reviewer.Request{
		Label:         label,
		Prompt:        prompt,
		WorkingDir:    e.session.WorkingDir,
		SearchEnabled: e.session.SearchEnabled,
	})
	rec.Duration = time.Since(start)
	rec.CompletedAt = time.Now().UTC()

	if err != nil {
		rec.Failed = true
		rec.FailureReason = err.Error()
		rec.SanitizedText = models.PlaceholderText(label)
		// Terminal output pairs the label with a failure class only; the
		// full error (which may name the capability) stays in the
		// operator-restricted ledger.
		if errors.Is(err, context.DeadlineExceeded) {
			e.ui.Warning("%s timed out after %s", label, e.timeout)
		} else {
			e.ui.Warning("%s produced no response", label)
		}
		return rec, err
	}

	rec.RawText = raw
	rec.SanitizedText = e.sanitizer.Clean(raw)
	e.ui.VerboseLog("%s responded (%d bytes in %s)", label, len(raw), rec.Duration.Round(time.Millisecond))
	return rec, nil
}

// promptFor selects the round-1 or discussion prompt for a label.
func (e *Engine) promptFor(round int, label string, prior []models.RoundTranscript) string {
	if round == 1 {
		return round1Prompt(label, e.session.Mode, e.artifact.Text)
	}
	return discussionPrompt(label, round, prior[len(prior)-1], e.session.Mode, e.artifact.Text)
}

// outcome assembles the terminal state, including the labels that failed at
// least one round under the degraded policy.
func (e *Engine) outcome(rounds []models.RoundTranscript, final models.ConsensusStatus, tally consensus.Tally, reason string) *Outcome {
	var incomplete []string
	for _, rt := range rounds {
		for _, label := range rt.FailedLabels() {
			if !slices.Contains(incomplete, label) {
				incomplete = append(incomplete, label)
			}
		}
	}
	slices.Sort(incomplete)

	return &Outcome{
		Final:      final,
		Reason:     reason,
		Tally:      tally,
		Rounds:     rounds,
		Incomplete: incomplete,
	}
}
