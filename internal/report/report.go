// Package report compiles a finished session into a Markdown document.
//
// The compiler only ever sees anonymous labels; the capability mapping is
// structurally out of reach, so no code path can leak it into a report.
package report

import (
	"fmt"
	"os"
	"strings"

	"consilium/internal/consensus"
	"consilium/internal/content"
	"consilium/internal/git"
	"consilium/internal/models"
)

// Params carries everything the compiler renders.
type Params struct {
	Session    *models.Session
	Artifact   *content.Artifact
	Rounds     []models.RoundTranscript
	Final      models.ConsensusStatus
	Reason     string
	Tally      consensus.Tally
	Incomplete []string
	VCS        *git.Context
	Version    string
}

// Compile renders the report document.
func Compile(p Params) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Blinded Panel Review Report\n\n")
	fmt.Fprintf(&b, "- Session: %s\n", p.Session.ID)
	fmt.Fprintf(&b, "- Mode: %s\n", p.Session.Mode)
	fmt.Fprintf(&b, "- Started: %s\n", p.Session.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Reviewers: %d (anonymous)\n", p.Session.Reviewers)
	fmt.Fprintf(&b, "- Rounds used: %d of %d\n", len(p.Rounds), p.Session.MaxRounds)
	if p.Version != "" {
		fmt.Fprintf(&b, "- Engine: consilium %s\n", p.Version)
	}

	b.WriteString("\n## Artifact\n\n")
	fmt.Fprintf(&b, "- Source: %s\n", p.Artifact.Source)
	fmt.Fprintf(&b, "- Size: %d bytes\n", p.Artifact.OriginalSize)
	fmt.Fprintf(&b, "- Digest: %s\n", p.Artifact.Hash)
	if p.VCS != nil {
		state := "clean"
		if p.VCS.Dirty {
			state = "dirty"
		}
		fmt.Fprintf(&b, "- Repository: %s @ %s (%s)\n", p.VCS.Branch, p.VCS.Commit, state)
	}
	if p.Artifact.Truncated {
		fmt.Fprintf(&b, "- Truncation: %s\n", strings.TrimSpace(content.TruncationMarker(p.Artifact.OriginalSize, p.Artifact.Limit)))
	}

	for _, round := range p.Rounds {
		fmt.Fprintf(&b, "\n## Round %d: %s\n", round.Round, round.Status)
		for _, rec := range round.Records {
			fmt.Fprintf(&b, "\n### %s\n\n", rec.Label)
			b.WriteString(strings.TrimSpace(rec.SanitizedText))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Outcome\n\n")
	fmt.Fprintf(&b, "- Status: %s\n", p.Final)
	fmt.Fprintf(&b, "- Reason: %s\n", p.Reason)
	fmt.Fprintf(&b, "- %s\n", rationale(p.Session.Reviewers, p.Final, p.Tally))
	if len(p.Incomplete) > 0 {
		fmt.Fprintf(&b, "- Incomplete: no response from %s\n", strings.Join(p.Incomplete, ", "))
	}

	return b.String()
}

// rationale renders the canned summary line for the final tally.
func rationale(n int, final models.ConsensusStatus, t consensus.Tally) string {
	switch final {
	case models.StatusConsensusApprove:
		return fmt.Sprintf("All %s reviewers independently approved.", numberWord(n))
	case models.StatusConsensusReject:
		return fmt.Sprintf("All %s reviewers independently rejected.", numberWord(n))
	case models.StatusMajorityApprove:
		return fmt.Sprintf("A majority of reviewers (%d of %d) approved; full consensus was not reached.", t.Approve, n)
	case models.StatusMajorityReject:
		return fmt.Sprintf("A majority of reviewers (%d of %d) rejected; full consensus was not reached.", t.Reject, n)
	case models.StatusUnclear:
		return "No reviewer stated a recognizable verdict."
	default:
		return "The panel remained split with no majority position."
	}
}

// numberWord spells out small panel sizes.
func numberWord(n int) string {
	words := []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	if n >= 0 && n < len(words) {
		return words[n]
	}
	return fmt.Sprintf("%d", n)
}

// CheckDestination verifies the report destination is writable BEFORE any
// reviewer runs, so an unwritable path fails fast instead of wasting a
// session. Files created by the probe are removed; existing files are left
// untouched.
func CheckDestination(path string) error {
	if path == "" {
		return nil
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("report destination not writable: %w", err)
	}
	_ = f.Close()

	if !existed {
		_ = os.Remove(path)
	}
	return nil
}
