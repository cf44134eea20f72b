package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/internal/consensus"
	"consilium/internal/content"
	"consilium/internal/git"
	"consilium/internal/models"
)

func sampleSession() *models.Session {
	return &models.Session{
		ID:        "01TESTSESSION",
		Mode:      models.ModeCode,
		Source:    "inline",
		Reviewers: 3,
		MaxRounds: 3,
		Policy:    models.PolicyDegraded,
		StartedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func record(round int, label, text string) models.ReviewRecord {
	return models.ReviewRecord{Round: round, Label: label, SanitizedText: text}
}

func TestCompileUnanimousRejection(t *testing.T) {
	doc := Compile(Params{
		Session:  sampleSession(),
		Artifact: content.FromText("the artifact", 1024),
		Rounds: []models.RoundTranscript{
			{
				Round:  1,
				Status: models.StatusConsensusReject,
				Records: []models.ReviewRecord{
					record(1, "Reviewer-Alpha", "Unsound migration ordering.\nVERDICT: REJECT"),
					record(1, "Reviewer-Bravo", "No rollback path.\nVERDICT: REJECT"),
					record(1, "Reviewer-Charlie", "Data loss risk.\nVERDICT: REJECT"),
				},
			},
		},
		Final:   models.StatusConsensusReject,
		Reason:  models.TerminationReasonUnanimous,
		Tally:   consensus.Tally{Reject: 3},
		Version: "v1.0.0",
	})

	assert.Contains(t, doc, "# Blinded Panel Review Report")
	assert.Contains(t, doc, "- Session: 01TESTSESSION")
	assert.Contains(t, doc, "- Rounds used: 1 of 3")
	assert.Contains(t, doc, "## Round 1: CONSENSUS_REJECT")
	assert.Contains(t, doc, "### Reviewer-Alpha")
	assert.Contains(t, doc, "Unsound migration ordering.")
	assert.Contains(t, doc, "- Status: CONSENSUS_REJECT")
	assert.Contains(t, doc, "- Reason: unanimous")
	assert.Contains(t, doc, "All three reviewers independently rejected.")
}

func TestCompileMajorityWithIncomplete(t *testing.T) {
	doc := Compile(Params{
		Session:  sampleSession(),
		Artifact: content.FromText("the artifact", 1024),
		Rounds: []models.RoundTranscript{
			{
				Round:  1,
				Status: models.StatusMajorityApprove,
				Records: []models.ReviewRecord{
					record(1, "Reviewer-Alpha", "VERDICT: APPROVE"),
					record(1, "Reviewer-Bravo", "VERDICT: APPROVE"),
					{Round: 1, Label: "Reviewer-Charlie", Failed: true, FailureReason: "timeout",
						SanitizedText: models.PlaceholderText("Reviewer-Charlie")},
				},
			},
		},
		Final:      models.StatusMajorityApprove,
		Reason:     models.TerminationReasonExhausted,
		Tally:      consensus.Tally{Approve: 2},
		Incomplete: []string{"Reviewer-Charlie"},
	})

	assert.Contains(t, doc, "A majority of reviewers (2 of 3) approved")
	assert.Contains(t, doc, "Incomplete: no response from Reviewer-Charlie")
	assert.Contains(t, doc, "[Reviewer-Charlie unavailable]")
}

func TestCompileTruncationNote(t *testing.T) {
	big := strings.Repeat("x", 2000)
	doc := Compile(Params{
		Session:  sampleSession(),
		Artifact: content.FromText(big, 500),
		Rounds:   nil,
		Final:    models.StatusUnclear,
		Reason:   models.TerminationReasonExhausted,
	})

	assert.Contains(t, doc, "original size 2000 bytes")
	assert.Contains(t, doc, "- Size: 2000 bytes")
}

func TestCompileVCSContext(t *testing.T) {
	doc := Compile(Params{
		Session:  sampleSession(),
		Artifact: content.FromText("x", 100),
		Final:    models.StatusNoConsensus,
		Reason:   models.TerminationReasonExhausted,
		VCS:      &git.Context{Branch: "main", Commit: "ab12cd3", Dirty: true},
	})

	assert.Contains(t, doc, "- Repository: main @ ab12cd3 (dirty)")
}

func TestCompileNeverNamesCapabilities(t *testing.T) {
	// The compiler receives labels only; a clean transcript must stay clean.
	doc := Compile(Params{
		Session:  sampleSession(),
		Artifact: content.FromText("artifact", 100),
		Rounds: []models.RoundTranscript{
			{
				Round:  1,
				Status: models.StatusConsensusApprove,
				Records: []models.ReviewRecord{
					record(1, "Reviewer-Alpha", "VERDICT: APPROVE"),
					record(1, "Reviewer-Bravo", "VERDICT: APPROVE"),
					record(1, "Reviewer-Charlie", "VERDICT: APPROVE"),
				},
			},
		},
		Final:  models.StatusConsensusApprove,
		Reason: models.TerminationReasonUnanimous,
		Tally:  consensus.Tally{Approve: 3},
	})

	lower := strings.ToLower(doc)
	for _, name := range []string{"claude", "codex", "gemini"} {
		assert.NotContains(t, lower, name)
	}
}

func TestNumberWord(t *testing.T) {
	assert.Equal(t, "three", numberWord(3))
	assert.Equal(t, "ten", numberWord(10))
	assert.Equal(t, "12", numberWord(12))
}

func TestCheckDestination(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "report.md")
	require.NoError(t, CheckDestination(path))
	assert.NoFileExists(t, path, "probe file should be cleaned up")

	existing := filepath.Join(dir, "existing.md")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0644))
	require.NoError(t, CheckDestination(existing))
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data), "existing file must not be touched")

	assert.Error(t, CheckDestination(filepath.Join(dir, "missing-dir", "report.md")))
	assert.NoError(t, CheckDestination(""))
}
