// Package consensus classifies a round of reviewer responses into a
// consensus status.
package consensus

import (
	"regexp"
	"strings"

	"consilium/internal/models"
)

// Tally counts the verdicts extracted from one round.
type Tally struct {
	Approve int
	Reject  int
}

// verdictLine matches a structured verdict declaration. Prompts instruct
// reviewers to end their response with one; when several appear, the last
// one governs.
var verdictLine = regexp.MustCompile(`(?im)^\s*verdict:\s*(.+)$`)

// Lowercase substring lexicons for the free-text fallback. Markers are kept
// short and unambiguous; a text matching both lexicons counts toward both
// tallies (accepted lossiness of the heuristic).
var (
	approveMarkers = []string{"approve", "lgtm", "looks good", "ship it"}
	rejectMarkers  = []string{"reject", "request changes", "changes requested", "do not merge", "needs work", "decline"}
)

// Classify tallies verdicts across a round's sanitized texts and maps the
// tallies onto a consensus status for a panel of len(texts) reviewers.
func Classify(texts []string) (models.ConsensusStatus, Tally) {
	var t Tally
	for _, text := range texts {
		approve, reject := verdictOf(text)
		if approve {
			t.Approve++
		}
		if reject {
			t.Reject++
		}
	}
	return statusFor(len(texts), t), t
}

// verdictOf extracts one reviewer's position. A structured VERDICT: line is
// preferred; free text falls back to the lexicon scan.
func verdictOf(text string) (approve, reject bool) {
	if matches := verdictLine.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		v := strings.ToLower(matches[len(matches)-1][1])
		approve = containsAny(v, approveMarkers)
		reject = containsAny(v, rejectMarkers)
		if approve && reject {
			// An ambiguous declaration counts as no verdict at all.
			return false, false
		}
		return approve, reject
	}

	lower := strings.ToLower(text)
	return containsAny(lower, approveMarkers), containsAny(lower, rejectMarkers)
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// statusFor applies the classification rules for a panel of n reviewers with
// approval tally a and rejection tally r:
//
//	a+r = 0        -> UNCLEAR
//	a = n          -> CONSENSUS_APPROVE
//	r = n          -> CONSENSUS_REJECT
//	a = n-1        -> MAJORITY_APPROVE
//	r = n-1        -> MAJORITY_REJECT
//	otherwise      -> NO_CONSENSUS
func statusFor(n int, t Tally) models.ConsensusStatus {
	switch {
	case t.Approve+t.Reject == 0:
		return models.StatusUnclear
	case t.Approve == n:
		return models.StatusConsensusApprove
	case t.Reject == n:
		return models.StatusConsensusReject
	case t.Approve == n-1:
		return models.StatusMajorityApprove
	case t.Reject == n-1:
		return models.StatusMajorityReject
	default:
		return models.StatusNoConsensus
	}
}
