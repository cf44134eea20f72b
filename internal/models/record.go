package models

import (
	"fmt"
	"time"
)

// ReviewRecord is one reviewer's contribution to one round.
type ReviewRecord struct {
	Round         int
	Label         string
	RawText       string
	SanitizedText string
	Failed        bool
	FailureReason string
	CompletedAt   time.Time
	Duration      time.Duration
}

// PlaceholderText is the neutral stand-in recorded for a failed invocation
// under the degraded policy. It must match neither verdict lexicon.
func PlaceholderText(label string) string {
	return fmt.Sprintf("[%s unavailable]", label)
}

// RoundTranscript is one completed round: every reviewer's record, ordered by
// label, plus the round's consensus classification.
type RoundTranscript struct {
	Round   int
	Records []ReviewRecord
	Status  ConsensusStatus
}

// Texts returns the sanitized response texts in record order.
func (rt RoundTranscript) Texts() []string {
	out := make([]string, len(rt.Records))
	for i, rec := range rt.Records {
		out[i] = rec.SanitizedText
	}
	return out
}

// FailedLabels returns the labels whose invocation failed this round.
func (rt RoundTranscript) FailedLabels() []string {
	var out []string
	for _, rec := range rt.Records {
		if rec.Failed {
			out = append(out, rec.Label)
		}
	}
	return out
}
