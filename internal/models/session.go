package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Mode selects the review checklist applied to the artifact.
type Mode string

const (
	ModePlan     Mode = "plan"
	ModeCode     Mode = "code"
	ModeAnalysis Mode = "analysis"
	ModeReport   Mode = "report"
)

func (m Mode) Valid() bool {
	switch m {
	case ModePlan, ModeCode, ModeAnalysis, ModeReport:
		return true
	}
	return false
}

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown review mode %q (want plan, code, analysis, or report)", s)
	}
	return m, nil
}

// FailurePolicy controls how the engine reacts to a failed reviewer invocation.
type FailurePolicy string

const (
	// PolicyStrict aborts the whole session on the first failed invocation.
	PolicyStrict FailurePolicy = "strict"
	// PolicyDegraded substitutes a placeholder response and continues.
	PolicyDegraded FailurePolicy = "degraded"
)

func (p FailurePolicy) Valid() bool {
	switch p {
	case PolicyStrict, PolicyDegraded:
		return true
	}
	return false
}

// ParseFailurePolicy validates a user-supplied policy string.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	p := FailurePolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown failure policy %q (want strict or degraded)", s)
	}
	return p, nil
}

// Session describes one blinded panel review run.
type Session struct {
	ID            string
	Mode          Mode
	Source        string
	ContentHash   string
	Reviewers     int
	MaxRounds     int
	SearchEnabled bool
	WorkingDir    string
	Policy        FailurePolicy
	StartedAt     time.Time
}

// NewID generates a session ULID.
func NewID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}
