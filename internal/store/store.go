package store

import (
	"context"

	"consilium/internal/models"
)

// Ledger is the per-session transcript store. One ledger file lives inside
// each session workspace, so its lifetime is the workspace's lifetime.
type Ledger interface {
	// SaveSession records the session header. Must be called before any
	// record or round write.
	SaveSession(ctx context.Context, sess *models.Session) error
	// SaveRecord persists one reviewer contribution as soon as it exists,
	// so a crashed session leaves an inspectable trail.
	SaveRecord(ctx context.Context, rec *models.ReviewRecord) error
	// SaveRoundStatus records a round's consensus classification.
	SaveRoundStatus(ctx context.Context, round int, status models.ConsensusStatus) error
	// SetOutcome records the session's final status and termination reason.
	SetOutcome(ctx context.Context, status models.ConsensusStatus, reason string) error

	// Session reads back the session header with its outcome, if any.
	Session(ctx context.Context) (*models.Session, error)
	// Rounds returns every completed round in order, records sorted by label.
	Rounds(ctx context.Context) ([]models.RoundTranscript, error)

	Migrate(ctx context.Context) error
	Close() error
}
