package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"consilium/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteLedger implements Ledger using modernc.org/sqlite (pure Go, no CGO).
type SQLiteLedger struct {
	db        *sql.DB
	sessionID string
}

// NewSQLiteLedger opens (or creates) a ledger database at the given path.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes the parallel reviewer goroutines through Go's pool,
	// preventing "database is locked" errors mid-round.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Sessions ---

func (s *SQLiteLedger) SaveSession(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = models.NewID()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, mode, source, content_hash, reviewers, max_rounds, search_enabled, working_dir, failure_policy, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Mode), sess.Source, sess.ContentHash, sess.Reviewers,
		sess.MaxRounds, boolToInt(sess.SearchEnabled), sess.WorkingDir, string(sess.Policy), sess.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.sessionID = sess.ID
	return nil
}

func (s *SQLiteLedger) Session(ctx context.Context) (*models.Session, error) {
	if s.sessionID == "" {
		return nil, fmt.Errorf("no session saved")
	}

	sess := &models.Session{}
	var mode, policy string
	var searchEnabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, source, content_hash, reviewers, max_rounds, search_enabled, working_dir, failure_policy, started_at
		FROM sessions WHERE id = ?`, s.sessionID,
	).Scan(&sess.ID, &mode, &sess.Source, &sess.ContentHash, &sess.Reviewers,
		&sess.MaxRounds, &searchEnabled, &sess.WorkingDir, &policy, &sess.StartedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", s.sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.Mode = models.Mode(mode)
	sess.Policy = models.FailurePolicy(policy)
	sess.SearchEnabled = searchEnabled != 0
	return sess, nil
}

func (s *SQLiteLedger) SetOutcome(ctx context.Context, status models.ConsensusStatus, reason string) error {
	if s.sessionID == "" {
		return fmt.Errorf("no session saved")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET final_status = ?, termination_reason = ? WHERE id = ?`,
		string(status), reason, s.sessionID,
	)
	if err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session not found: %s", s.sessionID)
	}
	return nil
}

// --- Records ---

func (s *SQLiteLedger) SaveRecord(ctx context.Context, rec *models.ReviewRecord) error {
	if s.sessionID == "" {
		return fmt.Errorf("no session saved")
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, session_id, round, label, raw_text, sanitized_text, failed, failure_reason, completed_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newULID(), s.sessionID, rec.Round, rec.Label, rec.RawText, rec.SanitizedText,
		boolToInt(rec.Failed), rec.FailureReason, rec.CompletedAt, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// --- Rounds ---

func (s *SQLiteLedger) SaveRoundStatus(ctx context.Context, round int, status models.ConsensusStatus) error {
	if s.sessionID == "" {
		return fmt.Errorf("no session saved")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (session_id, round, status, classified_at) VALUES (?, ?, ?, ?)`,
		s.sessionID, round, string(status), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save round status: %w", err)
	}
	return nil
}

func (s *SQLiteLedger) Rounds(ctx context.Context) ([]models.RoundTranscript, error) {
	if s.sessionID == "" {
		return nil, fmt.Errorf("no session saved")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT round, label, raw_text, sanitized_text, failed, failure_reason, completed_at, duration_ms
		FROM records WHERE session_id = ? ORDER BY round, label`, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transcripts []models.RoundTranscript
	byRound := make(map[int]int)
	for rows.Next() {
		var rec models.ReviewRecord
		var failed int
		var durationMS int64
		if err := rows.Scan(&rec.Round, &rec.Label, &rec.RawText, &rec.SanitizedText,
			&failed, &rec.FailureReason, &rec.CompletedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Failed = failed != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond

		idx, ok := byRound[rec.Round]
		if !ok {
			transcripts = append(transcripts, models.RoundTranscript{Round: rec.Round})
			idx = len(transcripts) - 1
			byRound[rec.Round] = idx
		}
		transcripts[idx].Records = append(transcripts[idx].Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	statusRows, err := s.db.QueryContext(ctx,
		`SELECT round, status FROM rounds WHERE session_id = ? ORDER BY round`, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer func() { _ = statusRows.Close() }()

	for statusRows.Next() {
		var round int
		var status string
		if err := statusRows.Scan(&round, &status); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if idx, ok := byRound[round]; ok {
			transcripts[idx].Status = models.ConsensusStatus(status)
		}
	}
	return transcripts, statusRows.Err()
}
