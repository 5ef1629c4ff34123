// Package archive stores completed interview sessions in SQLite so reports
// survive process restarts. Each Store owns its own connection; callers
// construct and close it explicitly.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	"interviewcoach/pkg/logx"
)

// ErrNotFound is returned when no record exists for a session ID.
var ErrNotFound = errors.New("session record not found")

const schema = `
CREATE TABLE IF NOT EXISTS session_records (
	session_id        TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	interview_type    TEXT NOT NULL,
	level             TEXT NOT NULL,
	complexity        TEXT NOT NULL,
	started_at        TIMESTAMP NOT NULL,
	completed_at      TIMESTAMP NOT NULL,
	final_phase       TEXT NOT NULL,
	scores_json       TEXT NOT NULL DEFAULT '{}',
	report            TEXT NOT NULL DEFAULT '',
	transition_count  INTEGER NOT NULL DEFAULT 0,
	intervention_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_session_records_user ON session_records(user_id, completed_at);
`

// Record is one archived session.
type Record struct {
	SessionID         string
	UserID            string
	InterviewType     string
	Level             string
	Complexity        string
	StartedAt         time.Time
	CompletedAt       time.Time
	FinalPhase        string
	Scores            map[string]float64
	Report            string
	TransitionCount   int
	InterventionCount int
}

// Store is a SQLite-backed archive.
type Store struct {
	logger *logx.Logger
	db     *sql.DB
}

// Open creates or opens the archive database at path with WAL mode and a
// busy timeout, and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}

	s := &Store{
		logger: logx.NewLogger("archive"),
		db:     db,
	}
	s.logger.Info("archive opened at %s", path)
	return s, nil
}

// Save upserts a session record.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_records (
			session_id, user_id, interview_type, level, complexity,
			started_at, completed_at, final_phase, scores_json, report,
			transition_count, intervention_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			completed_at = excluded.completed_at,
			final_phase = excluded.final_phase,
			scores_json = excluded.scores_json,
			report = excluded.report,
			transition_count = excluded.transition_count,
			intervention_count = excluded.intervention_count`,
		rec.SessionID, rec.UserID, rec.InterviewType, rec.Level, rec.Complexity,
		rec.StartedAt.UTC(), rec.CompletedAt.UTC(), rec.FinalPhase, string(scores), rec.Report,
		rec.TransitionCount, rec.InterventionCount,
	)
	if err != nil {
		return fmt.Errorf("save session record %s: %w", rec.SessionID, err)
	}

	s.logger.Debug("archived session %s (final phase %s)", rec.SessionID, rec.FinalPhase)
	return nil
}

// Get loads one session record by ID.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, interview_type, level, complexity,
			started_at, completed_at, final_phase, scores_json, report,
			transition_count, intervention_count
		FROM session_records WHERE session_id = ?`, sessionID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session record %s: %w", sessionID, err)
	}
	return rec, nil
}

// ListByUser returns a user's archived sessions, most recent first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, interview_type, level, complexity,
			started_at, completed_at, final_phase, scores_json, report,
			transition_count, intervention_count
		FROM session_records WHERE user_id = ?
		ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list session records for %s: %w", userID, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session records: %w", err)
	}
	return records, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close archive database: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var rec Record
	var scores string
	err := row.Scan(
		&rec.SessionID, &rec.UserID, &rec.InterviewType, &rec.Level, &rec.Complexity,
		&rec.StartedAt, &rec.CompletedAt, &rec.FinalPhase, &scores, &rec.Report,
		&rec.TransitionCount, &rec.InterventionCount,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	return &rec, nil
}
