// Package postgres holds the sqlx-backed progress ledger.
package postgres

import (
	"context"

	"binstudy/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ProgressLedgerImpl implements ProgressLedger for PostgreSQL
type ProgressLedgerImpl struct {
	db *sqlx.DB
}

// NewProgressLedger creates a new PostgreSQL progress ledger
func NewProgressLedger(db *sqlx.DB) *ProgressLedgerImpl {
	return &ProgressLedgerImpl{db: db}
}

var _ ports.ProgressLedger = (*ProgressLedgerImpl)(nil)

// EnsureSchema creates the ledger table when it does not exist yet.
func (r *ProgressLedgerImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS experiment_progress (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL,
			study_type TEXT NOT NULL,
			study_group TEXT NOT NULL,
			challenge_id TEXT NOT NULL,
			study_index INT NOT NULL,
			challenge_index INT NOT NULL,
			issued_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS experiment_progress_session_idx
		ON experiment_progress (session_id, issued_at)
	`)
	return err
}

// RecordAdvance appends one challenge-advance row
func (r *ProgressLedgerImpl) RecordAdvance(ctx context.Context, event ports.ProgressEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiment_progress (id, session_id, study_type, study_group, challenge_id, study_index, challenge_index, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.ID, event.SessionID, event.StudyType, event.Group, event.ChallengeID, event.StudyIndex, event.ChallengeIndex, event.IssuedAt)
	return err
}

// ListBySession returns a session's rows in issue order
func (r *ProgressLedgerImpl) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]ports.ProgressEvent, error) {
	var events []ports.ProgressEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, session_id, study_type, study_group, challenge_id, study_index, challenge_index, issued_at
		FROM experiment_progress
		WHERE session_id = $1
		ORDER BY issued_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return events, nil
}
