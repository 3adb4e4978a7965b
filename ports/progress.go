package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProgressEvent is one row of the progress ledger: a single successful
// challenge advance. The ledger is append-only; re-delivery of a challenge
// after a crash may produce a duplicate row, which consumers must tolerate.
type ProgressEvent struct {
	ID             uuid.UUID `json:"id" db:"id"`
	SessionID      uuid.UUID `json:"session_id" db:"session_id"`
	StudyType      string    `json:"study_type" db:"study_type"`
	Group          string    `json:"study_group" db:"study_group"`
	ChallengeID    string    `json:"challenge_id" db:"challenge_id"`
	StudyIndex     int       `json:"study_index" db:"study_index"`
	ChallengeIndex int       `json:"challenge_index" db:"challenge_index"`
	IssuedAt       time.Time `json:"issued_at" db:"issued_at"`
}

// ProgressLedger records challenge advances for later correlation with the
// external survey. Writes are best-effort from the experiment's point of
// view: a ledger failure is logged, never surfaced to the participant.
type ProgressLedger interface {
	RecordAdvance(ctx context.Context, event ProgressEvent) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]ProgressEvent, error)
}
