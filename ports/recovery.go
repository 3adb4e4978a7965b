package ports

import (
	"context"

	"binstudy/domain/core"
)

// StudySnapshot is the persisted form of one Study.
type StudySnapshot struct {
	Type       string   `json:"type"`
	Group      string   `json:"group"`
	Challenges []string `json:"challenges"`
	Cursor     int      `json:"cursor"`
}

// RecoveryRecord is the minimal crash-recovery checkpoint, written after
// every successful challenge advance and deleted on experiment completion.
// Its presence at startup overrides fresh random assignment.
type RecoveryRecord struct {
	Digest         string          `json:"digest"`
	FirstStudy     int             `json:"first_study"`
	GroupLetters   string          `json:"group_letters"`
	ChallengeOrder []int           `json:"challenge_order"`
	StudyIndex     int             `json:"study_index"`
	Studies        []StudySnapshot `json:"studies"`
	SavedAt        core.Timestamp  `json:"saved_at"`
}

// RecoveryStore persists the crash-recovery record.
//
// Load returns core.ErrRecoveryMissing when no record exists and
// core.ErrRecoveryCorrupt (after discarding the offending record) when one
// exists but cannot be trusted.
type RecoveryStore interface {
	Load(ctx context.Context) (*RecoveryRecord, error)
	Save(ctx context.Context, record *RecoveryRecord) error
	Clear(ctx context.Context) error
}
