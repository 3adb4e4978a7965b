package ports

import (
	"context"

	"binstudy/domain/core"
	"binstudy/domain/experiment"
)

// ChallengeRepository enumerates the canonical (pre-permutation) challenge
// identifiers for a study type. Implementations must return a stable order;
// the experiment applies the assigned permutation on top.
type ChallengeRepository interface {
	ListByStudy(ctx context.Context, studyType experiment.StudyType) ([]core.ChallengeID, error)
}
