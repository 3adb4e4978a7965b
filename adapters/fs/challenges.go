// Package fs holds the file-backed adapters: challenge enumeration, the
// crash-recovery checkpoint, and the external assignment-log watcher.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"binstudy/domain/core"
	"binstudy/domain/experiment"
	"binstudy/internal"
)

// ChallengeRepository enumerates challenge binaries from a directory tree
// with one subdirectory per study type:
//
//	<root>/proximity/<challenge files>
//	<root>/data_dep/<challenge files>
//
// Enumeration is sorted by filename so the canonical order is stable; the
// experiment applies the assigned permutation on top.
type ChallengeRepository struct {
	root   string
	logger *internal.Logger
}

// NewChallengeRepository creates a repository rooted at dir.
func NewChallengeRepository(dir string, logger *internal.Logger) *ChallengeRepository {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &ChallengeRepository{root: dir, logger: logger.Named("challenges")}
}

// ListByStudy returns the sorted challenge paths for one study type.
func (r *ChallengeRepository) ListByStudy(ctx context.Context, studyType experiment.StudyType) ([]core.ChallengeID, error) {
	if !studyType.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownStudyType, int(studyType))
	}

	dir := filepath.Join(r.root, studyType.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read challenge directory %s: %w", dir, err)
	}

	var challenges []core.ChallengeID
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		challenges = append(challenges, core.ChallengeID(filepath.Join(dir, entry.Name())))
	}
	sort.Slice(challenges, func(i, j int) bool { return challenges[i] < challenges[j] })

	r.logger.Debug("enumerated %d challenges for study %s", len(challenges), studyType)
	return challenges, nil
}
