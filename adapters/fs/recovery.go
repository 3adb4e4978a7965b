package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"binstudy/domain/core"
	"binstudy/internal"
	"binstudy/ports"
)

// RecoveryStore persists the crash-recovery record as a single JSON file.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a half-written checkpoint behind.
type RecoveryStore struct {
	path   string
	logger *internal.Logger
}

// NewRecoveryStore creates a store writing to path.
func NewRecoveryStore(path string, logger *internal.Logger) *RecoveryStore {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &RecoveryStore{path: path, logger: logger.Named("recovery")}
}

// Load reads the checkpoint. A missing file is core.ErrRecoveryMissing. An
// unparseable file is deleted on the spot and reported as
// core.ErrRecoveryCorrupt; the caller falls back to fresh assignment.
func (s *RecoveryStore) Load(ctx context.Context) (*ports.RecoveryRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.ErrRecoveryMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read recovery log: %w", err)
	}

	var record ports.RecoveryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Error("discarding malformed recovery log %s: %v", s.path, err)
		if removeErr := os.Remove(s.path); removeErr != nil {
			s.logger.Error("failed to remove malformed recovery log: %v", removeErr)
		}
		return nil, core.NewRecoveryCorruptError(err.Error())
	}
	return &record, nil
}

// Save atomically replaces the checkpoint.
func (s *RecoveryStore) Save(ctx context.Context, record *ports.RecoveryRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recovery record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".recovery-*.json")
	if err != nil {
		return fmt.Errorf("create temp recovery file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write recovery record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp recovery file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace recovery log: %w", err)
	}
	return nil
}

// Clear removes the checkpoint; a missing file is not an error.
func (s *RecoveryStore) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove recovery log: %w", err)
	}
	return nil
}
