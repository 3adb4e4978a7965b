// Package memory provides the in-memory progress ledger used in tests and
// when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"binstudy/ports"

	"github.com/google/uuid"
)

// ProgressLedger is a mutex-guarded in-memory ledger.
type ProgressLedger struct {
	mu     sync.RWMutex
	events []ports.ProgressEvent
}

// NewProgressLedger creates an empty ledger.
func NewProgressLedger() *ProgressLedger {
	return &ProgressLedger{}
}

// RecordAdvance appends one challenge-advance row
func (l *ProgressLedger) RecordAdvance(ctx context.Context, event ports.ProgressEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// ListBySession returns a session's rows in issue order
func (l *ProgressLedger) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]ports.ProgressEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []ports.ProgressEvent
	for _, e := range l.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

var _ ports.ProgressLedger = (*ProgressLedger)(nil)
