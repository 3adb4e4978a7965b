package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"binstudy/internal"
	"binstudy/ports"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
)

// SessionSummary aggregates one session's ledger rows for the study
// coordinators: how far the participant got, and how long the gaps between
// challenge advances were.
type SessionSummary struct {
	SessionID     uuid.UUID
	TotalAdvances int
	PerStudy      map[string]int

	// Inter-advance gap statistics, zero when fewer than two rows exist.
	MeanGap   time.Duration
	MedianGap time.Duration
	P90Gap    time.Duration
}

// ReportService turns the progress ledger into coordinator-facing numbers
// and exports them as a workbook.
type ReportService struct {
	ledger ports.ProgressLedger
	writer ports.ReportWriter
	logger *internal.Logger
}

// NewReportService creates a report service over a ledger and a writer.
func NewReportService(ledger ports.ProgressLedger, writer ports.ReportWriter, logger *internal.Logger) *ReportService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &ReportService{ledger: ledger, writer: writer, logger: logger.Named("report")}
}

// Summarize computes the session's progress summary from the ledger.
func (r *ReportService) Summarize(ctx context.Context, sessionID uuid.UUID) (*SessionSummary, error) {
	events, err := r.ledger.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list progress events: %w", err)
	}

	summary := &SessionSummary{
		SessionID:     sessionID,
		TotalAdvances: len(events),
		PerStudy:      make(map[string]int),
	}
	for _, e := range events {
		summary.PerStudy[e.StudyType]++
	}

	if len(events) < 2 {
		return summary, nil
	}

	sort.Slice(events, func(i, j int) bool { return events[i].IssuedAt.Before(events[j].IssuedAt) })
	gaps := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		gaps = append(gaps, events[i].IssuedAt.Sub(events[i-1].IssuedAt).Seconds())
	}

	mean, err := stats.Mean(gaps)
	if err != nil {
		return nil, err
	}
	median, err := stats.Median(gaps)
	if err != nil {
		return nil, err
	}
	p90, err := stats.Percentile(gaps, 90)
	if err != nil {
		return nil, err
	}

	summary.MeanGap = secondsToDuration(mean)
	summary.MedianGap = secondsToDuration(median)
	summary.P90Gap = secondsToDuration(p90)
	return summary, nil
}

// Export writes the session's ledger rows plus the summary line to path.
func (r *ReportService) Export(ctx context.Context, sessionID uuid.UUID, path string) error {
	events, err := r.ledger.ListBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list progress events: %w", err)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].IssuedAt.Before(events[j].IssuedAt) })

	dataset := ports.ReportDataset{
		Sheet:   "Progress",
		Headers: []string{"issued_at", "study_type", "study_group", "study_index", "challenge_index", "challenge_id"},
	}
	for _, e := range events {
		dataset.Rows = append(dataset.Rows, []interface{}{
			e.IssuedAt.Format(time.RFC3339),
			e.StudyType,
			e.Group,
			e.StudyIndex,
			e.ChallengeIndex,
			e.ChallengeID,
		})
	}

	if err := r.writer.Write(path, dataset); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	r.logger.Info("exported %d progress rows to %s", len(events), path)
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
