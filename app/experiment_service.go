package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"binstudy/domain/core"
	"binstudy/domain/experiment"
	"binstudy/internal"
	"binstudy/ports"

	"github.com/google/uuid"
)

// ExperimentState is the lifecycle phase of the experiment.
type ExperimentState int

const (
	// StateUninitialized means no assignment exists yet.
	StateUninitialized ExperimentState = iota
	// StateAssigned means digest, groups, and challenge order are fixed but
	// no challenges have been loaded from the repository.
	StateAssigned
	// StateRunning means both studies are loaded and challenges are being
	// consumed.
	StateRunning
	// StateComplete is terminal; every further challenge request returns
	// the end sentinel.
	StateComplete
)

func (s ExperimentState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAssigned:
		return "assigned"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ExperimentDeps bundles the ports the service needs.
type ExperimentDeps struct {
	Challenges ports.ChallengeRepository
	Recovery   ports.RecoveryStore
	RNG        ports.RNGPort
	Ledger     ports.ProgressLedger
	Logger     *internal.Logger
}

// ExperimentService is the randomized-experiment state machine. It owns the
// assignment (generated, recovered, or injected), the two studies, the
// across-study cursor, and the rainbow table used to validate externally
// re-entered digests.
//
// One mutex serializes every mutation so "advance cursor" and "persist
// checkpoint" act atomically with respect to other goroutines. A crash
// between the two may re-deliver a challenge; it can never lose one.
type ExperimentService struct {
	mu sync.Mutex

	params experiment.Params
	policy *experiment.ViewPolicy
	table  *experiment.RainbowTable

	challenges ports.ChallengeRepository
	recovery   ports.RecoveryStore
	rng        ports.RNGPort
	ledger     ports.ProgressLedger
	logger     *internal.Logger

	sessionID uuid.UUID
	seed      int64

	state      ExperimentState
	assignment *experiment.Assignment
	digest     core.Digest
	studies    []*experiment.Study
	studyIdx   int

	onStudyCompleted      []func(experiment.StudyType)
	onExperimentCompleted []func()
	onDigestUpdated       []func(core.Digest)
}

// NewExperimentService validates the parameter set and the policy, builds
// the rainbow table eagerly, and returns a service in StateUninitialized.
// Seed 0 derives the generation seed from the clock.
func NewExperimentService(params experiment.Params, policy *experiment.ViewPolicy, seed int64, deps ExperimentDeps) (*ExperimentService, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(params); err != nil {
		return nil, err
	}
	table, err := experiment.BuildRainbowTable(params)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	return &ExperimentService{
		params:     params,
		policy:     policy,
		table:      table,
		challenges: deps.Challenges,
		recovery:   deps.Recovery,
		rng:        deps.RNG,
		ledger:     deps.Ledger,
		logger:     logger.Named("experiment"),
		sessionID:  uuid.New(),
		seed:       seed,
	}, nil
}

// SessionID identifies this harness session in the progress ledger.
func (s *ExperimentService) SessionID() uuid.UUID {
	return s.sessionID
}

// State returns the current lifecycle phase.
func (s *ExperimentService) State() ExperimentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStudyCompleted registers a callback fired each time a study's last
// challenge has been consumed and the experiment moves past it.
func (s *ExperimentService) OnStudyCompleted(fn func(experiment.StudyType)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStudyCompleted = append(s.onStudyCompleted, fn)
}

// OnExperimentCompleted registers a callback fired exactly once, when the
// last study completes.
func (s *ExperimentService) OnExperimentCompleted(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExperimentCompleted = append(s.onExperimentCompleted, fn)
}

// OnDigestUpdated registers a callback fired when the displayed digest is
// overridden with a validated external one.
func (s *ExperimentService) OnDigestUpdated(fn func(core.Digest)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDigestUpdated = append(s.onDigestUpdated, fn)
}

// EnsureAssigned fixes the assignment if none exists yet: a parseable
// recovery record wins, otherwise a fresh random assignment is drawn. The
// transition is explicit rather than hidden inside a getter so callers can
// observe (and handle errors from) it.
func (s *ExperimentService) EnsureAssigned(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureAssignedLocked(ctx)
}

func (s *ExperimentService) ensureAssignedLocked(ctx context.Context) error {
	if s.state != StateUninitialized {
		return nil
	}

	record, err := s.recovery.Load(ctx)
	switch {
	case err == nil && record != nil:
		restoreErr := s.restoreLocked(record)
		if restoreErr == nil {
			s.logger.Info("recovered assignment from checkpoint, study %d, state %s", s.studyIdx, s.state)
			return nil
		}
		// The record parsed but its contents are untrustworthy. Discard it
		// and fall through to fresh assignment; this is recoverable.
		s.logger.Error("recovery record rejected: %v", restoreErr)
		if clearErr := s.recovery.Clear(ctx); clearErr != nil {
			s.logger.Error("failed to discard rejected recovery record: %v", clearErr)
		}
	case errors.Is(err, core.ErrRecoveryMissing):
		// First run; nothing to recover.
	case err != nil:
		s.logger.Error("recovery load failed, proceeding with fresh assignment: %v", err)
	}

	return s.assignLocked(ctx)
}

func (s *ExperimentService) assignLocked(ctx context.Context) error {
	seed := s.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	stream, err := s.rng.SeededStream(ctx, "assignment", seed)
	if err != nil {
		return fmt.Errorf("assignment stream: %w", err)
	}
	a := experiment.NewRandomAssignment(stream, s.params)
	s.assignment = &a
	s.digest = a.Digest()
	s.state = StateAssigned
	s.logger.Info("fresh assignment: first study %s, groups %s", experiment.StudyType(a.FirstStudy), a.GroupLetters())
	return nil
}

// ApplyAssignment injects an externally sourced assignment (the
// assignment-source log from a previous session). Only legal before any
// assignment exists; afterwards the fixed assignment must not change.
func (s *ExperimentService) ApplyAssignment(a experiment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUninitialized {
		return core.ErrAlreadyAssigned
	}
	if err := a.Validate(s.params); err != nil {
		return err
	}
	s.assignment = &a
	s.digest = a.Digest()
	s.state = StateAssigned
	s.logger.Info("external assignment applied: first study %s, groups %s", experiment.StudyType(a.FirstStudy), a.GroupLetters())
	return nil
}

// Digest returns the verification code for display. It errors rather than
// lazily assigning; call EnsureAssigned first.
func (s *ExperimentService) Digest() (core.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUninitialized {
		return "", core.ErrNotAssigned
	}
	return s.digest, nil
}

// ValidateDigest reports whether candidate is a member of the precomputed
// valid-digest set. Bad input is a false return, never an error.
func (s *ExperimentService) ValidateDigest(candidate core.Digest) bool {
	if !candidate.WellFormed() {
		return false
	}
	return s.table.Contains(candidate)
}

// SetDigest overrides the displayed digest with a validated external one.
// This is a redisplay-only correction: the groups and challenge order
// already derived from the original digest are kept (the codec is one-way,
// so nothing could be re-derived anyway). Returns false, changing nothing,
// when the candidate is invalid or no assignment exists yet.
func (s *ExperimentService) SetDigest(candidate core.Digest) bool {
	if !s.ValidateDigest(candidate) {
		return false
	}

	s.mu.Lock()
	if s.state == StateUninitialized {
		s.mu.Unlock()
		return false
	}
	s.digest = candidate
	observers := append([]func(core.Digest){}, s.onDigestUpdated...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(candidate)
	}
	return true
}

// NextChallenge returns the next challenge identifier in the participant's
// assigned order and persists the checkpoint. ok=false is the end sentinel:
// the experiment is complete (the completion notification fires exactly
// once, on the transition).
func (s *ExperimentService) NextChallenge(ctx context.Context) (id core.ChallengeID, ok bool, err error) {
	var notify []func()

	s.mu.Lock()
	id, ok, err = s.nextChallengeLocked(ctx, &notify)
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return id, ok, err
}

func (s *ExperimentService) nextChallengeLocked(ctx context.Context, notify *[]func()) (core.ChallengeID, bool, error) {
	if err := s.ensureAssignedLocked(ctx); err != nil {
		return "", false, err
	}
	if s.state == StateComplete {
		return "", false, nil
	}
	if s.state == StateAssigned {
		if err := s.loadStudiesLocked(ctx); err != nil {
			// Configuration failure: stay in StateAssigned with no studies
			// so the caller can surface "cannot start experiment".
			s.logger.Error("unable to load challenges: %v", err)
			return "", false, err
		}
		s.state = StateRunning
	}

	for {
		if s.studyIdx >= len(s.studies) {
			s.completeLocked(ctx, notify)
			return "", false, nil
		}
		active := s.studies[s.studyIdx]
		if challengeID, more := active.NextChallenge(); more {
			s.persistLocked(ctx, active, challengeID)
			return challengeID, true, nil
		}

		// Active study exhausted: advance across studies. The loop then
		// either completes the experiment or consumes from the next study.
		completed := active.Type()
		for _, fn := range s.onStudyCompleted {
			fn := fn
			*notify = append(*notify, func() { fn(completed) })
		}
		s.studyIdx++
	}
}

func (s *ExperimentService) loadStudiesLocked(ctx context.Context) error {
	if len(s.studies) != 0 {
		return nil
	}

	for _, studyType := range experiment.StudyTypes() {
		canonical, err := s.challenges.ListByStudy(ctx, studyType)
		if err != nil {
			return fmt.Errorf("enumerate %s challenges: %w", studyType, err)
		}
		if len(canonical) != s.params.ChallengeCount {
			return core.NewChallengeCountError(studyType.String(), len(canonical), s.params.ChallengeCount)
		}

		// Present challenges in the assigned permutation of the canonical
		// (sorted) order.
		ordered := make([]core.ChallengeID, len(canonical))
		for slot, idx := range s.assignment.ChallengeOrder {
			ordered[slot] = canonical[idx]
		}

		group, valid := s.assignment.GroupFor(studyType)
		if !valid {
			return fmt.Errorf("%w: no group for study %s", core.ErrUnknownStudyType, studyType)
		}
		s.studies = append(s.studies, experiment.NewStudy(studyType, group, ordered))
	}

	if got := len(s.studies); got != s.params.StudyCount {
		s.studies = nil
		return core.NewStudyCountError(got, s.params.StudyCount)
	}

	// Construction order is StudyType order; swap if the assignment says
	// the other study goes first.
	if s.studies[0].Type() != experiment.StudyType(s.assignment.FirstStudy) {
		s.studies[0], s.studies[1] = s.studies[1], s.studies[0]
	}
	return nil
}

func (s *ExperimentService) persistLocked(ctx context.Context, active *experiment.Study, challengeID core.ChallengeID) {
	record := s.snapshotLocked()
	if err := s.recovery.Save(ctx, record); err != nil {
		// Losing the checkpoint only risks re-delivering this challenge
		// after a crash, which consumers tolerate.
		s.logger.Error("failed to persist recovery checkpoint: %v", err)
	}

	if s.ledger == nil {
		return
	}
	event := ports.ProgressEvent{
		ID:             uuid.New(),
		SessionID:      s.sessionID,
		StudyType:      active.Type().String(),
		Group:          active.Group().Name(),
		ChallengeID:    challengeID.String(),
		StudyIndex:     s.studyIdx,
		ChallengeIndex: active.Cursor() - 1,
		IssuedAt:       time.Now(),
	}
	if err := s.ledger.RecordAdvance(ctx, event); err != nil {
		s.logger.Error("failed to record progress event: %v", err)
	}
}

func (s *ExperimentService) snapshotLocked() *ports.RecoveryRecord {
	record := &ports.RecoveryRecord{
		Digest:         s.digest.String(),
		FirstStudy:     s.assignment.FirstStudy,
		GroupLetters:   s.assignment.GroupLetters(),
		ChallengeOrder: append([]int{}, s.assignment.ChallengeOrder...),
		StudyIndex:     s.studyIdx,
		SavedAt:        core.Now(),
	}
	for _, study := range s.studies {
		snapshot := ports.StudySnapshot{
			Type:   study.Type().String(),
			Group:  string(study.Group().Letter),
			Cursor: study.Cursor(),
		}
		for _, c := range study.Challenges() {
			snapshot.Challenges = append(snapshot.Challenges, c.String())
		}
		record.Studies = append(record.Studies, snapshot)
	}
	return record
}

func (s *ExperimentService) completeLocked(ctx context.Context, notify *[]func()) {
	if s.state == StateComplete {
		return
	}
	s.state = StateComplete
	s.studyIdx = len(s.studies)
	if err := s.recovery.Clear(ctx); err != nil {
		s.logger.Error("failed to remove recovery checkpoint: %v", err)
	}
	s.logger.Info("experiment complete")
	for _, fn := range s.onExperimentCompleted {
		*notify = append(*notify, fn)
	}
}

func (s *ExperimentService) restoreLocked(record *ports.RecoveryRecord) error {
	if len(record.GroupLetters) != s.params.StudyCount {
		return core.NewRecoveryCorruptError(fmt.Sprintf("group letters %q", record.GroupLetters))
	}

	groups := make([]experiment.Group, s.params.StudyCount)
	for i := 0; i < s.params.StudyCount; i++ {
		group, err := experiment.NewGroup(s.params, experiment.StudyType(i), record.GroupLetters[i])
		if err != nil {
			return core.NewRecoveryCorruptError(err.Error())
		}
		groups[i] = group
	}
	assignment := experiment.Assignment{
		FirstStudy:     record.FirstStudy,
		Groups:         groups,
		ChallengeOrder: append([]int{}, record.ChallengeOrder...),
	}
	if err := assignment.Validate(s.params); err != nil {
		return core.NewRecoveryCorruptError(err.Error())
	}

	digest := core.Digest(record.Digest)
	if digest.IsEmpty() {
		digest = assignment.Digest()
	} else if !s.table.Contains(digest) {
		return core.NewRecoveryCorruptError("digest is not a valid assignment encoding")
	}

	if count := len(record.Studies); count != 0 && count != s.params.StudyCount {
		return core.NewStudyCountError(count, s.params.StudyCount)
	}

	studies := make([]*experiment.Study, 0, len(record.Studies))
	for _, snapshot := range record.Studies {
		studyType, err := experiment.ParseStudyType(snapshot.Type)
		if err != nil {
			return core.NewRecoveryCorruptError(err.Error())
		}
		if len(snapshot.Group) != 1 {
			return core.NewRecoveryCorruptError(fmt.Sprintf("group %q", snapshot.Group))
		}
		group, err := experiment.NewGroup(s.params, studyType, snapshot.Group[0])
		if err != nil {
			return core.NewRecoveryCorruptError(err.Error())
		}
		challenges := make([]core.ChallengeID, len(snapshot.Challenges))
		for i, c := range snapshot.Challenges {
			id, err := core.ParseChallengeID(c)
			if err != nil {
				return core.NewRecoveryCorruptError(err.Error())
			}
			challenges[i] = id
		}
		// RestoreStudy clamps the persisted cursor defensively.
		studies = append(studies, experiment.RestoreStudy(studyType, group, challenges, snapshot.Cursor))
	}

	s.assignment = &assignment
	s.digest = digest
	s.studies = studies

	s.studyIdx = record.StudyIndex
	if s.studyIdx < 0 {
		s.studyIdx = 0
	}
	if s.studyIdx > len(studies) {
		s.studyIdx = len(studies)
	}

	switch {
	case len(studies) == 0:
		s.state = StateAssigned
	case s.studyIdx >= len(studies):
		s.state = StateComplete
	default:
		s.state = StateRunning
	}
	return nil
}

// AllowView reports whether a UI panel category is permitted for the
// participant's current study and group. It is false whenever no study is
// active: before assignment, before challenges load, and after completion.
func (s *ExperimentService) AllowView(category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning || s.studyIdx < 0 || s.studyIdx >= len(s.studies) {
		return false
	}
	return s.policy.Allows(s.studies[s.studyIdx].Group(), category)
}

// StudyStatus is a read-only snapshot of one study's progress.
type StudyStatus struct {
	Type      string `json:"type"`
	Group     string `json:"group"`
	Cursor    int    `json:"cursor"`
	Total     int    `json:"total"`
	Completed bool   `json:"completed"`
}

// Status is a read-only snapshot of the whole experiment.
type Status struct {
	State      string        `json:"state"`
	SessionID  string        `json:"session_id"`
	Digest     string        `json:"digest,omitempty"`
	StudyIndex int           `json:"study_index"`
	Studies    []StudyStatus `json:"studies,omitempty"`
}

// Status reports the current experiment state for the operator console.
func (s *ExperimentService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:      s.state.String(),
		SessionID:  s.sessionID.String(),
		Digest:     s.digest.String(),
		StudyIndex: s.studyIdx,
	}
	for _, study := range s.studies {
		status.Studies = append(status.Studies, StudyStatus{
			Type:      study.Type().String(),
			Group:     study.Group().Name(),
			Cursor:    study.Cursor(),
			Total:     study.Len(),
			Completed: study.IsComplete(),
		})
	}
	return status
}
