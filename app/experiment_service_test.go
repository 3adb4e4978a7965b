package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"binstudy/domain/core"
	"binstudy/domain/experiment"
	"binstudy/internal"
	"binstudy/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChallenges struct {
	byStudy map[experiment.StudyType][]core.ChallengeID
	err     error
}

func (s *stubChallenges) ListByStudy(ctx context.Context, studyType experiment.StudyType) ([]core.ChallengeID, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byStudy[studyType], nil
}

type memRecovery struct {
	mu      sync.Mutex
	record  *ports.RecoveryRecord
	loadErr error
}

func (m *memRecovery) Load(ctx context.Context) (*ports.RecoveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		err := m.loadErr
		m.loadErr = nil
		return nil, err
	}
	if m.record == nil {
		return nil, core.ErrRecoveryMissing
	}
	copied := *m.record
	return &copied, nil
}

func (m *memRecovery) Save(ctx context.Context, record *ports.RecoveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.record = &copied
	return nil
}

func (m *memRecovery) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}

type stubRNG struct{}

func (stubRNG) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(seed)), nil
}

type memLedger struct {
	mu     sync.Mutex
	events []ports.ProgressEvent
}

func (l *memLedger) RecordAdvance(ctx context.Context, event ports.ProgressEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *memLedger) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]ports.ProgressEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ports.ProgressEvent
	for _, e := range l.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func smallParams() experiment.Params {
	return experiment.Params{StudyCount: 2, ChallengeCount: 3, GroupLetters: "AB"}
}

func threeChallengeRepo() *stubChallenges {
	return &stubChallenges{byStudy: map[experiment.StudyType][]core.ChallengeID{
		experiment.StudyProximity: {"prox/a", "prox/b", "prox/c"},
		experiment.StudyDataDep:   {"dd/a", "dd/b", "dd/c"},
	}}
}

func newTestService(t *testing.T, seed int64, repo ports.ChallengeRepository, recovery ports.RecoveryStore, ledger ports.ProgressLedger) *ExperimentService {
	t.Helper()
	svc, err := NewExperimentService(smallParams(), experiment.DefaultViewPolicy(), seed, ExperimentDeps{
		Challenges: repo,
		Recovery:   recovery,
		RNG:        stubRNG{},
		Ledger:     ledger,
		Logger:     internal.NewLogger(internal.LogLevelError),
	})
	require.NoError(t, err)
	return svc
}

// expectedSequence derives the presentation order the service must produce
// from its fixed assignment and the canonical repository lists.
func expectedSequence(svc *ExperimentService, repo *stubChallenges) []core.ChallengeID {
	a := svc.assignment
	types := []experiment.StudyType{experiment.StudyType(a.FirstStudy), experiment.StudyType(1 - a.FirstStudy)}

	var seq []core.ChallengeID
	for _, studyType := range types {
		canonical := repo.byStudy[studyType]
		ordered := make([]core.ChallengeID, len(canonical))
		for slot, idx := range a.ChallengeOrder {
			ordered[slot] = canonical[idx]
		}
		seq = append(seq, ordered...)
	}
	return seq
}

func TestAssignmentIsDeterministicPerSeed(t *testing.T) {
	svc1 := newTestService(t, 7, threeChallengeRepo(), &memRecovery{}, nil)
	svc2 := newTestService(t, 7, threeChallengeRepo(), &memRecovery{}, nil)

	require.NoError(t, svc1.EnsureAssigned(context.Background()))
	require.NoError(t, svc2.EnsureAssigned(context.Background()))

	d1, err := svc1.Digest()
	require.NoError(t, err)
	d2, err := svc2.Digest()
	require.NoError(t, err)

	assert.True(t, d1.Equals(d2))
	assert.True(t, svc1.ValidateDigest(d1), "generated digest must be in the rainbow table")
}

func TestDigestRequiresExplicitAssignment(t *testing.T) {
	svc := newTestService(t, 7, threeChallengeRepo(), &memRecovery{}, nil)

	_, err := svc.Digest()
	assert.ErrorIs(t, err, core.ErrNotAssigned)
	assert.Equal(t, StateUninitialized, svc.State())

	require.NoError(t, svc.EnsureAssigned(context.Background()))
	assert.Equal(t, StateAssigned, svc.State())

	digest, err := svc.Digest()
	require.NoError(t, err)
	assert.Len(t, digest.String(), core.DigestLength)
}

func TestFullRunFollowsAssignedOrder(t *testing.T) {
	repo := threeChallengeRepo()
	recovery := &memRecovery{}
	ledger := &memLedger{}
	svc := newTestService(t, 11, repo, recovery, ledger)

	require.NoError(t, svc.EnsureAssigned(context.Background()))
	expected := expectedSequence(svc, repo)

	var completedStudies []experiment.StudyType
	completions := 0
	svc.OnStudyCompleted(func(st experiment.StudyType) { completedStudies = append(completedStudies, st) })
	svc.OnExperimentCompleted(func() { completions++ })

	assert.False(t, svc.AllowView("functions"), "no view is allowed before challenges load")

	var got []core.ChallengeID
	for {
		id, ok, err := svc.NextChallenge(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, id)
		assert.True(t, svc.AllowView("functions"), "base panel allowed while running")
	}

	assert.Equal(t, expected, got)
	assert.Equal(t, StateComplete, svc.State())
	assert.Equal(t, 1, completions)
	require.Len(t, completedStudies, 2)
	assert.Equal(t, experiment.StudyType(svc.assignment.FirstStudy), completedStudies[0])

	// Terminal: the sentinel repeats and nothing re-fires.
	for i := 0; i < 3; i++ {
		_, ok, err := svc.NextChallenge(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, completions)
	assert.False(t, svc.AllowView("functions"), "no view is allowed after completion")

	// Recovery checkpoint removed on completion, ledger kept everything.
	assert.Nil(t, recovery.record)
	assert.Len(t, ledger.events, len(expected))
	for i, e := range ledger.events {
		assert.Equal(t, expected[i].String(), e.ChallengeID)
		assert.Equal(t, svc.SessionID(), e.SessionID)
	}
}

func TestTwoStudyCompletionWithUnequalSizes(t *testing.T) {
	svc := newTestService(t, 3, threeChallengeRepo(), &memRecovery{}, nil)
	require.NoError(t, svc.EnsureAssigned(context.Background()))

	// Hand the state machine two pre-loaded studies of sizes 3 and 5; the
	// across-study logic must not assume equal lengths.
	groupA := experiment.Group{Type: experiment.StudyProximity, Letter: 'A'}
	groupB := experiment.Group{Type: experiment.StudyDataDep, Letter: 'B'}
	svc.studies = []*experiment.Study{
		experiment.NewStudy(experiment.StudyProximity, groupA, challengeList("p", 3)),
		experiment.NewStudy(experiment.StudyDataDep, groupB, challengeList("d", 5)),
	}
	svc.state = StateRunning

	completions := 0
	studyCompletions := 0
	svc.OnExperimentCompleted(func() { completions++ })
	svc.OnStudyCompleted(func(experiment.StudyType) { studyCompletions++ })

	successes := 0
	for {
		_, ok, err := svc.NextChallenge(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		successes++
	}

	assert.Equal(t, 8, successes)
	assert.Equal(t, 1, completions)
	assert.Equal(t, 2, studyCompletions)

	_, ok, err := svc.NextChallenge(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, completions, "completion must not re-fire")
}

func challengeList(prefix string, n int) []core.ChallengeID {
	out := make([]core.ChallengeID, n)
	for i := range out {
		out[i] = core.ChallengeID(fmt.Sprintf("%s/%d", prefix, i))
	}
	return out
}

func TestRecoveryResumesWithoutSkipOrRepeat(t *testing.T) {
	repo := threeChallengeRepo()

	// Twin run with a private checkpoint captures the full sequence.
	twin := newTestService(t, 23, repo, &memRecovery{}, nil)
	require.NoError(t, twin.EnsureAssigned(context.Background()))
	full := expectedSequence(twin, repo)

	shared := &memRecovery{}
	original := newTestService(t, 23, repo, shared, nil)
	for i := 0; i < 3; i++ {
		id, ok, err := original.NextChallenge(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, full[i], id)
	}
	require.NotNil(t, shared.record, "checkpoint written after each advance")

	// A new process recovering from the checkpoint continues exactly where
	// the crashed one left off.
	recovered := newTestService(t, 999, repo, shared, nil)
	require.NoError(t, recovered.EnsureAssigned(context.Background()))
	assert.Equal(t, StateRunning, recovered.State())

	d1, err := original.Digest()
	require.NoError(t, err)
	d2, err := recovered.Digest()
	require.NoError(t, err)
	assert.True(t, d1.Equals(d2), "recovered digest matches the original")

	for i := 3; i < len(full); i++ {
		id, ok, err := recovered.NextChallenge(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, full[i], id)
	}
	_, ok, err := recovered.NextChallenge(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptRecoveryFallsBackToFreshAssignment(t *testing.T) {
	recovery := &memRecovery{loadErr: core.NewRecoveryCorruptError("torn write")}
	svc := newTestService(t, 5, threeChallengeRepo(), recovery, nil)

	require.NoError(t, svc.EnsureAssigned(context.Background()))
	assert.Equal(t, StateAssigned, svc.State())
}

func TestRejectedRecoveryRecordIsDiscarded(t *testing.T) {
	recovery := &memRecovery{record: &ports.RecoveryRecord{
		Digest:         "not-a-digest",
		FirstStudy:     9,
		GroupLetters:   "XY",
		ChallengeOrder: []int{0, 1, 2},
	}}
	svc := newTestService(t, 5, threeChallengeRepo(), recovery, nil)

	require.NoError(t, svc.EnsureAssigned(context.Background()))
	assert.Equal(t, StateAssigned, svc.State())
	assert.Nil(t, recovery.record, "rejected record must be discarded")
}

func TestDigestOverrideIsRedisplayOnly(t *testing.T) {
	svc := newTestService(t, 13, threeChallengeRepo(), &memRecovery{}, nil)
	require.NoError(t, svc.EnsureAssigned(context.Background()))

	originalLetters := svc.assignment.GroupLetters()
	originalOrder := append([]int{}, svc.assignment.ChallengeOrder...)
	current, err := svc.Digest()
	require.NoError(t, err)

	// Another member of the valid space, guaranteed distinct from current.
	override := experiment.EncodeDigest(0, "AA", "012")
	if override.Equals(current) {
		override = experiment.EncodeDigest(1, "BB", "210")
	}

	var observed core.Digest
	svc.OnDigestUpdated(func(d core.Digest) { observed = d })

	assert.True(t, svc.SetDigest(override))
	got, err := svc.Digest()
	require.NoError(t, err)
	assert.True(t, got.Equals(override))
	assert.Equal(t, override, observed)

	// The derived assignment must be untouched.
	assert.Equal(t, originalLetters, svc.assignment.GroupLetters())
	assert.Equal(t, originalOrder, svc.assignment.ChallengeOrder)

	// Invalid candidates change nothing and fire nothing.
	observed = ""
	assert.False(t, svc.SetDigest("zzzz"))
	assert.False(t, svc.SetDigest(experiment.EncodeDigest(5, "AB", "012")))
	assert.True(t, observed.IsEmpty())
}

func TestDigestOverrideBeforeAssignmentIsRejected(t *testing.T) {
	svc := newTestService(t, 13, threeChallengeRepo(), &memRecovery{}, nil)
	assert.False(t, svc.SetDigest(experiment.EncodeDigest(0, "AA", "012")))
}

func TestValidateDigestNeverErrors(t *testing.T) {
	svc := newTestService(t, 13, threeChallengeRepo(), &memRecovery{}, nil)

	assert.False(t, svc.ValidateDigest(""))
	assert.False(t, svc.ValidateDigest("short"))
	assert.False(t, svc.ValidateDigest(core.Digest(strings.Repeat("z", core.DigestLength))))
	assert.True(t, svc.ValidateDigest(experiment.EncodeDigest(1, "AB", "201")))
}

func TestChallengeCountMismatchAbortsLoad(t *testing.T) {
	repo := &stubChallenges{byStudy: map[experiment.StudyType][]core.ChallengeID{
		experiment.StudyProximity: {"prox/a", "prox/b"},
		experiment.StudyDataDep:   {"dd/a", "dd/b", "dd/c"},
	}}
	svc := newTestService(t, 17, repo, &memRecovery{}, nil)

	_, ok, err := svc.NextChallenge(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrChallengeCountMismatch)

	// The service stays in StateAssigned so the caller can surface
	// "cannot start experiment"; nothing is half-loaded.
	assert.Equal(t, StateAssigned, svc.State())
	assert.False(t, svc.AllowView("functions"))
}

func TestEnumerationFailureKeepsStateAssigned(t *testing.T) {
	repo := &stubChallenges{err: context.DeadlineExceeded}
	svc := newTestService(t, 17, repo, &memRecovery{}, nil)

	_, ok, err := svc.NextChallenge(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, StateAssigned, svc.State())
}

func TestApplyAssignmentOnlyBeforeAssignment(t *testing.T) {
	svc := newTestService(t, 29, threeChallengeRepo(), &memRecovery{}, nil)

	injected := experiment.Assignment{
		FirstStudy: 1,
		Groups: []experiment.Group{
			{Type: experiment.StudyProximity, Letter: 'A'},
			{Type: experiment.StudyDataDep, Letter: 'B'},
		},
		ChallengeOrder: []int{2, 0, 1},
	}
	require.NoError(t, svc.ApplyAssignment(injected))
	assert.Equal(t, StateAssigned, svc.State())

	digest, err := svc.Digest()
	require.NoError(t, err)
	assert.True(t, digest.Equals(injected.Digest()))

	assert.ErrorIs(t, svc.ApplyAssignment(injected), core.ErrAlreadyAssigned)
}
