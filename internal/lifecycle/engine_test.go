package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/policy"
	"github.com/shaiso/Waferline/internal/repo"
)

// --- Fixtures ---

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// fakeNotifier records progress notifications and optionally fails.
type fakeNotifier struct {
	calls []domain.ProcessStatus
	err   error
}

func (n *fakeNotifier) NotifyExperimentUpdated(_ context.Context, _ *domain.ExperimentGroup, _ *domain.Experiment, status domain.ProcessStatus) error {
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, status)
	return nil
}

// testGroup builds a group with one experiment:
// a Class stage with two conditions and an Olb stage.
func testGroup() *domain.ExperimentGroup {
	return &domain.ExperimentGroup{
		ID:    uuid.New(),
		Name:  "lot-42 bringup",
		Owner: "ivanov",
		Experiments: []domain.Experiment{
			{
				ID:    uuid.New(),
				Title: "vmin sweep",
				State: domain.ExperimentStateReady,
				Stages: []domain.Stage{
					{
						ID:         uuid.New(),
						Type:       domain.StageTypeClass,
						SequenceID: 1,
						Data: &domain.ClassData{Conditions: []domain.Condition{
							{ID: uuid.New(), Sequence: 1, Status: domain.StatusNotStarted},
							{ID: uuid.New(), Sequence: 2, Status: domain.StatusNotStarted},
						}},
					},
					{
						ID:         uuid.New(),
						Type:       domain.StageTypeOlb,
						SequenceID: 2,
						Data:       &domain.OlbData{OperationData: domain.OperationData{Operation: "burn-in", Status: domain.StatusNotStarted}},
					},
				},
			},
		},
		CreatedAt: testNow,
	}
}

// newTestEngine stores the group in a memory repo and wires an engine
// with a fixed clock.
func newTestEngine(t *testing.T, group *domain.ExperimentGroup) (*Engine, *repo.Memory, *fakeNotifier) {
	t.Helper()

	store := repo.NewMemory()
	if err := store.AddGroup(context.Background(), group); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	notifier := &fakeNotifier{}
	engine := New(Config{
		Repo:     store,
		Policy:   policy.New(),
		Notifier: notifier,
		Now:      func() time.Time { return testNow },
	})
	return engine, store, notifier
}

// brokenRepo passes through to Memory except for the injected failures.
type brokenRepo struct {
	Repository
	conditionLookupErr error
	conditionWriteErr  error
	stageLookups       int
}

func (r *brokenRepo) GetGroupByConditionID(ctx context.Context, conditionID uuid.UUID) (*domain.ExperimentGroup, error) {
	if r.conditionLookupErr != nil {
		return nil, r.conditionLookupErr
	}
	return r.Repository.GetGroupByConditionID(ctx, conditionID)
}

func (r *brokenRepo) GetGroupByStageID(ctx context.Context, stageID uuid.UUID) (*domain.ExperimentGroup, error) {
	r.stageLookups++
	return r.Repository.GetGroupByStageID(ctx, stageID)
}

func (r *brokenRepo) UpdateExperimentCondition(ctx context.Context, groupID, experimentID, stageID uuid.UUID, cond *domain.Condition) error {
	if r.conditionWriteErr != nil {
		return r.conditionWriteErr
	}
	return r.Repository.UpdateExperimentCondition(ctx, groupID, experimentID, stageID, cond)
}

func firstCondition(g *domain.ExperimentGroup) *domain.Condition {
	return &g.Experiments[0].Stages[0].Class().Conditions[0]
}

func reload(t *testing.T, store *repo.Memory, id uuid.UUID) *domain.ExperimentGroup {
	t.Helper()
	group, err := store.GetGroup(context.Background(), id)
	if err != nil {
		t.Fatalf("reload group: %v", err)
	}
	return group
}

// --- UpdateStatus ---

func TestUpdateStatus_Condition(t *testing.T) {
	group := testGroup()
	condID := firstCondition(group).ID
	engine, store, _ := newTestEngine(t, group)

	res, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusPendingCommit,
		Comment:       "queued on tester",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Condition == nil {
		t.Fatal("expected condition-level resolution")
	}

	stored := reload(t, store, group.ID)
	cond := firstCondition(stored)
	if cond.Status != domain.StatusPendingCommit {
		t.Errorf("status = %s, want PENDING_COMMIT", cond.Status)
	}
	if cond.StatusChangeComment != "queued on tester" {
		t.Errorf("comment = %q", cond.StatusChangeComment)
	}
}

func TestUpdateStatus_Stage(t *testing.T) {
	group := testGroup()
	stageID := group.Experiments[0].Stages[1].ID
	engine, store, _ := newTestEngine(t, group)

	res, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: stageID,
		Status:        domain.StatusPendingCommit,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Condition != nil {
		t.Fatal("expected stage-level resolution")
	}

	stored := reload(t, store, group.ID)
	holder := stored.Experiments[0].Stages[1].Holder()
	if holder.CurrentStatus() != domain.StatusPendingCommit {
		t.Errorf("status = %s, want PENDING_COMMIT", holder.CurrentStatus())
	}
}

func TestUpdateStatus_CompletedSetsCompletionTime(t *testing.T) {
	group := testGroup()
	cond := firstCondition(group)
	cond.Status = domain.StatusRunning
	condID := cond.ID
	engine, store, _ := newTestEngine(t, group)

	if _, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusCompleted,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := firstCondition(reload(t, store, group.ID))
	if stored.CompletionTime == nil {
		t.Fatal("completion time should be set")
	}
	if !stored.CompletionTime.Equal(testNow) {
		t.Errorf("completion time = %v, want %v", stored.CompletionTime, testNow)
	}
}

func TestUpdateStatus_NonCompletedClearsCompletionTime(t *testing.T) {
	group := testGroup()
	cond := firstCondition(group)
	cond.Status = domain.StatusRunning
	cond.CompletionTime = &testNow // stale value
	condID := cond.ID
	engine, store, _ := newTestEngine(t, group)

	if _, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusPaused,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := firstCondition(reload(t, store, group.ID))
	if stored.CompletionTime != nil {
		t.Error("completion time should be cleared for non-COMPLETED status")
	}
}

func TestUpdateStatus_RejectsDisallowedTransition(t *testing.T) {
	group := testGroup()
	condID := firstCondition(group).ID
	engine, store, _ := newTestEngine(t, group)

	_, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusCompleted,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	// Entity must stay untouched
	stored := firstCondition(reload(t, store, group.ID))
	if stored.Status != domain.StatusNotStarted {
		t.Errorf("status = %s, want NOT_STARTED", stored.Status)
	}
}

func TestUpdateStatus_RejectsSelfTransition(t *testing.T) {
	group := testGroup()
	cond := firstCondition(group)
	cond.Status = domain.StatusRunning
	condID := cond.ID
	engine, _, _ := newTestEngine(t, group)

	_, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusRunning,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateStatus_IssueStepIsNoop(t *testing.T) {
	group := testGroup()
	condID := firstCondition(group).ID
	engine, store, _ := newTestEngine(t, group)

	res, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusRunning,
		IsIssueStep:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatal("issue step must not resolve anything")
	}

	stored := firstCondition(reload(t, store, group.ID))
	if stored.Status != domain.StatusNotStarted {
		t.Errorf("status = %s, storage must be untouched", stored.Status)
	}
}

func TestUpdateStatus_UnknownCorrelationID(t *testing.T) {
	engine, _, _ := newTestEngine(t, testGroup())

	_, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: uuid.New(),
		Status:        domain.StatusRunning,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_StorageFailureOnLookup(t *testing.T) {
	group := testGroup()
	condID := firstCondition(group).ID
	store := repo.NewMemory()
	if err := store.AddGroup(context.Background(), group); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	broken := &brokenRepo{
		Repository:         store,
		conditionLookupErr: errors.New("connection reset"),
	}
	engine := New(Config{
		Repo:     broken,
		Policy:   policy.New(),
		Notifier: &fakeNotifier{},
	})

	_, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusPendingCommit,
	})
	// A storage failure is not "not present"
	if !errors.Is(err, ErrRepository) {
		t.Fatalf("expected ErrRepository, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("storage failure must not be reported as not-found")
	}
	// The failed condition probe is inconclusive, so the stage probe is skipped
	if broken.stageLookups != 0 {
		t.Errorf("stage lookups = %d, want 0", broken.stageLookups)
	}
}

func TestUpdateStatus_PersistFailureDiscardsMutation(t *testing.T) {
	group := testGroup()
	condID := firstCondition(group).ID
	store := repo.NewMemory()
	if err := store.AddGroup(context.Background(), group); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	broken := &brokenRepo{
		Repository:        store,
		conditionWriteErr: errors.New("connection reset"),
	}
	engine := New(Config{
		Repo:     broken,
		Policy:   policy.New(),
		Notifier: &fakeNotifier{},
	})

	_, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusPendingCommit,
	})
	if !errors.Is(err, ErrRepository) {
		t.Fatalf("expected ErrRepository, got %v", err)
	}

	// The in-memory mutation must not survive the failed write
	stored := firstCondition(reload(t, store, group.ID))
	if stored.Status != domain.StatusNotStarted {
		t.Errorf("status = %s, stored aggregate must be unchanged", stored.Status)
	}
}

func TestUpdateStatus_RetryAfterIssueFailureClearsError(t *testing.T) {
	group := testGroup()
	cond := firstCondition(group)
	cond.Status = domain.StatusCommitted
	condID := cond.ID
	group.Experiments[0].Material = &domain.Material{
		LotID: "LOT-1",
		Issue: &domain.MaterialIssue{IsRequired: true, ErrorComments: "dispenser jam"},
	}
	engine, store, _ := newTestEngine(t, group)

	if _, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID: condID,
		Status:        domain.StatusPendingCommit,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := reload(t, store, group.ID)
	issue := stored.Experiments[0].Material.Issue
	if issue.ErrorComments != "" {
		t.Errorf("stale issue error should be cleared, got %q", issue.ErrorComments)
	}
	if !issue.IsRequired {
		t.Error("IsRequired must survive the retry")
	}
}

func TestUpdateStatus_MaterialIssueFailureMovesComment(t *testing.T) {
	group := testGroup()
	cond := firstCondition(group)
	cond.Status = domain.StatusPendingCommit
	condID := cond.ID
	engine, store, _ := newTestEngine(t, group)

	if _, err := engine.UpdateStatus(context.Background(), StatusUpdate{
		CorrelationID:       condID,
		Status:              domain.StatusPaused,
		Comment:             "lot not found in stocker",
		MaterialIssueFailed: true,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := reload(t, store, group.ID)
	storedCond := firstCondition(stored)
	if storedCond.Status != domain.StatusPaused {
		t.Errorf("status = %s, want PAUSED", storedCond.Status)
	}
	// The comment lives on the material issue, not on the entity
	if storedCond.StatusChangeComment != "" {
		t.Errorf("entity comment should be empty, got %q", storedCond.StatusChangeComment)
	}
	issue := stored.Experiments[0].Material.Issue
	if issue == nil || issue.ErrorComments != "lot not found in stocker" {
		t.Errorf("issue error = %+v, want comment on material issue", issue)
	}
}

// --- UpdateResult ---

func TestUpdateResult_RecordsResult(t *testing.T) {
	group := testGroup()
	cond := firstCondition(group)
	cond.Status = domain.StatusRunning
	condID := cond.ID
	engine, store, _ := newTestEngine(t, group)

	if _, err := engine.UpdateResult(context.Background(), ResultUpdate{
		CorrelationID: condID,
		Passed:        true,
		Comment:       "all bins clean",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := firstCondition(reload(t, store, group.ID))
	if stored.Result == nil || !stored.Result.Passed {
		t.Fatalf("result = %+v, want passed", stored.Result)
	}
	if stored.Result.Comment != "all bins clean" {
		t.Errorf("result comment = %q", stored.Result.Comment)
	}
}

func TestUpdateResult_RejectedBeforeRunning(t *testing.T) {
	group := testGroup()
	condID := firstCondition(group).ID
	engine, _, _ := newTestEngine(t, group)

	_, err := engine.UpdateResult(context.Background(), ResultUpdate{
		CorrelationID: condID,
		Passed:        true,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateResult_RejectedForStage(t *testing.T) {
	group := testGroup()
	stageID := group.Experiments[0].Stages[1].ID
	engine, _, _ := newTestEngine(t, group)

	// Results exist only for conditions; a stage correlation id is invalid
	_, err := engine.UpdateResult(context.Background(), ResultUpdate{
		CorrelationID: stageID,
		Passed:        true,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// --- NotifyProgress ---

func TestNotifyProgress(t *testing.T) {
	group := testGroup()
	expID := group.Experiments[0].ID
	engine, _, notifier := newTestEngine(t, group)

	if err := engine.NotifyProgress(context.Background(), expID, domain.StatusRunning); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != domain.StatusRunning {
		t.Errorf("notifier calls = %v", notifier.calls)
	}
}

func TestNotifyProgress_UnknownExperiment(t *testing.T) {
	engine, _, _ := newTestEngine(t, testGroup())

	err := engine.NotifyProgress(context.Background(), uuid.New(), domain.StatusRunning)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotifyProgress_NotifierFailure(t *testing.T) {
	group := testGroup()
	expID := group.Experiments[0].ID
	engine, _, notifier := newTestEngine(t, group)
	notifier.err = errors.New("broker down")

	err := engine.NotifyProgress(context.Background(), expID, domain.StatusRunning)
	if !errors.Is(err, ErrExternalServer) {
		t.Fatalf("expected ErrExternalServer, got %v", err)
	}
}
