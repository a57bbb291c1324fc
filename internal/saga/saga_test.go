package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/lifecycle"
	"github.com/shaiso/Waferline/internal/repo"
)

// fakeSubmitter counts submissions and optionally fails them.
type fakeSubmitter struct {
	submitErr error
	updateErr error
	submits   int
	updates   int
}

func (s *fakeSubmitter) SubmitExperimentGroup(context.Context, *domain.ExperimentGroup) error {
	s.submits++
	return s.submitErr
}

func (s *fakeSubmitter) SubmitUpdateExperimentGroup(context.Context, *domain.ExperimentGroup) error {
	s.updates++
	return s.updateErr
}

// failingRepo passes through to Memory except for the injected failures.
type failingRepo struct {
	lifecycle.Repository
	removeErr    error
	queueFlagErr error
}

func (r *failingRepo) RemoveGroup(ctx context.Context, id uuid.UUID) error {
	if r.removeErr != nil {
		return r.removeErr
	}
	return r.Repository.RemoveGroup(ctx, id)
}

func (r *failingRepo) UpdateGroupQueueState(ctx context.Context, id uuid.UUID, submitted bool) error {
	if r.queueFlagErr != nil {
		return r.queueFlagErr
	}
	return r.Repository.UpdateGroupQueueState(ctx, id, submitted)
}

func newGroup() *domain.ExperimentGroup {
	return &domain.ExperimentGroup{
		ID:    uuid.New(),
		Name:  "hot lot",
		Owner: "sidorov",
		Experiments: []domain.Experiment{{
			ID:    uuid.New(),
			Title: "leakage screen",
			State: domain.ExperimentStateReady,
			Stages: []domain.Stage{{
				ID:         uuid.New(),
				Type:       domain.StageTypeOlb,
				SequenceID: 1,
				Data:       &domain.OlbData{OperationData: domain.OperationData{Operation: "hot-soak", Status: domain.StatusNotStarted}},
			}},
		}},
		CreatedAt: time.Now().UTC(),
	}
}

func newSaga(store lifecycle.Repository, submitter Submitter) *Saga {
	return New(Config{Repo: store, Submitter: submitter})
}

func TestCreateGroup(t *testing.T) {
	store := repo.NewMemory()
	submitter := &fakeSubmitter{}
	s := newSaga(store, submitter)
	group := newGroup()

	res, err := s.CreateGroup(context.Background(), group)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseSubmitted {
		t.Errorf("phase = %s, want SUBMITTED", res.Phase)
	}
	if submitter.submits != 1 {
		t.Errorf("submits = %d, want 1", submitter.submits)
	}

	stored, err := store.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if !stored.SubmittedToQueue {
		t.Error("queue flag should be persisted")
	}
}

func TestCreateGroup_NoExperiments(t *testing.T) {
	s := newSaga(repo.NewMemory(), &fakeSubmitter{})

	group := newGroup()
	group.Experiments = nil
	_, err := s.CreateGroup(context.Background(), group)
	if !errors.Is(err, lifecycle.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestCreateGroup_SubmitFailureCompensates(t *testing.T) {
	store := repo.NewMemory()
	submitter := &fakeSubmitter{submitErr: errors.New("broker refused")}
	s := newSaga(store, submitter)
	group := newGroup()

	res, err := s.CreateGroup(context.Background(), group)
	if !errors.Is(err, lifecycle.ErrQueue) {
		t.Fatalf("expected ErrQueue, got %v", err)
	}
	if res.Phase != PhaseCompensated {
		t.Errorf("phase = %s, want COMPENSATED", res.Phase)
	}

	// Compensation must leave no trace of the group
	_, err = store.GetGroup(context.Background(), group.ID)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected group removed, got %v", err)
	}
}

func TestCreateGroup_CompensationFailure(t *testing.T) {
	store := &failingRepo{
		Repository: repo.NewMemory(),
		removeErr:  errors.New("connection reset"),
	}
	submitter := &fakeSubmitter{submitErr: errors.New("broker refused")}
	s := newSaga(store, submitter)

	res, err := s.CreateGroup(context.Background(), newGroup())
	// Storage unreliability outranks the queue refusal
	if !errors.Is(err, lifecycle.ErrRepository) {
		t.Fatalf("expected ErrRepository, got %v", err)
	}
	if res.Phase != PhaseInconsistent {
		t.Errorf("phase = %s, want INCONSISTENT", res.Phase)
	}
}

func TestCreateGroup_MarkSubmittedFailure(t *testing.T) {
	store := &failingRepo{
		Repository:   repo.NewMemory(),
		queueFlagErr: errors.New("connection reset"),
	}
	s := newSaga(store, &fakeSubmitter{})

	res, err := s.CreateGroup(context.Background(), newGroup())
	if !errors.Is(err, lifecycle.ErrRepository) {
		t.Fatalf("expected ErrRepository, got %v", err)
	}
	// The domain write and the submit both succeeded; only the flag is stale
	if res.Phase != PhaseCreated {
		t.Errorf("phase = %s, want CREATED", res.Phase)
	}
}

func TestUpdateGroup_SubmitFailureKeepsStorage(t *testing.T) {
	store := repo.NewMemory()
	group := newGroup()
	if err := store.AddGroup(context.Background(), group); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	submitter := &fakeSubmitter{updateErr: errors.New("broker refused")}
	s := newSaga(store, submitter)

	group.Name = "renamed"
	res, err := s.UpdateGroup(context.Background(), group)
	if !errors.Is(err, lifecycle.ErrQueue) {
		t.Fatalf("expected ErrQueue, got %v", err)
	}
	if res.Phase != PhaseCreated {
		t.Errorf("phase = %s, want CREATED", res.Phase)
	}

	// No compensation on updates: the written state stays
	stored, err := store.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if stored.Name != "renamed" {
		t.Errorf("name = %q, update should remain persisted", stored.Name)
	}
}

func TestAddExperiments(t *testing.T) {
	store := repo.NewMemory()
	group := newGroup()
	if err := store.AddGroup(context.Background(), group); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	submitter := &fakeSubmitter{}
	s := newSaga(store, submitter)

	extra := newGroup().Experiments
	res, err := s.AddExperiments(context.Background(), group.ID, extra)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseSubmitted {
		t.Errorf("phase = %s, want SUBMITTED", res.Phase)
	}
	if submitter.updates != 1 {
		t.Errorf("updates = %d, want 1 (append goes through the update flow)", submitter.updates)
	}
	if len(res.Group.Experiments) != 2 {
		t.Errorf("experiments = %d, want 2", len(res.Group.Experiments))
	}
}

func TestAddExperiments_EmptyList(t *testing.T) {
	s := newSaga(repo.NewMemory(), &fakeSubmitter{})

	_, err := s.AddExperiments(context.Background(), uuid.New(), nil)
	if !errors.Is(err, lifecycle.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestAddExperiments_UnknownGroup(t *testing.T) {
	s := newSaga(repo.NewMemory(), &fakeSubmitter{})

	_, err := s.AddExperiments(context.Background(), uuid.New(), newGroup().Experiments)
	if !errors.Is(err, lifecycle.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
