package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/repo"
)

// stubSubmitter records submitted group ids and can fail specific groups.
type stubSubmitter struct {
	submitted []uuid.UUID
	failFor   map[uuid.UUID]error
}

func (s *stubSubmitter) SubmitExperimentGroup(_ context.Context, group *domain.ExperimentGroup) error {
	if err := s.failFor[group.ID]; err != nil {
		return err
	}
	s.submitted = append(s.submitted, group.ID)
	return nil
}

func (s *stubSubmitter) SubmitUpdateExperimentGroup(context.Context, *domain.ExperimentGroup) error {
	return nil
}

func pendingGroup(created time.Time) *domain.ExperimentGroup {
	return &domain.ExperimentGroup{
		ID:        uuid.New(),
		Name:      "stuck lot",
		Owner:     "ivanov",
		CreatedAt: created,
	}
}

func seed(t *testing.T, store *repo.Memory, groups ...*domain.ExperimentGroup) {
	t.Helper()
	for _, g := range groups {
		if err := store.AddGroup(context.Background(), g); err != nil {
			t.Fatalf("seed group: %v", err)
		}
	}
}

func TestSweep(t *testing.T) {
	store := repo.NewMemory()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	a := pendingGroup(base)
	b := pendingGroup(base.Add(time.Minute))
	done := pendingGroup(base.Add(2 * time.Minute))
	done.SubmittedToQueue = true
	seed(t, store, a, b, done)

	submitter := &stubSubmitter{}
	r := New(Config{Repo: store, Submitter: submitter})

	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(submitter.submitted) != 2 {
		t.Fatalf("submitted = %d groups, want 2", len(submitter.submitted))
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		stored, err := store.GetGroup(context.Background(), id)
		if err != nil {
			t.Fatalf("get group: %v", err)
		}
		if !stored.SubmittedToQueue {
			t.Errorf("group %s not marked submitted", id)
		}
	}

	// Second sweep has nothing left to do
	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(submitter.submitted) != 2 {
		t.Errorf("second sweep resubmitted already-flagged groups")
	}
}

func TestSweep_FailedGroupDoesNotBlockOthers(t *testing.T) {
	store := repo.NewMemory()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	broken := pendingGroup(base)
	healthy := pendingGroup(base.Add(time.Minute))
	seed(t, store, broken, healthy)

	submitter := &stubSubmitter{failFor: map[uuid.UUID]error{broken.ID: errors.New("broker refused")}}
	r := New(Config{Repo: store, Submitter: submitter})

	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	stored, err := store.GetGroup(context.Background(), healthy.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if !stored.SubmittedToQueue {
		t.Error("healthy group should be marked submitted")
	}

	// The broken group stays pending for the next sweep
	stillPending, err := store.GetGroup(context.Background(), broken.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if stillPending.SubmittedToQueue {
		t.Error("failed group must remain unflagged")
	}
}

func TestSweep_BatchSize(t *testing.T) {
	store := repo.NewMemory()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seed(t, store, pendingGroup(base.Add(time.Duration(i)*time.Minute)))
	}

	submitter := &stubSubmitter{}
	r := New(Config{Repo: store, Submitter: submitter, BatchSize: 3})

	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(submitter.submitted) != 3 {
		t.Errorf("submitted = %d groups, want batch of 3", len(submitter.submitted))
	}
}

func TestRun_InvalidCronExpr(t *testing.T) {
	r := New(Config{Repo: repo.NewMemory(), Submitter: &stubSubmitter{}})

	if err := r.Run(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 3, 14, 12, 2, 30, 0, time.UTC)

	next, err := NextRun("*/5 * * * *", from)
	if err != nil {
		t.Fatalf("next run: %v", err)
	}
	want := time.Date(2026, 3, 14, 12, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("invalid expression accepted")
	}
}
