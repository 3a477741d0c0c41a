package database

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/postforge/api/model"
)

// These tests need a real Postgres reachable through the DB_* env vars.
// Run with: RUN_INTEGRATION_TESTS=true go test ./database/...

func integrationStore(t *testing.T) *GORMStore {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}
	store, err := StartGORM()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func integrationTenant(t *testing.T, store *GORMStore) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		ID:       uuid.NewString(),
		Slug:     "it-" + uuid.NewString()[:8],
		Name:     "Integration",
		IsActive: true,
	}
	if err := store.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tenant
}

func TestScheduleLogSlotUniqueness(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	tenant := integrationTenant(t, store)
	rule := &model.ScheduleRule{
		ID:       uuid.NewString(),
		TenantID: tenant.ID,
		Action:   "testlog",
	}
	if err := store.CreateRule(ctx, rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	first := &model.ScheduleLog{
		ID:             uuid.NewString(),
		Status:         model.ScheduleLogStatusProcessing,
		Timeslot:       "2026-02-09-09",
		TenantID:       tenant.ID,
		ScheduleRuleID: rule.ID,
		Action:         rule.Action,
	}
	if err := store.CreateLog(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	dup := &model.ScheduleLog{
		ID:             uuid.NewString(),
		Status:         model.ScheduleLogStatusProcessing,
		Timeslot:       "2026-02-09-09",
		TenantID:       tenant.ID,
		ScheduleRuleID: rule.ID,
		Action:         rule.Action,
	}
	err := store.CreateLog(ctx, dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate slot err = %v, want gorm.ErrDuplicatedKey", err)
	}

	// A different timeslot for the same rule must still insert.
	next := &model.ScheduleLog{
		ID:             uuid.NewString(),
		Status:         model.ScheduleLogStatusProcessing,
		Timeslot:       "2026-02-09-10",
		TenantID:       tenant.ID,
		ScheduleRuleID: rule.ID,
		Action:         rule.Action,
	}
	if err := store.CreateLog(ctx, next); err != nil {
		t.Fatalf("next slot insert: %v", err)
	}
}

func TestMarkNewJobsReadyOnlyTouchesNew(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	tenant := integrationTenant(t, store)
	task := &model.Task{
		ID:       uuid.NewString(),
		TenantID: &tenant.ID,
		Status:   model.TaskStatusPendingApproval,
		Name:     "cascade",
	}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	statuses := []model.JobStatus{model.JobStatusNew, model.JobStatusNew, model.JobStatusError}
	for _, status := range statuses {
		job := &model.Job{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			Status:    status,
			Generator: "dalle",
		}
		if err := store.CreateJob(ctx, job); err != nil {
			t.Fatalf("create job: %v", err)
		}
	}

	n, err := store.MarkNewJobsReady(ctx, task.ID)
	if err != nil {
		t.Fatalf("MarkNewJobsReady: %v", err)
	}
	if n != 2 {
		t.Errorf("marked %d jobs ready, want 2", n)
	}

	jobs, err := store.JobsByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("JobsByTask: %v", err)
	}
	ready, errored := 0, 0
	for _, job := range jobs {
		switch job.Status {
		case model.JobStatusReady:
			ready++
		case model.JobStatusError:
			errored++
		}
	}
	if ready != 2 || errored != 1 {
		t.Errorf("ready=%d errored=%d, want 2/1", ready, errored)
	}
}

func TestNextProcessableJobGatesOnTaskStatus(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	tenant := integrationTenant(t, store)
	task := &model.Task{
		ID:       uuid.NewString(),
		TenantID: &tenant.ID,
		Status:   model.TaskStatusPendingApproval,
		Name:     "gated",
	}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	job := &model.Job{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		Status:    model.JobStatusReady,
		Generator: "dalle",
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	// The job is READY but its task is not PROCESSING, so the queue must not
	// surface it. Other rows may exist in a shared database, so only assert
	// that this specific job is not returned.
	got, err := store.NextProcessableJob(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("NextProcessableJob: %v", err)
	}
	if got != nil && got.ID == job.ID {
		t.Error("job of an unapproved task surfaced in the queue")
	}

	task.Status = model.TaskStatusProcessing
	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	got, err = store.NextProcessableJob(ctx)
	if err != nil {
		t.Fatalf("NextProcessableJob after approve: %v", err)
	}
	if got == nil {
		t.Fatal("no job surfaced after the task moved to processing")
	}
}

func TestOldestReadyTaskOrdering(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	tenant := integrationTenant(t, store)
	first := &model.Task{ID: uuid.NewString(), TenantID: &tenant.ID, Status: model.TaskStatusReady, Name: "first"}
	second := &model.Task{ID: uuid.NewString(), TenantID: &tenant.ID, Status: model.TaskStatusReady, Name: "second"}
	for _, task := range []*model.Task{first, second} {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.OldestReadyTask(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("OldestReadyTask: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("got task %s, want the oldest %s", got.Name, first.Name)
	}
}
