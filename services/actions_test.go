package services

import (
	"context"
	"errors"
	"testing"

	"github.com/postforge/api/model"
)

func TestTestLogAction(t *testing.T) {
	action := NewTestLogAction()
	tenant := &model.Tenant{ID: "t", Slug: "t"}
	task := &model.Task{ID: "task"}
	logEntry := &model.ScheduleLog{Timeslot: "2026-02-09-09"}

	result, err := action.Do(context.Background(), tenant, task, logEntry)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if result["detail"] != "testlog executed" {
		t.Errorf("result = %v", result)
	}
	if result["ran_at"] == "" {
		t.Error("ran_at not recorded")
	}
}

func TestPublishActionSuccess(t *testing.T) {
	store := newFakeStore()
	client := &fakePublishClient{}
	publisher := NewPublisherService(store, client, nil)
	action := NewPublishAction(publisher)
	ctx := context.Background()

	task := seedPublishableTask(t, store, 1)
	tenant, _ := store.GetTenant(ctx, *task.TenantID)

	result, err := action.Do(ctx, tenant, task, &model.ScheduleLog{})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if result["task_status"] != string(model.TaskStatusPublished) {
		t.Errorf("task_status = %v", result["task_status"])
	}
	if result["logs"] != 1 {
		t.Errorf("logs = %v", result["logs"])
	}
}

func TestPublishActionFailure(t *testing.T) {
	store := newFakeStore()
	client := &fakePublishClient{err: errors.New("rate limited")}
	publisher := NewPublisherService(store, client, nil)
	action := NewPublishAction(publisher)
	ctx := context.Background()

	task := seedPublishableTask(t, store, 1)
	tenant, _ := store.GetTenant(ctx, *task.TenantID)

	result, err := action.Do(ctx, tenant, task, &model.ScheduleLog{})
	if err == nil {
		t.Fatal("publish against failing platform succeeded")
	}
	if result["task_status"] != string(model.TaskStatusFailed) {
		t.Errorf("task_status = %v", result["task_status"])
	}
}

func TestPublishActionWrongState(t *testing.T) {
	store := newFakeStore()
	publisher := NewPublisherService(store, &fakePublishClient{}, nil)
	action := NewPublishAction(publisher)
	ctx := context.Background()

	task := seedTask(t, store, model.TaskStatusDraft)
	_, err := action.Do(ctx, nil, task, &model.ScheduleLog{})
	if !errors.Is(err, ErrInvalidPublishState) {
		t.Fatalf("err = %v, want ErrInvalidPublishState", err)
	}
}
