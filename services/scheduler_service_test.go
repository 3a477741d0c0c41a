package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/postforge/api/model"
)

// 2026-02-09 is a Monday.
var testTickTime = time.Date(2026, 2, 9, 9, 12, 0, 0, time.UTC)

type fakeAction struct {
	result map[string]interface{}
	err    error
	calls  int
	tasks  []string
}

func (a *fakeAction) Do(ctx context.Context, tenant *model.Tenant, task *model.Task, logEntry *model.ScheduleLog) (map[string]interface{}, error) {
	a.calls++
	a.tasks = append(a.tasks, task.ID)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func newTestScheduler(t *testing.T, store Store, actions map[string]Action) *SchedulerService {
	t.Helper()
	return newNotifyingScheduler(t, store, actions, nil)
}

func newNotifyingScheduler(t *testing.T, store Store, actions map[string]Action, notifier Notifier) *SchedulerService {
	t.Helper()
	svc, err := NewSchedulerService(store, actions, notifier, time.UTC)
	if err != nil {
		t.Fatalf("NewSchedulerService: %v", err)
	}
	svc.now = func() time.Time { return testTickTime }
	return svc
}

func seedScheduleTenant(t *testing.T, store *fakeStore) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{ID: "tenant-sched", Slug: "sched", Name: "Sched", IsActive: true}
	if err := store.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatal(err)
	}
	return tenant
}

func seedRule(t *testing.T, store *fakeStore, tenantID, action string, times map[string]interface{}) *model.ScheduleRule {
	t.Helper()
	rule := &model.ScheduleRule{
		ID:       "rule-" + action,
		TenantID: tenantID,
		Action:   action,
		Times:    datatypes.JSONMap(times),
	}
	if err := store.CreateRule(context.Background(), rule); err != nil {
		t.Fatal(err)
	}
	return rule
}

func mondayMorning() map[string]interface{} {
	return map[string]interface{}{"hour": float64(9), "days": []interface{}{float64(1)}}
}

func TestRuleMatchesTimeslot(t *testing.T) {
	cases := []struct {
		name  string
		times map[string]interface{}
		slot  string
		want  bool
	}{
		{"matching hour and weekday", mondayMorning(), "2026-02-09-09", true},
		{"wrong hour", mondayMorning(), "2026-02-09-10", false},
		{"wrong weekday", mondayMorning(), "2026-02-10-09", false},
		{"sunday does not match monday rule", mondayMorning(), "2026-02-08-09", false},
		{"empty days never fires", map[string]interface{}{"hour": float64(9)}, "2026-02-14-09", false},
		{"explicit empty days never fires", map[string]interface{}{"hour": float64(9), "days": []interface{}{}}, "2026-02-09-09", false},
		{"sunday is zero", map[string]interface{}{"hour": float64(7), "days": []interface{}{float64(0)}}, "2026-02-08-07", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := &model.ScheduleRule{ID: "r", Times: datatypes.JSONMap(tc.times)}
			got, err := RuleMatchesTimeslot(rule, tc.slot)
			if err != nil {
				t.Fatalf("RuleMatchesTimeslot: %v", err)
			}
			if got != tc.want {
				t.Errorf("match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRuleMatchesTimeslotInvalid(t *testing.T) {
	rule := &model.ScheduleRule{ID: "r", Times: datatypes.JSONMap{"hour": float64(26)}}
	if _, err := RuleMatchesTimeslot(rule, "2026-02-09-09"); err == nil {
		t.Error("invalid hour accepted")
	}
	rule = &model.ScheduleRule{ID: "r", Times: datatypes.JSONMap{"hour": float64(9)}}
	if _, err := RuleMatchesTimeslot(rule, "not-a-slot"); err == nil {
		t.Error("invalid timeslot accepted")
	}
}

func TestCurrentTimeslotUsesLocation(t *testing.T) {
	store := newFakeStore()
	loc := time.FixedZone("UTC+2", 2*60*60)
	svc, err := NewSchedulerService(store, map[string]Action{"testlog": &fakeAction{}}, nil, loc)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return testTickTime }
	if got := svc.CurrentTimeslot(); got != "2026-02-09-11" {
		t.Errorf("timeslot = %q, want 2026-02-09-11", got)
	}
}

func TestRunTickExecutesMatchingRule(t *testing.T) {
	store := newFakeStore()
	action := &fakeAction{result: map[string]interface{}{"detail": "ok"}}
	svc := newTestScheduler(t, store, map[string]Action{"testlog": action})
	ctx := context.Background()

	tenant := seedScheduleTenant(t, store)
	rule := seedRule(t, store, tenant.ID, "testlog", mondayMorning())
	task := &model.Task{ID: "task-ready", TenantID: &tenant.ID, Status: model.TaskStatusReady, Name: "r"}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	if err := svc.RunTick(ctx, tenant); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if action.calls != 1 {
		t.Fatalf("action ran %d times, want 1", action.calls)
	}

	logEntry, err := store.FindLog(ctx, tenant.ID, rule.ID, "2026-02-09-09")
	if err != nil {
		t.Fatalf("FindLog: %v", err)
	}
	if logEntry.Status != model.ScheduleLogStatusDone {
		t.Errorf("log status = %s, want done", logEntry.Status)
	}
	if logEntry.TaskID == nil || *logEntry.TaskID != task.ID {
		t.Errorf("log task = %v, want %s", logEntry.TaskID, task.ID)
	}
	if logEntry.Processed == nil {
		t.Error("processed timestamp not set")
	}
	if logEntry.Result["detail"] != "ok" {
		t.Errorf("log result = %v", logEntry.Result)
	}
}

func TestRunTickIsIdempotentPerTimeslot(t *testing.T) {
	store := newFakeStore()
	action := &fakeAction{result: map[string]interface{}{}}
	svc := newTestScheduler(t, store, map[string]Action{"testlog": action})
	ctx := context.Background()

	tenant := seedScheduleTenant(t, store)
	seedRule(t, store, tenant.ID, "testlog", mondayMorning())
	task := &model.Task{ID: "task-ready", TenantID: &tenant.ID, Status: model.TaskStatusReady}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.RunTick(ctx, tenant); err != nil {
			t.Fatalf("RunTick #%d: %v", i, err)
		}
	}
	if action.calls != 1 {
		t.Errorf("action ran %d times across repeated ticks, want 1", action.calls)
	}
}

func TestRunTickSkipsNonMatchingSlot(t *testing.T) {
	store := newFakeStore()
	action := &fakeAction{}
	svc := newTestScheduler(t, store, map[string]Action{"testlog": action})

	tenant := seedScheduleTenant(t, store)
	seedRule(t, store, tenant.ID, "testlog", map[string]interface{}{
		"hour": float64(17), "days": []interface{}{float64(1)},
	})

	if err := svc.RunTick(context.Background(), tenant); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if action.calls != 0 {
		t.Errorf("action ran %d times outside its slot", action.calls)
	}
	if logs, _ := store.LogsForTenant(context.Background(), tenant.ID, 0); len(logs) != 0 {
		t.Errorf("%d logs written for a non-matching slot", len(logs))
	}
}

func TestRunTickNoTask(t *testing.T) {
	store := newFakeStore()
	action := &fakeAction{}
	svc := newTestScheduler(t, store, map[string]Action{"testlog": action})
	ctx := context.Background()

	tenant := seedScheduleTenant(t, store)
	rule := seedRule(t, store, tenant.ID, "testlog", mondayMorning())

	if err := svc.RunTick(ctx, tenant); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if action.calls != 0 {
		t.Errorf("action ran without a task")
	}
	logEntry, err := store.FindLog(ctx, tenant.ID, rule.ID, "2026-02-09-09")
	if err != nil {
		t.Fatalf("FindLog: %v", err)
	}
	if logEntry.Status != model.ScheduleLogStatusNoTask {
		t.Errorf("log status = %s, want no_task", logEntry.Status)
	}
}

func TestRunTickActionError(t *testing.T) {
	store := newFakeStore()
	action := &fakeAction{err: errors.New("platform down")}
	svc := newTestScheduler(t, store, map[string]Action{"testlog": action})
	ctx := context.Background()

	tenant := seedScheduleTenant(t, store)
	rule := seedRule(t, store, tenant.ID, "testlog", mondayMorning())
	task := &model.Task{ID: "task-ready", TenantID: &tenant.ID, Status: model.TaskStatusReady}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	if err := svc.RunTick(ctx, tenant); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	logEntry, _ := store.FindLog(ctx, tenant.ID, rule.ID, "2026-02-09-09")
	if logEntry.Status != model.ScheduleLogStatusError {
		t.Errorf("log status = %s, want error", logEntry.Status)
	}
	if logEntry.ErrorDetail() != "platform down" {
		t.Errorf("log error = %q", logEntry.ErrorDetail())
	}
}

func TestRunTickUnknownAction(t *testing.T) {
	store := newFakeStore()
	svc := newTestScheduler(t, store, map[string]Action{"testlog": &fakeAction{}})
	ctx := context.Background()

	tenant := seedScheduleTenant(t, store)
	rule := seedRule(t, store, tenant.ID, "renamed_away", mondayMorning())
	task := &model.Task{ID: "task-ready", TenantID: &tenant.ID, Status: model.TaskStatusReady}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	if err := svc.RunTick(ctx, tenant); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	logEntry, _ := store.FindLog(ctx, tenant.ID, rule.ID, "2026-02-09-09")
	if logEntry.Status != model.ScheduleLogStatusError {
		t.Errorf("log status = %s, want error", logEntry.Status)
	}
}

func TestRunTickResumesScheduledLog(t *testing.T) {
	store := newFakeStore()
	action := &fakeAction{result: map[string]interface{}{}}
	svc := newTestScheduler(t, store, map[string]Action{"testlog": action})
	ctx := context.Background()

	tenant := seedScheduleTenant(t, store)
	rule := seedRule(t, store, tenant.ID, "testlog", mondayMorning())
	pinned := &model.Task{ID: "task-pinned", TenantID: &tenant.ID, Status: model.TaskStatusReady}
	if err := store.CreateTask(ctx, pinned); err != nil {
		t.Fatal(err)
	}
	// A pre-seeded slot pinned to a specific task, as left behind by an
	// operator or an aborted earlier pass.
	seeded := &model.ScheduleLog{
		ID:             "log-seeded",
		Status:         model.ScheduleLogStatusScheduled,
		Timeslot:       "2026-02-09-09",
		TenantID:       tenant.ID,
		ScheduleRuleID: rule.ID,
		TaskID:         &pinned.ID,
		Action:         rule.Action,
	}
	if err := store.CreateLog(ctx, seeded); err != nil {
		t.Fatal(err)
	}

	if err := svc.RunTick(ctx, tenant); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if action.calls != 1 {
		t.Fatalf("action ran %d times, want 1 (resume only, no duplicate claim)", action.calls)
	}
	if action.tasks[0] != pinned.ID {
		t.Errorf("resumed log ran task %s, want the pinned %s", action.tasks[0], pinned.ID)
	}
	fresh, _ := store.FindLog(ctx, tenant.ID, rule.ID, "2026-02-09-09")
	if fresh.Status != model.ScheduleLogStatusDone {
		t.Errorf("log status = %s, want done", fresh.Status)
	}
}

func TestRunTickNotifiesEveryTerminalOutcome(t *testing.T) {
	cases := []struct {
		name      string
		action    Action
		withTask  bool
		wantEvent string
	}{
		{"done", &fakeAction{result: map[string]interface{}{}}, true, "schedule_done"},
		{"error", &fakeAction{err: errors.New("platform down")}, true, "schedule_error"},
		{"no task", &fakeAction{}, false, "schedule_no_task"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			notifier := &fakeNotifier{}
			svc := newNotifyingScheduler(t, store, map[string]Action{"testlog": tc.action}, notifier)
			ctx := context.Background()

			tenant := seedScheduleTenant(t, store)
			seedRule(t, store, tenant.ID, "testlog", mondayMorning())
			if tc.withTask {
				task := &model.Task{ID: "task-ready", TenantID: &tenant.ID, Status: model.TaskStatusReady}
				if err := store.CreateTask(ctx, task); err != nil {
					t.Fatal(err)
				}
			}

			if err := svc.RunTick(ctx, tenant); err != nil {
				t.Fatalf("RunTick: %v", err)
			}
			if len(notifier.events) != 1 || notifier.events[0] != tc.wantEvent {
				t.Errorf("notifier events = %v, want [%s]", notifier.events, tc.wantEvent)
			}
		})
	}
}

func TestRunAllSkipsInactiveTenants(t *testing.T) {
	store := newFakeStore()
	action := &fakeAction{result: map[string]interface{}{}}
	svc := newTestScheduler(t, store, map[string]Action{"testlog": action})
	ctx := context.Background()

	active := seedScheduleTenant(t, store)
	inactive := &model.Tenant{ID: "tenant-off", Slug: "off", Name: "Off", IsActive: false}
	if err := store.CreateTenant(ctx, inactive); err != nil {
		t.Fatal(err)
	}
	seedRule(t, store, active.ID, "testlog", mondayMorning())
	inactiveRule := &model.ScheduleRule{
		ID: "rule-off", TenantID: inactive.ID, Action: "testlog",
		Times: datatypes.JSONMap(mondayMorning()),
	}
	if err := store.CreateRule(ctx, inactiveRule); err != nil {
		t.Fatal(err)
	}
	for _, tid := range []string{active.ID, inactive.ID} {
		task := &model.Task{ID: "task-" + tid, TenantID: &tid, Status: model.TaskStatusReady}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if action.calls != 1 {
		t.Errorf("action ran %d times, want 1 (active tenant only)", action.calls)
	}
	if logs, _ := store.LogsForTenant(ctx, inactive.ID, 0); len(logs) != 0 {
		t.Errorf("inactive tenant got %d logs", len(logs))
	}
}

func TestNewSchedulerServiceValidatesRegistry(t *testing.T) {
	store := newFakeStore()
	if _, err := NewSchedulerService(store, map[string]Action{"": &fakeAction{}}, nil, time.UTC); err == nil {
		t.Error("empty action key accepted")
	}
	if _, err := NewSchedulerService(store, map[string]Action{"x": nil}, nil, time.UTC); err == nil {
		t.Error("nil action accepted")
	}
	svc, err := NewSchedulerService(store, map[string]Action{"x": &fakeAction{}}, nil, nil)
	if err != nil {
		t.Fatalf("nil location rejected: %v", err)
	}
	if svc.location != time.UTC {
		t.Error("nil location did not default to UTC")
	}
}
