package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/postforge/api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TimeslotLayout renders the hour-granular slot a schedule rule fires in.
const TimeslotLayout = "2006-01-02-15"

// SchedulerService evaluates every active tenant's schedule rules against the
// current timeslot. Idempotence lives in the store: the unique index over
// (tenant, rule, timeslot) means only one pass ever claims a slot, so the
// scheduler can run as often as it likes.
type SchedulerService struct {
	store    Store
	actions  map[string]Action
	notifier Notifier
	location *time.Location
	now      func() time.Time
}

// NewSchedulerService validates the action registry up front, mirroring the
// generator registry: a rule naming a missing action should fail loudly at
// wiring time where possible.
func NewSchedulerService(store Store, actions map[string]Action, notifier Notifier, location *time.Location) (*SchedulerService, error) {
	for key, act := range actions {
		if key == "" || act == nil {
			return nil, fmt.Errorf("action registry entry %q is invalid", key)
		}
	}
	if location == nil {
		location = time.UTC
	}
	return &SchedulerService{
		store:    store,
		actions:  actions,
		notifier: notifier,
		location: location,
		now:      time.Now,
	}, nil
}

// ActionNames lists the registered action keys.
func (s *SchedulerService) ActionNames() []string {
	names := make([]string, 0, len(s.actions))
	for name := range s.actions {
		names = append(names, name)
	}
	return names
}

// CurrentTimeslot returns the slot for the configured timezone, e.g.
// "2026-02-09-09".
func (s *SchedulerService) CurrentTimeslot() string {
	return s.now().In(s.location).Format(TimeslotLayout)
}

// RuleMatchesTimeslot reports whether the rule's times configuration fires in
// the given slot: the hour must match and the slot's weekday must be listed
// in days. A rule with an empty days list never fires.
func RuleMatchesTimeslot(rule *model.ScheduleRule, timeslot string) (bool, error) {
	times, err := rule.ParseTimes()
	if err != nil {
		return false, err
	}
	slot, err := time.Parse(TimeslotLayout, timeslot)
	if err != nil {
		return false, fmt.Errorf("invalid timeslot %q: %w", timeslot, err)
	}
	if slot.Hour() != times.Hour {
		return false, nil
	}
	// time.Weekday already uses the cron convention (Sunday=0).
	weekday := int(slot.Weekday())
	for _, day := range times.Days {
		if day == weekday {
			return true, nil
		}
	}
	return false, nil
}

// RunAll runs one tick for every active tenant. Per-tenant errors are logged
// and do not stop the pass.
func (s *SchedulerService) RunAll(ctx context.Context) error {
	tenants, err := s.store.ListTenants(ctx, true)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	for i := range tenants {
		if err := s.RunTick(ctx, &tenants[i]); err != nil {
			log.Printf("[SCHEDULER] Tenant %s tick failed: %v", tenants[i].Slug, err)
		}
	}
	return nil
}

// RunTick evaluates one tenant for the current timeslot. Pre-seeded SCHEDULED
// logs are resumed first, then rules whose times match the slot and have no
// log yet. Individual rule failures are recorded on their log and do not
// abort the tick.
func (s *SchedulerService) RunTick(ctx context.Context, tenant *model.Tenant) error {
	timeslot := s.CurrentTimeslot()

	resumed := map[string]bool{}
	pending, err := s.store.ScheduledLogs(ctx, tenant.ID, timeslot)
	if err != nil {
		return fmt.Errorf("list scheduled logs: %w", err)
	}
	for i := range pending {
		logEntry := &pending[i]
		resumed[logEntry.ScheduleRuleID] = true
		rule, err := s.store.GetRule(ctx, logEntry.ScheduleRuleID)
		if err != nil {
			log.Printf("[SCHEDULER] Rule %s for log %s: %v", logEntry.ScheduleRuleID, logEntry.ID, err)
			continue
		}
		logEntry.Status = model.ScheduleLogStatusProcessing
		if err := s.store.SaveLog(ctx, logEntry); err != nil {
			log.Printf("[SCHEDULER] Claim log %s: %v", logEntry.ID, err)
			continue
		}
		s.execute(ctx, tenant, rule, logEntry)
	}

	rules, err := s.store.RulesForTenant(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	for i := range rules {
		rule := &rules[i]
		if resumed[rule.ID] {
			continue
		}
		matches, err := RuleMatchesTimeslot(rule, timeslot)
		if err != nil {
			log.Printf("[SCHEDULER] Rule %s: %v", rule.ID, err)
			continue
		}
		if !matches {
			continue
		}
		if err := s.runRule(ctx, tenant, rule, timeslot); err != nil {
			log.Printf("[SCHEDULER] Rule %s in slot %s: %v", rule.ID, timeslot, err)
		}
	}
	return nil
}

// runRule claims the (tenant, rule, timeslot) slot by inserting a PROCESSING
// log. A duplicate-key error means another pass already owns the slot; that
// is the normal idempotence path, not a failure.
func (s *SchedulerService) runRule(ctx context.Context, tenant *model.Tenant, rule *model.ScheduleRule, timeslot string) error {
	logEntry := &model.ScheduleLog{
		ID:             uuid.NewString(),
		Status:         model.ScheduleLogStatusProcessing,
		Timeslot:       timeslot,
		TenantID:       tenant.ID,
		ScheduleRuleID: rule.ID,
		Action:         rule.Action,
	}
	if err := s.store.CreateLog(ctx, logEntry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("[SCHEDULER] Slot %s already handled for rule %s", timeslot, rule.ID)
			return nil
		}
		return fmt.Errorf("claim slot: %w", err)
	}
	s.execute(ctx, tenant, rule, logEntry)
	return nil
}

// execute resolves the task, runs the action and moves the log to a terminal
// status. The log always ends terminal: DONE, NO_TASK or ERROR. Every
// terminal outcome is also forwarded to the notifier.
func (s *SchedulerService) execute(ctx context.Context, tenant *model.Tenant, rule *model.ScheduleRule, logEntry *model.ScheduleLog) {
	task, err := s.resolveTask(ctx, tenant, logEntry)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.finish(ctx, logEntry, model.ScheduleLogStatusNoTask, map[string]interface{}{
				"detail": "no task available for action",
			})
			log.Printf("[SCHEDULER] Rule %s slot %s: no task available", rule.ID, logEntry.Timeslot)
			s.notify(ctx, tenant, "schedule_no_task",
				fmt.Sprintf("No task available for action %s in slot %s", rule.Action, logEntry.Timeslot))
			return
		}
		s.finish(ctx, logEntry, model.ScheduleLogStatusError, map[string]interface{}{
			"error": err.Error(),
		})
		s.notify(ctx, tenant, "schedule_error",
			fmt.Sprintf("Action %s failed in slot %s: %v", rule.Action, logEntry.Timeslot, err))
		return
	}
	logEntry.TaskID = &task.ID

	action, ok := s.actions[rule.Action]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownAction, rule.Action)
		s.finish(ctx, logEntry, model.ScheduleLogStatusError, map[string]interface{}{
			"error": err.Error(),
		})
		log.Printf("[SCHEDULER] %v", err)
		s.notify(ctx, tenant, "schedule_error",
			fmt.Sprintf("Action %s failed for task %s: %v", rule.Action, task.Name, err))
		return
	}

	result, err := action.Do(ctx, tenant, task, logEntry)
	if err != nil {
		if result == nil {
			result = map[string]interface{}{}
		}
		result["error"] = err.Error()
		s.finish(ctx, logEntry, model.ScheduleLogStatusError, result)
		log.Printf("[SCHEDULER] Action %s on task %s failed: %v", rule.Action, task.ID, err)
		s.notify(ctx, tenant, "schedule_error",
			fmt.Sprintf("Action %s failed for task %s: %v", rule.Action, task.Name, err))
		return
	}
	s.finish(ctx, logEntry, model.ScheduleLogStatusDone, result)
	log.Printf("[SCHEDULER] Action %s completed for task %s in slot %s", rule.Action, task.ID, logEntry.Timeslot)
	s.notify(ctx, tenant, "schedule_done",
		fmt.Sprintf("Action %s completed for task %s in slot %s", rule.Action, task.Name, logEntry.Timeslot))
}

// resolveTask prefers a task pinned on the log (pre-seeded slots), otherwise
// the oldest READY task of the tenant.
func (s *SchedulerService) resolveTask(ctx context.Context, tenant *model.Tenant, logEntry *model.ScheduleLog) (*model.Task, error) {
	if logEntry.TaskID != nil {
		return s.store.GetTask(ctx, *logEntry.TaskID)
	}
	return s.store.OldestReadyTask(ctx, tenant.ID)
}

func (s *SchedulerService) finish(ctx context.Context, logEntry *model.ScheduleLog, status model.ScheduleLogStatus, result map[string]interface{}) {
	now := time.Now().UTC()
	logEntry.Status = status
	logEntry.Processed = &now
	if result != nil {
		logEntry.Result = datatypes.JSONMap(result)
	}
	if err := s.store.SaveLog(ctx, logEntry); err != nil {
		log.Printf("[SCHEDULER] Failed to persist log %s: %v", logEntry.ID, err)
	}
}

func (s *SchedulerService) notify(ctx context.Context, tenant *model.Tenant, eventType, message string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, tenant, eventType, message)
	}
}
