package services

import (
	"context"
	"log"
	"time"

	"github.com/postforge/api/model"
)

// Action registry keys.
const (
	ActionTestLog          = "testlog"
	ActionPublishInstagram = "publish_instagram"
)

// NewTestLogAction returns the no-op action used to verify schedule wiring in
// an environment: it only logs and records when it ran.
func NewTestLogAction() Action {
	return ActionFunc(func(ctx context.Context, tenant *model.Tenant, task *model.Task, logEntry *model.ScheduleLog) (map[string]interface{}, error) {
		log.Printf("[SCHEDULER] testlog: tenant=%s task=%s slot=%s", tenant.Slug, task.ID, logEntry.Timeslot)
		return map[string]interface{}{
			"detail": "testlog executed",
			"ran_at": time.Now().UTC().Format(time.RFC3339),
		}, nil
	})
}

// NewPublishAction adapts the publisher into a schedule action so rules can
// push the tenant's oldest ready task live at their configured times.
func NewPublishAction(publisher *PublisherService) Action {
	return ActionFunc(func(ctx context.Context, tenant *model.Tenant, task *model.Task, logEntry *model.ScheduleLog) (map[string]interface{}, error) {
		published, err := publisher.Publish(ctx, task.ID)
		if err != nil {
			result := map[string]interface{}{}
			if published != nil {
				result["task_status"] = string(published.Status)
			}
			return result, err
		}
		return map[string]interface{}{
			"task_status": string(published.Status),
			"logs":        len(published.PublishLogs()),
		}, nil
	})
}
