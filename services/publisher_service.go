package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/postforge/api/config"
	"github.com/postforge/api/model"
)

// AIDisclosureTag is appended to every published caption exactly once.
const AIDisclosureTag = " #ImaginedWithAI"

// PublisherService pushes a finished task's images to the social platform.
// Publishing is the only operation allowed to leave FAILED, so a transient
// platform outage can be retried by calling Publish again.
type PublisherService struct {
	store    Store
	client   PublishClient
	notifier Notifier
}

func NewPublisherService(store Store, client PublishClient, notifier Notifier) *PublisherService {
	return &PublisherService{store: store, client: client, notifier: notifier}
}

// Publish takes a READY, PUBLISHING or FAILED task through a publish attempt.
// The task is moved to PUBLISHING before any network call so a crash mid-way
// is visible in the store. On success the task ends PUBLISHED with the publish
// payload appended to result.logs; on any failure it ends FAILED and the error
// is returned. Earlier log entries are never touched.
func (s *PublisherService) Publish(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	switch task.Status {
	case model.TaskStatusReady, model.TaskStatusPublishing, model.TaskStatusFailed:
	default:
		return nil, fmt.Errorf("%w: task %s is %s", ErrInvalidPublishState, task.ID, task.Status)
	}

	var tenant *model.Tenant
	if task.TenantID != nil {
		tenant, err = s.store.GetTenant(ctx, *task.TenantID)
		if err != nil {
			return nil, fmt.Errorf("load tenant: %w", err)
		}
	}
	env := config.ForTenant(tenant)

	task.Status = model.TaskStatusPublishing
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	log.Printf("[PUBLISHER] Publishing task %s (%s)", task.ID, task.Name)

	urls, err := s.collectImageURLs(ctx, task, env)
	if err != nil {
		return s.failPublish(ctx, task, tenant, err)
	}
	if len(urls) == 0 {
		return s.failPublish(ctx, task, tenant, fmt.Errorf("%w: task %s", ErrNoPublishableContent, task.ID))
	}

	caption := withDisclosure(task.Caption())

	var payload map[string]interface{}
	if len(urls) == 1 {
		payload, err = s.client.PublishImage(ctx, env, urls[0], caption)
	} else {
		payload, err = s.client.PublishCarousel(ctx, env, urls, caption)
	}
	if err != nil {
		return s.failPublish(ctx, task, tenant, fmt.Errorf("platform publish: %w", err))
	}

	entry := map[string]interface{}{
		"published_at": time.Now().UTC().Format(time.RFC3339),
		"image_count":  len(urls),
		"payload":      payload,
	}
	err = s.store.InTransaction(ctx, func(tx Store) error {
		fresh, err := tx.GetTask(ctx, task.ID)
		if err != nil {
			return err
		}
		fresh.Status = model.TaskStatusPublished
		fresh.AppendPublishLog(entry)
		task = fresh
		return tx.SaveTask(ctx, fresh)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[PUBLISHER] Task %s published (%d images)", task.ID, len(urls))
	s.notify(ctx, tenant, "publish", fmt.Sprintf("Task %s published (%d images)", task.Name, len(urls)))
	return task, nil
}

// collectImageURLs resolves a public URL for every processed imagecontent job,
// in display order. Jobs with a public_url from the uploader use it directly;
// otherwise PUBLIC_URL + image_path is assembled. Jobs that yield neither are
// skipped with a warning rather than failing the whole publish.
func (s *PublisherService) collectImageURLs(ctx context.Context, task *model.Task, env config.TenantEnv) ([]string, error) {
	jobs, err := s.store.ImageContentJobs(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	base := strings.TrimRight(env.Get("PUBLIC_URL", ""), "/")

	var urls []string
	for i := range jobs {
		job := &jobs[i]
		if job.Status != model.JobStatusProcessed {
			continue
		}
		if u := job.ResultString("public_url"); u != "" {
			urls = append(urls, u)
			continue
		}
		if p := job.ResultString("image_path"); p != "" && base != "" {
			urls = append(urls, base+"/"+strings.TrimLeft(p, "/"))
			continue
		}
		log.Printf("[PUBLISHER] Skipping job %s: no public URL resolvable", job.ID)
	}
	return urls, nil
}

func (s *PublisherService) failPublish(ctx context.Context, task *model.Task, tenant *model.Tenant, cause error) (*model.Task, error) {
	task.Status = model.TaskStatusFailed
	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		log.Printf("[PUBLISHER] Failed to persist failure for task %s: %v", task.ID, saveErr)
	}
	log.Printf("[PUBLISHER] Task %s failed: %v", task.ID, cause)
	s.notify(ctx, tenant, "publish_failed", fmt.Sprintf("Task %s failed to publish: %v", task.Name, cause))
	return task, cause
}

func (s *PublisherService) notify(ctx context.Context, tenant *model.Tenant, eventType, message string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, tenant, eventType, message)
	}
}

// withDisclosure appends the AI disclosure tag unless the caption already
// carries it.
func withDisclosure(caption string) string {
	if strings.Contains(caption, strings.TrimSpace(AIDisclosureTag)) {
		return caption
	}
	return caption + AIDisclosureTag
}
