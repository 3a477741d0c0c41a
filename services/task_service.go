package services

import (
	"context"
	"fmt"
	"log"
	"path"

	"github.com/google/uuid"
	"github.com/postforge/api/model"
	"gorm.io/datatypes"
)

// TaskService owns the task state machine. Every transition validates the
// current status first and fails with ErrInvalidStateTransition otherwise,
// leaving the row untouched. Transitions that also touch jobs run inside a
// transaction so partial cascades are never visible.
type TaskService struct {
	store     Store
	templates *TemplateRegistry
	assets    AssetRemover
}

// NewTaskService wires the task state machine. assets may be nil when no
// public asset store is configured; Delete then skips remote cleanup.
func NewTaskService(store Store, templates *TemplateRegistry, assets AssetRemover) *TaskService {
	return &TaskService{store: store, templates: templates, assets: assets}
}

// CreateFromTemplate creates a DRAFT task with the template's default
// meta/post shape and its seed jobs (all NEW).
func (s *TaskService) CreateFromTemplate(ctx context.Context, tenantID *string, name, templateName string) (*model.Task, error) {
	tpl, err := s.templates.Get(templateName)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Status:   model.TaskStatusDraft,
		Name:     name,
		Template: tpl.Name,
		Meta:     cloneJSONMap(tpl.Meta),
		Post:     cloneJSONMap(tpl.Post),
		Result:   datatypes.JSONMap{},
	}

	err = s.store.InTransaction(ctx, func(tx Store) error {
		if err := tx.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		for _, spec := range tpl.Jobs {
			job := &model.Job{
				ID:        uuid.NewString(),
				TaskID:    task.ID,
				Status:    model.JobStatusNew,
				Generator: spec.Generator,
				Purpose:   spec.Purpose,
				Prompt:    cloneJSONMap(spec.Prompt),
				SortOrder: spec.SortOrder,
			}
			if err := tx.CreateJob(ctx, job); err != nil {
				return fmt.Errorf("create job: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

// SubmitForApproval moves DRAFT -> PENDING_APPROVAL.
func (s *TaskService) SubmitForApproval(ctx context.Context, id string) (*model.Task, error) {
	return s.transition(ctx, id, model.TaskStatusPendingApproval, model.TaskStatusDraft)
}

// ApproveForProcessing moves PENDING_APPROVAL -> PROCESSING and flips every
// NEW job to READY in the same transaction, unblocking the worker.
func (s *TaskService) ApproveForProcessing(ctx context.Context, id string) (*model.Task, error) {
	var task *model.Task
	err := s.store.InTransaction(ctx, func(tx Store) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != model.TaskStatusPendingApproval {
			return transitionError(t, model.TaskStatusProcessing)
		}
		t.Status = model.TaskStatusProcessing
		if err := tx.SaveTask(ctx, t); err != nil {
			return err
		}
		n, err := tx.MarkNewJobsReady(ctx, t.ID)
		if err != nil {
			return err
		}
		log.Printf("Task %s approved for processing; %d jobs marked ready", t.ID, n)
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Disapprove moves PENDING_APPROVAL -> DISAPPROVED.
func (s *TaskService) Disapprove(ctx context.Context, id string) (*model.Task, error) {
	return s.transition(ctx, id, model.TaskStatusDisapproved, model.TaskStatusPendingApproval)
}

// OverrideProcessing moves PROCESSING -> PENDING_CONFIRMATION manually,
// bypassing the all-jobs-processed check. Escape hatch for stuck pipelines.
func (s *TaskService) OverrideProcessing(ctx context.Context, id string) (*model.Task, error) {
	return s.transition(ctx, id, model.TaskStatusPendingConfirmation, model.TaskStatusProcessing)
}

// ApproveForPublication moves PENDING_CONFIRMATION -> READY.
func (s *TaskService) ApproveForPublication(ctx context.Context, id string) (*model.Task, error) {
	return s.transition(ctx, id, model.TaskStatusReady, model.TaskStatusPendingConfirmation)
}

// Reject moves PENDING_CONFIRMATION -> REJECTED.
func (s *TaskService) Reject(ctx context.Context, id string) (*model.Task, error) {
	return s.transition(ctx, id, model.TaskStatusRejected, model.TaskStatusPendingConfirmation)
}

// MarkFailed moves a task to FAILED from any status, recording the reason in
// result.error. There is no automatic recovery from FAILED; publish is the
// only edge out of it.
func (s *TaskService) MarkFailed(ctx context.Context, id, reason string) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = model.TaskStatusFailed
	if task.Result == nil {
		task.Result = datatypes.JSONMap{}
	}
	task.Result["error"] = reason
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// AdvanceIfComplete moves PROCESSING -> PENDING_CONFIRMATION when every job
// of the task is PROCESSED. Called by the worker after each job completes;
// reports whether the task advanced. Partial completion never advances.
func (s *TaskService) AdvanceIfComplete(ctx context.Context, taskID string) (bool, error) {
	advanced := false
	err := s.store.InTransaction(ctx, func(tx Store) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != model.TaskStatusProcessing {
			return nil
		}
		jobs, err := tx.JobsByTask(ctx, task.ID)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		for _, job := range jobs {
			if job.Status != model.JobStatusProcessed {
				return nil
			}
		}
		task.Status = model.TaskStatusPendingConfirmation
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}
		advanced = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if advanced {
		log.Printf("Task %s advanced to pending_confirmation; all jobs processed", taskID)
	}
	return advanced, nil
}

// Delete removes a task and its jobs (jobs first). Uploaded public assets are
// cleaned up best-effort beforehand; a failed remote delete is logged and the
// row removal proceeds so a flaky asset store can never pin a task.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if s.assets != nil {
		jobs, err := s.store.JobsByTask(ctx, id)
		if err != nil {
			return fmt.Errorf("list jobs for cleanup: %w", err)
		}
		for _, job := range jobs {
			imagePath, _ := job.Result["image_path"].(string)
			if imagePath == "" {
				continue
			}
			key := path.Join("tasks", id, path.Base(imagePath))
			if err := s.assets.Delete(ctx, key); err != nil {
				log.Printf("Asset cleanup failed for task %s key %s: %v", id, key, err)
			}
		}
	}
	return s.store.DeleteTask(ctx, id)
}

// transition validates the current status against the allowed set and saves
// the new one.
func (s *TaskService) transition(ctx context.Context, id string, to model.TaskStatus, from ...model.TaskStatus) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, status := range from {
		if task.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, transitionError(task, to)
	}
	task.Status = to
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func transitionError(task *model.Task, to model.TaskStatus) error {
	return fmt.Errorf("%w: task %s is %s, cannot move to %s", ErrInvalidStateTransition, task.ID, task.Status, to)
}
