package database

import (
	"context"
	"time"

	"github.com/postforge/api/model"
	"gorm.io/gorm"
)

// Task and job repository methods. Model timestamps are bumped explicitly so
// updates made through Save always move updated_at, matching the state
// machine's expectation that every transition is visible.

func (s *GORMStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *GORMStore) CreateTask(ctx context.Context, task *model.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *GORMStore) SaveTask(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(task).Error
}

// ListTasks returns tasks newest first, optionally filtered by tenant and status.
func (s *GORMStore) ListTasks(ctx context.Context, tenantID *string, status *model.TaskStatus, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&model.Task{}).Order("created_at DESC").Limit(limit)
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var tasks []model.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// OldestReadyTask returns the tenant's oldest READY task, or
// gorm.ErrRecordNotFound when none exists.
func (s *GORMStore) OldestReadyTask(ctx context.Context, tenantID string) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, model.TaskStatusReady).
		Order("created_at ASC").
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task and its jobs. Jobs go first so a failure never
// leaves orphaned jobs behind a missing task.
func (s *GORMStore) DeleteTask(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Job{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, "id = ?", id).Error
	})
}

func (s *GORMStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *GORMStore) CreateJob(ctx context.Context, job *model.Job) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *GORMStore) SaveJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(job).Error
}

// JobsByTask returns every job of a task, publication order first
// (explicit order descending, then oldest created).
func (s *GORMStore) JobsByTask(ctx context.Context, taskID string) ([]model.Job, error) {
	var jobs []model.Job
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("sort_order DESC, created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ImageContentJobs returns the task's publishable image jobs in publication order.
func (s *GORMStore) ImageContentJobs(ctx context.Context, taskID string) ([]model.Job, error) {
	var jobs []model.Job
	err := s.db.WithContext(ctx).
		Where("task_id = ? AND purpose = ?", taskID, model.JobPurposeImageContent).
		Order("sort_order DESC, created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkNewJobsReady flips all NEW jobs of a task to READY and reports how many
// changed. Runs as one statement so the approval cascade is atomic.
func (s *GORMStore) MarkNewJobsReady(ctx context.Context, taskID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Job{}).
		Where("task_id = ? AND status = ?", taskID, model.JobStatusNew).
		Updates(map[string]interface{}{
			"status":     model.JobStatusReady,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// NextProcessableJob returns the oldest READY job whose parent task is
// PROCESSING, or gorm.ErrRecordNotFound. One row per call; the worker claims
// at most one job per tick.
func (s *GORMStore) NextProcessableJob(ctx context.Context) (*model.Job, error) {
	var job model.Job
	err := s.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = jobs.task_id").
		Where("jobs.status = ? AND tasks.status = ?", model.JobStatusReady, model.TaskStatusProcessing).
		Order("jobs.created_at ASC").
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}
