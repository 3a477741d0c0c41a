package services

import (
	"context"

	"github.com/postforge/api/model"
)

// The store interfaces below are the repository abstraction the services work
// against. database.GORMStore implements all of them; tests substitute small
// in-memory fakes. Lookups report missing rows with gorm.ErrRecordNotFound
// and duplicate inserts with gorm.ErrDuplicatedKey, which is what the gorm
// implementation produces.

type TaskStore interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, task *model.Task) error
	SaveTask(ctx context.Context, task *model.Task) error
	ListTasks(ctx context.Context, tenantID *string, status *model.TaskStatus, limit int) ([]model.Task, error)
	OldestReadyTask(ctx context.Context, tenantID string) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type JobStore interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
	CreateJob(ctx context.Context, job *model.Job) error
	SaveJob(ctx context.Context, job *model.Job) error
	JobsByTask(ctx context.Context, taskID string) ([]model.Job, error)
	ImageContentJobs(ctx context.Context, taskID string) ([]model.Job, error)
	MarkNewJobsReady(ctx context.Context, taskID string) (int64, error)
	NextProcessableJob(ctx context.Context) (*model.Job, error)
}

type TenantStore interface {
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	ListTenants(ctx context.Context, activeOnly bool) ([]model.Tenant, error)
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	SaveTenant(ctx context.Context, tenant *model.Tenant) error
}

type ScheduleStore interface {
	GetRule(ctx context.Context, id string) (*model.ScheduleRule, error)
	RulesForTenant(ctx context.Context, tenantID string) ([]model.ScheduleRule, error)
	CreateRule(ctx context.Context, rule *model.ScheduleRule) error
	SaveRule(ctx context.Context, rule *model.ScheduleRule) error
	DeleteRule(ctx context.Context, id string) error
	FindLog(ctx context.Context, tenantID, ruleID, timeslot string) (*model.ScheduleLog, error)
	ScheduledLogs(ctx context.Context, tenantID, timeslot string) ([]model.ScheduleLog, error)
	CreateLog(ctx context.Context, logEntry *model.ScheduleLog) error
	SaveLog(ctx context.Context, logEntry *model.ScheduleLog) error
	LogsForTenant(ctx context.Context, tenantID string, limit int) ([]model.ScheduleLog, error)
}

// Store is the full persistence surface. InTransaction hands fn a tx-scoped
// store; every multi-record transition goes through it.
type Store interface {
	TaskStore
	JobStore
	TenantStore
	ScheduleStore
	InTransaction(ctx context.Context, fn func(Store) error) error
}
