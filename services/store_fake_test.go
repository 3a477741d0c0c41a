package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/postforge/api/model"
)

// fakeStore is an in-memory Store for unit tests. It mirrors the repository
// semantics the services rely on: copies on read and write, record-not-found
// and duplicate-key sentinels, and the unique slot index on schedule logs.
type fakeStore struct {
	mu      sync.Mutex
	tasks   map[string]*model.Task
	jobs    map[string]*model.Job
	tenants map[string]*model.Tenant
	rules   map[string]*model.ScheduleRule
	logs    map[string]*model.ScheduleLog
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:   map[string]*model.Task{},
		jobs:    map[string]*model.Job{},
		tenants: map[string]*model.Tenant{},
		rules:   map[string]*model.ScheduleRule{},
		logs:    map[string]*model.ScheduleLog{},
	}
}

func (f *fakeStore) nextTime() time.Time {
	f.seq++
	return time.Unix(int64(1700000000+f.seq), 0)
}

func copyTask(t *model.Task) *model.Task {
	c := *t
	return &c
}
func copyJob(j *model.Job) *model.Job {
	c := *j
	return &c
}
func copyTenant(t *model.Tenant) *model.Tenant {
	c := *t
	return &c
}
func copyRule(r *model.ScheduleRule) *model.ScheduleRule {
	c := *r
	return &c
}
func copyLog(l *model.ScheduleLog) *model.ScheduleLog {
	c := *l
	return &c
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyTask(t), nil
}

func (f *fakeStore) CreateTask(ctx context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task.CreatedAt = f.nextTime()
	f.tasks[task.ID] = copyTask(task)
	return nil
}

func (f *fakeStore) SaveTask(ctx context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.tasks[task.ID] = copyTask(task)
	return nil
}

func (f *fakeStore) ListTasks(ctx context.Context, tenantID *string, status *model.TaskStatus, limit int) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if tenantID != nil && (t.TenantID == nil || *t.TenantID != *tenantID) {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, *copyTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) OldestReadyTask(ctx context.Context, tenantID string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *model.Task
	for _, t := range f.tasks {
		if t.Status != model.TaskStatusReady || t.TenantID == nil || *t.TenantID != tenantID {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return copyTask(oldest), nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.tasks, id)
	for jid, j := range f.jobs {
		if j.TaskID == id {
			delete(f.jobs, jid)
		}
	}
	return nil
}

func (f *fakeStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyJob(j), nil
}

func (f *fakeStore) CreateJob(ctx context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.CreatedAt = f.nextTime()
	f.jobs[job.ID] = copyJob(job)
	return nil
}

func (f *fakeStore) SaveJob(ctx context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.jobs[job.ID] = copyJob(job)
	return nil
}

func (f *fakeStore) JobsByTask(ctx context.Context, taskID string) ([]model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Job
	for _, j := range f.jobs {
		if j.TaskID == taskID {
			out = append(out, *copyJob(j))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ImageContentJobs(ctx context.Context, taskID string) ([]model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Job
	for _, j := range f.jobs {
		if j.TaskID == taskID && j.Purpose == model.JobPurposeImageContent {
			out = append(out, *copyJob(j))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder > out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) MarkNewJobsReady(ctx context.Context, taskID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, j := range f.jobs {
		if j.TaskID == taskID && j.Status == model.JobStatusNew {
			j.Status = model.JobStatusReady
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) NextProcessableJob(ctx context.Context) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *model.Job
	for _, j := range f.jobs {
		if j.Status != model.JobStatusReady {
			continue
		}
		task, ok := f.tasks[j.TaskID]
		if !ok || task.Status != model.TaskStatusProcessing {
			continue
		}
		if next == nil || j.CreatedAt.Before(next.CreatedAt) {
			next = j
		}
	}
	if next == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return copyJob(next), nil
}

func (f *fakeStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyTenant(t), nil
}

func (f *fakeStore) GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tenants {
		if t.Slug == slug {
			return copyTenant(t), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ListTenants(ctx context.Context, activeOnly bool) ([]model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Tenant
	for _, t := range f.tenants {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, *copyTenant(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (f *fakeStore) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants[tenant.ID] = copyTenant(tenant)
	return nil
}

func (f *fakeStore) SaveTenant(ctx context.Context, tenant *model.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[tenant.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.tenants[tenant.ID] = copyTenant(tenant)
	return nil
}

func (f *fakeStore) GetRule(ctx context.Context, id string) (*model.ScheduleRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyRule(r), nil
}

func (f *fakeStore) RulesForTenant(ctx context.Context, tenantID string) ([]model.ScheduleRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ScheduleRule
	for _, r := range f.rules {
		if r.TenantID == tenantID {
			out = append(out, *copyRule(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateRule(ctx context.Context, rule *model.ScheduleRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[rule.ID] = copyRule(rule)
	return nil
}

func (f *fakeStore) SaveRule(ctx context.Context, rule *model.ScheduleRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[rule.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.rules[rule.ID] = copyRule(rule)
	return nil
}

func (f *fakeStore) DeleteRule(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rules, id)
	return nil
}

func (f *fakeStore) FindLog(ctx context.Context, tenantID, ruleID, timeslot string) (*model.ScheduleLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.logs {
		if l.TenantID == tenantID && l.ScheduleRuleID == ruleID && l.Timeslot == timeslot {
			return copyLog(l), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ScheduledLogs(ctx context.Context, tenantID, timeslot string) ([]model.ScheduleLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ScheduleLog
	for _, l := range f.logs {
		if l.TenantID == tenantID && l.Timeslot == timeslot && l.Status == model.ScheduleLogStatusScheduled {
			out = append(out, *copyLog(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateLog(ctx context.Context, logEntry *model.ScheduleLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.logs {
		if l.TenantID == logEntry.TenantID &&
			l.ScheduleRuleID == logEntry.ScheduleRuleID &&
			l.Timeslot == logEntry.Timeslot {
			return gorm.ErrDuplicatedKey
		}
	}
	f.logs[logEntry.ID] = copyLog(logEntry)
	return nil
}

func (f *fakeStore) SaveLog(ctx context.Context, logEntry *model.ScheduleLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.logs[logEntry.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.logs[logEntry.ID] = copyLog(logEntry)
	return nil
}

func (f *fakeStore) LogsForTenant(ctx context.Context, tenantID string, limit int) ([]model.ScheduleLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ScheduleLog
	for _, l := range f.logs {
		if l.TenantID == tenantID {
			out = append(out, *copyLog(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InTransaction runs fn against the same store. Rollback is not emulated;
// the tests assert on end states, not on partial failure recovery.
func (f *fakeStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	return fn(f)
}
