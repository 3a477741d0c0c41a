package database

import (
	"context"
	"time"

	"github.com/postforge/api/model"
)

func (s *GORMStore) GetRule(ctx context.Context, id string) (*model.ScheduleRule, error) {
	var rule model.ScheduleRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *GORMStore) RulesForTenant(ctx context.Context, tenantID string) ([]model.ScheduleRule, error) {
	var rules []model.ScheduleRule
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GORMStore) CreateRule(ctx context.Context, rule *model.ScheduleRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *GORMStore) SaveRule(ctx context.Context, rule *model.ScheduleRule) error {
	rule.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(rule).Error
}

func (s *GORMStore) DeleteRule(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.ScheduleRule{}, "id = ?", id).Error
}

// FindLog returns the log for one (tenant, rule, timeslot) triple, or
// gorm.ErrRecordNotFound. At most one row can exist thanks to the unique index.
func (s *GORMStore) FindLog(ctx context.Context, tenantID, ruleID, timeslot string) (*model.ScheduleLog, error) {
	var logEntry model.ScheduleLog
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND schedule_rule_id = ? AND timeslot = ?", tenantID, ruleID, timeslot).
		First(&logEntry).Error
	if err != nil {
		return nil, err
	}
	return &logEntry, nil
}

// ScheduledLogs returns the tenant's pre-seeded SCHEDULED logs for a timeslot.
func (s *GORMStore) ScheduledLogs(ctx context.Context, tenantID, timeslot string) ([]model.ScheduleLog, error) {
	var logs []model.ScheduleLog
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND timeslot = ? AND status = ?", tenantID, timeslot, model.ScheduleLogStatusScheduled).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CreateLog inserts a new schedule log. A concurrent pass that already claimed
// the same (tenant, rule, timeslot) makes this fail with gorm.ErrDuplicatedKey.
func (s *GORMStore) CreateLog(ctx context.Context, logEntry *model.ScheduleLog) error {
	return s.db.WithContext(ctx).Create(logEntry).Error
}

func (s *GORMStore) SaveLog(ctx context.Context, logEntry *model.ScheduleLog) error {
	logEntry.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(logEntry).Error
}

func (s *GORMStore) LogsForTenant(ctx context.Context, tenantID string, limit int) ([]model.ScheduleLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []model.ScheduleLog
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
