package model

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduleLogStatus represents the outcome of one rule evaluation for one timeslot
type ScheduleLogStatus string

const (
	ScheduleLogStatusScheduled  ScheduleLogStatus = "scheduled"  // pre-seeded, not yet run
	ScheduleLogStatusProcessing ScheduleLogStatus = "processing" // claimed by a scheduler pass
	ScheduleLogStatusNoTask     ScheduleLogStatus = "no_task"    // no task resolvable for the action
	ScheduleLogStatusError      ScheduleLogStatus = "error"
	ScheduleLogStatusDone       ScheduleLogStatus = "done"
)

// ScheduleLog records that a schedule rule ran (or could not run) for a
// specific timeslot. The unique index over (tenant_id, schedule_rule_id,
// timeslot) is the idempotence guarantee: a rule executes at most once per
// timeslot no matter how many scheduler passes see it.
type ScheduleLog struct {
	ID             string            `gorm:"type:uuid;primaryKey" json:"id"`
	Status         ScheduleLogStatus `gorm:"type:varchar(20);not null" json:"status"`
	Timeslot       string            `gorm:"type:varchar(13);not null;uniqueIndex:uq_schedule_log_slot,priority:3" json:"timeslot"` // YYYY-MM-DD-HH
	TenantID       string            `gorm:"type:uuid;not null;uniqueIndex:uq_schedule_log_slot,priority:1" json:"tenant_id"`
	ScheduleRuleID string            `gorm:"type:uuid;not null;uniqueIndex:uq_schedule_log_slot,priority:2" json:"schedule_rule_id"`
	TaskID         *string           `gorm:"type:uuid;index" json:"task_id,omitempty"`
	Action         string            `gorm:"type:varchar(100);not null" json:"action"`
	Result         datatypes.JSONMap `gorm:"type:jsonb" json:"result,omitempty"`
	Processed      *time.Time        `json:"processed,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	// Relationships
	Tenant       Tenant       `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
	ScheduleRule ScheduleRule `gorm:"foreignKey:ScheduleRuleID;constraint:OnDelete:CASCADE" json:"-"`
	Task         *Task        `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

// TableName specifies the table name for ScheduleLog
func (ScheduleLog) TableName() string {
	return "schedule_logs"
}

// IsTerminal reports whether the log reached a final outcome.
func (l *ScheduleLog) IsTerminal() bool {
	return l.Status == ScheduleLogStatusDone ||
		l.Status == ScheduleLogStatusError ||
		l.Status == ScheduleLogStatusNoTask
}

// ErrorDetail returns result.error for ERROR logs, or "".
func (l *ScheduleLog) ErrorDetail() string {
	if l.Result == nil {
		return ""
	}
	if v, ok := l.Result["error"].(string); ok {
		return v
	}
	return ""
}
