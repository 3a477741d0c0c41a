package model

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus represents where a task sits in the approval/publication pipeline
type TaskStatus string

const (
	TaskStatusDraft               TaskStatus = "draft"
	TaskStatusPendingApproval     TaskStatus = "pending_approval"
	TaskStatusDisapproved         TaskStatus = "disapproved"
	TaskStatusProcessing          TaskStatus = "processing"
	TaskStatusPendingConfirmation TaskStatus = "pending_confirmation"
	TaskStatusRejected            TaskStatus = "rejected"
	TaskStatusReady               TaskStatus = "ready"
	TaskStatusPublishing          TaskStatus = "publishing"
	TaskStatusPublished           TaskStatus = "published"
	TaskStatusFailed              TaskStatus = "failed"
)

// Task represents one content item moving through approval, generation,
// confirmation and publication. The JSON columns vary by template:
// Meta holds template inputs, Post the rendered content (caption),
// Result an append-only "logs" list of publish attempts.
type Task struct {
	ID           string            `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     *string           `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Status       TaskStatus        `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	Name         string            `json:"name"`
	Template     string            `gorm:"type:varchar(100)" json:"template"`
	Meta         datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`
	Post         datatypes.JSONMap `gorm:"type:jsonb" json:"post,omitempty"`
	Result       datatypes.JSONMap `gorm:"type:jsonb" json:"result,omitempty"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	// Relationships
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Jobs   []Job   `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"jobs,omitempty"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}

// Caption returns post.caption, or "" when unset.
func (t *Task) Caption() string {
	if t.Post == nil {
		return ""
	}
	if v, ok := t.Post["caption"].(string); ok {
		return v
	}
	return ""
}

// PublishLogs returns the result.logs list (publish attempt history).
func (t *Task) PublishLogs() []interface{} {
	if t.Result == nil {
		return nil
	}
	logs, _ := t.Result["logs"].([]interface{})
	return logs
}

// AppendPublishLog appends one publish result to result.logs. The list only
// ever grows; existing entries and any other result keys are preserved.
func (t *Task) AppendPublishLog(entry map[string]interface{}) {
	if t.Result == nil {
		t.Result = datatypes.JSONMap{}
	}
	logs, _ := t.Result["logs"].([]interface{})
	t.Result["logs"] = append(logs, entry)
}
