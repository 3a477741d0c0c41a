package model

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus represents the lifecycle of a single generation unit
type JobStatus string

const (
	JobStatusNew        JobStatus = "new"        // created, blocked until the task is approved
	JobStatusReady      JobStatus = "ready"      // ready for the worker to pick up
	JobStatusProcessing JobStatus = "processing" // generator call in flight
	JobStatusProcessed  JobStatus = "processed"  // generator succeeded, result populated
	JobStatusError      JobStatus = "error"      // generator failed, result.error holds details
)

// JobPurposeImageContent tags jobs whose result images make up the published post
const JobPurposeImageContent = "imagecontent"

// Job represents one AI generation unit belonging to a task. Generator selects
// the capability that runs it; Prompt is the generator input and Result the
// generator output (image path, optional remote URL, optional public URL, or
// error details).
type Job struct {
	ID        string            `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    string            `gorm:"type:uuid;not null;index" json:"task_id"`
	Status    JobStatus         `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	Generator string            `gorm:"type:varchar(50);not null" json:"generator"`
	Purpose   string            `gorm:"type:varchar(100)" json:"purpose,omitempty"`
	Prompt    datatypes.JSONMap `gorm:"type:jsonb" json:"prompt,omitempty"`
	Result    datatypes.JSONMap `gorm:"type:jsonb" json:"result,omitempty"`
	SortOrder int               `gorm:"column:sort_order;default:0" json:"sort_order"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Relationships
	Task Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Job
func (Job) TableName() string {
	return "jobs"
}

// IsProcessable reports whether ProcessJob may pick this job up.
// ERROR is included so failed jobs can be retried by explicit re-invocation.
func (j *Job) IsProcessable() bool {
	return j.Status == JobStatusReady || j.Status == JobStatusError
}

// PromptText returns prompt.prompt, or "" when unset.
func (j *Job) PromptText() string {
	if j.Prompt == nil {
		return ""
	}
	if v, ok := j.Prompt["prompt"].(string); ok {
		return v
	}
	return ""
}

// ResultString returns a string field from the result map, or "".
func (j *Job) ResultString(key string) string {
	if j.Result == nil {
		return ""
	}
	if v, ok := j.Result[key].(string); ok {
		return v
	}
	return ""
}
