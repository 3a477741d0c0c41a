package model

import (
	"time"

	"gorm.io/datatypes"
)

// Tenant represents an isolated customer context. Each tenant owns its own
// tasks and schedule rules and carries its own configuration (Instagram
// credentials, webhook URLs, public asset base URL) in the Env JSON column.
type Tenant struct {
	ID        string            `gorm:"type:uuid;primaryKey" json:"id"`
	Slug      string            `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Name      string            `gorm:"not null" json:"name"`
	Note      string            `gorm:"type:text" json:"note,omitempty"`
	IsActive  bool              `gorm:"default:true" json:"is_active"`
	Env       datatypes.JSONMap `gorm:"type:jsonb" json:"env,omitempty"` // INSTAGRAM_ACCESS_TOKEN, DISCORD_WEBHOOK_URL, PUBLIC_URL, ...
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Relationships
	Tasks         []Task         `gorm:"foreignKey:TenantID" json:"-"`
	ScheduleRules []ScheduleRule `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// EnvValue returns the tenant env override for key as a string, or "" if the
// key is absent or not a string.
func (t *Tenant) EnvValue(key string) string {
	if t == nil || t.Env == nil {
		return ""
	}
	if v, ok := t.Env[key].(string); ok {
		return v
	}
	return ""
}
