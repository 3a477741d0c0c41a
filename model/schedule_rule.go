package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ScheduleRule defines what action should run at which times during the week,
// e.g. publish at Mon 09:00 and Wed 14:00. Times is a JSON document:
//
//	{"hour": 9, "days": [1, 3]}
//
// where hour is 0-23 and days are cron-style weekday integers
// (0=Sunday .. 6=Saturday).
type ScheduleRule struct {
	ID        string            `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  string            `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Action    string            `gorm:"type:varchar(100);not null" json:"action"`
	Note      string            `gorm:"type:text" json:"note,omitempty"`
	Times     datatypes.JSONMap `gorm:"type:jsonb" json:"times,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ScheduleRule
func (ScheduleRule) TableName() string {
	return "schedule_rules"
}

// RuleTimes is the validated shape of ScheduleRule.Times.
type RuleTimes struct {
	Hour int
	Days []int
}

// ParseTimes validates and decodes the Times column. JSON numbers arrive as
// float64, so fields are checked and converted explicitly.
func (r *ScheduleRule) ParseTimes() (*RuleTimes, error) {
	if r.Times == nil {
		return nil, fmt.Errorf("schedule rule %s has no times config", r.ID)
	}

	rawHour, ok := r.Times["hour"]
	if !ok {
		return nil, fmt.Errorf("schedule rule %s times is missing hour", r.ID)
	}
	hour, ok := asInt(rawHour)
	if !ok || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("schedule rule %s has invalid hour %v", r.ID, rawHour)
	}

	days := []int{}
	if rawDays, ok := r.Times["days"].([]interface{}); ok {
		for _, d := range rawDays {
			day, ok := asInt(d)
			if !ok || day < 0 || day > 6 {
				return nil, fmt.Errorf("schedule rule %s has invalid weekday %v", r.ID, d)
			}
			days = append(days, day)
		}
	}

	return &RuleTimes{Hour: hour, Days: days}, nil
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}
