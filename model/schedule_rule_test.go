package model

import (
	"testing"

	"gorm.io/datatypes"
)

func TestParseTimes(t *testing.T) {
	rule := &ScheduleRule{
		ID: "r1",
		Times: datatypes.JSONMap{
			"hour": float64(9),
			"days": []interface{}{float64(1), float64(3), float64(5)},
		},
	}
	times, err := rule.ParseTimes()
	if err != nil {
		t.Fatalf("ParseTimes: %v", err)
	}
	if times.Hour != 9 {
		t.Errorf("hour = %d", times.Hour)
	}
	if len(times.Days) != 3 || times.Days[0] != 1 || times.Days[2] != 5 {
		t.Errorf("days = %v", times.Days)
	}
}

func TestParseTimesEmptyDays(t *testing.T) {
	rule := &ScheduleRule{ID: "r1", Times: datatypes.JSONMap{"hour": float64(0)}}
	times, err := rule.ParseTimes()
	if err != nil {
		t.Fatalf("ParseTimes: %v", err)
	}
	if len(times.Days) != 0 {
		t.Errorf("days = %v, want empty", times.Days)
	}
}

func TestParseTimesInvalid(t *testing.T) {
	cases := []struct {
		name  string
		times datatypes.JSONMap
	}{
		{"nil times", nil},
		{"missing hour", datatypes.JSONMap{"days": []interface{}{float64(1)}}},
		{"hour too large", datatypes.JSONMap{"hour": float64(24)}},
		{"negative hour", datatypes.JSONMap{"hour": float64(-1)}},
		{"weekday out of range", datatypes.JSONMap{"hour": float64(9), "days": []interface{}{float64(7)}}},
		{"non-numeric hour", datatypes.JSONMap{"hour": "nine"}},
		{"non-numeric day", datatypes.JSONMap{"hour": float64(9), "days": []interface{}{"mon"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := &ScheduleRule{ID: "r1", Times: tc.times}
			if _, err := rule.ParseTimes(); err == nil {
				t.Error("invalid times accepted")
			}
		})
	}
}
