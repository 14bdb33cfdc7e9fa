package scheduler

import (
	"testing"
	"time"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ScheduleTime
		wantErr bool
	}{
		{"06:00", ScheduleTime{Hour: 6, Minute: 0}, false},
		{"23:59", ScheduleTime{Hour: 23, Minute: 59}, false},
		{"0:5", ScheduleTime{Hour: 0, Minute: 5}, false},
		{"24:00", ScheduleTime{}, true},
		{"12:60", ScheduleTime{}, true},
		{"-1:00", ScheduleTime{}, true},
		{"noon", ScheduleTime{}, true},
		{"", ScheduleTime{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScheduleTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseScheduleTime(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestScheduleTimeString(t *testing.T) {
	st := ScheduleTime{Hour: 6, Minute: 5}
	if got := st.String(); got != "06:05" {
		t.Errorf("String() = %q, want 06:05", got)
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	if _, err := NewScheduler(SchedulerConfig{ScheduleTimes: []string{}}); err == nil {
		t.Error("expected error for empty schedule")
	}
	if _, err := NewScheduler(SchedulerConfig{ScheduleTimes: []string{"99:00"}}); err == nil {
		t.Error("expected error for invalid time")
	}
}

func TestShouldRun(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{
		ScheduleTimes: []string{"06:00", "18:30"},
		WorkerCount:   1,
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	at := func(hour, minute int) time.Time {
		return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
	}

	if !s.shouldRun(at(6, 0)) {
		t.Error("06:00 should trigger")
	}
	if s.shouldRun(at(6, 0)) {
		t.Error("same minute must not trigger twice")
	}
	if s.shouldRun(at(6, 1)) {
		t.Error("06:01 should not trigger")
	}
	if !s.shouldRun(at(18, 30)) {
		t.Error("18:30 should trigger")
	}
}
