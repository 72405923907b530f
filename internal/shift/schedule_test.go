package shift

import (
	"testing"
	"time"
)

func threeShifts(t *testing.T) *Schedule {
	t.Helper()
	s, err := NewSchedule([]WindowDef{
		{Name: "Shift1", Start: "06:00:00", End: "14:00:00"},
		{Name: "Shift2", Start: "14:00:00", End: "22:00:00"},
		{Name: "Shift3", Start: "22:00:00", End: "06:00:00"},
	})
	if err != nil {
		t.Fatalf("new schedule: %v", err)
	}
	return s
}

func TestScheduleActive(t *testing.T) {
	s := threeShifts(t)

	cases := []struct {
		clock string
		want  string
	}{
		{"06:00:00", "Shift1"},
		{"13:59:59", "Shift1"},
		{"14:00:00", "Shift2"},
		{"21:30:00", "Shift2"},
		{"22:00:00", "Shift3"},
		{"23:59:59", "Shift3"},
		{"00:00:00", "Shift3"}, // midnight wrap
		{"05:59:59", "Shift3"},
	}
	for _, tc := range cases {
		clk, err := time.Parse("15:04:05", tc.clock)
		if err != nil {
			t.Fatalf("parse clock: %v", err)
		}
		now := time.Date(2025, 3, 1, clk.Hour(), clk.Minute(), clk.Second(), 0, time.UTC)
		if got := s.Active(now); got != tc.want {
			t.Fatalf("Active(%s) = %s, want %s", tc.clock, got, tc.want)
		}
	}
}

func TestScheduleGapIsUnknown(t *testing.T) {
	s, err := NewSchedule([]WindowDef{
		{Name: "Day", Start: "08:00:00", End: "16:00:00"},
	})
	if err != nil {
		t.Fatalf("new schedule: %v", err)
	}
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	if got := s.Active(now); got != UnknownShift {
		t.Fatalf("expected UNKNOWN outside windows, got %s", got)
	}
}

func TestNewScheduleValidation(t *testing.T) {
	cases := []struct {
		name string
		defs []WindowDef
	}{
		{"empty table", nil},
		{"missing name", []WindowDef{{Start: "06:00:00", End: "14:00:00"}}},
		{"bad clock", []WindowDef{{Name: "S", Start: "6am", End: "14:00:00"}}},
		{"zero length", []WindowDef{{Name: "S", Start: "06:00:00", End: "06:00:00"}}},
		{"duplicate name", []WindowDef{
			{Name: "S", Start: "06:00:00", End: "14:00:00"},
			{Name: "S", Start: "14:00:00", End: "22:00:00"},
		}},
	}
	for _, tc := range cases {
		if _, err := NewSchedule(tc.defs); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
