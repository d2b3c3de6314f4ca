package utils

import (
	"testing"
	"time"
)

func TestDaysToMaskRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		days []int
		mask uint8
	}{
		{name: "monday only", days: []int{1}, mask: 0b0000001},
		{name: "mon wed fri", days: []int{1, 3, 5}, mask: 0b0010101},
		{name: "weekend", days: []int{6, 7}, mask: 0b1100000},
		{name: "full week", days: []int{1, 2, 3, 4, 5, 6, 7}, mask: 0b1111111},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mask := DaysToMask(tc.days)
			if mask != tc.mask {
				t.Fatalf("expected mask %07b, got %07b", tc.mask, mask)
			}
			back := MaskToDays(mask)
			if len(back) != len(tc.days) {
				t.Fatalf("expected %d days back, got %d", len(tc.days), len(back))
			}
			for i, d := range tc.days {
				if back[i] != d {
					t.Fatalf("day %d: expected %d, got %d", i, d, back[i])
				}
			}
		})
	}
}

func TestDaysToMaskIgnoresOutOfRange(t *testing.T) {
	if mask := DaysToMask([]int{0, 8, -1, 3}); mask != 0b0000100 {
		t.Fatalf("expected only Wednesday set, got %07b", mask)
	}
}

func TestISOWeekday(t *testing.T) {
	// 2025-01-06 is a Monday.
	monday := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.Local)
	for i := 0; i < 7; i++ {
		if got := ISOWeekday(monday.AddDate(0, 0, i)); got != i+1 {
			t.Fatalf("day offset %d: expected weekday %d, got %d", i, i+1, got)
		}
	}
}

func TestWeekdayName(t *testing.T) {
	if got := WeekdayName(1); got != "Mon" {
		t.Fatalf("expected Mon, got %s", got)
	}
	if got := WeekdayName(7); got != "Sun" {
		t.Fatalf("expected Sun, got %s", got)
	}
	if got := WeekdayName(0); got != "" {
		t.Fatalf("expected empty name for out of range, got %q", got)
	}
}

func TestParseHHMM(t *testing.T) {
	got, err := ParseHHMM(" 08:30 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "08:30" {
		t.Fatalf("expected 08:30, got %s", got)
	}

	if _, err := ParseHHMM("8:30pm"); err == nil {
		t.Fatalf("expected error for invalid clock value")
	}
	if _, err := ParseHHMM("25:00"); err == nil {
		t.Fatalf("expected error for out-of-range hour")
	}
}

func TestAddMinutesHHMM(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		minutes int
		exp     string
	}{
		{name: "plain add", start: "18:30", minutes: 100, exp: "20:10"},
		{name: "exact hour", start: "09:00", minutes: 60, exp: "10:00"},
		{name: "clamped at midnight", start: "23:30", minutes: 90, exp: "23:59"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := AddMinutesHHMM(tc.start, tc.minutes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.exp {
				t.Fatalf("expected %s, got %s", tc.exp, got)
			}
		})
	}

	if _, err := AddMinutesHHMM("bad", 30); err == nil {
		t.Fatalf("expected error for invalid start")
	}
}

func TestCombineDateTime(t *testing.T) {
	d := time.Date(2025, time.April, 10, 15, 45, 12, 0, time.Local)
	got := CombineDateTime(d, "09:30")
	if got.Year() != 2025 || got.Month() != time.April || got.Day() != 10 {
		t.Fatalf("expected date preserved, got %v", got)
	}
	if got.Hour() != 9 || got.Minute() != 30 || got.Second() != 0 {
		t.Fatalf("expected 09:30:00, got %v", got)
	}

	fallback := CombineDateTime(d, "garbage")
	if fallback.Hour() != 0 || fallback.Minute() != 0 {
		t.Fatalf("expected midnight fallback for invalid clock value, got %v", fallback)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2025 || got.Month() != time.June || got.Day() != 1 {
		t.Fatalf("expected 2025-06-01, got %v", got)
	}

	if _, err := ParseDate("01/06/2025"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
