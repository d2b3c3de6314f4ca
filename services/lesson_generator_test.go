package services

import (
	"testing"
	"time"

	"eduadmin_go/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestPlanWeeklyLessons(t *testing.T) {
	// 2025-01-01 is a Wednesday.
	termStart := date(2025, time.January, 1)
	termEnd := date(2025, time.January, 14)

	mask := utils.DaysToMask([]int{1, 3, 5}) // Mon, Wed, Fri
	plans, err := PlanWeeklyLessons(termStart, termEnd, mask, "18:30", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expDates := []string{
		"2025-01-01", "2025-01-03", "2025-01-06",
		"2025-01-08", "2025-01-10", "2025-01-13",
	}
	if len(plans) != len(expDates) {
		t.Fatalf("expected %d lessons, got %d", len(expDates), len(plans))
	}
	for i, p := range plans {
		if got := p.Date.Format("2006-01-02"); got != expDates[i] {
			t.Fatalf("lesson %d: expected date %s, got %s", i, expDates[i], got)
		}
		if p.StartTime != "18:30" || p.EndTime != "20:10" {
			t.Fatalf("lesson %d: expected 18:30-20:10, got %s-%s", i, p.StartTime, p.EndTime)
		}
		if p.DurationMinutes != 100 {
			t.Fatalf("lesson %d: expected 100 minutes, got %d", i, p.DurationMinutes)
		}
	}
}

func TestPlanWeeklyLessonsEmptyMask(t *testing.T) {
	plans, err := PlanWeeklyLessons(date(2025, time.January, 1), date(2025, time.January, 31), 0, "10:00", 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 0 {
		t.Fatalf("expected no lessons for empty mask, got %d", len(plans))
	}
}

func TestPlanWeeklyLessonsInvalidStart(t *testing.T) {
	if _, err := PlanWeeklyLessons(date(2025, time.January, 1), date(2025, time.January, 7), 1, "25:99", 60); err == nil {
		t.Fatalf("expected error for invalid start time")
	}
}

func TestPlanCustomLessons(t *testing.T) {
	termStart := date(2025, time.March, 1)
	termEnd := date(2025, time.March, 31)

	plans, err := PlanCustomLessons(termStart, termEnd, []CustomEntryInput{
		{Date: date(2025, time.March, 5), StartTime: "09:00", DurationMinutes: 120},
		{Date: date(2025, time.March, 12), StartTime: "13:30", DurationMinutes: 90},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(plans))
	}
	if plans[0].EndTime != "11:00" {
		t.Fatalf("expected first lesson to end 11:00, got %s", plans[0].EndTime)
	}
	if plans[1].EndTime != "15:00" {
		t.Fatalf("expected second lesson to end 15:00, got %s", plans[1].EndTime)
	}
}

func TestPlanCustomLessonsOutsideTerm(t *testing.T) {
	_, err := PlanCustomLessons(date(2025, time.March, 1), date(2025, time.March, 31), []CustomEntryInput{
		{Date: date(2025, time.April, 1), StartTime: "09:00", DurationMinutes: 60},
	})
	if err == nil {
		t.Fatalf("expected error for entry outside term range")
	}
}
