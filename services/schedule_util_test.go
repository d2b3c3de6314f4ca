package services

import (
	"testing"

	"eduadmin_go/models"
)

func TestRoundToHalfHours(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		exp     string
	}{
		{name: "exact hour", minutes: 60, exp: "1"},
		{name: "hundred minutes rounds up", minutes: 100, exp: "1.5"},
		{name: "ninety minutes", minutes: 90, exp: "1.5"},
		{name: "two and a half hours", minutes: 150, exp: "2.5"},
		{name: "quarter hour rounds half up", minutes: 105, exp: "2"},
		{name: "seventy minutes rounds down", minutes: 70, exp: "1"},
		{name: "two hours", minutes: 120, exp: "2"},
		{name: "zero", minutes: 0, exp: "0"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := RoundToHalfHours(tc.minutes)
			if got.String() != tc.exp {
				t.Fatalf("expected %s hours for %d minutes, got %s", tc.exp, tc.minutes, got.String())
			}
		})
	}
}

func TestGetStudentDeduct(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		minutes int
		expUnit string
		expQty  string
	}{
		{name: "small class flat session", mode: models.ModeSmallClass, minutes: 120, expUnit: models.UnitSessions, expQty: "1"},
		{name: "small class ignores duration", mode: models.ModeSmallClass, minutes: 45, expUnit: models.UnitSessions, expQty: "1"},
		{name: "one to one hundred minutes", mode: models.ModeOneToOne, minutes: 100, expUnit: models.UnitHours, expQty: "1.5"},
		{name: "one to two two hours", mode: models.ModeOneToTwo, minutes: 120, expUnit: models.UnitHours, expQty: "2"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			unit, qty := GetStudentDeduct(tc.mode, tc.minutes)
			if unit != tc.expUnit {
				t.Fatalf("expected unit %s, got %s", tc.expUnit, unit)
			}
			if qty.String() != tc.expQty {
				t.Fatalf("expected qty %s, got %s", tc.expQty, qty.String())
			}
		})
	}
}

func TestWorkHoursFor(t *testing.T) {
	hours, rule := WorkHoursFor(models.ModeSmallClass, 100)
	if hours.String() != "2" || rule != "small_class_x2" {
		t.Fatalf("expected 2 hours under small_class_x2, got %s under %s", hours.String(), rule)
	}

	hours, rule = WorkHoursFor(models.ModeOneToOne, 100)
	if hours.String() != "1.5" || rule != "normal" {
		t.Fatalf("expected 1.5 hours under normal, got %s under %s", hours.String(), rule)
	}
}

func TestTimeOverlap(t *testing.T) {
	tests := []struct {
		name   string
		startA string
		endA   string
		startB string
		endB   string
		exp    bool
	}{
		{name: "full overlap", startA: "08:00", endA: "10:00", startB: "08:00", endB: "10:00", exp: true},
		{name: "partial overlap", startA: "08:00", endA: "10:00", startB: "09:00", endB: "11:00", exp: true},
		{name: "contained", startA: "08:00", endA: "12:00", startB: "09:00", endB: "10:00", exp: true},
		{name: "touching boundary", startA: "08:00", endA: "10:00", startB: "10:00", endB: "12:00", exp: false},
		{name: "touching boundary reversed", startA: "10:00", endA: "12:00", startB: "08:00", endB: "10:00", exp: false},
		{name: "disjoint", startA: "08:00", endA: "09:00", startB: "13:00", endB: "14:00", exp: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := TimeOverlap(tc.startA, tc.endA, tc.startB, tc.endB); got != tc.exp {
				t.Fatalf("expected overlap=%v for %s-%s vs %s-%s, got %v",
					tc.exp, tc.startA, tc.endA, tc.startB, tc.endB, got)
			}
		})
	}
}
