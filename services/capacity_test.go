package services

import (
	"testing"

	"eduadmin_go/models"
)

func intPtr(v int) *int { return &v }

func TestEffectiveCapacity(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		capacity *int
		exp      *int
	}{
		{name: "one to one default", mode: models.ModeOneToOne, capacity: nil, exp: intPtr(1)},
		{name: "one to one clamped to max", mode: models.ModeOneToOne, capacity: intPtr(3), exp: intPtr(1)},
		{name: "one to two default", mode: models.ModeOneToTwo, capacity: nil, exp: intPtr(2)},
		{name: "one to two configured", mode: models.ModeOneToTwo, capacity: intPtr(3), exp: intPtr(3)},
		{name: "one to two clamped to max", mode: models.ModeOneToTwo, capacity: intPtr(9), exp: intPtr(4)},
		{name: "small class unlimited", mode: models.ModeSmallClass, capacity: nil, exp: nil},
		{name: "small class ignores configured", mode: models.ModeSmallClass, capacity: intPtr(5), exp: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cg := &models.ClassGroup{CourseMode: tc.mode, Capacity: tc.capacity}
			got := EffectiveCapacity(cg)
			if tc.exp == nil {
				if got != nil {
					t.Fatalf("expected unlimited capacity, got %d", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected capacity %d, got unlimited", *tc.exp)
			}
			if *got != *tc.exp {
				t.Fatalf("expected capacity %d, got %d", *tc.exp, *got)
			}
		})
	}
}

func TestCapacityAllows(t *testing.T) {
	oneToTwo := &models.ClassGroup{CourseMode: models.ModeOneToTwo, Capacity: intPtr(4)}
	if !CapacityAllows(oneToTwo, 3, 1) {
		t.Fatalf("expected fourth student to fit a capacity-4 group")
	}
	if CapacityAllows(oneToTwo, 4, 1) {
		t.Fatalf("expected fifth student to be rejected")
	}

	oneToOne := &models.ClassGroup{CourseMode: models.ModeOneToOne}
	if !CapacityAllows(oneToOne, 0, 1) {
		t.Fatalf("expected first student to fit a one_to_one group")
	}
	if CapacityAllows(oneToOne, 1, 1) {
		t.Fatalf("expected second student to be rejected in one_to_one")
	}

	smallClass := &models.ClassGroup{CourseMode: models.ModeSmallClass}
	if !CapacityAllows(smallClass, 40, 10) {
		t.Fatalf("expected small_class to accept any count")
	}
}
