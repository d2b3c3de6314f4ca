package middleware

import (
	"testing"

	"eduadmin_go/models"
)

func TestCan(t *testing.T) {
	tests := []struct {
		name string
		role string
		cap  Capability
		exp  bool
	}{
		{name: "admin commits attendance", role: models.RoleAdmin, cap: CapCommitAttendance, exp: true},
		{name: "admin reverts attendance", role: models.RoleAdmin, cap: CapRevertAttendance, exp: true},
		{name: "teacher manager publishes", role: models.RoleTeacherManager, cap: CapPublishCycle, exp: true},
		{name: "teacher manager cannot revert", role: models.RoleTeacherManager, cap: CapRevertAttendance, exp: false},
		{name: "salesperson registers leave", role: models.RoleSalesperson, cap: CapRegisterLeave, exp: true},
		{name: "teacher has no capabilities", role: models.RoleTeacher, cap: CapCommitAttendance, exp: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			user := &models.User{Role: tc.role}
			if got := Can(user, tc.cap); got != tc.exp {
				t.Fatalf("expected Can(%s, %s)=%v, got %v", tc.role, tc.cap, tc.exp, got)
			}
		})
	}

	if Can(nil, CapCommitAttendance) {
		t.Fatalf("expected nil user to hold no capabilities")
	}
}

func TestCanCommitAttendance(t *testing.T) {
	assigned := &models.User{BaseModel: models.BaseModel{ID: 42}, Role: models.RoleTeacher}
	other := &models.User{BaseModel: models.BaseModel{ID: 43}, Role: models.RoleTeacher}
	admin := &models.User{BaseModel: models.BaseModel{ID: 1}, Role: models.RoleAdmin}

	if !CanCommitAttendance(assigned, 42) {
		t.Fatalf("expected the assigned teacher to commit their own lesson")
	}
	if CanCommitAttendance(other, 42) {
		t.Fatalf("expected another teacher to be rejected")
	}
	if !CanCommitAttendance(admin, 42) {
		t.Fatalf("expected capability holders to commit any lesson")
	}
	if CanCommitAttendance(nil, 42) {
		t.Fatalf("expected missing user to be rejected")
	}
}
