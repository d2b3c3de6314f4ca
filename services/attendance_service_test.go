package services

import (
	"testing"

	"eduadmin_go/models"
)

func TestResolveFinalStatuses(t *testing.T) {
	roster := []RosterMember{
		{StudentID: 1, Kind: "normal"},
		{StudentID: 2, Kind: "normal"},
		{StudentID: 3, Kind: models.ParticipantTrial},
		{StudentID: 4, Kind: "normal"},
		{StudentID: 5, Kind: models.ParticipantTemp},
	}
	leaveSet := map[uint]bool{2: true, 4: true}
	req := AttendanceRequest{
		AllPresent: true,
		Overrides:  map[uint]string{3: models.AttendAbsent, 4: models.AttendPresent},
	}

	statuses := ResolveFinalStatuses(roster, leaveSet, req)

	exp := map[uint]string{
		1: models.AttendPresent, // all_present upgrade
		2: models.AttendLeave,   // registered leave survives all_present
		3: models.AttendAbsent,  // override beats all_present
		4: models.AttendPresent, // override beats registered leave
		5: models.AttendPresent,
	}
	if len(statuses) != len(exp) {
		t.Fatalf("expected %d statuses, got %d", len(exp), len(statuses))
	}
	for sid, want := range exp {
		if got := statuses[sid]; got != want {
			t.Fatalf("student %d: expected %s, got %s", sid, want, got)
		}
	}
}

func TestResolveFinalStatusesDefaultsAbsent(t *testing.T) {
	roster := []RosterMember{
		{StudentID: 1, Kind: "normal"},
		{StudentID: 2, Kind: "normal"},
	}
	req := AttendanceRequest{Overrides: map[uint]string{2: models.AttendPresent}}

	statuses := ResolveFinalStatuses(roster, nil, req)
	if statuses[1] != models.AttendAbsent {
		t.Fatalf("expected student 1 absent without all_present, got %s", statuses[1])
	}
	if statuses[2] != models.AttendPresent {
		t.Fatalf("expected student 2 present via override, got %s", statuses[2])
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{models.AttendPresent, models.AttendLeave, models.AttendAbsent} {
		if !validStatus(s) {
			t.Fatalf("expected %q to be a valid status", s)
		}
	}
	if validStatus("late") {
		t.Fatalf("expected unknown status to be rejected")
	}
}
