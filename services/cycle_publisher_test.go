package services

import (
	"testing"
	"time"

	"eduadmin_go/models"
)

func strPtr(s string) *string { return &s }

func TestFilterTargetDates(t *testing.T) {
	cycleFrom := date(2025, time.June, 1)
	today := date(2025, time.June, 10)

	dates := []time.Time{
		date(2025, time.May, 30),  // before cycle start
		date(2025, time.June, 5),  // past, inside cycle
		date(2025, time.June, 10), // today
		date(2025, time.June, 11), // future
	}

	futureOnly := FilterTargetDates(dates, cycleFrom, today, ScopeFutureOnly)
	if len(futureOnly) != 2 {
		t.Fatalf("expected 2 future_only dates, got %d", len(futureOnly))
	}
	if futureOnly[0].Day() != 10 || futureOnly[1].Day() != 11 {
		t.Fatalf("expected today and June 11, got %v", futureOnly)
	}

	includeToday := FilterTargetDates(dates, cycleFrom, today, ScopeIncludeToday)
	if len(includeToday) != 3 {
		t.Fatalf("expected 3 include_today dates, got %d", len(includeToday))
	}
	if includeToday[0].Day() != 5 {
		t.Fatalf("expected backfill from cycle start, got %v", includeToday[0])
	}
}

func TestParseDayMap(t *testing.T) {
	cycleFrom := date(2025, time.July, 1)
	today := date(2025, time.June, 25)

	parsed := parseDayMap(map[string][]string{
		"Tue": {"2025-07-01", "2025-07-08"},
		"Fri": {"not-a-date", "2025-06-20"}, // invalid + before cycle start
	}, cycleFrom, today, ScopeFutureOnly)

	if len(parsed) != 1 {
		t.Fatalf("expected only the Tue column to survive, got %d columns", len(parsed))
	}
	if len(parsed["Tue"]) != 2 {
		t.Fatalf("expected 2 Tue dates, got %d", len(parsed["Tue"]))
	}
}

func TestBuildTargetPairs(t *testing.T) {
	rosters := []models.CycleRoster{
		{BaseModel: models.BaseModel{ID: 100}, ClassGroupID: 1, StudentID: 11, Type: models.RosterNormal},
		{BaseModel: models.BaseModel{ID: 101}, ClassGroupID: 1, StudentID: 12, Type: models.RosterTrial},
	}
	dayMap := map[string][]time.Time{
		"Tue": {date(2025, time.July, 1), date(2025, time.July, 8)},
	}
	lessons := map[classDate][]*models.Lesson{
		{ClassGroupID: 1, Date: "2025-07-01"}: {
			{BaseModel: models.BaseModel{ID: 500}},
			{BaseModel: models.BaseModel{ID: 501}}, // same day, second time block
		},
	}

	pairs, missing := BuildTargetPairs(rosters, dayMap, nil, lessons)

	// 2 students x 2 lessons on July 1; July 8 has no lesson.
	if len(pairs) != 4 {
		t.Fatalf("expected 4 pairs, got %d", len(pairs))
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing-lesson diagnostic, got %d", len(missing))
	}
	if missing[0].ClassGroupID != 1 || missing[0].Date != "2025-07-08" {
		t.Fatalf("expected missing (class 1, 2025-07-08), got (%d, %s)",
			missing[0].ClassGroupID, missing[0].Date)
	}

	trialSeen := false
	for _, p := range pairs {
		if p.StudentID == 12 {
			trialSeen = true
			if p.Type != models.ParticipantTrial {
				t.Fatalf("expected trial roster to map to trial participant, got %s", p.Type)
			}
		}
	}
	if !trialSeen {
		t.Fatalf("expected pairs for the trial student")
	}
}

func TestBuildTargetPairsTrackOverride(t *testing.T) {
	rosters := []models.CycleRoster{
		{BaseModel: models.BaseModel{ID: 100}, ClassGroupID: 1, StudentID: 11, Track: strPtr("A")},
		{BaseModel: models.BaseModel{ID: 101}, ClassGroupID: 1, StudentID: 12, Track: strPtr("B")},
		{BaseModel: models.BaseModel{ID: 102}, ClassGroupID: 1, StudentID: 13}, // untracked
	}
	dayMap := map[string][]time.Time{
		"Mon": {date(2025, time.July, 7)},
	}
	trackMaps := map[string]map[string][]time.Time{
		"A": {"Mon": {date(2025, time.July, 14)}},
		// no B override: track B falls back to the plain map
	}
	lessons := map[classDate][]*models.Lesson{
		{ClassGroupID: 1, Date: "2025-07-07"}: {{BaseModel: models.BaseModel{ID: 500}}},
		{ClassGroupID: 1, Date: "2025-07-14"}: {{BaseModel: models.BaseModel{ID: 501}}},
	}

	pairs, missing := BuildTargetPairs(rosters, dayMap, trackMaps, lessons)
	if len(missing) != 0 {
		t.Fatalf("expected no missing lessons, got %d", len(missing))
	}

	byStudent := make(map[uint][]uint)
	for _, p := range pairs {
		byStudent[p.StudentID] = append(byStudent[p.StudentID], p.LessonID)
	}
	if len(byStudent[11]) != 1 || byStudent[11][0] != 501 {
		t.Fatalf("expected track A student only on the override date, got %v", byStudent[11])
	}
	if len(byStudent[12]) != 1 || byStudent[12][0] != 500 {
		t.Fatalf("expected track B student on the plain-map date, got %v", byStudent[12])
	}
	if len(byStudent[13]) != 1 || byStudent[13][0] != 500 {
		t.Fatalf("expected untracked student on the plain-map date, got %v", byStudent[13])
	}
}

func TestDiffPairs(t *testing.T) {
	desired := []PublishPair{
		{LessonID: 10, StudentID: 1, RosterID: 100, Type: models.ParticipantTemp},
		{LessonID: 10, StudentID: 2, RosterID: 101, Type: models.ParticipantTemp},
		{LessonID: 11, StudentID: 1, RosterID: 100, Type: models.ParticipantTemp},
	}
	existing := []models.CyclePublishItem{
		{LessonID: 10, StudentID: 1, RosterID: 100}, // kept
		{LessonID: 10, StudentID: 3, RosterID: 102}, // no longer desired
	}

	diff := DiffPairs(desired, existing)

	if diff.Kept != 1 {
		t.Fatalf("expected 1 kept pair, got %d", diff.Kept)
	}
	if len(diff.ToAdd) != 2 {
		t.Fatalf("expected 2 additions, got %d", len(diff.ToAdd))
	}
	if len(diff.ToRemove) != 1 {
		t.Fatalf("expected 1 removal, got %d", len(diff.ToRemove))
	}
	if diff.ToRemove[0].LessonID != 10 || diff.ToRemove[0].StudentID != 3 {
		t.Fatalf("expected removal of (lesson 10, student 3), got (%d, %d)",
			diff.ToRemove[0].LessonID, diff.ToRemove[0].StudentID)
	}
}

func TestDiffPairsIdempotent(t *testing.T) {
	desired := []PublishPair{
		{LessonID: 10, StudentID: 1, RosterID: 100},
		{LessonID: 11, StudentID: 1, RosterID: 100},
	}
	existing := []models.CyclePublishItem{
		{LessonID: 10, StudentID: 1, RosterID: 100},
		{LessonID: 11, StudentID: 1, RosterID: 100},
	}
	diff := DiffPairs(desired, existing)
	if len(diff.ToAdd) != 0 || len(diff.ToRemove) != 0 || diff.Kept != 2 {
		t.Fatalf("expected no-op diff, got add=%d remove=%d kept=%d",
			len(diff.ToAdd), len(diff.ToRemove), diff.Kept)
	}
}

func TestDiffPairsLowestRosterWins(t *testing.T) {
	desired := []PublishPair{
		{LessonID: 10, StudentID: 1, RosterID: 105},
		{LessonID: 10, StudentID: 1, RosterID: 100},
		{LessonID: 10, StudentID: 1, RosterID: 103},
	}
	diff := DiffPairs(desired, nil)
	if len(diff.ToAdd) != 1 {
		t.Fatalf("expected duplicate pairs collapsed to one, got %d", len(diff.ToAdd))
	}
	if diff.ToAdd[0].RosterID != 100 {
		t.Fatalf("expected roster 100 to win, got %d", diff.ToAdd[0].RosterID)
	}
}

func TestPlanRemovals(t *testing.T) {
	pid := uint(700)
	items := []models.CyclePublishItem{
		{BaseModel: models.BaseModel{ID: 1}, LessonID: 10, StudentID: 1, ParticipantID: &pid},
		{BaseModel: models.BaseModel{ID: 2}, LessonID: 10, StudentID: 2}, // enrolled student, no participant row of its own
		{BaseModel: models.BaseModel{ID: 3}, LessonID: 11, StudentID: 1},
	}

	participantIDs, itemIDs := PlanRemovals(items)

	if len(itemIDs) != 3 {
		t.Fatalf("expected every stale item scheduled for deletion, got %d", len(itemIDs))
	}
	if len(participantIDs) != 1 || participantIDs[0] != 700 {
		t.Fatalf("expected only the item-owned participant to be deleted, got %v", participantIDs)
	}
}

func TestPlanRemovalsEmpty(t *testing.T) {
	participantIDs, itemIDs := PlanRemovals(nil)
	if len(participantIDs) != 0 || len(itemIDs) != 0 {
		t.Fatalf("expected empty plan, got participants=%v items=%v", participantIDs, itemIDs)
	}
}
