package services

import (
	"encoding/json"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Publish scopes. future_only targets today and later; include_today also
// accepts earlier dates back to the cycle start (used to backfill).
const (
	ScopeFutureOnly   = "future_only"
	ScopeIncludeToday = "include_today"
)

// PublishOptions carries the request payload: the weekday source columns
// mapped to target calendar dates, plus optional per-track override maps
// for irregular patterns.
//
//	DayMap:    {"Mon": ["2025-10-06"], "Fri": ["2025-10-10", ...]}
//	TrackMaps: {"A": {...}, "B": {...}}
type PublishOptions struct {
	Scope      string
	DryRun     bool
	DayMap     map[string][]string
	TrackMaps  map[string]map[string][]string
	OperatorID *uint
}

// PublishPair is one (lesson, student) assignment the roster wants
// materialized.
type PublishPair struct {
	LessonID  uint    `json:"lesson_id"`
	StudentID uint    `json:"student_id"`
	RosterID  uint    `json:"roster_id"`
	Type      string  `json:"type"`
	Track     *string `json:"track,omitempty"`
}

// MissingLesson is a diagnostic: a roster class had no scheduled lesson on
// a target date. Publish proceeds; the gap is reported, not fatal.
type MissingLesson struct {
	ClassGroupID uint   `json:"class_group_id"`
	Date         string `json:"date"`
}

// PublishDiff is the plan a publish run would apply.
type PublishDiff struct {
	ToAdd    []PublishPair             `json:"to_add"`
	ToRemove []models.CyclePublishItem `json:"to_remove"`
	Kept     int                       `json:"kept"`
	Missing  []MissingLesson           `json:"missing_lessons"`
}

// PublishResult summarizes an executed (or dry) run.
type PublishResult struct {
	BatchID string          `json:"batch_id"`
	DryRun  bool            `json:"dry_run"`
	Added   int             `json:"added"`
	Removed int             `json:"removed"`
	Kept    int             `json:"kept"`
	Missing []MissingLesson `json:"missing_lessons"`
}

type pairKey struct {
	LessonID  uint
	StudentID uint
}

type classDate struct {
	ClassGroupID uint
	Date         string // 2006-01-02
}

// FilterTargetDates keeps the dates a publish run may touch, floored at the
// cycle start: future_only additionally drops dates before today. Pure.
func FilterTargetDates(dates []time.Time, cycleFrom, today time.Time, scope string) []time.Time {
	from := utils.DateOnly(cycleFrom)
	today = utils.DateOnly(today)
	floor := from
	if scope != ScopeIncludeToday && today.After(from) {
		floor = today
	}

	var out []time.Time
	for _, d := range dates {
		d = utils.DateOnly(d)
		if d.Before(floor) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// parseDayMap converts a raw weekday→date-strings map into parsed, scoped
// dates. Unparseable and out-of-scope entries are dropped, as are weekday
// columns left empty by the filtering.
func parseDayMap(raw map[string][]string, cycleFrom, today time.Time, scope string) map[string][]time.Time {
	out := make(map[string][]time.Time, len(raw))
	for weekday, values := range raw {
		var dates []time.Time
		for _, v := range values {
			d, err := utils.ParseDate(v)
			if err != nil {
				continue
			}
			dates = append(dates, d)
		}
		dates = FilterTargetDates(dates, cycleFrom, today, scope)
		if len(dates) > 0 {
			out[weekday] = dates
		}
	}
	return out
}

// BuildTargetPairs expands the roster over the weekday→date maps: each
// entry uses its track's override map when one was supplied, else the plain
// map, and claims every scheduled lesson of its class on each target date.
// Dates with no lesson for the class become missing-lesson diagnostics.
// Pure.
func BuildTargetPairs(rosters []models.CycleRoster, dayMap map[string][]time.Time,
	trackMaps map[string]map[string][]time.Time,
	lessonsByClassDate map[classDate][]*models.Lesson) ([]PublishPair, []MissingLesson) {

	var pairs []PublishPair
	var missing []MissingLesson
	reported := make(map[classDate]bool)

	for _, r := range rosters {
		useMap := dayMap
		if r.Track != nil {
			if override, ok := trackMaps[*r.Track]; ok {
				useMap = override
			}
		}

		ptype := models.ParticipantTemp
		if r.Type == models.RosterTrial {
			ptype = models.ParticipantTrial
		}

		for _, dates := range useMap {
			for _, d := range dates {
				key := classDate{ClassGroupID: r.ClassGroupID, Date: d.Format("2006-01-02")}
				lessons := lessonsByClassDate[key]
				if len(lessons) == 0 {
					if !reported[key] {
						reported[key] = true
						missing = append(missing, MissingLesson{ClassGroupID: key.ClassGroupID, Date: key.Date})
					}
					continue
				}
				for _, l := range lessons {
					pairs = append(pairs, PublishPair{
						LessonID:  l.ID,
						StudentID: r.StudentID,
						RosterID:  r.ID,
						Type:      ptype,
						Track:     r.Track,
					})
				}
			}
		}
	}
	return pairs, missing
}

// DiffPairs computes what a publish must add and remove against the items
// this cycle previously created: toAdd = target − existing,
// toRemove = existing − target. Other cycles' and hand-created rows are
// invisible since only this cycle's items are passed in. When two roster
// rows claim the same pair, the lowest roster ID wins. Pure.
func DiffPairs(desired []PublishPair, existing []models.CyclePublishItem) PublishDiff {
	want := make(map[pairKey]PublishPair, len(desired))
	for _, p := range desired {
		k := pairKey{p.LessonID, p.StudentID}
		if cur, ok := want[k]; !ok || p.RosterID < cur.RosterID {
			want[k] = p
		}
	}

	have := make(map[pairKey]bool, len(existing))
	var diff PublishDiff
	for _, item := range existing {
		k := pairKey{item.LessonID, item.StudentID}
		have[k] = true
		if _, ok := want[k]; ok {
			diff.Kept++
		} else {
			diff.ToRemove = append(diff.ToRemove, item)
		}
	}
	for k, p := range want {
		if !have[k] {
			diff.ToAdd = append(diff.ToAdd, p)
		}
	}
	return diff
}

// PlanRemovals decides what a removal batch may delete: every stale item
// row goes, but a LessonParticipant is deleted only when the item itself
// created it (ParticipantID set). Participants owned by an enrollment, a
// hand-edit or another cycle are never touched. Pure.
func PlanRemovals(items []models.CyclePublishItem) (participantIDs []uint, itemIDs []uint) {
	for _, item := range items {
		if item.ParticipantID != nil {
			participantIDs = append(participantIDs, *item.ParticipantID)
		}
		itemIDs = append(itemIDs, item.ID)
	}
	return participantIDs, itemIDs
}

// lessonCampusID resolves which campus a lesson physically happens at,
// via its room override or the class default room.
func lessonCampusID(lesson *models.Lesson, cg *models.ClassGroup, rooms map[uint]*models.Room) *uint {
	roomID := lesson.RoomID
	if roomID == nil {
		roomID = cg.RoomDefaultID
	}
	if roomID == nil {
		return nil
	}
	if room, ok := rooms[*roomID]; ok {
		return room.CampusID
	}
	return nil
}

// PublishCycle reconciles the cycle roster against the scheduled lessons on
// the caller-supplied target dates: a diff against what this cycle already
// published, executed transactionally. Dry runs compute and log the same
// diff without applying it.
//
// Only scheduled lessons at the cycle's campus on in-scope target dates are
// touched.
func PublishCycle(db *gorm.DB, cycle *models.Cycle, opts PublishOptions) (*PublishResult, error) {
	if cycle.Status == models.CycleClosed {
		return nil, utils.ErrValidation("closed cycle cannot be published")
	}
	if opts.Scope == "" {
		opts.Scope = ScopeFutureOnly
	}
	if opts.Scope != ScopeFutureOnly && opts.Scope != ScopeIncludeToday {
		return nil, utils.ErrValidation("scope must be future_only or include_today")
	}

	today := time.Now()
	dayMap := parseDayMap(opts.DayMap, cycle.DateFrom, today, opts.Scope)
	trackMaps := make(map[string]map[string][]time.Time, len(opts.TrackMaps))
	for track, raw := range opts.TrackMaps {
		trackMaps[track] = parseDayMap(raw, cycle.DateFrom, today, opts.Scope)
	}

	var rosters []models.CycleRoster
	if err := db.Where("cycle_id = ?", cycle.ID).Find(&rosters).Error; err != nil {
		return nil, err
	}

	classIDs := make([]uint, 0, len(rosters))
	seenClass := make(map[uint]bool)
	for _, r := range rosters {
		if !seenClass[r.ClassGroupID] {
			seenClass[r.ClassGroupID] = true
			classIDs = append(classIDs, r.ClassGroupID)
		}
	}

	classGroups := make(map[uint]*models.ClassGroup, len(classIDs))
	if len(classIDs) > 0 {
		var cgs []models.ClassGroup
		if err := db.Where("id IN ?", classIDs).Find(&cgs).Error; err != nil {
			return nil, err
		}
		for i := range cgs {
			classGroups[cgs[i].ID] = &cgs[i]
		}
	}

	rooms := make(map[uint]*models.Room)
	{
		var all []models.Room
		if err := db.Find(&all).Error; err != nil {
			return nil, err
		}
		for i := range all {
			rooms[all[i].ID] = &all[i]
		}
	}

	// Union of every target date across the plain and track maps, for one
	// lesson query.
	targetDates := make(map[string]time.Time)
	for _, dates := range dayMap {
		for _, d := range dates {
			targetDates[d.Format("2006-01-02")] = d
		}
	}
	for _, m := range trackMaps {
		for _, dates := range m {
			for _, d := range dates {
				targetDates[d.Format("2006-01-02")] = d
			}
		}
	}

	// Scheduled lessons only: finished and canceled occurrences are never
	// publish targets. One date can carry several lessons for a class; all
	// of them receive the roster.
	lessonsByClassDate := make(map[classDate][]*models.Lesson)
	lessonClass := make(map[uint]uint)
	if len(targetDates) > 0 && len(classIDs) > 0 {
		dates := make([]time.Time, 0, len(targetDates))
		for _, d := range targetDates {
			dates = append(dates, d)
		}
		var lessons []models.Lesson
		err := db.Where("class_group_id IN ? AND date IN ? AND status = ?",
			classIDs, dates, models.LessonScheduled).
			Find(&lessons).Error
		if err != nil {
			return nil, err
		}
		for i := range lessons {
			l := &lessons[i]
			cg, ok := classGroups[l.ClassGroupID]
			if !ok {
				continue
			}
			campusID := lessonCampusID(l, cg, rooms)
			if campusID == nil || *campusID != cycle.CampusID {
				continue
			}
			key := classDate{ClassGroupID: l.ClassGroupID, Date: l.Date.Format("2006-01-02")}
			lessonsByClassDate[key] = append(lessonsByClassDate[key], l)
			lessonClass[l.ID] = l.ClassGroupID
		}
	}

	desired, missing := BuildTargetPairs(rosters, dayMap, trackMaps, lessonsByClassDate)

	var existing []models.CyclePublishItem
	if err := db.Where("cycle_id = ?", cycle.ID).Find(&existing).Error; err != nil {
		return nil, err
	}

	diff := DiffPairs(desired, existing)
	diff.Missing = missing

	batchID := uuid.New().String()
	result := &PublishResult{
		BatchID: batchID,
		DryRun:  opts.DryRun,
		Added:   len(diff.ToAdd),
		Removed: len(diff.ToRemove),
		Kept:    diff.Kept,
		Missing: missing,
	}

	if opts.DryRun {
		if err := writePublishLog(db, cycle, batchID, opts, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, p := range diff.ToAdd {
			var participantID *uint

			// Students enrolled in the class already sit on the lesson
			// roster; only outsiders need a participant row.
			var enrolled int64
			if err := tx.Model(&models.ClassEnrollment{}).
				Where("student_id = ? AND class_group_id = ? AND left_at IS NULL",
					p.StudentID, lessonClass[p.LessonID]).
				Count(&enrolled).Error; err != nil {
				return err
			}
			if enrolled == 0 {
				var participant models.LessonParticipant
				err := tx.Where("lesson_id = ? AND student_id = ?", p.LessonID, p.StudentID).
					First(&participant).Error
				switch err {
				case nil:
				case gorm.ErrRecordNotFound:
					participant = models.LessonParticipant{
						LessonID:    p.LessonID,
						StudentID:   p.StudentID,
						Type:        p.Type,
						CreatedByID: opts.OperatorID,
					}
					if err := tx.Create(&participant).Error; err != nil {
						return err
					}
				default:
					return err
				}
				participantID = &participant.ID
			}

			item := models.CyclePublishItem{
				CycleID:       cycle.ID,
				RosterID:      p.RosterID,
				LessonID:      p.LessonID,
				StudentID:     p.StudentID,
				ParticipantID: participantID,
				Type:          p.Type,
				Track:         p.Track,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		participantIDs, itemIDs := PlanRemovals(diff.ToRemove)
		if len(participantIDs) > 0 {
			if err := tx.Where("id IN ?", participantIDs).
				Delete(&models.LessonParticipant{}).Error; err != nil {
				return err
			}
		}
		if len(itemIDs) > 0 {
			if err := tx.Where("id IN ?", itemIDs).
				Delete(&models.CyclePublishItem{}).Error; err != nil {
				return err
			}
		}

		if cycle.Status == models.CycleDraft {
			if err := tx.Model(&models.Cycle{}).Where("id = ?", cycle.ID).
				Update("status", models.CyclePublished).Error; err != nil {
				return err
			}
			cycle.Status = models.CyclePublished
		}

		return writePublishLog(tx, cycle, batchID, opts, result)
	})
	if err != nil {
		return nil, err
	}

	InvalidateBoardCache(cycle.ID)
	return result, nil
}

func writePublishLog(tx *gorm.DB, cycle *models.Cycle, batchID string, opts PublishOptions, result *PublishResult) error {
	payload, err := json.Marshal(map[string]interface{}{
		"map":    opts.DayMap,
		"tracks": opts.TrackMaps,
	})
	if err != nil {
		return err
	}
	stats, err := json.Marshal(result)
	if err != nil {
		return err
	}
	log := models.CyclePublishLog{
		CycleID:       cycle.ID,
		BatchID:       batchID,
		Scope:         opts.Scope,
		Mode:          "participants",
		DryRun:        opts.DryRun,
		Payload:       models.JSON(payload),
		DiffStats:     models.JSON(stats),
		PublishedByID: opts.OperatorID,
	}
	return tx.Create(&log).Error
}
