package services

import (
	"fmt"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"gorm.io/gorm"
)

// LessonPlan is one planned occurrence before persistence.
type LessonPlan struct {
	Date            time.Time `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// CustomEntryInput is one explicit occurrence of a custom rule.
type CustomEntryInput struct {
	Date            time.Time
	StartTime       string
	DurationMinutes int
}

// RuleInput carries either a weekly recurrence or a custom entry list.
type RuleInput struct {
	Type            string // weekly / custom
	WeeklyDays      []int  // ISO weekdays, 1=Monday .. 7=Sunday
	WeeklyStartTime string
	WeeklyDuration  int // minutes
	CustomEntries   []CustomEntryInput
}

// GenerationConflict pins a planned occurrence to the resources it
// collides with; returned as the error detail when generation aborts.
type GenerationConflict struct {
	Date      string             `json:"date"`
	StartTime string             `json:"start_time"`
	Conflicts []ResourceConflict `json:"conflicts"`
}

// PlanWeeklyLessons expands a weekly mask over the term range. Pure.
func PlanWeeklyLessons(termStart, termEnd time.Time, mask uint8, startTime string, durationMinutes int) ([]LessonPlan, error) {
	endTime, err := utils.AddMinutesHHMM(startTime, durationMinutes)
	if err != nil {
		return nil, utils.ErrValidation(fmt.Sprintf("invalid start time %q", startTime))
	}

	var plans []LessonPlan
	for d := utils.DateOnly(termStart); !d.After(utils.DateOnly(termEnd)); d = d.AddDate(0, 0, 1) {
		if mask&(1<<(utils.ISOWeekday(d)-1)) == 0 {
			continue
		}
		plans = append(plans, LessonPlan{
			Date:            d,
			StartTime:       startTime,
			EndTime:         endTime,
			DurationMinutes: durationMinutes,
		})
	}
	return plans, nil
}

// PlanCustomLessons validates explicit entries against the term range. Pure.
func PlanCustomLessons(termStart, termEnd time.Time, entries []CustomEntryInput) ([]LessonPlan, error) {
	var plans []LessonPlan
	for _, e := range entries {
		d := utils.DateOnly(e.Date)
		if d.Before(utils.DateOnly(termStart)) || d.After(utils.DateOnly(termEnd)) {
			return nil, utils.ErrValidation(fmt.Sprintf("entry %s outside term range", d.Format("2006-01-02")))
		}
		endTime, err := utils.AddMinutesHHMM(e.StartTime, e.DurationMinutes)
		if err != nil {
			return nil, utils.ErrValidation(fmt.Sprintf("invalid start time %q", e.StartTime))
		}
		plans = append(plans, LessonPlan{
			Date:            d,
			StartTime:       e.StartTime,
			EndTime:         endTime,
			DurationMinutes: e.DurationMinutes,
		})
	}
	return plans, nil
}

// GenerateLessons expands a rule into lessons for the class group within
// its term, persisting the rule, its custom entries and all lessons in
// one transaction. Any conflict aborts the whole batch: partial schedules
// corrupt the class, so generation is all-or-nothing.
func GenerateLessons(db *gorm.DB, cg *models.ClassGroup, term *models.Term, in RuleInput) ([]models.Lesson, error) {
	var plans []LessonPlan
	var err error

	switch in.Type {
	case "weekly":
		if len(in.WeeklyDays) == 0 || in.WeeklyDuration <= 0 {
			return nil, utils.ErrValidation("weekly rule requires days and a positive duration")
		}
		if _, err := utils.ParseHHMM(in.WeeklyStartTime); err != nil {
			return nil, utils.ErrValidation("weekly rule requires a valid HH:MM start time")
		}
		mask := utils.DaysToMask(in.WeeklyDays)
		plans, err = PlanWeeklyLessons(term.StartDate, term.EndDate, mask, in.WeeklyStartTime, in.WeeklyDuration)
	case "custom":
		if len(in.CustomEntries) == 0 {
			return nil, utils.ErrValidation("custom rule requires at least one entry")
		}
		plans, err = PlanCustomLessons(term.StartDate, term.EndDate, in.CustomEntries)
	default:
		return nil, utils.ErrValidation("rule type must be weekly or custom")
	}
	if err != nil {
		return nil, err
	}

	var created []models.Lesson
	err = db.Transaction(func(tx *gorm.DB) error {
		rule := models.ScheduleRule{
			ClassGroupID: cg.ID,
			Type:         in.Type,
			Active:       true,
		}
		if in.Type == "weekly" {
			mask := utils.DaysToMask(in.WeeklyDays)
			start := in.WeeklyStartTime
			dur := in.WeeklyDuration
			rule.WeeklyDaysMask = &mask
			rule.WeeklyStartTime = &start
			rule.WeeklyDuration = &dur
		}
		if err := tx.Create(&rule).Error; err != nil {
			return err
		}

		if in.Type == "custom" {
			for _, e := range in.CustomEntries {
				entry := models.ScheduleCustomEntry{
					RuleID:          rule.ID,
					Date:            utils.DateOnly(e.Date),
					StartTime:       e.StartTime,
					DurationMinutes: e.DurationMinutes,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
			}
		}

		// Conflict scan before any lesson is written. A hit anywhere
		// rolls back the rule and entries too.
		teacherID := cg.TeacherMainID
		var failed []GenerationConflict
		for _, p := range plans {
			conflicts, err := FindConflicts(tx, &teacherID, cg.RoomDefaultID, p.Date, p.StartTime, p.EndTime, nil)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				failed = append(failed, GenerationConflict{
					Date:      p.Date.Format("2006-01-02"),
					StartTime: p.StartTime,
					Conflicts: conflicts,
				})
			}
		}
		if len(failed) > 0 {
			return utils.ErrConflict("teacher or room double-booked", failed)
		}

		for _, p := range plans {
			lesson := models.Lesson{
				ClassGroupID:    cg.ID,
				Date:            p.Date,
				StartTime:       p.StartTime,
				EndTime:         p.EndTime,
				DurationMinutes: p.DurationMinutes,
				Status:          models.LessonScheduled,
			}
			if err := tx.Create(&lesson).Error; err != nil {
				return err
			}
			created = append(created, lesson)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
