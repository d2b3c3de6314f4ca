package services

import (
	"fmt"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"gorm.io/gorm"
)

// RosterMember is one expected attendee of a lesson: a currently enrolled
// student or an ad-hoc participant.
type RosterMember struct {
	StudentID uint   `json:"student_id"`
	Kind      string `json:"kind"` // normal / trial / temp
}

// AttendanceRequest is the commit payload. Roster members start absent,
// registered leaves fill in as leave, AllPresent upgrades the rest, and
// per-student overrides win over everything.
type AttendanceRequest struct {
	AllPresent bool            `json:"all_present"`
	Overrides  map[uint]string `json:"overrides"`
}

// LessonRoster collects the expected attendees: active enrollments of the
// class plus ad-hoc participants attached to this lesson.
func LessonRoster(tx *gorm.DB, lesson *models.Lesson) ([]RosterMember, error) {
	var enrollments []models.ClassEnrollment
	if err := tx.Where("class_group_id = ? AND left_at IS NULL", lesson.ClassGroupID).
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	var participants []models.LessonParticipant
	if err := tx.Where("lesson_id = ?", lesson.ID).Find(&participants).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(enrollments)+len(participants))
	var roster []RosterMember
	for _, e := range enrollments {
		if seen[e.StudentID] {
			continue
		}
		seen[e.StudentID] = true
		roster = append(roster, RosterMember{StudentID: e.StudentID, Kind: "normal"})
	}
	for _, p := range participants {
		if seen[p.StudentID] {
			continue
		}
		seen[p.StudentID] = true
		roster = append(roster, RosterMember{StudentID: p.StudentID, Kind: p.Type})
	}
	return roster, nil
}

// lessonStarted reports whether the lesson's start moment has passed.
func lessonStarted(lesson *models.Lesson, now time.Time) bool {
	return !now.Before(utils.CombineDateTime(lesson.Date, lesson.StartTime))
}

// lessonEnded reports whether the lesson's end moment has passed.
func lessonEnded(lesson *models.Lesson, now time.Time) bool {
	return !now.Before(utils.CombineDateTime(lesson.Date, lesson.EndTime))
}

// RegisterLeave records pre-class leaves for the given students. Idempotent
// per student; rejected once the lesson has started or attendance is locked.
func RegisterLeave(db *gorm.DB, lesson *models.Lesson, studentIDs []uint, reason string, operatorID *uint) error {
	if lesson.LockAttendance {
		return utils.ErrAlreadyLocked("attendance already committed")
	}
	if lessonStarted(lesson, time.Now()) {
		return utils.ErrValidation("lesson already started, leave can no longer be registered")
	}

	roster, err := LessonRoster(db, lesson)
	if err != nil {
		return err
	}
	onRoster := make(map[uint]bool, len(roster))
	for _, m := range roster {
		onRoster[m.StudentID] = true
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, sid := range studentIDs {
			if !onRoster[sid] {
				return utils.ErrValidation(fmt.Sprintf("student %d is not on this lesson's roster", sid))
			}
			var existing models.LessonLeave
			err := tx.Where("lesson_id = ? AND student_id = ?", lesson.ID, sid).First(&existing).Error
			if err == nil {
				continue // already registered
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}
			leave := models.LessonLeave{
				LessonID:   lesson.ID,
				StudentID:  sid,
				Reason:     utils.SanitizeString(reason),
				OperatorID: operatorID,
			}
			if err := tx.Create(&leave).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RevokeLeave removes a registered leave. Idempotent; same pre-start cutoff
// as registration.
func RevokeLeave(db *gorm.DB, lesson *models.Lesson, studentID uint) error {
	if lesson.LockAttendance {
		return utils.ErrAlreadyLocked("attendance already committed")
	}
	if lessonStarted(lesson, time.Now()) {
		return utils.ErrValidation("lesson already started, leave can no longer be changed")
	}
	return db.Where("lesson_id = ? AND student_id = ?", lesson.ID, studentID).
		Delete(&models.LessonLeave{}).Error
}

// ResolveFinalStatuses computes the per-student status for a commit. Pure.
// Everyone starts absent, a registered leave upgrades to leave, AllPresent
// upgrades the remaining absentees to present, and explicit overrides win
// over all of that.
func ResolveFinalStatuses(roster []RosterMember, leaveSet map[uint]bool, req AttendanceRequest) map[uint]string {
	statuses := make(map[uint]string, len(roster))
	for _, m := range roster {
		status := models.AttendAbsent
		if leaveSet[m.StudentID] {
			status = models.AttendLeave
		}
		if req.AllPresent && status == models.AttendAbsent {
			status = models.AttendPresent
		}
		if ov, ok := req.Overrides[m.StudentID]; ok {
			status = ov
		}
		statuses[m.StudentID] = status
	}
	return statuses
}

func validStatus(s string) bool {
	return s == models.AttendPresent || s == models.AttendLeave || s == models.AttendAbsent
}

// CommitAttendance writes the final attendance for a lesson, deducts
// balances for present students and books the teacher worklog, all in one
// transaction. Only allowed after the lesson has ended; locks the lesson.
//
// Trial participants never deduct. Leave and absent rows never deduct.
// Balances are pre-checked for every deducting student so a shortfall
// reports the full offender list instead of failing midway.
func CommitAttendance(db *gorm.DB, lesson *models.Lesson, cg *models.ClassGroup, req AttendanceRequest, operatorID *uint) ([]models.Attendance, error) {
	if lesson.Status == models.LessonCanceled {
		return nil, utils.ErrValidation("canceled lesson cannot take attendance")
	}
	if lesson.LockAttendance {
		return nil, utils.ErrAlreadyLocked("attendance already committed")
	}
	if !lessonEnded(lesson, time.Now()) {
		return nil, utils.ErrValidation("lesson has not ended yet")
	}

	for sid, ov := range req.Overrides {
		if !validStatus(ov) {
			return nil, utils.ErrValidation(fmt.Sprintf("invalid status %q for student %d", ov, sid))
		}
	}

	roster, err := LessonRoster(db, lesson)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, utils.ErrValidation("lesson has no roster, nothing to commit")
	}
	onRoster := make(map[uint]string, len(roster))
	for _, m := range roster {
		onRoster[m.StudentID] = m.Kind
	}
	for sid := range req.Overrides {
		if _, ok := onRoster[sid]; !ok {
			return nil, utils.ErrValidation(fmt.Sprintf("student %d is not on this lesson's roster", sid))
		}
	}

	var leaves []models.LessonLeave
	if err := db.Where("lesson_id = ?", lesson.ID).Find(&leaves).Error; err != nil {
		return nil, err
	}
	leaveSet := make(map[uint]bool, len(leaves))
	for _, l := range leaves {
		leaveSet[l.StudentID] = true
	}

	statuses := ResolveFinalStatuses(roster, leaveSet, req)

	unit, qty := GetStudentDeduct(cg.CourseMode, lesson.DurationMinutes)
	deducts := func(m RosterMember) bool {
		return statuses[m.StudentID] == models.AttendPresent && m.Kind != models.ParticipantTrial
	}

	var insufficient []uint
	for _, m := range roster {
		if !deducts(m) {
			continue
		}
		ok, err := CheckSufficient(db, m.StudentID, cg.CourseMode, unit, qty)
		if err != nil {
			return nil, err
		}
		if !ok {
			insufficient = append(insufficient, m.StudentID)
		}
	}
	if len(insufficient) > 0 {
		return nil, utils.ErrInsufficientBalance("some students have insufficient balance", insufficient)
	}

	now := time.Now()
	var records []models.Attendance
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, m := range roster {
			rec := models.Attendance{
				LessonID:    lesson.ID,
				StudentID:   m.StudentID,
				Status:      statuses[m.StudentID],
				OperatorID:  operatorID,
				ConfirmedAt: &now,
			}
			if deducts(m) {
				res, err := Deduct(tx, m.StudentID, cg.CourseMode, unit, qty)
				if err != nil {
					return err
				}
				u, q := unit, qty
				rec.DeductUnit = &u
				rec.DeductQty = &q
				rec.DeductFrom = &res.MainSource
				rec.PaidUsed = &res.PaidUsed
				rec.GiftUsed = &res.GiftUsed
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			records = append(records, rec)
		}

		_, teacherID := ResolveRoomAndTeacher(lesson, cg)
		hours, ruleCode := WorkHoursFor(cg.CourseMode, lesson.DurationMinutes)
		var worklog models.TeacherWorklog
		err := tx.Where("lesson_id = ? AND teacher_id = ?", lesson.ID, teacherID).First(&worklog).Error
		switch err {
		case nil:
			worklog.WorkHours = hours
			worklog.RuleCode = ruleCode
			if err := tx.Save(&worklog).Error; err != nil {
				return err
			}
		case gorm.ErrRecordNotFound:
			worklog = models.TeacherWorklog{
				LessonID:  lesson.ID,
				TeacherID: teacherID,
				WorkHours: hours,
				RuleCode:  ruleCode,
				Status:    "pending",
			}
			if err := tx.Create(&worklog).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return tx.Model(&models.Lesson{}).Where("id = ?", lesson.ID).
			Updates(map[string]interface{}{
				"status":          models.LessonFinished,
				"lock_attendance": true,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	lesson.Status = models.LessonFinished
	lesson.LockAttendance = true
	return records, nil
}

// RevertAttendance undoes a committed lesson: credits back every deduction,
// removes attendance rows and worklogs, and unlocks the lesson. Admin-only
// at the route layer.
func RevertAttendance(db *gorm.DB, lesson *models.Lesson, cg *models.ClassGroup) error {
	if !lesson.LockAttendance {
		return utils.ErrValidation("lesson attendance has not been committed")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var records []models.Attendance
		if err := tx.Where("lesson_id = ?", lesson.ID).Find(&records).Error; err != nil {
			return err
		}
		for _, rec := range records {
			if rec.DeductQty == nil || rec.PaidUsed == nil || rec.GiftUsed == nil {
				continue
			}
			if err := Revert(tx, rec.StudentID, cg.CourseMode, *rec.DeductUnit, *rec.PaidUsed, *rec.GiftUsed); err != nil {
				return err
			}
		}
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.TeacherWorklog{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Lesson{}).Where("id = ?", lesson.ID).
			Updates(map[string]interface{}{
				"status":          models.LessonScheduled,
				"lock_attendance": false,
			}).Error
	})
	if err != nil {
		return err
	}
	lesson.Status = models.LessonScheduled
	lesson.LockAttendance = false
	return nil
}
