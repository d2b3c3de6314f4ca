package services

import (
	"fmt"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"gorm.io/gorm"
)

// Enroll attaches a student to a class group. Capacity and schedule
// conflicts are checked up front; non-trial students also need an unspent
// balance in the class's course mode.
func Enroll(db *gorm.DB, cg *models.ClassGroup, studentID uint, isTrial bool) (*models.ClassEnrollment, error) {
	exists, err := StudentExists(db, studentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, utils.ErrNotFound("student not found")
	}

	var active int64
	if err := db.Model(&models.ClassEnrollment{}).
		Where("class_group_id = ? AND left_at IS NULL", cg.ID).
		Count(&active).Error; err != nil {
		return nil, err
	}

	var dup int64
	if err := db.Model(&models.ClassEnrollment{}).
		Where("class_group_id = ? AND student_id = ? AND left_at IS NULL", cg.ID, studentID).
		Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, utils.ErrValidation("student is already enrolled in this class")
	}

	if !CapacityAllows(cg, int(active), 1) {
		return nil, utils.ErrValidation("class is full")
	}

	if !isTrial {
		unit := UnitOfMode(cg.CourseMode)
		acc, err := EnsureAccount(db, studentID, cg.CourseMode, unit)
		if err != nil {
			return nil, err
		}
		paid, gift := acc.RemainingHours, acc.RemainingHoursGift
		if unit == models.UnitSessions {
			paid, gift = acc.RemainingSessions, acc.RemainingSessionsGift
		}
		if paid.Add(gift).IsZero() || paid.Add(gift).IsNegative() {
			return nil, utils.ErrInsufficientBalance(
				fmt.Sprintf("student %d has no balance for %s", studentID, cg.CourseMode), nil)
		}
	}

	// Every future lesson of this class must be clear of the student's
	// other classes.
	var lessons []models.Lesson
	today := utils.DateOnly(time.Now())
	if err := db.Where("class_group_id = ? AND date >= ? AND status = ?",
		cg.ID, today, models.LessonScheduled).Find(&lessons).Error; err != nil {
		return nil, err
	}
	for i := range lessons {
		clash, err := StudentHasConflict(db, studentID, &lessons[i], cg.ID)
		if err != nil {
			return nil, err
		}
		if clash {
			return nil, utils.ErrConflict("student has a clashing lesson", map[string]interface{}{
				"lesson_date":  lessons[i].Date.Format("2006-01-02"),
				"lesson_start": lessons[i].StartTime,
			})
		}
	}

	enrollment := models.ClassEnrollment{
		StudentID:    studentID,
		ClassGroupID: cg.ID,
		JoinedAt:     time.Now(),
		IsTrial:      isTrial,
	}
	if err := db.Create(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Unenroll closes the active membership edge. History stays; past
// attendance is untouched.
func Unenroll(db *gorm.DB, cg *models.ClassGroup, studentID uint) error {
	var enrollment models.ClassEnrollment
	err := db.Where("class_group_id = ? AND student_id = ? AND left_at IS NULL", cg.ID, studentID).
		First(&enrollment).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrNotFound("student is not enrolled in this class")
	}
	if err != nil {
		return err
	}
	now := time.Now()
	return db.Model(&enrollment).Update("left_at", &now).Error
}
