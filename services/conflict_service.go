package services

import (
	"time"

	"eduadmin_go/models"

	"gorm.io/gorm"
)

// ResourceConflict names one double-booked resource and the lessons that
// collide with the candidate slot.
type ResourceConflict struct {
	Type      string `json:"type"` // teacher / room
	LessonIDs []uint `json:"lesson_ids"`
}

// FindConflicts scans non-canceled lessons on the given date for teacher
// and room overlaps against [startTime, endTime). One entry is returned
// per resource type with at least one overlapping lesson.
func FindConflicts(tx *gorm.DB, teacherID, roomID *uint, date time.Time, startTime, endTime string, excludeLessonID *uint) ([]ResourceConflict, error) {
	base := tx.Model(&models.Lesson{}).
		Where("date = ?", date).
		Where("status != ?", models.LessonCanceled).
		Where("start_time < ? AND end_time > ?", endTime, startTime)
	if excludeLessonID != nil {
		base = base.Where("id != ?", *excludeLessonID)
	}

	var conflicts []ResourceConflict

	if teacherID != nil {
		var ids []uint
		if err := base.Session(&gorm.Session{}).Where("teacher_id = ?", *teacherID).
			Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			conflicts = append(conflicts, ResourceConflict{Type: "teacher", LessonIDs: ids})
		}
	}

	if roomID != nil {
		var ids []uint
		if err := base.Session(&gorm.Session{}).Where("room_id = ?", *roomID).
			Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			conflicts = append(conflicts, ResourceConflict{Type: "room", LessonIDs: ids})
		}
	}

	return conflicts, nil
}

// StudentHasConflict reports whether the student has an overlapping lesson
// through an active membership in another class on the same date.
func StudentHasConflict(tx *gorm.DB, studentID uint, lesson *models.Lesson, excludeClassGroupID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Lesson{}).
		Joins("JOIN class_enrollments ce ON ce.class_group_id = lessons.class_group_id").
		Where("ce.student_id = ? AND ce.left_at IS NULL AND ce.deleted_at IS NULL", studentID).
		Where("lessons.class_group_id != ?", excludeClassGroupID).
		Where("lessons.date = ?", lesson.Date).
		Where("lessons.status != ?", models.LessonCanceled).
		Where("lessons.start_time < ? AND lessons.end_time > ?", lesson.EndTime, lesson.StartTime).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ResolveRoomAndTeacher returns the effective (room, teacher) for a
// lesson: the lesson-level override when set, otherwise the class group
// defaults. The single fallback point for conflict checks and board views.
func ResolveRoomAndTeacher(lesson *models.Lesson, cg *models.ClassGroup) (roomID *uint, teacherID uint) {
	roomID = lesson.RoomID
	if roomID == nil {
		roomID = cg.RoomDefaultID
	}
	teacherID = cg.TeacherMainID
	if lesson.TeacherID != nil {
		teacherID = *lesson.TeacherID
	}
	return roomID, teacherID
}
