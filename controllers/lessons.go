package controllers

import (
	"strconv"
	"time"

	"eduadmin_go/database"
	"eduadmin_go/middleware"
	"eduadmin_go/models"
	"eduadmin_go/services"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LessonController serves lesson listings and the per-lesson operations:
// leaves, ad-hoc participants and the attendance lifecycle.
type LessonController struct{}

func (lc *LessonController) GetLessons(c *fiber.Ctx) error {
	page, limit, offset := paginationParams(c)

	query := database.DB.Model(&models.Lesson{})
	if classID := c.Query("class_group_id"); classID != "" {
		query = query.Where("class_group_id = ?", classID)
	}
	if from := c.Query("date_from"); from != "" {
		if d, err := utils.ParseDate(from); err == nil {
			query = query.Where("date >= ?", d)
		}
	}
	if to := c.Query("date_to"); to != "" {
		if d, err := utils.ParseDate(to); err == nil {
			query = query.Where("date <= ?", d)
		}
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where(
			"teacher_id = ? OR (teacher_id IS NULL AND class_group_id IN (SELECT id FROM class_groups WHERE teacher_main_id = ?))",
			teacherID, teacherID)
	}
	if c.Query("pending_attendance") == "true" {
		query = query.Where("status = ? AND lock_attendance = ? AND date < ?",
			models.LessonScheduled, false, utils.DateOnly(time.Now()))
	}

	var total int64
	query.Count(&total)

	var lessons []models.Lesson
	if err := query.Preload("ClassGroup").Preload("ClassGroup.Subject").
		Preload("ClassGroup.TeacherMain").Preload("Room").Preload("Teacher").
		Order("date, start_time").
		Offset(offset).Limit(limit).Find(&lessons).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch lessons",
		})
	}

	return c.JSON(fiber.Map{
		"lessons": lessons,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (lc *LessonController) getLesson(c *fiber.Ctx) (*models.Lesson, *models.ClassGroup, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, nil, utils.ErrValidation("invalid lesson ID")
	}
	var lesson models.Lesson
	if err := database.DB.First(&lesson, id).Error; err != nil {
		return nil, nil, utils.ErrNotFound("lesson not found")
	}
	var cg models.ClassGroup
	if err := database.DB.First(&cg, lesson.ClassGroupID).Error; err != nil {
		return nil, nil, utils.ErrNotFound("class group not found")
	}
	return &lesson, &cg, nil
}

// GetLesson returns the lesson with its full roster, leaves and any
// committed attendance.
func (lc *LessonController) GetLesson(c *fiber.Ctx) error {
	lesson, cg, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	database.DB.Preload("ClassGroup").Preload("Room").Preload("Teacher").First(lesson, lesson.ID)

	roster, err := services.LessonRoster(database.DB, lesson)
	if err != nil {
		return utils.RespondError(c, err)
	}
	var leaves []models.LessonLeave
	database.DB.Preload("Student").Where("lesson_id = ?", lesson.ID).Find(&leaves)
	var attendance []models.Attendance
	database.DB.Preload("Student").Where("lesson_id = ?", lesson.ID).Find(&attendance)

	roomID, teacherID := services.ResolveRoomAndTeacher(lesson, cg)
	return c.JSON(fiber.Map{
		"lesson":              lesson,
		"roster":              roster,
		"leaves":              leaves,
		"attendance":          attendance,
		"resolved_room_id":    roomID,
		"resolved_teacher_id": teacherID,
	})
}

// CancelLesson marks a scheduled lesson canceled. Committed lessons must
// be reverted first.
func (lc *LessonController) CancelLesson(c *fiber.Ctx) error {
	lesson, _, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if lesson.LockAttendance {
		return utils.RespondError(c, utils.ErrAlreadyLocked("attendance already committed"))
	}
	if lesson.Status == models.LessonCanceled {
		return c.JSON(fiber.Map{"message": "Lesson already canceled"})
	}

	if err := database.DB.Model(lesson).Update("status", models.LessonCanceled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel lesson"})
	}
	middleware.LogActivity(c, "UPDATE", "lessons", lesson.ID, fiber.Map{"action": "cancel"})
	return c.JSON(fiber.Map{"message": "Lesson canceled"})
}

// --- Leaves ---

type leaveRequest struct {
	All        bool   `json:"all"`
	StudentIDs []uint `json:"student_ids"`
	Reason     string `json:"reason"`
}

func (lc *LessonController) RegisterLeave(c *fiber.Ctx) error {
	lesson, _, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}

	var req leaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !req.All && len(req.StudentIDs) == 0 {
		return utils.RespondError(c, utils.ErrValidation("student_ids or all is required"))
	}

	studentIDs := req.StudentIDs
	if req.All {
		roster, err := services.LessonRoster(database.DB, lesson)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch roster"})
		}
		studentIDs = make([]uint, 0, len(roster))
		for _, m := range roster {
			studentIDs = append(studentIDs, m.StudentID)
		}
	}

	user, _ := middleware.GetCurrentUser(c)
	var operatorID *uint
	if user != nil {
		operatorID = &user.ID
	}

	if err := services.RegisterLeave(database.DB, lesson, studentIDs, req.Reason, operatorID); err != nil {
		return utils.RespondError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "lesson_leaves", lesson.ID, fiber.Map{
		"student_ids": studentIDs,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Leave registered"})
}

func (lc *LessonController) RevokeLeave(c *fiber.Ctx) error {
	lesson, _, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	studentID, err := parseIDParam(c, "student_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	if err := services.RevokeLeave(database.DB, lesson, studentID); err != nil {
		return utils.RespondError(c, err)
	}
	middleware.LogActivity(c, "DELETE", "lesson_leaves", lesson.ID, fiber.Map{
		"student_id": studentID,
	})
	return c.JSON(fiber.Map{"message": "Leave revoked"})
}

// --- Participants ---

func (lc *LessonController) GetParticipants(c *fiber.Ctx) error {
	lesson, _, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	var participants []models.LessonParticipant
	if err := database.DB.Preload("Student").
		Where("lesson_id = ?", lesson.ID).Find(&participants).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch participants"})
	}
	return c.JSON(fiber.Map{"participants": participants, "total": len(participants)})
}

type participantRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=trial temp"`
}

func (lc *LessonController) AddParticipant(c *fiber.Ctx) error {
	lesson, cg, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if lesson.LockAttendance {
		return utils.RespondError(c, utils.ErrAlreadyLocked("attendance already committed"))
	}

	var req participantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	exists, err := services.StudentExists(database.DB, req.StudentID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check student"})
	}
	if !exists {
		return utils.RespondError(c, utils.ErrNotFound("student not found"))
	}

	clash, err := services.StudentHasConflict(database.DB, req.StudentID, lesson, cg.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check conflicts"})
	}
	if clash {
		return utils.RespondError(c, utils.ErrConflict("student has a clashing lesson", nil))
	}

	var existing models.LessonParticipant
	err = database.DB.Where("lesson_id = ? AND student_id = ?", lesson.ID, req.StudentID).
		First(&existing).Error
	if err == nil {
		return utils.RespondError(c, utils.ErrValidation("student is already a participant"))
	}
	if err != gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check participant"})
	}

	user, _ := middleware.GetCurrentUser(c)
	participant := models.LessonParticipant{
		LessonID:  lesson.ID,
		StudentID: req.StudentID,
		Type:      req.Type,
	}
	if user != nil {
		participant.CreatedByID = &user.ID
	}
	if err := database.DB.Create(&participant).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add participant"})
	}

	middleware.LogActivity(c, "CREATE", "lesson_participants", participant.ID, participant)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Participant added",
		"participant": participant,
	})
}

func (lc *LessonController) RemoveParticipant(c *fiber.Ctx) error {
	lesson, _, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if lesson.LockAttendance {
		return utils.RespondError(c, utils.ErrAlreadyLocked("attendance already committed"))
	}
	studentID, err := parseIDParam(c, "student_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	result := database.DB.Where("lesson_id = ? AND student_id = ?", lesson.ID, studentID).
		Delete(&models.LessonParticipant{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove participant"})
	}
	if result.RowsAffected == 0 {
		return utils.RespondError(c, utils.ErrNotFound("participant not found"))
	}

	middleware.LogActivity(c, "DELETE", "lesson_participants", lesson.ID, fiber.Map{
		"student_id": studentID,
	})
	return c.JSON(fiber.Map{"message": "Participant removed"})
}

// --- Attendance ---

func (lc *LessonController) GetAttendance(c *fiber.Ctx) error {
	lesson, cg, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}

	var attendance []models.Attendance
	if err := database.DB.Preload("Student").
		Where("lesson_id = ?", lesson.ID).Find(&attendance).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch attendance"})
	}

	unit, qty := services.GetStudentDeduct(cg.CourseMode, lesson.DurationMinutes)
	return c.JSON(fiber.Map{
		"attendance":  attendance,
		"locked":      lesson.LockAttendance,
		"deduct_unit": unit,
		"deduct_qty":  qty,
	})
}

type commitRequest struct {
	AllPresent bool              `json:"all_present"`
	Overrides  map[string]string `json:"overrides"`
}

func (lc *LessonController) CommitAttendance(c *fiber.Ctx) error {
	lesson, cg, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}

	user, _ := middleware.GetCurrentUser(c)
	_, teacherID := services.ResolveRoomAndTeacher(lesson, cg)
	if !middleware.CanCommitAttendance(user, teacherID) {
		return utils.RespondError(c, utils.ErrForbidden("only managers or the assigned teacher may commit attendance"))
	}

	var req commitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	overrides, err := parseOverrides(req.Overrides)
	if err != nil {
		return utils.RespondError(c, err)
	}

	var operatorID *uint
	if user != nil {
		operatorID = &user.ID
	}

	records, err := services.CommitAttendance(database.DB, lesson, cg, services.AttendanceRequest{
		AllPresent: req.AllPresent,
		Overrides:  overrides,
	}, operatorID)
	if err != nil {
		return utils.RespondError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "attendance", lesson.ID, fiber.Map{
		"records": len(records),
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Attendance committed",
		"attendance": records,
	})
}

func (lc *LessonController) RevertAttendance(c *fiber.Ctx) error {
	lesson, cg, err := lc.getLesson(c)
	if err != nil {
		return utils.RespondError(c, err)
	}

	if err := services.RevertAttendance(database.DB, lesson, cg); err != nil {
		return utils.RespondError(c, err)
	}

	middleware.LogActivity(c, "DELETE", "attendance", lesson.ID, fiber.Map{
		"action": "revert",
	})
	return c.JSON(fiber.Map{"message": "Attendance reverted"})
}

// JSON object keys are strings; override maps arrive keyed by the student
// ID's decimal form.
func parseOverrides(raw map[string]string) (map[uint]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint]string, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return nil, utils.ErrValidation("invalid student ID in overrides: " + k)
		}
		out[uint(id)] = v
	}
	return out, nil
}
