package controllers

import (
	"eduadmin_go/database"
	"eduadmin_go/middleware"
	"eduadmin_go/models"
	"eduadmin_go/services"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

// ClassGroupController manages classes, their schedule rules and memberships.
type ClassGroupController struct{}

func (cc *ClassGroupController) GetClassGroups(c *fiber.Ctx) error {
	page, limit, offset := paginationParams(c)

	query := database.DB.Model(&models.ClassGroup{})
	if termID := c.Query("term_id"); termID != "" {
		query = query.Where("term_id = ?", termID)
	}
	if mode := c.Query("course_mode"); mode != "" {
		query = query.Where("course_mode = ?", mode)
	}
	if grade := c.Query("grade"); grade != "" {
		query = query.Where("grade = ?", grade)
	}
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where("teacher_main_id = ?", teacherID)
	}
	if status := c.Query("status", "active"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var groups []models.ClassGroup
	if err := query.Preload("Subject").Preload("TeacherMain").Preload("RoomDefault").
		Offset(offset).Limit(limit).Find(&groups).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch class groups",
		})
	}

	return c.JSON(fiber.Map{
		"class_groups": groups,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (cc *ClassGroupController) GetClassGroup(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class group ID"})
	}

	var cg models.ClassGroup
	if err := database.DB.
		Preload("Term").Preload("Subject").Preload("TeacherMain").Preload("RoomDefault").
		First(&cg, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class group not found"})
	}

	var rules []models.ScheduleRule
	database.DB.Preload("CustomEntries").
		Where("class_group_id = ? AND active = ?", id, true).Find(&rules)

	var enrollments []models.ClassEnrollment
	database.DB.Preload("Student").
		Where("class_group_id = ? AND left_at IS NULL", id).Find(&enrollments)

	return c.JSON(fiber.Map{
		"class_group": cg,
		"rules":       rules,
		"members":     enrollments,
		"capacity":    services.EffectiveCapacity(&cg),
	})
}

type classGroupRequest struct {
	TermID        uint   `json:"term_id" validate:"required"`
	CourseMode    string `json:"course_mode" validate:"required,oneof=one_to_one one_to_two small_class"`
	Grade         uint8  `json:"grade" validate:"required,min=1,max=12"`
	SubjectID     uint   `json:"subject_id" validate:"required"`
	TeacherMainID uint   `json:"teacher_main_id" validate:"required"`
	RoomDefaultID *uint  `json:"room_default_id"`
	Name          string `json:"name"`
	Capacity      *int   `json:"capacity" validate:"omitempty,gt=0"`
	Remark        string `json:"remark"`
}

func (cc *ClassGroupController) CreateClassGroup(c *fiber.Ctx) error {
	var req classGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	var term models.Term
	if err := database.DB.First(&term, req.TermID).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("term not found"))
	}
	var subject models.Subject
	if err := database.DB.First(&subject, req.SubjectID).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("subject not found"))
	}
	var teacher models.User
	if err := database.DB.First(&teacher, req.TeacherMainID).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("teacher not found"))
	}
	if teacher.Role != models.RoleTeacher && teacher.Role != models.RoleTeacherManager {
		return utils.RespondError(c, utils.ErrValidation("teacher_main_id is not a teacher"))
	}
	if req.RoomDefaultID != nil {
		var room models.Room
		if err := database.DB.First(&room, *req.RoomDefaultID).Error; err != nil {
			return utils.RespondError(c, utils.ErrNotFound("room not found"))
		}
	}

	cg := models.ClassGroup{
		TermID:        req.TermID,
		CourseMode:    req.CourseMode,
		Grade:         req.Grade,
		SubjectID:     req.SubjectID,
		TeacherMainID: req.TeacherMainID,
		RoomDefaultID: req.RoomDefaultID,
		Name:          utils.SanitizeString(req.Name),
		Capacity:      req.Capacity,
		Status:        "active",
		Remark:        utils.SanitizeString(req.Remark),
	}
	if cg.Name == "" {
		cg.Name = subject.Name + " " + cg.CourseMode
	}

	if err := database.DB.Create(&cg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create class group"})
	}
	database.DB.Preload("Subject").Preload("TeacherMain").Preload("RoomDefault").First(&cg, cg.ID)

	middleware.LogActivity(c, "CREATE", "class_groups", cg.ID, cg)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Class group created",
		"class_group": cg,
	})
}

type generateRequest struct {
	Type            string       `json:"type" validate:"required,oneof=weekly custom"`
	WeeklyDays      []int        `json:"weekly_days" validate:"omitempty,dive,min=1,max=7"`
	WeeklyStartTime string       `json:"weekly_start_time"`
	WeeklyDuration  int          `json:"weekly_duration"`
	CustomEntries   []entryInput `json:"custom_entries"`
}

type entryInput struct {
	Date            string `json:"date" validate:"required"`
	StartTime       string `json:"start_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
}

// GenerateLessons expands a schedule rule into concrete lessons, atomically.
func (cc *ClassGroupController) GenerateLessons(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class group ID"})
	}
	var cg models.ClassGroup
	if err := database.DB.First(&cg, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class group not found"})
	}
	var term models.Term
	if err := database.DB.First(&term, cg.TermID).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("term not found"))
	}

	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	in := services.RuleInput{
		Type:            req.Type,
		WeeklyDays:      req.WeeklyDays,
		WeeklyStartTime: req.WeeklyStartTime,
		WeeklyDuration:  req.WeeklyDuration,
	}
	for _, e := range req.CustomEntries {
		date, err := utils.ParseDate(e.Date)
		if err != nil {
			return utils.RespondError(c, utils.ErrValidation("invalid entry date "+e.Date))
		}
		in.CustomEntries = append(in.CustomEntries, services.CustomEntryInput{
			Date:            date,
			StartTime:       e.StartTime,
			DurationMinutes: e.DurationMinutes,
		})
	}

	lessons, err := services.GenerateLessons(database.DB, &cg, &term, in)
	if err != nil {
		return utils.RespondError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "lessons", cg.ID, fiber.Map{
		"class_group_id": cg.ID,
		"count":          len(lessons),
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Lessons generated",
		"count":   len(lessons),
		"lessons": lessons,
	})
}

type enrollRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
	IsTrial   bool `json:"is_trial"`
}

func (cc *ClassGroupController) Enroll(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class group ID"})
	}
	var cg models.ClassGroup
	if err := database.DB.First(&cg, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class group not found"})
	}

	var req enrollRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	enrollment, err := services.Enroll(database.DB, &cg, req.StudentID, req.IsTrial)
	if err != nil {
		return utils.RespondError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "class_enrollments", enrollment.ID, enrollment)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Student enrolled",
		"enrollment": enrollment,
	})
}

func (cc *ClassGroupController) Unenroll(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class group ID"})
	}
	studentID, err := parseIDParam(c, "student_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	var cg models.ClassGroup
	if err := database.DB.First(&cg, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class group not found"})
	}

	if err := services.Unenroll(database.DB, &cg, studentID); err != nil {
		return utils.RespondError(c, err)
	}

	middleware.LogActivity(c, "DELETE", "class_enrollments", id, fiber.Map{
		"class_group_id": id,
		"student_id":     studentID,
	})
	return c.JSON(fiber.Map{"message": "Student unenrolled"})
}
