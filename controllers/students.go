package controllers

import (
	"eduadmin_go/database"
	"eduadmin_go/models"
	"eduadmin_go/services"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

// StudentController is the read surface over the student core mirror:
// search, detail with balances, and enrollment listing.
type StudentController struct{}

// GetStudents searches by name substring and optional grade.
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	page, limit, offset := paginationParams(c)

	query := database.DB.Model(&models.Student{})
	if name := c.Query("name"); name != "" {
		query = query.Where("name LIKE ?", "%"+utils.SanitizeString(name)+"%")
	}
	if grade := c.Query("grade"); grade != "" {
		query = query.Where("grade = ?", grade)
	}

	var total int64
	query.Count(&total)

	var students []models.Student
	if err := query.Order("name").Offset(offset).Limit(limit).Find(&students).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch students",
		})
	}

	return c.JSON(fiber.Map{
		"students": utils.ToStudentShorts(students),
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetStudent returns the full record plus active account balances.
func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var student models.Student
	if err := database.DB.Preload("CurrentSalesperson").First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	var accounts []models.Account
	if err := database.DB.Where("student_id = ? AND status = ?", id, "active").
		Find(&accounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch accounts"})
	}
	balances := make([]utils.AccountBalances, 0, len(accounts))
	for i := range accounts {
		balances = append(balances, utils.ToAccountBalances(&accounts[i]))
	}

	active, err := services.IsActivelyEnrolled(database.DB, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check enrollment"})
	}

	return c.JSON(fiber.Map{
		"student":           student,
		"accounts":          balances,
		"actively_enrolled": active,
	})
}

// GetStudentEnrollments lists the class memberships, current first.
func (sc *StudentController) GetStudentEnrollments(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var enrollments []models.ClassEnrollment
	if err := database.DB.
		Preload("ClassGroup").Preload("ClassGroup.Subject").Preload("ClassGroup.TeacherMain").
		Where("student_id = ?", id).
		Order("left_at IS NULL DESC, joined_at DESC").
		Find(&enrollments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch enrollments"})
	}

	return c.JSON(fiber.Map{"enrollments": enrollments, "total": len(enrollments)})
}
