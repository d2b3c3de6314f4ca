package controllers

import (
	"eduadmin_go/database"
	"eduadmin_go/middleware"
	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

// DictController serves the dictionary entities: terms, campuses, rooms,
// subjects and the teacher directory. Create endpoints upsert on the
// natural key so repeated imports stay idempotent.
type DictController struct{}

// --- Terms ---

func (dc *DictController) GetTerms(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Term{})
	if year := c.Query("year"); year != "" {
		query = query.Where("year = ?", year)
	}
	if c.Query("active", "") != "" {
		query = query.Where("active = ?", c.Query("active") == "true")
	}

	var terms []models.Term
	if err := query.Order("year DESC, start_date").Find(&terms).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch terms",
		})
	}
	return c.JSON(fiber.Map{"terms": terms, "total": len(terms)})
}

type termRequest struct {
	Name      string `json:"name" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=spring summer autumn winter"`
	Year      uint16 `json:"year" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Remark    string `json:"remark"`
}

func (dc *DictController) CreateTerm(c *fiber.Ctx) error {
	var req termRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return utils.RespondError(c, utils.ErrValidation("invalid start_date"))
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return utils.RespondError(c, utils.ErrValidation("invalid end_date"))
	}
	if end.Before(start) {
		return utils.RespondError(c, utils.ErrValidation("end_date before start_date"))
	}

	term := models.Term{
		Name:      utils.SanitizeString(req.Name),
		Type:      req.Type,
		Year:      req.Year,
		StartDate: start,
		EndDate:   end,
		Active:    true,
		Remark:    utils.SanitizeString(req.Remark),
	}

	// Upsert on (type, year): a term re-posted with new dates replaces
	// the old window instead of duplicating the row.
	var existing models.Term
	if err := database.DB.Where("type = ? AND year = ?", req.Type, req.Year).
		First(&existing).Error; err == nil {
		existing.Name = term.Name
		existing.StartDate = term.StartDate
		existing.EndDate = term.EndDate
		existing.Remark = term.Remark
		if err := database.DB.Save(&existing).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update term"})
		}
		middleware.LogActivity(c, "UPDATE", "terms", existing.ID, existing)
		return c.JSON(fiber.Map{"message": "Term updated", "term": existing})
	}

	if err := database.DB.Create(&term).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create term"})
	}
	middleware.LogActivity(c, "CREATE", "terms", term.ID, term)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Term created", "term": term})
}

// --- Campuses ---

func (dc *DictController) GetCampuses(c *fiber.Ctx) error {
	var campuses []models.Campus
	if err := database.DB.Preload("Rooms").Order("name").Find(&campuses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch campuses"})
	}
	return c.JSON(fiber.Map{"campuses": campuses, "total": len(campuses)})
}

type campusRequest struct {
	Name    string `json:"name" validate:"required"`
	Code    string `json:"code"`
	Address string `json:"address"`
}

func (dc *DictController) CreateCampus(c *fiber.Ctx) error {
	var req campusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	campus := models.Campus{
		Name:    utils.SanitizeString(req.Name),
		Code:    utils.SanitizeString(req.Code),
		Address: utils.SanitizeString(req.Address),
		Active:  true,
	}
	var existing models.Campus
	if err := database.DB.Where("name = ?", campus.Name).First(&existing).Error; err == nil {
		existing.Code = campus.Code
		existing.Address = campus.Address
		if err := database.DB.Save(&existing).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update campus"})
		}
		middleware.LogActivity(c, "UPDATE", "campuses", existing.ID, existing)
		return c.JSON(fiber.Map{"message": "Campus updated", "campus": existing})
	}
	if err := database.DB.Create(&campus).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create campus"})
	}
	middleware.LogActivity(c, "CREATE", "campuses", campus.ID, campus)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Campus created", "campus": campus})
}

// --- Rooms ---

func (dc *DictController) GetRooms(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Room{})
	if campusID := c.Query("campus_id"); campusID != "" {
		query = query.Where("campus_id = ?", campusID)
	}
	if c.Query("active", "") != "" {
		query = query.Where("active = ?", c.Query("active") == "true")
	}

	var rooms []models.Room
	if err := query.Preload("Campus").Order("name").Find(&rooms).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rooms"})
	}
	return c.JSON(fiber.Map{"rooms": rooms, "total": len(rooms)})
}

type roomRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity *int   `json:"capacity" validate:"omitempty,gt=0"`
	Location string `json:"location"`
	CampusID *uint  `json:"campus_id"`
}

func (dc *DictController) CreateRoom(c *fiber.Ctx) error {
	var req roomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}
	if req.CampusID != nil {
		var campus models.Campus
		if err := database.DB.First(&campus, *req.CampusID).Error; err != nil {
			return utils.RespondError(c, utils.ErrNotFound("campus not found"))
		}
	}

	room := models.Room{
		Name:     utils.SanitizeString(req.Name),
		Capacity: req.Capacity,
		Location: utils.SanitizeString(req.Location),
		CampusID: req.CampusID,
		Active:   true,
	}
	var existing models.Room
	if err := database.DB.Where("name = ?", room.Name).First(&existing).Error; err == nil {
		existing.Capacity = room.Capacity
		existing.Location = room.Location
		existing.CampusID = room.CampusID
		if err := database.DB.Save(&existing).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update room"})
		}
		middleware.LogActivity(c, "UPDATE", "rooms", existing.ID, existing)
		return c.JSON(fiber.Map{"message": "Room updated", "room": existing})
	}
	if err := database.DB.Create(&room).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create room"})
	}
	middleware.LogActivity(c, "CREATE", "rooms", room.ID, room)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Room created", "room": room})
}

// --- Subjects ---

func (dc *DictController) GetSubjects(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Subject{})
	if phase := c.Query("phase"); phase != "" {
		query = query.Where("phase = ?", phase)
	}
	var subjects []models.Subject
	if err := query.Order("name").Find(&subjects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch subjects"})
	}
	return c.JSON(fiber.Map{"subjects": subjects, "total": len(subjects)})
}

type subjectRequest struct {
	Name  string `json:"name" validate:"required"`
	Phase string `json:"phase" validate:"required,oneof=primary junior senior"`
}

func (dc *DictController) CreateSubject(c *fiber.Ctx) error {
	var req subjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	subject := models.Subject{Name: utils.SanitizeString(req.Name), Phase: req.Phase}
	var existing models.Subject
	if err := database.DB.Where("name = ?", subject.Name).First(&existing).Error; err == nil {
		existing.Phase = subject.Phase
		if err := database.DB.Save(&existing).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update subject"})
		}
		middleware.LogActivity(c, "UPDATE", "subjects", existing.ID, existing)
		return c.JSON(fiber.Map{"message": "Subject updated", "subject": existing})
	}
	if err := database.DB.Create(&subject).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create subject"})
	}
	middleware.LogActivity(c, "CREATE", "subjects", subject.ID, subject)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Subject created", "subject": subject})
}

// --- Teacher directory ---

func (dc *DictController) GetTeachers(c *fiber.Ctx) error {
	var teachers []models.User
	query := database.DB.Where("role IN ?", []string{models.RoleTeacher, models.RoleTeacherManager})
	if c.Query("active", "true") == "true" {
		query = query.Where("active = ?", true)
	}
	if err := query.Order("name").Find(&teachers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch teachers"})
	}
	return c.JSON(fiber.Map{"teachers": teachers, "total": len(teachers)})
}
