package controllers

import (
	"eduadmin_go/database"
	"eduadmin_go/middleware"
	"eduadmin_go/models"
	"eduadmin_go/services"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

// CycleController manages planning cycles: CRUD, rosters, preplan slots,
// the board view, the master roster and publishing.
type CycleController struct{}

func (cy *CycleController) GetCycles(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Cycle{})
	if campusID := c.Query("campus_id"); campusID != "" {
		query = query.Where("campus_id = ?", campusID)
	}
	if year := c.Query("year"); year != "" {
		query = query.Where("year = ?", year)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var cycles []models.Cycle
	if err := query.Preload("Term").Preload("Campus").
		Order("date_from DESC").Find(&cycles).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch cycles"})
	}
	return c.JSON(fiber.Map{"cycles": cycles, "total": len(cycles)})
}

func (cy *CycleController) getCycle(c *fiber.Ctx) (*models.Cycle, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, utils.ErrValidation("invalid cycle ID")
	}
	var cycle models.Cycle
	if err := database.DB.First(&cycle, id).Error; err != nil {
		return nil, utils.ErrNotFound("cycle not found")
	}
	return &cycle, nil
}

func (cy *CycleController) GetCycle(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	database.DB.Preload("Term").Preload("Campus").First(cycle, cycle.ID)

	var rosterCount, slotCount int64
	database.DB.Model(&models.CycleRoster{}).Where("cycle_id = ?", cycle.ID).Count(&rosterCount)
	database.DB.Model(&models.CyclePreplanSlot{}).Where("cycle_id = ?", cycle.ID).Count(&slotCount)

	var lastPublish models.CyclePublishLog
	published := database.DB.Where("cycle_id = ? AND dry_run = ?", cycle.ID, false).
		Order("created_at DESC").First(&lastPublish).Error == nil

	resp := fiber.Map{
		"cycle":         cycle,
		"roster_count":  rosterCount,
		"preplan_count": slotCount,
	}
	if published {
		resp["last_publish"] = lastPublish
	}
	return c.JSON(resp)
}

type cycleRequest struct {
	TermID      uint   `json:"term_id" validate:"required"`
	CampusID    uint   `json:"campus_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	DateFrom    string `json:"date_from" validate:"required"`
	DateTo      string `json:"date_to" validate:"required"`
	Pattern     string `json:"pattern" validate:"omitempty,oneof=weekly ab_fixed6 ab_custom"`
	RestWeekday uint8  `json:"rest_weekday" validate:"omitempty,min=1,max=7"`
	Remark      string `json:"remark"`
}

func (cy *CycleController) CreateCycle(c *fiber.Ctx) error {
	var req cycleRequest
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
	var campus models.Campus
	if err := database.DB.First(&campus, req.CampusID).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("campus not found"))
	}

	from, err := utils.ParseDate(req.DateFrom)
	if err != nil {
		return utils.RespondError(c, utils.ErrValidation("invalid date_from"))
	}
	to, err := utils.ParseDate(req.DateTo)
	if err != nil {
		return utils.RespondError(c, utils.ErrValidation("invalid date_to"))
	}
	if to.Before(from) {
		return utils.RespondError(c, utils.ErrValidation("date_to before date_from"))
	}

	pattern := req.Pattern
	if pattern == "" {
		pattern = models.PatternWeekly
	}
	restWeekday := req.RestWeekday
	if restWeekday == 0 {
		restWeekday = 7
	}

	user, _ := middleware.GetCurrentUser(c)
	cycle := models.Cycle{
		TermID:      req.TermID,
		TermType:    term.Type,
		Year:        term.Year,
		CampusID:    req.CampusID,
		Name:        utils.SanitizeString(req.Name),
		DateFrom:    from,
		DateTo:      to,
		Pattern:     pattern,
		RestWeekday: restWeekday,
		Status:      models.CycleDraft,
		Remark:      utils.SanitizeString(req.Remark),
	}
	if user != nil {
		cycle.CreatedByID = &user.ID
	}

	if err := database.DB.Create(&cycle).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create cycle"})
	}
	middleware.LogActivity(c, "CREATE", "cycles", cycle.ID, cycle)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Cycle created", "cycle": cycle})
}

func (cy *CycleController) UpdateCycle(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if cycle.Status == models.CycleClosed {
		return utils.RespondError(c, utils.ErrValidation("closed cycle cannot be edited"))
	}

	var req struct {
		Name        *string `json:"name"`
		DateTo      *string `json:"date_to"`
		RestWeekday *uint8  `json:"rest_weekday"`
		Remark      *string `json:"remark"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = utils.SanitizeString(*req.Name)
	}
	if req.DateTo != nil {
		to, err := utils.ParseDate(*req.DateTo)
		if err != nil {
			return utils.RespondError(c, utils.ErrValidation("invalid date_to"))
		}
		if to.Before(utils.DateOnly(cycle.DateFrom)) {
			return utils.RespondError(c, utils.ErrValidation("date_to before date_from"))
		}
		updates["date_to"] = to
	}
	if req.RestWeekday != nil {
		if *req.RestWeekday < 1 || *req.RestWeekday > 7 {
			return utils.RespondError(c, utils.ErrValidation("rest_weekday must be 1..7"))
		}
		updates["rest_weekday"] = *req.RestWeekday
	}
	if req.Remark != nil {
		updates["remark"] = utils.SanitizeString(*req.Remark)
	}
	if len(updates) == 0 {
		return utils.RespondError(c, utils.ErrValidation("nothing to update"))
	}

	if err := database.DB.Model(cycle).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update cycle"})
	}
	services.InvalidateBoardCache(cycle.ID)
	middleware.LogActivity(c, "UPDATE", "cycles", cycle.ID, updates)
	return c.JSON(fiber.Map{"message": "Cycle updated", "cycle": cycle})
}

// --- Roster ---

func (cy *CycleController) GetRoster(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}

	query := database.DB.Preload("Student").Preload("ClassGroup").
		Where("cycle_id = ?", cycle.ID)
	if classID := c.Query("class_group_id"); classID != "" {
		query = query.Where("class_group_id = ?", classID)
	}

	var rosters []models.CycleRoster
	if err := query.Find(&rosters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch roster"})
	}
	return c.JSON(fiber.Map{"roster": rosters, "total": len(rosters)})
}

type rosterRequest struct {
	ClassGroupID uint    `json:"class_group_id" validate:"required"`
	StudentID    uint    `json:"student_id" validate:"required"`
	Type         string  `json:"type" validate:"omitempty,oneof=normal trial"`
	Track        *string `json:"track" validate:"omitempty,oneof=A B"`
	Note         string  `json:"note"`
}

func (cy *CycleController) AddRosterEntry(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if cycle.Status == models.CycleClosed {
		return utils.RespondError(c, utils.ErrValidation("closed cycle cannot be edited"))
	}

	var req rosterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}
	if req.Track != nil && cycle.Pattern == models.PatternWeekly {
		return utils.RespondError(c, utils.ErrValidation("weekly cycles do not use tracks"))
	}

	var cg models.ClassGroup
	if err := database.DB.First(&cg, req.ClassGroupID).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("class group not found"))
	}
	exists, err := services.StudentExists(database.DB, req.StudentID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check student"})
	}
	if !exists {
		return utils.RespondError(c, utils.ErrNotFound("student not found"))
	}

	rosterType := req.Type
	if rosterType == "" {
		rosterType = models.RosterNormal
	}

	var dup int64
	dupQuery := database.DB.Model(&models.CycleRoster{}).
		Where("cycle_id = ? AND class_group_id = ? AND student_id = ?",
			cycle.ID, req.ClassGroupID, req.StudentID)
	if req.Track != nil {
		dupQuery = dupQuery.Where("track = ?", *req.Track)
	} else {
		dupQuery = dupQuery.Where("track IS NULL")
	}
	dupQuery.Count(&dup)
	if dup > 0 {
		return utils.RespondError(c, utils.ErrValidation("roster entry already exists"))
	}

	// Planning capacity mirrors live enrollment capacity.
	var current int64
	countQuery := database.DB.Model(&models.CycleRoster{}).
		Where("cycle_id = ? AND class_group_id = ?", cycle.ID, req.ClassGroupID)
	if req.Track != nil {
		countQuery = countQuery.Where("track = ? OR track IS NULL", *req.Track)
	}
	countQuery.Count(&current)
	if !services.CapacityAllows(&cg, int(current), 1) {
		return utils.RespondError(c, utils.ErrValidation("class is full in this cycle"))
	}

	user, _ := middleware.GetCurrentUser(c)
	roster := models.CycleRoster{
		CycleID:      cycle.ID,
		ClassGroupID: req.ClassGroupID,
		StudentID:    req.StudentID,
		Type:         rosterType,
		Track:        req.Track,
		Note:         utils.SanitizeString(req.Note),
	}
	if user != nil {
		roster.CreatedByID = &user.ID
	}
	if err := database.DB.Create(&roster).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add roster entry"})
	}

	services.InvalidateBoardCache(cycle.ID)
	middleware.LogActivity(c, "CREATE", "cycle_rosters", roster.ID, roster)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Roster entry added", "roster": roster})
}

func (cy *CycleController) RemoveRosterEntry(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if cycle.Status == models.CycleClosed {
		return utils.RespondError(c, utils.ErrValidation("closed cycle cannot be edited"))
	}
	rosterID, err := parseIDParam(c, "roster_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid roster ID"})
	}

	var roster models.CycleRoster
	if err := database.DB.Where("id = ? AND cycle_id = ?", rosterID, cycle.ID).
		First(&roster).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("roster entry not found"))
	}
	if err := database.DB.Delete(&roster).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove roster entry"})
	}

	services.InvalidateBoardCache(cycle.ID)
	middleware.LogActivity(c, "DELETE", "cycle_rosters", roster.ID, roster)
	return c.JSON(fiber.Map{"message": "Roster entry removed"})
}

// --- Preplan slots ---

func (cy *CycleController) GetPreplanSlots(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	var slots []models.CyclePreplanSlot
	if err := database.DB.Preload("ClassGroup").
		Where("cycle_id = ?", cycle.ID).
		Order("weekday, start_time").Find(&slots).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch preplan slots"})
	}
	return c.JSON(fiber.Map{"slots": slots, "total": len(slots)})
}

type preplanRequest struct {
	ClassGroupID      uint   `json:"class_group_id" validate:"required"`
	Weekday           uint8  `json:"weekday" validate:"required,min=1,max=7"`
	StartTime         string `json:"start_time" validate:"required"`
	DurationMinutes   int    `json:"duration_minutes" validate:"required,gt=0"`
	TeacherOverrideID *uint  `json:"teacher_override_id"`
	RoomOverrideID    *uint  `json:"room_override_id"`
	Note              string `json:"note"`
}

func (cy *CycleController) AddPreplanSlot(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if cycle.Status == models.CycleClosed {
		return utils.RespondError(c, utils.ErrValidation("closed cycle cannot be edited"))
	}

	var req preplanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}
	start, err := utils.ParseHHMM(req.StartTime)
	if err != nil {
		return utils.RespondError(c, utils.ErrValidation("invalid start_time"))
	}
	end, err := utils.AddMinutesHHMM(start, req.DurationMinutes)
	if err != nil {
		return utils.RespondError(c, utils.ErrValidation("invalid duration"))
	}
	var cg models.ClassGroup
	if err := database.DB.First(&cg, req.ClassGroupID).Error; err != nil {
		return utils.RespondError(c, utils.ErrNotFound("class group not found"))
	}

	user, _ := middleware.GetCurrentUser(c)
	slot := models.CyclePreplanSlot{
		CycleID:           cycle.ID,
		ClassGroupID:      req.ClassGroupID,
		Weekday:           req.Weekday,
		StartTime:         start,
		EndTime:           end,
		TeacherOverrideID: req.TeacherOverrideID,
		RoomOverrideID:    req.RoomOverrideID,
		Note:              utils.SanitizeString(req.Note),
	}
	if user != nil {
		slot.CreatedByID = &user.ID
	}
	if err := database.DB.Create(&slot).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add preplan slot"})
	}

	middleware.LogActivity(c, "CREATE", "cycle_preplan_slots", slot.ID, slot)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Preplan slot added", "slot": slot})
}

func (cy *CycleController) RemovePreplanSlot(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	slotID, err := parseIDParam(c, "slot_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot ID"})
	}

	result := database.DB.Where("id = ? AND cycle_id = ?", slotID, cycle.ID).
		Delete(&models.CyclePreplanSlot{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove preplan slot"})
	}
	if result.RowsAffected == 0 {
		return utils.RespondError(c, utils.ErrNotFound("preplan slot not found"))
	}

	middleware.LogActivity(c, "DELETE", "cycle_preplan_slots", slotID, fiber.Map{"cycle_id": cycle.ID})
	return c.JSON(fiber.Map{"message": "Preplan slot removed"})
}

// --- Board / master roster / export ---

func (cy *CycleController) GetBoard(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	board, err := services.BuildBoard(database.DB, cycle)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build board"})
	}
	return c.JSON(fiber.Map{"board": board})
}

func (cy *CycleController) GetMasterRoster(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	rows, err := services.BuildMasterRoster(database.DB, cycle)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build master roster"})
	}
	return c.JSON(fiber.Map{"roster": rows, "total": len(rows)})
}

func (cy *CycleController) ExportMasterRoster(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	data, name, err := services.ExportMasterRosterXLSX(database.DB, cycle)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export roster"})
	}

	middleware.LogActivity(c, "EXPORT", "cycles", cycle.ID, fiber.Map{"file": name})
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

// --- Publish ---

type publishRequest struct {
	Scope  string                         `json:"scope" validate:"omitempty,oneof=future_only include_today"`
	DryRun *bool                          `json:"dry_run"`
	Map    map[string][]string            `json:"map"`
	Tracks map[string]map[string][]string `json:"tracks"`
}

func (cy *CycleController) Publish(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}

	var req publishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	// Omitting dry_run previews; a real run must say dry_run=false.
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	user, _ := middleware.GetCurrentUser(c)
	opts := services.PublishOptions{
		Scope:     req.Scope,
		DryRun:    dryRun,
		DayMap:    req.Map,
		TrackMaps: req.Tracks,
	}
	if user != nil {
		opts.OperatorID = &user.ID
	}

	result, err := services.PublishCycle(database.DB, cycle, opts)
	if err != nil {
		return utils.RespondError(c, err)
	}

	action := "PUBLISH"
	if dryRun {
		action = "PUBLISH_DRY_RUN"
	}
	middleware.LogActivity(c, action, "cycles", cycle.ID, result)
	return c.JSON(fiber.Map{"message": "Publish complete", "result": result})
}

// GetPublishLogs lists the audit trail for a cycle, newest first.
func (cy *CycleController) GetPublishLogs(c *fiber.Ctx) error {
	cycle, err := cy.getCycle(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	var logs []models.CyclePublishLog
	if err := database.DB.Where("cycle_id = ?", cycle.ID).
		Order("created_at DESC").Limit(50).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch publish logs"})
	}
	return c.JSON(fiber.Map{"logs": logs, "total": len(logs)})
}
