package controllers

import (
	"eduadmin_go/services"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	service *services.HealthService
}

func NewHealthController() *HealthController {
	return &HealthController{
		service: services.NewHealthService("EduAdmin API", "1.0.0"),
	}
}

// GetHealth reports service status plus dependency probes. 503 when a
// critical dependency is down.
func (hc *HealthController) GetHealth(c *fiber.Ctx) error {
	report := hc.service.GetHealthReport()
	return c.Status(hc.service.HTTPStatusForOverall(report.Status)).JSON(report)
}

// GetLiveness is the bare process probe for orchestration.
func (hc *HealthController) GetLiveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
