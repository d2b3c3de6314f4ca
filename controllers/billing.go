package controllers

import (
	"eduadmin_go/database"
	"eduadmin_go/middleware"
	"eduadmin_go/models"
	"eduadmin_go/services"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// BillingController is the crediting surface called by the billing core
// after a purchase, plus read access to accounts and orders.
type BillingController struct{}

type creditRequest struct {
	StudentID  uint   `json:"student_id" validate:"required"`
	CourseMode string `json:"course_mode" validate:"required,oneof=one_to_one one_to_two small_class"`
	Qty        string `json:"qty" validate:"required"`
	GiftQty    string `json:"gift_qty"`
	Amount     string `json:"amount" validate:"required"`
}

// CreditAccount books a purchase: paid and gift quantities onto the
// (student, mode) account plus an immutable order snapshot.
func (bc *BillingController) CreditAccount(c *fiber.Ctx) error {
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return utils.RespondError(c, utils.ErrValidation(err.Error()))
	}

	qty, err := decimal.NewFromString(req.Qty)
	if err != nil || qty.IsNegative() {
		return utils.RespondError(c, utils.ErrValidation("qty must be a non-negative decimal"))
	}
	gift := decimal.Zero
	if req.GiftQty != "" {
		gift, err = decimal.NewFromString(req.GiftQty)
		if err != nil || gift.IsNegative() {
			return utils.RespondError(c, utils.ErrValidation("gift_qty must be a non-negative decimal"))
		}
	}
	if qty.IsZero() && gift.IsZero() {
		return utils.RespondError(c, utils.ErrValidation("nothing to credit"))
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return utils.RespondError(c, utils.ErrValidation("amount must be a non-negative decimal"))
	}

	exists, err := services.StudentExists(database.DB, req.StudentID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check student"})
	}
	if !exists {
		return utils.RespondError(c, utils.ErrNotFound("student not found"))
	}

	user, _ := middleware.GetCurrentUser(c)
	var operatorID *uint
	if user != nil {
		operatorID = &user.ID
	}

	unit := services.UnitOfMode(req.CourseMode)
	order, err := services.CreditAccount(database.DB, req.StudentID, req.CourseMode, unit, qty, gift, amount, operatorID)
	if err != nil {
		return utils.RespondError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "purchase_orders", order.ID, order)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account credited",
		"order":   order,
	})
}

// GetAccounts lists a student's ledger accounts with flattened balances.
func (bc *BillingController) GetAccounts(c *fiber.Ctx) error {
	studentID, err := parseIDParam(c, "student_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var accounts []models.Account
	if err := database.DB.Where("student_id = ?", studentID).Find(&accounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch accounts"})
	}
	balances := make([]utils.AccountBalances, 0, len(accounts))
	for i := range accounts {
		balances = append(balances, utils.ToAccountBalances(&accounts[i]))
	}
	return c.JSON(fiber.Map{"accounts": balances, "total": len(balances)})
}

// GetPurchaseOrders lists a student's order snapshots, newest first.
func (bc *BillingController) GetPurchaseOrders(c *fiber.Ctx) error {
	studentID, err := parseIDParam(c, "student_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var orders []models.PurchaseOrder
	if err := database.DB.Where("student_id = ?", studentID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
	}
	return c.JSON(fiber.Map{"orders": orders, "total": len(orders)})
}
