package services

import (
	"errors"
	"fmt"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeductionResult reports how one deduction was split across the paid and
// gift balances. MainSource is paid whenever any paid balance was used.
type DeductionResult struct {
	PaidUsed   decimal.Decimal `json:"paid_used"`
	GiftUsed   decimal.Decimal `json:"gift_used"`
	MainSource string          `json:"main_source"`
}

// SplitDeduction computes the paid-before-gift split without touching
// storage. The returned ok is false when paid+gift < qty.
func SplitDeduction(paid, gift, qty decimal.Decimal) (paidUsed, giftUsed decimal.Decimal, mainSource string, ok bool) {
	need := qty
	paidUsed = decimal.Min(paid, need)
	need = need.Sub(paidUsed)
	giftUsed = decimal.Min(gift, need)
	need = need.Sub(giftUsed)
	if need.IsPositive() {
		return decimal.Zero, decimal.Zero, "", false
	}
	mainSource = models.SourceGift
	if paidUsed.IsPositive() {
		mainSource = models.SourcePaid
	}
	return paidUsed.Round(2), giftUsed.Round(2), mainSource, true
}

// EnsureAccount is an idempotent get-or-create for the (student, course
// mode) ledger account. A unit mismatch against the mode's canonical unit
// is corrected in place.
func EnsureAccount(tx *gorm.DB, studentID uint, courseMode, unit string) (*models.Account, error) {
	var acc models.Account
	err := tx.Where("student_id = ? AND course_mode = ? AND status = ?", studentID, courseMode, "active").
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acc = models.Account{
			StudentID:  studentID,
			CourseMode: courseMode,
			DeductUnit: unit,
			Status:     "active",
		}
		if err := tx.Create(&acc).Error; err != nil {
			return nil, err
		}
		return &acc, nil
	}
	if err != nil {
		return nil, err
	}
	if acc.DeductUnit != unit {
		acc.DeductUnit = unit
		if err := tx.Model(&acc).Update("deduct_unit", unit).Error; err != nil {
			return nil, err
		}
	}
	return &acc, nil
}

func accountBalances(acc *models.Account, unit string) (paid, gift decimal.Decimal) {
	if unit == models.UnitHours {
		return acc.RemainingHours, acc.RemainingHoursGift
	}
	return acc.RemainingSessions, acc.RemainingSessionsGift
}

// CheckSufficient reports whether paid+gift covers qty.
func CheckSufficient(tx *gorm.DB, studentID uint, courseMode, unit string, qty decimal.Decimal) (bool, error) {
	acc, err := EnsureAccount(tx, studentID, courseMode, unit)
	if err != nil {
		return false, err
	}
	paid, gift := accountBalances(acc, unit)
	return paid.Add(gift).GreaterThanOrEqual(qty), nil
}

// Deduct consumes qty from the account, paid balance first, remainder from
// gift. The account row is locked for the duration of the surrounding
// transaction so concurrent commits for the same student serialize.
// Callers pre-check sufficiency; a shortfall here is an invariant
// violation, not a user error.
func Deduct(tx *gorm.DB, studentID uint, courseMode, unit string, qty decimal.Decimal) (*DeductionResult, error) {
	if _, err := EnsureAccount(tx, studentID, courseMode, unit); err != nil {
		return nil, err
	}
	var acc models.Account
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_mode = ? AND status = ?", studentID, courseMode, "active").
		First(&acc).Error; err != nil {
		return nil, err
	}

	paid, gift := accountBalances(&acc, unit)
	paidUsed, giftUsed, mainSource, ok := SplitDeduction(paid, gift, qty)
	if !ok {
		return nil, utils.ErrInvariant(fmt.Sprintf("deduct past sufficiency check for student %d", studentID))
	}

	var updates map[string]interface{}
	if unit == models.UnitHours {
		updates = map[string]interface{}{
			"remaining_hours":      paid.Sub(paidUsed),
			"remaining_hours_gift": gift.Sub(giftUsed),
		}
	} else {
		updates = map[string]interface{}{
			"remaining_sessions":      paid.Sub(paidUsed),
			"remaining_sessions_gift": gift.Sub(giftUsed),
		}
	}
	if err := tx.Model(&acc).Updates(updates).Error; err != nil {
		return nil, err
	}

	return &DeductionResult{PaidUsed: paidUsed, GiftUsed: giftUsed, MainSource: mainSource}, nil
}

// Revert is the additive inverse of Deduct. It is not idempotent; the
// caller guarantees exactly-once application per original deduction.
func Revert(tx *gorm.DB, studentID uint, courseMode, unit string, paidUsed, giftUsed decimal.Decimal) error {
	acc, err := EnsureAccount(tx, studentID, courseMode, unit)
	if err != nil {
		return err
	}
	paid, gift := accountBalances(acc, unit)
	var updates map[string]interface{}
	if unit == models.UnitHours {
		updates = map[string]interface{}{
			"remaining_hours":      paid.Add(paidUsed),
			"remaining_hours_gift": gift.Add(giftUsed),
		}
	} else {
		updates = map[string]interface{}{
			"remaining_sessions":      paid.Add(paidUsed),
			"remaining_sessions_gift": gift.Add(giftUsed),
		}
	}
	return tx.Model(acc).Updates(updates).Error
}

// CreditAccount applies a purchase event emitted by the billing core:
// purchased and remaining balances move together with the order snapshot,
// in one transaction.
func CreditAccount(db *gorm.DB, studentID uint, courseMode, unit string, paidQty, giftQty, amount decimal.Decimal, operatorID *uint) (*models.PurchaseOrder, error) {
	if unit != UnitOfMode(courseMode) {
		return nil, utils.ErrValidation("unit does not match course mode")
	}
	if paidQty.IsNegative() || giftQty.IsNegative() {
		return nil, utils.ErrValidation("quantities must be non-negative")
	}

	var order models.PurchaseOrder
	err := db.Transaction(func(tx *gorm.DB) error {
		acc, err := EnsureAccount(tx, studentID, courseMode, unit)
		if err != nil {
			return err
		}

		var updates map[string]interface{}
		if unit == models.UnitHours {
			updates = map[string]interface{}{
				"purchased_hours":      acc.PurchasedHours.Add(paidQty),
				"remaining_hours":      acc.RemainingHours.Add(paidQty),
				"remaining_hours_gift": acc.RemainingHoursGift.Add(giftQty),
				"amount_total":         acc.AmountTotal.Add(amount),
			}
		} else {
			updates = map[string]interface{}{
				"purchased_sessions":      acc.PurchasedSessions.Add(paidQty),
				"remaining_sessions":      acc.RemainingSessions.Add(paidQty),
				"remaining_sessions_gift": acc.RemainingSessionsGift.Add(giftQty),
				"amount_total":            acc.AmountTotal.Add(amount),
			}
		}
		if err := tx.Model(acc).Updates(updates).Error; err != nil {
			return err
		}

		order = models.PurchaseOrder{
			StudentID:  studentID,
			CourseMode: courseMode,
			Unit:       unit,
			Qty:        paidQty.Round(2),
			GiftQty:    giftQty.Round(2),
			Amount:     amount.Round(2),
			OperatorID: operatorID,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// StudentExists is the lookup surface consumed from the student core.
func StudentExists(tx *gorm.DB, studentID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.Student{}).Where("id = ?", studentID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AccountSpendable reports whether the account still carries a positive
// unit-matched balance that has not expired. Gift balance counts the same
// as paid here, matching the enrollment check.
func AccountSpendable(acc *models.Account, today time.Time) bool {
	if acc.Status != "active" {
		return false
	}
	if acc.ExpireAt != nil && acc.ExpireAt.Before(today) {
		return false
	}
	paid, gift := accountBalances(acc, acc.DeductUnit)
	return paid.Add(gift).IsPositive()
}

// IsActivelyEnrolled reports whether the student holds any spendable
// active account.
func IsActivelyEnrolled(tx *gorm.DB, studentID uint) (bool, error) {
	today := utils.DateOnly(time.Now())
	var accounts []models.Account
	err := tx.Where("student_id = ? AND status = ?", studentID, "active").
		Find(&accounts).Error
	if err != nil {
		return false, err
	}
	for i := range accounts {
		if AccountSpendable(&accounts[i], today) {
			return true, nil
		}
	}
	return false, nil
}
