package services

import (
	"eduadmin_go/models"

	"github.com/shopspring/decimal"
)

var (
	two     = decimal.NewFromInt(2)
	sixty   = decimal.NewFromInt(60)
	oneSess = decimal.RequireFromString("1.00")
)

// RoundToHalfHours converts minutes to hours rounded to the nearest 0.5,
// half-up, with 2 decimal places.
func RoundToHalfHours(minutes int) decimal.Decimal {
	hours := decimal.NewFromInt(int64(minutes)).Div(sixty)
	half := hours.Mul(two).Round(0)
	return half.Div(two).Round(2)
}

// GetStudentDeduct returns the deduction (unit, qty) for one lesson:
// small_class charges a flat session; hour modes charge the lesson
// duration rounded to the nearest half hour.
func GetStudentDeduct(courseMode string, durationMinutes int) (string, decimal.Decimal) {
	if courseMode == models.ModeSmallClass {
		return models.UnitSessions, oneSess
	}
	return models.UnitHours, RoundToHalfHours(durationMinutes)
}

// UnitOfMode returns the canonical deduction unit for a course mode.
func UnitOfMode(courseMode string) string {
	if courseMode == models.ModeSmallClass {
		return models.UnitSessions
	}
	return models.UnitHours
}

// WorkHoursFor computes the teacher worklog entry for a finished lesson:
// small_class logs a fixed 2.00 under rule small_class_x2; other modes log
// the rounded lesson duration under rule normal.
func WorkHoursFor(courseMode string, durationMinutes int) (decimal.Decimal, string) {
	if courseMode == models.ModeSmallClass {
		return decimal.RequireFromString("2.00"), "small_class_x2"
	}
	return RoundToHalfHours(durationMinutes), "normal"
}

// TimeOverlap is the strict half-open interval test on "HH:MM" values.
// Touching boundaries (endA == startB) do not overlap.
func TimeOverlap(startA, endA, startB, endB string) bool {
	return startA < endB && endA > startB
}
