package utils

import (
	"eduadmin_go/models"

	"github.com/shopspring/decimal"
)

// Compact DTOs for list endpoints, where full model payloads are noise.

type StudentShort struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Grade uint8  `json:"grade"`
}

func ToStudentShort(s *models.Student) StudentShort {
	return StudentShort{ID: s.ID, Name: s.Name, Grade: s.Grade}
}

func ToStudentShorts(students []models.Student) []StudentShort {
	out := make([]StudentShort, 0, len(students))
	for i := range students {
		out = append(out, ToStudentShort(&students[i]))
	}
	return out
}

type ClassGroupShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	CourseMode  string `json:"course_mode"`
	Grade       uint8  `json:"grade"`
	Subject     string `json:"subject"`
	TeacherName string `json:"teacher_name"`
}

func ToClassGroupShort(cg *models.ClassGroup) ClassGroupShort {
	return ClassGroupShort{
		ID:          cg.ID,
		Name:        cg.Name,
		CourseMode:  cg.CourseMode,
		Grade:       cg.Grade,
		Subject:     cg.Subject.Name,
		TeacherName: cg.TeacherMain.Name,
	}
}

// AccountBalances flattens the unit-relevant pair of an account for API
// responses; the unused unit's columns are omitted.
type AccountBalances struct {
	AccountID  uint            `json:"account_id"`
	StudentID  uint            `json:"student_id"`
	CourseMode string          `json:"course_mode"`
	Unit       string          `json:"unit"`
	Paid       decimal.Decimal `json:"paid"`
	Gift       decimal.Decimal `json:"gift"`
	Purchased  decimal.Decimal `json:"purchased"`
	Status     string          `json:"status"`
}

func ToAccountBalances(acc *models.Account) AccountBalances {
	out := AccountBalances{
		AccountID:  acc.ID,
		StudentID:  acc.StudentID,
		CourseMode: acc.CourseMode,
		Unit:       acc.DeductUnit,
		Status:     acc.Status,
	}
	if acc.DeductUnit == models.UnitSessions {
		out.Paid = acc.RemainingSessions
		out.Gift = acc.RemainingSessionsGift
		out.Purchased = acc.PurchasedSessions
	} else {
		out.Paid = acc.RemainingHours
		out.Gift = acc.RemainingHoursGift
		out.Purchased = acc.PurchasedHours
	}
	return out
}
