package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Error codes for business-rule failures. Controllers translate these to
// HTTP statuses; services never touch fiber.
const (
	CodeValidation          = "validation_error"
	CodeNotFound            = "not_found"
	CodeForbidden           = "forbidden"
	CodeConflict            = "conflict"
	CodeInsufficientBalance = "insufficient_balance"
	CodeAlreadyLocked       = "already_locked"
	CodeInvariantViolation  = "invariant_violation"
)

// AppError is a structured business error: code + message + optional
// detail payload (e.g. conflicting lesson IDs, insufficient student IDs).
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Code + ": " + e.Message
}

func NewAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NewAppErrorWithDetails(code, message string, details interface{}) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidation, message)
}

func ErrNotFound(message string) *AppError {
	return NewAppError(CodeNotFound, message)
}

func ErrForbidden(message string) *AppError {
	return NewAppError(CodeForbidden, message)
}

func ErrConflict(message string, details interface{}) *AppError {
	return NewAppErrorWithDetails(CodeConflict, message, details)
}

func ErrInsufficientBalance(message string, details interface{}) *AppError {
	return NewAppErrorWithDetails(CodeInsufficientBalance, message, details)
}

func ErrAlreadyLocked(message string) *AppError {
	return NewAppError(CodeAlreadyLocked, message)
}

// ErrInvariant flags states that should be unreachable (e.g. deduct past a
// sufficiency pre-check). These must fail loudly, never clamp.
func ErrInvariant(message string) *AppError {
	return NewAppError(CodeInvariantViolation, message)
}

// HTTPStatus maps an error code to the response status.
func HTTPStatus(code string) int {
	switch code {
	case CodeValidation, CodeInsufficientBalance, CodeAlreadyLocked:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeConflict:
		return fiber.StatusConflict
	case CodeInvariantViolation:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondError writes an AppError (or a generic 500 for unknown errors)
// in the standard envelope.
func RespondError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(HTTPStatus(appErr.Code)).JSON(fiber.Map{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
		"code":  "internal_error",
	})
}
