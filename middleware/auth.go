package middleware

import (
	"eduadmin_go/config"
	"eduadmin_go/database"
	"eduadmin_go/models"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Claims as issued by the external user core. This service never issues
// tokens; it only verifies them.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Capability is a closed set of actions the scheduling core authorizes
// against. Handlers and services check capabilities, never role strings.
type Capability string

const (
	CapManageDicts       Capability = "manage_dicts"        // terms/rooms/subjects upkeep
	CapManageClassGroups Capability = "manage_class_groups" // create classes, generate lessons
	CapManageRoster      Capability = "manage_roster"       // enroll/unenroll, cycle rosters
	CapRegisterLeave     Capability = "register_leave"      // pre-class leave marking
	CapCommitAttendance  Capability = "commit_attendance"   // post-class commit (plus assigned teacher)
	CapRevertAttendance  Capability = "revert_attendance"   // admin-only revert
	CapPublishCycle      Capability = "publish_cycle"       // cycle publish / dry-run
	CapCreditAccount     Capability = "credit_account"      // billing-core callback
	CapViewArchives      Capability = "view_archives"
)

var roleCapabilities = map[string]map[Capability]bool{
	models.RoleAdmin: {
		CapManageDicts: true, CapManageClassGroups: true, CapManageRoster: true,
		CapRegisterLeave: true, CapCommitAttendance: true, CapRevertAttendance: true,
		CapPublishCycle: true, CapCreditAccount: true, CapViewArchives: true,
	},
	models.RoleTeacherManager: {
		CapManageDicts: true, CapManageClassGroups: true, CapManageRoster: true,
		CapRegisterLeave: true, CapCommitAttendance: true, CapPublishCycle: true,
	},
	models.RoleSalesperson: {
		CapManageRoster: true, CapRegisterLeave: true,
	},
	models.RoleTeacher: {},
}

// Can reports whether the user's role grants the capability.
func Can(user *models.User, cap Capability) bool {
	if user == nil {
		return false
	}
	return roleCapabilities[user.Role][cap]
}

// CanCommitAttendance authorizes an attendance commit: capability holders,
// plus the teacher the lesson resolves to. Plain teachers carry no
// capabilities, so the ID match is their only way in.
func CanCommitAttendance(user *models.User, assignedTeacherID uint) bool {
	if Can(user, CapCommitAttendance) {
		return true
	}
	return user != nil && user.ID == assignedTeacherID
}

// JWTMiddleware validates JWT tokens
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		// Verify user still exists and is active
		var user models.User
		if err := database.DB.Where("id = ? AND active = ?", claims.UserID, true).First(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found or inactive",
			})
		}

		c.Locals("user", &user)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireCapability rejects the request unless the authenticated user's
// role grants the capability.
func RequireCapability(cap Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := GetCurrentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing user context",
			})
		}
		if !Can(user, cap) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
		return c.Next()
	}
}

// GetCurrentUser returns the current authenticated user
func GetCurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found in context")
	}
	return user, nil
}

// GetCurrentClaims returns the current JWT claims
func GetCurrentClaims(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Claims not found in context")
	}
	return claims, nil
}
