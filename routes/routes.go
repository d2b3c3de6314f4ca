package routes

import (
	"eduadmin_go/controllers"
	"eduadmin_go/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App) {
	dictController := &controllers.DictController{}
	studentController := &controllers.StudentController{}
	classGroupController := &controllers.ClassGroupController{}
	lessonController := &controllers.LessonController{}
	cycleController := &controllers.CycleController{}
	billingController := &controllers.BillingController{}
	logController := &controllers.LogController{}
	healthController := controllers.NewHealthController()

	// Health endpoints stay public for orchestration probes.
	app.Get("/health", healthController.GetHealth)
	app.Get("/health/live", healthController.GetLiveness)

	api := app.Group("/api", middleware.JWTMiddleware())

	// Dictionaries
	dicts := api.Group("/dicts")
	dicts.Get("/terms", dictController.GetTerms)
	dicts.Post("/terms", middleware.RequireCapability(middleware.CapManageDicts), dictController.CreateTerm)
	dicts.Get("/campuses", dictController.GetCampuses)
	dicts.Post("/campuses", middleware.RequireCapability(middleware.CapManageDicts), dictController.CreateCampus)
	dicts.Get("/rooms", dictController.GetRooms)
	dicts.Post("/rooms", middleware.RequireCapability(middleware.CapManageDicts), dictController.CreateRoom)
	dicts.Get("/subjects", dictController.GetSubjects)
	dicts.Post("/subjects", middleware.RequireCapability(middleware.CapManageDicts), dictController.CreateSubject)
	dicts.Get("/teachers", dictController.GetTeachers)

	// Students
	students := api.Group("/students")
	students.Get("/", studentController.GetStudents)
	students.Get("/:id", studentController.GetStudent)
	students.Get("/:id/enrollments", studentController.GetStudentEnrollments)
	students.Get("/:student_id/accounts", billingController.GetAccounts)
	students.Get("/:student_id/orders", billingController.GetPurchaseOrders)

	// Billing callback
	api.Post("/billing/credit", middleware.RequireCapability(middleware.CapCreditAccount), billingController.CreditAccount)

	// Class groups
	classes := api.Group("/class-groups")
	classes.Get("/", classGroupController.GetClassGroups)
	classes.Get("/:id", classGroupController.GetClassGroup)
	classes.Post("/", middleware.RequireCapability(middleware.CapManageClassGroups), classGroupController.CreateClassGroup)
	classes.Post("/:id/generate", middleware.RequireCapability(middleware.CapManageClassGroups), classGroupController.GenerateLessons)
	classes.Post("/:id/enroll", middleware.RequireCapability(middleware.CapManageRoster), classGroupController.Enroll)
	classes.Delete("/:id/enroll/:student_id", middleware.RequireCapability(middleware.CapManageRoster), classGroupController.Unenroll)

	// Lessons
	lessons := api.Group("/lessons")
	lessons.Get("/", lessonController.GetLessons)
	lessons.Get("/:id", lessonController.GetLesson)
	lessons.Post("/:id/cancel", middleware.RequireCapability(middleware.CapManageClassGroups), lessonController.CancelLesson)
	lessons.Post("/:id/leaves", middleware.RequireCapability(middleware.CapRegisterLeave), lessonController.RegisterLeave)
	lessons.Delete("/:id/leaves/:student_id", middleware.RequireCapability(middleware.CapRegisterLeave), lessonController.RevokeLeave)
	lessons.Get("/:id/participants", lessonController.GetParticipants)
	lessons.Post("/:id/participants", middleware.RequireCapability(middleware.CapManageRoster), lessonController.AddParticipant)
	lessons.Delete("/:id/participants/:student_id", middleware.RequireCapability(middleware.CapManageRoster), lessonController.RemoveParticipant)
	lessons.Get("/:id/attendance", lessonController.GetAttendance)
	// commit authorization also admits the lesson's assigned teacher, so it
	// lives in the handler rather than a capability gate
	lessons.Post("/:id/attendance", lessonController.CommitAttendance)
	lessons.Post("/:id/attendance/revert", middleware.RequireCapability(middleware.CapRevertAttendance), lessonController.RevertAttendance)

	// Cycles
	cycles := api.Group("/cycles")
	cycles.Get("/", cycleController.GetCycles)
	cycles.Get("/:id", cycleController.GetCycle)
	cycles.Post("/", middleware.RequireCapability(middleware.CapManageRoster), cycleController.CreateCycle)
	cycles.Put("/:id", middleware.RequireCapability(middleware.CapManageRoster), cycleController.UpdateCycle)
	cycles.Get("/:id/roster", cycleController.GetRoster)
	cycles.Post("/:id/roster", middleware.RequireCapability(middleware.CapManageRoster), cycleController.AddRosterEntry)
	cycles.Delete("/:id/roster/:roster_id", middleware.RequireCapability(middleware.CapManageRoster), cycleController.RemoveRosterEntry)
	cycles.Get("/:id/preplan", cycleController.GetPreplanSlots)
	cycles.Post("/:id/preplan", middleware.RequireCapability(middleware.CapManageRoster), cycleController.AddPreplanSlot)
	cycles.Delete("/:id/preplan/:slot_id", middleware.RequireCapability(middleware.CapManageRoster), cycleController.RemovePreplanSlot)
	cycles.Get("/:id/board", cycleController.GetBoard)
	cycles.Get("/:id/master-roster", cycleController.GetMasterRoster)
	cycles.Get("/:id/master-roster/export", cycleController.ExportMasterRoster)
	cycles.Post("/:id/publish", middleware.RequireCapability(middleware.CapPublishCycle), cycleController.Publish)
	cycles.Get("/:id/publish-logs", cycleController.GetPublishLogs)

	// Activity logs and archives
	logs := api.Group("/logs", middleware.RequireCapability(middleware.CapViewArchives))
	logs.Get("/", logController.GetActivityLogs)
	logs.Get("/archives", logController.GetArchives)
	logs.Get("/archives/:id", logController.DownloadArchive)
}
