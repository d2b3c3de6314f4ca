package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Course modes determine capacity policy and the deduction unit.
const (
	ModeOneToOne   = "one_to_one"
	ModeOneToTwo   = "one_to_two"
	ModeSmallClass = "small_class"
)

const (
	UnitHours    = "hours"
	UnitSessions = "sessions"
)

const (
	LessonScheduled = "scheduled"
	LessonFinished  = "finished"
	LessonCanceled  = "canceled"
)

const (
	AttendPresent = "present"
	AttendLeave   = "leave"
	AttendAbsent  = "absent"
)

const (
	ParticipantTrial = "trial"
	ParticipantTemp  = "temp"
)

const (
	RosterNormal = "normal"
	RosterTrial  = "trial"
)

const (
	CycleDraft     = "draft"
	CyclePublished = "published"
	CycleClosed    = "closed"
)

const (
	PatternWeekly   = "weekly"
	PatternABFixed6 = "ab_fixed6"
	PatternABCustom = "ab_custom"
)

const (
	SourcePaid = "paid"
	SourceGift = "gift"
)

// Roles mirror the external user core's closed role enum.
const (
	RoleAdmin          = "admin"
	RoleTeacherManager = "teacher_manager"
	RoleTeacher        = "teacher"
	RoleSalesperson    = "salesperson"
)

// User mirrors the account record owned by the external user core.
// Tokens are issued there; we only read role and active state.
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Name     string `json:"name" gorm:"size:100"`
	Role     string `json:"role" gorm:"size:50;not null;default:'teacher';type:enum('admin','teacher_manager','teacher','salesperson')"`
	Active   bool   `json:"active" gorm:"default:true"`
}

// Student mirrors the record owned by the external student core.
type Student struct {
	BaseModel
	Name                 string `json:"name" gorm:"size:100;not null;index"`
	Grade                uint8  `json:"grade" gorm:"index"` // 1..12
	School               string `json:"school" gorm:"size:100"`
	CurrentSalespersonID *uint  `json:"current_salesperson_id"` // homeroom contact

	CurrentSalesperson *User `json:"current_salesperson,omitempty" gorm:"foreignKey:CurrentSalespersonID"`
}

// Campus scopes rooms, cycles and board views.
type Campus struct {
	BaseModel
	Name    string `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Code    string `json:"code" gorm:"size:20"`
	Address string `json:"address" gorm:"size:200"`
	Active  bool   `json:"active" gorm:"default:true"`

	Rooms []Room `json:"rooms,omitempty" gorm:"foreignKey:CampusID"`
}

// Term bounds lesson generation.
type Term struct {
	BaseModel
	Name      string    `json:"name" gorm:"size:50;not null"`
	Type      string    `json:"type" gorm:"size:10;not null;type:enum('spring','summer','autumn','winter')"`
	Year      uint16    `json:"year" gorm:"not null;index"`
	StartDate time.Time `json:"start_date" gorm:"type:date;not null"`
	EndDate   time.Time `json:"end_date" gorm:"type:date;not null"`
	Active    bool      `json:"is_active" gorm:"default:true"`
	Remark    string    `json:"remark" gorm:"size:200"`
}

type Room struct {
	BaseModel
	Name     string `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Capacity *int   `json:"capacity"` // nil = unlimited
	Location string `json:"location" gorm:"size:100"`
	CampusID *uint  `json:"campus_id" gorm:"index"`
	Active   bool   `json:"is_active" gorm:"default:true"`

	Campus *Campus `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
}

type Subject struct {
	BaseModel
	Name  string `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Phase string `json:"phase" gorm:"size:10;not null;default:'junior';type:enum('primary','junior','senior')"`
}

// ClassGroup is a recurring class instance carrying rules and members.
type ClassGroup struct {
	BaseModel
	TermID        uint   `json:"term_id" gorm:"not null;index:idx_class_group_term_grade_mode"`
	CourseMode    string `json:"course_mode" gorm:"size:20;not null;index:idx_class_group_term_grade_mode;type:enum('one_to_one','one_to_two','small_class')"`
	Grade         uint8  `json:"grade" gorm:"not null;index:idx_class_group_term_grade_mode"`
	SubjectID     uint   `json:"subject_id" gorm:"not null"`
	RoomDefaultID *uint  `json:"room_default_id"`
	TeacherMainID uint   `json:"teacher_main_id" gorm:"not null"`
	Name          string `json:"name" gorm:"size:80"`
	Capacity      *int   `json:"capacity"` // see capacity policy; nil for small_class
	Status        string `json:"status" gorm:"size:10;default:'active'"`
	Remark        string `json:"remark" gorm:"size:200"`

	Term        Term    `json:"term,omitempty" gorm:"foreignKey:TermID"`
	Subject     Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	RoomDefault *Room   `json:"room_default,omitempty" gorm:"foreignKey:RoomDefaultID"`
	TeacherMain User    `json:"teacher_main,omitempty" gorm:"foreignKey:TeacherMainID"`
}

// ScheduleRule expands into lessons within the owning term.
// weekly: WeeklyDaysMask bit0=Monday ... bit6=Sunday.
// custom: one ScheduleCustomEntry per occurrence.
type ScheduleRule struct {
	BaseModel
	ClassGroupID    uint    `json:"class_group_id" gorm:"not null;index"`
	Type            string  `json:"type" gorm:"size:10;not null;type:enum('weekly','custom')"`
	WeeklyDaysMask  *uint8  `json:"weekly_days_mask"` // 0..127
	WeeklyStartTime *string `json:"weekly_start_time" gorm:"size:5"`
	WeeklyDuration  *int    `json:"weekly_duration"` // minutes
	Active          bool    `json:"is_active" gorm:"default:true"`

	ClassGroup    ClassGroup            `json:"class_group,omitempty" gorm:"foreignKey:ClassGroupID"`
	CustomEntries []ScheduleCustomEntry `json:"custom_entries,omitempty" gorm:"foreignKey:RuleID"`
}

type ScheduleCustomEntry struct {
	BaseModel
	RuleID          uint      `json:"rule_id" gorm:"not null;index:idx_custom_entry_rule_date"`
	Date            time.Time `json:"date" gorm:"type:date;not null;index:idx_custom_entry_rule_date"`
	StartTime       string    `json:"start_time" gorm:"size:5;not null"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null"`
}

// Lesson is a concrete occurrence. Room/teacher override class defaults
// when set; resolution happens in one place (services.ResolveRoomAndTeacher).
type Lesson struct {
	BaseModel
	ClassGroupID    uint      `json:"class_group_id" gorm:"not null;index:idx_lesson_class_date"`
	Date            time.Time `json:"date" gorm:"type:date;not null;index:idx_lesson_class_date;index:idx_lesson_date_start"`
	StartTime       string    `json:"start_time" gorm:"size:5;not null;index:idx_lesson_date_start"`
	EndTime         string    `json:"end_time" gorm:"size:5;not null"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null"`
	RoomID          *uint     `json:"room_id"`
	TeacherID       *uint     `json:"teacher_id"`
	Status          string    `json:"status" gorm:"size:10;not null;default:'scheduled';type:enum('scheduled','finished','canceled')"`
	LockAttendance  bool      `json:"lock_attendance" gorm:"default:false"` // true once attendance is committed

	ClassGroup ClassGroup `json:"class_group,omitempty" gorm:"foreignKey:ClassGroupID"`
	Room       *Room      `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	Teacher    *User      `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// ClassEnrollment is the student<->class membership edge. LeftAt nil means
// currently active; at most one active edge per (student, class).
type ClassEnrollment struct {
	BaseModel
	StudentID    uint       `json:"student_id" gorm:"not null;index:idx_enrollment_student_class"`
	ClassGroupID uint       `json:"class_group_id" gorm:"not null;index:idx_enrollment_student_class"`
	JoinedAt     time.Time  `json:"joined_at"`
	LeftAt       *time.Time `json:"left_at"`
	IsTrial      bool       `json:"is_trial" gorm:"default:false"`

	Student    Student    `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	ClassGroup ClassGroup `json:"class_group,omitempty" gorm:"foreignKey:ClassGroupID"`
}

// LessonLeave marks a pre-class leave. Settable/revocable strictly before
// lesson start; unique per (lesson, student).
type LessonLeave struct {
	BaseModel
	LessonID   uint   `json:"lesson_id" gorm:"not null;uniqueIndex:uniq_lesson_leave"`
	StudentID  uint   `json:"student_id" gorm:"not null;uniqueIndex:uniq_lesson_leave"`
	Reason     string `json:"reason" gorm:"size:200"`
	OperatorID *uint  `json:"operator_id"`

	Lesson  Lesson  `json:"lesson,omitempty" gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE"`
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Attendance is the post-class record. Deduction fields are populated only
// for present rows.
type Attendance struct {
	BaseModel
	LessonID  uint   `json:"lesson_id" gorm:"not null;uniqueIndex:uniq_attendance"`
	StudentID uint   `json:"student_id" gorm:"not null;uniqueIndex:uniq_attendance"`
	Status    string `json:"status" gorm:"size:10;not null;type:enum('present','leave','absent')"`

	DeductUnit *string          `json:"deduct_unit" gorm:"size:10"`
	DeductQty  *decimal.Decimal `json:"deduct_qty" gorm:"type:decimal(7,2)"`
	DeductFrom *string          `json:"deduct_from" gorm:"size:10"` // main source: paid/gift
	PaidUsed   *decimal.Decimal `json:"paid_used" gorm:"type:decimal(7,2)"`
	GiftUsed   *decimal.Decimal `json:"gift_used" gorm:"type:decimal(7,2)"`

	OperatorID  *uint      `json:"operator_id"`
	ConfirmedAt *time.Time `json:"confirmed_at"`

	Lesson  Lesson  `json:"lesson,omitempty" gorm:"foreignKey:LessonID"`
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// TeacherWorklog is derived at attendance commit. Settlement is a separate
// payroll concern; only pending/paid is tracked here.
type TeacherWorklog struct {
	BaseModel
	LessonID  uint            `json:"lesson_id" gorm:"not null;uniqueIndex:uniq_worklog"`
	TeacherID uint            `json:"teacher_id" gorm:"not null;uniqueIndex:uniq_worklog;index:idx_worklog_teacher_status"`
	WorkHours decimal.Decimal `json:"work_hours" gorm:"type:decimal(5,2);not null"`
	RuleCode  string          `json:"rule_code" gorm:"size:50;default:'normal'"` // normal / small_class_x2
	Status    string          `json:"status" gorm:"size:10;default:'pending';index:idx_worklog_teacher_status;type:enum('pending','paid')"`

	Lesson  Lesson `json:"lesson,omitempty" gorm:"foreignKey:LessonID"`
	Teacher User   `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// LessonParticipant is an ad-hoc (non-roster) attendee.
// trial: no deduction. temp: normal deduction.
type LessonParticipant struct {
	BaseModel
	LessonID    uint   `json:"lesson_id" gorm:"not null;uniqueIndex:uniq_participant"`
	StudentID   uint   `json:"student_id" gorm:"not null;uniqueIndex:uniq_participant"`
	Type        string `json:"type" gorm:"size:10;not null;index;type:enum('trial','temp')"`
	CreatedByID *uint  `json:"created_by_id"`

	Lesson  Lesson  `json:"lesson,omitempty" gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE"`
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Account is the per (student, course-mode) balance ledger. Paid and gift
// balances are tracked separately; gift is consumed only after paid.
// At most one active account per pair; MySQL has no partial indexes, so
// EnsureAccount guards that invariant rather than the schema.
type Account struct {
	BaseModel
	StudentID  uint   `json:"student_id" gorm:"not null;index:idx_account_lookup"`
	CourseMode string `json:"course_mode" gorm:"size:20;not null;index:idx_account_lookup;type:enum('one_to_one','one_to_two','small_class')"`
	DeductUnit string `json:"deduct_unit" gorm:"size:16;not null"`

	PurchasedHours     decimal.Decimal `json:"purchased_hours" gorm:"type:decimal(7,2);default:0"`
	RemainingHours     decimal.Decimal `json:"remaining_hours" gorm:"type:decimal(7,2);default:0"`
	RemainingHoursGift decimal.Decimal `json:"remaining_hours_gift" gorm:"type:decimal(7,2);default:0"`

	PurchasedSessions     decimal.Decimal `json:"purchased_sessions" gorm:"type:decimal(7,2);default:0"`
	RemainingSessions     decimal.Decimal `json:"remaining_sessions" gorm:"type:decimal(7,2);default:0"`
	RemainingSessionsGift decimal.Decimal `json:"remaining_sessions_gift" gorm:"type:decimal(7,2);default:0"`

	Status      string          `json:"status" gorm:"size:16;default:'active';index:idx_account_lookup"`
	ExpireAt    *time.Time      `json:"expire_at" gorm:"type:date"`
	AmountTotal decimal.Decimal `json:"amount_total" gorm:"type:decimal(12,2);default:0"`

	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// PurchaseOrder is the snapshot written when the billing core credits an
// account. Pricing computation happens in the billing core.
type PurchaseOrder struct {
	BaseModel
	StudentID  uint            `json:"student_id" gorm:"not null;index"`
	CourseMode string          `json:"course_mode" gorm:"size:20;not null;index"`
	Unit       string          `json:"unit" gorm:"size:16;not null"`
	Qty        decimal.Decimal `json:"qty" gorm:"type:decimal(7,2);not null"`
	GiftQty    decimal.Decimal `json:"gift_qty" gorm:"type:decimal(7,2);default:0"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	OperatorID *uint           `json:"operator_id"`

	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Cycle is a campus-scoped planning window. The roster and preplan slots
// below it never touch lessons until publish.
type Cycle struct {
	BaseModel
	TermID      uint      `json:"term_id" gorm:"not null"`
	TermType    string    `json:"term_type" gorm:"size:10;not null;index:idx_cycle_year_type_campus"`
	Year        uint16    `json:"year" gorm:"not null;index:idx_cycle_year_type_campus"`
	CampusID    uint      `json:"campus_id" gorm:"not null;index:idx_cycle_year_type_campus"`
	Name        string    `json:"name" gorm:"size:80;not null"`
	DateFrom    time.Time `json:"date_from" gorm:"type:date;not null"`
	DateTo      time.Time `json:"date_to" gorm:"type:date;not null"`
	Pattern     string    `json:"pattern" gorm:"size:20;not null;default:'weekly';type:enum('weekly','ab_fixed6','ab_custom')"`
	RestWeekday uint8     `json:"rest_weekday" gorm:"default:7"` // 1=Monday .. 7=Sunday
	Status      string    `json:"status" gorm:"size:12;default:'draft'"`
	Remark      string    `json:"remark" gorm:"size:200"`
	CreatedByID *uint     `json:"created_by_id"`

	Term   Term   `json:"term,omitempty" gorm:"foreignKey:TermID"`
	Campus Campus `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
}

// CycleRoster is a planning-time assignment. Track partitions irregular
// patterns; nil for plain weekly cycles.
type CycleRoster struct {
	BaseModel
	CycleID      uint    `json:"cycle_id" gorm:"not null;uniqueIndex:uniq_cycle_roster;index:idx_roster_cycle_class"`
	ClassGroupID uint    `json:"class_group_id" gorm:"not null;uniqueIndex:uniq_cycle_roster;index:idx_roster_cycle_class"`
	StudentID    uint    `json:"student_id" gorm:"not null;uniqueIndex:uniq_cycle_roster;index"`
	Type         string  `json:"type" gorm:"size:10;not null;default:'normal';type:enum('normal','trial')"`
	Track        *string `json:"track" gorm:"size:1;uniqueIndex:uniq_cycle_roster"` // A/B
	Note         string  `json:"note" gorm:"size:200"`
	CreatedByID  *uint   `json:"created_by_id"`

	Cycle      Cycle      `json:"cycle,omitempty" gorm:"foreignKey:CycleID;constraint:OnDelete:CASCADE"`
	ClassGroup ClassGroup `json:"class_group,omitempty" gorm:"foreignKey:ClassGroupID"`
	Student    Student    `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// CyclePreplanSlot parks a class in a weekday x time-range buffer before
// any date mapping exists. Plan only; no lessons are generated from it.
type CyclePreplanSlot struct {
	BaseModel
	CycleID           uint   `json:"cycle_id" gorm:"not null;uniqueIndex:uniq_preplan_slot;index:idx_preplan_cycle_weekday"`
	ClassGroupID      uint   `json:"class_group_id" gorm:"not null;uniqueIndex:uniq_preplan_slot;index"`
	Weekday           uint8  `json:"weekday" gorm:"not null;uniqueIndex:uniq_preplan_slot;index:idx_preplan_cycle_weekday"` // 1=Monday .. 7=Sunday
	StartTime         string `json:"start_time" gorm:"size:5;not null;uniqueIndex:uniq_preplan_slot"`
	EndTime           string `json:"end_time" gorm:"size:5;not null;uniqueIndex:uniq_preplan_slot"`
	TeacherOverrideID *uint  `json:"teacher_override_id"`
	RoomOverrideID    *uint  `json:"room_override_id"`
	Note              string `json:"note" gorm:"size:200"`
	CreatedByID       *uint  `json:"created_by_id"`

	Cycle      Cycle      `json:"cycle,omitempty" gorm:"foreignKey:CycleID;constraint:OnDelete:CASCADE"`
	ClassGroup ClassGroup `json:"class_group,omitempty" gorm:"foreignKey:ClassGroupID"`
}

// CyclePublishLog is the audit trail of one publish run (dry or real).
// Payload and DiffStats hold typed JSON serialized at the boundary.
type CyclePublishLog struct {
	BaseModel
	CycleID       uint   `json:"cycle_id" gorm:"not null;index"`
	BatchID       string `json:"batch_id" gorm:"size:36;not null;index"`
	Scope         string `json:"scope" gorm:"size:20;default:'future_only'"`
	Mode          string `json:"mode" gorm:"size:20;default:'participants'"`
	DryRun        bool   `json:"dry_run" gorm:"default:false"`
	Payload       JSON   `json:"payload" gorm:"type:json"`
	DiffStats     JSON   `json:"diff_stats" gorm:"type:json"`
	PublishedByID *uint  `json:"published_by_id"`

	Cycle Cycle `json:"cycle,omitempty" gorm:"foreignKey:CycleID;constraint:OnDelete:CASCADE"`
}

// CyclePublishItem pins down exactly which (lesson, student) pairs this
// cycle's publish materialized, so a later publish removes only its own.
// The participant reference is a weak back-reference, not ownership.
type CyclePublishItem struct {
	BaseModel
	CycleID       uint    `json:"cycle_id" gorm:"not null;uniqueIndex:uniq_publish_item;index:idx_publish_item_cycle_lesson"`
	RosterID      uint    `json:"roster_id" gorm:"not null"`
	LessonID      uint    `json:"lesson_id" gorm:"not null;uniqueIndex:uniq_publish_item;index:idx_publish_item_cycle_lesson"`
	StudentID     uint    `json:"student_id" gorm:"not null;uniqueIndex:uniq_publish_item;index"`
	ParticipantID *uint   `json:"participant_id"`
	Type          string  `json:"type" gorm:"size:10;not null"`
	Track         *string `json:"track" gorm:"size:1"`

	Cycle  Cycle       `json:"cycle,omitempty" gorm:"foreignKey:CycleID;constraint:OnDelete:CASCADE"`
	Roster CycleRoster `json:"roster,omitempty" gorm:"foreignKey:RosterID;constraint:OnDelete:CASCADE"`
	Lesson Lesson      `json:"lesson,omitempty" gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive model for tracking archived logs
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"`
	Error       string    `json:"error" gorm:"type:text"`
}
