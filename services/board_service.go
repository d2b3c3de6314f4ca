package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"eduadmin_go/config"
	"eduadmin_go/database"
	"eduadmin_go/models"
	"eduadmin_go/utils"

	"gorm.io/gorm"
)

// TimeSlot is one column of the scheduling board.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Slot templates by class kind. Small classes run 2-hour blocks, the
// 1v1/1v2 grid runs shorter blocks with more columns.
var slotTemplates = map[string][]TimeSlot{
	"small_class": {
		{"08:00", "10:00"},
		{"10:10", "12:10"},
		{"13:30", "15:30"},
		{"15:40", "17:40"},
		{"18:30", "20:30"},
	},
	"non_small": {
		{"08:00", "09:40"},
		{"09:50", "11:30"},
		{"13:30", "15:10"},
		{"15:20", "17:00"},
		{"17:10", "18:50"},
		{"19:00", "20:40"},
	},
}

func slotTemplateFor(courseMode string) []TimeSlot {
	if courseMode == models.ModeSmallClass {
		return slotTemplates["small_class"]
	}
	return slotTemplates["non_small"]
}

// BoardLesson is one card on the board.
type BoardLesson struct {
	LessonID     uint   `json:"lesson_id"`
	ClassGroupID uint   `json:"class_group_id"`
	ClassName    string `json:"class_name"`
	CourseMode   string `json:"course_mode"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	RoomName     string `json:"room_name,omitempty"`
	Status       string `json:"status"`
	StudentCount int    `json:"student_count"`
	LeaveCount   int    `json:"leave_count"`
}

type BoardCell struct {
	Slot    TimeSlot      `json:"slot"`
	Lessons []BoardLesson `json:"lessons"`
}

type BoardTeacherRow struct {
	TeacherID   uint        `json:"teacher_id"`
	TeacherName string      `json:"teacher_name"`
	Cells       []BoardCell `json:"cells"`
}

type BoardDate struct {
	Date     string            `json:"date"`
	Weekday  string            `json:"weekday"`
	Teachers []BoardTeacherRow `json:"teachers"`
}

// BoardView is the cycle board: dates x teachers x time slots, every lesson
// at the cycle's campus bucketed into the slot it overlaps.
type BoardView struct {
	CycleID uint        `json:"cycle_id"`
	Slots   []TimeSlot  `json:"slots"`
	Dates   []BoardDate `json:"dates"`
}

func boardCacheKey(cycleID uint) string {
	return fmt.Sprintf("board:cycle:%d", cycleID)
}

// InvalidateBoardCache drops the cached board after anything that changes
// lessons or rosters inside the cycle window.
func InvalidateBoardCache(cycleID uint) {
	rdb := database.GetRedisClient()
	if rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rdb.Del(ctx, boardCacheKey(cycleID))
}

// BuildBoard assembles the board view for a cycle, cached in redis for
// BoardCacheTTL. Small-class and non-small lessons share one grid; the
// wider non-small template is used so every lesson finds a column.
func BuildBoard(db *gorm.DB, cycle *models.Cycle) (*BoardView, error) {
	rdb := database.GetRedisClient()
	if rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		cached, err := rdb.Get(ctx, boardCacheKey(cycle.ID)).Result()
		cancel()
		if err == nil && cached != "" {
			var view BoardView
			if json.Unmarshal([]byte(cached), &view) == nil {
				return &view, nil
			}
		}
	}

	view, err := buildBoardUncached(db, cycle)
	if err != nil {
		return nil, err
	}

	if rdb != nil && config.AppConfig != nil {
		if payload, err := json.Marshal(view); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			rdb.Set(ctx, boardCacheKey(cycle.ID), payload, config.AppConfig.BoardCacheTTL)
			cancel()
		}
	}
	return view, nil
}

func buildBoardUncached(db *gorm.DB, cycle *models.Cycle) (*BoardView, error) {
	var lessons []models.Lesson
	err := db.Preload("ClassGroup").Preload("ClassGroup.TeacherMain").
		Preload("ClassGroup.RoomDefault").Preload("Room").Preload("Teacher").
		Where("date >= ? AND date <= ? AND status <> ?",
			utils.DateOnly(cycle.DateFrom), utils.DateOnly(cycle.DateTo), models.LessonCanceled).
		Order("date, start_time").
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}

	rooms := make(map[uint]*models.Room)
	{
		var all []models.Room
		if err := db.Find(&all).Error; err != nil {
			return nil, err
		}
		for i := range all {
			rooms[all[i].ID] = &all[i]
		}
	}

	lessonIDs := make([]uint, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	participantCounts, err := countByLesson(db, &models.LessonParticipant{}, lessonIDs)
	if err != nil {
		return nil, err
	}
	leaveCounts, err := countByLesson(db, &models.LessonLeave{}, lessonIDs)
	if err != nil {
		return nil, err
	}
	enrollCounts := make(map[uint]int64)
	{
		type row struct {
			ClassGroupID uint
			N            int64
		}
		var counts []row
		if err := db.Model(&models.ClassEnrollment{}).
			Select("class_group_id, COUNT(*) AS n").
			Where("left_at IS NULL").Group("class_group_id").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		for _, c := range counts {
			enrollCounts[c.ClassGroupID] = c.N
		}
	}

	slots := slotTemplates["non_small"]
	byDate := make(map[string]map[uint][]models.Lesson) // date -> teacher -> lessons
	teacherNames := make(map[uint]string)
	var dateOrder []string
	for _, l := range lessons {
		campusID := lessonCampusID(&l, &l.ClassGroup, rooms)
		if campusID == nil || *campusID != cycle.CampusID {
			continue
		}
		_, teacherID := ResolveRoomAndTeacher(&l, &l.ClassGroup)
		if l.Teacher != nil {
			teacherNames[teacherID] = l.Teacher.Name
		} else {
			teacherNames[teacherID] = l.ClassGroup.TeacherMain.Name
		}

		day := l.Date.Format("2006-01-02")
		if _, ok := byDate[day]; !ok {
			byDate[day] = make(map[uint][]models.Lesson)
			dateOrder = append(dateOrder, day)
		}
		byDate[day][teacherID] = append(byDate[day][teacherID], l)
	}

	view := &BoardView{CycleID: cycle.ID, Slots: slots}
	for _, day := range dateOrder {
		d, _ := time.ParseInLocation("2006-01-02", day, time.Local)
		bd := BoardDate{Date: day, Weekday: utils.WeekdayName(utils.ISOWeekday(d))}
		teacherIDs := make([]uint, 0, len(byDate[day]))
		for teacherID := range byDate[day] {
			teacherIDs = append(teacherIDs, teacherID)
		}
		sort.Slice(teacherIDs, func(i, j int) bool { return teacherIDs[i] < teacherIDs[j] })
		for _, teacherID := range teacherIDs {
			tls := byDate[day][teacherID]
			row := BoardTeacherRow{TeacherID: teacherID, TeacherName: teacherNames[teacherID]}
			for _, slot := range slots {
				cell := BoardCell{Slot: slot}
				for _, l := range tls {
					if !TimeOverlap(l.StartTime, l.EndTime, slot.Start, slot.End) {
						continue
					}
					roomID, _ := ResolveRoomAndTeacher(&l, &l.ClassGroup)
					roomName := ""
					if roomID != nil {
						if r, ok := rooms[*roomID]; ok {
							roomName = r.Name
						}
					}
					cell.Lessons = append(cell.Lessons, BoardLesson{
						LessonID:     l.ID,
						ClassGroupID: l.ClassGroupID,
						ClassName:    l.ClassGroup.Name,
						CourseMode:   l.ClassGroup.CourseMode,
						StartTime:    l.StartTime,
						EndTime:      l.EndTime,
						RoomName:     roomName,
						Status:       l.Status,
						StudentCount: int(enrollCounts[l.ClassGroupID] + participantCounts[l.ID]),
						LeaveCount:   int(leaveCounts[l.ID]),
					})
				}
				row.Cells = append(row.Cells, cell)
			}
			bd.Teachers = append(bd.Teachers, row)
		}
		view.Dates = append(view.Dates, bd)
	}
	return view, nil
}

func countByLesson(db *gorm.DB, model interface{}, lessonIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64)
	if len(lessonIDs) == 0 {
		return out, nil
	}
	type row struct {
		LessonID uint
		N        int64
	}
	var counts []row
	if err := db.Model(model).
		Select("lesson_id, COUNT(*) AS n").
		Where("lesson_id IN ?", lessonIDs).Group("lesson_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		out[c.LessonID] = c.N
	}
	return out, nil
}
