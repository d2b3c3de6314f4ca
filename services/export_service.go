package services

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// MasterRosterRow is one line of the cycle master roster: a student's
// assignment to a class within the cycle, flattened for listing and export.
type MasterRosterRow struct {
	StudentID   uint    `json:"student_id"`
	StudentName string  `json:"student_name"`
	Grade       uint8   `json:"grade"`
	ClassID     uint    `json:"class_id"`
	ClassName   string  `json:"class_name"`
	CourseMode  string  `json:"course_mode"`
	Subject     string  `json:"subject"`
	TeacherName string  `json:"teacher_name"`
	RoomName    string  `json:"room_name,omitempty"`
	Type        string  `json:"type"`
	Track       *string `json:"track,omitempty"`
	Schedule    string  `json:"schedule,omitempty"`
}

// BuildMasterRoster flattens a cycle's roster with class, teacher and
// schedule info, ordered by class then student name.
func BuildMasterRoster(db *gorm.DB, cycle *models.Cycle) ([]MasterRosterRow, error) {
	var rosters []models.CycleRoster
	err := db.Preload("Student").
		Preload("ClassGroup").Preload("ClassGroup.Subject").
		Preload("ClassGroup.TeacherMain").Preload("ClassGroup.RoomDefault").
		Where("cycle_id = ?", cycle.ID).
		Find(&rosters).Error
	if err != nil {
		return nil, err
	}

	// Active weekly rules give the human-readable schedule column.
	classIDs := make([]uint, 0, len(rosters))
	seen := make(map[uint]bool)
	for _, r := range rosters {
		if !seen[r.ClassGroupID] {
			seen[r.ClassGroupID] = true
			classIDs = append(classIDs, r.ClassGroupID)
		}
	}
	schedules := make(map[uint]string)
	if len(classIDs) > 0 {
		var rules []models.ScheduleRule
		if err := db.Where("class_group_id IN ? AND active = ?", classIDs, true).
			Find(&rules).Error; err != nil {
			return nil, err
		}
		for _, rule := range rules {
			if rule.Type != "weekly" || rule.WeeklyDaysMask == nil || rule.WeeklyStartTime == nil {
				continue
			}
			days := utils.MaskToDays(*rule.WeeklyDaysMask)
			names := make([]string, 0, len(days))
			for _, d := range days {
				names = append(names, utils.WeekdayName(d))
			}
			end := ""
			if rule.WeeklyDuration != nil {
				if e, err := utils.AddMinutesHHMM(*rule.WeeklyStartTime, *rule.WeeklyDuration); err == nil {
					end = "-" + e
				}
			}
			schedules[rule.ClassGroupID] = fmt.Sprintf("%s %s%s",
				strings.Join(names, "/"), *rule.WeeklyStartTime, end)
		}
	}

	rows := make([]MasterRosterRow, 0, len(rosters))
	for _, r := range rosters {
		row := MasterRosterRow{
			StudentID:   r.StudentID,
			StudentName: r.Student.Name,
			Grade:       r.Student.Grade,
			ClassID:     r.ClassGroupID,
			ClassName:   r.ClassGroup.Name,
			CourseMode:  r.ClassGroup.CourseMode,
			Subject:     r.ClassGroup.Subject.Name,
			TeacherName: r.ClassGroup.TeacherMain.Name,
			Type:        r.Type,
			Track:       r.Track,
			Schedule:    schedules[r.ClassGroupID],
		}
		if r.ClassGroup.RoomDefault != nil {
			row.RoomName = r.ClassGroup.RoomDefault.Name
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClassID != rows[j].ClassID {
			return rows[i].ClassID < rows[j].ClassID
		}
		return rows[i].StudentName < rows[j].StudentName
	})
	return rows, nil
}

// ExportMasterRosterXLSX renders the master roster as a workbook and
// returns the serialized bytes plus a suggested file name.
func ExportMasterRosterXLSX(db *gorm.DB, cycle *models.Cycle) ([]byte, string, error) {
	rows, err := BuildMasterRoster(db, cycle)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Roster"
	f.SetSheetName("Sheet1", sheet)

	header := []string{"Student", "Grade", "Class", "Mode", "Subject", "Teacher", "Room", "Type", "Track", "Schedule"}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, row := range rows {
		track := ""
		if row.Track != nil {
			track = *row.Track
		}
		values := []interface{}{
			row.StudentName, row.Grade, row.ClassName, row.CourseMode,
			row.Subject, row.TeacherName, row.RoomName, row.Type, track, row.Schedule,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("cycle_%d_roster.xlsx", cycle.ID)
	return buf.Bytes(), name, nil
}
