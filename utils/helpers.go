package utils

import (
	"strings"
	"time"
)

// DaysToMask packs ISO weekdays (1=Monday .. 7=Sunday) into a bitmask
// with bit0=Monday ... bit6=Sunday. Out-of-range days are ignored.
func DaysToMask(days []int) uint8 {
	var m uint8
	for _, d := range days {
		if d >= 1 && d <= 7 {
			m |= 1 << (d - 1)
		}
	}
	return m
}

// MaskToDays is the inverse of DaysToMask, ascending order.
func MaskToDays(mask uint8) []int {
	var days []int
	for i := 0; i < 7; i++ {
		if mask&(1<<i) != 0 {
			days = append(days, i+1)
		}
	}
	return days
}

// ISOWeekday returns 1=Monday .. 7=Sunday.
func ISOWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekdayName returns the short English name for an ISO weekday
// (1=Monday .. 7=Sunday). Out-of-range input yields an empty string.
func WeekdayName(isoDay int) string {
	if isoDay < 1 || isoDay > 7 {
		return ""
	}
	return [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}[isoDay-1]
}

// ParseDate parses a "YYYY-MM-DD" value in local time.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.Local)
}

// ParseHHMM validates an "HH:MM" clock value and returns it normalized.
func ParseHHMM(value string) (string, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse("15:04", value)
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}

// AddMinutesHHMM returns start + minutes, formatted "HH:MM". Clamped to
// the same day: lessons do not cross midnight.
func AddMinutesHHMM(start string, minutes int) (string, error) {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return "", err
	}
	end := t.Add(time.Duration(minutes) * time.Minute)
	if end.Day() != t.Day() {
		end = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
	}
	return end.Format("15:04"), nil
}

// CombineDateTime anchors an "HH:MM" clock value on a calendar date in
// local time. Used for leave/attendance cutoff checks.
func CombineDateTime(date time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
}

// DateOnly truncates to midnight local time.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
