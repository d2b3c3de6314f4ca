package services

import (
	"time"

	"eduadmin_go/database"
	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler owns the background jobs: log maintenance and the nightly
// cycle sweep.
type Scheduler struct {
	cron     *cron.Cron
	archiver *LogArchiveService
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		archiver: NewLogArchiveService(),
	}
}

// Start registers and launches the jobs. Errors inside a job are logged,
// never fatal.
func (s *Scheduler) Start() {
	s.cron.AddFunc("@hourly", func() {
		if err := s.archiver.FlushCachedLogsToDatabase(); err != nil {
			logrus.WithError(err).Warn("log flush failed")
		}
		if err := s.archiver.ArchiveOldLogs(30); err != nil {
			logrus.WithError(err).Warn("log archive failed")
		}
	})

	// 00:30 local time, after the day has rolled over.
	s.cron.AddFunc("30 0 * * *", func() {
		if err := CloseExpiredCycles(); err != nil {
			logrus.WithError(err).Warn("cycle sweep failed")
		}
		if err := ReportPendingAttendance(); err != nil {
			logrus.WithError(err).Warn("pending attendance sweep failed")
		}
	})

	s.cron.Start()
	logrus.Info("Background scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// CloseExpiredCycles marks published cycles whose window has fully passed
// as closed. Draft cycles are left alone; an unpublished plan stays
// editable no matter how old.
func CloseExpiredCycles() error {
	today := utils.DateOnly(time.Now())
	result := database.DB.Model(&models.Cycle{}).
		Where("status = ? AND date_to < ?", models.CyclePublished, today).
		Update("status", models.CycleClosed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logrus.Infof("Closed %d expired cycles", result.RowsAffected)
	}
	return nil
}

// ReportPendingAttendance logs lessons from previous days that are still
// scheduled with attendance uncommitted, so stale classes surface in the
// morning instead of silently aging.
func ReportPendingAttendance() error {
	today := utils.DateOnly(time.Now())
	var count int64
	err := database.DB.Model(&models.Lesson{}).
		Where("status = ? AND lock_attendance = ? AND date < ?",
			models.LessonScheduled, false, today).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		logrus.Warnf("%d past lessons still awaiting attendance", count)
	}
	return nil
}
