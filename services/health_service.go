package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"eduadmin_go/config"
	"eduadmin_go/database"
	"eduadmin_go/models"
	"eduadmin_go/utils"
)

const (
	overallStatusOK       = "ok"
	overallStatusDegraded = "degraded"
	overallStatusCritical = "critical"

	dependencyStatusUp       = "up"
	dependencyStatusDown     = "down"
	dependencyStatusDisabled = "disabled"

	healthProbeTimeout = 1500 * time.Millisecond
)

// HealthService aggregates dependency probes and a snapshot of the
// scheduling workload for the health endpoint.
type HealthService struct {
	serviceName string
	version     string
	startTime   time.Time
}

type HealthReport struct {
	Status        string             `json:"status"`
	Service       string             `json:"service"`
	Version       string             `json:"version"`
	Environment   string             `json:"environment"`
	Time          time.Time          `json:"time"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Workload      *WorkloadSnapshot  `json:"workload,omitempty"`
	Runtime       RuntimeInfo        `json:"runtime"`
}

// DependencyStatus captures the health of a single external dependency.
type DependencyStatus struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// WorkloadSnapshot surfaces the operational backlog: lessons running today,
// past lessons nobody has committed attendance for, and the cycle states.
// Omitted when the database is unreachable.
type WorkloadSnapshot struct {
	LessonsToday      int64 `json:"lessons_today"`
	PendingAttendance int64 `json:"pending_attendance"`
	PublishedCycles   int64 `json:"published_cycles"`
	DraftCycles       int64 `json:"draft_cycles"`
}

type RuntimeInfo struct {
	GoVersion      string `json:"go_version"`
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
}

func NewHealthService(serviceName, version string) *HealthService {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = "EduAdmin API"
	}
	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	return &HealthService{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
	}
}

// GetHealthReport probes the database and redis, and when the database is
// reachable attaches the workload snapshot.
func (s *HealthService) GetHealthReport() HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	report := HealthReport{
		Status:        overallStatusOK,
		Service:       s.serviceName,
		Version:       s.version,
		Environment:   currentEnvironment(),
		Time:          time.Now().UTC(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Runtime: RuntimeInfo{
			GoVersion:      runtime.Version(),
			Goroutines:     runtime.NumGoroutine(),
			HeapAllocBytes: mem.HeapAlloc,
		},
	}

	dbDep, dbUp := s.checkDatabase(ctx)
	report.Dependencies = append(report.Dependencies, dbDep)
	if !dbUp {
		report.Status = overallStatusCritical
	}

	redisDep, redisDegraded := s.checkRedis(ctx)
	report.Dependencies = append(report.Dependencies, redisDep)
	if redisDegraded && report.Status == overallStatusOK {
		report.Status = overallStatusDegraded
	}

	if dbUp {
		report.Workload = collectWorkload()
	}

	return report
}

// HTTPStatusForOverall maps a health status to an HTTP status code.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	if status == overallStatusCritical {
		return 503
	}
	return 200
}

func (s *HealthService) checkDatabase(ctx context.Context) (DependencyStatus, bool) {
	dep := DependencyStatus{Name: "mysql"}

	if database.DB == nil {
		dep.Status = dependencyStatusDown
		dep.Error = "database connection not initialised"
		return dep, false
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = fmt.Sprintf("sql DB handle error: %v", err)
		return dep, false
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, false
	}

	stats := sqlDB.Stats()
	dep.Status = dependencyStatusUp
	dep.Details = map[string]interface{}{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
	}
	return dep, true
}

func (s *HealthService) checkRedis(ctx context.Context) (DependencyStatus, bool) {
	dep := DependencyStatus{Name: "redis"}

	client := database.GetRedisClient()
	required := config.AppConfig != nil && config.AppConfig.UseRedisActivityLogs
	if client == nil {
		if required {
			dep.Status = dependencyStatusDown
			dep.Error = "redis client not initialised"
			return dep, true
		}
		dep.Status = dependencyStatusDisabled
		return dep, false
	}

	start := time.Now()
	err := client.Ping(ctx).Err()
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, required
	}

	mode := "board_cache"
	if required {
		mode = "activity_logs"
	}
	dep.Status = dependencyStatusUp
	dep.Details = map[string]interface{}{
		"address": client.Options().Addr,
		"mode":    mode,
	}
	return dep, false
}

func collectWorkload() *WorkloadSnapshot {
	today := utils.DateOnly(time.Now())
	w := &WorkloadSnapshot{}

	database.DB.Model(&models.Lesson{}).
		Where("date = ? AND status <> ?", today, models.LessonCanceled).
		Count(&w.LessonsToday)
	database.DB.Model(&models.Lesson{}).
		Where("status = ? AND lock_attendance = ? AND date < ?",
			models.LessonScheduled, false, today).
		Count(&w.PendingAttendance)
	database.DB.Model(&models.Cycle{}).
		Where("status = ?", models.CyclePublished).
		Count(&w.PublishedCycles)
	database.DB.Model(&models.Cycle{}).
		Where("status = ?", models.CycleDraft).
		Count(&w.DraftCycles)

	return w
}

func currentEnvironment() string {
	if config.AppConfig == nil {
		return "unknown"
	}
	env := strings.TrimSpace(config.AppConfig.AppEnv)
	if env == "" {
		return "unknown"
	}
	return env
}
