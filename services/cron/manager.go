package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/postforge/api/model"
	"github.com/postforge/api/services"
)

// CronManager runs the recurring background passes: the scheduler tick and
// housekeeping. The scheduler pass fires more often than once per hour on
// purpose, a missed pass (deploy, crash) is then retried within the same
// timeslot and the unique slot index keeps reruns harmless.
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	scheduler *services.SchedulerService
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, scheduler *services.SchedulerService) *CronManager {
	return &CronManager{
		cron:      cron.New(cron.WithSeconds()),
		db:        db,
		scheduler: scheduler,
	}
}

// Start registers and starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// Every 5 minutes: evaluate schedule rules for all active tenants.
	_, err := m.cron.AddFunc("0 */5 * * * *", func() {
		m.logJobStart("schedule_tick")
		m.RunScheduleTick()
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM: trim old execution logs.
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("cleanup_old_logs")
		m.CleanupOldLogs()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// RunScheduleTick runs one scheduler pass over every active tenant.
func (m *CronManager) RunScheduleTick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	jobName := "schedule_tick"
	if err := m.scheduler.RunAll(ctx); err != nil {
		m.logJobError(jobName, err)
		return
	}
	m.logJobComplete(jobName, "scheduler pass finished")
}

// CleanupOldLogs removes cron job logs older than 30 days. Schedule logs are
// kept: they are the idempotence record and the audit trail.
func (m *CronManager) CleanupOldLogs() {
	jobName := "cleanup_old_logs"
	cutoff := time.Now().AddDate(0, 0, -30)

	result := m.db.Unscoped().
		Where("started_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}
	m.logJobComplete(jobName, fmt.Sprintf("removed %d old cron logs", result.RowsAffected))
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&cronLog)
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now(),
			"message":      message,
		})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "failed",
			"completed_at": time.Now(),
			"error_msg":    err.Error(),
		})
}
