package scheduler

import (
	"fmt"
	"time"

	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// RetentionScheduler prunes old verification attempts on a cron schedule.
// A driver's latest attempt is always kept so the projection stays reproducible.
type RetentionScheduler struct {
	cron        *cron.Cron
	attemptRepo repository.AttemptRepository
	schedule    string
	retention   time.Duration
	now         func() time.Time
}

func NewRetentionScheduler(attemptRepo repository.AttemptRepository, schedule string, retentionDays int) *RetentionScheduler {
	return &RetentionScheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		attemptRepo: attemptRepo,
		schedule:    schedule,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
		now:         time.Now,
	}
}

// Start registers the cleanup job and starts the cron runner.
func (s *RetentionScheduler) Start() error {
	if s.retention <= 0 {
		logger.Warn("Retention disabled, attempt cleanup not scheduled", map[string]interface{}{
			"retention": s.retention.String(),
		})
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(); err != nil {
			logger.Error("Scheduled attempt cleanup failed", err)
		}
	}); err != nil {
		logger.Error("Failed to add cron job for attempt cleanup", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return fmt.Errorf("invalid retention schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	logger.Info("Retention scheduler started", map[string]interface{}{
		"schedule":       s.schedule,
		"retention_days": int(s.retention.Hours() / 24),
	})
	return nil
}

// RunOnce deletes attempts older than the retention window.
func (s *RetentionScheduler) RunOnce() (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	deleted, err := s.attemptRepo.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}

	logger.Info("Expired verification attempts removed", map[string]interface{}{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	})
	return deleted, nil
}

func (s *RetentionScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Retention scheduler stopped", nil)
}
