package repository

import (
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
)

type ActivityLogRepository interface {
	Create(entry *model.ActivityLog) error
	FindBySubject(subjectType string, subjectID uint) ([]model.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(entry *model.ActivityLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to write activity log", err, map[string]interface{}{
			"action":     entry.Action,
			"subject_id": entry.SubjectID,
		})
		return err
	}
	return nil
}

func (r *activityLogRepository) FindBySubject(subjectType string, subjectID uint) ([]model.ActivityLog, error) {
	logger.Debug("Finding activity logs by subject", map[string]interface{}{
		"subject_type": subjectType,
		"subject_id":   subjectID,
	})

	var entries []model.ActivityLog
	if err := r.db.Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		logger.Error("Failed to find activity logs", err, map[string]interface{}{
			"subject_type": subjectType,
			"subject_id":   subjectID,
		})
		return nil, err
	}
	return entries, nil
}
