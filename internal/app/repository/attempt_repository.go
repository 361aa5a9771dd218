package repository

import (
	"time"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
)

// Attempts are read in log order: created_at, then id.
const attemptLogOrder = "created_at ASC, id ASC"

type AttemptRepository interface {
	FindByDriverID(driverID uint) ([]model.VerificationAttempt, error)
	FindLatestByDriverID(driverID uint) (*model.VerificationAttempt, error)
	FindLatestByDriverIDs(driverIDs []uint) (map[uint]model.VerificationAttempt, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) FindByDriverID(driverID uint) ([]model.VerificationAttempt, error) {
	logger.Debug("Finding verification attempts by driver ID", map[string]interface{}{
		"driver_id": driverID,
	})

	var attempts []model.VerificationAttempt
	if err := r.db.Where("driver_id = ?", driverID).
		Order(attemptLogOrder).
		Find(&attempts).Error; err != nil {
		logger.Error("Failed to find verification attempts", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return nil, err
	}

	logger.Debug("Verification attempts found", map[string]interface{}{
		"driver_id": driverID,
		"count":     len(attempts),
	})
	return attempts, nil
}

func (r *attemptRepository) FindLatestByDriverID(driverID uint) (*model.VerificationAttempt, error) {
	var attempt model.VerificationAttempt
	if err := r.db.Where("driver_id = ?", driverID).
		Order("created_at DESC, id DESC").
		First(&attempt).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find latest verification attempt", err, map[string]interface{}{
				"driver_id": driverID,
			})
		}
		return nil, err
	}
	return &attempt, nil
}

// latestAttemptIDs selects the id of the newest attempt of every driver.
func (r *attemptRepository) latestAttemptIDs() *gorm.DB {
	return r.db.Table("verification_attempts AS v").
		Select("v.id").
		Where(`NOT EXISTS (
			SELECT 1 FROM verification_attempts n
			WHERE n.driver_id = v.driver_id
			AND (n.created_at > v.created_at OR (n.created_at = v.created_at AND n.id > v.id))
		)`)
}

func (r *attemptRepository) FindLatestByDriverIDs(driverIDs []uint) (map[uint]model.VerificationAttempt, error) {
	result := make(map[uint]model.VerificationAttempt, len(driverIDs))
	if len(driverIDs) == 0 {
		return result, nil
	}

	var attempts []model.VerificationAttempt
	if err := r.db.Where("driver_id IN ?", driverIDs).
		Where("id IN (?)", r.latestAttemptIDs()).
		Find(&attempts).Error; err != nil {
		logger.Error("Failed to find latest attempts for drivers", err, map[string]interface{}{
			"driver_count": len(driverIDs),
		})
		return nil, err
	}
	for _, a := range attempts {
		result[a.DriverID] = a
	}
	return result, nil
}

// DeleteOlderThan removes attempts created before cutoff, never a driver's newest one.
func (r *attemptRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	logger.Debug("Deleting expired verification attempts", map[string]interface{}{
		"cutoff": cutoff,
	})

	res := r.db.Where("created_at < ?", cutoff).
		Where("id NOT IN (?)", r.latestAttemptIDs()).
		Delete(&model.VerificationAttempt{})
	if res.Error != nil {
		logger.Error("Failed to delete expired verification attempts", res.Error, map[string]interface{}{
			"cutoff": cutoff,
		})
		return 0, res.Error
	}

	logger.Debug("Expired verification attempts deleted", map[string]interface{}{
		"deleted": res.RowsAffected,
	})
	return res.RowsAffected, nil
}
