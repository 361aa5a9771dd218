package repository

import (
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
)

type FacialVerificationRepository interface {
	Create(fv *model.FacialVerification) error
	FindByDriverID(driverID uint) ([]model.FacialVerification, error)
}

type facialVerificationRepository struct {
	db *gorm.DB
}

func NewFacialVerificationRepository(db *gorm.DB) FacialVerificationRepository {
	return &facialVerificationRepository{db: db}
}

func (r *facialVerificationRepository) Create(fv *model.FacialVerification) error {
	if err := r.db.Create(fv).Error; err != nil {
		logger.Error("Failed to create facial verification", err, map[string]interface{}{
			"driver_id": fv.DriverID,
		})
		return err
	}
	logger.Debug("Facial verification recorded", map[string]interface{}{
		"driver_id":   fv.DriverID,
		"match_score": fv.MatchScore,
		"passed":      fv.Passed,
	})
	return nil
}

func (r *facialVerificationRepository) FindByDriverID(driverID uint) ([]model.FacialVerification, error) {
	var history []model.FacialVerification
	if err := r.db.Where("driver_id = ?", driverID).
		Order("created_at ASC, id ASC").
		Find(&history).Error; err != nil {
		logger.Error("Failed to find facial verifications", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return nil, err
	}
	return history, nil
}
