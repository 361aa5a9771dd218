package repository

import (
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(doc *model.DriverDocument) error
	FindByID(id uint) (*model.DriverDocument, error)
	FindByDriverID(driverID uint) ([]model.DriverDocument, error)
	FindActiveByDriverID(driverID uint) ([]model.DriverDocument, error)
	Update(doc *model.DriverDocument) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.DriverDocument) error {
	logger.Debug("Creating driver document in database", map[string]interface{}{
		"driver_id":     doc.DriverID,
		"document_type": doc.DocumentType,
	})

	if err := r.db.Create(doc).Error; err != nil {
		logger.Error("Failed to create driver document in database", err, map[string]interface{}{
			"driver_id":     doc.DriverID,
			"document_type": doc.DocumentType,
		})
		return err
	}

	logger.Debug("Driver document created in database", map[string]interface{}{
		"document_id": doc.ID,
	})
	return nil
}

func (r *documentRepository) FindByID(id uint) (*model.DriverDocument, error) {
	var doc model.DriverDocument
	if err := r.db.First(&doc, id).Error; err != nil {
		logger.Error("Failed to find driver document", err, map[string]interface{}{
			"document_id": id,
		})
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByDriverID(driverID uint) ([]model.DriverDocument, error) {
	logger.Debug("Finding documents by driver ID in database", map[string]interface{}{
		"driver_id": driverID,
	})

	var docs []model.DriverDocument
	if err := r.db.Where("driver_id = ?", driverID).
		Order("created_at ASC, id ASC").
		Find(&docs).Error; err != nil {
		logger.Error("Failed to find documents by driver ID", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return nil, err
	}

	logger.Debug("Documents found by driver ID in database", map[string]interface{}{
		"driver_id": driverID,
		"count":     len(docs),
	})
	return docs, nil
}

// FindActiveByDriverID returns documents that are neither rejected nor superseded, newest first.
func (r *documentRepository) FindActiveByDriverID(driverID uint) ([]model.DriverDocument, error) {
	var docs []model.DriverDocument
	if err := r.db.Where("driver_id = ? AND status NOT IN ?", driverID, model.InactiveDocumentStatuses).
		Order("created_at DESC, id DESC").
		Find(&docs).Error; err != nil {
		logger.Error("Failed to find active documents", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) Update(doc *model.DriverDocument) error {
	logger.Debug("Updating driver document in database", map[string]interface{}{
		"document_id": doc.ID,
		"status":      doc.Status,
	})

	if err := r.db.Save(doc).Error; err != nil {
		logger.Error("Failed to update driver document", err, map[string]interface{}{
			"document_id": doc.ID,
		})
		return err
	}
	return nil
}
