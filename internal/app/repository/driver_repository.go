package repository

import (
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
)

type DriverListOptions struct {
	Status   model.VerificationStatus
	Page     int
	PageSize int
}

type DriverRepository interface {
	Create(driver *model.Driver) error
	BulkCreate(drivers []model.Driver, batchSize int) error
	FindByID(id uint) (*model.Driver, error)
	FindByIDWithDocuments(id uint) (*model.Driver, error)
	Update(driver *model.Driver) error
	UpdateFields(id uint, fields map[string]interface{}) error
	List(opts DriverListOptions) ([]model.Driver, int64, error)
	ExistsByLicenseNumber(licenseNumber string, excludeID uint) (bool, error)
	ExistsByEmail(email string, excludeID uint) (bool, error)
	ExistsByPhone(phone string, excludeID uint) (bool, error)
}

type driverRepository struct {
	db *gorm.DB
}

func NewDriverRepository(db *gorm.DB) DriverRepository {
	return &driverRepository{db: db}
}

func (r *driverRepository) Create(driver *model.Driver) error {
	logger.Debug("Creating driver in database", map[string]interface{}{
		"email": driver.Email,
	})

	if err := r.db.Create(driver).Error; err != nil {
		logger.Error("Failed to create driver in database", err, map[string]interface{}{
			"email": driver.Email,
		})
		return err
	}

	logger.Debug("Driver created in database", map[string]interface{}{
		"driver_id": driver.ID,
	})
	return nil
}

func (r *driverRepository) FindByID(id uint) (*model.Driver, error) {
	logger.Debug("Finding driver by ID in database", map[string]interface{}{
		"driver_id": id,
	})

	var driver model.Driver
	if err := r.db.First(&driver, id).Error; err != nil {
		logger.Error("Failed to find driver by ID in database", err, map[string]interface{}{
			"driver_id": id,
		})
		return nil, err
	}

	logger.Debug("Driver found by ID in database", map[string]interface{}{
		"driver_id":           driver.ID,
		"verification_status": driver.VerificationStatus,
		"kyc_status":          driver.KycStatus,
	})
	return &driver, nil
}

func (r *driverRepository) FindByIDWithDocuments(id uint) (*model.Driver, error) {
	logger.Debug("Finding driver with documents in database", map[string]interface{}{
		"driver_id": id,
	})

	var driver model.Driver
	if err := r.db.Preload("Documents", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).First(&driver, id).Error; err != nil {
		logger.Error("Failed to find driver with documents in database", err, map[string]interface{}{
			"driver_id": id,
		})
		return nil, err
	}

	logger.Debug("Driver with documents found in database", map[string]interface{}{
		"driver_id":      driver.ID,
		"document_count": len(driver.Documents),
	})
	return &driver, nil
}

func (r *driverRepository) Update(driver *model.Driver) error {
	logger.Debug("Updating driver in database", map[string]interface{}{
		"driver_id": driver.ID,
	})

	if err := r.db.Omit("Documents").Save(driver).Error; err != nil {
		logger.Error("Failed to update driver in database", err, map[string]interface{}{
			"driver_id": driver.ID,
		})
		return err
	}

	logger.Debug("Driver updated in database", map[string]interface{}{
		"driver_id": driver.ID,
	})
	return nil
}

func (r *driverRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	logger.Debug("Updating driver fields in database", map[string]interface{}{
		"driver_id":   id,
		"field_count": len(fields),
	})

	if err := r.db.Model(&model.Driver{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		logger.Error("Failed to update driver fields in database", err, map[string]interface{}{
			"driver_id": id,
		})
		return err
	}

	logger.Debug("Driver fields updated in database", map[string]interface{}{
		"driver_id": id,
	})
	return nil
}

func (r *driverRepository) List(opts DriverListOptions) ([]model.Driver, int64, error) {
	logger.Debug("Listing drivers in database", map[string]interface{}{
		"status":    opts.Status,
		"page":      opts.Page,
		"page_size": opts.PageSize,
	})

	query := r.db.Model(&model.Driver{})
	if opts.Status != "" {
		query = query.Where("verification_status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count drivers", err, nil)
		return nil, 0, err
	}

	page, pageSize := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var drivers []model.Driver
	if err := query.
		Order("updated_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&drivers).Error; err != nil {
		logger.Error("Failed to list drivers", err, nil)
		return nil, 0, err
	}

	logger.Debug("Drivers listed from database", map[string]interface{}{
		"count": len(drivers),
		"total": total,
	})
	return drivers, total, nil
}

// BulkCreate inserts drivers in batches inside one transaction.
func (r *driverRepository) BulkCreate(drivers []model.Driver, batchSize int) error {
	logger.Debug("Bulk creating drivers in database", map[string]interface{}{
		"count":      len(drivers),
		"batch_size": batchSize,
	})

	if len(drivers) == 0 {
		return nil
	}
	if err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&drivers, batchSize).Error
	}); err != nil {
		logger.Error("Failed to bulk create drivers", err, map[string]interface{}{
			"count": len(drivers),
		})
		return err
	}
	return nil
}

func (r *driverRepository) ExistsByLicenseNumber(licenseNumber string, excludeID uint) (bool, error) {
	return r.exists("license_number", licenseNumber, excludeID)
}

func (r *driverRepository) ExistsByEmail(email string, excludeID uint) (bool, error) {
	return r.exists("email", email, excludeID)
}

func (r *driverRepository) ExistsByPhone(phone string, excludeID uint) (bool, error) {
	return r.exists("phone", phone, excludeID)
}

// column is always one of the fixed names above.
func (r *driverRepository) exists(column, value string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&model.Driver{}).Where(column+" = ?", value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		logger.Error("Failed to check driver uniqueness", err, map[string]interface{}{
			"column": column,
		})
		return false, err
	}
	return count > 0, nil
}
