package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentDriverLicenseScan    DocumentType = "driver_license_scan"
	DocumentNationalID           DocumentType = "national_id"
	DocumentPassportPhoto        DocumentType = "passport_photo"
	DocumentVehicleRegistration  DocumentType = "vehicle_registration"
	DocumentInsuranceCertificate DocumentType = "insurance_certificate"
)

// RequiredKycDocuments must exist (non-rejected) before KYC step 3 can be submitted.
var RequiredKycDocuments = []DocumentType{
	DocumentDriverLicenseScan,
	DocumentNationalID,
	DocumentPassportPhoto,
}

func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentDriverLicenseScan, DocumentNationalID, DocumentPassportPhoto,
		DocumentVehicleRegistration, DocumentInsuranceCertificate:
		return true
	}
	return false
}

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentVerified DocumentStatus = "verified"
	DocumentRejected DocumentStatus = "rejected"
	// replaced by a newer upload of the same type
	DocumentSuperseded DocumentStatus = "superseded"
)

// InactiveDocumentStatuses never count towards verification or KYC requirements.
var InactiveDocumentStatuses = []DocumentStatus{DocumentRejected, DocumentSuperseded}

func (s DocumentStatus) IsActive() bool {
	return s != DocumentRejected && s != DocumentSuperseded
}

// DriverDocument 업로드된 서류 + OCR 추출 결과
type DriverDocument struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DriverID     uint           `gorm:"index;not null" json:"driver_id"`
	DocumentType DocumentType   `gorm:"type:varchar(40);index;not null" json:"document_type"`
	FileKey      string         `gorm:"type:text;not null" json:"file_key"` // S3 object key
	FileURL      string         `gorm:"type:text" json:"file_url"`
	MimeType     string         `gorm:"type:varchar(100)" json:"mime_type,omitempty"`
	FileSize     int64          `json:"file_size,omitempty"`
	Status       DocumentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	// OCR
	OCRText       string         `gorm:"type:text" json:"ocr_text,omitempty"`
	OCRFields     datatypes.JSON `json:"ocr_fields,omitempty"`
	OCRConfidence *float64       `json:"ocr_confidence,omitempty"`
	OCRProvider   string         `gorm:"type:varchar(40)" json:"ocr_provider,omitempty"`

	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
}

func (DriverDocument) TableName() string {
	return "driver_documents"
}
